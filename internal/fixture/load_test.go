package fixture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestLoadWithBOM(t *testing.T) {
	records, err := Load(filepath.Join("testdata", "bom.csv"), EncodingUTF8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("empty lines must be skipped, got %d records", len(records))
	}

	fields := records[0].Fields()
	if fields[0] != "constructionName" {
		t.Errorf("BOM must be stripped from the first column: %q", fields[0])
	}

	name, _ := records[0].Get("constructionName")
	amount, _ := records[0].Get("amount")
	if name != "Bridge A" || amount != "1000000" {
		t.Errorf("bad first record: %v", records[0].Map())
	}

	second, _ := records[1].Get("constructionName")
	if second != "Tunnel B" || records[1].Row() != 2 {
		t.Errorf("row order must be preserved: %q row %d", second, records[1].Row())
	}
}

func TestLoadShiftJIS(t *testing.T) {
	content := "constructionName,kojiPlace\n橋梁補修工事,東京都\n"

	encoded, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), content)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "sjis.csv")
	if err = os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := Load(path, EncodingShiftJIS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	place, _ := records[0].Get("kojiPlace")
	if place != "東京都" {
		t.Errorf("bad decoded value: %q", place)
	}
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.csv"), "")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err should be an %T, got %v", notFound, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err must wrap os.ErrNotExist")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{"empty", "", 0},
		{"duplicate column", "a,a\n1,2\n", 1},
		{"empty column", "a,\n1,2\n", 1},
		{"wrong field count", "a,b\n1,2\n3\n", 3},
		{"bare quote", "a,b\n1,\"2\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("fixture.csv", strings.NewReader(tt.content))

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("err should be an %T, got %v", parseErr, err)
			}
			if tt.line > 0 && parseErr.Line != tt.line {
				t.Errorf("bad line: got %d, want %d", parseErr.Line, tt.line)
			}
		})
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "bom.csv"), "ebcdic")
	if !errors.Is(err, ErrUnsupportedEncoding) {
		t.Errorf("err must be ErrUnsupportedEncoding, got %v", err)
	}
}

func TestHeaderOnly(t *testing.T) {
	records, err := Parse("fixture.csv", strings.NewReader("a,b\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestRecordIsImmutable(t *testing.T) {
	r := NewRecord(1, []string{"a"}, []string{"x"})

	m := r.Map()
	m["a"] = "changed"

	fields := r.Fields()
	fields[0] = "b"

	if v, _ := r.Get("a"); v != "x" {
		t.Errorf("record was mutated through Map: %q", v)
	}
	if r.Fields()[0] != "a" {
		t.Errorf("record was mutated through Fields")
	}
}
