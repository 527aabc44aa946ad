// Package fixture reads tabular test data into ordered records.
package fixture

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
)

var ErrUnsupportedEncoding = errors.New("unsupported fixture encoding")

func decoder(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "-", "_")) {
	case "", "utf_8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "shift_jis", "sjis", "cp932":
		return japanese.ShiftJIS.NewDecoder(), nil
	default:
		return nil, errors.Wrap(ErrUnsupportedEncoding, encoding)
	}
}

// Load reads a delimited file with a header row. Empty lines are skipped
// and row order is preserved.
func Load(path string, encoding string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: path, Err: err}
		}
		return nil, errors.Wrapf(err, "couldn't open fixture %s", path)
	}
	defer f.Close()

	dec, err := decoder(encoding)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return Parse(path, transform.NewReader(f, dec))
}

// Parse reads already decoded CSV content. name is used in errors only.
func Parse(name string, r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Path: name, Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, parseError(name, err)
	}

	fields := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))

	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, &ParseError{Path: name, Line: 1, Err: errors.Errorf("empty name of column %d", i+1)}
		}
		if _, ok := seen[h]; ok {
			return nil, &ParseError{Path: name, Line: 1, Err: errors.Errorf("duplicate column %q", h)}
		}

		seen[h] = struct{}{}
		fields[i] = h
	}

	var records []Record

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(name, err)
		}

		records = append(records, NewRecord(len(records)+1, fields, row))
	}

	return records, nil
}

func parseError(name string, err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Path: name, Line: csvErr.Line, Err: csvErr.Err}
	}

	return &ParseError{Path: name, Err: err}
}
