package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wallarm/gotestflow/internal/config"
	"github.com/wallarm/gotestflow/internal/fixture"
	"github.com/wallarm/gotestflow/internal/match"
	"github.com/wallarm/gotestflow/internal/payload"
	"github.com/wallarm/gotestflow/internal/scenario"
)

const testCasesPath = "testdata/testcases"

func TestLoadTestCases(t *testing.T) {
	cases, err := LoadTestCases(&config.Config{TestCasesPath: testCasesPath})
	if err != nil {
		t.Fatalf("couldn't load test cases: %v", err)
	}

	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}

	api, ui := cases[0], cases[1]

	if api.Set != "prospect" || api.Name != "csv-import" || !api.HasAPI() {
		t.Errorf("bad api case: %+v", api)
	}
	if ui.Set != "ui" || ui.Name != "detail" || ui.HasAPI() {
		t.Errorf("bad ui case: %+v", ui)
	}

	c := api.Pipeline
	if c.Submit.MethodName != "CsvBulkUpsert" || c.Detail.MethodName != "Get" {
		t.Errorf("bad endpoints: %+v %+v", c.Submit, c.Detail)
	}
	if c.Assert.Root != "value" || len(c.Assert.Fields) != 3 || c.Assert.Fields[1].Kind != match.KindNumber {
		t.Errorf("bad assertions: %+v", c.Assert)
	}
	if want := filepath.Join(testCasesPath, "prospect", "testdata", "prospect.csv"); api.FixturePath != want {
		t.Errorf("fixture path %q, want %q", api.FixturePath, want)
	}

	query, ok := c.Correlate.Query.(map[string]any)
	if !ok {
		t.Fatalf("query must be normalized, got %T", c.Correlate.Query)
	}
	sortSpec, ok := query["sort"].([]any)
	if !ok || len(sortSpec) != 1 {
		t.Fatalf("bad sort spec: %#v", query["sort"])
	}
	if _, ok := sortSpec[0].(map[string]any); !ok {
		t.Errorf("nested maps must be normalized, got %T", sortSpec[0])
	}

	if len(ui.UI) != 5 {
		t.Fatalf("expected 5 ui steps, got %d", len(ui.UI))
	}
	if kind, _ := ui.UI[4].Kind(); kind != scenario.KindSnapshot {
		t.Errorf("last step must be a snapshot, got %s", kind)
	}
}

func TestLoadTestCasesFilters(t *testing.T) {
	cases, err := LoadTestCases(&config.Config{TestCasesPath: testCasesPath, TestSet: "ui"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 1 || cases[0].Name != "detail" {
		t.Errorf("testSet filter failed: %d cases", len(cases))
	}

	_, err = LoadTestCases(&config.Config{TestCasesPath: testCasesPath, TestCase: "missing"})
	if err == nil {
		t.Errorf("empty selection must fail")
	}
}

func TestLoadFixture(t *testing.T) {
	cases, err := LoadTestCases(&config.Config{TestCasesPath: testCasesPath, TestCase: "csv-import"})
	if err != nil {
		t.Fatal(err)
	}

	records, err := cases[0].LoadFixture()
	if err != nil {
		t.Fatalf("couldn't load fixture: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if v, _ := records[1].Get("amount"); v != "2,500" {
		t.Errorf("bad amount %q", v)
	}

	c := cases[0].Pipeline
	if want := filepath.Join(testCasesPath, "prospect", "testdata", "prospect.json"); c.Template.Name() != want {
		t.Errorf("template %q, want %q", c.Template.Name(), want)
	}
	if c.Detail.IDPath != "value.id" {
		t.Errorf("bad detail id path %q", c.Detail.IDPath)
	}

	bound, err := payload.Bind(c.Template, records[1], c.Mapping, c.RecordIndex)
	if err != nil {
		t.Fatalf("couldn't bind the loaded template: %v", err)
	}
	if got := bound.Record()["constructionName"]; got != "Bridge B" {
		t.Errorf("bad bound record: %v", bound.Record())
	}
	if got := bound.Record()["state"]; got == nil {
		t.Errorf("template defaults must be kept: %v", bound.Record())
	}
}

func TestLoadFixtureIdentityMapping(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "set", "data.csv"), "constructionName,amount\nBridge A,1\n")
	writeFile(t, filepath.Join(dir, "set", "template.json"), `{"records": [{"constructionName": "", "amount": ""}]}`)
	writeFile(t, filepath.Join(dir, "set", "case.yaml"), `
fixture: data.csv
template: template.json
submit: {path: /upsert}
correlate: {path: /search, collection: value, field: constructionName}
detail: {path: "/{{id}}"}
`)

	cases, err := LoadTestCases(&config.Config{TestCasesPath: dir})
	if err != nil {
		t.Fatalf("couldn't load: %v", err)
	}

	if _, err = cases[0].LoadFixture(); err != nil {
		t.Fatal(err)
	}

	fields := cases[0].Pipeline.Mapping.Fields()
	if strings.Join(fields, ",") != "amount,constructionName" {
		t.Errorf("bad identity mapping: %v", fields)
	}
}

func TestLoadFixtureNotFound(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "set", "case.yaml"), `
fixture: missing.csv
template: template.json
submit: {path: /upsert}
detail: {path: "/{{id}}"}
`)

	cases, err := LoadTestCases(&config.Config{TestCasesPath: dir})
	if err != nil {
		t.Fatal(err)
	}

	_, err = cases[0].LoadFixture()

	var notFound *fixture.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("err must be a %T, got %v", notFound, err)
	}
}

func TestLoadInvalidTestCases(t *testing.T) {
	tests := map[string]string{
		"no template and no ui": `fixture: a.csv`,
		"missing submit": `
fixture: a.csv
template: t.json
detail: {path: /x}
`,
		"relative submit path": `
fixture: a.csv
template: t.json
submit: {path: upsert}
detail: {path: /x}
`,
		"unknown field": `
ui: [{navigate: /}]
timeout: 5
`,
		"ambiguous step":         `ui: [{check: "#a", uncheck: "#b"}]`,
		"bad selector":           `ui: [{check: "div["}]`,
		"snapshot over baseline": `ui: [{snapshot: {baseline: 001.png, current: 001.png}}]`,
		"bad kind": `
fixture: a.csv
template: t.json
submit: {path: /upsert}
detail: {path: /x}
assert: {fields: [{field: amount, kind: money}]}
`,
		"bad encoding": `
fixture: a.csv
encoding: latin1
template: t.json
submit: {path: /upsert}
detail: {path: /x}
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "set", "case.yaml"), content)

			if _, err := LoadTestCases(&config.Config{TestCasesPath: dir}); err == nil {
				t.Errorf("invalid case must be rejected")
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
