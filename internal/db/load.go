package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/wallarm/gotestflow/internal/config"
	"github.com/wallarm/gotestflow/internal/fixture"
	"github.com/wallarm/gotestflow/internal/payload"
	"github.com/wallarm/gotestflow/internal/pipeline"
)

// LoadTestCases reads <path>/<set>/<case>.yaml files selected by the
// testSet and testCase settings. Cases are returned ordered by set and name.
func LoadTestCases(cfg *config.Config) (testCases []*Case, err error) {
	var files []string

	if cfg.TestCasesPath == "" {
		return nil, errors.New("empty test cases path")
	}

	if err = filepath.Walk(cfg.TestCasesPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "couldn't walk test cases")
	}

	validate := config.NewValidator()

	for _, testCaseFile := range files {
		fileExt := filepath.Ext(testCaseFile)
		if fileExt != ".yml" && fileExt != ".yaml" {
			continue
		}

		rel, err := filepath.Rel(cfg.TestCasesPath, testCaseFile)
		if err != nil {
			return nil, err
		}

		// Only <testSetName>/<testCaseName>.yaml files are cases, deeper
		// files are fixtures and templates
		parts := strings.Split(rel, string(os.PathSeparator))
		if len(parts) != 2 {
			continue
		}

		testSetName := parts[0]
		testCaseName := strings.TrimSuffix(parts[1], fileExt)

		if cfg.TestSet != "" && testSetName != cfg.TestSet {
			continue
		}

		if cfg.TestCase != "" && testCaseName != cfg.TestCase {
			continue
		}

		t, err := LoadTestCase(validate, testCaseFile, testSetName, testCaseName)
		if err != nil {
			return nil, err
		}

		testCases = append(testCases, t)
	}

	if testCases == nil {
		return nil, errors.New("no tests were selected")
	}

	sort.Slice(testCases, func(i, j int) bool {
		if testCases[i].Set != testCases[j].Set {
			return testCases[i].Set < testCases[j].Set
		}
		return testCases[i].Name < testCases[j].Name
	})

	return testCases, nil
}

// LoadTestCase reads and validates one case file.
func LoadTestCase(validate *validator.Validate, path, set, name string) (*Case, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't read test case %s", path)
	}

	var f CaseFile
	if err = yaml.UnmarshalStrict(yamlFile, &f); err != nil {
		return nil, errors.Wrapf(err, "couldn't parse test case %s", path)
	}

	if err = config.ValidateStruct(validate, &f); err != nil {
		return nil, errors.Wrapf(err, "invalid test case %s", path)
	}

	if f.Template == "" && len(f.UI) == 0 {
		return nil, errors.Errorf("test case %s has neither a template nor UI steps", path)
	}

	for i := range f.UI {
		if _, err = f.UI[i].Kind(); err != nil {
			return nil, errors.Wrapf(err, "test case %s: ui step %d", path, i+1)
		}
	}

	dir := filepath.Dir(path)

	t := &Case{
		Set:      set,
		Name:     name,
		File:     path,
		Encoding: f.Encoding,
		UI:       f.UI,
	}

	if f.Template == "" {
		return t, nil
	}

	if f.Correlate != nil {
		query, err := normalizeYAML(f.Correlate.Query)
		if err != nil {
			return nil, errors.Wrapf(err, "test case %s: correlate.query", path)
		}
		f.Correlate.Query = query
	}

	t.FixturePath = resolve(dir, f.Fixture)
	t.Pipeline = &pipeline.Case{
		Set:         set,
		Name:        name,
		Template:    &payload.FileSource{Path: resolve(dir, f.Template)},
		Mapping:     payload.Mapping(f.Mapping),
		RecordIndex: f.RecordIndex,
		Submit:      *f.Submit,
		Correlate:   f.Correlate,
		Detail:      *f.Detail,
		Assert:      f.Assert,
	}

	return t, nil
}

// LoadFixture reads the fixture of an API case. An empty mapping maps every
// fixture column to the template field of the same name.
func (c *Case) LoadFixture() ([]fixture.Record, error) {
	if !c.HasAPI() {
		return nil, nil
	}

	records, err := fixture.Load(c.FixturePath, c.Encoding)
	if err != nil {
		return nil, err
	}

	if len(c.Pipeline.Mapping) == 0 && len(records) > 0 {
		c.Pipeline.Mapping = payload.IdentityMapping(records[0].Fields()...)
	}

	return records, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// normalizeYAML converts yaml.v2 maps into JSON-compatible values.
func normalizeYAML(v any) (any, error) {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key, ok := k.(string)
			if !ok {
				return nil, errors.Errorf("non-string key %v", k)
			}

			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil

	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil

	case []interface{}:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil

	case nil, string, bool, int, int64, float64:
		return val, nil

	default:
		return fmt.Sprint(val), nil
	}
}
