package db

import (
	"time"

	"github.com/wallarm/gotestflow/internal/pipeline"
	"github.com/wallarm/gotestflow/internal/scenario"
)

// CaseFile is the layout of testcases/<set>/<case>.yaml. File paths are
// relative to the case file.
type CaseFile struct {
	Fixture     string            `yaml:"fixture" validate:"required_with=Template"`
	Encoding    string            `yaml:"encoding" validate:"omitempty,oneof=utf-8 utf8 shift_jis sjis cp932"`
	Template    string            `yaml:"template"`
	RecordIndex int               `yaml:"recordIndex" validate:"min=0"`
	Mapping     map[string]string `yaml:"mapping"`

	Submit    *pipeline.Submit    `yaml:"submit" validate:"required_with=Template"`
	Correlate *pipeline.Correlate `yaml:"correlate"`
	Detail    *pipeline.Detail    `yaml:"detail" validate:"required_with=Template"`
	Assert    pipeline.Assert     `yaml:"assert"`

	UI []scenario.Step `yaml:"ui" validate:"dive"`
}

// Case is a loaded and validated case file.
type Case struct {
	Set  string
	Name string
	File string

	FixturePath string
	Encoding    string

	// Pipeline is nil for UI-only cases.
	Pipeline *pipeline.Case
	UI       []scenario.Step
}

// HasAPI reports whether the case has an API verification part.
func (c *Case) HasAPI() bool {
	return c.Pipeline != nil
}

// Info is the stored outcome of one fixture record.
type Info struct {
	Set     string
	Case    string
	Row     int
	Key     string
	ID      string
	Step    string
	Status  string
	Reasons []string
}

// UIInfo is the stored outcome of one UI step.
type UIInfo struct {
	Set       string
	Case      string
	Index     int
	Kind      string
	Target    string
	Status    string
	DiffRatio float64
	Baseline  string
	Current   string
	Diff      string
	Reason    string
}

// CaseError is a case that stopped before all its records or steps ran.
type CaseError struct {
	Set    string
	Case   string
	Reason string
}

type RunInfo struct {
	StartTime time.Time
	EndTime   time.Time
	URL       string
}
