package pipeline

import (
	"github.com/wallarm/gotestflow/internal/match"
	"github.com/wallarm/gotestflow/internal/payload"
)

// Submit posts the bound payload.
type Submit struct {
	Path       string `yaml:"path" validate:"required,http_path"`
	MethodName string `yaml:"methodName"`

	// IDPath locates an identifier echoed by the backend. When it yields a
	// value the correlation search is skipped.
	IDPath string `yaml:"idPath"`
}

// Correlate finds the created entity in a search result.
type Correlate struct {
	Path string `yaml:"path" validate:"required,http_path"`

	// WrapField serializes the query into a string field of the request
	// body, e.g. {"JsonString": "<query>"}.
	WrapField string `yaml:"wrapField"`
	Query     any    `yaml:"query"`

	Collection string `yaml:"collection" validate:"required"`
	Field      string `yaml:"field" validate:"required"`
	Column     string `yaml:"column"`
	IDField    string `yaml:"idField"`
}

func (c *Correlate) column() string {
	if c.Column != "" {
		return c.Column
	}
	return c.Field
}

func (c *Correlate) idField() string {
	if c.IDField != "" {
		return c.IDField
	}
	return "id"
}

// Detail fetches the entity by identifier.
type Detail struct {
	Path       string `yaml:"path" validate:"required,http_path"`
	MethodName string `yaml:"methodName"`

	// IDPath, when set, must hold the identifier the detail was fetched by,
	// e.g. value.id.
	IDPath string `yaml:"idPath"`
}

// Assert compares the detail document with the record.
type Assert struct {
	// Root is the dotted path of the entity inside the detail response.
	Root     string           `yaml:"root"`
	Fields   []match.Field    `yaml:"fields" validate:"dive"`
	Contains []match.Contains `yaml:"contains" validate:"dive"`
}

// Case is everything the pipeline needs to verify the records of one case.
type Case struct {
	Set  string
	Name string

	Template    payload.Source
	Mapping     payload.Mapping
	RecordIndex int

	Submit    Submit
	Correlate *Correlate
	Detail    Detail
	Assert    Assert
}
