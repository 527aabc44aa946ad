package scenario

import (
	"github.com/pkg/errors"
)

type Reveal struct {
	Click   string `yaml:"click" validate:"required,selector"`
	Visible string `yaml:"visible" validate:"required,selector"`
}

type Fill struct {
	Selector string `yaml:"selector" validate:"required,selector"`
	Value    string `yaml:"value"`
}

type Snapshot struct {
	// Selector is empty for a full page capture.
	Selector string `yaml:"selector" validate:"omitempty,selector"`
	Baseline string `yaml:"baseline" validate:"required"`
	Current  string `yaml:"current" validate:"required,nefield=Baseline"`
}

// Step is one UI action. Exactly one field is set.
type Step struct {
	Navigate string    `yaml:"navigate" validate:"omitempty,http_path"`
	Check    string    `yaml:"check" validate:"omitempty,selector"`
	Uncheck  string    `yaml:"uncheck" validate:"omitempty,selector"`
	Reveal   *Reveal   `yaml:"reveal"`
	Fill     *Fill     `yaml:"fill"`
	Hide     string    `yaml:"hide" validate:"omitempty,selector"`
	Snapshot *Snapshot `yaml:"snapshot"`
}

type Kind string

const (
	KindNavigate Kind = "navigate"
	KindCheck    Kind = "check"
	KindUncheck  Kind = "uncheck"
	KindReveal   Kind = "reveal"
	KindFill     Kind = "fill"
	KindHide     Kind = "hide"
	KindSnapshot Kind = "snapshot"
)

// Kind returns the action of the step.
func (s *Step) Kind() (Kind, error) {
	var kinds []Kind

	if s.Navigate != "" {
		kinds = append(kinds, KindNavigate)
	}
	if s.Check != "" {
		kinds = append(kinds, KindCheck)
	}
	if s.Uncheck != "" {
		kinds = append(kinds, KindUncheck)
	}
	if s.Reveal != nil {
		kinds = append(kinds, KindReveal)
	}
	if s.Fill != nil {
		kinds = append(kinds, KindFill)
	}
	if s.Hide != "" {
		kinds = append(kinds, KindHide)
	}
	if s.Snapshot != nil {
		kinds = append(kinds, KindSnapshot)
	}

	switch len(kinds) {
	case 0:
		return "", errors.New("step has no action")
	case 1:
		return kinds[0], nil
	default:
		return "", errors.Errorf("step has several actions: %v", kinds)
	}
}

// Target describes what the step acts on, for logs and reports.
func (s *Step) Target() string {
	switch {
	case s.Navigate != "":
		return s.Navigate
	case s.Check != "":
		return s.Check
	case s.Uncheck != "":
		return s.Uncheck
	case s.Reveal != nil:
		return s.Reveal.Click + " -> " + s.Reveal.Visible
	case s.Fill != nil:
		return s.Fill.Selector
	case s.Hide != "":
		return s.Hide
	case s.Snapshot != nil:
		if s.Snapshot.Selector == "" {
			return "page"
		}
		return s.Snapshot.Selector
	}
	return ""
}
