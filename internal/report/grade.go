package report

const naMark = "N/A"

type Grade struct {
	Percentage     float64 `json:"percentage" validate:"min=0,max=100"`
	Mark           string  `json:"mark" validate:"required,mark"`
	CSSClassSuffix string  `json:"css_class_suffix" validate:"required,css_suffix"`
}

// computeGrade turns a percentage into a school mark. Negative values mean
// nothing was measured.
func computeGrade(percentage float64) *Grade {
	g := &Grade{
		Percentage:     0.0,
		Mark:           naMark,
		CSSClassSuffix: "na",
	}

	if percentage < 0 {
		return g
	}

	g.Percentage = percentage

	switch {
	case g.Percentage >= 97.0:
		g.Mark = "A+"
		g.CSSClassSuffix = "a"
	case g.Percentage >= 93.0:
		g.Mark = "A"
		g.CSSClassSuffix = "a"
	case g.Percentage >= 90.0:
		g.Mark = "A-"
		g.CSSClassSuffix = "a"
	case g.Percentage >= 87.0:
		g.Mark = "B+"
		g.CSSClassSuffix = "b"
	case g.Percentage >= 83.0:
		g.Mark = "B"
		g.CSSClassSuffix = "b"
	case g.Percentage >= 80.0:
		g.Mark = "B-"
		g.CSSClassSuffix = "b"
	case g.Percentage >= 77.0:
		g.Mark = "C+"
		g.CSSClassSuffix = "c"
	case g.Percentage >= 73.0:
		g.Mark = "C"
		g.CSSClassSuffix = "c"
	case g.Percentage >= 70.0:
		g.Mark = "C-"
		g.CSSClassSuffix = "c"
	case g.Percentage >= 67.0:
		g.Mark = "D+"
		g.CSSClassSuffix = "d"
	case g.Percentage >= 63.0:
		g.Mark = "D"
		g.CSSClassSuffix = "d"
	case g.Percentage >= 60.0:
		g.Mark = "D-"
		g.CSSClassSuffix = "d"
	default:
		g.Mark = "F"
		g.CSSClassSuffix = "f"
	}

	return g
}
