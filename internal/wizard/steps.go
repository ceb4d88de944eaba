// Package wizard drives the linear question flow that collects campaign
// parameters, and owns submission of the finished session.
package wizard

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind is the interactive control a step presents.
type Kind string

const (
	KindChoice  Kind = "choice"
	KindText    Kind = "text"
	KindSlider  Kind = "slider"
	KindFile    Kind = "file"
	KindSummary Kind = "summary"
)

// Option is one selectable value for a choice step.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Step is one configured wizard question. The step list is static
// configuration, loaded once and never mutated at runtime.
type Step struct {
	Field       string   `yaml:"field" json:"field"`
	Kind        Kind     `yaml:"kind" json:"kind"`
	Question    string   `yaml:"question" json:"question"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Options     []Option `yaml:"options,omitempty" json:"options,omitempty"`
	Validate    string   `yaml:"validate,omitempty" json:"-"`
	Min         int      `yaml:"min,omitempty" json:"min,omitempty"`
	Max         int      `yaml:"max,omitempty" json:"max,omitempty"`
}

//go:embed steps.yaml
var stepsYAML []byte

// LoadSteps parses the embedded step configuration.
func LoadSteps() ([]Step, error) {
	return parseSteps(stepsYAML)
}

func parseSteps(data []byte) ([]Step, error) {
	var doc struct {
		Steps []Step `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse step config: %w", err)
	}
	if len(doc.Steps) < 2 {
		return nil, fmt.Errorf("step config needs at least a question and a summary, got %d steps", len(doc.Steps))
	}

	seen := make(map[string]bool, len(doc.Steps))
	for i, st := range doc.Steps {
		if st.Field == "" {
			return nil, fmt.Errorf("step %d has no field name", i)
		}
		if seen[st.Field] {
			return nil, fmt.Errorf("duplicate step field %q", st.Field)
		}
		seen[st.Field] = true

		switch st.Kind {
		case KindChoice:
			if len(st.Options) == 0 {
				return nil, fmt.Errorf("choice step %q has no options", st.Field)
			}
		case KindSlider:
			if st.Min >= st.Max {
				return nil, fmt.Errorf("slider step %q has empty range [%d,%d]", st.Field, st.Min, st.Max)
			}
		case KindText, KindFile, KindSummary:
		default:
			return nil, fmt.Errorf("step %q has unknown kind %q", st.Field, st.Kind)
		}
	}

	if doc.Steps[len(doc.Steps)-1].Kind != KindSummary {
		return nil, fmt.Errorf("last step must be the summary, got %q", doc.Steps[len(doc.Steps)-1].Kind)
	}
	return doc.Steps, nil
}
