package arbiter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BlueprintWeights score a one-shot architecture blueprint.
type BlueprintWeights struct {
	// Sections maps a top-level key to the points for its presence.
	Sections           map[string]int `yaml:"sections"`
	ComplianceNotes    int            `yaml:"compliance_notes"`
	ComplianceMinChars int            `yaml:"compliance_min_chars"`
	DiagramFlowchart   int            `yaml:"diagram_flowchart"`
	TechStack          int            `yaml:"tech_stack"`
	TechStackMinKeys   int            `yaml:"tech_stack_min_keys"`
}

// ComponentWeights score a discovery or refinement component list.
type ComponentWeights struct {
	Complete          int      `yaml:"complete"`
	RationaleDepth    int      `yaml:"rationale_depth"`
	RationaleMinChars int      `yaml:"rationale_min_chars"`
	Category          int      `yaml:"category"`
	SecurityCategory  int      `yaml:"security_category"`
	SecurityKinds     []string `yaml:"security_kinds"`
	CountInRange      int      `yaml:"count_in_range"`
	MinCount          int      `yaml:"min_count"`
	MaxCount          int      `yaml:"max_count"`
}

type Weights struct {
	Blueprint  BlueprintWeights `yaml:"blueprint"`
	Components ComponentWeights `yaml:"components"`
}

func DefaultWeights() Weights {
	return Weights{
		Blueprint: BlueprintWeights{
			Sections: map[string]int{
				"authentication_system": 10,
				"database_design":       10,
				"api_design":            10,
				"cloud_infrastructure":  10,
				"security_architecture": 15,
				"deployment_strategy":   10,
				"monitoring_and_alerts": 10,
			},
			ComplianceNotes:    10,
			ComplianceMinChars: 100,
			DiagramFlowchart:   5,
			TechStack:          10,
			TechStackMinKeys:   8,
		},
		Components: ComponentWeights{
			Complete:          5,
			RationaleDepth:    2,
			RationaleMinChars: 40,
			Category:          3,
			SecurityCategory:  5,
			SecurityKinds:     []string{"authentication", "security"},
			CountInRange:      10,
			MinCount:          5,
			MaxCount:          8,
		},
	}
}

// LoadWeights overlays the YAML file at path on DefaultWeights. An empty
// path returns the defaults.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if path == "" {
		return w, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights: %w", err)
	}
	if err := yaml.Unmarshal(b, &w); err != nil {
		return w, fmt.Errorf("parse weights %s: %w", path, err)
	}
	return w, w.Validate()
}

func (w Weights) Validate() error {
	for k, v := range w.Blueprint.Sections {
		if v < 0 {
			return fmt.Errorf("weights: section %s is negative", k)
		}
	}
	c := w.Components
	if c.MinCount > c.MaxCount {
		return fmt.Errorf("weights: min_count %d exceeds max_count %d", c.MinCount, c.MaxCount)
	}
	for _, v := range []int{c.Complete, c.RationaleDepth, c.Category, c.SecurityCategory, c.CountInRange,
		w.Blueprint.ComplianceNotes, w.Blueprint.DiagramFlowchart, w.Blueprint.TechStack} {
		if v < 0 {
			return fmt.Errorf("weights: negative weight %d", v)
		}
	}
	return nil
}
