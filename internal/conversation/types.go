package conversation

import (
	"strings"
	"time"
)

type Phase string

const (
	PhaseDiscovery      Phase = "COMPONENT_DISCOVERY"
	PhaseRefinement     Phase = "INTERACTIVE_REFINEMENT"
	PhaseDeepDive       Phase = "DEEP_DIVE"
	PhaseDiagramDisplay Phase = "DIAGRAM_DISPLAY"
)

// Approved reports whether the phase is at or past approval.
func (p Phase) Approved() bool {
	return p == PhaseDeepDive || p == PhaseDiagramDisplay
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is a component's deep-dive progress.
type Status string

const (
	StatusFetching Status = "fetching"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

func (s Status) Terminal() bool { return s == StatusComplete || s == StatusFailed }

// FormInputs is the originating request. It is never modified after the
// session is created.
type FormInputs struct {
	Idea           string            `json:"idea"`
	UserCount      string            `json:"userCount"`
	Compliance     string            `json:"compliance"`
	SkillLevel     string            `json:"skillLevel"`
	Timeline       string            `json:"timeline"`
	CloudPlatform  string            `json:"cloudPlatform"`
	AIProviders    []string          `json:"aiProviders,omitempty"`
	ProviderModels map[string]string `json:"providerModels,omitempty"`
}

// Validate reports every missing required field in one error.
func (f FormInputs) Validate() error {
	var missing []string
	for _, fld := range []struct{ name, v string }{
		{"idea", f.Idea},
		{"userCount", f.UserCount},
		{"compliance", f.Compliance},
		{"skillLevel", f.SkillLevel},
		{"timeline", f.Timeline},
		{"cloudPlatform", f.CloudPlatform},
	} {
		if strings.TrimSpace(fld.v) == "" {
			missing = append(missing, fld.name)
		}
	}
	if len(missing) > 0 {
		return Errorf(KindValidation, "all required fields must be provided; missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (f FormInputs) clone() FormInputs {
	out := f
	if f.AIProviders != nil {
		out.AIProviders = append([]string(nil), f.AIProviders...)
	}
	if f.ProviderModels != nil {
		out.ProviderModels = make(map[string]string, len(f.ProviderModels))
		for k, v := range f.ProviderModels {
			out.ProviderModels[k] = v
		}
	}
	return out
}

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Component is one infrastructure choice.
type Component struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Value     string `json:"value"`
	Category  string `json:"category"`
	Rationale string `json:"rationale"`
}

type Setting struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Reason string `json:"reason,omitempty"`
}

type Configuration struct {
	Settings      []Setting `json:"settings"`
	SetupSteps    []string  `json:"setupSteps"`
	BestPractices []string  `json:"bestPractices"`
	SecurityNotes []string  `json:"securityNotes"`
}

// ComponentDetail is the deep-dive result for one component.
type ComponentDetail struct {
	Configuration Configuration `json:"configuration"`
	Dependencies  []string      `json:"dependencies"`
	EstimatedCost string        `json:"estimatedCost"`
}

func (d ComponentDetail) clone() ComponentDetail {
	out := d
	out.Configuration.Settings = append([]Setting(nil), d.Configuration.Settings...)
	out.Configuration.SetupSteps = append([]string(nil), d.Configuration.SetupSteps...)
	out.Configuration.BestPractices = append([]string(nil), d.Configuration.BestPractices...)
	out.Configuration.SecurityNotes = append([]string(nil), d.Configuration.SecurityNotes...)
	out.Dependencies = append([]string(nil), d.Dependencies...)
	return out
}

// Diagram is the assembled flowchart. Degraded marks the deterministic
// fallback.
type Diagram struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
	Repaired bool   `json:"repaired,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Provenance records which provider produced the current component list.
type Provenance struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Score      int    `json:"score,omitempty"`
	Candidates int    `json:"candidates,omitempty"`
}
