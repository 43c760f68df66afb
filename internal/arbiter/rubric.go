package arbiter

import (
	"sort"
	"strings"
)

// BlueprintRubric rewards the presence of expected sections, security
// heaviest, plus depth of compliance notes and a detailed tech stack.
type BlueprintRubric struct {
	W BlueprintWeights
}

func (r BlueprintRubric) Score(v any) int {
	obj, ok := v.(map[string]any)
	if !ok {
		return 0
	}
	score := 0
	keys := make([]string, 0, len(r.W.Sections))
	for k := range r.W.Sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if present(obj[k]) {
			score += r.W.Sections[k]
		}
	}
	if s, ok := obj["compliance_notes"].(string); ok && len(s) > r.W.ComplianceMinChars {
		score += r.W.ComplianceNotes
	}
	if s, ok := obj["mermaid_diagram"].(string); ok && strings.Contains(s, "flowchart") {
		score += r.W.DiagramFlowchart
	}
	if ts, ok := obj["tech_stack"].(map[string]any); ok && len(ts) >= r.W.TechStackMinKeys {
		score += r.W.TechStack
	}
	return score
}

// ComponentRubric scores a component list: complete entries, rationale
// depth, category coverage (security categories weigh more) and whether
// the count falls in the expected range.
type ComponentRubric struct {
	W ComponentWeights
}

func (r ComponentRubric) Score(v any) int {
	items := componentMaps(v)
	if len(items) == 0 {
		return 0
	}
	score := 0
	categories := map[string]bool{}
	for _, c := range items {
		name, value := str(c["name"]), str(c["value"])
		category, rationale := strings.ToLower(str(c["category"])), str(c["rationale"])
		if name != "" && value != "" && category != "" && rationale != "" {
			score += r.W.Complete
		}
		if len(rationale) >= r.W.RationaleMinChars {
			score += r.W.RationaleDepth
		}
		if category != "" {
			categories[category] = true
		}
	}
	for cat := range categories {
		score += r.W.Category
		for _, sec := range r.W.SecurityKinds {
			if cat == sec {
				score += r.W.SecurityCategory
				break
			}
		}
	}
	if n := len(items); n >= r.W.MinCount && n <= r.W.MaxCount {
		score += r.W.CountInRange
	}
	return score
}

func componentMaps(v any) []map[string]any {
	switch x := v.(type) {
	case []map[string]any:
		return x
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, it := range x {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return componentMaps(x["components"])
	default:
		return nil
	}
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case bool:
		return x
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
