package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// ComponentsFromValue converts a parsed model response into components.
// It accepts a bare array or an object carrying a "components" array.
// Missing ids are derived from the category or name, and duplicate ids get
// numeric suffixes so ids are unique within the list.
func ComponentsFromValue(v any) ([]Component, error) {
	items, ok := v.([]any)
	if !ok {
		obj, isObj := v.(map[string]any)
		if !isObj {
			return nil, Errorf(KindInvalidDiscoveryResponse, "AI response is not an array of components (got %s)", shapeOf(v))
		}
		if items, ok = obj["components"].([]any); !ok {
			return nil, Errorf(KindInvalidDiscoveryResponse, "AI response is not an array of components (object without components array)")
		}
	}

	out := make([]Component, 0, len(items))
	seen := map[string]int{}
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, Errorf(KindInvalidDiscoveryResponse, "component %d is %s, not an object", i, shapeOf(it))
		}
		c := Component{
			ID:        scalarString(m["id"]),
			Name:      scalarString(m["name"]),
			Value:     scalarString(m["value"]),
			Category:  strings.ToLower(scalarString(m["category"])),
			Rationale: scalarString(m["rationale"]),
		}
		if c.Name == "" && c.Value == "" && c.Category == "" {
			continue
		}
		c.ID = slug(c.ID)
		if c.ID == "" {
			c.ID = slug(firstNonEmpty(c.Category, c.Name, c.Value))
		}
		if c.ID == "" {
			c.ID = "component"
		}
		if n := seen[c.ID]; n > 0 {
			base := c.ID
			for {
				n++
				c.ID = base + "_" + strconv.Itoa(n)
				if seen[c.ID] == 0 {
					break
				}
			}
			seen[base] = n
		}
		seen[c.ID]++
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, Errorf(KindInvalidDiscoveryResponse, "AI response contained no components")
	}
	return out, nil
}

// DetailFromValue converts a parsed deep-dive response into a ComponentDetail,
// tolerating common shape drift (numeric values, alternative setting keys,
// structured costs).
func DetailFromValue(v any) (ComponentDetail, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return ComponentDetail{}, Errorf(KindUnparseableResponse, "component detail is %s, not an object", shapeOf(v))
	}
	var d ComponentDetail
	cfg, _ := obj["configuration"].(map[string]any)
	if cfg == nil {
		cfg = obj
	}
	if raw, ok := cfg["settings"].([]any); ok {
		for _, it := range raw {
			sm, ok := it.(map[string]any)
			if !ok {
				continue
			}
			s := Setting{
				Key:    firstNonEmpty(scalarString(sm["key"]), scalarString(sm["name"]), scalarString(sm["setting"])),
				Value:  scalarString(sm["value"]),
				Reason: firstNonEmpty(scalarString(sm["reason"]), scalarString(sm["description"])),
			}
			if s.Key != "" || s.Value != "" {
				d.Configuration.Settings = append(d.Configuration.Settings, s)
			}
		}
	}
	d.Configuration.SetupSteps = stringList(cfg["setupSteps"])
	d.Configuration.BestPractices = stringList(cfg["bestPractices"])
	d.Configuration.SecurityNotes = stringList(cfg["securityNotes"])
	d.Dependencies = stringList(obj["dependencies"])
	d.EstimatedCost = costString(obj["estimatedCost"])

	if len(d.Configuration.Settings) == 0 && len(d.Configuration.SetupSteps) == 0 &&
		len(d.Configuration.BestPractices) == 0 && len(d.Configuration.SecurityNotes) == 0 &&
		d.EstimatedCost == "" {
		return ComponentDetail{}, Errorf(KindUnparseableResponse, "component detail has no configuration")
	}
	return d, nil
}

func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if s := scalarString(v); s != "" {
			return []string{s}
		}
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		if s := scalarString(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func costString(v any) string {
	if m, ok := v.(map[string]any); ok {
		for _, k := range []string{"monthly", "range", "total", "estimate"} {
			if s := scalarString(m[k]); s != "" {
				return s
			}
		}
		return ""
	}
	return scalarString(v)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func slug(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == '-' || r == ' ' || r == '/' || r == '.':
			if b.Len() > 0 && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func shapeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
