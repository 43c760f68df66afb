package diagram

import (
	"fmt"
	"sort"
	"strings"
)

// MinimalFallback is used when there is nothing to draw.
const MinimalFallback = "flowchart TB\n    client[\"Client\"] --> app[\"Application\"]\n"

type Node struct {
	ID    string
	Label string
}

type Edge struct {
	From, To string
	Label    string
}

// Synthesize renders nodes and edges as a top-bottom flowchart. Edges that
// reference unknown nodes are dropped. Output is deterministic.
func Synthesize(nodes []Node, edges []Edge) string {
	if len(nodes) == 0 {
		return MinimalFallback
	}
	var sb strings.Builder
	sb.WriteString("flowchart TB\n")

	// Distinct ids that sanitize alike get _2, _3 suffixes; edges resolve
	// by the id they were given.
	assigned := map[string]string{}
	used := map[string]bool{}
	for _, n := range nodes {
		raw := strings.TrimSpace(n.ID)
		if _, dup := assigned[raw]; dup {
			continue
		}
		base := sanitizeID(raw)
		id := base
		for i := 2; used[id]; i++ {
			id = fmt.Sprintf("%s_%d", base, i)
		}
		used[id] = true
		assigned[raw] = id
		label := sanitizeLabel(n.Label)
		if label == "" {
			label = sanitizeLabel(n.ID)
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, label))
	}
	seen := map[string]bool{}
	for _, e := range edges {
		from, okFrom := assigned[strings.TrimSpace(e.From)]
		to, okTo := assigned[strings.TrimSpace(e.To)]
		if !okFrom || !okTo || from == to {
			continue
		}
		key := from + "->" + to
		if seen[key] {
			continue
		}
		seen[key] = true
		if l := sanitizeLabel(e.Label); l != "" {
			sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", from, l, to))
		} else {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
		}
	}
	return sb.String()
}

// FromTechStack draws a client node connected to one node per tech-stack
// field, in sorted field order.
func FromTechStack(stack map[string]any) string {
	keys := make([]string, 0, len(stack))
	for k := range stack {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nodes := []Node{{ID: "client", Label: "Client"}}
	var edges []Edge
	for _, k := range keys {
		label := k
		if v, ok := stack[k].(string); ok && strings.TrimSpace(v) != "" {
			label = k + ": " + v
		}
		id := "ts_" + k
		nodes = append(nodes, Node{ID: id, Label: label})
		edges = append(edges, Edge{From: "client", To: id})
	}
	return Synthesize(nodes, edges)
}

func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	id := b.String()
	if id == "" {
		return "node"
	}
	if c := id[0]; !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
		id = "n_" + id
	}
	// "end" is a reserved word in flowcharts.
	if strings.EqualFold(id, "end") {
		id = "n_" + id
	}
	return id
}

func sanitizeLabel(s string) string {
	r := strings.NewReplacer(
		"\"", "'", "[", "(", "]", ")", "{", "(", "}", ")", "<", "", ">", "", "|", "/", "\n", " ", "\r", " ",
	)
	return strings.TrimSpace(r.Replace(s))
}
