package diagram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"archie/internal/tester"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		valid bool
	}{
		{"minimal", "flowchart TB\n    A --> B", true},
		{"graph-lr", "graph LR\nA[Client] -->|HTTPS| B(API)", true},
		{"leading-comment", "%% generated\nflowchart TD\n  a --> b\n  %% note\n  subgraph Backend\n  b --> c\n  end", true},
		{"escaped-newlines", `flowchart TD\n  A --> B`, true},
		{"no-header", "A --> B\nB --> C", false},
		{"no-direction", "flowchart\nA --> B", false},
		{"bad-direction", "flowchart XY\nA --> B", false},
		{"sequence", "sequenceDiagram\nA->>B: hi", false},
		{"empty", "   \n\n", false},
		{"garbage-line", "flowchart TB\n  A --> B\n  ```", false},
		{"quote-line", "flowchart TB\n\"A\" --> B", false},
	}
	for _, c := range cases {
		v := Validate(c.in)
		if v.Valid != c.valid {
			t.Fatalf("%s: got valid=%v reason=%q", c.name, v.Valid, v.Reason)
		}
		if !v.Valid {
			tester.True(t, v.Reason != "", c.name+": reason required")
		}
	}
}

type rewriterFunc func(ctx context.Context, d, reason string) (string, error)

func (f rewriterFunc) Rewrite(ctx context.Context, d, reason string) (string, error) { return f(ctx, d, reason) }

func TestEnsure_AcceptsValid(t *testing.T) {
	called := false
	r := NewRepairer(rewriterFunc(func(context.Context, string, string) (string, error) {
		called = true
		return "", nil
	}))
	res := r.Ensure(context.Background(), "```mermaid\nflowchart TB\n  A --> B\n```", nil)
	tester.Eq(t, res.Text, "flowchart TB\n  A --> B")
	tester.False(t, res.Degraded)
	tester.False(t, res.Repaired)
	tester.False(t, called, "valid diagram must not be rewritten")
}

func TestEnsure_RepairsWithRewriter(t *testing.T) {
	var gotReason string
	r := NewRepairer(rewriterFunc(func(_ context.Context, d, reason string) (string, error) {
		gotReason = reason
		return "flowchart LR\n  " + strings.TrimSpace(d), nil
	}))
	res := r.Ensure(context.Background(), "A --> B", func() string { return "unused" })
	tester.True(t, res.Repaired)
	tester.False(t, res.Degraded)
	tester.True(t, Validate(res.Text).Valid)
	tester.Contains(t, gotReason, "header", "reason is passed to rewriter")
}

func TestEnsure_FallsBackWhenRepairFails(t *testing.T) {
	fallback := func() string {
		return Synthesize([]Node{{ID: "db", Label: "Database"}}, nil)
	}
	for name, rw := range map[string]Rewriter{
		"error":   rewriterFunc(func(context.Context, string, string) (string, error) { return "", errors.New("down") }),
		"invalid": rewriterFunc(func(context.Context, string, string) (string, error) { return "still broken", nil }),
		"none":    nil,
	} {
		res := NewRepairer(rw).Ensure(context.Background(), "not a diagram", fallback)
		tester.True(t, res.Degraded, name)
		tester.True(t, Validate(res.Text).Valid, name)
		tester.Contains(t, res.Text, "db[\"Database\"]", name)
	}
}

func TestEnsure_InvalidFallbackUsesMinimal(t *testing.T) {
	res := NewRepairer(nil).Ensure(context.Background(), "", func() string { return "oops" })
	tester.True(t, res.Degraded)
	tester.Eq(t, res.Text, MinimalFallback)
}

func TestSynthesize(t *testing.T) {
	out := Synthesize(
		[]Node{{ID: "auth", Label: "Auth [Firebase]"}, {ID: "database", Label: "Cloud SQL (PostgreSQL)"}, {ID: "2fa", Label: ""}, {ID: "end"}},
		[]Edge{{From: "auth", To: "database"}, {From: "auth", To: "missing"}, {From: "auth", To: "database"}, {From: "2fa", To: "auth", Label: "uses"}},
	)
	tester.True(t, Validate(out).Valid, out)
	tester.Contains(t, out, `auth["Auth (Firebase)"]`, out)
	tester.Contains(t, out, `n_2fa["2fa"]`, out)
	tester.Contains(t, out, `n_end["end"]`, out)
	tester.Eq(t, strings.Count(out, "auth --> database"), 1)
	tester.Contains(t, out, "n_2fa -->|uses| auth", out)
	tester.False(t, strings.Contains(out, "missing"))
	tester.Eq(t, Synthesize(nil, nil), MinimalFallback)
}

func TestSynthesize_KeepsCollidingIDsApart(t *testing.T) {
	out := Synthesize(
		[]Node{{ID: "api-gateway", Label: "Gateway"}, {ID: "api_gateway", Label: "Gateway Config"}, {ID: "api gateway", Label: "Edge"}, {ID: "api-gateway", Label: "Dup"}},
		[]Edge{{From: "api_gateway", To: "api-gateway"}, {From: "api gateway", To: "api_gateway"}},
	)
	tester.True(t, Validate(out).Valid, out)
	tester.Contains(t, out, `api_gateway["Gateway"]`, out)
	tester.Contains(t, out, `api_gateway_2["Gateway Config"]`, out)
	tester.Contains(t, out, `api_gateway_3["Edge"]`, out)
	tester.False(t, strings.Contains(out, "Dup"), out)
	tester.Contains(t, out, "api_gateway_2 --> api_gateway\n", out)
	tester.Contains(t, out, "api_gateway_3 --> api_gateway_2\n", out)
}

func TestValidate_ClipKeepsRunesWhole(t *testing.T) {
	line := strings.Repeat("a", 59) + "é" + strings.Repeat("b", 10)
	got := clip(line)
	tester.True(t, utf8.ValidString(got), got)
	tester.Eq(t, got, strings.Repeat("a", 59)+"...")
	tester.Eq(t, clip("short"), "short")
}

func TestFromTechStack_Deterministic(t *testing.T) {
	stack := map[string]any{"frontend": "Next.js", "database": "PostgreSQL", "cache": map[string]any{"k": "v"}}
	a, b := FromTechStack(stack), FromTechStack(stack)
	tester.Eq(t, a, b)
	tester.True(t, Validate(a).Valid)
	tester.True(t, strings.Index(a, "ts_cache") < strings.Index(a, "ts_database"))
	tester.Contains(t, a, `ts_frontend["frontend: Next.js"]`, a)
}
