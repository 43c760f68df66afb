package llm

import "context"

// Phases tag each call so logging and the fake provider can tell them apart.
const (
	PhaseDiscovery     = "discovery"
	PhaseRefinement    = "refinement"
	PhaseDeepDive      = "deep_dive"
	PhaseDiagram       = "diagram"
	PhaseDiagramRepair = "diagram_repair"
	PhaseBlueprint     = "blueprint"
)

type ctxKeyPhase struct{}
type ctxKeySubject struct{}

func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}

// WithSubject records what a call is about (a component name, a session id)
// for log lines.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeySubject{}, subject)
}

func SubjectFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeySubject{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
