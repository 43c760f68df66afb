package diagram

import (
	"context"
	"log"
	"strings"

	"archie/internal/util/jsonutil"
)

// Result is the final diagram and how it was obtained. Degraded means the
// deterministic fallback was used; it is not an error.
type Result struct {
	Text     string `json:"text"`
	Degraded bool   `json:"degraded"`
	Repaired bool   `json:"repaired"`
	Reason   string `json:"reason,omitempty"`
}

// Rewriter asks a model to fix a diagram given the validator's complaint.
type Rewriter interface {
	Rewrite(ctx context.Context, diagram, reason string) (string, error)
}

// Repairer runs accept, then AI rewrite, then deterministic fallback.
type Repairer struct {
	rw Rewriter
}

func NewRepairer(rw Rewriter) *Repairer {
	return &Repairer{rw: rw}
}

// Ensure always returns a valid diagram. fallback must be deterministic and
// must not call a model; it is only invoked when both earlier tiers fail.
func (r *Repairer) Ensure(ctx context.Context, text string, fallback func() string) Result {
	candidate := Normalize(jsonutil.StripCodeFence(text))
	v := Validate(candidate)
	if v.Valid {
		return Result{Text: candidate}
	}
	reason := v.Reason

	if r != nil && r.rw != nil && strings.TrimSpace(candidate) != "" {
		rewritten, err := r.rw.Rewrite(ctx, candidate, reason)
		if err != nil {
			log.Printf("diagram: repair call failed: %v", err)
		} else {
			fixed := Normalize(jsonutil.StripCodeFence(rewritten))
			rv := Validate(fixed)
			if rv.Valid {
				return Result{Text: fixed, Repaired: true, Reason: reason}
			}
			log.Printf("diagram: repaired diagram still invalid: %s", rv.Reason)
		}
	}

	fb := MinimalFallback
	if fallback != nil {
		if s := fallback(); Validate(s).Valid {
			fb = s
		}
	}
	return Result{Text: fb, Degraded: true, Reason: reason}
}
