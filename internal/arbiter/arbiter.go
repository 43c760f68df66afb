// Package arbiter scores candidate model outputs and picks a winner when
// several providers answer the same prompt.
package arbiter

import (
	"errors"
	"sort"
)

var ErrNoCandidates = errors.New("arbiter: no candidates")

// Rubric is a deterministic point-additive score over a parsed JSON value.
type Rubric interface {
	Score(v any) int
}

type RubricFunc func(v any) int

func (f RubricFunc) Score(v any) int { return f(v) }

// Candidate is one provider's parsed output.
type Candidate struct {
	Provider string
	Model    string
	Value    any
}

type Scored struct {
	Candidate
	Score int
}

// Select scores every candidate and returns the winner plus the full
// ranking. Candidates must be in submission order: equal scores keep the
// earlier one.
func Select(r Rubric, cands []Candidate) (Scored, []Scored, error) {
	if len(cands) == 0 {
		return Scored{}, nil, ErrNoCandidates
	}
	ranked := make([]Scored, len(cands))
	for i, c := range cands {
		ranked[i] = Scored{Candidate: c, Score: r.Score(c.Value)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked[0], ranked, nil
}
