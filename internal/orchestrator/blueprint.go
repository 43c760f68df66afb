package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"archie/internal/arbiter"
	"archie/internal/conversation"
	"archie/internal/diagram"
	"archie/internal/llm"
	"archie/internal/llmclient"
	"archie/internal/util/jsonutil"
)

// BlueprintMeta describes how a blueprint was produced.
type BlueprintMeta struct {
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	Score           int    `json:"score"`
	Candidates      int    `json:"candidates"`
	DegradedDiagram bool   `json:"degradedDiagram"`
	RepairedDiagram bool   `json:"repairedDiagram,omitempty"`
}

// Blueprint is the provider's document with a validated mermaid_diagram.
// It encodes as the document plus a "_meta" key.
type Blueprint struct {
	Sections map[string]any
	Meta     BlueprintMeta
}

func (b Blueprint) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Sections)+1)
	for k, v := range b.Sections {
		out[k] = v
	}
	out["_meta"] = b.Meta
	return json.Marshal(out)
}

// GenerateBlueprint produces a complete architecture document in one call.
// Two or more requested providers are fanned out and arbitrated.
func (o *Orchestrator) GenerateBlueprint(ctx context.Context, form conversation.FormInputs) (*Blueprint, error) {
	text, err := o.prompts.Blueprint(form)
	if err != nil {
		return nil, err
	}
	ctx = llm.WithPhase(ctx, llm.PhaseBlueprint)
	call := callFor(form, text, llmclient.ModelLevelHigh)
	rubric := arbiter.BlueprintRubric{W: o.weights.Blueprint}

	var (
		winner arbiter.Scored
		n      = 1
	)
	if targets := o.gw.ParallelTargets(call); len(targets) >= 2 {
		winner, n, err = o.arbitrateBlueprint(ctx, call, targets, rubric)
		if err != nil {
			return nil, err
		}
	} else {
		resp, err := o.gw.Invoke(ctx, call)
		if err != nil {
			return nil, providerError(err)
		}
		doc, err := parseBlueprint(resp.Text)
		if err != nil {
			return nil, err
		}
		c := arbiter.Candidate{Provider: resp.Provider, Model: resp.Model, Value: doc}
		winner = arbiter.Scored{Candidate: c, Score: rubric.Score(doc)}
	}

	doc := winner.Value.(map[string]any)
	raw, _ := doc["mermaid_diagram"].(string)
	stack, _ := doc["tech_stack"].(map[string]any)
	res := o.repairer(form).Ensure(ctx, raw, func() string { return diagram.FromTechStack(stack) })
	doc["mermaid_diagram"] = res.Text
	if res.Degraded {
		log.Printf("orchestrator: blueprint diagram degraded: %s", res.Reason)
	}

	return &Blueprint{
		Sections: doc,
		Meta: BlueprintMeta{
			Provider:        winner.Provider,
			Model:           winner.Model,
			Score:           winner.Score,
			Candidates:      n,
			DegradedDiagram: res.Degraded,
			RepairedDiagram: res.Repaired,
		},
	}, nil
}

func (o *Orchestrator) arbitrateBlueprint(ctx context.Context, call llm.Call, targets []string, rubric arbiter.Rubric) (arbiter.Scored, int, error) {
	var (
		cands []arbiter.Candidate
		errs  []error
	)
	for _, out := range o.gw.InvokeAll(ctx, call, targets) {
		if !out.OK() {
			errs = append(errs, fmt.Errorf("%s: %w", out.Provider, out.Err))
			continue
		}
		doc, err := parseBlueprint(out.Text)
		if err != nil {
			log.Printf("orchestrator: discarding %s blueprint: %v", out.Provider, err)
			errs = append(errs, fmt.Errorf("%s: %w", out.Provider, err))
			continue
		}
		cands = append(cands, arbiter.Candidate{Provider: out.Provider, Model: out.Model, Value: doc})
	}
	if err := ctx.Err(); err != nil {
		return arbiter.Scored{}, 0, err
	}
	if len(cands) == 0 {
		return arbiter.Scored{}, 0, conversation.Wrap(conversation.KindAllProvidersFailed, errors.Join(errs...), "no provider returned a usable blueprint")
	}
	winner, ranked, err := arbiter.Select(rubric, cands)
	if err != nil {
		return arbiter.Scored{}, 0, conversation.Wrap(conversation.KindInternal, err, "arbitrate blueprints")
	}
	for _, r := range ranked {
		log.Printf("orchestrator: blueprint %s/%s scored %d", r.Provider, r.Model, r.Score)
	}
	return winner, len(cands), nil
}

func parseBlueprint(text string) (map[string]any, error) {
	p, err := jsonutil.Extract(text)
	if err != nil {
		return nil, conversation.Wrap(conversation.KindUnparseableResponse, err, err.Error())
	}
	if p.Kind != jsonutil.KindObject {
		return nil, conversation.Errorf(conversation.KindUnparseableResponse, "blueprint is %s, not an object", p.Kind)
	}
	var doc map[string]any
	if err := p.Decode(&doc); err != nil {
		return nil, conversation.Wrap(conversation.KindUnparseableResponse, err, "decode blueprint")
	}
	return doc, nil
}
