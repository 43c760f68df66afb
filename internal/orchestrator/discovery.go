package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"archie/internal/arbiter"
	"archie/internal/conversation"
	"archie/internal/llm"
	"archie/internal/llmclient"
	"archie/internal/util/jsonutil"
)

const (
	refinementAck   = "I've updated the architecture based on your request."
	refinementReply = refinementAck + " Does this look good? You can make more changes or click \"Approve & Continue\"."
	approvalReply   = "Great! Now fetching detailed configurations for each component..."
)

func discoveryReply(n int, idea string) string {
	return fmt.Sprintf("I've identified %d core components for your %s. Review them below. "+
		"You can ask me to make changes (e.g., \"Use AWS instead of GCP\") or click \"Approve & Continue\" when ready.", n, idea)
}

type CreateResult struct {
	SessionID  string                   `json:"sessionId"`
	Phase      conversation.Phase       `json:"phase"`
	Components []conversation.Component `json:"components"`
	Message    string                   `json:"message"`
	Provenance *conversation.Provenance `json:"provenance,omitempty"`
}

type MessageResult struct {
	Phase            conversation.Phase       `json:"phase"`
	Components       []conversation.Component `json:"components"`
	Message          string                   `json:"message"`
	RequiresApproval bool                     `json:"requiresApproval"`
	Provenance       *conversation.Provenance `json:"provenance,omitempty"`
}

type ApproveResult struct {
	Phase   conversation.Phase `json:"phase"`
	Message string             `json:"message"`
}

// CreateSession runs discovery for the form and stores the new session. No
// session is stored when discovery fails.
func (o *Orchestrator) CreateSession(ctx context.Context, form conversation.FormInputs) (*CreateResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	text, err := o.prompts.Discovery(form)
	if err != nil {
		return nil, conversation.Wrap(conversation.KindInternal, err, "build discovery prompt")
	}
	comps, prov, err := o.generateComponents(llm.WithPhase(ctx, llm.PhaseDiscovery), form, text)
	if err != nil {
		return nil, err
	}

	now := o.now()
	s := conversation.NewSession(o.newID(), form, now)
	if err := s.SetComponents(comps, conversation.PhaseDiscovery); err != nil {
		return nil, err
	}
	s.Provenance = prov
	s.AddMessage(conversation.RoleAssistant, fmt.Sprintf("I've identified %d core components for your system.", len(comps)), now)
	if err := o.store.Create(ctx, s); err != nil {
		return nil, conversation.Wrap(conversation.KindInternal, err, "store session")
	}
	log.Printf("orchestrator: session %s created with %d components via %s", s.ID, len(comps), prov.Provider)

	return &CreateResult{
		SessionID:  s.ID,
		Phase:      s.Phase,
		Components: s.Components,
		Message:    discoveryReply(len(comps), form.Idea),
		Provenance: prov,
	}, nil
}

// SendMessage applies a free-text refinement. The component list is
// replaced wholesale by the provider's answer.
func (o *Orchestrator) SendMessage(ctx context.Context, id, message string) (*MessageResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, conversation.Errorf(conversation.KindValidation, "message is required")
	}
	s, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Phase.Approved() {
		return nil, conversation.Errorf(conversation.KindInvalidPhase, "components are already approved; refinement is closed")
	}
	text, err := o.prompts.Refinement(s.Components, message)
	if err != nil {
		return nil, conversation.Wrap(conversation.KindInternal, err, "build refinement prompt")
	}
	comps, prov, err := o.generateComponents(llm.WithPhase(ctx, llm.PhaseRefinement), s.FormInputs, text)
	if err != nil {
		return nil, err
	}

	updated, err := o.store.Update(ctx, id, func(s *conversation.Session) error {
		now := o.now()
		if err := s.SetComponents(comps, conversation.PhaseRefinement); err != nil {
			return err
		}
		s.Provenance = prov
		s.AddMessage(conversation.RoleUser, message, now)
		s.AddMessage(conversation.RoleAssistant, refinementAck, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &MessageResult{
		Phase:            updated.Phase,
		Components:       updated.Components,
		Message:          refinementReply,
		RequiresApproval: true,
		Provenance:       prov,
	}, nil
}

// Approve snapshots the current components and enters the deep dive.
func (o *Orchestrator) Approve(ctx context.Context, id string) (*ApproveResult, error) {
	updated, err := o.store.Update(ctx, id, func(s *conversation.Session) error {
		now := o.now()
		if err := s.Approve(now); err != nil {
			return err
		}
		s.AddMessage(conversation.RoleAssistant, approvalReply, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("orchestrator: session %s approved %d components", id, len(updated.ApprovedComponents))
	return &ApproveResult{Phase: updated.Phase, Message: approvalReply}, nil
}

// generateComponents fans out to every requested provider when two or more
// are enabled and arbitrates; otherwise it uses sequential fallback.
func (o *Orchestrator) generateComponents(ctx context.Context, form conversation.FormInputs, text string) ([]conversation.Component, *conversation.Provenance, error) {
	call := callFor(form, text, llmclient.ModelLevelHigh)
	if targets := o.gw.ParallelTargets(call); len(targets) >= 2 {
		return o.arbitrateComponents(ctx, call, targets)
	}
	resp, err := o.gw.Invoke(ctx, call)
	if err != nil {
		return nil, nil, providerError(err)
	}
	comps, _, err := parseComponents(resp.Text)
	if err != nil {
		return nil, nil, err
	}
	return comps, &conversation.Provenance{Provider: resp.Provider, Model: resp.Model}, nil
}

func (o *Orchestrator) arbitrateComponents(ctx context.Context, call llm.Call, targets []string) ([]conversation.Component, *conversation.Provenance, error) {
	outcomes := o.gw.InvokeAll(ctx, call, targets)
	var (
		cands  []arbiter.Candidate
		parsed = map[string][]conversation.Component{}
		errs   []error
	)
	for _, out := range outcomes {
		if !out.OK() {
			errs = append(errs, fmt.Errorf("%s: %w", out.Provider, out.Err))
			continue
		}
		comps, raw, err := parseComponents(out.Text)
		if err != nil {
			log.Printf("orchestrator: discarding %s response: %v", out.Provider, err)
			errs = append(errs, fmt.Errorf("%s: %w", out.Provider, err))
			continue
		}
		parsed[out.Provider] = comps
		cands = append(cands, arbiter.Candidate{Provider: out.Provider, Model: out.Model, Value: raw})
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(cands) == 0 {
		return nil, nil, conversation.Wrap(conversation.KindAllProvidersFailed, errors.Join(errs...), "no provider returned a usable component list")
	}
	winner, ranked, err := arbiter.Select(arbiter.ComponentRubric{W: o.weights.Components}, cands)
	if err != nil {
		return nil, nil, conversation.Wrap(conversation.KindInternal, err, "arbitrate components")
	}
	for _, r := range ranked {
		log.Printf("orchestrator: candidate %s/%s scored %d", r.Provider, r.Model, r.Score)
	}
	return parsed[winner.Provider], &conversation.Provenance{
		Provider:   winner.Provider,
		Model:      winner.Model,
		Score:      winner.Score,
		Candidates: len(cands),
	}, nil
}

// parseComponents returns the normalised components and the raw parsed
// value for scoring.
func parseComponents(text string) ([]conversation.Component, any, error) {
	p, err := jsonutil.Extract(text)
	if err != nil {
		return nil, nil, conversation.Wrap(conversation.KindUnparseableResponse, err, err.Error())
	}
	comps, err := conversation.ComponentsFromValue(p.Value)
	if err != nil {
		return nil, nil, err
	}
	return comps, p.Value, nil
}
