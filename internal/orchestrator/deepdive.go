package orchestrator

import (
	"context"
	"log"
	"sync"

	"archie/internal/archive"
	"archie/internal/conversation"
	"archie/internal/diagram"
	"archie/internal/llm"
	"archie/internal/llmclient"
	"archie/internal/util/jsonutil"
)

// Stream-level statuses, in addition to the per-component ones.
const (
	StatusAllComplete conversation.Status = "all_complete"
	StatusError       conversation.Status = "error"
)

// ProgressEvent is one deep-dive progress update. The final event of a
// stream has Status all_complete, or error when the session could not be
// finalised.
type ProgressEvent struct {
	ComponentID string              `json:"componentId,omitempty"`
	Component   string              `json:"component,omitempty"`
	Status      conversation.Status `json:"status"`
	Error       string              `json:"error,omitempty"`
}

// DiagramView is what the caller sees of an approved session.
type DiagramView struct {
	SessionID        string                                  `json:"sessionId"`
	Phase            conversation.Phase                      `json:"phase"`
	Components       []conversation.Component                `json:"components"`
	ComponentDetails map[string]conversation.ComponentDetail `json:"componentDetails"`
	DeepDiveProgress map[string]conversation.Status          `json:"deepDiveProgress"`
	Diagram          *conversation.Diagram                   `json:"diagram,omitempty"`
}

func viewOf(s *conversation.Session) *DiagramView {
	return &DiagramView{
		SessionID:        s.ID,
		Phase:            s.Phase,
		Components:       s.ApprovedComponents,
		ComponentDetails: s.ComponentDetails,
		DeepDiveProgress: s.DeepDiveProgress,
		Diagram:          s.Diagram,
	}
}

// GetDiagram returns the approved components with whatever details have
// resolved so far.
func (o *Orchestrator) GetDiagram(ctx context.Context, id string) (*DiagramView, error) {
	s, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Phase.Approved() {
		return nil, conversation.Errorf(conversation.KindInvalidPhase, "components have not been approved")
	}
	return viewOf(s), nil
}

func (o *Orchestrator) GetComponentDetail(ctx context.Context, id, componentID string) (*conversation.ComponentDetail, error) {
	s, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d, ok := s.ComponentDetails[componentID]
	if !ok {
		return nil, conversation.Errorf(conversation.KindNotFound, "Component details not found")
	}
	return &d, nil
}

// StreamDeepDive starts the deep dive for an approved session and returns
// its progress stream. The channel is closed after the final event. The
// work is detached from ctx so the session always settles; a finished
// session replays its stored statuses.
func (o *Orchestrator) StreamDeepDive(ctx context.Context, id string) (<-chan ProgressEvent, error) {
	o.mu.Lock()
	if o.running[id] {
		o.mu.Unlock()
		return nil, conversation.Errorf(conversation.KindInvalidPhase, "deep dive for session %s is already running", id)
	}
	o.running[id] = true
	o.mu.Unlock()
	release := func() {
		o.mu.Lock()
		delete(o.running, id)
		o.mu.Unlock()
	}

	// Claim through the store so the phase check sees the latest write,
	// never a snapshot taken before another run settled.
	settled := false
	s, err := o.store.Update(ctx, id, func(s *conversation.Session) error {
		if !s.Phase.Approved() {
			return conversation.Errorf(conversation.KindInvalidPhase, "session %s has not been approved", id)
		}
		settled = s.Phase == conversation.PhaseDiagramDisplay
		return nil
	})
	if err != nil {
		release()
		return nil, err
	}
	if settled {
		release()
		return replay(s), nil
	}

	events := make(chan ProgressEvent, 2*len(s.ApprovedComponents)+1)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(events)
		defer release()
		o.runDeepDive(context.WithoutCancel(ctx), s, events)
	}()
	return events, nil
}

func replay(s *conversation.Session) <-chan ProgressEvent {
	events := make(chan ProgressEvent, len(s.ApprovedComponents)+1)
	for _, c := range s.ApprovedComponents {
		events <- ProgressEvent{ComponentID: c.ID, Component: c.Name, Status: s.DeepDiveProgress[c.ID]}
	}
	events <- ProgressEvent{Status: StatusAllComplete}
	close(events)
	return events
}

// runDeepDive sends every event for one run; the caller closes events.
func (o *Orchestrator) runDeepDive(ctx context.Context, s *conversation.Session, events chan<- ProgressEvent) {
	peers := make([]string, len(s.ApprovedComponents))
	for i, c := range s.ApprovedComponents {
		peers[i] = c.ID
	}

	var wg sync.WaitGroup
	for _, c := range s.ApprovedComponents {
		if _, done := s.ComponentDetails[c.ID]; done {
			events <- ProgressEvent{ComponentID: c.ID, Component: c.Name, Status: conversation.StatusComplete}
			continue
		}
		wg.Add(1)
		go func(c conversation.Component) {
			defer wg.Done()
			_ = o.update(ctx, s.ID, func(s *conversation.Session) error { return s.SetProgress(c.ID, conversation.StatusFetching) })
			events <- ProgressEvent{ComponentID: c.ID, Component: c.Name, Status: conversation.StatusFetching}

			detail, err := o.fetchDetail(ctx, s.FormInputs, c, peers)
			if err != nil {
				log.Printf("orchestrator: deep dive %s/%s failed: %v", s.ID, c.ID, err)
				_ = o.update(ctx, s.ID, func(s *conversation.Session) error { return s.SetProgress(c.ID, conversation.StatusFailed) })
				events <- ProgressEvent{ComponentID: c.ID, Component: c.Name, Status: conversation.StatusFailed, Error: conversation.DetailOf(err)}
				return
			}
			if err := o.update(ctx, s.ID, func(s *conversation.Session) error { return s.SetDetail(c.ID, detail) }); err != nil {
				events <- ProgressEvent{ComponentID: c.ID, Component: c.Name, Status: conversation.StatusFailed, Error: conversation.DetailOf(err)}
				return
			}
			events <- ProgressEvent{ComponentID: c.ID, Component: c.Name, Status: conversation.StatusComplete}
		}(c)
	}
	wg.Wait()

	current, err := o.store.Get(ctx, s.ID)
	if err != nil {
		events <- ProgressEvent{Status: StatusError, Error: conversation.DetailOf(err)}
		return
	}
	d := o.buildDiagram(ctx, current)
	final, err := o.store.Update(ctx, s.ID, func(s *conversation.Session) error {
		for _, c := range s.ApprovedComponents {
			if !s.DeepDiveProgress[c.ID].Terminal() {
				if err := s.SetProgress(c.ID, conversation.StatusFailed); err != nil {
					return err
				}
			}
		}
		s.Diagram = &d
		s.Phase = conversation.PhaseDiagramDisplay
		return nil
	})
	if err != nil {
		log.Printf("orchestrator: finalise deep dive %s: %v", s.ID, err)
		events <- ProgressEvent{Status: StatusError, Error: conversation.DetailOf(err)}
		return
	}
	if err := archive.SaveJSON(ctx, o.archive, final.ID, archive.BlueprintFile, viewOf(final)); err != nil {
		log.Printf("orchestrator: archive %s: %v", final.ID, err)
	}
	events <- ProgressEvent{Status: StatusAllComplete}
}

// update logs store failures; a lost progress write does not stop the
// deep dive.
func (o *Orchestrator) update(ctx context.Context, id string, fn func(*conversation.Session) error) error {
	_, err := o.store.Update(ctx, id, fn)
	if err != nil {
		log.Printf("orchestrator: update session %s: %v", id, err)
	}
	return err
}

func (o *Orchestrator) fetchDetail(ctx context.Context, form conversation.FormInputs, c conversation.Component, peers []string) (conversation.ComponentDetail, error) {
	text, err := o.prompts.DeepDive(c, form, peers)
	if err != nil {
		return conversation.ComponentDetail{}, conversation.Wrap(conversation.KindInternal, err, "build deep-dive prompt")
	}
	ctx = llm.WithSubject(llm.WithPhase(ctx, llm.PhaseDeepDive), c.ID)
	resp, err := o.gw.Invoke(ctx, callFor(form, text, llmclient.ModelLevelHigh))
	if err != nil {
		return conversation.ComponentDetail{}, providerError(err)
	}
	p, err := jsonutil.Extract(resp.Text)
	if err != nil {
		return conversation.ComponentDetail{}, conversation.Wrap(conversation.KindUnparseableResponse, err, err.Error())
	}
	return conversation.DetailFromValue(p.Value)
}

// buildDiagram asks a provider for the flowchart and runs it through the
// validator chain. The fallback is drawn from components and dependencies.
func (o *Orchestrator) buildDiagram(ctx context.Context, s *conversation.Session) conversation.Diagram {
	var raw string
	if text, err := o.prompts.Diagram(s.ApprovedComponents, s.ComponentDetails); err != nil {
		log.Printf("orchestrator: diagram prompt for %s: %v", s.ID, err)
	} else if resp, err := o.gw.Invoke(llm.WithPhase(ctx, llm.PhaseDiagram), callFor(s.FormInputs, text, llmclient.ModelLevelHigh)); err != nil {
		log.Printf("orchestrator: diagram call for %s: %v", s.ID, err)
	} else {
		raw = diagramText(resp.Text)
	}

	res := o.repairer(s.FormInputs).Ensure(ctx, raw, func() string { return sessionFallback(s) })
	if res.Degraded {
		log.Printf("orchestrator: diagram for %s degraded: %s", s.ID, res.Reason)
	}
	return conversation.Diagram{Text: res.Text, Degraded: res.Degraded, Repaired: res.Repaired, Reason: res.Reason}
}

func sessionFallback(s *conversation.Session) string {
	nodes := make([]diagram.Node, 0, len(s.ApprovedComponents))
	var edges []diagram.Edge
	for _, c := range s.ApprovedComponents {
		nodes = append(nodes, diagram.Node{ID: c.ID, Label: c.Name + ": " + c.Value})
		for _, dep := range s.ComponentDetails[c.ID].Dependencies {
			edges = append(edges, diagram.Edge{From: c.ID, To: dep})
		}
	}
	return diagram.Synthesize(nodes, edges)
}

func (o *Orchestrator) repairer(form conversation.FormInputs) *diagram.Repairer {
	return diagram.NewRepairer(modelRewriter{o: o, form: form})
}

// modelRewriter sends repair prompts to the fast model tier.
type modelRewriter struct {
	o    *Orchestrator
	form conversation.FormInputs
}

func (r modelRewriter) Rewrite(ctx context.Context, d, reason string) (string, error) {
	text, err := r.o.prompts.DiagramRepair(d, reason)
	if err != nil {
		return "", err
	}
	resp, err := r.o.gw.Invoke(llm.WithPhase(ctx, llm.PhaseDiagramRepair), callFor(r.form, text, llmclient.ModelLevelLow))
	if err != nil {
		return "", err
	}
	return diagramText(resp.Text), nil
}

// diagramText unwraps {"mermaid_diagram": "..."} answers; anything else is
// taken as the diagram source itself.
func diagramText(text string) string {
	p, err := jsonutil.Extract(text)
	if err != nil {
		return text
	}
	if obj, ok := p.Object(); ok {
		for _, key := range []string{"mermaid_diagram", "diagram", "mermaid"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return text
}
