package conversation

import (
	"time"
)

// Session is the orchestration state of one conversation.
type Session struct {
	ID                 string                     `json:"id"`
	Phase              Phase                      `json:"phase"`
	FormInputs         FormInputs                 `json:"formInputs"`
	Messages           []Message                  `json:"messages"`
	Components         []Component                `json:"components"`
	ApprovedComponents []Component                `json:"approvedComponents"`
	ApprovedAt         *time.Time                 `json:"approvedAt,omitempty"`
	ComponentDetails   map[string]ComponentDetail `json:"componentDetails"`
	DeepDiveProgress   map[string]Status          `json:"deepDiveProgress"`
	Diagram            *Diagram                   `json:"diagram,omitempty"`
	Provenance         *Provenance                `json:"provenance,omitempty"`
	CreatedAt          time.Time                  `json:"createdAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
	Version            int64                      `json:"version"`
}

func NewSession(id string, form FormInputs, now time.Time) *Session {
	return &Session{
		ID:                 id,
		Phase:              PhaseDiscovery,
		FormInputs:         form.clone(),
		Messages:           []Message{},
		Components:         []Component{},
		ApprovedComponents: []Component{},
		ComponentDetails:   map[string]ComponentDetail{},
		DeepDiveProgress:   map[string]Status{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.FormInputs = s.FormInputs.clone()
	out.Messages = append(make([]Message, 0, len(s.Messages)), s.Messages...)
	out.Components = append(make([]Component, 0, len(s.Components)), s.Components...)
	out.ApprovedComponents = append(make([]Component, 0, len(s.ApprovedComponents)), s.ApprovedComponents...)
	if s.ApprovedAt != nil {
		t := *s.ApprovedAt
		out.ApprovedAt = &t
	}
	out.ComponentDetails = make(map[string]ComponentDetail, len(s.ComponentDetails))
	for k, v := range s.ComponentDetails {
		out.ComponentDetails[k] = v.clone()
	}
	out.DeepDiveProgress = make(map[string]Status, len(s.DeepDiveProgress))
	for k, v := range s.DeepDiveProgress {
		out.DeepDiveProgress[k] = v
	}
	if s.Diagram != nil {
		d := *s.Diagram
		out.Diagram = &d
	}
	if s.Provenance != nil {
		p := *s.Provenance
		out.Provenance = &p
	}
	return &out
}

// AddMessage appends to the log. Earlier entries are never touched.
func (s *Session) AddMessage(role Role, content string, at time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: at})
}

// SetComponents replaces the component list wholesale.
func (s *Session) SetComponents(components []Component, phase Phase) error {
	if s.Phase.Approved() {
		return Errorf(KindInvalidPhase, "components are frozen after approval (phase %s)", s.Phase)
	}
	s.Components = append(make([]Component, 0, len(components)), components...)
	s.Phase = phase
	return nil
}

// Approve snapshots the current components and enters DEEP_DIVE. It
// succeeds once per session.
func (s *Session) Approve(at time.Time) error {
	if s.Phase.Approved() || s.ApprovedAt != nil {
		return Errorf(KindInvalidPhase, "components were already approved")
	}
	if len(s.Components) == 0 {
		return Errorf(KindInvalidPhase, "no components have been discovered yet")
	}
	s.ApprovedComponents = append(make([]Component, 0, len(s.Components)), s.Components...)
	s.ApprovedAt = &at
	s.Phase = PhaseDeepDive
	return nil
}

func (s *Session) IsApproved(componentID string) bool {
	for _, c := range s.ApprovedComponents {
		if c.ID == componentID {
			return true
		}
	}
	return false
}

// SetProgress records a deep-dive status for an approved component.
func (s *Session) SetProgress(componentID string, st Status) error {
	if !s.IsApproved(componentID) {
		return Errorf(KindNotFound, "component %q is not approved", componentID)
	}
	if s.DeepDiveProgress == nil {
		s.DeepDiveProgress = map[string]Status{}
	}
	s.DeepDiveProgress[componentID] = st
	return nil
}

// SetDetail stores a successful deep-dive result and marks it complete.
func (s *Session) SetDetail(componentID string, d ComponentDetail) error {
	if !s.IsApproved(componentID) {
		return Errorf(KindNotFound, "component %q is not approved", componentID)
	}
	if s.ComponentDetails == nil {
		s.ComponentDetails = map[string]ComponentDetail{}
	}
	s.ComponentDetails[componentID] = d.clone()
	return s.SetProgress(componentID, StatusComplete)
}

// Settled reports whether every approved component has a terminal status.
func (s *Session) Settled() bool {
	for _, c := range s.ApprovedComponents {
		if !s.DeepDiveProgress[c.ID].Terminal() {
			return false
		}
	}
	return true
}
