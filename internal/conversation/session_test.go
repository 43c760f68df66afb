package conversation

import (
	"errors"
	"testing"
	"time"

	"archie/internal/tester"
)

func validForm() FormInputs {
	return FormInputs{
		Idea: "recipe sharing app", UserCount: "1000", Compliance: "None",
		SkillLevel: "beginner", Timeline: "1 month", CloudPlatform: "No Preference",
	}
}

func TestFormInputs_Validate(t *testing.T) {
	tester.NoErr(t, validForm().Validate())

	f := validForm()
	f.Idea = "  "
	f.Timeline = ""
	err := f.Validate()
	tester.ErrIs(t, err, ErrValidation, "want validation error")
	tester.Eq(t, DetailOf(err), "all required fields must be provided; missing: idea, timeline")
}

func TestSession_ApproveSnapshotsOnce(t *testing.T) {
	now := time.Unix(100, 0)
	s := NewSession("s1", validForm(), now)
	err := s.Approve(now)
	tester.ErrIs(t, err, ErrInvalidPhase, "cannot approve without components")

	tester.NoErr(t, s.SetComponents([]Component{{ID: "db", Name: "DB"}}, PhaseDiscovery))
	tester.NoErr(t, s.Approve(now))
	tester.Eq(t, s.Phase, PhaseDeepDive)
	tester.Eq(t, s.ApprovedComponents, []Component{{ID: "db", Name: "DB"}})

	// The snapshot does not alias the working list.
	s.Components[0].Name = "mutated"
	tester.Eq(t, s.ApprovedComponents[0].Name, "DB")

	tester.ErrIs(t, s.Approve(now), ErrInvalidPhase, "second approval rejected")
	tester.ErrIs(t, s.SetComponents(nil, PhaseRefinement), ErrInvalidPhase, "components frozen")
}

func TestSession_DetailsOnlyForApproved(t *testing.T) {
	now := time.Unix(100, 0)
	s := NewSession("s1", validForm(), now)
	tester.NoErr(t, s.SetComponents([]Component{{ID: "db"}, {ID: "auth"}}, PhaseDiscovery))
	tester.NoErr(t, s.Approve(now))

	tester.ErrIs(t, s.SetDetail("cache", ComponentDetail{}), ErrNotFound)
	tester.NoErr(t, s.SetProgress("auth", StatusFetching))
	tester.False(t, s.Settled())
	tester.NoErr(t, s.SetDetail("db", ComponentDetail{EstimatedCost: "$5"}))
	tester.NoErr(t, s.SetProgress("auth", StatusFailed))
	tester.True(t, s.Settled())
	tester.Eq(t, s.DeepDiveProgress["db"], StatusComplete)
	_, hasAuth := s.ComponentDetails["auth"]
	tester.False(t, hasAuth)
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := NewSession("s1", validForm(), time.Unix(0, 0))
	s.FormInputs.ProviderModels = map[string]string{"gemini": "m"}
	tester.NoErr(t, s.SetComponents([]Component{{ID: "db"}}, PhaseDiscovery))
	tester.NoErr(t, s.Approve(time.Unix(1, 0)))
	tester.NoErr(t, s.SetDetail("db", ComponentDetail{Dependencies: []string{"auth"}}))

	c := s.Clone()
	c.FormInputs.ProviderModels["gemini"] = "other"
	c.ComponentDetails["db"].Dependencies[0] = "x"
	c.DeepDiveProgress["db"] = StatusFailed
	c.AddMessage(RoleUser, "hi", time.Unix(2, 0))

	tester.Eq(t, s.FormInputs.ProviderModels["gemini"], "m")
	tester.Eq(t, s.ComponentDetails["db"].Dependencies[0], "auth")
	tester.Eq(t, s.DeepDiveProgress["db"], StatusComplete)
	tester.Eq(t, len(s.Messages), 0)
}

func TestKindOf(t *testing.T) {
	tester.Eq(t, KindOf(SessionNotFound("x")), KindSessionNotFound)
	tester.Eq(t, KindOf(errors.New("boom")), KindInternal)
	wrapped := Wrap(KindAllProvidersFailed, errors.New("quota"), "every provider failed")
	tester.ErrIs(t, wrapped, ErrAllProvidersFailed)
	tester.False(t, errors.Is(wrapped, ErrValidation))
	tester.Eq(t, DetailOf(wrapped), "every provider failed")
}
