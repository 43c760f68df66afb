package prompt

import (
	"strings"
	"testing"

	"archie/internal/conversation"
	"archie/internal/tester"
)

func form() conversation.FormInputs {
	return conversation.FormInputs{
		Idea:          "Recipe sharing app with photos",
		UserCount:     "10,000",
		Compliance:    "GDPR",
		SkillLevel:    "Intermediate",
		Timeline:      "3 months",
		CloudPlatform: "AWS",
	}
}

func TestRenderOrderAndEmptySections(t *testing.T) {
	out, err := Spec{
		Purpose: "p",
		Rules:   []string{"a", " ", "b"},
		OutputFields: []Field{
			{Name: "x", Type: "string", Required: true, Description: "d"},
			{Name: "y", Type: "int"},
		},
	}.Render()
	tester.NoErr(t, err)
	tester.Eq(t, out, "[PURPOSE]\np\n\n[OUTPUT]\n- x (string, required): d\n- y (int, optional)\n\n[RULES]\n- a\n- b\n")
}

func TestRenderRequiresPurpose(t *testing.T) {
	_, err := Spec{Background: "b"}.Render()
	tester.True(t, err != nil)
}

func TestDiscoveryIsDeterministic(t *testing.T) {
	b := New()
	p1, err := b.Discovery(form())
	tester.NoErr(t, err)
	p2, _ := b.Discovery(form())
	tester.Eq(t, p1, p2)
	tester.Contains(t, p1, "Recipe sharing app with photos")
	tester.Contains(t, p1, "CRITICAL: User prefers AWS. Prioritize AWS services.")
	tester.Contains(t, p1, "5-8")
}

func TestDiscoveryNoCloudPreference(t *testing.T) {
	f := form()
	f.CloudPlatform = "No Preference"
	p, err := New().Discovery(f)
	tester.NoErr(t, err)
	tester.False(t, strings.Contains(p, "CRITICAL: User prefers"))
}

func TestRefinementEmbedsCurrentListAndRequest(t *testing.T) {
	cur := []conversation.Component{{ID: "db", Name: "Database", Value: "Cloud SQL", Category: "database"}}
	p, err := New().Refinement(cur, "Use AWS instead of GCP")
	tester.NoErr(t, err)
	tester.Contains(t, p, `"value": "Cloud SQL"`)
	tester.Contains(t, p, `User request: "Use AWS instead of GCP"`)

	_, err = New().Refinement(cur, "  ")
	tester.True(t, err != nil)
}

func TestDeepDiveScopesPeersAndCompliance(t *testing.T) {
	c := conversation.Component{ID: "auth", Name: "Authentication", Value: "Cognito", Category: "authentication"}
	p, err := New().DeepDive(c, form(), []string{"auth", "database", "server"})
	tester.NoErr(t, err)
	tester.Contains(t, p, "You are configuring Cognito (Authentication) for a production system.")
	tester.Contains(t, p, "component ids: database, server.")
	tester.Contains(t, p, "must satisfy GDPR")

	f := form()
	f.Compliance = "None"
	p, err = New().DeepDive(c, f, nil)
	tester.NoErr(t, err)
	tester.False(t, strings.Contains(p, "must satisfy"))
	tester.Contains(t, p, "component ids: none.")
}

func TestDiagramListsDependencies(t *testing.T) {
	comps := []conversation.Component{
		{ID: "server", Value: "Cloud Run", Category: "server"},
		{ID: "database", Value: "Postgres", Category: "database"},
	}
	details := map[string]conversation.ComponentDetail{
		"server": {Dependencies: []string{"database", "auth"}},
	}
	p, err := New().Diagram(comps, details)
	tester.NoErr(t, err)
	tester.Contains(t, p, "- server: Cloud Run (server) -> depends on auth, database")
	tester.Contains(t, p, "- database: Postgres (database)\n")

	_, err = New().Diagram(nil, nil)
	tester.True(t, err != nil)
}

func TestDiagramRepairCarriesReason(t *testing.T) {
	p, err := New().DiagramRepair("graph XX\nA-->B", "missing flowchart header")
	tester.NoErr(t, err)
	tester.Contains(t, p, "Validation error: missing flowchart header")
	tester.Contains(t, p, "graph XX\nA-->B")
}

func TestBlueprintValidatesForm(t *testing.T) {
	_, err := New().Blueprint(conversation.FormInputs{Idea: "x"})
	tester.Eq(t, conversation.KindOf(err), conversation.KindValidation)

	p, err := New().Blueprint(form())
	tester.NoErr(t, err)
	for _, f := range BlueprintSections {
		tester.Contains(t, p, "- "+f.Name+" ", f.Name)
	}
}
