package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"archie/internal/llmclient"
)

// FakeProvider returns deterministic architecture payloads per phase for
// offline runs and tests.
type FakeProvider struct{}

func NewFakeProvider() *FakeProvider { return &FakeProvider{} }

func (f *FakeProvider) Name() string { return llmclient.ProviderFake }
func (f *FakeProvider) Close() error { return nil }

// RegisterFake registers the offline provider under the "fake" name.
func RegisterFake(reg llmclient.ProviderRegistrar) error {
	return reg.Register(llmclient.ProviderRegistration{
		Name: llmclient.ProviderFake,
		Models: map[llmclient.ModelLevel]string{
			llmclient.ModelLevelHigh: "fake-architect",
			llmclient.ModelLevelLow:  "fake-architect-fast",
		},
		Factory: func(context.Context) (llmclient.Provider, error) { return NewFakeProvider(), nil },
	})
}

var fakeComponents = []map[string]any{
	{"id": "auth", "name": "Authentication", "value": "Firebase Authentication", "category": "authentication",
		"rationale": "Managed sign-in with email and social providers keeps user management simple for a small team."},
	{"id": "database", "name": "Primary Database", "value": "Cloud SQL (PostgreSQL)", "category": "database",
		"rationale": "Relational storage fits recipes, users and ratings with strong consistency."},
	{"id": "server", "name": "Application Server", "value": "Cloud Run", "category": "server",
		"rationale": "Serverless containers scale to zero and need no cluster management."},
	{"id": "storage", "name": "Media Storage", "value": "Cloud Storage", "category": "storage",
		"rationale": "Object storage holds recipe photos cheaply."},
	{"id": "cdn", "name": "CDN", "value": "Cloud CDN", "category": "cdn",
		"rationale": "Edge caching serves images quickly to users everywhere."},
	{"id": "monitoring", "name": "Monitoring", "value": "Cloud Monitoring", "category": "monitoring",
		"rationale": "Built-in metrics and alerting cover uptime and error rates."},
}

var fakeDependencies = map[string][]string{
	"server":     {"auth", "database", "storage"},
	"cdn":        {"storage"},
	"monitoring": {"server"},
	"cache":      {"database"},
}

func (f *FakeProvider) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	switch PhaseFrom(ctx) {
	case PhaseDiscovery:
		raw, _ := json.MarshalIndent(fakeComponents, "", "  ")
		return "Here is the proposed architecture:\n```json\n" + string(raw) + "\n```", nil
	case PhaseRefinement:
		out := make([]map[string]any, 0, len(fakeComponents))
		for _, c := range fakeComponents {
			if c["id"] == "cdn" {
				continue
			}
			out = append(out, c)
		}
		out = append(out, map[string]any{
			"id": "cache", "name": "Cache", "value": "Memorystore (Redis)", "category": "cache",
			"rationale": "Caches popular recipe pages to cut database load.",
		})
		raw, _ := json.Marshal(map[string]any{"components": out})
		return string(raw), nil
	case PhaseDeepDive:
		id := SubjectFrom(ctx)
		raw, _ := json.Marshal(map[string]any{
			"configuration": map[string]any{
				"settings": []map[string]string{
					{"key": "region", "value": "us-central1", "reason": "Keep latency low for the primary audience."},
				},
				"setupSteps":    []string{fmt.Sprintf("Provision %s", id), "Configure access policies"},
				"bestPractices": []string{"Automate with infrastructure as code"},
				"securityNotes": []string{"Restrict access with least-privilege service accounts"},
			},
			"dependencies":  fakeDependencies[id],
			"estimatedCost": "$10-25/month",
		})
		return string(raw), nil
	case PhaseDiagram:
		raw, _ := json.Marshal(map[string]string{"mermaid_diagram": fakeDiagram})
		return string(raw), nil
	case PhaseDiagramRepair:
		return fakeDiagram, nil
	case PhaseBlueprint:
		raw, _ := json.Marshal(fakeBlueprint())
		return string(raw), nil
	default:
		if strings.Contains(req.Prompt, "flowchart") {
			return "flowchart TD\n    a[Start] --> b[End]\n", nil
		}
		return "{}", nil
	}
}

const fakeDiagram = "flowchart TD\n    user[User] --> server[Application Server]\n    server --> database[(Database)]\n"

func fakeBlueprint() map[string]any {
	return map[string]any{
		"summary": "A serverless web application with managed authentication and a relational database.",
		"tech_stack": map[string]any{
			"frontend": "Next.js", "backend": "Cloud Run (Go)", "database": "Cloud SQL (PostgreSQL)",
			"cache": "Memorystore", "storage": "Cloud Storage", "auth": "Firebase Authentication",
			"cdn": "Cloud CDN", "monitoring": "Cloud Monitoring",
		},
		"authentication_system": map[string]any{"provider": "Firebase Authentication", "methods": []string{"email", "google"}},
		"database_design":       map[string]any{"engine": "PostgreSQL", "tables": []string{"users", "recipes", "ratings"}},
		"api_design":            map[string]any{"style": "REST", "endpoints": []string{"/recipes", "/users"}},
		"cloud_infrastructure":  map[string]any{"platform": "GCP", "regions": []string{"us-central1"}},
		"security_architecture": map[string]any{"encryption": "TLS everywhere", "secrets": "Secret Manager"},
		"deployment_strategy":   map[string]any{"ci": "Cloud Build", "strategy": "rolling"},
		"monitoring_and_alerts": map[string]any{"metrics": "Cloud Monitoring", "alerts": []string{"error rate", "latency"}},
		"mermaid_diagram":       "flowchart TD\n    user[User] --> cdn[CDN]\n    cdn --> backend[Backend]\n    backend --> database[(Database)]\n",
		"cost_estimate":         map[string]any{"monthly": "$40-80"},
		"risks_and_gotchas":     []string{"Cold starts on the first request"},
		"compliance_notes":      "No specific compliance regime requested; follow general data-protection practice for user accounts.",
	}
}
