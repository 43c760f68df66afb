package conversation

import (
	"errors"
	"testing"

	"archie/internal/tester"
)

func TestComponentsFromValue_Array(t *testing.T) {
	in := []any{
		map[string]any{"id": "auth", "name": "Authentication", "value": "Auth0", "category": "Authentication", "rationale": "r"},
		map[string]any{"name": "Primary DB", "value": "PostgreSQL", "category": "database"},
		map[string]any{"id": "database", "name": "Replica", "value": "PostgreSQL", "category": "database"},
		map[string]any{"name": "Load Balancer", "value": "ALB"},
	}
	out, err := ComponentsFromValue(in)
	tester.NoErr(t, err)
	ids := []string{}
	for _, c := range out {
		ids = append(ids, c.ID)
	}
	tester.Eq(t, ids, []string{"auth", "database", "database_2", "load_balancer"})
	tester.Eq(t, out[0].Category, "authentication")
}

func TestComponentsFromValue_ObjectWrapped(t *testing.T) {
	out, err := ComponentsFromValue(map[string]any{
		"components": []any{map[string]any{"id": "cdn", "name": "CDN", "value": "Cloudflare", "category": "cdn"}},
	})
	tester.NoErr(t, err)
	tester.Eq(t, len(out), 1)
	tester.Eq(t, out[0].ID, "cdn")
}

func TestComponentsFromValue_RejectsNonSequence(t *testing.T) {
	for _, v := range []any{
		map[string]any{"summary": "x"},
		"just text",
		42.0,
		[]any{},
		[]any{"not-an-object"},
	} {
		_, err := ComponentsFromValue(v)
		tester.True(t, err != nil, "expected an error")
		tester.ErrIs(t, err, ErrInvalidDiscoveryResponse, v)
	}
}

func TestDetailFromValue(t *testing.T) {
	d, err := DetailFromValue(map[string]any{
		"configuration": map[string]any{
			"settings": []any{
				map[string]any{"key": "Instance", "value": "db-f1-micro", "reason": "cheap"},
				map[string]any{"name": "Replicas", "value": 2.0},
			},
			"setupSteps":    []any{"Step 1", "Step 2"},
			"bestPractices": []any{"Backups"},
			"securityNotes": "Enable TLS",
		},
		"dependencies":  []any{"server", 3.0},
		"estimatedCost": map[string]any{"monthly": "$10"},
	})
	tester.NoErr(t, err)
	tester.Eq(t, d.Configuration.Settings, []Setting{{Key: "Instance", Value: "db-f1-micro", Reason: "cheap"}, {Key: "Replicas", Value: "2"}})
	tester.Eq(t, d.Configuration.SecurityNotes, []string{"Enable TLS"})
	tester.Eq(t, d.Dependencies, []string{"server", "3"})
	tester.Eq(t, d.EstimatedCost, "$10")

	_, err = DetailFromValue([]any{"x"})
	tester.True(t, errors.Is(err, ErrUnparseableResponse))
	_, err = DetailFromValue(map[string]any{"unrelated": true})
	tester.True(t, errors.Is(err, ErrUnparseableResponse))
}
