// Package prompt builds the phase-specific prompt text sent to providers.
// Every builder is a pure function of its arguments.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"archie/internal/conversation"
	"archie/internal/util/jsonutil"
)

const noPreference = "No Preference"

// Categories are the component categories discovery may use.
var Categories = []string{
	"authentication", "database", "cache", "server",
	"load_balancer", "storage", "cdn", "monitoring",
}

// Builder renders prompts. The zero value is ready to use.
type Builder struct{}

func New() Builder { return Builder{} }

var componentFields = []Field{
	{Name: "id", Type: "string", Required: true, Description: "unique lowercase identifier, e.g. \"auth\", \"database\""},
	{Name: "name", Type: "string", Required: true, Description: "display name, e.g. \"Authentication\""},
	{Name: "value", Type: "string", Required: true, Description: "specific technology or service, e.g. \"Firebase Auth\""},
	{Name: "category", Type: "string", Required: true, Description: "one of: " + strings.Join(Categories, ", ")},
	{Name: "rationale", Type: "string", Required: true, Description: "2-3 sentences on why this choice fits the product"},
}

const componentExample = `[
  {
    "id": "auth",
    "name": "Authentication",
    "value": "Firebase Auth",
    "category": "authentication",
    "rationale": "Firebase Auth provides secure authentication with social logins and scales with the user base."
  }
]`

// Discovery asks for the 5-8 core components of the product idea.
func (Builder) Discovery(form conversation.FormInputs) (string, error) {
	if strings.TrimSpace(form.Idea) == "" {
		return "", fmt.Errorf("prompt: discovery needs an idea")
	}
	rules := []string{
		"Return ONLY a valid JSON array, no markdown and no explanatory text.",
		"Include 5-8 of the most essential components; do not propose every possible service.",
		"Focus on infrastructure, not application features.",
		"Each component must have a clear, specific technology choice.",
		"Ids must be unique within the list.",
	}
	if g := cloudGuidance(form.CloudPlatform); g != "" {
		rules = append(rules, g)
	}
	return Spec{
		Purpose:      "You are an expert system architect. Analyze the product idea and identify ONLY the core infrastructure components it needs.",
		Background:   formContext(form),
		OutputFields: componentFields,
		Rules:        rules,
		OutputFormat: "A JSON array of component objects.",
		Example:      componentExample,
	}.Render()
}

// Refinement asks for the full updated component list after applying the
// user's instruction to the current one.
func (Builder) Refinement(current []conversation.Component, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("prompt: refinement needs a message")
	}
	cur, err := jsonutil.MarshalNoEscapeIndent(componentsOrEmpty(current), "", "  ")
	if err != nil {
		return "", fmt.Errorf("prompt: encode components: %w", err)
	}
	return Spec{
		Purpose:    "You are an expert system architect refining an existing architecture based on the user's request.",
		Background: "Current architecture components:\n" + string(cur),
		Input:      fmt.Sprintf("User request: %q", message),
		Rules: []string{
			"If the user asks to switch cloud provider, replace every provider-specific service with the equivalent from the new provider.",
			"If the user asks to add a component, append it with a new unique id.",
			"If the user asks to remove a component, leave it out of the list.",
			"If the user asks to change a technology, update that component's value and rationale.",
			"Keep components the request does not touch exactly as they are, including their ids.",
			"Return the COMPLETE updated list, not only the changed components.",
			"Return ONLY a valid JSON array, no markdown and no explanatory text.",
		},
		OutputFields: componentFields,
		OutputFormat: "A JSON array of component objects with the same shape as the current list.",
	}.Render()
}

// DeepDive asks for the production configuration of one component. peers
// are the ids of the other approved components, which are the only valid
// dependency targets.
func (Builder) DeepDive(c conversation.Component, form conversation.FormInputs, peers []string) (string, error) {
	if strings.TrimSpace(c.ID) == "" {
		return "", fmt.Errorf("prompt: deep dive needs a component id")
	}
	others := make([]string, 0, len(peers))
	for _, id := range peers {
		if id != c.ID {
			others = append(others, id)
		}
	}
	deps := "none"
	if len(others) > 0 {
		deps = strings.Join(others, ", ")
	}
	rules := []string{
		"Provide 4-6 key settings with concrete values and a reason for each.",
		"Provide 5-8 actionable setup steps in order.",
		"Provide 3-5 best practices and 2-4 security notes specific to this technology.",
		"Dependencies may only reference these component ids: " + deps + ".",
		"Give a realistic monthly cost estimate for the expected scale.",
		"Do not include code snippets.",
		"Return ONLY valid JSON, no markdown.",
	}
	if req := strings.TrimSpace(form.Compliance); req != "" && !strings.EqualFold(req, "None") {
		rules = append(rules, fmt.Sprintf("The product must satisfy %s; call out the settings and notes that matter for it.", req))
	}
	return Spec{
		Purpose: fmt.Sprintf("You are configuring %s (%s) for a production system.", c.Value, c.Name),
		Background: "PRODUCT CONTEXT:\n" + formContext(form) +
			fmt.Sprintf("\n\nCOMPONENT:\n- id: %s\n- category: %s\n- rationale: %s", c.ID, c.Category, c.Rationale),
		OutputFields: []Field{
			{Name: "configuration.settings", Type: "array", Required: true, Description: "objects with key, value and reason"},
			{Name: "configuration.setupSteps", Type: "array", Required: true, Description: "ordered setup instructions"},
			{Name: "configuration.bestPractices", Type: "array", Required: true},
			{Name: "configuration.securityNotes", Type: "array", Required: true},
			{Name: "dependencies", Type: "array", Required: true, Description: "ids of components this one depends on"},
			{Name: "estimatedCost", Type: "string", Required: true, Description: "e.g. \"$25-50/month\""},
		},
		Rules:        rules,
		OutputFormat: "A single JSON object.",
		Example: `{
  "configuration": {
    "settings": [{"key": "max_connections", "value": "100", "reason": "Sized for expected concurrency"}],
    "setupSteps": ["Create the instance"],
    "bestPractices": ["Enable automated backups"],
    "securityNotes": ["Restrict network access"]
  },
  "dependencies": ["server"],
  "estimatedCost": "$25-50/month"
}`,
	}.Render()
}

// Diagram asks for a flowchart of the approved components. details may be
// partial; components without one still appear as nodes.
func (Builder) Diagram(approved []conversation.Component, details map[string]conversation.ComponentDetail) (string, error) {
	if len(approved) == 0 {
		return "", fmt.Errorf("prompt: diagram needs components")
	}
	var b strings.Builder
	for _, c := range approved {
		fmt.Fprintf(&b, "- %s: %s (%s)", c.ID, c.Value, c.Category)
		if d, ok := details[c.ID]; ok && len(d.Dependencies) > 0 {
			deps := append([]string(nil), d.Dependencies...)
			sort.Strings(deps)
			fmt.Fprintf(&b, " -> depends on %s", strings.Join(deps, ", "))
		}
		b.WriteString("\n")
	}
	return Spec{
		Purpose:    "Draw the system architecture as a Mermaid flowchart.",
		Background: "Components (id: technology (category)):\n" + strings.TrimRight(b.String(), "\n"),
		Rules: append([]string{
			"Use each component id as its node id and the technology as its label.",
			"Draw an edge for every listed dependency and add a client/user entry node.",
		}, syntaxRules...),
		OutputFields: []Field{
			{Name: "mermaid_diagram", Type: "string", Required: true, Description: "the flowchart source"},
		},
		OutputFormat: "A JSON object with a single mermaid_diagram field.",
	}.Render()
}

var syntaxRules = []string{
	"The first line must be \"flowchart TB\" (or another direction: TD, BT, RL, LR).",
	"Node ids contain only letters, digits and underscores; never use the bare word end.",
	"Quote labels that contain spaces or punctuation: id[\"Label text\"].",
	"Edges use --> with optional labels written as -->|label|.",
	"One statement per line; no markdown fences and no commentary.",
}

// DiagramRepair asks a fast model to fix a diagram the validator rejected.
func (Builder) DiagramRepair(diagram, reason string) (string, error) {
	if strings.TrimSpace(diagram) == "" {
		return "", fmt.Errorf("prompt: nothing to repair")
	}
	return Spec{
		Purpose:    "Fix the syntax of this Mermaid flowchart. Keep the same nodes and edges; change only what is needed for it to parse.",
		Background: "Validation error: " + reason,
		Input:      diagram,
		Rules:      syntaxRules,
		OutputFields: []Field{
			{Name: "mermaid_diagram", Type: "string", Required: true, Description: "the corrected flowchart source"},
		},
		OutputFormat: "A JSON object with a single mermaid_diagram field.",
	}.Render()
}

// BlueprintSections are the top-level keys a blueprint response carries.
var BlueprintSections = []Field{
	{Name: "summary", Type: "string", Required: true, Description: "2-3 sentence overview of the architecture"},
	{Name: "tech_stack", Type: "object", Required: true, Description: "frontend, backend, database, hosting, authentication, file_storage, caching, monitoring"},
	{Name: "authentication_system", Type: "object", Required: true, Description: "provider, methods, session handling, authorization model"},
	{Name: "database_design", Type: "object", Required: true, Description: "engine, core tables or collections, indexing and backup strategy"},
	{Name: "api_design", Type: "object", Required: true, Description: "style, key endpoints, versioning, rate limiting"},
	{Name: "cloud_infrastructure", Type: "object", Required: true, Description: "provider, regions, networking, compute"},
	{Name: "compliance_notes", Type: "string", Required: true, Description: "concrete obligations and how the design meets them"},
	{Name: "security_architecture", Type: "object", Required: true, Description: "encryption, secrets, network security, auditing"},
	{Name: "scalability_strategy", Type: "object", Required: true, Description: "scaling path from launch to target user count"},
	{Name: "mermaid_diagram", Type: "string", Required: true, Description: "Mermaid source starting with \"flowchart TB\""},
	{Name: "component_explanations", Type: "object", Required: true, Description: "one plain-language explanation per major component"},
	{Name: "deployment_strategy", Type: "object", Required: true, Description: "environments, CI/CD, rollback"},
	{Name: "first_steps", Type: "array", Required: true, Description: "ordered actions for the first weeks"},
	{Name: "cost_estimate", Type: "object", Required: true, Description: "initial_monthly, year_1_monthly, breakdown, cost_optimization_tips"},
	{Name: "risks_and_gotchas", Type: "array", Required: true, Description: "risks with mitigations"},
	{Name: "monitoring_and_alerts", Type: "object", Required: true, Description: "metrics, logging, alert thresholds"},
}

// Blueprint asks for the complete one-shot architecture document.
func (Builder) Blueprint(form conversation.FormInputs) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}
	rules := []string{
		"Return ONLY valid JSON matching the output fields; no markdown fences.",
		"Recommend specific, named services and versions rather than generic categories.",
		"Match complexity to the team's skill level and timeline.",
		"Size every component for the stated user count, with a path to 10x growth.",
		"Address the compliance requirements concretely in compliance_notes and security_architecture.",
		"The mermaid_diagram must be a valid flowchart using the syntax rules below.",
		"Cost estimates must be realistic monthly figures in USD.",
		"List at least five risks, each with a mitigation.",
		"first_steps must be ordered and actionable.",
		"Prefer managed services unless the team is experienced.",
	}
	rules = append(rules, syntaxRules...)
	if g := cloudGuidance(form.CloudPlatform); g != "" {
		rules = append(rules, g)
	}
	return Spec{
		Purpose:      "You are a senior solutions architect. Produce a complete, production-ready architecture blueprint for the product below.",
		Background:   formContext(form),
		OutputFields: BlueprintSections,
		Rules:        rules,
		OutputFormat: "A single JSON object with every output field.",
	}.Render()
}

func formContext(form conversation.FormInputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product idea: %s\n", strings.TrimSpace(form.Idea))
	fmt.Fprintf(&b, "- Expected users: %s\n", orUnknown(form.UserCount))
	fmt.Fprintf(&b, "- Compliance: %s\n", orUnknown(form.Compliance))
	fmt.Fprintf(&b, "- Team skill level: %s\n", orUnknown(form.SkillLevel))
	fmt.Fprintf(&b, "- Timeline: %s\n", orUnknown(form.Timeline))
	fmt.Fprintf(&b, "- Cloud preference: %s", orUnknown(form.CloudPlatform))
	return b.String()
}

func cloudGuidance(platform string) string {
	platform = strings.TrimSpace(platform)
	if platform == "" || strings.EqualFold(platform, noPreference) {
		return ""
	}
	return fmt.Sprintf("CRITICAL: User prefers %s. Prioritize %s services.", platform, platform)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "not specified"
	}
	return s
}

func componentsOrEmpty(cs []conversation.Component) []conversation.Component {
	if cs == nil {
		return []conversation.Component{}
	}
	return cs
}
