package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/ccastromar/sos-store-ops-system/internal/intent"
	"github.com/ccastromar/sos-store-ops-system/internal/llm"
	"github.com/ccastromar/sos-store-ops-system/internal/registry"
)

// Generator is the capability-generation fallback. It never produces code:
// the model only picks an operation from the closed catalog and describes a
// capability around it. Anything outside the catalog is rejected.
type Generator struct {
	client  llm.LLMClient
	catalog map[string]config.Operation
}

func New(client llm.LLMClient, catalog map[string]config.Operation) *Generator {
	return &Generator{client: client, catalog: catalog}
}

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{2,63}$`)

// catalogEntry is the trimmed operation view the prompt shows the model.
type catalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Platform    string `json:"platform"`
	Mode        string `json:"mode"`
}

type candidate struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Operation       string         `json:"operation"`
	ParameterSchema map[string]any `json:"parameter_schema"`
}

// Generate asks the model to bind the request to one catalog operation and
// returns the validated capability, ready to register. Failure is terminal
// for the request; the dispatcher does not retry.
func (g *Generator) Generate(ctx context.Context, requestText string, it intent.Intent) (registry.Capability, error) {
	entries := make([]catalogEntry, 0, len(g.catalog))
	for _, op := range g.catalog {
		entries = append(entries, catalogEntry{
			Name:        op.Name,
			Description: op.Description,
			Platform:    op.Platform,
			Mode:        op.Mode,
		})
	}
	catalogJSON, _ := json.Marshal(entries)
	intentJSON, _ := json.Marshal(it)

	prompt := fmt.Sprintf(`
You design capabilities for a store automation system.

Available operations (the ONLY actions that exist):
%s

Resolved intent for context:
%s

Define ONE capability that satisfies the user request, as a JSON object:
{
  "name": short snake_case identifier ending in a version suffix like "_v1",
  "description": one short sentence of what it does,
  "operation": the name of ONE operation from the list above,
  "parameter_schema": a JSON Schema object for the parameters the operation needs
}

- NO markdown.
- NO backticks.
- Only respond with JSON.

User request:
"%s"
`, catalogJSON, intentJSON, requestText)

	raw, err := g.client.Chat(ctx, prompt)
	if err != nil {
		return registry.Capability{}, fmt.Errorf("generation service: %w", err)
	}

	obj, ok := llm.FirstJSONObject(llm.SanitizeOutput(raw))
	if !ok {
		return registry.Capability{}, fmt.Errorf("generation reply has no JSON object; raw=%s", raw)
	}

	var cand candidate
	if err := json.Unmarshal([]byte(obj), &cand); err != nil {
		return registry.Capability{}, fmt.Errorf("parse generated capability: %w", err)
	}

	if !nameRe.MatchString(cand.Name) {
		return registry.Capability{}, fmt.Errorf("generated capability name %q is invalid", cand.Name)
	}
	if cand.Description == "" {
		return registry.Capability{}, fmt.Errorf("generated capability %s has no description", cand.Name)
	}
	if _, ok := g.catalog[cand.Operation]; !ok {
		return registry.Capability{}, fmt.Errorf("generated capability %s references unknown operation %q", cand.Name, cand.Operation)
	}

	schema := ""
	if len(cand.ParameterSchema) > 0 {
		b, err := json.Marshal(cand.ParameterSchema)
		if err != nil {
			return registry.Capability{}, fmt.Errorf("marshal generated schema: %w", err)
		}
		if _, err := registry.CompileSchema(string(b)); err != nil {
			return registry.Capability{}, fmt.Errorf("generated capability %s: %w", cand.Name, err)
		}
		schema = string(b)
	}

	return registry.Capability{
		Name:            cand.Name,
		Description:     cand.Description,
		Operation:       cand.Operation,
		ParameterSchema: schema,
	}, nil
}
