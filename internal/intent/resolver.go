package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ccastromar/sos-store-ops-system/internal/llm"
	"github.com/ccastromar/sos-store-ops-system/internal/logx"
)

type Resolver struct {
	client llm.LLMClient
}

func NewResolver(client llm.LLMClient) *Resolver {
	return &Resolver{client: client}
}

// rawIntent matches the JSON shape we ask the model for.
type rawIntent struct {
	Type       string         `json:"type"`
	Action     string         `json:"action"`
	Target     string         `json:"target"`
	Parameters map[string]any `json:"parameters"`
}

// Resolve classifies a free-text request. Resolution failures are non-fatal:
// any service error, missing JSON or parse error degrades to the all-unknown
// intent instead of failing the caller. One call, no retry beyond the HTTP
// layer's own transient handling.
func (r *Resolver) Resolve(ctx context.Context, requestText string) Intent {
	prompt := fmt.Sprintf(`
You are a strict classifier of store administration requests.

Classify the user request into a JSON object with EXACTLY these fields:
{
  "type": one of ["plugin_management","cache_management","content_management","settings_management","unknown"],
  "action": one of ["activate","deactivate","install","uninstall","clear","create","update","delete","unknown"],
  "target": the plugin slug, product/content identifier or setting name, or "" if none,
  "parameters": object with any extra key/value pairs mentioned in the request
}

- NO markdown.
- NO backticks.
- NO explanation.
- Only respond with JSON.

User request:
"%s"
`, requestText)

	raw, err := r.client.Chat(ctx, prompt)
	if err != nil {
		logx.Warn("Resolver", "llm error, degrading to unknown intent: %v", err)
		return Unknown()
	}

	obj, ok := llm.FirstJSONObject(llm.SanitizeOutput(raw))
	if !ok {
		logx.Warn("Resolver", "no JSON object in reply, degrading to unknown intent; raw=%s", raw)
		return Unknown()
	}

	var parsed rawIntent
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		logx.Warn("Resolver", "invalid intent JSON, degrading to unknown intent: %v", err)
		return Unknown()
	}

	// Todo a string, igual que con los params extraídos
	params := map[string]string{}
	for k, v := range parsed.Parameters {
		params[k] = fmt.Sprintf("%v", v)
	}

	return Intent{
		Category: normalizeCategory(parsed.Type),
		Verb:     normalizeVerb(parsed.Action),
		Target:   parsed.Target,
		Params:   params,
	}
}
