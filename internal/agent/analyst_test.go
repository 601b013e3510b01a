package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/ccastromar/sos-store-ops-system/internal/bus"
	"github.com/ccastromar/sos-store-ops-system/internal/llm"
	"github.com/ccastromar/sos-store-ops-system/internal/ui"
)

// fakeLLM implements llm.LLMClient for testing the Analyst
type fakeLLM struct {
	out string
	err error
}

func (f *fakeLLM) Ping(ctx context.Context) error                          { return nil }
func (f *fakeLLM) Chat(ctx context.Context, prompt string) (string, error) { return f.out, f.err }

var _ llm.LLMClient = (*fakeLLM)(nil)

func TestAnalyst_HandleSummarize_OK(t *testing.T) {
	b := bus.New()
	a := NewAnalyst(b, &fakeLLM{out: "The plugin akismet is now active."}, ui.NewUIStore())

	id := "task-analyst-1"
	a.handleSummarize(context.Background(), bus.Message{
		Type: "summarize",
		Payload: map[string]any{
			"id":         id,
			"message":    "activate akismet",
			"capability": "activate_plugin_v1",
			"output":     map[string]any{"plugin": "akismet", "status": "active"},
		},
	})

	res, ok := getResult(id)
	if !ok {
		t.Fatalf("expected result to be stored for id=%s", id)
	}
	deleteResult(id)
	if res.Status != "ok" {
		t.Fatalf("expected status=ok, got %s", res.Status)
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected map data, got %#v", res.Data)
	}
	if data["summary"] != "The plugin akismet is now active." {
		t.Fatalf("unexpected summary: %#v", data["summary"])
	}
	if data["capability"] != "activate_plugin_v1" {
		t.Fatalf("expected capability name in data: %#v", data)
	}
}

func TestAnalyst_HandleSummarize_LLMError_DegradesToRaw(t *testing.T) {
	b := bus.New()
	a := NewAnalyst(b, &fakeLLM{err: errors.New("down")}, ui.NewUIStore())

	id := "task-analyst-2"
	raw := map[string]any{"plugin": "akismet"}
	a.handleSummarize(context.Background(), bus.Message{
		Type: "summarize",
		Payload: map[string]any{
			"id":         id,
			"message":    "activate akismet",
			"capability": "activate_plugin_v1",
			"output":     raw,
		},
	})

	res, ok := getResult(id)
	if !ok {
		t.Fatalf("expected result to be stored for id=%s", id)
	}
	deleteResult(id)
	if res.Status != "ok" {
		t.Fatalf("expected status=ok on degrade path, got %s", res.Status)
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected map data, got %#v", res.Data)
	}
	if _, hasSummary := data["summary"]; hasSummary {
		t.Fatalf("expected no summary on degrade path: %#v", data)
	}
	got, ok := data["raw"].(map[string]any)
	if !ok || got["plugin"] != "akismet" {
		t.Fatalf("expected raw output to be preserved: %#v", data)
	}
}
