package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ccastromar/sos-store-ops-system/internal/bus"
	"github.com/ccastromar/sos-store-ops-system/internal/llm"
	"github.com/ccastromar/sos-store-ops-system/internal/logx"
	"github.com/ccastromar/sos-store-ops-system/internal/ui"
)

type Analyst struct {
	bus       *bus.Bus
	inbox     chan bus.Message
	llmClient llm.LLMClient
	uiStore   *ui.UIStore
}

func NewAnalyst(b *bus.Bus, llmClient llm.LLMClient, uiStore *ui.UIStore) *Analyst {
	return &Analyst{
		bus:       b,
		inbox:     make(chan bus.Message, 16),
		llmClient: llmClient,
		uiStore:   uiStore,
	}
}

func (a *Analyst) Inbox() chan bus.Message {
	return a.inbox
}

func (a *Analyst) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Analyst", "panic recovered in Start: %v", r)
		}
	}()
	for {
		select {
		case msg := <-a.inbox:
			switch msg.Type {
			case "summarize":
				a.handleSummarize(ctx, msg)
			default:
				logx.Warn("Analyst", "mensaje desconocido: %#v", msg)
			}
		case <-ctx.Done():
			logx.Info("Analyst", "shutting down")
			return nil
		}
	}
}

func (a *Analyst) handleSummarize(ctx context.Context, msg bus.Message) {
	id, _ := msg.Payload["id"].(string)
	message, _ := msg.Payload["message"].(string)
	capName, _ := msg.Payload["capability"].(string)
	rawAny := msg.Payload["output"]

	raw, _ := rawAny.(map[string]any)

	logx.Debug("Analyst", "[%s] pidiendo summary al LLM...", id)

	timer := logx.Start(id, "Analyst", "SummarizeLLM")
	summary, err := a.summarize(ctx, message, capName, raw)
	timer.End()

	if err != nil {
		logx.Warn("Analyst", "[%s] error llamando al LLM: %v", id, err)
		// Degradamos de forma elegante: devolvemos solo el raw.
		storeResult(id, Result{
			Status: "ok",
			Data: map[string]any{
				"capability": capName,
				"raw":        raw,
			},
		})
		return
	}

	a.uiStore.AddEvent(id, "Analyst", "summary", "summary LLM generado", "")

	storeResult(id, Result{
		Status: "ok",
		Data: map[string]any{
			"capability": capName,
			"raw":        raw,
			"summary":    summary,
		},
	})
}

func (a *Analyst) summarize(ctx context.Context, message, capName string, raw map[string]any) (string, error) {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("marshal raw output: %w", err)
	}

	prompt := fmt.Sprintf(`You are an assistant for store administrators.
The user asked: %q
The operation %q completed successfully with this response:
%s

Write one or two plain sentences telling the user what happened.
Do not mention JSON or internal identifiers. Answer in the user's language.`,
		message, capName, string(rawJSON))

	return a.llmClient.Chat(ctx, prompt)
}
