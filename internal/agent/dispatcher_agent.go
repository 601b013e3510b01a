package agent

import (
	"context"
	"fmt"

	"github.com/ccastromar/sos-store-ops-system/internal/bus"
	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/ccastromar/sos-store-ops-system/internal/dispatch"
	"github.com/ccastromar/sos-store-ops-system/internal/logx"
	"github.com/ccastromar/sos-store-ops-system/internal/ui"
)

// DispatcherAgent consume tareas del bus y las pasa por el pipeline
// gate -> resolver -> registry -> platform.
type DispatcherAgent struct {
	bus        *bus.Bus
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	inbox      chan bus.Message
	uiStore    *ui.UIStore
}

func NewDispatcherAgent(b *bus.Bus, cfg *config.Config, d *dispatch.Dispatcher, uiStore *ui.UIStore) *DispatcherAgent {
	return &DispatcherAgent{
		bus:        b,
		cfg:        cfg,
		dispatcher: d,
		inbox:      make(chan bus.Message, 16),
		uiStore:    uiStore,
	}
}

func (d *DispatcherAgent) Inbox() chan bus.Message {
	return d.inbox
}

func (d *DispatcherAgent) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Dispatcher", "panic recovered in Start: %v", r)
		}
	}()
	for {
		select {
		case msg := <-d.inbox:
			if msg.Type != "new_task" {
				logx.Warn("Dispatcher", "unexpected message type '%s'", msg.Type)
				continue
			}
			// Cada tarea corre en su propia goroutine: el pipeline puede
			// tardar segundos (LLM + plataforma) y no debe bloquear el inbox.
			go d.runTask(ctx, msg)
		case <-ctx.Done():
			logx.Info("Dispatcher", "shutting down")
			return nil
		}
	}
}

func (d *DispatcherAgent) runTask(ctx context.Context, msg bus.Message) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Dispatcher", "panic recovered in task: %v", r)
			if id, _ := msg.Payload["id"].(string); id != "" {
				storeResult(id, Result{Status: "error", Err: fmt.Sprintf("internal error: %v", r)})
			}
		}
	}()
	d.handleTask(ctx, msg)
}

func (d *DispatcherAgent) handleTask(parent context.Context, msg bus.Message) {
	id, _ := msg.Payload["id"].(string)
	message, _ := msg.Payload["message"].(string)
	connName, _ := msg.Payload["connection"].(string)

	if id == "" || message == "" {
		logx.Error("Dispatcher", "malformed task payload: %#v", msg.Payload)
		return
	}

	conn, ok := d.cfg.Connections[connName]
	if !ok {
		logx.Error("Dispatcher", "[%s] unknown connection '%s'", id, connName)
		storeResult(id, Result{Status: "error", Err: fmt.Sprintf("unknown connection %s", connName)})
		return
	}

	// Usar el contexto cancelable asociado a la tarea si existe
	ctx := parent
	if tctx, ok := GetTaskContext(id); ok {
		ctx = tctx
	}
	defer CancelTask(id)

	logx.L(id, "Dispatcher", "executing against %s (%s)", conn.Name, conn.Platform)
	d.uiStore.AddEvent(id, "Dispatcher", "start", message, "")

	outcome := d.dispatcher.Execute(ctx, message, conn)

	if outcome.Denied {
		d.uiStore.AddEvent(id, "Guard", "denied", outcome.Error, "")
		storeResult(id, Result{Status: "denied", Err: outcome.Error})
		return
	}
	if !outcome.Success {
		d.uiStore.AddEvent(id, "Dispatcher", "error", outcome.Error, "")
		storeResult(id, Result{Status: "error", Err: outcome.Error})
		return
	}

	d.uiStore.AddEvent(id, "Dispatcher", "done", outcome.CapabilityName, "")
	logx.L(id, "Dispatcher", "capability %s succeeded in %dms", outcome.CapabilityName, outcome.DurationMs)

	// Pasar al analyst para que redacte el resumen final
	d.bus.Send("analyst", bus.Message{
		Type: "summarize",
		Payload: map[string]any{
			"id":         id,
			"message":    message,
			"capability": outcome.CapabilityName,
			"output":     outcome.Output,
		},
	})
}
