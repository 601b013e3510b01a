package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ccastromar/sos-store-ops-system/internal/audit"
	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/ccastromar/sos-store-ops-system/internal/guard"
	"github.com/ccastromar/sos-store-ops-system/internal/intent"
	"github.com/ccastromar/sos-store-ops-system/internal/logx"
	"github.com/ccastromar/sos-store-ops-system/internal/metrics"
	"github.com/ccastromar/sos-store-ops-system/internal/registry"
)

// Outcome is the structured result of one dispatch. Nothing below the
// dispatcher escapes as a fault; every failure ends up in Error.
type Outcome struct {
	Success        bool           `json:"success"`
	Output         map[string]any `json:"output,omitempty"`
	Error          string         `json:"error,omitempty"`
	CapabilityName string         `json:"capability_name,omitempty"`
	Denied         bool           `json:"denied,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

// Collaborator boundaries, narrowed so tests can spy on them.

type Gate interface {
	Check(requestText string) guard.Decision
}

type Resolver interface {
	Resolve(ctx context.Context, requestText string) intent.Intent
}

type Registry interface {
	Find(query string) (registry.Capability, bool)
	Register(c registry.Capability) (registry.Capability, error)
	RecordOutcome(name string, success bool) error
}

type Generator interface {
	Generate(ctx context.Context, requestText string, it intent.Intent) (registry.Capability, error)
}

type PlatformClient interface {
	Execute(ctx context.Context, op config.Operation, conn config.Connection, params map[string]string) (map[string]any, error)
}

type AuditLog interface {
	Append(rec audit.ExecutionRecord)
}

// Dispatcher coordinates one request end to end: safety gate, intent
// resolution, capability lookup (with generation fallback), invocation and
// the audit append. Steps run strictly in that order; the gate denial
// short-circuits before any registry lookup.
type Dispatcher struct {
	gate     Gate
	resolver Resolver
	reg      Registry
	gen      Generator
	platform PlatformClient
	auditLog AuditLog
	catalog  map[string]config.Operation
}

func New(gate Gate, resolver Resolver, reg Registry, gen Generator, platform PlatformClient, auditLog AuditLog, catalog map[string]config.Operation) *Dispatcher {
	return &Dispatcher{
		gate:     gate,
		resolver: resolver,
		reg:      reg,
		gen:      gen,
		platform: platform,
		auditLog: auditLog,
		catalog:  catalog,
	}
}

// Execute is the sole entry point of the core. It always returns a
// structured Outcome and appends exactly one ExecutionRecord, on every
// branch, including denials and timeouts.
func (d *Dispatcher) Execute(ctx context.Context, requestText string, conn config.Connection) Outcome {
	start := time.Now()

	outcome, rec := d.run(ctx, requestText, conn)

	elapsed := time.Since(start)
	outcome.DurationMs = elapsed.Milliseconds()
	rec.DurationMs = elapsed.Milliseconds()
	rec.Timestamp = time.Now().UTC()

	// Audit append never fails the caller and never changes the outcome.
	d.auditLog.Append(rec)

	label := audit.StatusError
	switch {
	case outcome.Denied:
		label = audit.StatusDenied
	case outcome.Success:
		label = audit.StatusOK
	}
	metrics.Dispatches.Inc(map[string]string{"outcome": label})
	metrics.DispatchDur.Observe(map[string]string{"outcome": label}, elapsed.Seconds())

	return outcome
}

func (d *Dispatcher) run(ctx context.Context, requestText string, conn config.Connection) (Outcome, audit.ExecutionRecord) {
	// 1. Safety gate. A denial never consults the registry.
	dec := d.gate.Check(requestText)
	if !dec.Allowed {
		logx.Warn("Dispatcher", "gate denied request: %s", dec.Reason)
		metrics.GateDenials.Inc(map[string]string{"target": dec.Target})
		return Outcome{Success: false, Denied: true, Error: dec.Reason},
			audit.ExecutionRecord{
				Status:        audit.StatusDenied,
				InputSnapshot: snapshotInput(requestText, intent.Unknown()),
				ErrorMessage:  dec.Reason,
			}
	}

	// 2. Intent resolution: audit metadata and generation context only.
	// Resolution failures degrade inside Resolve, they never abort.
	it := d.resolver.Resolve(ctx, requestText)

	// 3. Lookup by request text.
	cap, found := d.reg.Find(requestText)

	// 4/5. Generation fallback on miss, then register before invoking.
	if !found {
		candidate, err := d.gen.Generate(ctx, requestText, it)
		if err != nil {
			msg := fmt.Sprintf("no matching capability and generation failed: %v", err)
			logx.Warn("Dispatcher", "%s", msg)
			return Outcome{Success: false, Error: msg},
				audit.ExecutionRecord{
					Status:        audit.StatusError,
					InputSnapshot: snapshotInput(requestText, it),
					ErrorMessage:  msg,
				}
		}
		cap, err = d.reg.Register(candidate)
		if err != nil {
			msg := fmt.Sprintf("register generated capability: %v", err)
			logx.Error("Dispatcher", "%s", msg)
			return Outcome{Success: false, Error: msg},
				audit.ExecutionRecord{
					Status:        audit.StatusError,
					InputSnapshot: snapshotInput(requestText, it),
					ErrorMessage:  msg,
				}
		}
		logx.Info("Dispatcher", "registered generated capability %s (operation=%s)", cap.Name, cap.Operation)
	}

	// Invoke. Handler-level failures are caught here and never escape.
	output, err := d.invoke(ctx, cap, conn, it.Params)

	if recErr := d.reg.RecordOutcome(cap.Name, err == nil); recErr != nil {
		logx.Error("Dispatcher", "record outcome for %s: %v", cap.Name, recErr)
	}

	if err != nil {
		return Outcome{Success: false, Error: err.Error(), CapabilityName: cap.Name},
			audit.ExecutionRecord{
				CapabilityName: cap.Name,
				Status:         audit.StatusError,
				InputSnapshot:  snapshotInput(requestText, it),
				ErrorMessage:   err.Error(),
			}
	}

	return Outcome{Success: true, Output: output, CapabilityName: cap.Name},
		audit.ExecutionRecord{
			CapabilityName: cap.Name,
			Status:         audit.StatusOK,
			InputSnapshot:  snapshotInput(requestText, it),
			OutputSnapshot: snapshotOutput(output),
		}
}

// invoke runs one capability against the connection. A panic inside the
// platform layer is converted into a plain error at this boundary.
func (d *Dispatcher) invoke(ctx context.Context, cap registry.Capability, conn config.Connection, params map[string]string) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Dispatcher", "panic recovered in invoke of %s: %v", cap.Name, r)
			out = nil
			err = fmt.Errorf("capability %s panicked: %v", cap.Name, r)
		}
	}()

	op, ok := d.catalog[cap.Operation]
	if !ok {
		return nil, fmt.Errorf("capability %s references unknown operation %s", cap.Name, cap.Operation)
	}

	if err := cap.ValidateParams(params); err != nil {
		return nil, err
	}

	return d.platform.Execute(ctx, op, conn, params)
}

func snapshotInput(requestText string, it intent.Intent) string {
	b, err := json.Marshal(struct {
		Request string        `json:"request"`
		Intent  intent.Intent `json:"intent"`
	}{requestText, it})
	if err != nil {
		return fmt.Sprintf(`{"request":%q}`, requestText)
	}
	return string(b)
}

func snapshotOutput(out map[string]any) string {
	if out == nil {
		return ""
	}
	b, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(b)
}
