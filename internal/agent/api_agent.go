package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ccastromar/sos-store-ops-system/internal/audit"
	"github.com/ccastromar/sos-store-ops-system/internal/bus"
	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/ccastromar/sos-store-ops-system/internal/logx"
	"github.com/ccastromar/sos-store-ops-system/internal/registry"
	"github.com/ccastromar/sos-store-ops-system/internal/ui"
)

type APIAgent struct {
	bus      *bus.Bus
	cfg      *config.Config
	inbox    chan bus.Message
	uiStore  *ui.UIStore
	reg      *registry.Registry
	auditLog *audit.Log
	// minimal auth and rate limiting
	apiKey string
	// naive fixed-window rate limiter per client key
	rl struct {
		Window  time.Duration
		Limit   int
		mu      chan struct{} // lightweight mutex using channel
		buckets map[string]*rateBucket
	}
}

func NewAPIAgent(b *bus.Bus, cfg *config.Config, reg *registry.Registry, auditLog *audit.Log, uiStore *ui.UIStore) *APIAgent {
	a := &APIAgent{
		bus:      b,
		cfg:      cfg,
		inbox:    make(chan bus.Message, 16),
		uiStore:  uiStore,
		reg:      reg,
		auditLog: auditLog,
		apiKey:   strings.TrimSpace(os.Getenv("API_KEY")),
	}
	// initialize rate limiter defaults
	a.rl.Window = 1 * time.Minute
	a.rl.Limit = 60
	a.rl.mu = make(chan struct{}, 1)
	a.rl.buckets = make(map[string]*rateBucket)
	return a
}

// Max request size for POST /execute to protect the server (1MB)
const maxExecuteBodyBytes int64 = 1 << 20

// rateBucket tracks hits in a fixed window
type rateBucket struct {
	start time.Time
	hits  int
}

// acquireRL returns error if rate limit exceeded
func (a *APIAgent) acquireRL(key string) error {
	if key == "" {
		key = "anon"
	}
	// lock
	a.rl.mu <- struct{}{}
	defer func() { <-a.rl.mu }()

	b, ok := a.rl.buckets[key]
	now := time.Now()
	if !ok || now.Sub(b.start) >= a.rl.Window {
		a.rl.buckets[key] = &rateBucket{start: now, hits: 1}
		return nil
	}
	if b.hits >= a.rl.Limit {
		return errors.New("rate limit exceeded")
	}
	b.hits++
	return nil
}

// getClientKey picks an identifier for auth/rate limit: API key if present, else IP
func getClientKey(r *http.Request) string {
	// prefer provided API key to segregate limits per token
	if k := r.Header.Get("X-API-Key"); k != "" {
		return "key:" + k
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return "key:" + strings.TrimSpace(auth[7:])
	}
	// fallback to remote addr (strip port)
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return "ip:" + host
}

// checkAuth enforces API key when configured via API_KEY env var
func (a *APIAgent) checkAuth(r *http.Request) bool {
	if a.apiKey == "" {
		return true // auth disabled
	}
	if k := r.Header.Get("X-API-Key"); k != "" && k == a.apiKey {
		return true
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		token := strings.TrimSpace(auth[7:])
		return token == a.apiKey
	}
	return false
}

var idRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func (a *APIAgent) Inbox() chan bus.Message {
	return a.inbox
}

func (a *APIAgent) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("Api", "panic recovered in Start: %v", r)
		}
	}()
	for {
		select {
		case msg := <-a.inbox:
			logx.Warn("Api", "internal message ignored: %#v", msg)
		case <-ctx.Done():
			return nil
		}
	}
}

type executeRequest struct {
	Message    string `json:"message"`
	Connection string `json:"connection,omitempty"`
}

// RegisterHTTP registra endpoints HTTP
func (a *APIAgent) RegisterHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/execute", a.handleExecute)           // async dispatch
	mux.HandleFunc("/task", a.handleTask)                 // fetch task status/result
	mux.HandleFunc("/capabilities", a.handleCapabilities) // registry listing
	mux.HandleFunc("/audit", a.handleAudit)               // recent execution records
}

// defaultConnection picks the explicitly named connection or, when the
// request names none, the alphabetically first one.
func (a *APIAgent) defaultConnection(name string) (config.Connection, bool) {
	if name != "" {
		c, ok := a.cfg.Connections[name]
		return c, ok
	}
	names := make([]string, 0, len(a.cfg.Connections))
	for n := range a.cfg.Connections {
		names = append(names, n)
	}
	if len(names) == 0 {
		return config.Connection{}, false
	}
	sort.Strings(names)
	return a.cfg.Connections[names[0]], true
}

func (a *APIAgent) handleExecute(w http.ResponseWriter, r *http.Request) {
	// Method check
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	// Auth check (optional)
	if !a.checkAuth(r) {
		w.Header().Set("WWW-Authenticate", "Bearer, X-API-Key")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Rate limit
	if err := a.acquireRL(getClientKey(r)); err != nil {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	// Enforce content type
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	// Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, maxExecuteBodyBytes)
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// If body too large, return 413; otherwise 400
		httpErr := http.StatusBadRequest
		if err.Error() == "http: request body too large" {
			httpErr = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "invalid request body", httpErr)
		return
	}

	if req.Message == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	conn, ok := a.defaultConnection(req.Connection)
	if !ok {
		http.Error(w, "unknown connection", http.StatusBadRequest)
		return
	}

	id := randomID()

	logx.Info("Api", "new request id=%s connection=%s message='%s'", id, conn.Name, req.Message)
	a.uiStore.AddEvent(id, "Api", "request", req.Message, "")

	// Create and register a task context with a default TTL. Detached from
	// the request context: the 202 response ends the request long before
	// the task finishes.
	_ = NewTaskContext(context.Background(), id, 60*time.Second)

	a.bus.Send("dispatcher", bus.Message{
		Type: "new_task",
		Payload: map[string]any{
			"id":         id,
			"message":    req.Message,
			"connection": conn.Name,
		},
	})

	// Respuesta asíncrona inmediata
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"status": "accepted",
	})
}

// handleTask devuelve el estado/resultado de una tarea.
// GET /task?id=...
func (a *APIAgent) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	// Auth check (optional)
	if !a.checkAuth(r) {
		w.Header().Set("WWW-Authenticate", "Bearer, X-API-Key")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	// Rate limit
	if err := a.acquireRL(getClientKey(r)); err != nil {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if !idRe.MatchString(id) {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	// Consultar si ya hay resultado
	if res, ok := getResult(id); ok {
		// Limpiar almacenamiento para evitar fugas
		deleteResult(id)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     id,
			"status": res.Status,
			"data":   res.Data,
			"error":  res.Err,
		})
		return
	}

	// Aún pendiente
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"status": "pending",
	})
}

// handleCapabilities lista las capabilities por uso descendente.
// GET /capabilities
func (a *APIAgent) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !a.checkAuth(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"capabilities": a.reg.List(),
	})
}

// handleAudit devuelve los ExecutionRecords más recientes.
// GET /audit?capability=...&status=...&limit=...
func (a *APIAgent) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !a.checkAuth(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := a.auditLog.Query(audit.Filter{
		CapabilityName: r.URL.Query().Get("capability"),
		Status:         r.URL.Query().Get("status"),
	}, limit)
	if err != nil {
		logx.Error("Api", "audit query: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"records": recs,
	})
}
