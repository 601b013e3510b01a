package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/ccastromar/sos-store-ops-system/internal/logx"
)

// Capability is a named, invokable action bound to one catalog operation.
// UsageCount only grows; SuccessRate is the running average of outcomes.
type Capability struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Operation       string    `json:"operation"`
	ParameterSchema string    `json:"parameter_schema,omitempty"` // JSON Schema document, may be empty
	IsActive        bool      `json:"is_active"`
	UsageCount      int       `json:"usage_count"`
	SuccessRate     float64   `json:"success_rate"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Registry owns all Capability records. The in-memory map is the working
// set; every mutation is written through to SQLite so registrations and
// stats survive restarts.
type Registry struct {
	mu   sync.Mutex
	caps map[string]*Capability
	db   *sql.DB
}

func New(db *sql.DB) *Registry {
	return &Registry{
		caps: make(map[string]*Capability),
		db:   db,
	}
}

// Load pulls all persisted capabilities into memory. Call once at startup,
// before Seed.
func (r *Registry) Load() error {
	if r.db == nil {
		return nil
	}
	rows, err := r.db.Query(`
		SELECT name, description, operation, COALESCE(parameter_schema, ''),
		       is_active, usage_count, success_rate, created_at, updated_at
		FROM capabilities`)
	if err != nil {
		return fmt.Errorf("load capabilities: %w", err)
	}
	defer rows.Close()

	r.mu.Lock()
	defer r.mu.Unlock()
	for rows.Next() {
		var c Capability
		var active int
		if err := rows.Scan(&c.Name, &c.Description, &c.Operation, &c.ParameterSchema,
			&active, &c.UsageCount, &c.SuccessRate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return fmt.Errorf("scan capability: %w", err)
		}
		c.IsActive = active != 0
		cc := c
		r.caps[c.Name] = &cc
	}
	return rows.Err()
}

// Seed upserts the YAML-defined capabilities. Seeds refresh description,
// operation and schema but never reset usage statistics.
func (r *Registry) Seed(seeds map[string]config.CapabilitySeed) error {
	for _, s := range seeds {
		schema := ""
		if len(s.ParameterSchema) > 0 {
			b, err := json.Marshal(s.ParameterSchema)
			if err != nil {
				return fmt.Errorf("capability %s: marshal parameter schema: %w", s.Name, err)
			}
			schema = string(b)
		}
		if _, err := r.Register(Capability{
			Name:            s.Name,
			Description:     s.Description,
			Operation:       s.Operation,
			ParameterSchema: schema,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Register upserts by name. New entries start active with zeroed stats;
// existing entries keep their stats and get description, operation and
// schema refreshed plus a bumped UpdatedAt.
func (r *Registry) Register(c Capability) (Capability, error) {
	if c.Name == "" {
		return Capability{}, fmt.Errorf("capability name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The map only changes when the row is written; a failed persist must
	// not leave an entry that Find can match.
	now := time.Now().UTC()
	existing, ok := r.caps[c.Name]
	if ok {
		prev := *existing
		existing.Description = c.Description
		existing.Operation = c.Operation
		existing.ParameterSchema = c.ParameterSchema
		existing.UpdatedAt = now
		if err := r.persistLocked(existing); err != nil {
			*existing = prev
			return Capability{}, fmt.Errorf("persist capability %s: %w", c.Name, err)
		}
		return *existing, nil
	}

	fresh := &Capability{
		Name:            c.Name,
		Description:     c.Description,
		Operation:       c.Operation,
		ParameterSchema: c.ParameterSchema,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.persistLocked(fresh); err != nil {
		return Capability{}, fmt.Errorf("persist capability %s: %w", c.Name, err)
	}
	r.caps[c.Name] = fresh
	return *fresh, nil
}

// Find returns the first active capability whose description matches the
// query. Matching is a deliberately weak case-insensitive substring
// heuristic in both directions (description contained in the query, or the
// query contained in the description); ties break by name order so the
// result is deterministic.
func (r *Registry) Find(query string) (Capability, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Capability{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := r.caps[name]
		if !c.IsActive {
			continue
		}
		desc := strings.ToLower(c.Description)
		if desc == "" {
			continue
		}
		if strings.Contains(desc, q) || strings.Contains(q, desc) {
			return *c, true
		}
	}
	return Capability{}, false
}

// Get looks up by exact name.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caps[name]
	if !ok {
		return Capability{}, false
	}
	return *c, true
}

// RecordOutcome atomically bumps the usage count and folds one success or
// failure into the running success rate. Two concurrent calls on the same
// name cannot lose an update: the whole read-modify-write runs under the
// registry lock.
func (r *Registry) RecordOutcome(name string, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.caps[name]
	if !ok {
		// The dispatcher registers before invoking; reaching here is a bug.
		return fmt.Errorf("recordOutcome on unknown capability %s", name)
	}

	oldCount := c.UsageCount
	s := 0.0
	if success {
		s = 1.0
	}
	c.UsageCount = oldCount + 1
	c.SuccessRate = (c.SuccessRate*float64(oldCount) + s) / float64(c.UsageCount)
	c.UpdatedAt = time.Now().UTC()

	if err := r.persistLocked(c); err != nil {
		// stats stay consistent in memory; persistence catches up on the
		// next successful write
		logx.Warn("Registry", "persist outcome for %s: %v", name, err)
	}
	return nil
}

// Deactivate hides a capability from Find without deleting its row.
func (r *Registry) Deactivate(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.caps[name]
	if !ok {
		return fmt.Errorf("deactivate unknown capability %s", name)
	}
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
	return r.persistLocked(c)
}

// List returns all capabilities ordered by usage count descending, name
// ascending on ties.
func (r *Registry) List() []Capability {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Capability, 0, len(r.caps))
	for _, c := range r.caps {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Registry) persistLocked(c *Capability) error {
	if r.db == nil {
		return nil
	}
	active := 0
	if c.IsActive {
		active = 1
	}
	_, err := r.db.Exec(`
		INSERT INTO capabilities (name, description, operation, parameter_schema,
			is_active, usage_count, success_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			operation = excluded.operation,
			parameter_schema = excluded.parameter_schema,
			is_active = excluded.is_active,
			usage_count = excluded.usage_count,
			success_rate = excluded.success_rate,
			updated_at = excluded.updated_at`,
		c.Name, c.Description, c.Operation, c.ParameterSchema,
		active, c.UsageCount, c.SuccessRate, c.CreatedAt, c.UpdatedAt)
	return err
}
