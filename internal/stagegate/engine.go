// Package stagegate defines the pipeline's stage graph, the approval gates
// attached to individual transitions, and role-based clearance of those gates.
package stagegate

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// GateConfig declares a gate on a single hop.
type GateConfig struct {
	From    domain.Stage `koanf:"from" json:"from"`
	To      domain.Stage `koanf:"to" json:"to"`
	MinRole domain.Role  `koanf:"min_role" json:"min_role"`
	Label   string       `koanf:"label" json:"label"`
}

// DefaultGates returns the standard approval gates.
func DefaultGates() []GateConfig {
	return []GateConfig{
		{domain.StageQualifying, domain.StageDrafting, domain.RolePM, "Commit team time to drafting"},
		{domain.StageDrafting, domain.StageReview, domain.RolePM, "Draft ready for internal review"},
		{domain.StageReview, domain.StageSubmitted, domain.RoleDirector, "Director sign-off before submission"},
		{domain.StageAwaiting, domain.StageWon, domain.RoleDirector, "Confirm award"},
		{domain.StageAwaiting, domain.StageLost, domain.RoleDirector, "Confirm loss"},
	}
}

// Decision is the outcome of a single-hop gate check.
type Decision struct {
	Allowed bool         `json:"allowed"`
	From    domain.Stage `json:"from"`
	To      domain.Stage `json:"to"`
	Gate    *domain.Gate `json:"gate,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithGraph replaces the default transition graph.
func WithGraph(g *Graph) Option {
	return func(e *Engine) {
		e.graph = g
	}
}

// WithRoles replaces the default role table.
func WithRoles(roles domain.RoleTable) Option {
	return func(e *Engine) {
		e.pendingRoles = roles
	}
}

// WithGates replaces the default gates.
func WithGates(gates []GateConfig) Option {
	return func(e *Engine) {
		e.pendingGates = gates
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine evaluates stage transitions against the graph and its gates.
// Gates and roles can be swapped at runtime with Reload.
type Engine struct {
	graph  *Graph
	logger *slog.Logger

	mu    sync.RWMutex
	roles domain.RoleTable
	gates map[string]domain.Gate

	pendingRoles domain.RoleTable
	pendingGates []GateConfig
}

// New creates an engine. Gates must sit on graph edges and name known roles.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		graph:        DefaultGraph(),
		logger:       slog.Default(),
		pendingRoles: domain.DefaultRoles(),
		pendingGates: DefaultGates(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.Reload(e.pendingRoles, e.pendingGates); err != nil {
		return nil, err
	}
	e.pendingRoles, e.pendingGates = nil, nil
	return e, nil
}

// Reload atomically replaces the role table and gate set.
func (e *Engine) Reload(roles domain.RoleTable, gates []GateConfig) error {
	if len(roles) == 0 {
		roles = domain.DefaultRoles()
	}

	compiled := make(map[string]domain.Gate, len(gates))
	for _, gc := range gates {
		if !gc.From.Valid() || !gc.To.Valid() {
			return fmt.Errorf("gate %s: unknown stage", domain.GateKey(gc.From, gc.To))
		}
		if !e.graph.HasEdge(gc.From, gc.To) {
			return fmt.Errorf("gate %s: no such transition", domain.GateKey(gc.From, gc.To))
		}
		level, ok := roles[gc.MinRole]
		if !ok {
			return fmt.Errorf("gate %s: unknown role %q", domain.GateKey(gc.From, gc.To), gc.MinRole)
		}
		key := domain.GateKey(gc.From, gc.To)
		if _, dup := compiled[key]; dup {
			return fmt.Errorf("gate %s registered twice", key)
		}
		label := gc.Label
		if label == "" {
			label = fmt.Sprintf("%s approval required to move from %s to %s", gc.MinRole, gc.From.Label(), gc.To.Label())
		}
		compiled[key] = domain.Gate{
			Key:     key,
			From:    gc.From,
			To:      gc.To,
			MinRole: gc.MinRole,
			Level:   level,
			Label:   label,
		}
	}

	table := make(domain.RoleTable, len(roles))
	for r, lvl := range roles {
		table[r] = lvl
	}

	e.mu.Lock()
	e.roles = table
	e.gates = compiled
	e.mu.Unlock()

	e.logger.Debug("stage gates loaded", slog.Int("gates", len(compiled)), slog.Int("roles", len(table)))
	return nil
}

// Graph returns the transition graph.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Level returns a role's authority level, or -1 when unknown.
func (e *Engine) Level(role domain.Role) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roles.Level(role)
}

// Roles returns a copy of the role table.
func (e *Engine) Roles() domain.RoleTable {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(domain.RoleTable, len(e.roles))
	for r, lvl := range e.roles {
		out[r] = lvl
	}
	return out
}

// Gate returns the gate registered on from->to.
func (e *Engine) Gate(from, to domain.Stage) (domain.Gate, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.gates[domain.GateKey(from, to)]
	return g, ok
}

// Gates returns every registered gate ordered by key.
func (e *Engine) Gates() []domain.Gate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.Gate, 0, len(e.gates))
	for _, g := range e.gates {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// CanAdvance checks a single hop. A hop with no gate is allowed for every
// role; a gated hop is allowed only when the role's level reaches the gate's.
// Pairs that are not graph edges, including any move out of a terminal
// stage, are refused with a descriptive reason.
func (e *Engine) CanAdvance(from, to domain.Stage, role domain.Role) Decision {
	d := Decision{From: from, To: to}

	switch {
	case !from.Valid() || !to.Valid():
		d.Reason = fmt.Sprintf("unknown stage in transition %s", domain.GateKey(from, to))
		return d
	case from.Terminal():
		d.Reason = fmt.Sprintf("grant is %s; terminal stages cannot be changed", from.Label())
		return d
	case !e.graph.HasEdge(from, to):
		d.Reason = fmt.Sprintf("cannot move directly from %s to %s", from.Label(), to.Label())
		return d
	}

	gate, gated := e.Gate(from, to)
	if !gated {
		d.Allowed = true
		return d
	}

	d.Gate = &gate
	if e.Level(role) >= gate.Level {
		d.Allowed = true
		return d
	}
	d.Reason = gate.Label
	return d
}

// Plan decomposes from -> to into single hops along the shortest path.
func (e *Engine) Plan(from, to domain.Stage) ([]Hop, error) {
	if from.Terminal() {
		return nil, domain.ErrIllegalTransition(fmt.Sprintf("grant is %s; terminal stages cannot be changed", from.Label()))
	}
	if from == to {
		return nil, domain.ErrIllegalTransition(fmt.Sprintf("grant is already in %s", to.Label()))
	}
	hops, ok := e.graph.Path(from, to)
	if !ok {
		return nil, domain.ErrIllegalTransition(fmt.Sprintf("no route from %s to %s", from.Label(), to.Label()))
	}
	return hops, nil
}

// CheckPath evaluates every hop of the planned route in order and stops at
// the first refusal. Intermediate gates are never skipped.
func (e *Engine) CheckPath(from, to domain.Stage, role domain.Role) ([]Decision, error) {
	hops, err := e.Plan(from, to)
	if err != nil {
		return nil, err
	}
	decisions := make([]Decision, 0, len(hops))
	for _, h := range hops {
		d := e.CanAdvance(h.From, h.To, role)
		decisions = append(decisions, d)
		if !d.Allowed {
			break
		}
	}
	return decisions, nil
}
