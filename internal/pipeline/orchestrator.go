package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/grant-pipeline/internal/assembler"
	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
	"github.com/tjfontaine/grant-pipeline/internal/gateway"
	"github.com/tjfontaine/grant-pipeline/internal/readiness"
	"github.com/tjfontaine/grant-pipeline/internal/stagegate"
	"github.com/tjfontaine/grant-pipeline/internal/tokens"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	ports.GrantStore
	ports.ComplianceStore
	ports.UploadStore
	ports.ProfileStore
	ports.MemberStore
	ports.ApprovalStore
}

// Orchestrator is the pipeline façade.
type Orchestrator struct {
	store     Store
	engine    *stagegate.Engine
	approvals *stagegate.Approvals
	gateway   *gateway.Client
	assembler *assembler.Assembler
	uploads   *assembler.UploadCache
	prompts   *Prompts
	tokens    *tokens.Registry
	activity  ports.ActivityLogger
	logger    *slog.Logger
	now       func() time.Time
	model     string

	mu         sync.RWMutex
	checklists readiness.Checklists
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithActivityLogger sets the audit sink.
func WithActivityLogger(a ports.ActivityLogger) Option {
	return func(o *Orchestrator) { o.activity = a }
}

// WithAssembler replaces the context assembler.
func WithAssembler(a *assembler.Assembler) Option {
	return func(o *Orchestrator) { o.assembler = a }
}

// WithUploadCache replaces the upload cache.
func WithUploadCache(c *assembler.UploadCache) Option {
	return func(o *Orchestrator) { o.uploads = c }
}

// WithChecklists replaces the funder-type document checklists.
func WithChecklists(c readiness.Checklists) Option {
	return func(o *Orchestrator) { o.checklists = c }
}

// WithPrompts replaces the prompt set.
func WithPrompts(p *Prompts) Option {
	return func(o *Orchestrator) { o.prompts = p }
}

// WithModel names the model used for token estimates in the audit log.
func WithModel(model string) Option {
	return func(o *Orchestrator) { o.model = model }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator.
func New(store Store, engine *stagegate.Engine, gw *gateway.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		engine:     engine,
		gateway:    gw,
		assembler:  assembler.New(),
		prompts:    DefaultPrompts(),
		tokens:     tokens.NewRegistry(),
		activity:   nopActivity{},
		logger:     slog.Default(),
		now:        time.Now,
		checklists: readiness.DefaultChecklists(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.uploads == nil {
		o.uploads = assembler.NewUploadCache(store, assembler.DefaultCacheSize, assembler.DefaultCacheTTL)
	}
	o.approvals = stagegate.NewApprovals(engine, store, o.logger)
	o.approvals.SetClock(o.now)
	return o
}

// Engine returns the stage-gate engine.
func (o *Orchestrator) Engine() *stagegate.Engine { return o.engine }

// SetChecklists replaces the checklists used by ComputeReadiness.
func (o *Orchestrator) SetChecklists(c readiness.Checklists) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.checklists = c
}

// Grant loads a grant.
func (o *Orchestrator) Grant(ctx context.Context, id string) (*domain.Grant, error) {
	g, err := o.store.GetGrant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get grant %s: %w", id, err)
	}
	return g, nil
}

// CreateGrant validates and saves a new grant. The ID is always generated;
// the log, AI artifacts and timestamps supplied by the caller are discarded.
// Stage (Scouted) and owner (unassigned) are filled in when empty.
func (o *Orchestrator) CreateGrant(ctx context.Context, g *domain.Grant) error {
	if g.OrgID == "" {
		return domain.ErrInvalidRequest("org_id is required").WithParam("org_id")
	}
	if g.Name == "" {
		return domain.ErrInvalidRequest("name is required").WithParam("name")
	}
	if g.FunderType != "" && !g.FunderType.Valid() {
		return domain.ErrInvalidRequest(fmt.Sprintf("unknown funder type %q", g.FunderType)).WithParam("funder_type")
	}
	g.ID = uuid.New().String()
	g.Log = nil
	g.Draft, g.Research, g.FitScore, g.FollowUpDraft, g.WinLoss = nil, nil, nil, nil, nil
	g.History = domain.ArtifactHistory{}
	if g.Stage == "" {
		g.Stage = domain.StageScouted
	}
	if !g.Stage.Valid() {
		return domain.ErrInvalidRequest(fmt.Sprintf("unknown stage %q", g.Stage)).WithParam("stage")
	}
	if g.Owner == "" {
		g.Owner = domain.Unassigned
	}
	now := o.now()
	g.CreatedAt, g.UpdatedAt = now, now
	g.AppendLog(now, "Added to pipeline in "+g.Stage.Label())
	if err := o.store.SaveGrant(ctx, g); err != nil {
		return fmt.Errorf("save grant: %w", err)
	}
	return nil
}

// ListGrants returns an organisation's grants.
func (o *Orchestrator) ListGrants(ctx context.Context, orgID string) ([]*domain.Grant, error) {
	grants, err := o.store.ListGrants(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return grants, nil
}

// Member resolves a team member.
func (o *Orchestrator) Member(ctx context.Context, id string) (*domain.Member, error) {
	m, err := o.store.GetMember(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get member %s: %w", id, err)
	}
	return m, nil
}

// ComputeReadiness scores a grant against its funder type's checklist and
// the organisation's compliance documents.
func (o *Orchestrator) ComputeReadiness(ctx context.Context, g *domain.Grant) (domain.Readiness, error) {
	docs, err := o.store.ListComplianceDocs(ctx, g.OrgID)
	if err != nil {
		return domain.Readiness{}, fmt.Errorf("list compliance docs: %w", err)
	}
	o.mu.RLock()
	checklist := o.checklists.For(g.FunderType)
	o.mu.RUnlock()

	return readiness.Score(readiness.Input{
		Grant:          g,
		Checklist:      checklist,
		ComplianceDocs: docs,
	}), nil
}

// profile loads the organisation profile. A missing profile yields an empty
// one so AI actions still run.
func (o *Orchestrator) profile(ctx context.Context, orgID string) (*domain.OrgProfile, error) {
	p, err := o.store.GetProfile(ctx, orgID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.OrgProfile{OrgID: orgID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (o *Orchestrator) log(ctx context.Context, orgID, eventType string, meta map[string]any) {
	o.activity.Log(ctx, orgID, eventType, meta)
}

type nopActivity struct{}

func (nopActivity) Log(context.Context, string, string, map[string]any) {}
