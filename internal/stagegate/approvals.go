package stagegate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
)

// Approvals manages asynchronous sign-off for gated transitions. A member
// who cannot clear a gate can request approval; a member whose level reaches
// the gate's can resolve it.
type Approvals struct {
	engine *Engine
	store  ports.ApprovalStore
	logger *slog.Logger
	now    func() time.Time
}

// NewApprovals creates an approval manager.
func NewApprovals(engine *Engine, store ports.ApprovalStore, logger *slog.Logger) *Approvals {
	if logger == nil {
		logger = slog.Default()
	}
	return &Approvals{
		engine: engine,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (a *Approvals) SetClock(now func() time.Time) {
	a.now = now
}

// RecordApproval records a decision on the grant's approval for gate. The
// open approval is reused when one exists, otherwise a new pending record
// is created. Approve and reject only resolve the record when the reviewer's
// level reaches the gate's; below that they are kept as endorsements.
func (a *Approvals) RecordApproval(ctx context.Context, grant *domain.Grant, gate domain.Gate, decision domain.Decision, reviewer domain.Member, note string) (*domain.Approval, error) {
	if err := validateDecision(decision); err != nil {
		return nil, err
	}
	if reviewer.OrgID != "" && reviewer.OrgID != grant.OrgID {
		return nil, domain.ErrPermission("reviewer does not belong to the grant's organisation")
	}

	existing, err := a.store.FindOpenApproval(ctx, grant.ID, gate.Key)
	if err != nil {
		return nil, fmt.Errorf("find approval: %w", err)
	}

	if existing == nil {
		existing = &domain.Approval{
			ID:          uuid.New().String(),
			OrgID:       grant.OrgID,
			GrantID:     grant.ID,
			GateKey:     gate.Key,
			From:        gate.From,
			To:          gate.To,
			Status:      domain.ApprovalPending,
			RequestedBy: reviewer.ID,
			RequestedAt: a.now(),
		}
		a.apply(existing, gate, decision, reviewer, note)
		if err := a.store.CreateApproval(ctx, existing); err != nil {
			return nil, fmt.Errorf("create approval: %w", err)
		}
		return existing, nil
	}

	if existing.Status != domain.ApprovalPending {
		// Already approved and waiting to be used.
		return existing, nil
	}

	a.apply(existing, gate, decision, reviewer, note)
	if err := a.store.UpdateApproval(ctx, existing); err != nil {
		return nil, fmt.Errorf("update approval: %w", err)
	}
	return existing, nil
}

// Review records a decision on an existing approval by id.
func (a *Approvals) Review(ctx context.Context, approvalID string, decision domain.Decision, reviewer domain.Member, note string) (*domain.Approval, error) {
	if err := validateDecision(decision); err != nil {
		return nil, err
	}
	approval, err := a.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if reviewer.OrgID != "" && reviewer.OrgID != approval.OrgID {
		return nil, domain.ErrPermission("reviewer does not belong to the approval's organisation")
	}
	if approval.Status != domain.ApprovalPending {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("approval %s is already %s", approval.ID, approval.Status))
	}

	gate, ok := a.engine.Gate(approval.From, approval.To)
	if !ok {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("gate %s is no longer configured", approval.GateKey))
	}

	a.apply(approval, gate, decision, reviewer, note)
	if err := a.store.UpdateApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("update approval: %w", err)
	}
	return approval, nil
}

// Consume marks the grant's approved approval for gateKey as used. It reports
// false when no approved, unconsumed approval exists.
func (a *Approvals) Consume(ctx context.Context, grantID, gateKey string) (bool, error) {
	approval, err := a.store.FindOpenApproval(ctx, grantID, gateKey)
	if err != nil {
		return false, fmt.Errorf("find approval: %w", err)
	}
	if approval == nil || approval.Status != domain.ApprovalApproved || approval.Consumed {
		return false, nil
	}
	approval.Consumed = true
	if err := a.store.UpdateApproval(ctx, approval); err != nil {
		return false, fmt.Errorf("consume approval: %w", err)
	}
	return true, nil
}

// Approved reports whether an approved, unconsumed approval exists.
func (a *Approvals) Approved(ctx context.Context, grantID, gateKey string) (bool, error) {
	approval, err := a.store.FindOpenApproval(ctx, grantID, gateKey)
	if err != nil {
		return false, fmt.Errorf("find approval: %w", err)
	}
	return approval != nil && approval.Status == domain.ApprovalApproved && !approval.Consumed, nil
}

func (a *Approvals) apply(approval *domain.Approval, gate domain.Gate, decision domain.Decision, reviewer domain.Member, note string) {
	now := a.now()
	approval.Reviews = append(approval.Reviews, domain.Review{
		ReviewerID: reviewer.ID,
		Role:       reviewer.Role,
		Decision:   decision,
		Note:       note,
		At:         now,
	})

	if decision == domain.DecisionRequest || a.engine.Level(reviewer.Role) < gate.Level {
		return
	}

	switch decision {
	case domain.DecisionApprove:
		approval.Status = domain.ApprovalApproved
	case domain.DecisionReject:
		approval.Status = domain.ApprovalRejected
	}
	approval.ResolvedAt = &now

	a.logger.Info("approval resolved",
		slog.String("approval_id", approval.ID),
		slog.String("grant_id", approval.GrantID),
		slog.String("gate", approval.GateKey),
		slog.String("status", string(approval.Status)),
		slog.String("reviewer", reviewer.ID))
}

func validateDecision(d domain.Decision) error {
	switch d {
	case domain.DecisionRequest, domain.DecisionApprove, domain.DecisionReject:
		return nil
	}
	return domain.ErrInvalidRequest(fmt.Sprintf("unknown decision %q", d)).WithParam("decision")
}
