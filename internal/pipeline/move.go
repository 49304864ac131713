package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/stagegate"
)

// MoveResult is the outcome of a stage move. A refused move is a result,
// not an error.
type MoveResult struct {
	Allowed bool         `json:"allowed"`
	From    domain.Stage `json:"from"`
	To      domain.Stage `json:"to"`

	// Stage is the grant's stage after the attempt.
	Stage domain.Stage `json:"stage"`

	// Reason is the blocking gate's label, or why the move is illegal.
	Reason string       `json:"reason,omitempty"`
	Gate   *domain.Gate `json:"gate,omitempty"`

	// Hops holds one decision per hop evaluated, ending at the first
	// refusal.
	Hops []stagegate.Decision `json:"hops"`

	// Approvals lists the gates cleared by a prior approval.
	Approvals []string `json:"approvals,omitempty"`

	Grant *domain.Grant `json:"grant,omitempty"`
}

// AttemptStageMove moves a grant to stage to on behalf of actor. Every hop
// on the way is checked and a single refusal blocks the whole move. A gate
// the actor cannot clear is passed when an approved, unused approval exists
// for it; that approval is then consumed. Each hop appends "Moved to
// <Stage>" to the grant log.
func (o *Orchestrator) AttemptStageMove(ctx context.Context, grantID string, to domain.Stage, actor domain.Member) (*MoveResult, error) {
	g, err := o.Grant(ctx, grantID)
	if err != nil {
		return nil, err
	}

	res := &MoveResult{From: g.Stage, To: to, Stage: g.Stage, Grant: g}

	if actor.OrgID != "" && actor.OrgID != g.OrgID {
		res.Reason = "actor is not a member of the grant's organisation"
		o.denied(ctx, g, actor, res)
		return res, nil
	}

	hops, err := o.engine.Plan(g.Stage, to)
	if err != nil {
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) {
			return nil, err
		}
		res.Reason = apiErr.Message
		o.denied(ctx, g, actor, res)
		return res, nil
	}

	var consume []string
	for _, hop := range hops {
		d := o.engine.CanAdvance(hop.From, hop.To, actor.Role)
		if !d.Allowed && d.Gate != nil {
			approved, err := o.approvals.Approved(ctx, g.ID, d.Gate.Key)
			if err != nil {
				return nil, err
			}
			if approved {
				d.Allowed = true
				d.Reason = ""
				consume = append(consume, d.Gate.Key)
			}
		}
		res.Hops = append(res.Hops, d)
		if !d.Allowed {
			res.Reason = d.Reason
			res.Gate = d.Gate
			o.denied(ctx, g, actor, res)
			return res, nil
		}
	}

	now := o.now()
	for _, hop := range hops {
		g.AppendLog(now, "Moved to "+hop.To.Label())
	}
	g.Stage = to
	g.UpdatedAt = now
	if err := o.store.SaveGrant(ctx, g); err != nil {
		return nil, fmt.Errorf("save grant: %w", err)
	}

	for _, key := range consume {
		if _, err := o.approvals.Consume(ctx, g.ID, key); err != nil {
			o.logger.Warn("approval not consumed after move",
				slog.String("grant_id", g.ID),
				slog.String("gate", key),
				slog.String("error", err.Error()))
			continue
		}
		res.Approvals = append(res.Approvals, key)
	}

	res.Allowed = true
	res.Stage = to
	o.logger.Info("grant moved",
		slog.String("grant_id", g.ID),
		slog.String("from", string(res.From)),
		slog.String("to", string(to)),
		slog.String("actor", actor.ID))
	o.log(ctx, g.OrgID, domain.EventStageMove, map[string]any{
		"grant_id":  g.ID,
		"from":      string(res.From),
		"to":        string(to),
		"hops":      len(hops),
		"actor":     actor.ID,
		"role":      string(actor.Role),
		"approvals": res.Approvals,
	})
	return res, nil
}

func (o *Orchestrator) denied(ctx context.Context, g *domain.Grant, actor domain.Member, res *MoveResult) {
	meta := map[string]any{
		"grant_id": g.ID,
		"from":     string(res.From),
		"to":       string(res.To),
		"actor":    actor.ID,
		"role":     string(actor.Role),
		"reason":   res.Reason,
	}
	if res.Gate != nil {
		meta["gate"] = res.Gate.Key
	}
	o.log(ctx, g.OrgID, domain.EventStageDenied, meta)
}

// RequestApproval opens (or reuses) an approval for the hop from the grant's
// current stage to to. The hop must carry a gate.
func (o *Orchestrator) RequestApproval(ctx context.Context, grantID string, to domain.Stage, actor domain.Member, note string) (*domain.Approval, error) {
	g, err := o.Grant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	gate, ok := o.engine.Gate(g.Stage, to)
	if !ok {
		return nil, domain.ErrInvalidRequest(fmt.Sprintf("no approval gate from %s to %s", g.Stage.Label(), to.Label())).WithParam("to")
	}
	a, err := o.approvals.RecordApproval(ctx, g, gate, domain.DecisionRequest, actor, note)
	if err != nil {
		return nil, err
	}
	o.log(ctx, g.OrgID, domain.EventApproval, map[string]any{
		"grant_id":    g.ID,
		"approval_id": a.ID,
		"gate":        gate.Key,
		"decision":    string(domain.DecisionRequest),
		"actor":       actor.ID,
	})
	return a, nil
}

// ReviewApproval records reviewer's decision on an approval.
func (o *Orchestrator) ReviewApproval(ctx context.Context, approvalID string, decision domain.Decision, reviewer domain.Member, note string) (*domain.Approval, error) {
	a, err := o.approvals.Review(ctx, approvalID, decision, reviewer, note)
	if err != nil {
		return nil, err
	}
	o.log(ctx, a.OrgID, domain.EventApproval, map[string]any{
		"grant_id":    a.GrantID,
		"approval_id": a.ID,
		"gate":        a.GateKey,
		"decision":    string(decision),
		"status":      string(a.Status),
		"actor":       reviewer.ID,
	})
	return a, nil
}

// ListApprovals returns a grant's approvals.
func (o *Orchestrator) ListApprovals(ctx context.Context, grantID string) ([]*domain.Approval, error) {
	list, err := o.store.ListApprovals(ctx, grantID)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	return list, nil
}
