package stagegate

import (
	"context"
	"testing"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/storage/memory"
)

func approvalFixture(t *testing.T) (*Approvals, *memory.Store, *domain.Grant, domain.Gate) {
	t.Helper()
	e := newTestEngine(t)
	store := memory.New()
	a := NewApprovals(e, store, nil)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a.SetClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	grant := &domain.Grant{ID: "g1", OrgID: "org1", Stage: domain.StageReview}
	gate, ok := e.Gate(domain.StageReview, domain.StageSubmitted)
	if !ok {
		t.Fatal("missing Review->Submitted gate")
	}
	return a, store, grant, gate
}

func TestRecordApproval_RequestThenResolve(t *testing.T) {
	a, store, grant, gate := approvalFixture(t)
	ctx := context.Background()

	pm := domain.Member{ID: "m-pm", OrgID: "org1", Role: domain.RolePM}
	director := domain.Member{ID: "m-dir", OrgID: "org1", Role: domain.RoleDirector}

	req, err := a.RecordApproval(ctx, grant, gate, domain.DecisionRequest, pm, "ready to go")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Status != domain.ApprovalPending || req.RequestedBy != pm.ID {
		t.Fatalf("unexpected approval %+v", req)
	}

	// A pm endorsement does not clear a director gate.
	endorsed, err := a.RecordApproval(ctx, grant, gate, domain.DecisionApprove, pm, "")
	if err != nil {
		t.Fatalf("endorse: %v", err)
	}
	if endorsed.ID != req.ID || endorsed.Status != domain.ApprovalPending {
		t.Fatalf("endorsement should keep the same pending approval: %+v", endorsed)
	}

	resolved, err := a.RecordApproval(ctx, grant, gate, domain.DecisionApprove, director, "go")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resolved.Status != domain.ApprovalApproved || resolved.ResolvedAt == nil {
		t.Fatalf("expected approved, got %+v", resolved)
	}
	if len(resolved.Reviews) != 3 {
		t.Errorf("reviews = %d, want 3", len(resolved.Reviews))
	}

	ok, err := a.Approved(ctx, grant.ID, gate.Key)
	if err != nil || !ok {
		t.Fatalf("Approved() = %v, %v", ok, err)
	}
	consumed, err := a.Consume(ctx, grant.ID, gate.Key)
	if err != nil || !consumed {
		t.Fatalf("Consume() = %v, %v", consumed, err)
	}
	consumed, err = a.Consume(ctx, grant.ID, gate.Key)
	if err != nil || consumed {
		t.Fatalf("second Consume() = %v, %v", consumed, err)
	}

	list, _ := store.ListApprovals(ctx, grant.ID)
	if len(list) != 1 || !list[0].Consumed {
		t.Errorf("stored approvals = %+v", list)
	}
}

func TestRecordApproval_RejectByAuthorisedReviewer(t *testing.T) {
	a, _, grant, gate := approvalFixture(t)
	ctx := context.Background()

	contributor := domain.Member{ID: "m-c", OrgID: "org1", Role: domain.RoleContributor}
	director := domain.Member{ID: "m-dir", OrgID: "org1", Role: domain.RoleDirector}

	req, _ := a.RecordApproval(ctx, grant, gate, domain.DecisionRequest, contributor, "")
	rejected, err := a.Review(ctx, req.ID, domain.DecisionReject, director, "budget unclear")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if rejected.Status != domain.ApprovalRejected {
		t.Fatalf("status = %s", rejected.Status)
	}

	if _, err := a.Review(ctx, req.ID, domain.DecisionApprove, director, ""); err == nil {
		t.Error("reviewing a resolved approval should fail")
	}

	// A fresh request after rejection opens a new record.
	again, err := a.RecordApproval(ctx, grant, gate, domain.DecisionRequest, contributor, "fixed")
	if err != nil {
		t.Fatalf("re-request: %v", err)
	}
	if again.ID == req.ID || again.Status != domain.ApprovalPending {
		t.Errorf("expected new pending approval, got %+v", again)
	}
}

func TestRecordApproval_Validation(t *testing.T) {
	a, _, grant, gate := approvalFixture(t)
	ctx := context.Background()

	outsider := domain.Member{ID: "x", OrgID: "other", Role: domain.RoleAdmin}
	if _, err := a.RecordApproval(ctx, grant, gate, domain.DecisionApprove, outsider, ""); err == nil {
		t.Error("reviewer from another org should be refused")
	}
	member := domain.Member{ID: "m", OrgID: "org1", Role: domain.RoleAdmin}
	if _, err := a.RecordApproval(ctx, grant, gate, domain.Decision("maybe"), member, ""); err == nil {
		t.Error("unknown decision should be refused")
	}
}
