package memory

import (
	"context"
	"testing"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/storage/storetest"
)

func TestMemoryStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return New()
	})
}

func TestMemoryStore_CreateApprovalDuplicate(t *testing.T) {
	store := New()
	a := &domain.Approval{ID: "a-1", GrantID: "g-1", Status: domain.ApprovalPending}

	if err := store.CreateApproval(context.Background(), a); err != nil {
		t.Fatalf("CreateApproval() error = %v", err)
	}
	if err := store.CreateApproval(context.Background(), a); err == nil {
		t.Error("CreateApproval() with duplicate id should fail")
	}
}

func TestMemoryStore_SaveGrantCopiesInput(t *testing.T) {
	store := New()
	g := &domain.Grant{ID: "g-1", OrgID: "org-1", Stage: domain.StageScouted}
	if err := store.SaveGrant(context.Background(), g); err != nil {
		t.Fatalf("SaveGrant() error = %v", err)
	}

	g.Stage = domain.StageLost

	got, err := store.GetGrant(context.Background(), "g-1")
	if err != nil {
		t.Fatalf("GetGrant() error = %v", err)
	}
	if got.Stage != domain.StageScouted {
		t.Errorf("Stage = %s, want scouted", got.Stage)
	}
}
