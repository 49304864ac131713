// Package storetest is a conformance suite run against every storage
// backend. Each backend's tests call Run with a constructor that returns an
// empty store.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
)

// Store is the surface exercised by the suite.
type Store interface {
	ports.Store
	ports.Seeder
}

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) Store

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// Run executes every conformance test against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"GrantRoundTrip", testGrantRoundTrip},
		{"GrantNotFound", testGrantNotFound},
		{"GrantRequiresID", testGrantRequiresID},
		{"GrantKeepsCreatedAt", testGrantKeepsCreatedAt},
		{"ListGrantsOrder", testListGrantsOrder},
		{"ComplianceDocs", testComplianceDocs},
		{"UploadContext", testUploadContext},
		{"Profile", testProfile},
		{"Members", testMembers},
		{"ApprovalLifecycle", testApprovalLifecycle},
		{"ApprovalNotFound", testApprovalNotFound},
		{"Activity", testActivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func sampleGrant(id string) *domain.Grant {
	deadline := base.AddDate(0, 1, 0)
	return &domain.Grant{
		ID:         id,
		OrgID:      "org-1",
		Name:       "Digital Skills Fund",
		Funder:     "Telkom Foundation",
		FunderType: domain.FunderCorporateCSI,
		Geography:  []string{"Gauteng"},
		FocusAreas: []string{"youth", "coding"},
		Ask:        500000,
		AskSource:  domain.AskSourceManual,
		Stage:      domain.StageDrafting,
		Priority:   3,
		Owner:      "m-1",
		Deadline:   &deadline,
		Log: []domain.LogEntry{
			{Date: base, Text: "Added to pipeline in Scouted"},
			{Date: base.Add(time.Hour), Text: "Moved to Drafting"},
		},
		Documents: map[string]bool{"budget": true, "tax_clearance": false},
		FollowUps: []domain.FollowUp{{Date: base.AddDate(0, 0, 7), Label: "Call programme officer"}},
		Budget: &domain.BudgetTable{
			Items: []domain.BudgetLine{{Label: "Stipends", Amount: 300000}},
			Total: 300000,
		},
		Draft: &domain.Artifact{Text: "Proposal text", GeneratedAt: base},
		History: domain.ArtifactHistory{
			Draft: []domain.Artifact{{Text: "Older proposal", GeneratedAt: base.Add(-time.Hour)}},
		},
		CreatedAt: base,
	}
}

func testGrantRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	want := sampleGrant("g-1")
	if err := s.SaveGrant(ctx, want); err != nil {
		t.Fatalf("SaveGrant() error = %v", err)
	}

	got, err := s.GetGrant(ctx, "g-1")
	if err != nil {
		t.Fatalf("GetGrant() error = %v", err)
	}

	if got.Name != want.Name || got.Stage != want.Stage || got.Ask != want.Ask {
		t.Errorf("GetGrant() = %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(got.Documents, want.Documents) {
		t.Errorf("Documents = %v, want %v", got.Documents, want.Documents)
	}
	if len(got.Log) != 2 || got.Log[1].Text != "Moved to Drafting" || !got.Log[1].Date.Equal(want.Log[1].Date) {
		t.Errorf("Log = %+v, want %+v", got.Log, want.Log)
	}
	if len(got.FollowUps) != 1 || got.FollowUps[0].Label != "Call programme officer" {
		t.Errorf("FollowUps = %+v", got.FollowUps)
	}
	if got.Budget == nil || got.Budget.Total != 300000 || len(got.Budget.Items) != 1 {
		t.Errorf("Budget = %+v", got.Budget)
	}
	if got.Draft == nil || got.Draft.Text != "Proposal text" {
		t.Errorf("Draft = %+v", got.Draft)
	}
	if len(got.History.Draft) != 1 || got.History.Draft[0].Text != "Older proposal" {
		t.Errorf("History.Draft = %+v", got.History.Draft)
	}
	if got.Deadline == nil || !got.Deadline.Equal(*want.Deadline) {
		t.Errorf("Deadline = %v, want %v", got.Deadline, want.Deadline)
	}

	// Mutating the returned copy must not leak into the store.
	got.Log = append(got.Log, domain.LogEntry{Date: base, Text: "local only"})
	again, err := s.GetGrant(ctx, "g-1")
	if err != nil {
		t.Fatalf("GetGrant() error = %v", err)
	}
	if len(again.Log) != 2 {
		t.Errorf("stored log length = %d, want 2", len(again.Log))
	}
}

func testGrantNotFound(t *testing.T, s Store) {
	_, err := s.GetGrant(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetGrant() error = %v, want ErrNotFound", err)
	}
}

func testGrantRequiresID(t *testing.T, s Store) {
	g := sampleGrant("")
	if err := s.SaveGrant(context.Background(), g); err == nil {
		t.Error("SaveGrant() without id should fail")
	}
}

func testGrantKeepsCreatedAt(t *testing.T, s Store) {
	ctx := context.Background()
	g := sampleGrant("g-1")
	if err := s.SaveGrant(ctx, g); err != nil {
		t.Fatalf("SaveGrant() error = %v", err)
	}

	g.CreatedAt = time.Time{}
	g.Stage = domain.StageReview
	if err := s.SaveGrant(ctx, g); err != nil {
		t.Fatalf("SaveGrant() error = %v", err)
	}

	got, err := s.GetGrant(ctx, "g-1")
	if err != nil {
		t.Fatalf("GetGrant() error = %v", err)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}
	if got.Stage != domain.StageReview {
		t.Errorf("Stage = %s, want review", got.Stage)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func testListGrantsOrder(t *testing.T, s Store) {
	ctx := context.Background()
	seed := []struct {
		id       string
		org      string
		priority int
		offset   time.Duration
	}{
		{"low", "org-1", 1, 0},
		{"high-late", "org-1", 5, 2 * time.Hour},
		{"high-early", "org-1", 5, time.Hour},
		{"other-org", "org-2", 9, 0},
	}
	for _, sg := range seed {
		g := sampleGrant(sg.id)
		g.OrgID = sg.org
		g.Priority = sg.priority
		g.CreatedAt = base.Add(sg.offset)
		if err := s.SaveGrant(ctx, g); err != nil {
			t.Fatalf("SaveGrant(%s) error = %v", sg.id, err)
		}
	}

	grants, err := s.ListGrants(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	var ids []string
	for _, g := range grants {
		ids = append(ids, g.ID)
	}
	want := []string{"high-early", "high-late", "low"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ListGrants() ids = %v, want %v", ids, want)
	}

	empty, err := s.ListGrants(ctx, "org-none")
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListGrants(org-none) = %d grants, want 0", len(empty))
	}
}

func testComplianceDocs(t *testing.T, s Store) {
	ctx := context.Background()
	expiry := base.AddDate(1, 0, 0)
	docs := []domain.ComplianceDoc{
		{OrgID: "org-1", DocID: "tax_clearance", Status: domain.DocExpired},
		{OrgID: "org-1", DocID: "bbbee_certificate", Status: domain.DocValid, Expiry: &expiry},
		{OrgID: "org-2", DocID: "npo_certificate", Status: domain.DocValid},
		{OrgID: "org-1", DocID: "tax_clearance", Status: domain.DocUploaded},
	}
	for _, d := range docs {
		if err := s.PutComplianceDoc(ctx, d); err != nil {
			t.Fatalf("PutComplianceDoc() error = %v", err)
		}
	}

	got, err := s.ListComplianceDocs(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListComplianceDocs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListComplianceDocs() = %d docs, want 2", len(got))
	}
	if got[0].DocID != "bbbee_certificate" || got[0].Expiry == nil || !got[0].Expiry.Equal(expiry) {
		t.Errorf("docs[0] = %+v", got[0])
	}
	if got[1].DocID != "tax_clearance" || got[1].Status != domain.DocUploaded || got[1].Expiry != nil {
		t.Errorf("docs[1] = %+v, want replaced uploaded record", got[1])
	}
}

func testUploadContext(t *testing.T, s Store) {
	ctx := context.Background()
	uploads := []domain.Upload{
		{ID: "u-1", OrgID: "org-1", OriginalName: "annual-report.pdf", ExtractedText: "Annual report", CreatedAt: base},
		{ID: "u-2", OrgID: "org-1", GrantID: "g-1", OriginalName: "rfp.pdf", ExtractedText: "Call for proposals", CreatedAt: base.Add(time.Minute)},
		{ID: "u-3", OrgID: "org-1", GrantID: "g-2", OriginalName: "other.pdf", ExtractedText: "Other grant", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "u-4", OrgID: "org-2", OriginalName: "foreign.pdf", ExtractedText: "Other org", CreatedAt: base},
	}
	for _, u := range uploads {
		if err := s.PutUpload(ctx, u); err != nil {
			t.Fatalf("PutUpload() error = %v", err)
		}
	}

	uc, err := s.GetUploadContext(ctx, "org-1", "g-1")
	if err != nil {
		t.Fatalf("GetUploadContext() error = %v", err)
	}
	if len(uc.OrgUploads) != 1 || uc.OrgUploads[0].ID != "u-1" {
		t.Errorf("OrgUploads = %+v, want [u-1]", uc.OrgUploads)
	}
	if len(uc.GrantUploads) != 1 || uc.GrantUploads[0].ID != "u-2" {
		t.Errorf("GrantUploads = %+v, want [u-2]", uc.GrantUploads)
	}
	if uc.GrantUploads[0].ExtractedText != "Call for proposals" {
		t.Errorf("ExtractedText = %q", uc.GrantUploads[0].ExtractedText)
	}

	orgOnly, err := s.GetUploadContext(ctx, "org-1", "")
	if err != nil {
		t.Fatalf("GetUploadContext() error = %v", err)
	}
	if len(orgOnly.OrgUploads) != 1 || len(orgOnly.GrantUploads) != 0 {
		t.Errorf("GetUploadContext(no grant) = %+v, want org uploads only", orgOnly)
	}
}

func testProfile(t *testing.T, s Store) {
	ctx := context.Background()
	if _, err := s.GetProfile(ctx, "org-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetProfile() error = %v, want ErrNotFound", err)
	}

	want := &domain.OrgProfile{
		OrgID:   "org-1",
		Name:    "Ubuntu Code Collective",
		Mission: "Teach young people to code",
		Programmes: []domain.Programme{
			{Name: "Coding Academy", CostPerLearner: 25000, DurationMonths: 6, CohortSize: 30},
		},
		AntiPatterns: []string{"synergy"},
		PastFunders:  []string{"Telkom Foundation"},
		ContextSlim:  "Short context",
	}
	if err := s.PutProfile(ctx, want); err != nil {
		t.Fatalf("PutProfile() error = %v", err)
	}

	got, err := s.GetProfile(ctx, "org-1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetProfile() = %+v, want %+v", got, want)
	}
}

func testMembers(t *testing.T, s Store) {
	ctx := context.Background()
	members := []domain.Member{
		{ID: "m-2", OrgID: "org-1", Name: "Thandi", Role: domain.RolePM},
		{ID: "m-1", OrgID: "org-1", Name: "Sipho", Role: domain.RoleContributor},
		{ID: "m-3", OrgID: "org-2", Name: "Lerato", Role: domain.RoleDirector},
	}
	for _, m := range members {
		if err := s.PutMember(ctx, m); err != nil {
			t.Fatalf("PutMember() error = %v", err)
		}
	}

	got, err := s.GetMember(ctx, "m-2")
	if err != nil {
		t.Fatalf("GetMember() error = %v", err)
	}
	if *got != members[0] {
		t.Errorf("GetMember() = %+v, want %+v", *got, members[0])
	}
	if _, err := s.GetMember(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetMember(missing) error = %v, want ErrNotFound", err)
	}

	list, err := s.ListMembers(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "m-1" || list[1].ID != "m-2" {
		t.Errorf("ListMembers() = %+v, want m-1, m-2", list)
	}
}

func testApprovalLifecycle(t *testing.T, s Store) {
	ctx := context.Background()
	key := domain.GateKey(domain.StageDrafting, domain.StageReview)

	open, err := s.FindOpenApproval(ctx, "g-1", key)
	if err != nil {
		t.Fatalf("FindOpenApproval() error = %v", err)
	}
	if open != nil {
		t.Fatalf("FindOpenApproval() = %+v, want nil", open)
	}

	old := &domain.Approval{
		ID: "a-old", OrgID: "org-1", GrantID: "g-1", GateKey: key,
		From: domain.StageDrafting, To: domain.StageReview,
		Status: domain.ApprovalRejected, RequestedBy: "m-1", RequestedAt: base,
	}
	a := &domain.Approval{
		ID: "a-1", OrgID: "org-1", GrantID: "g-1", GateKey: key,
		From: domain.StageDrafting, To: domain.StageReview,
		Status: domain.ApprovalPending, RequestedBy: "m-1", RequestedAt: base.Add(time.Hour),
		Reviews: []domain.Review{{ReviewerID: "m-1", Role: domain.RoleContributor, Decision: domain.DecisionRequest, At: base.Add(time.Hour)}},
	}
	for _, ap := range []*domain.Approval{old, a} {
		if err := s.CreateApproval(ctx, ap); err != nil {
			t.Fatalf("CreateApproval(%s) error = %v", ap.ID, err)
		}
	}

	open, err = s.FindOpenApproval(ctx, "g-1", key)
	if err != nil {
		t.Fatalf("FindOpenApproval() error = %v", err)
	}
	if open == nil || open.ID != "a-1" {
		t.Fatalf("FindOpenApproval() = %+v, want a-1", open)
	}

	resolved := base.Add(2 * time.Hour)
	open.Status = domain.ApprovalApproved
	open.ResolvedAt = &resolved
	open.Reviews = append(open.Reviews, domain.Review{ReviewerID: "m-2", Role: domain.RolePM, Decision: domain.DecisionApprove, At: resolved})
	if err := s.UpdateApproval(ctx, open); err != nil {
		t.Fatalf("UpdateApproval() error = %v", err)
	}

	open, err = s.FindOpenApproval(ctx, "g-1", key)
	if err != nil {
		t.Fatalf("FindOpenApproval() error = %v", err)
	}
	if open == nil || open.Status != domain.ApprovalApproved || len(open.Reviews) != 2 {
		t.Fatalf("FindOpenApproval() = %+v, want approved a-1 with 2 reviews", open)
	}

	open.Consumed = true
	if err := s.UpdateApproval(ctx, open); err != nil {
		t.Fatalf("UpdateApproval() error = %v", err)
	}
	if got, err := s.FindOpenApproval(ctx, "g-1", key); err != nil || got != nil {
		t.Errorf("FindOpenApproval() after consume = %+v, %v, want nil", got, err)
	}

	list, err := s.ListApprovals(ctx, "g-1")
	if err != nil {
		t.Fatalf("ListApprovals() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "a-old" || list[1].ID != "a-1" {
		t.Errorf("ListApprovals() = %+v, want a-old, a-1", list)
	}
	if !list[1].Consumed || list[1].ResolvedAt == nil {
		t.Errorf("stored approval = %+v, want consumed and resolved", list[1])
	}
}

func testApprovalNotFound(t *testing.T, s Store) {
	ctx := context.Background()
	if _, err := s.GetApproval(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetApproval() error = %v, want ErrNotFound", err)
	}
	err := s.UpdateApproval(ctx, &domain.Approval{ID: "missing", Status: domain.ApprovalApproved})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateApproval() error = %v, want ErrNotFound", err)
	}
}

func testActivity(t *testing.T, s Store) {
	ctx := context.Background()
	events := []*domain.ActivityEvent{
		{ID: "e-1", OrgID: "org-1", Type: domain.EventAICall, Meta: map[string]any{"action": "draft", "attempts": 2}, At: base},
		{ID: "e-2", OrgID: "org-2", Type: domain.EventStageMove, At: base.Add(time.Minute)},
		{ID: "e-3", OrgID: "org-1", Type: domain.EventStageMove, Meta: map[string]any{"to": "review"}, At: base.Add(2 * time.Minute)},
		{ID: "e-4", OrgID: "org-1", Type: domain.EventArtifact, At: base.Add(3 * time.Minute)},
	}
	for _, ev := range events {
		if err := s.AppendActivity(ctx, ev); err != nil {
			t.Fatalf("AppendActivity() error = %v", err)
		}
	}

	all, err := s.ListActivity(ctx, "org-1", 0)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	var ids []string
	for _, ev := range all {
		ids = append(ids, ev.ID)
	}
	if want := []string{"e-4", "e-3", "e-1"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ListActivity() ids = %v, want %v", ids, want)
	}

	last := all[len(all)-1]
	if last.Meta["action"] != "draft" || last.Meta["attempts"] != float64(2) {
		t.Errorf("Meta = %v", last.Meta)
	}
	if !last.At.Equal(base) {
		t.Errorf("At = %v, want %v", last.At, base)
	}

	limited, err := s.ListActivity(ctx, "org-1", 2)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "e-4" {
		t.Errorf("ListActivity(limit 2) = %d events, first %v", len(limited), limited)
	}
}
