package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/storage/memory"
)

const sampleSeed = `
profiles:
  - org_id: org-1
    name: Ubuntu Code Collective
    mission: Digital skills for township youth
    past_funders: [Telkom Foundation]
    programmes:
      - name: Coding Academy
        cost_per_learner: 18500
        duration_months: 6
        cohort_size: 30
members:
  - {id: m-pm, org_id: org-1, name: Lerato, role: pm}
  - {id: m-dir, org_id: org-1, name: Thandi, role: director}
compliance:
  - {org_id: org-1, doc_id: tax_clearance, status: valid, expiry: "2027-01-31"}
  - {org_id: org-1, doc_id: bbbee_certificate, status: expired}
uploads:
  - {id: u-1, org_id: org-1, file: annual-report.txt}
  - {id: u-2, org_id: org-1, grant_id: g-1, name: rfp.pdf, text: "Call for proposals"}
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "annual-report.txt"), []byte("Trained 240 learners in 2025."), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndApply(t *testing.T) {
	d, err := Load(writeSeed(t, sampleSeed))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	store := memory.New()
	ctx := context.Background()
	if err := d.Apply(ctx, store); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	p, err := store.GetProfile(ctx, "org-1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.Name != "Ubuntu Code Collective" || len(p.Programmes) != 1 || p.Programmes[0].CostPerLearner != 18500 {
		t.Errorf("profile = %+v", p)
	}
	if len(p.PastFunders) != 1 || p.PastFunders[0] != "Telkom Foundation" {
		t.Errorf("past funders = %v", p.PastFunders)
	}

	m, err := store.GetMember(ctx, "m-dir")
	if err != nil || m.Role != domain.RoleDirector {
		t.Errorf("member = %+v, %v", m, err)
	}

	docs, _ := store.ListComplianceDocs(ctx, "org-1")
	if len(docs) != 2 {
		t.Fatalf("compliance docs = %d, want 2", len(docs))
	}
	for _, doc := range docs {
		if doc.DocID == "tax_clearance" {
			want := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
			if doc.Expiry == nil || !doc.Expiry.Equal(want) {
				t.Errorf("expiry = %v, want %v", doc.Expiry, want)
			}
		}
	}

	uc, _ := store.GetUploadContext(ctx, "org-1", "g-1")
	if len(uc.OrgUploads) != 1 || uc.OrgUploads[0].ExtractedText != "Trained 240 learners in 2025." {
		t.Errorf("org uploads = %+v", uc.OrgUploads)
	}
	if uc.OrgUploads[0].OriginalName != "annual-report.txt" {
		t.Errorf("name = %q", uc.OrgUploads[0].OriginalName)
	}
	if len(uc.GrantUploads) != 1 || uc.GrantUploads[0].ExtractedText != "Call for proposals" {
		t.Errorf("grant uploads = %+v", uc.GrantUploads)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown role", "members:\n  - {id: m-1, org_id: org-1, role: intern}\n", "unknown role"},
		{"member without org", "members:\n  - {id: m-1, role: pm}\n", "org_id"},
		{"bad status", "compliance:\n  - {org_id: org-1, doc_id: tax, status: lost}\n", "unknown status"},
		{"bad date", "compliance:\n  - {org_id: org-1, doc_id: tax, status: valid, expiry: soon}\n", "invalid date"},
		{"missing upload file", "uploads:\n  - {id: u-1, org_id: org-1, file: nope.txt}\n", "u-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSeed(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
