package assembler

import (
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

func TestAssemble_ResearchBaseOverCap(t *testing.T) {
	base := strings.Repeat("a", 4500) + strings.Repeat("b", 4500)
	profile := &domain.OrgProfile{ContextSlim: base, ContextFull: "full context is not used for research"}

	res := Assemble(Input{Action: domain.ActionResearch, Profile: profile})

	want := base[:8000] + TrimMarker + AntiFabrication
	if res.Text != want {
		t.Fatalf("unexpected context: got %d chars, want %d", len(res.Text), len(want))
	}
	if !res.Trimmed {
		t.Error("expected Trimmed")
	}
	if res.DataLen != 8000 {
		t.Errorf("DataLen = %d, want 8000", res.DataLen)
	}
}

func TestAssemble_UnderCapHasNoMarker(t *testing.T) {
	profile := &domain.OrgProfile{ContextSlim: "We train young people in digital skills."}

	res := Assemble(Input{Action: domain.ActionFitScore, Profile: profile})

	if res.Trimmed || strings.Contains(res.Text, TrimMarker) {
		t.Error("did not expect trim marker")
	}
	if !strings.HasPrefix(res.Text, profile.ContextSlim) {
		t.Errorf("context should start with slim base: %q", res.Text)
	}
	if !strings.HasSuffix(res.Text, AntiFabrication) {
		t.Error("anti-fabrication block missing")
	}
	if !strings.Contains(res.Text, "[TO BE CONFIRMED]") {
		t.Error("expected [TO BE CONFIRMED] instruction")
	}
}

func TestAssemble_BudgetNeverExceeded(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	big := strings.Repeat("x", 30000)
	profile := &domain.OrgProfile{
		ContextSlim: big,
		ContextFull: big,
		Programmes:  []domain.Programme{{Name: "Coding Academy", CostPerLearner: 18500, DurationMonths: 6, CohortSize: 30}},
		PastFunders: []string{"Acme Foundation"},
	}
	uploads := &domain.UploadContext{
		GrantUploads: []domain.Upload{{OriginalName: "rfp.pdf", ExtractedText: big, CreatedAt: now}},
		OrgUploads:   []domain.Upload{{OriginalName: "annual.pdf", ExtractedText: big, CreatedAt: now}},
	}
	grant := &domain.Grant{ID: "g1"}

	a := New()
	for _, action := range append(domain.Actions, domain.ActionScout) {
		t.Run(string(action), func(t *testing.T) {
			res := a.Assemble(Input{Action: action, Grant: grant, Profile: profile, Uploads: uploads})
			max := a.Budget(action).Max
			if res.DataLen > max {
				t.Errorf("data portion %d exceeds cap %d", res.DataLen, max)
			}
			if !res.Trimmed || !strings.Contains(res.Text, TrimMarker) {
				t.Error("expected trim marker")
			}
			if length(res.Text) != res.DataLen+length(TrimMarker)+length(AntiFabrication) {
				t.Errorf("unexpected total length %d", length(res.Text))
			}
		})
	}
}

func TestAssemble_DraftSections(t *testing.T) {
	profile := &domain.OrgProfile{
		Name:         "Bright Futures",
		ContextSlim:  "slim",
		ContextFull:  "full",
		Programmes:   []domain.Programme{{Name: "Coding Academy", CostPerLearner: 18500, DurationMonths: 6, CohortSize: 30}},
		ImpactStats:  []domain.ImpactStat{{Label: "Job placement", Value: "78%", Source: "2025 tracer study"}},
		Tone:         "warm and direct",
		AntiPatterns: []string{"saviour language"},
		PastFunders:  []string{"Acme Foundation"},
	}
	team := []domain.Member{{ID: "m1", Name: "Thandi", Role: domain.RoleDirector}}

	draft := Assemble(Input{Action: domain.ActionDraft, Profile: profile, Team: team}).Text
	for _, want := range []string{
		"full",
		"| Coding Academy | R18,500 | 6 months | 30 |",
		"- Job placement: 78% (2025 tracer study)",
		"Tone: warm and direct",
		"Avoid: saviour language",
		"- Thandi (director)",
	} {
		if !strings.Contains(draft, want) {
			t.Errorf("draft context missing %q", want)
		}
	}
	if strings.Contains(draft, "Past funders") {
		t.Error("draft context should not list past funders")
	}

	research := Assemble(Input{Action: domain.ActionResearch, Profile: profile, Team: team}).Text
	if !strings.HasPrefix(research, "slim") {
		t.Errorf("research should use slim base: %q", research)
	}
	if strings.Contains(research, "Programme costs") || strings.Contains(research, "Verified impact") {
		t.Error("research context should not carry draft-only sections")
	}
	if !strings.Contains(research, "## Past funders\nAcme Foundation") {
		t.Error("research context should list past funders")
	}
}

func TestAssemble_FallbackSummary(t *testing.T) {
	profile := &domain.OrgProfile{
		Name:       "Bright Futures",
		Mission:    "Digital skills for youth",
		Programmes: []domain.Programme{{Name: "Coding Academy"}, {Name: "Data Bootcamp"}},
	}
	res := Assemble(Input{Action: domain.ActionFollowUp, Profile: profile})
	want := "Organisation: Bright Futures\nMission: Digital skills for youth\nProgrammes: Coding Academy, Data Bootcamp"
	if !strings.HasPrefix(res.Text, want) {
		t.Errorf("got %q", res.Text)
	}
}

func TestAssemble_UploadOrderingAndBudget(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC) }
	uploads := &domain.UploadContext{
		GrantUploads: []domain.Upload{
			{OriginalName: "old.pdf", ExtractedText: strings.Repeat("o", 100), CreatedAt: day(1)},
			{OriginalName: "new.pdf", ExtractedText: strings.Repeat("n", 100), CreatedAt: day(3)},
			{OriginalName: "mid.pdf", ExtractedText: strings.Repeat("m", 100), CreatedAt: day(2)},
		},
		OrgUploads: []domain.Upload{
			{OriginalName: "kb.pdf", ExtractedText: "knowledge", CreatedAt: day(1)},
		},
	}
	a := New(WithBudgets(Budgets{domain.ActionResearch: {GrantUploads: 150}}))

	res := a.Assemble(Input{
		Action:  domain.ActionResearch,
		Grant:   &domain.Grant{ID: "g1"},
		Profile: &domain.OrgProfile{ContextSlim: "base"},
		Uploads: uploads,
	})

	grantIdx := strings.Index(res.Text, "## Grant documents")
	kbIdx := strings.Index(res.Text, "## Knowledge base")
	if grantIdx < 0 || kbIdx < 0 || grantIdx > kbIdx {
		t.Fatalf("grant documents must precede knowledge base:\n%s", res.Text)
	}
	newIdx := strings.Index(res.Text, "### new.pdf")
	midIdx := strings.Index(res.Text, "### mid.pdf")
	if newIdx < 0 || midIdx < 0 || newIdx > midIdx {
		t.Errorf("documents should be newest first:\n%s", res.Text)
	}
	if strings.Contains(res.Text, "old.pdf") {
		t.Error("document after exhausted budget should be skipped")
	}
	// new.pdf takes 113 chars, leaving 37 for mid.pdf.
	section := res.Text[grantIdx:kbIdx]
	if got := strings.Count(section, "m"); got >= 100 {
		t.Errorf("mid.pdf should be truncated, got %d chars of it", got)
	}
	if !strings.Contains(res.Text, "knowledge") {
		t.Error("knowledge base document missing")
	}
}

func TestAssemble_ScoutSkipsGrantUploads(t *testing.T) {
	uploads := &domain.UploadContext{
		GrantUploads: []domain.Upload{{OriginalName: "rfp.pdf", ExtractedText: "rfp text"}},
	}
	res := Assemble(Input{Action: domain.ActionScout, Profile: &domain.OrgProfile{ContextSlim: "base"}, Uploads: uploads})
	if strings.Contains(res.Text, "rfp text") {
		t.Error("scout has no grant upload budget")
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 3, "hel"},
		{"hello", 10, "hello"},
		{"héllo", 2, "hé"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		950:      "950",
		18500:    "18,500",
		1250000:  "1,250,000",
		-4200:    "-4,200",
	}
	for in, want := range tests {
		if got := formatAmount(in); got != want {
			t.Errorf("formatAmount(%d) = %q, want %q", in, got, want)
		}
	}
}
