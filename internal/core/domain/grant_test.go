package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestGrant_HasDraft(t *testing.T) {
	tests := []struct {
		name  string
		grant Grant
		want  bool
	}{
		{"empty", Grant{}, false},
		{"blank draft", Grant{Draft: &Artifact{Text: "   "}}, false},
		{"draft text", Grant{Draft: &Artifact{Text: "Dear funder"}}, true},
		{"blank sections", Grant{Sections: []ProposalSection{{Title: "Need", Text: ""}}}, false},
		{"section text", Grant{Sections: []ProposalSection{{Title: "Need", Text: ""}, {Title: "Budget", Text: "R1m"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.grant.HasDraft(); got != tt.want {
				t.Errorf("HasDraft() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrant_HasBudgetSignal(t *testing.T) {
	if (&Grant{}).HasBudgetSignal() {
		t.Error("empty grant should have no budget signal")
	}
	if !(&Grant{FunderBudget: 100}).HasBudgetSignal() {
		t.Error("funder budget should count")
	}
	if !(&Grant{Budget: &BudgetTable{Total: 5}}).HasBudgetSignal() {
		t.Error("structured budget total should count")
	}
}

func TestGrant_SetArtifactBoundsHistory(t *testing.T) {
	g := &Grant{}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxArtifactHistory+3; i++ {
		g.SetArtifact(ActionResearch, Artifact{Text: fmt.Sprintf("v%d", i), GeneratedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	if g.Research.Text != fmt.Sprintf("v%d", MaxArtifactHistory+2) {
		t.Errorf("current = %q", g.Research.Text)
	}
	if len(g.History.Research) != MaxArtifactHistory {
		t.Fatalf("history len = %d, want %d", len(g.History.Research), MaxArtifactHistory)
	}
	if g.History.Research[0].Text != fmt.Sprintf("v%d", MaxArtifactHistory+1) {
		t.Errorf("newest history = %q", g.History.Research[0].Text)
	}
	if g.SetArtifact(Action("bogus"), Artifact{Text: "x"}) {
		t.Error("unknown action should not be stored")
	}
}

func TestParseStage(t *testing.T) {
	for _, in := range []string{"won", "Won"} {
		s, err := ParseStage(in)
		if err != nil || s != StageWon {
			t.Errorf("ParseStage(%q) = %q, %v", in, s, err)
		}
	}
	if _, err := ParseStage("Shortlisted"); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestStage_Class(t *testing.T) {
	for _, s := range []Stage{StageWon, StageLost, StageDeferred} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if StageAwaiting.Class() != ClassPostSubmission {
		t.Error("awaiting should be post-submission")
	}
	if StageReview.Class() != ClassPreSubmission {
		t.Error("review should be pre-submission")
	}
}
