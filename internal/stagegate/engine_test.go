package stagegate

import (
	"strings"
	"testing"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e
}

func TestCanAdvance_UngatedHopsAllowedForEveryRole(t *testing.T) {
	e := newTestEngine(t)
	roles := append(e.Roles().Roles(), domain.Role("stranger"))

	for _, h := range e.Graph().Hops() {
		if _, gated := e.Gate(h.From, h.To); gated {
			continue
		}
		for _, r := range roles {
			d := e.CanAdvance(h.From, h.To, r)
			if !d.Allowed {
				t.Errorf("%s as %s: expected allowed, got reason %q", h.Key(), r, d.Reason)
			}
			if d.Gate != nil {
				t.Errorf("%s: unexpected gate %+v", h.Key(), d.Gate)
			}
		}
	}
}

func TestCanAdvance_GateAuthority(t *testing.T) {
	e := newTestEngine(t)
	table := e.Roles()

	for _, gate := range e.Gates() {
		for _, r := range table.Roles() {
			d := e.CanAdvance(gate.From, gate.To, r)
			want := table[r] >= gate.Level
			if d.Allowed != want {
				t.Errorf("%s as %s (level %d vs %d): allowed=%v, want %v", gate.Key, r, table[r], gate.Level, d.Allowed, want)
			}
			if d.Gate == nil || d.Gate.Key != gate.Key {
				t.Errorf("%s: decision should carry the gate", gate.Key)
			}
			if !d.Allowed && d.Reason != gate.Label {
				t.Errorf("%s: reason = %q, want gate label %q", gate.Key, d.Reason, gate.Label)
			}
		}
	}
}

func TestCanAdvance_LowAuthorityBlockedOnDraftingReview(t *testing.T) {
	e := newTestEngine(t)

	d := e.CanAdvance(domain.StageDrafting, domain.StageReview, domain.RoleContributor)
	if d.Allowed {
		t.Fatal("contributor should not clear Drafting->Review")
	}
	if d.Gate == nil || d.Gate.Level != 2 {
		t.Fatalf("expected level-2 gate, got %+v", d.Gate)
	}
	if d.Reason != "Draft ready for internal review" {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestCanAdvance_TerminalImmutability(t *testing.T) {
	e := newTestEngine(t)
	for _, from := range domain.Stages {
		if !from.Terminal() {
			continue
		}
		if next := e.Graph().Next(from); len(next) != 0 {
			t.Errorf("%s has outgoing edges %v", from, next)
		}
		for _, to := range domain.Stages {
			if d := e.CanAdvance(from, to, domain.RoleAdmin); d.Allowed {
				t.Errorf("%s -> %s allowed for admin", from, to)
			}
			if _, err := e.Plan(from, to); err == nil {
				t.Errorf("Plan(%s, %s) should fail", from, to)
			}
		}
	}
}

func TestCanAdvance_NonEdgeRejected(t *testing.T) {
	e := newTestEngine(t)
	d := e.CanAdvance(domain.StageScouted, domain.StageReview, domain.RoleAdmin)
	if d.Allowed {
		t.Fatal("skip-ahead should not be a single hop")
	}
	if !strings.Contains(d.Reason, "Scouted") || !strings.Contains(d.Reason, "Review") {
		t.Errorf("reason should name both stages: %q", d.Reason)
	}
}

func TestCheckPath_NeverSkipsIntermediateGate(t *testing.T) {
	e := newTestEngine(t)

	decisions, err := e.CheckPath(domain.StageScouted, domain.StageReview, domain.RoleContributor)
	if err != nil {
		t.Fatalf("CheckPath error: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected evaluation to stop at second hop, got %d decisions", len(decisions))
	}
	if !decisions[0].Allowed || decisions[0].To != domain.StageQualifying {
		t.Errorf("first hop = %+v", decisions[0])
	}
	last := decisions[1]
	if last.Allowed || last.From != domain.StageQualifying || last.To != domain.StageDrafting {
		t.Errorf("second hop = %+v", last)
	}

	decisions, err = e.CheckPath(domain.StageScouted, domain.StageReview, domain.RolePM)
	if err != nil {
		t.Fatalf("CheckPath error: %v", err)
	}
	if len(decisions) != 3 {
		t.Fatalf("expected 3 hops, got %d", len(decisions))
	}
	for _, d := range decisions {
		if !d.Allowed {
			t.Errorf("pm should clear %s->%s", d.From, d.To)
		}
	}
}

func TestPlan_SameStage(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Plan(domain.StageDrafting, domain.StageDrafting); err == nil {
		t.Error("expected error moving to the current stage")
	}
}

func TestReload_ValidatesGates(t *testing.T) {
	e := newTestEngine(t)

	err := e.Reload(nil, []GateConfig{{From: domain.StageScouted, To: domain.StageWon, MinRole: domain.RolePM}})
	if err == nil || !strings.Contains(err.Error(), "no such transition") {
		t.Errorf("expected no-such-transition error, got %v", err)
	}

	err = e.Reload(nil, []GateConfig{{From: domain.StageScouted, To: domain.StageQualifying, MinRole: "intern"}})
	if err == nil || !strings.Contains(err.Error(), "unknown role") {
		t.Errorf("expected unknown-role error, got %v", err)
	}

	// Failed reloads leave the previous gates in place.
	if _, ok := e.Gate(domain.StageDrafting, domain.StageReview); !ok {
		t.Error("default gate lost after failed reload")
	}

	err = e.Reload(domain.RoleTable{"member": 1, "lead": 5}, []GateConfig{
		{From: domain.StageScouted, To: domain.StageQualifying, MinRole: "lead"},
	})
	if err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if d := e.CanAdvance(domain.StageDrafting, domain.StageReview, "member"); !d.Allowed {
		t.Error("gate removed by reload should no longer block")
	}
	d := e.CanAdvance(domain.StageScouted, domain.StageQualifying, "member")
	if d.Allowed {
		t.Error("new gate should block member")
	}
	if !strings.Contains(d.Reason, "lead approval required") {
		t.Errorf("generated label = %q", d.Reason)
	}
}

func TestGraph_Path(t *testing.T) {
	g := DefaultGraph()

	hops, ok := g.Path(domain.StageScouted, domain.StageWon)
	if !ok {
		t.Fatal("Won should be reachable from Scouted")
	}
	want := []domain.Stage{
		domain.StageQualifying, domain.StageDrafting, domain.StageReview,
		domain.StageSubmitted, domain.StageAwaiting, domain.StageWon,
	}
	if len(hops) != len(want) {
		t.Fatalf("path length = %d, want %d: %+v", len(hops), len(want), hops)
	}
	prev := domain.StageScouted
	for i, h := range hops {
		if h.From != prev || h.To != want[i] {
			t.Errorf("hop %d = %+v", i, h)
		}
		prev = h.To
	}

	if _, ok := g.Path(domain.StageWon, domain.StageScouted); ok {
		t.Error("terminal stage should reach nothing")
	}
}

func TestGraph_BackwardEdges(t *testing.T) {
	g := DefaultGraph()
	order := make(map[domain.Stage]int, len(domain.Stages))
	for i, s := range domain.Stages {
		order[s] = i
	}

	var backward []Hop
	for _, h := range g.Hops() {
		if order[h.To] < order[h.From] {
			backward = append(backward, h)
		}
	}
	if len(backward) != 1 || backward[0] != (Hop{domain.StageReview, domain.StageDrafting}) {
		t.Errorf("backward edges = %+v, want only review->drafting", backward)
	}
	if _, ok := g.Path(domain.StageDrafting, domain.StageScouted); ok {
		t.Error("Drafting should not reach Scouted")
	}
}
