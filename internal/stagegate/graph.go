package stagegate

import "github.com/tjfontaine/grant-pipeline/internal/core/domain"

// Hop is a single stage transition.
type Hop struct {
	From domain.Stage `json:"from"`
	To   domain.Stage `json:"to"`
}

// Key returns the gate key for the hop.
func (h Hop) Key() string {
	return domain.GateKey(h.From, h.To)
}

// Graph is the directed graph of allowed stage transitions. Neighbours keep
// their insertion order so path search is deterministic.
type Graph struct {
	edges map[domain.Stage][]domain.Stage
}

// NewGraph builds a graph from explicit hops.
func NewGraph(hops ...Hop) *Graph {
	g := &Graph{edges: make(map[domain.Stage][]domain.Stage)}
	for _, h := range hops {
		g.add(h.From, h.To)
	}
	return g
}

// DefaultGraph is the standard pipeline: forward moves through pre- and
// post-submission, rework from Review back to Drafting, award or loss from
// Awaiting, and withdrawal (Lost) or deferral from any open stage. Terminal
// stages have no outgoing edges.
func DefaultGraph() *Graph {
	hops := []Hop{
		{domain.StageScouted, domain.StageQualifying},
		{domain.StageQualifying, domain.StageDrafting},
		{domain.StageDrafting, domain.StageReview},
		{domain.StageReview, domain.StageSubmitted},
		{domain.StageSubmitted, domain.StageAwaiting},
		{domain.StageAwaiting, domain.StageWon},
		{domain.StageAwaiting, domain.StageLost},

		{domain.StageReview, domain.StageDrafting},
	}
	for _, s := range domain.Stages {
		if s.Terminal() {
			continue
		}
		if s != domain.StageAwaiting {
			hops = append(hops, Hop{s, domain.StageLost})
		}
		hops = append(hops, Hop{s, domain.StageDeferred})
	}
	return NewGraph(hops...)
}

func (g *Graph) add(from, to domain.Stage) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// HasEdge reports whether from->to is a single allowed hop.
func (g *Graph) HasEdge(from, to domain.Stage) bool {
	for _, next := range g.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the stages reachable from s in one hop.
func (g *Graph) Next(s domain.Stage) []domain.Stage {
	return append([]domain.Stage(nil), g.edges[s]...)
}

// Hops returns every edge in the graph.
func (g *Graph) Hops() []Hop {
	var hops []Hop
	for _, from := range domain.Stages {
		for _, to := range g.edges[from] {
			hops = append(hops, Hop{from, to})
		}
	}
	return hops
}

// Path returns the shortest hop sequence from -> to, or false when to is not
// reachable. A zero-length path is returned when from == to.
func (g *Graph) Path(from, to domain.Stage) ([]Hop, bool) {
	if from == to {
		return nil, true
	}

	prev := map[domain.Stage]domain.Stage{from: from}
	queue := []domain.Stage{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				return unwind(prev, from, to), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func unwind(prev map[domain.Stage]domain.Stage, from, to domain.Stage) []Hop {
	var hops []Hop
	for cur := to; cur != from; cur = prev[cur] {
		hops = append([]Hop{{From: prev[cur], To: cur}}, hops...)
	}
	return hops
}
