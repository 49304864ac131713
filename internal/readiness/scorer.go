// Package readiness computes how prepared a grant is to advance through the
// pipeline. Scoring is pure: identical inputs always produce identical output.
package readiness

import (
	"fmt"
	"math"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// Sub-score weights. They sum to 100.
const (
	DocumentWeight = 40
	AIWeight       = 30
	MetadataWeight = 30
)

// Missing-item labels.
const (
	MissingFitScore = "No fit score"
	MissingResearch = "No research"
	MissingDraft    = "No draft"
	MissingDeadline = "No deadline"
	MissingOwner    = "Unassigned"
	MissingBudget   = "No budget"
)

// Input is everything Score needs. None of it is mutated.
type Input struct {
	Grant          *domain.Grant
	Checklist      []string
	ComplianceDocs []domain.ComplianceDoc
}

// Breakdown holds the three normalised sub-scores.
type Breakdown struct {
	Documents float64 `json:"documents"`
	AI        float64 `json:"ai"`
	Metadata  float64 `json:"metadata"`
}

// Score computes the composite readiness of a grant.
func Score(in Input) domain.Readiness {
	r, _ := ScoreWithBreakdown(in)
	return r
}

// ScoreWithBreakdown computes readiness and also returns the sub-scores.
func ScoreWithBreakdown(in Input) (domain.Readiness, Breakdown) {
	g := in.Grant
	missing := []string{}

	docScore, docsMissing := documentScore(in.Checklist, in.ComplianceDocs)
	if docsMissing > 0 {
		missing = append(missing, fmt.Sprintf("%d docs missing", docsMissing))
	}

	aiChecks := []struct {
		ok    bool
		label string
	}{
		{g.FitScore.Present(), MissingFitScore},
		{g.Research.Present(), MissingResearch},
		{g.HasDraft(), MissingDraft},
	}
	aiPassed := 0
	for _, c := range aiChecks {
		if c.ok {
			aiPassed++
		} else {
			missing = append(missing, c.label)
		}
	}

	metaChecks := []struct {
		ok    bool
		label string
	}{
		{g.Deadline != nil && !g.Deadline.IsZero(), MissingDeadline},
		{g.HasOwner(), MissingOwner},
		{g.HasBudgetSignal(), MissingBudget},
	}
	metaPassed := 0
	for _, c := range metaChecks {
		if c.ok {
			metaPassed++
		} else {
			missing = append(missing, c.label)
		}
	}

	b := Breakdown{
		Documents: docScore,
		AI:        float64(aiPassed) / float64(len(aiChecks)),
		Metadata:  float64(metaPassed) / float64(len(metaChecks)),
	}
	score := int(math.Round(b.Documents*DocumentWeight + b.AI*AIWeight + b.Metadata*MetadataWeight))

	return domain.Readiness{
		Score:      score,
		Missing:    missing,
		NextAction: NextAction(g, docsMissing),
	}, b
}

// documentScore returns the fraction of required documents that are ready
// and how many are not. An empty checklist scores 1.0.
func documentScore(required []string, docs []domain.ComplianceDoc) (float64, int) {
	if len(required) == 0 {
		return 1.0, 0
	}

	ready := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.Status.Ready() {
			ready[d.DocID] = true
		}
	}

	n := 0
	for _, id := range required {
		if ready[id] {
			n++
		}
	}
	return float64(n) / float64(len(required)), len(required) - n
}
