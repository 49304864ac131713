// Package domain defines the grant pipeline's core types: grants, stages,
// gates, approvals, organisation context and AI request/response shapes.
package domain

import "fmt"

// Stage is a named pipeline position a grant occupies.
type Stage string

const (
	StageScouted    Stage = "scouted"
	StageQualifying Stage = "qualifying"
	StageDrafting   Stage = "drafting"
	StageReview     Stage = "review"
	StageSubmitted  Stage = "submitted"
	StageAwaiting   Stage = "awaiting"
	StageWon        Stage = "won"
	StageLost       Stage = "lost"
	StageDeferred   Stage = "deferred"
)

// StageClass groups stages into disjoint classes.
type StageClass string

const (
	ClassPreSubmission  StageClass = "pre_submission"
	ClassPostSubmission StageClass = "post_submission"
	ClassTerminal       StageClass = "terminal"
)

// Stages lists every configured stage in pipeline order.
var Stages = []Stage{
	StageScouted,
	StageQualifying,
	StageDrafting,
	StageReview,
	StageSubmitted,
	StageAwaiting,
	StageWon,
	StageLost,
	StageDeferred,
}

var stageLabels = map[Stage]string{
	StageScouted:    "Scouted",
	StageQualifying: "Qualifying",
	StageDrafting:   "Drafting",
	StageReview:     "Review",
	StageSubmitted:  "Submitted",
	StageAwaiting:   "Awaiting",
	StageWon:        "Won",
	StageLost:       "Lost",
	StageDeferred:   "Deferred",
}

// Valid reports whether s is a configured stage.
func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label returns the display name of the stage.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Class returns the stage's class.
func (s Stage) Class() StageClass {
	switch s {
	case StageSubmitted, StageAwaiting:
		return ClassPostSubmission
	case StageWon, StageLost, StageDeferred:
		return ClassTerminal
	default:
		return ClassPreSubmission
	}
}

// Terminal reports whether the stage is Won, Lost or Deferred.
func (s Stage) Terminal() bool {
	return s.Class() == ClassTerminal
}

// ParseStage accepts either the stage id or its display label.
func ParseStage(v string) (Stage, error) {
	if s := Stage(v); s.Valid() {
		return s, nil
	}
	for s, label := range stageLabels {
		if label == v {
			return s, nil
		}
	}
	return "", ErrInvalidRequest(fmt.Sprintf("unknown stage %q", v)).WithParam("stage")
}

// GateKey returns the "<from>-><to>" key used to register approval gates.
func GateKey(from, to Stage) string {
	return string(from) + "->" + string(to)
}
