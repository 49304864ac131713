package readiness

import "github.com/tjfontaine/grant-pipeline/internal/core/domain"

// Next-action texts shown next to the readiness score.
const (
	ActionAssignOwner      = "Assign an owner"
	ActionRunFitScore      = "Run a fit score"
	ActionMoveToQualifying = "Move to Qualifying"
	ActionRunResearch      = "Run funder research"
	ActionSetDeadline      = "Set the deadline"
	ActionMoveToDrafting   = "Move to Drafting"
	ActionGenerateDraft    = "Generate a draft proposal"
	ActionUploadDocs       = "Upload missing compliance documents"
	ActionSubmitForReview  = "Submit for review"
	ActionSetAsk           = "Set the ask amount"
	ActionSignOff          = "Get sign-off and submit"
	ActionScheduleFollowUp = "Schedule a follow-up"
	ActionAwaitResponse    = "Await funder response"
	ActionDraftFollowUp    = "Draft a follow-up message"
	ActionRecordOutcome    = "Record the outcome"
	ActionRunWinAnalysis   = "Run a win analysis"
	ActionRunLossAnalysis  = "Run a loss analysis"
	ActionRevisit          = "Revisit when the funder reopens"
	ActionNone             = "No action needed"
)

// NextAction picks the most useful next step for the grant's stage.
func NextAction(g *domain.Grant, docsMissing int) string {
	switch g.Stage {
	case domain.StageScouted:
		switch {
		case !g.HasOwner():
			return ActionAssignOwner
		case !g.FitScore.Present():
			return ActionRunFitScore
		}
		return ActionMoveToQualifying

	case domain.StageQualifying:
		switch {
		case !g.Research.Present():
			return ActionRunResearch
		case !g.FitScore.Present():
			return ActionRunFitScore
		case g.Deadline == nil:
			return ActionSetDeadline
		}
		return ActionMoveToDrafting

	case domain.StageDrafting:
		switch {
		case !g.HasDraft():
			return ActionGenerateDraft
		case docsMissing > 0:
			return ActionUploadDocs
		}
		return ActionSubmitForReview

	case domain.StageReview:
		switch {
		case docsMissing > 0:
			return ActionUploadDocs
		case !g.HasBudgetSignal():
			return ActionSetAsk
		}
		return ActionSignOff

	case domain.StageSubmitted:
		if len(g.OpenFollowUps()) == 0 {
			return ActionScheduleFollowUp
		}
		return ActionAwaitResponse

	case domain.StageAwaiting:
		if !g.FollowUpDraft.Present() {
			return ActionDraftFollowUp
		}
		return ActionRecordOutcome

	case domain.StageWon:
		if !g.WinLoss.Present() {
			return ActionRunWinAnalysis
		}
		return ActionNone

	case domain.StageLost:
		if !g.WinLoss.Present() {
			return ActionRunLossAnalysis
		}
		return ActionNone

	case domain.StageDeferred:
		return ActionRevisit
	}
	return ActionNone
}
