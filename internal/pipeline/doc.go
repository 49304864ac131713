// Package pipeline is the façade over the grant pipeline core.
//
// The Orchestrator ties together the stage-gate engine, the readiness
// scorer, the context assembler and the AI gateway:
//
//   - RequestAIArtifact assembles context for an AI action and calls the
//     gateway. AI failures come back as displayable text, never as errors.
//   - AttemptStageMove checks every hop of a move against the gates,
//     consumes approvals that clear a hop, and appends "Moved to <Stage>"
//     entries to the grant log.
//   - ComputeReadiness scores a grant. It is advisory and never blocks a
//     move.
//
// RunAIAction and ApplyArtifact persist generated artifacts, and
// RequestApproval and ReviewApproval manage sign-off on gated hops.
//
// Only store failures are returned as errors. Gate denials and illegal
// transitions are reported in MoveResult. Activity logging is best effort.
package pipeline
