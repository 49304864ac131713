package domain

import "time"

// Activity event types emitted by the orchestrator.
const (
	EventAICall      = "ai_call"
	EventStageMove   = "stage_move"
	EventStageDenied = "stage_denied"
	EventApproval    = "approval"
	EventArtifact    = "artifact_saved"
)

// ActivityEvent is a best-effort audit record.
type ActivityEvent struct {
	ID    string         `json:"id"`
	OrgID string         `json:"org_id"`
	Type  string         `json:"type"`
	Meta  map[string]any `json:"meta,omitempty"`
	At    time.Time      `json:"at"`
}

// Readiness is the derived preparedness of a grant. It is never persisted.
type Readiness struct {
	Score      int      `json:"score"`
	Missing    []string `json:"missing"`
	NextAction string   `json:"next_action"`
}
