package domain

import "time"

// ApprovalStatus is the lifecycle state of an approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Decision is a reviewer's input on an approval.
type Decision string

const (
	DecisionRequest Decision = "request"
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Review is one entry in an approval's review trail.
type Review struct {
	ReviewerID string    `json:"reviewer_id"`
	Role       Role      `json:"role"`
	Decision   Decision  `json:"decision"`
	Note       string    `json:"note,omitempty"`
	At         time.Time `json:"at"`
}

// Approval is a persisted sign-off request for a gated transition.
type Approval struct {
	ID          string         `json:"id"`
	OrgID       string         `json:"org_id"`
	GrantID     string         `json:"grant_id"`
	GateKey     string         `json:"gate_key"`
	From        Stage          `json:"from"`
	To          Stage          `json:"to"`
	Status      ApprovalStatus `json:"status"`
	RequestedBy string         `json:"requested_by"`
	RequestedAt time.Time      `json:"requested_at"`
	Reviews     []Review       `json:"reviews"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	Consumed    bool           `json:"consumed"`
}

// Open reports whether the approval can still be acted on.
func (a *Approval) Open() bool {
	return a.Status == ApprovalPending || (a.Status == ApprovalApproved && !a.Consumed)
}
