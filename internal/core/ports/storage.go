// Package ports defines the interfaces the pipeline core consumes from its
// collaborators: persistence, AI providers and the activity log.
package ports

import (
	"context"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// GrantStore persists grants. Sub-structures (tags, log, documents,
// follow-ups, artifacts) must round-trip verbatim.
type GrantStore interface {
	// GetGrant retrieves a grant by ID. Missing grants wrap domain.ErrNotFound.
	GetGrant(ctx context.Context, id string) (*domain.Grant, error)

	// SaveGrant inserts or replaces a grant.
	SaveGrant(ctx context.Context, grant *domain.Grant) error

	// ListGrants returns an organisation's grants.
	ListGrants(ctx context.Context, orgID string) ([]*domain.Grant, error)
}

// ComplianceStore lists an organisation's compliance documents.
type ComplianceStore interface {
	ListComplianceDocs(ctx context.Context, orgID string) ([]domain.ComplianceDoc, error)
}

// UploadStore returns uploaded documents relevant to a grant. An empty
// grantID returns only organisation-wide uploads.
type UploadStore interface {
	GetUploadContext(ctx context.Context, orgID, grantID string) (*domain.UploadContext, error)
}

// ProfileStore returns an organisation's profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, orgID string) (*domain.OrgProfile, error)
}

// MemberStore resolves team members.
type MemberStore interface {
	GetMember(ctx context.Context, id string) (*domain.Member, error)
	ListMembers(ctx context.Context, orgID string) ([]domain.Member, error)
}

// ApprovalStore persists approval requests and their reviews.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, a *domain.Approval) error
	GetApproval(ctx context.Context, id string) (*domain.Approval, error)
	UpdateApproval(ctx context.Context, a *domain.Approval) error

	// FindOpenApproval returns the pending or approved-but-unconsumed
	// approval for a grant's gate, or nil when none exists.
	FindOpenApproval(ctx context.Context, grantID, gateKey string) (*domain.Approval, error)

	ListApprovals(ctx context.Context, grantID string) ([]*domain.Approval, error)
}

// Store aggregates every persistence port. The SQL and in-memory stores
// implement all of them.
type Store interface {
	GrantStore
	ComplianceStore
	UploadStore
	ProfileStore
	MemberStore
	ApprovalStore
	ActivityStore
	Close() error
}

// Seeder loads reference data that the pipeline reads but never writes:
// profiles, members, compliance records and uploads.
type Seeder interface {
	PutComplianceDoc(ctx context.Context, doc domain.ComplianceDoc) error
	PutUpload(ctx context.Context, u domain.Upload) error
	PutProfile(ctx context.Context, p *domain.OrgProfile) error
	PutMember(ctx context.Context, m domain.Member) error
}
