package ports

import (
	"context"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// ActivityLogger is a best-effort audit sink. Callers ignore its errors.
type ActivityLogger interface {
	Log(ctx context.Context, orgID, eventType string, meta map[string]any)
}

// ActivityStore persists activity events.
type ActivityStore interface {
	AppendActivity(ctx context.Context, event *domain.ActivityEvent) error
	ListActivity(ctx context.Context, orgID string, limit int) ([]*domain.ActivityEvent, error)
}
