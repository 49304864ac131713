// Package direct provides an activity logger that writes straight to storage.
package direct

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
)

// Publisher implements ports.ActivityLogger by writing directly to storage.
// Storage failures are logged and dropped.
type Publisher struct {
	store  ports.ActivityStore
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a new direct activity publisher.
func NewPublisher(store ports.ActivityStore, logger *slog.Logger) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("activity store required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:  store,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Log records an activity event. It never fails the caller.
func (p *Publisher) Log(ctx context.Context, orgID, eventType string, meta map[string]any) {
	event := &domain.ActivityEvent{
		ID:    uuid.New().String(),
		OrgID: orgID,
		Type:  eventType,
		Meta:  meta,
		At:    p.now(),
	}
	if err := p.store.AppendActivity(ctx, event); err != nil {
		p.logger.Warn("activity log write failed",
			slog.String("org_id", orgID),
			slog.String("type", eventType),
			slog.String("error", err.Error()))
	}
}

// Close is a no-op for the direct publisher.
func (p *Publisher) Close() error {
	return nil
}
