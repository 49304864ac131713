package direct

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/storage/memory"
)

func TestNewPublisher_NilStore(t *testing.T) {
	_, err := NewPublisher(nil, nil)
	if err == nil {
		t.Fatal("expected error for nil store")
	}
	if err.Error() != "activity store required" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLog(t *testing.T) {
	store := memory.New()
	defer store.Close()

	p, err := NewPublisher(store, nil)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	ctx := context.Background()
	p.Log(ctx, "org-1", domain.EventStageMove, map[string]any{"to": "won"})
	p.Log(ctx, "org-2", domain.EventAICall, nil)

	events, err := store.ListActivity(ctx, "org-1", 10)
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != domain.EventStageMove || ev.Meta["to"] != "won" {
		t.Errorf("event = %+v", ev)
	}
	if !ev.At.Equal(fixed) {
		t.Errorf("At = %v", ev.At)
	}
	if ev.ID == "" {
		t.Error("event id not set")
	}
}

type failingStore struct{}

func (failingStore) AppendActivity(context.Context, *domain.ActivityEvent) error {
	return errors.New("disk full")
}

func (failingStore) ListActivity(context.Context, string, int) ([]*domain.ActivityEvent, error) {
	return nil, nil
}

func TestLog_SwallowsStoreErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p, _ := NewPublisher(failingStore{}, logger)

	p.Log(context.Background(), "org-1", domain.EventAICall, nil)

	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("failure not logged: %q", buf.String())
	}
}

func TestClose(t *testing.T) {
	p, _ := NewPublisher(memory.New(), nil)
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
