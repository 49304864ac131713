package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"kept when valid", "3f2c4d8e-8f1a-4c55-9a0e-2b7f0f0d9b11", true},
		{"replaced when malformed", "not-a-uuid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if _, err := uuid.Parse(seen); err != nil {
				t.Fatalf("request id %q is not a UUID", seen)
			}
			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("header = %q, context = %q", got, seen)
			}
			if tt.keep && seen != tt.incoming {
				t.Errorf("request id = %q, want %q", seen, tt.incoming)
			}
			if !tt.keep && seen == tt.incoming {
				t.Errorf("request id %q should have been replaced", seen)
			}
		})
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := TimeoutMiddleware(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok {
		t.Fatal("context has no deadline")
	}
	if remaining := time.Until(deadline); remaining <= 0 || remaining > time.Minute {
		t.Errorf("remaining = %v, want within one minute", remaining)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestIDMiddleware(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "grant_id", "g-1")
		AddLogField(r.Context(), "empty", "")
		AddError(r.Context(), domain.ErrInvalidRequest("bad stage"))
		w.WriteHeader(http.StatusTeapot)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/grants", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2:\n%s", len(lines), buf.String())
	}

	var completed map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &completed); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if completed["msg"] != "request completed" {
		t.Errorf("msg = %v", completed["msg"])
	}
	if completed["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for a 4xx", completed["level"])
	}
	if completed["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want 418", completed["status"])
	}
	if completed["grant_id"] != "g-1" {
		t.Errorf("grant_id = %v", completed["grant_id"])
	}
	if _, ok := completed["empty"]; ok {
		t.Error("empty field should not be logged")
	}
	if !strings.Contains(completed["error"].(string), "bad stage") {
		t.Errorf("error = %v", completed["error"])
	}
	if completed["request_id"] == "" {
		t.Error("request_id missing")
	}
}

func TestAddLogField_WithoutMiddleware(t *testing.T) {
	// Must not panic when no fields map is attached.
	AddLogField(context.Background(), "k", "v")
	AddError(context.Background(), nil)
}

type memberMap map[string]domain.Member

func (m memberMap) Member(_ context.Context, id string) (*domain.Member, error) {
	mem, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &mem, nil
}

func TestActorMiddleware(t *testing.T) {
	members := memberMap{"m-pm": {ID: "m-pm", OrgID: "org-1", Role: domain.RolePM}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"known member", "m-pm", http.StatusOK, "m-pm"},
		{"unknown member", "m-ghost", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actor string
			handler := ActorMiddleware(members)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if m, ok := GetActor(r.Context()); ok {
					actor = m.ID
				}
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(MemberHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if actor != tt.wantActor {
				t.Errorf("actor = %q, want %q", actor, tt.wantActor)
			}
		})
	}
}
