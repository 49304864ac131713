package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	anthropicapi "github.com/tjfontaine/grant-pipeline/internal/api/anthropic"
	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/testutil"
)

func TestGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key header to be 'test-key', got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("expected anthropic-version header to be set")
		}

		var req anthropicapi.MessagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "claude-test" || req.MaxTokens != 1024 {
			t.Errorf("unexpected model/max_tokens: %s %d", req.Model, req.MaxTokens)
		}
		if len(req.System) != 1 || req.System[0].Text != "You are a grant writer." || req.System[0].CacheControl == nil {
			t.Errorf("unexpected system blocks: %+v", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content[0].Text != "Draft it." {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if len(req.Tools) != 1 || req.Tools[0].Type != anthropicapi.WebSearchToolType || req.Tools[0].Name != "web_search" {
			t.Errorf("expected web search tool, got %+v", req.Tools)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-test",
  "content": [
    {"type": "text", "text": "Funder focus: "},
    {"type": "server_tool_use", "id": "srvtoolu_1", "name": "web_search", "input": {"query": "acme csi"}},
    {"type": "web_search_tool_result", "tool_use_id": "srvtoolu_1", "content": []},
    {"type": "text", "text": "youth skills."}
  ],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 120, "output_tokens": 9}
}`)
	}))
	defer ts.Close()

	p := New("test-key", WithBaseURL(ts.URL), WithModel("claude-test"))

	resp, err := p.Generate(context.Background(), &domain.GenerateRequest{
		SystemPrompt:    "You are a grant writer.",
		UserPrompt:      "Draft it.",
		SearchEnabled:   true,
		MaxOutputTokens: 1024,
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if resp.Text != "Funder focus: youth skills." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 9 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("StopReason = %q", resp.StopReason)
	}
}

func TestGenerate_NoSearchNoSystem(t *testing.T) {
	req := toAPIRequest("m", &domain.GenerateRequest{UserPrompt: "hi"})
	if req.System != nil || req.Tools != nil {
		t.Errorf("expected no system/tools, got %+v", req)
	}
	if req.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %d, want default", req.MaxTokens)
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		body       string
		wantType   domain.ErrorType
		wantWait   time.Duration
	}{
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			retryAfter: "17",
			body:       `{"type":"error","error":{"type":"rate_limit_error","message":"Number of request tokens has exceeded your per-minute rate limit"}}`,
			wantType:   domain.ErrorTypeRateLimit,
			wantWait:   17 * time.Second,
		},
		{
			name:     "overloaded",
			status:   529,
			body:     `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantType: domain.ErrorTypeOverloaded,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: must be positive"}}`,
			wantType: domain.ErrorTypeInvalidRequest,
		},
		{
			name:     "prompt too long",
			status:   http.StatusBadRequest,
			body:     `{"type":"error","error":{"type":"invalid_request_error","message":"prompt is too long: 210000 tokens > 200000 maximum"}}`,
			wantType: domain.ErrorTypeContextLength,
		},
		{
			name:     "unauthorised",
			status:   http.StatusUnauthorized,
			body:     `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantType: domain.ErrorTypeAuthentication,
		},
		{
			name:     "html gateway page",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			wantType: domain.ErrorTypeServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			p := New("test-key", WithBaseURL(ts.URL))
			_, err := p.Generate(context.Background(), &domain.GenerateRequest{UserPrompt: "hi"})

			var apiErr *domain.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *domain.APIError, got %T: %v", err, err)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", apiErr.Type, tt.wantType)
			}
			if apiErr.RetryAfter != tt.wantWait {
				t.Errorf("RetryAfter = %v, want %v", apiErr.RetryAfter, tt.wantWait)
			}
			if apiErr.StatusCode != tt.status || apiErr.Provider != ProviderType {
				t.Errorf("unexpected error fields: %+v", apiErr)
			}
		})
	}
}

func TestGenerate_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	p := New("test-key", WithBaseURL(url))
	_, err := p.Generate(context.Background(), &domain.GenerateRequest{UserPrompt: "hi"})

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestGenerate_Recorded(t *testing.T) {
	apiKey := testutil.APIKey(t, "ANTHROPIC_API_KEY")

	recorder, cleanup := testutil.NewVCRRecorder(t, "anthropic_generate")
	defer cleanup()

	p := New(apiKey, WithHTTPClient(testutil.VCRHTTPClient(recorder)))

	resp, err := p.Generate(context.Background(), &domain.GenerateRequest{
		SystemPrompt: "You score grant fit from 0 to 100.",
		UserPrompt:   "Score the fit and reply with SCORE: <n> on the first line.",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text == "" {
		t.Error("Expected non-empty text")
	}
	if resp.Usage.OutputTokens == 0 {
		t.Error("Expected usage to be reported")
	}
}
