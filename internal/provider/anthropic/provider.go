// Package anthropic adapts the Anthropic Messages API to ports.Provider.
package anthropic

import (
	"context"
	"net/http"

	anthropicapi "github.com/tjfontaine/grant-pipeline/internal/api/anthropic"
	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// DefaultModel is used when configuration names none.
const DefaultModel = "claude-sonnet-4-20250514"

const (
	defaultMaxTokens = 4096
	webSearchMaxUses = 5
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// WithModel selects the model.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// Provider implements ports.Provider on the Anthropic Messages API.
type Provider struct {
	client     *anthropicapi.Client
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Anthropic provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []anthropicapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, anthropicapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, anthropicapi.WithHTTPClient(p.httpClient))
	}

	p.client = anthropicapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return ProviderType
}

// Generate performs one Messages call and flattens the reply's text blocks.
func (p *Provider) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	resp, err := p.client.CreateMessage(ctx, toAPIRequest(p.model, req))
	if err != nil {
		return nil, err
	}

	return &domain.GenerateResponse{
		Text:       resp.Text(),
		Model:      resp.Model,
		StopReason: resp.StopReason,
		Usage: domain.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

func toAPIRequest(model string, req *domain.GenerateRequest) *anthropicapi.MessagesRequest {
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	apiReq := &anthropicapi.MessagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropicapi.Message{
			{Role: "user", Content: anthropicapi.TextContent(req.UserPrompt)},
		},
	}

	// The system prompt repeats across calls for the same action, so it is
	// marked cacheable.
	if req.SystemPrompt != "" {
		apiReq.System = []anthropicapi.SystemBlock{{
			Type:         "text",
			Text:         req.SystemPrompt,
			CacheControl: &anthropicapi.Cache{Type: "ephemeral"},
		}}
	}

	if req.SearchEnabled {
		apiReq.Tools = []anthropicapi.Tool{{
			Type:    anthropicapi.WebSearchToolType,
			Name:    "web_search",
			MaxUses: webSearchMaxUses,
		}}
	}
	return apiReq
}
