// Package openai adapts the OpenAI Chat Completions API to ports.Provider.
package openai

import (
	"context"
	"net/http"

	openaiapi "github.com/tjfontaine/grant-pipeline/internal/api/openai"
	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// DefaultModel is used when configuration names none. Search requests need
// a search-capable model such as gpt-4o-search-preview.
const DefaultModel = "gpt-4o"

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

// Provider implements ports.Provider on the Chat Completions API.
type Provider struct {
	client     *openaiapi.Client
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a new OpenAI provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []openaiapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, openaiapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(p.httpClient))
	}

	p.client = openaiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return ProviderType
}

// Generate performs one chat completion and returns the first choice.
func (p *Provider) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, toAPIRequest(p.model, req))
	if err != nil {
		return nil, err
	}

	return &domain.GenerateResponse{
		Text:       resp.Text(),
		Model:      resp.Model,
		StopReason: resp.FinishReason(),
		Usage: domain.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func toAPIRequest(model string, req *domain.GenerateRequest) *openaiapi.ChatCompletionRequest {
	apiReq := &openaiapi.ChatCompletionRequest{
		Model:               model,
		MaxCompletionTokens: req.MaxOutputTokens,
	}
	if req.SystemPrompt != "" {
		apiReq.Messages = append(apiReq.Messages, openaiapi.ChatCompletionMessage{
			Role:    "system",
			Content: req.SystemPrompt,
		})
	}
	apiReq.Messages = append(apiReq.Messages, openaiapi.ChatCompletionMessage{
		Role:    "user",
		Content: req.UserPrompt,
	})
	if req.SearchEnabled {
		apiReq.WebSearchOptions = &openaiapi.WebSearchOptions{SearchContextSize: "medium"}
	}
	return apiReq
}
