// Package gemini adapts the Google Gemini generateContent API to
// ports.Provider.
package gemini

import (
	"context"
	"net/http"

	geminiapi "github.com/tjfontaine/grant-pipeline/internal/api/gemini"
	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// DefaultModel is used when configuration names none.
const DefaultModel = "gemini-2.5-flash"

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

// Provider implements ports.Provider on the Gemini API.
type Provider struct {
	client     *geminiapi.Client
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Gemini provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []geminiapi.ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, geminiapi.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, geminiapi.WithHTTPClient(p.httpClient))
	}

	p.client = geminiapi.NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return ProviderType
}

// Generate performs one generateContent call and joins the first
// candidate's text parts.
func (p *Provider) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	resp, err := p.client.GenerateContent(ctx, p.model, toAPIRequest(req))
	if err != nil {
		return nil, err
	}

	model := resp.ModelVersion
	if model == "" {
		model = p.model
	}
	return &domain.GenerateResponse{
		Text:       resp.Text(),
		Model:      model,
		StopReason: resp.FinishReason(),
		Usage: domain.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

func toAPIRequest(req *domain.GenerateRequest) *geminiapi.GenerateContentRequest {
	apiReq := &geminiapi.GenerateContentRequest{
		Contents: []geminiapi.Content{{
			Role:  geminiapi.RoleUser,
			Parts: []geminiapi.Part{{Text: req.UserPrompt}},
		}},
	}
	if req.SystemPrompt != "" {
		apiReq.SystemInstruction = &geminiapi.Content{
			Parts: []geminiapi.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.SearchEnabled {
		apiReq.Tools = []geminiapi.Tool{{GoogleSearch: &geminiapi.GoogleSearch{}}}
	}
	if req.MaxOutputTokens > 0 {
		apiReq.GenerationConfig = &geminiapi.GenerationConfig{MaxOutputTokens: req.MaxOutputTokens}
	}
	return apiReq
}
