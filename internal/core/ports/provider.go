package ports

import (
	"context"

	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
)

// Provider is a generative-text backend. Implementations translate the
// provider-agnostic request to their own wire schema and return errors as
// *domain.APIError where the upstream response allows classification.
type Provider interface {
	// Name returns the provider identifier (e.g. "anthropic").
	Name() string

	// Generate performs a single, non-retried generation call.
	Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error)
}
