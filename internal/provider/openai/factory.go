package openai

import (
	"errors"

	"github.com/tjfontaine/grant-pipeline/internal/config"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
	"github.com/tjfontaine/grant-pipeline/internal/provider/registry"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = "openai"

// Register this provider at package initialization.
func init() {
	registry.RegisterFactory(registry.ProviderFactory{
		Type:           ProviderType,
		Description:    "OpenAI Chat Completions API (and compatible endpoints via base_url)",
		Create:         CreateFromConfig,
		ValidateConfig: ValidateConfig,
	})
}

// CreateFromConfig creates a new OpenAI provider from configuration.
func CreateFromConfig(cfg config.AIConfig) (ports.Provider, error) {
	opts := []ProviderOption{WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return New(cfg.APIKey, opts...), nil
}

// ValidateConfig validates the provider configuration. Compatible endpoints
// with a custom base URL may run without a key.
func ValidateConfig(cfg config.AIConfig) error {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return errors.New("api_key is required")
	}
	return nil
}
