// Package provider builds the configured AI provider. Importing it registers
// every built-in provider factory.
package provider

import (
	"fmt"

	"github.com/tjfontaine/grant-pipeline/internal/config"
	"github.com/tjfontaine/grant-pipeline/internal/core/ports"
	"github.com/tjfontaine/grant-pipeline/internal/provider/registry"

	// Provider packages register their factories in init().
	_ "github.com/tjfontaine/grant-pipeline/internal/provider/anthropic"
	_ "github.com/tjfontaine/grant-pipeline/internal/provider/gemini"
	_ "github.com/tjfontaine/grant-pipeline/internal/provider/openai"
)

// Re-export registry lookups for callers that only import this package.
var (
	ListProviderTypes = registry.ListProviderTypes
	IsRegistered      = registry.IsRegistered
)

// New creates the provider named by cfg.Provider.
func New(cfg config.AIConfig) (ports.Provider, error) {
	p, err := registry.CreateFromFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return p, nil
}
