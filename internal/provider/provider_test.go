package provider_test

import (
	"testing"

	"github.com/tjfontaine/grant-pipeline/internal/config"
	"github.com/tjfontaine/grant-pipeline/internal/provider"
	"github.com/tjfontaine/grant-pipeline/internal/provider/registry"
)

func TestListProviderTypes(t *testing.T) {
	types := provider.ListProviderTypes()

	want := []string{"anthropic", "gemini", "openai"}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestFactoriesAreComplete(t *testing.T) {
	for _, f := range registry.ListFactories() {
		if f.Create == nil {
			t.Errorf("factory %q has nil Create function", f.Type)
		}
		if f.Description == "" {
			t.Errorf("factory %q has empty Description", f.Type)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AIConfig
		wantErr bool
	}{
		{"anthropic", config.AIConfig{Provider: "anthropic", APIKey: "k"}, false},
		{"openai", config.AIConfig{Provider: "openai", APIKey: "k", Model: "gpt-4o-mini"}, false},
		{"openai compatible without key", config.AIConfig{Provider: "openai", BaseURL: "http://localhost:11434/v1"}, false},
		{"gemini", config.AIConfig{Provider: "gemini", APIKey: "k"}, false},
		{"missing key", config.AIConfig{Provider: "anthropic"}, true},
		{"unknown", config.AIConfig{Provider: "llama-on-a-pi"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := provider.New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name() != tt.cfg.Provider {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.cfg.Provider)
			}
		})
	}
}

func TestRegisterFactory_Duplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	f, _ := registry.GetFactory("anthropic")
	registry.RegisterFactory(f)
}
