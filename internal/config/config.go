// Package config loads service configuration from config.yaml and GRANT_
// environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tjfontaine/grant-pipeline/internal/assembler"
	"github.com/tjfontaine/grant-pipeline/internal/core/domain"
	"github.com/tjfontaine/grant-pipeline/internal/readiness"
	"github.com/tjfontaine/grant-pipeline/internal/stagegate"
)

// DefaultPath is read when no explicit path is given.
const DefaultPath = "config.yaml"

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: GRANT_AI__API_KEY sets ai.api_key.
const EnvPrefix = "GRANT_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	AI        AIConfig        `koanf:"ai"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Readiness ReadinessConfig `koanf:"readiness"`
	Context   ContextConfig   `koanf:"context"`
	Cache     CacheConfig     `koanf:"cache"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `koanf:"driver"` // memory, sqlite, postgres, mysql
	DSN    string `koanf:"dsn"`
	Seed   string `koanf:"seed"` // optional reference data file loaded at startup
}

// AIConfig configures the generative provider and the gateway's retry policy.
type AIConfig struct {
	Provider        string        `koanf:"provider"` // anthropic, openai, gemini
	Model           string        `koanf:"model"`
	APIKey          string        `koanf:"api_key"`
	BaseURL         string        `koanf:"base_url"`
	MaxOutputTokens int           `koanf:"max_output_tokens"`
	Timeout         time.Duration `koanf:"timeout"`
	MaxRetries      int           `koanf:"max_retries"`
}

// PipelineConfig overrides the role table and approval gates.
type PipelineConfig struct {
	Roles map[string]int          `koanf:"roles"`
	Gates []stagegate.GateConfig `koanf:"gates"`
}

// ReadinessConfig overrides required-document checklists per funder type.
type ReadinessConfig struct {
	Checklists map[string][]string `koanf:"checklists"`
}

// ContextConfig overrides context budgets per AI action.
type ContextConfig struct {
	Budgets map[string]assembler.Budget `koanf:"budgets"`
}

// CacheConfig bounds the per-request upload cache.
type CacheConfig struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Output      string `koanf:"output"` // stdout, stderr or a file path
}

var defaults = map[string]any{
	"server.port":            8080,
	"server.request_timeout": "6m",
	"storage.driver":         "memory",
	"ai.provider":            "anthropic",
	"ai.max_output_tokens":   4096,
	"ai.timeout":             "5m",
	"ai.max_retries":         3,
	"cache.size":             assembler.DefaultCacheSize,
	"cache.ttl":              assembler.DefaultCacheTTL.String(),
	"telemetry.service_name": "grantd",
	"telemetry.output":       "stdout",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from path (DefaultPath when empty), then applies
// environment overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, v := range defaults {
		if !k.Exists(key) {
			k.Set(key, v)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.AI.APIKey = substituteEnvVars(cfg.AI.APIKey)
	cfg.AI.BaseURL = substituteEnvVars(cfg.AI.BaseURL)
	cfg.Storage.DSN = substituteEnvVars(cfg.Storage.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver != "memory" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn: required for driver %q", c.Storage.Driver)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries: must not be negative")
	}
	for name := range c.Readiness.Checklists {
		if !domain.FunderType(name).Valid() {
			return fmt.Errorf("readiness.checklists: unknown funder type %q", name)
		}
	}
	for name := range c.Context.Budgets {
		if _, err := parseBudgetAction(name); err != nil {
			return err
		}
	}
	return nil
}

// RoleTable returns the configured roles, or the defaults when none are set.
func (c *Config) RoleTable() domain.RoleTable {
	if len(c.Pipeline.Roles) == 0 {
		return domain.DefaultRoles()
	}
	t := make(domain.RoleTable, len(c.Pipeline.Roles))
	for name, lvl := range c.Pipeline.Roles {
		t[domain.Role(name)] = lvl
	}
	return t
}

// Gates returns the configured gates, or the defaults when none are set.
func (c *Config) Gates() []stagegate.GateConfig {
	if len(c.Pipeline.Gates) == 0 {
		return stagegate.DefaultGates()
	}
	return c.Pipeline.Gates
}

// Checklists merges configured checklists over the defaults.
func (c *Config) Checklists() readiness.Checklists {
	out := readiness.DefaultChecklists()
	for name, docs := range c.Readiness.Checklists {
		out[domain.FunderType(name)] = docs
	}
	return out
}

// Budgets returns the configured context budget overrides.
func (c *Config) Budgets() assembler.Budgets {
	out := make(assembler.Budgets, len(c.Context.Budgets))
	for name, b := range c.Context.Budgets {
		action, _ := parseBudgetAction(name)
		out[action] = b
	}
	return out
}

func parseBudgetAction(name string) (domain.Action, error) {
	if domain.Action(name) == domain.ActionScout {
		return domain.ActionScout, nil
	}
	a, err := domain.ParseAction(name)
	if err != nil {
		return "", fmt.Errorf("context.budgets: %w", err)
	}
	return a, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
