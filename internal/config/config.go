package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"doccov/internal/paths"
)

// CurrentVersion is the only configuration schema version this build reads.
const CurrentVersion = 1

// Config represents the complete doccov configuration.
type Config struct {
	Version int    `json:"version" mapstructure:"version" toml:"version"`
	Entry   string `json:"entry" mapstructure:"entry" toml:"entry"`

	Extraction ExtractionConfig `json:"extraction" mapstructure:"extraction" toml:"extraction"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache" toml:"cache"`
	Coverage   CoverageConfig   `json:"coverage" mapstructure:"coverage" toml:"coverage"`
	Sandbox    SandboxConfig    `json:"sandbox" mapstructure:"sandbox" toml:"sandbox"`
	Server     ServerConfig     `json:"server" mapstructure:"server" toml:"server"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging" toml:"logging"`
}

// ExtractionConfig controls the type walk. It is part of the spec cache key.
type ExtractionConfig struct {
	MaxDepth             int      `json:"maxDepth" mapstructure:"maxDepth" toml:"maxDepth"`
	ResolveExternalTypes bool     `json:"resolveExternalTypes" mapstructure:"resolveExternalTypes" toml:"resolveExternalTypes"`
	Exclude              []string `json:"exclude" mapstructure:"exclude" toml:"exclude"`
}

// CacheConfig contains spec cache configuration
type CacheConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
}

// CoverageConfig contains coverage scoring configuration
type CoverageConfig struct {
	RequireExamples bool `json:"requireExamples" mapstructure:"requireExamples" toml:"requireExamples"`
	MinScore        int  `json:"minScore" mapstructure:"minScore" toml:"minScore"`
}

// SandboxConfig contains example execution configuration
type SandboxConfig struct {
	Backend          string `json:"backend" mapstructure:"backend" toml:"backend"`
	Image            string `json:"image" mapstructure:"image" toml:"image"`
	GoBinary         string `json:"goBinary" mapstructure:"goBinary" toml:"goBinary"`
	InstallTimeoutMs int    `json:"installTimeoutMs" mapstructure:"installTimeoutMs" toml:"installTimeoutMs"`
	ExecTimeoutMs    int    `json:"execTimeoutMs" mapstructure:"execTimeoutMs" toml:"execTimeoutMs"`
	Concurrency      int    `json:"concurrency" mapstructure:"concurrency" toml:"concurrency"`
}

// ServerConfig contains HTTP API configuration
type ServerConfig struct {
	Addr           string `json:"addr" mapstructure:"addr" toml:"addr"`
	MaxBodyBytes   int64  `json:"maxBodyBytes" mapstructure:"maxBodyBytes" toml:"maxBodyBytes"`
	RequestTimeout int    `json:"requestTimeoutMs" mapstructure:"requestTimeoutMs" toml:"requestTimeoutMs"`
	// ExampleBackend runs POST /examples/run. The local backend executes
	// request code on the server host and needs AllowLocalExamples.
	ExampleBackend     string `json:"exampleBackend" mapstructure:"exampleBackend" toml:"exampleBackend"`
	AllowLocalExamples bool   `json:"allowLocalExamples" mapstructure:"allowLocalExamples" toml:"allowLocalExamples"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"`
	Level  string `json:"level" mapstructure:"level" toml:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Entry:   ".",
		Extraction: ExtractionConfig{
			MaxDepth:             4,
			ResolveExternalTypes: false,
			Exclude:              []string{"**/testdata/**", "**/vendor/**"},
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Coverage: CoverageConfig{
			RequireExamples: false,
			MinScore:        0,
		},
		Sandbox: SandboxConfig{
			Backend:          "local",
			Image:            "golang:1.24-alpine",
			GoBinary:         "go",
			InstallTimeoutMs: 60000,
			ExecTimeoutMs:    10000,
			Concurrency:      3,
		},
		Server: ServerConfig{
			Addr:           "localhost:8788",
			MaxBodyBytes:   10 << 20,
			RequestTimeout: 120000,
			ExampleBackend: "container",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// newViper creates a viper instance preloaded with defaults and DOCCOV_ env bindings.
func newViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()

	v.SetDefault("version", def.Version)
	v.SetDefault("entry", def.Entry)
	v.SetDefault("extraction.maxDepth", def.Extraction.MaxDepth)
	v.SetDefault("extraction.resolveExternalTypes", def.Extraction.ResolveExternalTypes)
	v.SetDefault("extraction.exclude", def.Extraction.Exclude)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("coverage.requireExamples", def.Coverage.RequireExamples)
	v.SetDefault("coverage.minScore", def.Coverage.MinScore)
	v.SetDefault("sandbox.backend", def.Sandbox.Backend)
	v.SetDefault("sandbox.image", def.Sandbox.Image)
	v.SetDefault("sandbox.goBinary", def.Sandbox.GoBinary)
	v.SetDefault("sandbox.installTimeoutMs", def.Sandbox.InstallTimeoutMs)
	v.SetDefault("sandbox.execTimeoutMs", def.Sandbox.ExecTimeoutMs)
	v.SetDefault("sandbox.concurrency", def.Sandbox.Concurrency)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.maxBodyBytes", def.Server.MaxBodyBytes)
	v.SetDefault("server.requestTimeoutMs", def.Server.RequestTimeout)
	v.SetDefault("server.exampleBackend", def.Server.ExampleBackend)
	v.SetDefault("server.allowLocalExamples", def.Server.AllowLocalExamples)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	// DOCCOV_SANDBOX_BACKEND overrides sandbox.backend, and so on.
	v.SetEnvPrefix("DOCCOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from .doccov/config.{json,yaml,toml} under repoRoot.
// A missing file yields the defaults with environment overrides applied.
func LoadConfig(repoRoot string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(paths.ConfigDir(repoRoot))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// LoadConfigFromPath loads configuration from an explicit file.
func LoadConfigFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to .doccov/config.json
func (c *Config) Save(repoRoot string) error {
	dir := paths.ConfigDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0644)
}

// SaveTOML writes the configuration to .doccov/config.toml
func (c *Config) SaveTOML(repoRoot string) error {
	dir := paths.ConfigDir(repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Extraction.MaxDepth < 1 {
		return &ConfigError{Field: "extraction.maxDepth", Message: "must be at least 1"}
	}
	switch c.Sandbox.Backend {
	case "local", "container":
	default:
		return &ConfigError{Field: "sandbox.backend", Message: fmt.Sprintf("unknown backend %q (want local or container)", c.Sandbox.Backend)}
	}
	switch c.Server.ExampleBackend {
	case "local", "container":
	default:
		return &ConfigError{Field: "server.exampleBackend", Message: fmt.Sprintf("unknown backend %q (want local or container)", c.Server.ExampleBackend)}
	}
	if c.Sandbox.InstallTimeoutMs <= 0 || c.Sandbox.ExecTimeoutMs <= 0 {
		return &ConfigError{Field: "sandbox", Message: "timeouts must be positive"}
	}
	if c.Sandbox.Concurrency < 1 {
		return &ConfigError{Field: "sandbox.concurrency", Message: "must be at least 1"}
	}
	if c.Coverage.MinScore < 0 || c.Coverage.MinScore > 100 {
		return &ConfigError{Field: "coverage.minScore", Message: "must be between 0 and 100"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
