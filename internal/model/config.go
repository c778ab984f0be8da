package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the complete runtime configuration.
// Values come from defaults, the config file, PHISHFUSE_* env vars and flags.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Fusion       FusionConfig       `yaml:"fusion" mapstructure:"fusion"`
	Ledger       LedgerConfig       `yaml:"ledger" mapstructure:"ledger"`
	Models       ModelsConfig       `yaml:"models" mapstructure:"models"`
	Intel        IntelConfig        `yaml:"intel" mapstructure:"intel"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
}

// HTTPConfig controls the single-attempt page fetch and DNS lookups
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	DNSTimeout    time.Duration `yaml:"dns_timeout" mapstructure:"dns_timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// FusionConfig is the verdict policy
type FusionConfig struct {
	Weights         WeightsConfig `yaml:"weights" mapstructure:"weights"`
	HighThreshold   float64       `yaml:"high_threshold" mapstructure:"high_threshold"`     // >= this: Phishing / HIGH
	MediumThreshold float64       `yaml:"medium_threshold" mapstructure:"medium_threshold"` // >= this: Suspicious / MEDIUM
	Tiers           int           `yaml:"tiers" mapstructure:"tiers"`                       // 3 or 2 (no Suspicious label)
	Renormalize     bool          `yaml:"renormalize" mapstructure:"renormalize"`           // divide by applied weights only
}

// WeightsConfig holds per-signal base weights. Kept as fields rather than a
// map because viper lowercases map keys.
type WeightsConfig struct {
	URL        float64 `yaml:"url" mapstructure:"url"`
	Network    float64 `yaml:"network" mapstructure:"network"`
	HTML       float64 `yaml:"html" mapstructure:"html"`
	NLP        float64 `yaml:"nlp" mapstructure:"nlp"`
	Behavioral float64 `yaml:"behavioral" mapstructure:"behavioral"`
}

// Table converts the configured weights into a WeightTable
func (w WeightsConfig) Table() WeightTable {
	return WeightTable{
		SignalURL:        w.URL,
		SignalNetwork:    w.Network,
		SignalHTML:       w.HTML,
		SignalNLP:        w.NLP,
		SignalBehavioral: w.Behavioral,
	}
}

// LedgerConfig selects and locates the scan ledger
type LedgerConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // csv, sqlite, postgres
	Dir     string `yaml:"dir" mapstructure:"dir"`         // csv directory or sqlite file directory
	DSN     string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// ModelsConfig locates classifier coefficient files
type ModelsConfig struct {
	Dir string `yaml:"dir,omitempty" mapstructure:"dir"` // empty: built-in coefficients
}

// IntelConfig controls WHOIS/TLS collection
type IntelConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig controls caching of domain intelligence
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig limits fetches per domain in batch mode
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "" disables
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".phishfuse")

	return &Config{
		HTTP: HTTPConfig{
			Timeout:      5 * time.Second,
			DNSTimeout:   3 * time.Second,
			UserAgent:    "Mozilla/5.0 (compatible; phishfuse/0.3; +https://github.com/ppiankov/phishfuse)",
			MaxBodyBytes: 2_000_000,
		},
		Fusion: FusionConfig{
			Weights: WeightsConfig{
				URL:        0.25,
				Network:    0.25,
				HTML:       0.20,
				NLP:        0.15,
				Behavioral: 0.15,
			},
			HighThreshold:   80,
			MediumThreshold: 50,
			Tiers:           3,
			Renormalize:     true,
		},
		Ledger: LedgerConfig{
			Backend: "csv",
			Dir:     filepath.Join(base, "ledger"),
		},
		Intel: IntelConfig{
			Enabled: true,
			Timeout: 8 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join(base, "cache"),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 600,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate checks configuration values that would make scanning impossible
func (c *Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if c.Fusion.Tiers != 2 && c.Fusion.Tiers != 3 {
		return fmt.Errorf("fusion.tiers must be 2 or 3, got %d", c.Fusion.Tiers)
	}
	if c.Fusion.MediumThreshold > c.Fusion.HighThreshold {
		return fmt.Errorf("fusion.medium_threshold (%.2f) exceeds fusion.high_threshold (%.2f)", c.Fusion.MediumThreshold, c.Fusion.HighThreshold)
	}
	switch c.Ledger.Backend {
	case "csv", "sqlite":
		if c.Ledger.Dir == "" {
			return fmt.Errorf("ledger.dir is required for the %s backend", c.Ledger.Backend)
		}
	case "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown ledger backend: %s (supported: csv, sqlite, postgres)", c.Ledger.Backend)
	}
	return nil
}
