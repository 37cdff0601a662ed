package model

import (
	"fmt"
	"sort"
	"time"
)

// Config is the single configuration value handed to the engine at run
// start. The engine never reads files or the environment itself; the CLI
// layer builds this from viper and flags.
type Config struct {
	HTTP        HTTPConfig              `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig             `yaml:"cache" mapstructure:"cache"`
	Retry       RetryConfig             `yaml:"retry" mapstructure:"retry"`
	Concurrency ConcurrencyConfig       `yaml:"concurrency" mapstructure:"concurrency"`
	Resolver    ResolverConfig          `yaml:"resolver" mapstructure:"resolver"`
	Risk        RiskConfig              `yaml:"risk" mapstructure:"risk"`
	Output      OutputConfig            `yaml:"output" mapstructure:"output"`
	LLM         LLMConfig               `yaml:"llm" mapstructure:"llm"`
	Sources     map[string]SourceConfig `yaml:"sources" mapstructure:"sources"` // Keyed by source ID
}

// HTTPConfig covers the shared HTTP client used by all fetchers
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls response caching for fetchers
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// RetryConfig is the bounded exponential backoff policy applied to
// retryable fetch failures
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	Multiplier  float64       `yaml:"multiplier" mapstructure:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Jitter      float64       `yaml:"jitter" mapstructure:"jitter"` // Fraction of the delay, 0..1
}

// ConcurrencyConfig bounds the fetch stage
type ConcurrencyConfig struct {
	FetchWorkers  int           `yaml:"fetch_workers" mapstructure:"fetch_workers"`
	SourceTimeout time.Duration `yaml:"source_timeout" mapstructure:"source_timeout"`
	RunTimeout    time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
}

// ResolverConfig tunes entity resolution
type ResolverConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	MaxDepth            int     `yaml:"max_depth" mapstructure:"max_depth"` // Relationship traversal depth for related entities
}

// RiskConfig tunes the rule evaluation
type RiskConfig struct {
	EscalationCount int `yaml:"escalation_count" mapstructure:"escalation_count"` // Medium findings in one category before escalation
	RecentYears     int `yaml:"recent_years" mapstructure:"recent_years"`         // Lookback window for dated rules
}

// OutputConfig covers report rendering
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Format  string `yaml:"format" mapstructure:"format"` // json, text, or both
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LLMConfig configures the optional narrative summary. Disabled when
// Provider is empty. The narrative never affects scoring.
type LLMConfig struct {
	Provider  string `yaml:"provider,omitempty" mapstructure:"provider"` // "openai" or "" (disabled)
	Model     string `yaml:"model,omitempty" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never serialized back out
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SourceConfig is the per-source configuration
type SourceConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
	APIKey     string  `yaml:"-" mapstructure:"api_key"`
	BaseURL    string  `yaml:"base_url,omitempty" mapstructure:"base_url"` // Override for testing/self-hosting
}

// DefaultConfig returns the built-in defaults. Per-source rates follow the
// published limits of each provider (SEC asks for at most 10 req/s; the
// OpenCorporates free tier is far tighter).
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "dossier/0.3 (+https://github.com/blackwidowglobal/dossier)",
			MaxBodyBytes: 4_000_000,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     6 * time.Hour,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			Multiplier:  2.0,
			MaxDelay:    10 * time.Second,
			Jitter:      0.2,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers:  4,
			SourceTimeout: 45 * time.Second,
			RunTimeout:    5 * time.Minute,
		},
		Resolver: ResolverConfig{
			SimilarityThreshold: 0.85,
			MaxDepth:            1,
		},
		Risk: RiskConfig{
			EscalationCount: 3,
			RecentYears:     7,
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: "both",
		},
		LLM: LLMConfig{
			MaxTokens: 1000,
			Timeout:   30 * time.Second,
		},
		Sources: map[string]SourceConfig{
			string(SourceSECEdgar):       {Enabled: true, RatePerSec: 10, Burst: 10},
			string(SourceOpenCorporates): {Enabled: true, RatePerSec: 1, Burst: 1},
			string(SourceFECDonations):   {Enabled: true, RatePerSec: 2, Burst: 2},
			string(SourceCourtRecords):   {Enabled: true, RatePerSec: 2, Burst: 2},
			string(SourceUCCFilings):     {Enabled: true, RatePerSec: 1, Burst: 1},
			string(SourceNewsSearch):     {Enabled: true, RatePerSec: 1, Burst: 2},
		},
	}
}

// Source returns the configuration for one source, zero value if absent
func (c *Config) Source(id SourceID) SourceConfig {
	return c.Sources[string(id)]
}

// EnabledSources returns the enabled source IDs in sorted order
func (c *Config) EnabledSources() []SourceID {
	var ids []SourceID
	for _, id := range AllSources() {
		if c.Sources[string(id)].Enabled {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate rejects configurations that cannot start a run
func (c *Config) Validate() error {
	known := make(map[string]bool, len(AllSources()))
	for _, id := range AllSources() {
		known[string(id)] = true
	}
	for name, sc := range c.Sources {
		if !known[name] {
			return &ConfigurationError{Field: "sources." + name, Reason: "unknown source"}
		}
		if sc.Enabled && sc.RatePerSec <= 0 {
			return &ConfigurationError{Field: "sources." + name + ".rate_per_sec", Reason: "must be positive"}
		}
	}
	if len(c.EnabledSources()) == 0 {
		return &ConfigurationError{Field: "sources", Reason: "no sources enabled"}
	}
	if c.Resolver.SimilarityThreshold <= 0 || c.Resolver.SimilarityThreshold > 1 {
		return &ConfigurationError{Field: "resolver.similarity_threshold", Reason: "must be in (0, 1]"}
	}
	if c.Resolver.MaxDepth < 0 {
		return &ConfigurationError{Field: "resolver.max_depth", Reason: "must be >= 0"}
	}
	if c.Retry.MaxAttempts < 1 {
		return &ConfigurationError{Field: "retry.max_attempts", Reason: "must be >= 1"}
	}
	if c.Concurrency.FetchWorkers < 1 {
		return &ConfigurationError{Field: "concurrency.fetch_workers", Reason: "must be >= 1"}
	}
	switch c.Output.Format {
	case "json", "text", "both":
	default:
		return &ConfigurationError{Field: "output.format", Reason: fmt.Sprintf("unknown format %q", c.Output.Format)}
	}
	return nil
}
