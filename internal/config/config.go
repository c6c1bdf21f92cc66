// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Validate   ValidateConfig   `mapstructure:"validate"`
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Discover   DiscoverConfig   `mapstructure:"discover"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Store      StoreConfig      `mapstructure:"store"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Publisher  PublisherConfig  `mapstructure:"publisher"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ComplianceConfig governs robots.txt handling and per-domain politeness.
type ComplianceConfig struct {
	UserAgents        []string      `mapstructure:"user_agents"`
	MinDelay          time.Duration `mapstructure:"min_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
	RobotsTTL         time.Duration `mapstructure:"robots_ttl"`
	RespectRobots     bool          `mapstructure:"respect_robots"`
	PermissiveOnError bool          `mapstructure:"permissive_on_error"`
}

// FetchConfig configures HTTP retry behavior.
type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxParallel int           `mapstructure:"max_parallel"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"`
}

// ValidateConfig carries the tuned precision/recall thresholds. They are
// configuration, not literals, so operators can adjust them without a
// code change.
type ValidateConfig struct {
	AuthorityMinSignals int     `mapstructure:"authority_min_signals"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	ConfidenceFloor     float64 `mapstructure:"confidence_floor"`
}

// CrawlConfig bounds a single strategy run.
type CrawlConfig struct {
	MaxSources   int           `mapstructure:"max_sources"`
	MaxDepth     int           `mapstructure:"max_depth"`
	MaxURLs      int           `mapstructure:"max_urls"`
	DomainDelay  time.Duration `mapstructure:"domain_delay"`
	ExpansionCap int           `mapstructure:"expansion_cap"`
}

// DiscoverConfig controls seed building.
type DiscoverConfig struct {
	SearchRPS       float64  `mapstructure:"search_rps"`
	QueryChunk      int      `mapstructure:"query_chunk"`
	SearchTemplate  string   `mapstructure:"search_template"`
	SPARQLEndpoint  string   `mapstructure:"sparql_endpoint"`
	AggregatorSites []string `mapstructure:"aggregator_sites"`
}

// JobsConfig governs the background job manager.
type JobsConfig struct {
	Watchdog time.Duration `mapstructure:"watchdog"`
	History  int           `mapstructure:"history"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// ArchiveConfig selects where raw fetched documents are kept, if anywhere.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PublisherConfig selects the job-event publisher backend.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", time.Minute)
	v.SetDefault("logging.development", false)
	v.SetDefault("compliance.user_agents", []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	})
	v.SetDefault("compliance.min_delay", time.Second)
	v.SetDefault("compliance.max_delay", 3*time.Second)
	v.SetDefault("compliance.robots_ttl", 24*time.Hour)
	v.SetDefault("compliance.respect_robots", true)
	v.SetDefault("compliance.permissive_on_error", true)
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.base_backoff", 250*time.Millisecond)
	v.SetDefault("fetch.max_backoff", 5*time.Second)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout", 30*time.Second)
	v.SetDefault("validate.authority_min_signals", 2)
	v.SetDefault("validate.similarity_threshold", 0.85)
	v.SetDefault("validate.confidence_floor", 0.3)
	v.SetDefault("crawl.max_sources", 50)
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.max_urls", 100)
	v.SetDefault("crawl.domain_delay", 3*time.Second)
	v.SetDefault("crawl.expansion_cap", 5)
	v.SetDefault("discover.search_rps", 1.0)
	v.SetDefault("discover.query_chunk", 6)
	v.SetDefault("discover.search_template", "https://duckduckgo.com/html/?q=%s")
	v.SetDefault("discover.sparql_endpoint", "https://query.wikidata.org/sparql")
	v.SetDefault("discover.aggregator_sites", []string{})
	v.SetDefault("jobs.watchdog", 15*time.Minute)
	v.SetDefault("jobs.history", 100)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.table", "activities")
	v.SetDefault("archive.provider", "memory")
	v.SetDefault("publisher.provider", "memory")
}

// Check verifies invariants that would otherwise surface as runtime bugs.
func (c Config) Check() error {
	if len(c.Compliance.UserAgents) == 0 {
		return fmt.Errorf("compliance.user_agents must not be empty")
	}
	if c.Compliance.MinDelay < 0 || c.Compliance.MaxDelay < c.Compliance.MinDelay {
		return fmt.Errorf("compliance delays invalid: min=%s max=%s", c.Compliance.MinDelay, c.Compliance.MaxDelay)
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be >= 1")
	}
	if c.Validate.SimilarityThreshold <= 0 || c.Validate.SimilarityThreshold > 1 {
		return fmt.Errorf("validate.similarity_threshold must be in (0,1]")
	}
	if c.Validate.AuthorityMinSignals < 1 {
		return fmt.Errorf("validate.authority_min_signals must be >= 1")
	}
	if c.Crawl.MaxSources < 1 || c.Crawl.MaxURLs < 1 {
		return fmt.Errorf("crawl limits must be >= 1")
	}
	switch c.Store.Provider {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown store provider %q", c.Store.Provider)
	}
	switch c.Archive.Provider {
	case "none", "memory", "local", "gcs":
	default:
		return fmt.Errorf("unknown archive provider %q", c.Archive.Provider)
	}
	switch c.Publisher.Provider {
	case "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicID == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_id are required for pubsub")
		}
	default:
		return fmt.Errorf("unknown publisher provider %q", c.Publisher.Provider)
	}
	return nil
}
