package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// MaxDepthUnlimited disables the crawl depth bound.
const MaxDepthUnlimited = -1

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig  `toml:"logging"`
	Storage     StorageConfig  `toml:"storage"`
	Crawler     CrawlerConfig  `toml:"crawler"`
	LLM         LLMConfig      `toml:"llm"`
	Schedule    ScheduleConfig `toml:"schedule"`

	// Unit-test mode is environment-only, never read from TOML.
	UnitTest       bool   `toml:"-"`
	UnitTestModule string `toml:"-"` // "scrape" or "aggregate"
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	SQLite    SQLiteConfig `toml:"sqlite"`
	PageTable string       `toml:"page_table"`   // Page Artifact table name
	DataTable string       `toml:"market_table"` // Market-Data table name
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path"`
	CacheSizeMB   int    `toml:"cache_size_mb"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
	WALMode       bool   `toml:"wal_mode"`
}

// CrawlerConfig contains browser-driven crawl configuration
type CrawlerConfig struct {
	MaxDepth       int           `toml:"max_depth"` // MaxDepthUnlimited (-1) disables the bound
	MaxConcurrency int           `toml:"max_concurrency" validate:"min=1"`
	MaxRetries     int           `toml:"max_retries" validate:"min=0"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	UserAgent      string        `toml:"user_agent"`
}

// LLMConfig contains Perplexity chat-completions configuration
type LLMConfig struct {
	APIKey         string        `toml:"api_key"`
	BaseURL        string        `toml:"base_url"`
	Model          string        `toml:"model"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	MaxRetries     int           `toml:"max_retries"`
	RatePerSecond  float64       `toml:"rate_per_second"` // request rate cap toward the provider
	MaxParallel    int           `toml:"max_parallel"`    // per-page extraction concurrency bound
}

// ScheduleConfig enables periodic refresh runs across active hotels
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"` // cron expression, e.g. "0 3 * * *"
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/hotelbrief.db",
				CacheSizeMB:   64,
				BusyTimeoutMS: 5000,
				WALMode:       true,
			},
			PageTable: "hotel_page_data",
			DataTable: "market_data",
		},
		Crawler: CrawlerConfig{
			MaxDepth:       MaxDepthUnlimited,
			MaxConcurrency: 3,
			MaxRetries:     2,
			RequestTimeout: 60 * time.Second,
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.perplexity.ai",
			Model:          "sonar-pro",
			RequestTimeout: 5 * time.Minute,
			MaxRetries:     3,
			RatePerSecond:  2,
			MaxParallel:    8,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 3 * * *",
		},
	}
}

// LoadConfig builds the effective configuration: defaults, then an optional
// TOML file overlay, then environment overrides.
func LoadConfig(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HOTEL_PAGE_DATA_TABLE"); v != "" {
		c.Storage.PageTable = v
	}
	if v := os.Getenv("MARKET_DATA_TABLE"); v != "" {
		c.Storage.DataTable = v
	}
	// Unset or non-numeric means unlimited depth.
	if v := os.Getenv("CRAWLER_MAX_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil {
			c.Crawler.MaxDepth = depth
		} else {
			c.Crawler.MaxDepth = MaxDepthUnlimited
		}
	}
	if v := os.Getenv("CRAWLER_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Crawler.MaxConcurrency = n
		}
	}
	if v := os.Getenv("CRAWLER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Crawler.MaxRetries = n
		}
	}
	if v := os.Getenv("CRAWLER_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Crawler.RequestTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("PERPLEXITY_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("NODE_ENV"); v != "" {
		c.Environment = v
		if v == "development" {
			c.Logging.Level = "debug"
		}
	}
	if v := os.Getenv("UNIT_TEST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UnitTest = b
		}
	}
	if v := os.Getenv("UNIT_TEST_MODULE"); v != "" {
		c.UnitTestModule = strings.ToLower(strings.TrimSpace(v))
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Storage.PageTable == "" || c.Storage.DataTable == "" {
		return fmt.Errorf("storage table names must not be empty")
	}
	if c.UnitTest {
		switch c.UnitTestModule {
		case "scrape", "aggregate":
		default:
			return fmt.Errorf("UNIT_TEST_MODULE must be 'scrape' or 'aggregate', got %q", c.UnitTestModule)
		}
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
