package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"repo-insights/internal/analytics"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	AuthToken string `mapstructure:"auth_token"` // guards cache invalidation
}

type GitHubConfig struct {
	Token string `mapstructure:"token"` // optional: empty means anonymous rate limits
}

type CacheConfig struct {
	FetchTTL          time.Duration `mapstructure:"fetch_ttl"`
	FetchCapacity     int           `mapstructure:"fetch_capacity"`
	TransformTTL      time.Duration `mapstructure:"transform_ttl"`
	TransformCapacity int           `mapstructure:"transform_capacity"`
}

type FetchConfig struct {
	MaxRecords         int           `mapstructure:"max_records"`
	RateLimitThreshold int           `mapstructure:"rate_limit_threshold"`
	PageSize           int           `mapstructure:"page_size"`
	PageDelay          time.Duration `mapstructure:"page_delay"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay"`
}

type SchedulerConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Cron    string   `mapstructure:"cron"`
	Repos   []string `mapstructure:"repos"`  // owner/name entries to pre-warm
	Period  string   `mapstructure:"period"` // period token used for pre-warming
}

// Load reads configuration from a file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("cache.fetch_ttl", 15*time.Minute)
	v.SetDefault("cache.fetch_capacity", 200)
	v.SetDefault("cache.transform_ttl", 5*time.Minute)
	v.SetDefault("cache.transform_capacity", 50)
	v.SetDefault("fetch.max_records", 1000)
	v.SetDefault("fetch.rate_limit_threshold", 10)
	v.SetDefault("fetch.page_size", 100)
	v.SetDefault("fetch.page_delay", 100*time.Millisecond)
	v.SetDefault("fetch.max_retries", 2)
	v.SetDefault("fetch.retry_base_delay", 500*time.Millisecond)
	v.SetDefault("scheduler.cron", "0 * * * *")
	v.SetDefault("scheduler.period", string(analytics.Period30Days))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Cache.FetchTTL <= 0 || c.Cache.TransformTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if _, err := analytics.ParsePeriod(c.Scheduler.Period); err != nil {
		return fmt.Errorf("invalid scheduler period: %w", err)
	}

	for _, r := range c.Scheduler.Repos {
		parts := strings.Split(r, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("invalid scheduler repo %q, expected owner/name", r)
		}
	}

	return nil
}
