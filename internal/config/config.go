// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Vision providers.
const (
	VisionProviderNone   = ""
	VisionProviderOpenAI = "openai"
	VisionProviderOllama = "ollama"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server     ServerConfig
	Extraction ExtractionConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Transcript TranscriptConfig
	Vision     VisionConfig
	RabbitMQ   RabbitMQConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
}

// ServerConfig contains HTTP server configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	// APIKeys enables API key authentication when non-empty.
	APIKeys []string
}

// ExtractionConfig contains the metadata source and batch settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ExtractionConfig struct {
	Binary            string
	Timeout           time.Duration
	RetryAttempts     int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	MaxVideoDuration  int
	MaxConcurrent     int
	MaxURLsPerBatch   int
	ItemTimeout       time.Duration
	BatchTimeout      time.Duration
	RequestsPerSecond float64
	ProxyURL          string
	ScraperAPIKey     string
	ScraperAPIBaseURL string
}

// CacheConfig contains result cache configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CacheConfig struct {
	Enabled bool
	// RedisURL selects the remote backend. Empty means memory only.
	RedisURL         string
	TTL              time.Duration
	MaxEntries       int
	EvictionInterval time.Duration
}

// RateLimitConfig contains per-caller request limits.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// TranscriptConfig contains transcript selection settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TranscriptConfig struct {
	Languages       []string
	DownloadTimeout time.Duration
}

// VisionConfig contains the thumbnail vision provider settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VisionConfig struct {
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	Timeout      time.Duration
	ImageTimeout time.Duration
}

// RabbitMQConfig contains RabbitMQ connection and queue configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled        bool
	Host           string
	User           string
	Password       string
	Exchange       string
	Queue          string
	RoutingKey     string
	Port           int
	ConfirmTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Enabled        bool
	Host           string
	Name           string
	User           string
	Password       string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}
	if c.Extraction.Binary == "" {
		errs = append(errs, fmt.Errorf("extraction.binary must not be empty"))
	}
	if c.Extraction.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("extraction.maxconcurrent must be positive"))
	}
	if c.Extraction.MaxURLsPerBatch <= 0 {
		errs = append(errs, fmt.Errorf("extraction.maxurlsperbatch must be positive"))
	}
	if c.Extraction.MaxVideoDuration <= 0 {
		errs = append(errs, fmt.Errorf("extraction.maxvideoduration must be positive"))
	}
	if c.Extraction.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("extraction.retryattempts must not be negative"))
	}
	if c.Extraction.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("extraction.requestspersecond must not be negative"))
	}
	if c.RateLimit.Limit <= 0 {
		errs = append(errs, fmt.Errorf("ratelimit.limit must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("ratelimit.window must be positive"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive"))
	}

	switch c.Vision.Provider {
	case VisionProviderNone, VisionProviderOllama:
	case VisionProviderOpenAI:
		if c.Vision.APIKey == "" {
			errs = append(errs, fmt.Errorf("vision.apikey is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vision.provider %q", c.Vision.Provider))
	}

	return errors.Join(errs...)
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.readtimeout", 15*time.Second)
	viper.SetDefault("server.apikeys", []string{})

	// Extraction
	viper.SetDefault("extraction.binary", "yt-dlp")
	viper.SetDefault("extraction.timeout", 20*time.Second)
	viper.SetDefault("extraction.retryattempts", 2)
	viper.SetDefault("extraction.initialbackoff", 500*time.Millisecond)
	viper.SetDefault("extraction.maxbackoff", 5*time.Second)
	viper.SetDefault("extraction.maxvideoduration", 300)
	viper.SetDefault("extraction.maxconcurrent", 5)
	viper.SetDefault("extraction.maxurlsperbatch", 3)
	viper.SetDefault("extraction.itemtimeout", 45*time.Second)
	viper.SetDefault("extraction.batchtimeout", 120*time.Second)
	viper.SetDefault("extraction.requestspersecond", 0)
	viper.SetDefault("extraction.proxyurl", "")
	viper.SetDefault("extraction.scraperapikey", "")
	viper.SetDefault("extraction.scraperapibaseurl", "http://api.scraperapi.com/")

	// Cache
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.redisurl", "")
	viper.SetDefault("cache.ttl", time.Hour)
	viper.SetDefault("cache.maxentries", 10000)
	viper.SetDefault("cache.evictioninterval", 5*time.Minute)

	// Rate limit
	viper.SetDefault("ratelimit.limit", 60)
	viper.SetDefault("ratelimit.window", time.Minute)

	// Transcript
	viper.SetDefault("transcript.languages", []string{"id", "en"})
	viper.SetDefault("transcript.downloadtimeout", 30*time.Second)

	// Vision
	viper.SetDefault("vision.provider", "")
	viper.SetDefault("vision.apikey", "")
	viper.SetDefault("vision.model", "gpt-4o")
	viper.SetDefault("vision.baseurl", "")
	viper.SetDefault("vision.timeout", 30*time.Second)
	viper.SetDefault("vision.imagetimeout", 10*time.Second)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "video.extractions")
	viper.SetDefault("rabbitmq.queue", "video.extractions.log")
	viper.SetDefault("rabbitmq.routingkey", "extraction")
	viper.SetDefault("rabbitmq.confirmtimeout", 5*time.Second)

	// Database
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "videoextraction")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
