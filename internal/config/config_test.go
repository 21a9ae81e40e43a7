package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		cleanup func()
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "load with defaults (no config file)",
			setup: func() {
				viper.Reset()
			},
			cleanup: func() {},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.Extraction.Binary != "yt-dlp" {
					t.Errorf("Extraction.Binary = %s, want yt-dlp", cfg.Extraction.Binary)
				}
				if cfg.Extraction.MaxURLsPerBatch != 3 {
					t.Errorf("Extraction.MaxURLsPerBatch = %d, want 3", cfg.Extraction.MaxURLsPerBatch)
				}
				if cfg.RateLimit.Limit != 60 {
					t.Errorf("RateLimit.Limit = %d, want 60", cfg.RateLimit.Limit)
				}
				if cfg.Cache.TTL != time.Hour {
					t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
				}
				if !cfg.Cache.Enabled {
					t.Error("Cache.Enabled = false, want true")
				}
				if cfg.RabbitMQ.Enabled || cfg.Database.Enabled {
					t.Error("RabbitMQ and Database must be disabled by default")
				}
				assert.Equal(t, []string{"id", "en"}, cfg.Transcript.Languages)
				assert.Empty(t, cfg.Server.APIKeys)
			},
		},
		{
			name: "load with environment variables",
			setup: func() {
				viper.Reset()
				viper.SetEnvPrefix("APP")
				viper.AutomaticEnv()
				os.Setenv("APP_SERVER_PORT", "9090")
				os.Setenv("APP_SERVER_APIKEYS", "key-one,key-two")
				os.Setenv("APP_EXTRACTION_MAXURLSPERBATCH", "5")
				os.Setenv("APP_CACHE_REDISURL", "redis://cache:6379/0")
				os.Setenv("APP_DATABASE_HOST", "testdb")
				os.Setenv("APP_RABBITMQ_HOST", "testrabbitmq")
				// Manually bind env vars since AutomaticEnv doesn't work with nested keys
				viper.BindEnv("server.port", "APP_SERVER_PORT")
				viper.BindEnv("server.apikeys", "APP_SERVER_APIKEYS")
				viper.BindEnv("extraction.maxurlsperbatch", "APP_EXTRACTION_MAXURLSPERBATCH")
				viper.BindEnv("cache.redisurl", "APP_CACHE_REDISURL")
				viper.BindEnv("database.host", "APP_DATABASE_HOST")
				viper.BindEnv("rabbitmq.host", "APP_RABBITMQ_HOST")
			},
			cleanup: func() {
				os.Unsetenv("APP_SERVER_PORT")
				os.Unsetenv("APP_SERVER_APIKEYS")
				os.Unsetenv("APP_EXTRACTION_MAXURLSPERBATCH")
				os.Unsetenv("APP_CACHE_REDISURL")
				os.Unsetenv("APP_DATABASE_HOST")
				os.Unsetenv("APP_RABBITMQ_HOST")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.Extraction.MaxURLsPerBatch != 5 {
					t.Errorf("Extraction.MaxURLsPerBatch = %d, want 5", cfg.Extraction.MaxURLsPerBatch)
				}
				if cfg.Cache.RedisURL != "redis://cache:6379/0" {
					t.Errorf("Cache.RedisURL = %s", cfg.Cache.RedisURL)
				}
				if cfg.Database.Host != "testdb" {
					t.Errorf("Database.Host = %s, want testdb", cfg.Database.Host)
				}
				if cfg.RabbitMQ.Host != "testrabbitmq" {
					t.Errorf("RabbitMQ.Host = %s, want testrabbitmq", cfg.RabbitMQ.Host)
				}
				assert.Equal(t, []string{"key-one", "key-two"}, cfg.Server.APIKeys)
			},
		},
		{
			name: "invalid vision provider",
			setup: func() {
				viper.Reset()
				os.Setenv("APP_VISION_PROVIDER", "gemini")
				viper.BindEnv("vision.provider", "APP_VISION_PROVIDER")
			},
			cleanup: func() {
				os.Unsetenv("APP_VISION_PROVIDER")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			defer func() {
				if tt.cleanup != nil {
					tt.cleanup()
				}
			}()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	tests := []struct {
		name string
		key  string
		want interface{}
	}{
		{"server port", "server.port", 8080},
		{"extraction binary", "extraction.binary", "yt-dlp"},
		{"extraction retryattempts", "extraction.retryattempts", 2},
		{"extraction maxvideoduration", "extraction.maxvideoduration", 300},
		{"extraction maxconcurrent", "extraction.maxconcurrent", 5},
		{"extraction maxurlsperbatch", "extraction.maxurlsperbatch", 3},
		{"cache enabled", "cache.enabled", true},
		{"cache maxentries", "cache.maxentries", 10000},
		{"ratelimit limit", "ratelimit.limit", 60},
		{"vision model", "vision.model", "gpt-4o"},
		{"database enabled", "database.enabled", false},
		{"database host", "database.host", "localhost"},
		{"database port", "database.port", 5432},
		{"database name", "database.name", "videoextraction"},
		{"rabbitmq enabled", "rabbitmq.enabled", false},
		{"rabbitmq port", "rabbitmq.port", 5672},
		{"rabbitmq exchange", "rabbitmq.exchange", "video.extractions"},
		{"rabbitmq routingkey", "rabbitmq.routingkey", "extraction"},
		{"logging level", "logging.level", "info"},
		{"logging file", "logging.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.want {
				t.Errorf("viper.Get(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	if viper.GetDuration("server.shutdowntimeout") != 30*time.Second {
		t.Errorf("server.shutdowntimeout = %v, want 30s", viper.GetDuration("server.shutdowntimeout"))
	}
	if viper.GetDuration("extraction.timeout") != 20*time.Second {
		t.Errorf("extraction.timeout = %v, want 20s", viper.GetDuration("extraction.timeout"))
	}
	if viper.GetDuration("extraction.batchtimeout") != 120*time.Second {
		t.Errorf("extraction.batchtimeout = %v, want 120s", viper.GetDuration("extraction.batchtimeout"))
	}
	if viper.GetDuration("ratelimit.window") != time.Minute {
		t.Errorf("ratelimit.window = %v, want 1m", viper.GetDuration("ratelimit.window"))
	}
	assert.Equal(t, []string{"id", "en"}, viper.GetStringSlice("transcript.languages"))
}

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8080},
		Extraction: ExtractionConfig{Binary: "yt-dlp", MaxConcurrent: 5, MaxURLsPerBatch: 3, MaxVideoDuration: 300},
		Cache:      CacheConfig{Enabled: true, TTL: time.Hour},
		RateLimit:  RateLimitConfig{Limit: 60, Window: time.Minute},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "ollama without key", mutate: func(c *Config) { c.Vision.Provider = VisionProviderOllama }},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "binary", mutate: func(c *Config) { c.Extraction.Binary = "" }, wantErr: "extraction.binary"},
		{name: "batch size", mutate: func(c *Config) { c.Extraction.MaxURLsPerBatch = 0 }, wantErr: "maxurlsperbatch"},
		{name: "concurrency", mutate: func(c *Config) { c.Extraction.MaxConcurrent = -1 }, wantErr: "maxconcurrent"},
		{name: "rate limit", mutate: func(c *Config) { c.RateLimit.Limit = 0 }, wantErr: "ratelimit.limit"},
		{name: "cache ttl", mutate: func(c *Config) { c.Cache.TTL = 0 }, wantErr: "cache.ttl"},
		{name: "openai without key", mutate: func(c *Config) { c.Vision.Provider = VisionProviderOpenAI }, wantErr: "vision.apikey"},
		{name: "unknown provider", mutate: func(c *Config) { c.Vision.Provider = "gemini" }, wantErr: "unknown vision.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "videos", User: "app", Password: "secret"}
	assert.Equal(t, "postgres://app:secret@db:5433/videos?sslmode=disable", d.DSN())
}
