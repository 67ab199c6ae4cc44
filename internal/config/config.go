// Package config handles application configuration from defaults, an
// optional YAML file and environment variables
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/randytsao24/moim/internal/recommend"
	"github.com/randytsao24/moim/internal/upstream"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Transit   TransitConfig   `koanf:"transit"`
	Geocoding GeocodingConfig `koanf:"geocoding"`
	Cache     CacheConfig     `koanf:"cache"`
	Alerts    AlertsConfig    `koanf:"alerts"`
	Recommend RecommendConfig `koanf:"recommend"`
	Data      DataConfig      `koanf:"data"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	Env               string        `koanf:"env" validate:"oneof=development production test"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures the global logger
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// TransitConfig configures the ODsay transit routing client
type TransitConfig struct {
	APIKey        string                 `koanf:"api_key"`
	BaseURL       string                 `koanf:"base_url" validate:"required,url"`
	Timeout       time.Duration          `koanf:"timeout" validate:"gt=0"`
	RatePerSecond float64                `koanf:"rate_per_second" validate:"gte=0"`
	Burst         int                    `koanf:"burst" validate:"min=0"`
	Breaker       upstream.BreakerConfig `koanf:"breaker"`
}

// GeocodingConfig configures the Kakao Local client
type GeocodingConfig struct {
	KakaoAPIKey string                 `koanf:"kakao_api_key"`
	BaseURL     string                 `koanf:"base_url" validate:"required,url"`
	Timeout     time.Duration          `koanf:"timeout" validate:"gt=0"`
	CacheTTL    time.Duration          `koanf:"cache_ttl" validate:"gt=0"`
	Breaker     upstream.BreakerConfig `koanf:"breaker"`
}

// CacheConfig configures the route cache
type CacheConfig struct {
	TTL           time.Duration `koanf:"ttl" validate:"gt=0"`
	Capacity      int           `koanf:"capacity" validate:"min=1"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
}

// AlertsConfig configures the optional GTFS-realtime alerts feed
type AlertsConfig struct {
	FeedURL  string        `koanf:"feed_url" validate:"omitempty,url"`
	Language string        `koanf:"language"`
	TTL      time.Duration `koanf:"ttl" validate:"gt=0"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
}

// RecommendConfig tunes search, fan-out and scoring
type RecommendConfig struct {
	FanOutTimeout      time.Duration     `koanf:"fanout_timeout" validate:"gt=0"`
	Concurrency        int               `koanf:"concurrency" validate:"min=0"`
	DefaultCount       int               `koanf:"default_count" validate:"min=1,ltefield=MaxCount"`
	MaxCount           int               `koanf:"max_count" validate:"min=1"`
	CandidateLimit     int               `koanf:"candidate_limit" validate:"min=1"`
	SampleSize         int               `koanf:"sample_size" validate:"min=1"`
	PlaceholderMinutes int               `koanf:"placeholder_minutes" validate:"min=0"`
	Scoring            recommend.Weights `koanf:"scoring"`
}

// DataConfig points at the reference data files. Empty paths use the
// built-in data
type DataConfig struct {
	CatalogPath   string `koanf:"catalog_path"`
	GazetteerPath string `koanf:"gazetteer_path"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "",
			Port:              3000,
			Env:               "development",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RequestTimeout:    20 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Transit: TransitConfig{
			BaseURL:       "https://api.odsay.com",
			Timeout:       5 * time.Second,
			RatePerSecond: 10,
			Burst:         5,
			Breaker:       upstream.DefaultBreakerConfig(),
		},
		Geocoding: GeocodingConfig{
			BaseURL:  "https://dapi.kakao.com",
			Timeout:  5 * time.Second,
			CacheTTL: 24 * time.Hour,
			Breaker:  upstream.DefaultBreakerConfig(),
		},
		Cache: CacheConfig{
			TTL:           time.Hour,
			Capacity:      500,
			SweepInterval: 5 * time.Minute,
		},
		Alerts: AlertsConfig{
			Language: "ko",
			TTL:      2 * time.Minute,
			Timeout:  5 * time.Second,
		},
		Recommend: RecommendConfig{
			FanOutTimeout:      8 * time.Second,
			DefaultCount:       4,
			MaxCount:           10,
			CandidateLimit:     10,
			SampleSize:         10,
			PlaceholderMinutes: 30,
			Scoring:            recommend.DefaultWeights(),
		},
		Data: DataConfig{
			CatalogPath: "data/venues.json",
		},
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
