package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// ConfigPathEnvVar overrides the config file path
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps environment variable names (lowercased) to koanf paths
var envMappings = map[string]string{
	"host":                  "server.host",
	"port":                  "server.port",
	"env":                   "server.env",
	"read_timeout":          "server.read_timeout",
	"write_timeout":         "server.write_timeout",
	"shutdown_timeout":      "server.shutdown_timeout",
	"request_timeout":       "server.request_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
	"log_caller":            "logging.caller",
	"odsay_api_key":         "transit.api_key",
	"odsay_base_url":        "transit.base_url",
	"odsay_timeout":         "transit.timeout",
	"odsay_rate_per_second": "transit.rate_per_second",
	"odsay_burst":           "transit.burst",
	"kakao_rest_api_key":    "geocoding.kakao_api_key",
	"kakao_base_url":        "geocoding.base_url",
	"kakao_timeout":         "geocoding.timeout",
	"geocode_cache_ttl":     "geocoding.cache_ttl",
	"route_cache_ttl":       "cache.ttl",
	"route_cache_capacity":  "cache.capacity",
	"cache_sweep_interval":  "cache.sweep_interval",
	"alerts_feed_url":       "alerts.feed_url",
	"alerts_language":       "alerts.language",
	"alerts_ttl":            "alerts.ttl",
	"fanout_timeout":        "recommend.fanout_timeout",
	"fanout_concurrency":    "recommend.concurrency",
	"recommend_count":       "recommend.default_count",
	"recommend_max_count":   "recommend.max_count",
	"candidate_limit":       "recommend.candidate_limit",
	"sample_size":           "recommend.sample_size",
	"placeholder_minutes":   "recommend.placeholder_minutes",
	"popularity_ceiling":    "recommend.scoring.popularity_ceiling",
	"stddev_ceiling":        "recommend.scoring.stddev_ceiling",
	"catalog_path":          "data.catalog_path",
	"gazetteer_path":        "data.gazetteer_path",
}

// Load reads configuration in layers: defaults, then an optional YAML
// file, then environment variables. A .env file, if present, is loaded
// into the environment first
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files (default ".env") without
// overriding variables already set. Missing files are ignored
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// sliceConfigPaths hold lists that arrive from the environment as
// comma-separated strings
var sliceConfigPaths = []string{"server.cors_origins"}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform returns the koanf path for a mapped variable, or "" to skip it
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}
