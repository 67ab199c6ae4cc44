package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate runs the test in an empty directory with no config file
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 3000 || cfg.Server.Addr() != ":3000" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if !cfg.IsDevelopment() {
		t.Error("default env should be development")
	}
	if cfg.Cache.TTL != time.Hour || cfg.Cache.Capacity != 500 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Recommend.DefaultCount != 4 || cfg.Recommend.CandidateLimit != 10 || cfg.Recommend.PlaceholderMinutes != 30 {
		t.Errorf("recommend = %+v", cfg.Recommend)
	}
	if cfg.Recommend.Scoring.PopularityCeiling != 50000 || cfg.Recommend.Scoring.StdDevCeiling != 30 {
		t.Errorf("scoring = %+v", cfg.Recommend.Scoring)
	}
	if cfg.Transit.Breaker.FailureRatio != 0.6 {
		t.Errorf("breaker = %+v", cfg.Transit.Breaker)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8080")
	t.Setenv("ODSAY_API_KEY", "odsay-key")
	t.Setenv("KAKAO_REST_API_KEY", "kakao-key")
	t.Setenv("ROUTE_CACHE_TTL", "30m")
	t.Setenv("FANOUT_TIMEOUT", "3s")
	t.Setenv("STDDEV_CEILING", "45")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Transit.APIKey != "odsay-key" || cfg.Geocoding.KakaoAPIKey != "kakao-key" {
		t.Errorf("keys = %q, %q", cfg.Transit.APIKey, cfg.Geocoding.KakaoAPIKey)
	}
	if cfg.Cache.TTL != 30*time.Minute || cfg.Recommend.FanOutTimeout != 3*time.Second {
		t.Errorf("durations = %v, %v", cfg.Cache.TTL, cfg.Recommend.FanOutTimeout)
	}
	if cfg.Recommend.Scoring.StdDevCeiling != 45 {
		t.Errorf("stddev ceiling = %v", cfg.Recommend.Scoring.StdDevCeiling)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := isolate(t)
	yaml := `
server:
  port: 9000
cache:
  capacity: 50
recommend:
  default_count: 3
  scoring:
    popularity_ceiling: 1000
data:
  catalog_path: venues.yaml
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("env should win over file: port = %d", cfg.Server.Port)
	}
	if cfg.Cache.Capacity != 50 || cfg.Recommend.DefaultCount != 3 || cfg.Data.CatalogPath != "venues.yaml" {
		t.Errorf("file values not applied: %+v %+v %+v", cfg.Cache, cfg.Recommend, cfg.Data)
	}
	if cfg.Recommend.Scoring.PopularityCeiling != 1000 || cfg.Recommend.Scoring.StdDevCeiling != 30 {
		t.Errorf("scoring = %+v", cfg.Recommend.Scoring)
	}
}

func TestLoadConfigPathEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ODSAY_API_KEY=from-dotenv\nLOG_FORMAT=console\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ODSAY_API_KEY", "")
	os.Unsetenv("ODSAY_API_KEY")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transit.APIKey != "from-dotenv" {
		t.Errorf("api key = %q, want value from .env", cfg.Transit.APIKey)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("format = %q, existing env should not be overridden", cfg.Logging.Format)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	isolate(t)
	if err := LoadDotEnv("does-not-exist.env"); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad env", func(c *Config) { c.Server.Env = "staging" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"zero capacity", func(c *Config) { c.Cache.Capacity = 0 }, true},
		{"count above max", func(c *Config) { c.Recommend.DefaultCount = 11 }, true},
		{"zero stddev ceiling", func(c *Config) { c.Recommend.Scoring.StdDevCeiling = 0 }, true},
		{"bad alerts url", func(c *Config) { c.Alerts.FeedURL = "not a url" }, true},
		{"alerts url", func(c *Config) { c.Alerts.FeedURL = "https://feeds.example/alerts.pb" }, false},
		{"breaker ratio", func(c *Config) { c.Transit.Breaker.FailureRatio = 1.5 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
