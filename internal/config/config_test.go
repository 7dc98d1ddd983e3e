package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"WORKBENCH_CONFIG", "WORKBENCH_HOST", "WORKBENCH_PORT", "LOG_LEVEL",
	"TEMPERATURE_PCT", "PRESSURE_PCT", "FORECAST_SEED",
	"WORKBENCH_DATA_DIR", "WORKBENCH_DEFAULT_FILE", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// clearEnv blanks every variable LoadConfig reads; empty counts as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workbench.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKBENCH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %s:%d, want 0.0.0.0:8080", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Analysis.TemperaturePct != 3.6 || cfg.Analysis.PressurePct != 2.5 {
		t.Errorf("analysis bands = %v/%v, want 3.6/2.5", cfg.Analysis.TemperaturePct, cfg.Analysis.PressurePct)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Storage.DataDir != "./data" || cfg.Storage.DefaultFile != "weather.txt" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKBENCH_CONFIG", writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
  read_timeout: 5s
  write_timeout: bogus
logging:
  level: debug
analysis:
  temperature_pct: 5
  pressure_pct: 1.5
  forecast_seed: 42
storage:
  data_dir: /var/lib/workbench
rate_limit:
  rps: 0
`))

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want default 15s for a malformed value", cfg.Server.WriteTimeout)
	}
	if cfg.Analysis.TemperaturePct != 5 || cfg.Analysis.PressurePct != 1.5 || cfg.Analysis.ForecastSeed != 42 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.RateLimit.RPS != 0 {
		t.Errorf("RateLimit.RPS = %v, want explicit 0", cfg.RateLimit.RPS)
	}
	if cfg.Storage.DataDir != "/var/lib/workbench" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKBENCH_CONFIG", writeConfig(t, "server:\n  port: 9090\nanalysis:\n  pressure_pct: 1.5\n"))
	t.Setenv("WORKBENCH_PORT", "7070")
	t.Setenv("PRESSURE_PCT", "4")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("FORECAST_SEED", "7")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Analysis.PressurePct != 4 {
		t.Errorf("PressurePct = %v, want 4", cfg.Analysis.PressurePct)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Analysis.ForecastSeed != 7 {
		t.Errorf("ForecastSeed = %d, want 7", cfg.Analysis.ForecastSeed)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{"malformed yaml", "server: [", nil, "parse config file"},
		{"bad port env", "", map[string]string{"WORKBENCH_PORT": "http"}, "WORKBENCH_PORT"},
		{"bad pct env", "", map[string]string{"TEMPERATURE_PCT": "three"}, "TEMPERATURE_PCT"},
		{"negative seed", "", map[string]string{"FORECAST_SEED": "-1"}, "FORECAST_SEED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("WORKBENCH_CONFIG", writeConfig(t, tt.yaml))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			if err == nil {
				t.Fatalf("LoadConfig() = %+v, want error", cfg)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Analysis:  AnalysisConfig{TemperaturePct: 3.6, PressurePct: 2.5},
			Storage:   StorageConfig{DataDir: "./data"},
			RateLimit: RateLimitConfig{RPS: 10, Burst: 20},
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero temperature band", func(c *Config) { c.Analysis.TemperaturePct = 0 }, true},
		{"negative pressure band", func(c *Config) { c.Analysis.PressurePct = -1 }, true},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }, true},
		{"rps without burst", func(c *Config) { c.RateLimit.Burst = 0 }, true},
		{"limiter disabled without burst", func(c *Config) { c.RateLimit = RateLimitConfig{} }, false},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
