package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when WORKBENCH_CONFIG is unset. A missing file is not an error.
const DefaultConfigPath = "config/workbench.yaml"

// Config holds workbench configuration loaded from YAML, .env and the environment
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Analysis  AnalysisConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string
}

// AnalysisConfig holds the bounded drift bands and the forecast seed.
// A zero ForecastSeed seeds from the clock.
type AnalysisConfig struct {
	TemperaturePct float64
	PressurePct    float64
	ForecastSeed   uint64
}

// StorageConfig locates record files. File names given to the API resolve under DataDir.
type StorageConfig struct {
	DataDir     string
	DefaultFile string
}

// RateLimitConfig configures the API token bucket. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type fileConfig struct {
	Server struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Analysis struct {
		TemperaturePct *float64 `yaml:"temperature_pct"`
		PressurePct    *float64 `yaml:"pressure_pct"`
		ForecastSeed   uint64   `yaml:"forecast_seed"`
	} `yaml:"analysis"`

	Storage struct {
		DataDir     string `yaml:"data_dir"`
		DefaultFile string `yaml:"default_file"`
	} `yaml:"storage"`

	RateLimit struct {
		RPS   *float64 `yaml:"rps"`
		Burst int      `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// LoadConfig reads .env (if present), then the YAML file named by WORKBENCH_CONFIG,
// then applies environment overrides. Call Validate on the result.
func LoadConfig() (*Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	path := getenvDefault("WORKBENCH_CONFIG", DefaultConfigPath)

	var fc fileConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.Server.Host = fc.Server.Host
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	cfg.Server.Port = fc.Server.Port
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	cfg.Server.ReadTimeout = parseDuration(fc.Server.ReadTimeout, 15*time.Second)
	cfg.Server.WriteTimeout = parseDuration(fc.Server.WriteTimeout, 15*time.Second)
	cfg.Server.IdleTimeout = parseDuration(fc.Server.IdleTimeout, 60*time.Second)
	cfg.Server.ShutdownTimeout = parseDuration(fc.Server.ShutdownTimeout, 30*time.Second)

	cfg.Logging.Level = fc.Logging.Level
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	cfg.Analysis.TemperaturePct = 3.6
	if fc.Analysis.TemperaturePct != nil {
		cfg.Analysis.TemperaturePct = *fc.Analysis.TemperaturePct
	}
	cfg.Analysis.PressurePct = 2.5
	if fc.Analysis.PressurePct != nil {
		cfg.Analysis.PressurePct = *fc.Analysis.PressurePct
	}
	cfg.Analysis.ForecastSeed = fc.Analysis.ForecastSeed

	cfg.Storage.DataDir = fc.Storage.DataDir
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data"
	}
	cfg.Storage.DefaultFile = fc.Storage.DefaultFile
	if cfg.Storage.DefaultFile == "" {
		cfg.Storage.DefaultFile = "weather.txt"
	}

	cfg.RateLimit.RPS = 50
	if fc.RateLimit.RPS != nil {
		cfg.RateLimit.RPS = *fc.RateLimit.RPS
	}
	cfg.RateLimit.Burst = fc.RateLimit.Burst
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 100
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error

	if v := os.Getenv("WORKBENCH_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("WORKBENCH_PORT"); v != "" {
		if cfg.Server.Port, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid WORKBENCH_PORT: %w", err)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("TEMPERATURE_PCT"); v != "" {
		if cfg.Analysis.TemperaturePct, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid TEMPERATURE_PCT: %w", err)
		}
	}
	if v := os.Getenv("PRESSURE_PCT"); v != "" {
		if cfg.Analysis.PressurePct, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid PRESSURE_PCT: %w", err)
		}
	}
	if v := os.Getenv("FORECAST_SEED"); v != "" {
		if cfg.Analysis.ForecastSeed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("invalid FORECAST_SEED: %w", err)
		}
	}
	if v := os.Getenv("WORKBENCH_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("WORKBENCH_DEFAULT_FILE"); v != "" {
		cfg.Storage.DefaultFile = v
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if cfg.RateLimit.RPS, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if cfg.RateLimit.Burst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
		}
	}
	return nil
}

// Validate checks value ranges after loading
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Analysis.TemperaturePct <= 0 {
		return fmt.Errorf("analysis.temperature_pct must be positive, got %v", c.Analysis.TemperaturePct)
	}
	if c.Analysis.PressurePct <= 0 {
		return fmt.Errorf("analysis.pressure_pct must be positive, got %v", c.Analysis.PressurePct)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must not be negative, got %v", c.RateLimit.RPS)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive when rps is set, got %d", c.RateLimit.Burst)
	}
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir must not be empty")
	}
	return nil
}

// parseDuration returns defaultVal for an empty, malformed or non-positive value
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
