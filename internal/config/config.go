// Package config handles framecap configuration.
//
// Values come from defaults, then an optional YAML file, then FRAMECAP_* environment
// variables. Command-line flags are applied by the binaries on top of the result.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/framecap/internal/errors"
)

// PNG compression presets accepted by PNGCompression.
const (
	CompressionDefault = "default"
	CompressionSpeed   = "speed"
	CompressionBest    = "best"
	CompressionNone    = "none"
)

type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"` // empty disables the control plane
	OutputDir       string        `yaml:"output_dir"`
	Capacity        int           `yaml:"capacity"`
	RecentLimit     int           `yaml:"recent_limit"`
	CaptureInterval time.Duration `yaml:"capture_interval"`
	CaptureTimeout  time.Duration `yaml:"capture_timeout"` // 0 = no per-capture timeout
	Display         int           `yaml:"display"`
	MaxWidth        int           `yaml:"max_width"` // 0 = keep native resolution
	PNGCompression  string        `yaml:"png_compression"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	WatchOutputDir  bool          `yaml:"watch_output_dir"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:        ":5000",
		GRPCAddr:        "localhost:50051",
		OutputDir:       "frames",
		Capacity:        50,
		RecentLimit:     6,
		CaptureInterval: 2 * time.Second,
		CaptureTimeout:  0,
		Display:         0,
		MaxWidth:        0,
		PNGCompression:  CompressionDefault,
		AllowedOrigin:   "http://localhost:5173",
		WatchOutputDir:  true,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadFile reads a YAML file over the defaults and then applies the environment.
// An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "parse config %s", path)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("FRAMECAP_HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = getEnvAllowEmpty("FRAMECAP_GRPC_ADDR", c.GRPCAddr)
	c.OutputDir = getEnv("FRAMECAP_OUTPUT_DIR", c.OutputDir)
	c.Capacity = getEnvInt("FRAMECAP_CAPACITY", c.Capacity)
	c.RecentLimit = getEnvInt("FRAMECAP_RECENT_LIMIT", c.RecentLimit)
	c.CaptureInterval = getEnvDuration("FRAMECAP_CAPTURE_INTERVAL", c.CaptureInterval)
	c.CaptureTimeout = getEnvDuration("FRAMECAP_CAPTURE_TIMEOUT", c.CaptureTimeout)
	c.Display = getEnvInt("FRAMECAP_DISPLAY", c.Display)
	c.MaxWidth = getEnvInt("FRAMECAP_MAX_WIDTH", c.MaxWidth)
	c.PNGCompression = getEnv("FRAMECAP_PNG_COMPRESSION", c.PNGCompression)
	c.AllowedOrigin = getEnv("FRAMECAP_ALLOWED_ORIGIN", c.AllowedOrigin)
	c.WatchOutputDir = getEnvBool("FRAMECAP_WATCH_OUTPUT_DIR", c.WatchOutputDir)
	c.LogLevel = getEnv("FRAMECAP_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("FRAMECAP_LOG_FORMAT", c.LogFormat)
}

// Validate rejects values the capture pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.OutputDir == "":
		return apperrors.New(apperrors.CodeConfigInvalid, "output_dir must not be empty")
	case c.Capacity <= 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "capacity must be positive, got %d", c.Capacity)
	case c.RecentLimit <= 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "recent_limit must be positive, got %d", c.RecentLimit)
	case c.CaptureInterval <= 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "capture_interval must be positive, got %s", c.CaptureInterval)
	case c.CaptureTimeout < 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "capture_timeout must not be negative, got %s", c.CaptureTimeout)
	case c.Display < 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "display must not be negative, got %d", c.Display)
	case c.MaxWidth < 0:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "max_width must not be negative, got %d", c.MaxWidth)
	}

	switch c.PNGCompression {
	case CompressionDefault, CompressionSpeed, CompressionBest, CompressionNone:
	default:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown png_compression %q", c.PNGCompression)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown log_format %q", c.LogFormat)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown log_level %q", c.LogLevel)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvAllowEmpty distinguishes an unset variable from one set to "".
func getEnvAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
