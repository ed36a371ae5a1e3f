package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Split    SplitConfig    `yaml:"split" envconfig:"SPLIT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system path configuration. Relative entries are
// resolved against BaseDir, which itself defaults to the working directory.
type PathsConfig struct {
	BaseDir   string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// SplitConfig contains defaults applied to split runs started through the
// HTTP service.
type SplitConfig struct {
	Workbook bool          `yaml:"workbook" envconfig:"WORKBOOK"`
	BOM      bool          `yaml:"bom" envconfig:"BOM"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    "logs/dumpsift.log",
			Development: true,
		},
		Paths: PathsConfig{
			DataDir:   "data",
			OutputDir: "data/output",
			LogsDir:   "logs",
		},
		Split: SplitConfig{
			Timeout: 2 * time.Minute,
		},
	}
}

// Load builds the configuration in three layers: built-in defaults, then the
// YAML config file if one exists, then environment variables. Environment
// always wins.
func Load() (*Config, error) {
	return LoadFromFile(configFilePath())
}

// LoadFromFile is Load with an explicit config file path. A missing file is
// not an error; the defaults and environment still apply.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" && FileExists(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("DUMPSIFT", cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// configFilePath returns the config file location, overridable through
// DUMPSIFT_CONFIG.
func configFilePath() string {
	if path := os.Getenv("DUMPSIFT_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive, got %g", c.Security.RateLimit.RPS)
		}
		if c.Security.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be at least 1, got %d", c.Security.RateLimit.Burst)
		}
	}

	if c.Split.Timeout <= 0 {
		return fmt.Errorf("split timeout must be positive, got %s", c.Split.Timeout)
	}
	return nil
}
