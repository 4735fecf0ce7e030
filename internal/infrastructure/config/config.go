package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/logging"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Sim       SimConfig       `yaml:"sim" toml:"sim"`
	Canvas    CanvasConfig    `yaml:"canvas" toml:"canvas"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string `envconfig:"PORT" default:"8080" yaml:"port" toml:"port"`
	Host        string `envconfig:"HOST" default:"127.0.0.1" yaml:"host" toml:"host"`
	OpenBrowser bool   `envconfig:"OPEN_BROWSER" default:"false" yaml:"open_browser" toml:"open_browser"`
}

// SimConfig holds the simulation parameters.
type SimConfig struct {
	Mechanism   string   `envconfig:"SIM_MECHANISM" default:"pipe" yaml:"mechanism" toml:"mechanism"`
	FrameRate   int      `envconfig:"SIM_FRAME_RATE" default:"60" yaml:"frame_rate" toml:"frame_rate"`
	PacketSpeed float64  `envconfig:"SIM_PACKET_SPEED" default:"0.015" yaml:"packet_speed" toml:"packet_speed"`
	Highlight   Duration `envconfig:"SIM_HIGHLIGHT" default:"500ms" yaml:"highlight" toml:"highlight"`
	MaxMessage  int      `envconfig:"SIM_MAX_MESSAGE" default:"280" yaml:"max_message" toml:"max_message"`
}

// CanvasConfig holds the canvas size in pixels.
type CanvasConfig struct {
	Width  float64 `envconfig:"CANVAS_WIDTH" default:"600" yaml:"width" toml:"width"`
	Height float64 `envconfig:"CANVAS_HEIGHT" default:"300" yaml:"height" toml:"height"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration for the control API.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Duration is a time.Duration written as "500ms" in env vars and files.
type Duration time.Duration

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration the way UnmarshalText reads it
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library value
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "127.0.0.1",
		},
		Sim: SimConfig{
			Mechanism:   string(sim.MechanismPipe),
			FrameRate:   60,
			PacketSpeed: 0.015,
			Highlight:   Duration(500 * time.Millisecond),
			MaxMessage:  280,
		},
		Canvas: CanvasConfig{
			Width:  600,
			Height: 300,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// LoadDotEnv loads .env style files into the process environment. Variables
// already set win, and missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyFile overlays the YAML or TOML file at path onto cfg. Keys absent from
// the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}
	return nil
}

// Resolve builds the effective configuration: .env files, then environment
// variables, then the optional config file. The result is validated.
func Resolve(path string, envFiles ...string) (*Config, error) {
	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Server.Port))
	}
	if _, err := sim.ParseMechanism(c.Sim.Mechanism); err != nil {
		errs = append(errs, err)
	}
	if c.Sim.FrameRate < 1 || c.Sim.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("frame rate must be in [1, 240], got %d", c.Sim.FrameRate))
	}
	if err := c.SimConfig().Validate(); err != nil && !errors.Is(err, sim.ErrUnknownMechanism) {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, fmt.Errorf("rate limit needs positive rps and burst, got %d/%d",
			c.RateLimit.RequestsPerSecond, c.RateLimit.Burst))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// FrameInterval is the time between animation frames
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Sim.FrameRate)
}

// SimConfig converts the simulation section to controller parameters
func (c *Config) SimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Layout.Width = c.Canvas.Width
	cfg.Layout.Height = c.Canvas.Height
	cfg.Mechanism = sim.Mechanism(c.Sim.Mechanism)
	cfg.PacketSpeed = c.Sim.PacketSpeed
	cfg.HighlightDuration = c.Sim.Highlight.Std()
	cfg.MaxMessageRunes = c.Sim.MaxMessage
	return cfg
}

// LoggerConfig converts the logging section for the logging package
func (c *Config) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Logging.Development {
		cfg = logging.DevelopmentConfig()
	}
	cfg.Level = c.Logging.Level
	return cfg
}
