package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/turbosocket/internal/command"
	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/logging"
	"github.com/GriffinCanCode/turbosocket/internal/transport"
)

// FileEnv names the environment variable holding an optional config file
const FileEnv = "TURBOSOCKET_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline" toml:"pipeline"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds listener configuration. ConnRate caps new WebSocket
// sessions per second across all clients; 0 disables the cap.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" yaml:"port" toml:"port"`
	Host            string   `envconfig:"HOST" yaml:"host" toml:"host"`
	TCPAddr         string   `envconfig:"TCP_ADDR" yaml:"tcp_addr" toml:"tcp_addr"`
	MaxConns        int      `envconfig:"MAX_CONNS" yaml:"max_conns" toml:"max_conns"`
	ShutdownTimeout Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	CORSOrigins     []string `envconfig:"CORS_ORIGINS" yaml:"cors_origins" toml:"cors_origins"`
	ConnRate        int      `envconfig:"CONN_RATE" yaml:"conn_rate" toml:"conn_rate"`
}

// Addr returns the HTTP listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// PipelineConfig holds per-connection pipeline configuration.
type PipelineConfig struct {
	PollInterval     Duration `envconfig:"PIPELINE_POLL_INTERVAL" yaml:"poll_interval" toml:"poll_interval"`
	StopPollInterval Duration `envconfig:"PIPELINE_STOP_POLL" yaml:"stop_poll_interval" toml:"stop_poll_interval"`
	Executor         string   `envconfig:"PIPELINE_EXECUTOR" yaml:"executor" toml:"executor"`
	Framing          string   `envconfig:"PIPELINE_FRAMING" yaml:"framing" toml:"framing"`
	BreakerThreshold uint32   `envconfig:"PIPELINE_BREAKER_THRESHOLD" yaml:"breaker_threshold" toml:"breaker_threshold"`
	BreakerCooldown  Duration `envconfig:"PIPELINE_BREAKER_COOLDOWN" yaml:"breaker_cooldown" toml:"breaker_cooldown"`
}

// LogConfig holds logging configuration. An empty Level uses the preset's.
type LogConfig struct {
	Level       string   `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool     `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
	Output      []string `envconfig:"LOG_OUTPUT" yaml:"output" toml:"output"`
}

// Logger returns the logging preset for the configured mode with any level
// and outputs set here applied on top.
func (l LogConfig) Logger() logging.Config {
	cfg := logging.DefaultConfig()
	if l.Development {
		cfg = logging.DevelopmentConfig()
	}
	if l.Level != "" {
		cfg.Level = l.Level
	}
	if len(l.Output) > 0 {
		cfg.OutputPaths = l.Output
	}
	return cfg
}

// RateLimitConfig holds rate limiting configuration. The same budget applies
// per client IP on HTTP routes and per connection to inbound commands.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// Duration is a time.Duration read from text such as "150ms"
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load builds configuration from defaults, then the file named by
// TURBOSOCKET_CONFIG if set, then environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays a YAML (.yaml, .yml) or TOML (.toml) file onto cfg.
// Keys missing from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is empty"))
	}
	if c.Server.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("max conns must not be negative, got %d", c.Server.MaxConns))
	}
	if c.Server.ConnRate < 0 {
		errs = append(errs, fmt.Errorf("conn rate must not be negative, got %d", c.Server.ConnRate))
	}
	if c.Pipeline.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("pipeline poll interval must be positive, got %s", c.Pipeline.PollInterval))
	}
	if c.Pipeline.StopPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("stop poll interval must be positive, got %s", c.Pipeline.StopPollInterval))
	}
	if !slices.Contains(command.Kinds(), c.Pipeline.Executor) {
		errs = append(errs, fmt.Errorf("unknown executor %q (available: %v)", c.Pipeline.Executor, command.Kinds()))
	}
	if _, err := transport.NewFraming(c.Pipeline.Framing); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Level != "" {
		if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
			errs = append(errs, err)
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate limit rps and burst must be positive when enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			TCPAddr:         ":7000",
			MaxConns:        1024,
			ShutdownTimeout: Duration(5 * time.Second),
			CORSOrigins:     []string{"*"},
		},
		Pipeline: PipelineConfig{
			PollInterval:     Duration(100 * time.Millisecond),
			StopPollInterval: Duration(10 * time.Millisecond),
			Executor:         string(command.KindEcho),
			Framing:          transport.FramingLine,
			BreakerThreshold: 5,
			BreakerCooldown:  Duration(time.Second),
		},
		Logging: LogConfig{
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
