package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, ":7000", cfg.Server.TCPAddr)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())

	// Pipeline config
	assert.Equal(t, 100*time.Millisecond, cfg.Pipeline.PollInterval.Std())
	assert.Equal(t, 10*time.Millisecond, cfg.Pipeline.StopPollInterval.Std())
	assert.Equal(t, "echo", cfg.Pipeline.Executor)
	assert.Equal(t, "line", cfg.Pipeline.Framing)

	// Logging config
	assert.Empty(t, cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "info", cfg.Logging.Logger().Level)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("PIPELINE_EXECUTOR", "shell")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLogConfigLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		level   string
		dev     bool
		outputs []string
	}{
		{name: "production preset", cfg: LogConfig{}, level: "info", outputs: []string{"stdout"}},
		{name: "development preset", cfg: LogConfig{Development: true}, level: "debug", dev: true, outputs: []string{"stdout"}},
		{name: "level override", cfg: LogConfig{Development: true, Level: "warn"}, level: "warn", dev: true, outputs: []string{"stdout"}},
		{
			name:    "outputs override",
			cfg:     LogConfig{Output: []string{"stderr", "/tmp/ts.log"}},
			level:   "info",
			outputs: []string{"stderr", "/tmp/ts.log"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.Logger()
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.dev, got.Development)
			assert.Equal(t, tt.outputs, got.OutputPaths)
		})
	}
}

func TestLoadLogOutputFromEnv(t *testing.T) {
	t.Setenv("LOG_OUTPUT", "stdout,/tmp/turbosocket.log")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"stdout", "/tmp/turbosocket.log"}, cfg.Logging.Output)
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	assert.ErrorContains(t, cfg.Validate(), "invalid log level")
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                   "9000",
		"HOST":                   "127.0.0.1",
		"TCP_ADDR":               "127.0.0.1:7100",
		"MAX_CONNS":              "16",
		"CORS_ORIGINS":           "http://a.test,http://b.test",
		"PIPELINE_POLL_INTERVAL": "250ms",
		"PIPELINE_STOP_POLL":     "5ms",
		"PIPELINE_EXECUTOR":      "upper",
		"PIPELINE_FRAMING":       "hex",
		"LOG_LEVEL":              "debug",
		"LOG_DEV":                "true",
		"RATE_LIMIT_RPS":         "500",
		"RATE_LIMIT_BURST":       "1000",
		"RATE_LIMIT_ENABLED":     "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "127.0.0.1:7100", cfg.Server.TCPAddr)
	assert.Equal(t, 16, cfg.Server.MaxConns)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)

	assert.Equal(t, 250*time.Millisecond, cfg.Pipeline.PollInterval.Std())
	assert.Equal(t, 5*time.Millisecond, cfg.Pipeline.StopPollInterval.Std())
	assert.Equal(t, "upper", cfg.Pipeline.Executor)
	assert.Equal(t, "hex", cfg.Pipeline.Framing)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "echo", cfg.Pipeline.Executor)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "turbosocket.yaml",
			content: `
server:
  port: "8100"
pipeline:
  poll_interval: 50ms
  executor: hex
`,
		},
		{
			name: "toml",
			file: "turbosocket.toml",
			content: `
[server]
port = "8100"

[pipeline]
poll_interval = "50ms"
executor = "hex"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.LoadFile(writeFile(t, tt.file, tt.content)))

			assert.Equal(t, "8100", cfg.Server.Port)
			assert.Equal(t, 50*time.Millisecond, cfg.Pipeline.PollInterval.Std())
			assert.Equal(t, "hex", cfg.Pipeline.Executor)

			// Keys absent from the file keep their defaults
			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, "line", cfg.Pipeline.Framing)
			assert.Equal(t, 10*time.Millisecond, cfg.Pipeline.StopPollInterval.Std())
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()

	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, cfg.LoadFile(writeFile(t, "config.json", "{}")))
	assert.Error(t, cfg.LoadFile(writeFile(t, "bad.toml", "[server\nport = ")))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "turbosocket.yml", "server:\n  port: \"8100\"\n  host: 127.0.0.1\n")
	t.Setenv(FileEnv, path)
	t.Setenv("PORT", "8200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8200", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero poll interval", func(c *Config) { c.Pipeline.PollInterval = 0 }, "poll interval"},
		{"negative stop poll", func(c *Config) { c.Pipeline.StopPollInterval = Duration(-time.Millisecond) }, "stop poll"},
		{"unknown executor", func(c *Config) { c.Pipeline.Executor = "shell" }, "unknown executor"},
		{"unknown framing", func(c *Config) { c.Pipeline.Framing = "base64" }, "unknown framing"},
		{"empty port", func(c *Config) { c.Server.Port = "" }, "port"},
		{"negative max conns", func(c *Config) { c.Server.MaxConns = -1 }, "max conns"},
		{"rate limit without budget", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 1m30s ")))
	assert.Equal(t, 90*time.Second, d.Std())

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
