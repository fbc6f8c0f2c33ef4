package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bingo.yaml")
	yamlBody := `
server:
  url: wss://bingo.example.com/ws
  connect_timeout: 5s
reconnect:
  base_delay: 1s
  max_attempts: 4
identity:
  player_id: from-file
status:
  allowed_origins: ["http://localhost:3000"]
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("BINGO_PLAYER_ID", "from-env")
	t.Setenv("BINGO_RECONNECT_MAX_ATTEMPTS", "7")
	t.Setenv("BINGO_STATUS_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.URL != "wss://bingo.example.com/ws" {
		t.Errorf("url = %q", cfg.Server.URL)
	}
	if cfg.Server.ConnectTimeout != 5*time.Second {
		t.Errorf("connect timeout = %v", cfg.Server.ConnectTimeout)
	}
	if cfg.Reconnect.BaseDelay != time.Second || cfg.Reconnect.Multiplier != 1.5 {
		t.Errorf("reconnect = %+v", cfg.Reconnect)
	}
	if cfg.Reconnect.MaxAttempts != 7 {
		t.Errorf("max attempts = %d, want env override 7", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Identity.PlayerID != "from-env" {
		t.Errorf("player id = %q, want env override", cfg.Identity.PlayerID)
	}
	if len(cfg.Status.AllowedOrigins) != 2 || cfg.Status.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("origins = %v", cfg.Status.AllowedOrigins)
	}
	if cfg.LogLevel() != zerolog.DebugLevel {
		t.Errorf("log level = %v", cfg.LogLevel())
	}

	cc := cfg.Client()
	if cc.Reconnect.ConnectTimeout != 5*time.Second || cc.Reconnect.MaxAttempts != 7 {
		t.Errorf("client reconnect = %+v", cc.Reconnect)
	}
	if cc.Identity.PlayerID != "from-env" {
		t.Errorf("client identity = %+v", cc.Identity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.Server.URL = "" }, "server.url is required"},
		{"http url", func(c *Config) { c.Server.URL = "http://localhost/ws" }, "not ws or wss"},
		{"zero connect timeout", func(c *Config) { c.Server.ConnectTimeout = 0 }, "connect_timeout"},
		{"negative rate", func(c *Config) { c.Server.MessagesPerSecond = -1 }, "rate limit"},
		{"zero base delay", func(c *Config) { c.Reconnect.BaseDelay = 0 }, "base_delay"},
		{"shrinking multiplier", func(c *Config) { c.Reconnect.Multiplier = 0.5 }, "multiplier"},
		{"max below base", func(c *Config) { c.Reconnect.MaxDelay = time.Millisecond }, "max_delay"},
		{"zero interval", func(c *Config) { c.Heartbeat.Interval = 0 }, "heartbeat.interval"},
		{"stale below interval", func(c *Config) { c.Heartbeat.StaleAfter = time.Second }, "stale_after"},
		{"bridge without url", func(c *Config) { c.Bridge.Enabled = true; c.Bridge.URL = "" }, "bridge.url"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}
