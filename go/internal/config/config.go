package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/bingo/go/internal/realtime/bridge"
	"github.com/mcdev12/bingo/go/internal/realtime/client"
	"github.com/mcdev12/bingo/go/internal/realtime/heartbeat"
	"github.com/mcdev12/bingo/go/internal/realtime/supervisor"
	"github.com/mcdev12/bingo/go/internal/realtime/transport"
)

// Config is the full client configuration. Values come from the defaults,
// then an optional YAML file, then BINGO_* environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Identity  IdentityConfig  `yaml:"identity"`
	Status    StatusConfig    `yaml:"status"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig describes the game server connection
type ServerConfig struct {
	URL               string        `yaml:"url" env:"BINGO_WS_URL"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" env:"BINGO_CONNECT_TIMEOUT"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout" env:"BINGO_HANDSHAKE_TIMEOUT"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env:"BINGO_WRITE_TIMEOUT"`
	ReadLimit         int64         `yaml:"read_limit" env:"BINGO_READ_LIMIT"`
	MessagesPerSecond float64       `yaml:"messages_per_second" env:"BINGO_MESSAGES_PER_SECOND"`
	Burst             int           `yaml:"burst" env:"BINGO_BURST"`
}

// ReconnectConfig is the backoff policy
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay" env:"BINGO_RECONNECT_BASE_DELAY"`
	Multiplier  float64       `yaml:"multiplier" env:"BINGO_RECONNECT_MULTIPLIER"`
	MaxDelay    time.Duration `yaml:"max_delay" env:"BINGO_RECONNECT_MAX_DELAY"`
	MaxAttempts int           `yaml:"max_attempts" env:"BINGO_RECONNECT_MAX_ATTEMPTS"`
}

// HeartbeatConfig controls liveness probing
type HeartbeatConfig struct {
	Interval   time.Duration `yaml:"interval" env:"BINGO_HEARTBEAT_INTERVAL"`
	StaleAfter time.Duration `yaml:"stale_after" env:"BINGO_HEARTBEAT_STALE_AFTER"`
}

// IdentityConfig is who the client connects as
type IdentityConfig struct {
	PlayerID  string `yaml:"player_id" env:"BINGO_PLAYER_ID"`
	SessionID string `yaml:"session_id" env:"BINGO_SESSION_ID"`
	Admin     bool   `yaml:"admin" env:"BINGO_ADMIN"`
}

// StatusConfig is the local HTTP status API
type StatusConfig struct {
	Addr           string   `yaml:"addr" env:"BINGO_STATUS_ADDR"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"BINGO_STATUS_ALLOWED_ORIGINS" envSeparator:","`
}

// BridgeConfig is the optional NATS bridge to an out-of-process UI
type BridgeConfig struct {
	Enabled       bool   `yaml:"enabled" env:"BINGO_BRIDGE_ENABLED"`
	URL           string `yaml:"url" env:"BINGO_NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" env:"BINGO_BRIDGE_SUBJECT_PREFIX"`
	IntentSubject string `yaml:"intent_subject" env:"BINGO_BRIDGE_INTENT_SUBJECT"`
}

// LogConfig controls zerolog output
type LogConfig struct {
	Level  string `yaml:"level" env:"BINGO_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"BINGO_LOG_PRETTY"`
}

// Default returns the built-in configuration
func Default() Config {
	tc := transport.DefaultConfig()
	rc := supervisor.DefaultConfig()
	hc := heartbeat.DefaultConfig()
	bc := bridge.DefaultConfig()

	return Config{
		Server: ServerConfig{
			URL:               "ws://localhost:8080/ws",
			ConnectTimeout:    rc.ConnectTimeout,
			HandshakeTimeout:  tc.HandshakeTimeout,
			WriteTimeout:      tc.WriteTimeout,
			ReadLimit:         tc.MaxMessageSize,
			MessagesPerSecond: float64(tc.MessagesPerSecond),
			Burst:             tc.Burst,
		},
		Reconnect: ReconnectConfig{
			BaseDelay:   rc.BaseDelay,
			Multiplier:  rc.Multiplier,
			MaxDelay:    rc.MaxDelay,
			MaxAttempts: rc.MaxAttempts,
		},
		Heartbeat: HeartbeatConfig{
			Interval:   hc.Interval,
			StaleAfter: hc.StaleAfter,
		},
		Status: StatusConfig{
			Addr:           ":8090",
			AllowedOrigins: []string{"*"},
		},
		Bridge: BridgeConfig{
			URL:           bc.URL,
			SubjectPrefix: bc.SubjectPrefix,
			IntentSubject: bc.IntentSubject,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting that cannot work
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Server.URL)
	switch {
	case c.Server.URL == "":
		errs = append(errs, errors.New("server.url is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("server.url: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("server.url: scheme %q is not ws or wss", u.Scheme))
	}

	if c.Server.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("server.connect_timeout must be positive"))
	}
	if c.Server.MessagesPerSecond < 0 || c.Server.Burst < 0 {
		errs = append(errs, errors.New("server rate limit must not be negative"))
	}
	if c.Reconnect.BaseDelay <= 0 {
		errs = append(errs, errors.New("reconnect.base_delay must be positive"))
	}
	if c.Reconnect.Multiplier < 1 {
		errs = append(errs, errors.New("reconnect.multiplier must be at least 1"))
	}
	if c.Reconnect.MaxDelay != 0 && c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		errs = append(errs, errors.New("reconnect.max_delay is below base_delay"))
	}
	if c.Heartbeat.Interval <= 0 {
		errs = append(errs, errors.New("heartbeat.interval must be positive"))
	}
	if c.Heartbeat.StaleAfter < c.Heartbeat.Interval {
		errs = append(errs, errors.New("heartbeat.stale_after is below interval"))
	}
	if c.Bridge.Enabled && c.Bridge.URL == "" {
		errs = append(errs, errors.New("bridge.url is required when the bridge is enabled"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// Client returns the realtime client configuration
func (c Config) Client() client.Config {
	cfg := client.DefaultConfig(c.Server.URL)
	cfg.Identity = client.Identity{
		PlayerID:  c.Identity.PlayerID,
		SessionID: c.Identity.SessionID,
		IsAdmin:   c.Identity.Admin,
	}

	cfg.Transport.HandshakeTimeout = c.Server.HandshakeTimeout
	cfg.Transport.WriteTimeout = c.Server.WriteTimeout
	cfg.Transport.MaxMessageSize = c.Server.ReadLimit
	cfg.Transport.MessagesPerSecond = rate.Limit(c.Server.MessagesPerSecond)
	cfg.Transport.Burst = c.Server.Burst

	cfg.Reconnect = supervisor.Config{
		BaseDelay:      c.Reconnect.BaseDelay,
		Multiplier:     c.Reconnect.Multiplier,
		MaxDelay:       c.Reconnect.MaxDelay,
		MaxAttempts:    c.Reconnect.MaxAttempts,
		ConnectTimeout: c.Server.ConnectTimeout,
	}
	cfg.Heartbeat = heartbeat.Config{
		Interval:   c.Heartbeat.Interval,
		StaleAfter: c.Heartbeat.StaleAfter,
	}
	return cfg
}

// NATS returns the bridge configuration
func (c Config) NATS() bridge.Config {
	cfg := bridge.DefaultConfig()
	cfg.URL = c.Bridge.URL
	cfg.SubjectPrefix = c.Bridge.SubjectPrefix
	cfg.IntentSubject = c.Bridge.IntentSubject
	return cfg
}

// LogLevel returns the parsed log level, falling back to info
func (c Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
