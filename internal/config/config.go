// Package config loads client settings from a .env file, an optional YAML
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transports understood by the client.
const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Config holds the client settings.
type Config struct {
	Server ServerConfig `yaml:"server"`
	NATS   NATSConfig   `yaml:"nats"`
	HTTP   HTTPConfig   `yaml:"http"`
	Game   GameConfig   `yaml:"game"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig selects how the client reaches the game server.
type ServerConfig struct {
	URL                string `yaml:"url"`
	Transport          string `yaml:"transport"`
	ReconnectPerMinute int    `yaml:"reconnect_per_minute"`
}

// NATSConfig holds NATS settings, used when Transport is "nats".
type NATSConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// HTTPConfig holds the local UI listener settings.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// GameConfig holds the round options and notice feed size.
type GameConfig struct {
	ExtendedOptions bool `yaml:"extended_options"`
	Cooldown        bool `yaml:"cooldown"`
	NoticeLimit     int  `yaml:"notice_limit"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:                "ws://localhost:3000/ws",
			Transport:          TransportWebSocket,
			ReconnectPerMinute: 12,
		},
		NATS: NATSConfig{
			URL:    "nats://localhost:4222",
			Prefix: "rps",
		},
		HTTP: HTTPConfig{ListenAddr: ":8080"},
		Game: GameConfig{NoticeLimit: 50},
		Log:  LogConfig{Level: "info"},
	}
}

// Load starts from Default, applies the YAML file at path when it exists and
// then the RPS_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RPS_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("RPS_TRANSPORT"); v != "" {
		cfg.Server.Transport = strings.ToLower(v)
	}
	if raw := os.Getenv("RPS_RECONNECT_PER_MINUTE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.Server.ReconnectPerMinute = value
		}
	}
	if v := os.Getenv("RPS_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("RPS_NATS_PREFIX"); v != "" {
		cfg.NATS.Prefix = v
	}
	if v := os.Getenv("RPS_LISTEN_ADDR"); v != "" {
		cfg.HTTP.ListenAddr = v
	}
	if v := os.Getenv("RPS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if raw := os.Getenv("RPS_EXTENDED_OPTIONS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Game.ExtendedOptions = value
		}
	}
	if raw := os.Getenv("RPS_COOLDOWN"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Game.Cooldown = value
		}
	}
	if raw := os.Getenv("RPS_NOTICE_LIMIT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Game.NoticeLimit = value
		}
	}
}

// Validate reports settings the client cannot start with.
func (c Config) Validate() error {
	switch c.Server.Transport {
	case TransportWebSocket:
		if c.Server.URL == "" {
			return errors.New("config: server url is required for the websocket transport")
		}
	case TransportNATS:
		if c.NATS.URL == "" || c.NATS.Prefix == "" {
			return errors.New("config: nats url and prefix are required for the nats transport")
		}
	default:
		return fmt.Errorf("config: unknown transport %q", c.Server.Transport)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name onto slog.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level %q: %w", name, err)
	}
	return level, nil
}
