// Package config loads the server configuration from defaults, an optional
// YAML file and NETSYS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Tick      TickConfig      `mapstructure:"tick"`
	Status    StatusConfig    `mapstructure:"status"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig controls the TCP endpoint and the per-connection pipeline.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// NativeTransport allows the platform's native socket backend.
	NativeTransport bool `mapstructure:"native_transport"`
	// ReadTimeout closes connections that send nothing for this long; 0 disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	LegacyQuery bool          `mapstructure:"legacy_query"`
	// Local also binds an in-process endpoint.
	Local bool `mapstructure:"local"`
}

type WebSocketConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
	Path   string `mapstructure:"path"`
}

type TickConfig struct {
	// Rate is ticks per second.
	Rate int `mapstructure:"rate"`
	// ShuffleInterval reorders sessions every N ticks; 0 disables it.
	ShuffleInterval int `mapstructure:"shuffle_interval"`
}

type StatusConfig struct {
	MOTD       string `mapstructure:"motd"`
	Version    string `mapstructure:"version"`
	Protocol   int    `mapstructure:"protocol"`
	MaxPlayers int    `mapstructure:"max_players"`
}

// LogConfig defines logger settings. File enables rotation through lumberjack.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            25565,
			NativeTransport: true,
			ReadTimeout:     30 * time.Second,
			LegacyQuery:     true,
		},
		WebSocket: WebSocketConfig{
			Addr: "localhost:9090",
			Path: "/ws",
		},
		Tick: TickConfig{Rate: 20},
		Status: StatusConfig{
			MOTD:       "A Minecraft Server",
			Version:    "1.8.8",
			Protocol:   47,
			MaxPlayers: 20,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Load reads configuration from path (if non-empty), otherwise from
// NETSYS_CONFIG or a netsys.yaml found in the working directory or ./configs.
// Environment variables use the prefix NETSYS with `.` replaced by `_`,
// e.g. NETSYS_SERVER_PORT=25570.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NETSYS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.native_transport", cfg.Server.NativeTransport)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.legacy_query", cfg.Server.LegacyQuery)
	v.SetDefault("server.local", cfg.Server.Local)
	v.SetDefault("websocket.enable", cfg.WebSocket.Enable)
	v.SetDefault("websocket.addr", cfg.WebSocket.Addr)
	v.SetDefault("websocket.path", cfg.WebSocket.Path)
	v.SetDefault("tick.rate", cfg.Tick.Rate)
	v.SetDefault("tick.shuffle_interval", cfg.Tick.ShuffleInterval)
	v.SetDefault("status.motd", cfg.Status.MOTD)
	v.SetDefault("status.version", cfg.Status.Version)
	v.SetDefault("status.protocol", cfg.Status.Protocol)
	v.SetDefault("status.max_players", cfg.Status.MaxPlayers)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("log.max_age_days", cfg.Log.MaxAgeDays)
	v.SetDefault("log.compress", cfg.Log.Compress)

	if path == "" {
		path = os.Getenv("NETSYS_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("netsys")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".netsys"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("invalid server.read_timeout: %s", c.Server.ReadTimeout)
	}
	if c.Tick.Rate <= 0 {
		return fmt.Errorf("invalid tick.rate: %d", c.Tick.Rate)
	}
	if c.Tick.ShuffleInterval < 0 {
		return fmt.Errorf("invalid tick.shuffle_interval: %d", c.Tick.ShuffleInterval)
	}
	return nil
}
