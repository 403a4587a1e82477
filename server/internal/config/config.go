package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort      = 3000
	DefaultStoragePath   = "tasks.json"
	DefaultWSInterval    = 30 * time.Second
	DefaultNotifyTimeout = 10 * time.Second
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds the full server configuration parsed from config.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	WS      WSConfig      `yaml:"ws"`
	Notify  NotifyConfig  `yaml:"notify"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the task API, /home, /metrics and /ws/tasks listen on (default 3000).
	HTTPPort int `yaml:"http_port"`

	// StaticDir serves /home from this directory instead of the embedded page.
	StaticDir string `yaml:"static_dir"`
}

// StorageConfig selects and configures the task store.
type StorageConfig struct {
	// Backend is one of: file | memory | sqlite.
	Backend string `yaml:"backend"`

	// Path is the JSON file (file backend) or database file (sqlite backend).
	Path string `yaml:"path"`

	// SerializeWrites holds a lock across load and save of each mutation.
	// Disabling it restores the unguarded load-then-save behaviour, where
	// concurrent writers can lose each other's updates.
	SerializeWrites bool `yaml:"serialize_writes"`

	// Watch pushes changes to the task file made outside the server to
	// WebSocket clients. File backend only.
	Watch bool `yaml:"watch"`
}

// WSConfig controls the live task stream.
type WSConfig struct {
	// Interval is how often the full collection is re-broadcast even without
	// changes. Zero disables the periodic broadcast.
	Interval time.Duration `yaml:"interval"`
}

// NotifyConfig holds change-notification webhook targets.
type NotifyConfig struct {
	// Timeout bounds each webhook POST (default 10s).
	Timeout time.Duration `yaml:"timeout"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// LogConfig controls the default slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// SlogLevel returns the parsed log level. Load has already validated it.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads and parses the config file at path. ${VAR} references are
// expanded from the environment before parsing, and missing fields are
// filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
		},
		Storage: StorageConfig{
			Backend:         BackendFile,
			Path:            DefaultStoragePath,
			SerializeWrites: true,
			Watch:           true,
		},
		WS: WSConfig{
			Interval: DefaultWSInterval,
		},
		Notify: NotifyConfig{
			Timeout: DefaultNotifyTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Storage.Backend {
	case BackendFile, BackendSQLite:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for backend %q", cfg.Storage.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q unknown: want file|memory|sqlite", cfg.Storage.Backend)
	}
	if cfg.WS.Interval < 0 {
		return fmt.Errorf("ws.interval must not be negative")
	}
	if cfg.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be positive")
	}
	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d].type %q unknown: want slack|teams|http", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d].url_env is required", i)
		}
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q unknown: want json|text", cfg.Log.Format)
	}
	return nil
}
