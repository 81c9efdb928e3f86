// Package config loads the grove configuration from a YAML file overlaid
// with GROVE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/grove/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. Nested keys are joined
// with an underscore: GROVE_HTTP_PORT sets http.port.
const EnvPrefix = "GROVE_"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the full configuration of a grove process.
type Config struct {
	LogLevel  string  `mapstructure:"log_level"`
	LogFormat string  `mapstructure:"log_format"`
	Seed      string  `mapstructure:"seed"`
	HTTP      HTTP    `mapstructure:"http"`
	Metrics   Metrics `mapstructure:"metrics"`
	Storage   Storage `mapstructure:"storage"`
	Redis     Redis   `mapstructure:"redis"`
	Sync      Sync    `mapstructure:"sync"`
}

type HTTP struct {
	Port int `mapstructure:"port"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

// Storage selects where snapshots of the tree are kept.
type Storage struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Format  string `mapstructure:"format"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type Sync struct {
	Enabled bool   `mapstructure:"enabled"`
	Key     string `mapstructure:"key"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: logging.FormatText,
		HTTP:      HTTP{Port: 8080},
		Metrics:   Metrics{Enabled: true},
		Storage: Storage{
			Backend: BackendMemory,
			Path:    ".grove/collections",
			Format:  "json",
		},
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "grove:collections:",
		},
		Sync: Sync{Key: "personal"},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	return load(path, os.Environ())
}

func load(path string, environ []string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	overlayEnv(raw, environ)

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// sections are the nested keys an environment variable may address.
var sections = []string{"http", "metrics", "storage", "redis", "sync"}

func overlayEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		section, field, nested := strings.Cut(key, "_")
		if !nested || !isSection(section) {
			raw[key] = value
			continue
		}
		sub, ok := raw[section].(map[string]any)
		if !ok {
			sub = map[string]any{}
			raw[section] = sub
		}
		sub[field] = value
	}
}

func isSection(name string) bool {
	for _, s := range sections {
		if s == name {
			return true
		}
	}
	return false
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if err := logging.ValidateFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	switch c.Storage.Format {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("unknown storage format %q", c.Storage.Format))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port %d", c.HTTP.Port))
	}
	if c.Sync.Enabled && c.Storage.Backend == BackendMemory {
		errs = append(errs, errors.New("sync requires a file or redis storage backend"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
