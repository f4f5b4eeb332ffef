// Package config loads the bot configuration from defaults, an optional YAML file,
// an optional .env file and NUTRI_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Config is the full bot configuration.
type Config struct {
	HTTP            HTTPConfig     `mapstructure:"http" yaml:"http"`
	Log             LogConfig      `mapstructure:"log" yaml:"log"`
	Store           StoreConfig    `mapstructure:"store" yaml:"store"`
	Lock            LockConfig     `mapstructure:"lock" yaml:"lock"`
	Gateway         GatewayConfig  `mapstructure:"gateway" yaml:"gateway"`
	Telegram        TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Timezone        string         `mapstructure:"timezone" yaml:"timezone"`
	ConflictRetries int            `mapstructure:"conflict_retries" yaml:"conflict_retries"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text | json
}

type StoreConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Prefix  string        `mapstructure:"prefix" yaml:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite" yaml:"sqlite"`
	File    FileConfig    `mapstructure:"file" yaml:"file"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type FileConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LockConfig controls the cross-replica lock. It requires the redis backend.
type LockConfig struct {
	Distributed bool          `mapstructure:"distributed" yaml:"distributed"`
	TTL         time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Offline replaces the remote backend with the in-process one.
	Offline bool `mapstructure:"offline" yaml:"offline"`
	// OfflineCodes are the access codes the in-process backend accepts.
	OfflineCodes []string `mapstructure:"offline_codes" yaml:"offline_codes"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token" yaml:"token"`
	APIEndpoint   string `mapstructure:"api_endpoint" yaml:"api_endpoint"`
	WebhookSecret string `mapstructure:"webhook_secret" yaml:"webhook_secret"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() map[string]any {
	return map[string]any{
		"http": map[string]any{
			"addr":             ":8080",
			"read_timeout":     "10s",
			"write_timeout":    "30s",
			"shutdown_timeout": "10s",
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"store": map[string]any{
			"backend": BackendMemory,
			"ttl":     "0s",
			"prefix":  "nutri:session:",
			"redis":   map[string]any{"addr": "localhost:6379", "db": 0},
			"sqlite":  map[string]any{"path": "nutri.db"},
			"file":    map[string]any{"dir": ".nutri/sessions"},
		},
		"lock": map[string]any{
			"distributed": false,
			"ttl":         "30s",
		},
		"gateway": map[string]any{
			"timeout":       "10s",
			"offline_codes": []any{"DEMO"},
		},
		"timezone":         "UTC",
		"conflict_retries": 3,
	}
}

// envKeys maps environment variables to config paths.
var envKeys = map[string]string{
	"NUTRI_HTTP_ADDR":               "http.addr",
	"NUTRI_LOG_LEVEL":               "log.level",
	"NUTRI_LOG_FORMAT":              "log.format",
	"NUTRI_STORE_BACKEND":           "store.backend",
	"NUTRI_STORE_TTL":               "store.ttl",
	"NUTRI_STORE_PREFIX":            "store.prefix",
	"NUTRI_REDIS_ADDR":              "store.redis.addr",
	"NUTRI_REDIS_PASSWORD":          "store.redis.password",
	"NUTRI_REDIS_DB":                "store.redis.db",
	"NUTRI_SQLITE_PATH":             "store.sqlite.path",
	"NUTRI_FILE_DIR":                "store.file.dir",
	"NUTRI_LOCK_DISTRIBUTED":        "lock.distributed",
	"NUTRI_LOCK_TTL":                "lock.ttl",
	"NUTRI_GATEWAY_URL":             "gateway.base_url",
	"NUTRI_GATEWAY_API_KEY":         "gateway.api_key",
	"NUTRI_GATEWAY_TIMEOUT":         "gateway.timeout",
	"NUTRI_GATEWAY_OFFLINE":         "gateway.offline",
	"NUTRI_GATEWAY_OFFLINE_CODES":   "gateway.offline_codes",
	"NUTRI_TELEGRAM_TOKEN":          "telegram.token",
	"NUTRI_TELEGRAM_API_ENDPOINT":   "telegram.api_endpoint",
	"NUTRI_TELEGRAM_WEBHOOK_SECRET": "telegram.webhook_secret",
	"NUTRI_TIMEZONE":                "timezone",
	"NUTRI_CONFLICT_RETRIES":        "conflict_retries",
}

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the configuration using the process environment.
// An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith reads the configuration with an explicit environment lookup.
func LoadWith(path string, lookup LookupFunc) (*Config, error) {
	raw := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		merge(raw, file)
	}

	for env, key := range envKeys {
		if v, ok := lookup(env); ok {
			set(raw, key, v)
		}
	}

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the environment
// without overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate reports every missing or inconsistent setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required for the sqlite backend"))
		}
	case BackendFile:
		if c.Store.File.Dir == "" {
			errs = append(errs, errors.New("store.file.dir is required for the file backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, redis, sqlite, file", c.Store.Backend))
	}

	if c.Lock.Distributed && c.Store.Backend != BackendRedis {
		errs = append(errs, errors.New("lock.distributed requires the redis backend"))
	}
	if !c.Gateway.Offline && c.Gateway.BaseURL == "" {
		errs = append(errs, errors.New("gateway.base_url is required unless gateway.offline is set"))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.ConflictRetries < 1 {
		errs = append(errs, errors.New("conflict_retries must be at least 1"))
	}
	return errors.Join(errs...)
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

// set writes value at a dotted path, creating intermediate maps.
func set(m map[string]any, path, value string) {
	parts := strings.Split(path, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}
