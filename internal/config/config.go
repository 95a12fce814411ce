// Package config loads t2v settings from a YAML file and T2V_* environment
// variables.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables, then CLI flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/text2visuals/internal/history"
	"github.com/roach88/text2visuals/internal/kv"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full t2v configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig selects the history substrate.
type StoreConfig struct {
	Driver     string `yaml:"driver" validate:"oneof=memory sqlite file"`
	Path       string `yaml:"path" validate:"required_unless=Driver memory"`
	Capacity   int    `yaml:"capacity" validate:"min=1,max=10000"`
	QuotaBytes int64  `yaml:"quota_bytes" validate:"min=0"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:   string(kv.DriverSQLite),
			Path:     "t2v.db",
			Capacity: history.DefaultCapacity,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validate = validator.New()

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from T2V_* variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("T2V_STORE_DRIVER"); ok {
		c.Store.Driver = v
	}
	if v, ok := lookup("T2V_STORE_PATH"); ok {
		c.Store.Path = v
	}
	if v, ok := lookup("T2V_STORE_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: T2V_STORE_CAPACITY: %v", ErrInvalid, err)
		}
		c.Store.Capacity = n
	}
	if v, ok := lookup("T2V_STORE_QUOTA_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: T2V_STORE_QUOTA_BYTES: %v", ErrInvalid, err)
		}
		c.Store.QuotaBytes = n
	}
	if v, ok := lookup("T2V_LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup("T2V_LOG_FORMAT"); ok {
		c.Log.Format = strings.ToLower(v)
	}
	return nil
}

// Validate checks the struct tags and reports every failing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "required_unless":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// KVOptions converts the store section for kv.Open.
func (c Config) KVOptions() kv.Options {
	return kv.Options{
		Driver:     kv.Driver(c.Store.Driver),
		Path:       c.Store.Path,
		QuotaBytes: c.Store.QuotaBytes,
	}
}

// SlogLevel maps the configured level name.
func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
