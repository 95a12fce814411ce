package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/text2visuals/internal/kv"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t2v.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.Store.Capacity)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: file
  path: /tmp/t2v-history
  capacity: 20
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, kv.Options{Driver: kv.DriverFile, Path: "/tmp/t2v-history"}, cfg.KVOptions())
	assert.Equal(t, 20, cfg.Store.Capacity)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset fields keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: file\n  path: ./entries\n")
	t.Setenv("T2V_STORE_DRIVER", "memory")
	t.Setenv("T2V_STORE_QUOTA_BYTES", "5242880")
	t.Setenv("T2V_LOG_FORMAT", "JSON")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, int64(5242880), cfg.Store.QuotaBytes)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "store: [unclosed"))
	assert.Error(t, err)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "T2V_STORE_CAPACITY" {
			return "lots", true
		}
		return "", false
	})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, "store.driver must be one of: memory sqlite file"},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, "store.path is required"},
		{"zero capacity", func(c *Config) { c.Store.Capacity = 0 }, "store.capacity must be at least 1"},
		{"negative quota", func(c *Config) { c.Store.QuotaBytes = -1 }, "store.quotabytes must be at least 0"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	mem := Default()
	mem.Store.Driver = "memory"
	mem.Store.Path = ""
	assert.NoError(t, mem.Validate(), "memory driver needs no path")
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
