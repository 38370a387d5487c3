package lexcache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hyp3rd/lexcache/internal/constants"
	"github.com/hyp3rd/lexcache/pkg/registry"
)

const sampleConfig = `
management:
  addr: 127.0.0.1:0
log:
  level: debug
collection_ttl: 10m
redis:
  addr: localhost:6379
  serializer: json
collections:
  users:
    capacity: 256
    ttl: 30s
    sliding_expiration: 10s
    grow_factor: 2
  sessions:
    ttl: 1h
    read_through: true
`

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(sampleConfig))
	assert.NoError(t, err)

	assert.Equal(t, "127.0.0.1:0", cfg.Management.Addr)
	assert.Equal(t, defaultReadTimeout, cfg.Management.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10*time.Minute, cfg.CollectionTTL)
	assert.Equal(t, "json", cfg.Redis.Serializer)

	users := cfg.Collections["users"]
	assert.Equal(t, 256, users.Capacity)
	assert.Equal(t, 30*time.Second, users.TimeToLive)
	assert.Equal(t, 10*time.Second, users.SlidingExpiration)
	assert.Equal(t, 2, users.GrowFactor)
	assert.False(t, users.ReadThrough)

	assert.True(t, cfg.Collections["sessions"].ReadThrough)
	assert.True(t, cfg.ReadThrough())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.NoError(t, err)

	assert.Equal(t, constants.DefaultManagementAddr, cfg.Management.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, constants.DefaultCollectionTTL, cfg.CollectionTTL)
	assert.Equal(t, "msgpack", cfg.Redis.Serializer)
	assert.Equal(t, 0, len(cfg.Collections))
	assert.False(t, cfg.ReadThrough())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexcache.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	t.Setenv("LEXCACHE_LOG_LEVEL", "warn")
	t.Setenv("LEXCACHE_MANAGEMENT_ADDR", "0.0.0.0:9999")

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:9999", cfg.Management.Addr)
	assert.Equal(t, 2, len(cfg.Collections))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, err != nil)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad log level", yaml: "log:\n  level: loud\n"},
		{name: "empty addr", yaml: "management:\n  addr: \" \"\n"},
		{name: "read through without redis", yaml: "collections:\n  users:\n    read_through: true\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadConfig(strings.NewReader(test.yaml))
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLogConfigLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := LogConfig{Level: "warn"}.Logger(&buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), "shown"))
	assert.Equal(t, zerolog.InfoLevel, LogConfig{Level: "nope"}.Logger(&buf).GetLevel())
}

// stubRedis answers every GET with the same encoded payload.
type stubRedis struct {
	payload string
}

func (s stubRedis) Get(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult(s.payload, nil)
}

func (stubRedis) Set(context.Context, string, any, time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("OK", nil)
}

func TestDefineCollections(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(sampleConfig))
	assert.NoError(t, err)

	r, err := registry.New(registry.WithCollectionTTL(cfg.CollectionTTL))
	assert.NoError(t, err)

	assert.True(t, errors.Is(cfg.DefineCollections(r, nil), ErrNilClient))

	assert.NoError(t, cfg.DefineCollections(r, stubRedis{payload: `"stored"`}))
	assert.Equal(t, []string{"sessions", "users"}, r.Names())

	users, err := registry.Resolve[string, any](r, "users")
	assert.NoError(t, err)
	assert.Equal(t, 256, users.Capacity())
	assert.Equal(t, 2, users.GrowFactor())

	sessions, err := registry.Resolve[string, any](r, "sessions")
	assert.NoError(t, err)

	v, err := sessions.Get("abc", nil)
	assert.NoError(t, err)
	assert.Equal(t, "stored", v)
}
