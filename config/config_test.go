package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/store"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, 0.7, cfg.Lambda)
	assert.Equal(t, 5, cfg.CandidateMultiplier)
	assert.Equal(t, 0.01, cfg.PlaceholderScore)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
top_k: 20
diversify: true
lambda: 0.5
channel_timeout: 200ms
filters:
  - item.meta.category == "Gift Card"
store:
  backend: redis
  addr: 127.0.0.1:6379
  key_prefix: shop
`))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.TopK)
	assert.True(t, cfg.Diversify)
	assert.Equal(t, 0.5, cfg.Lambda)
	assert.Equal(t, 200*time.Millisecond, cfg.ChannelTimeout)
	assert.Equal(t, []string{`item.meta.category == "Gift Card"`}, cfg.Filters)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "shop", cfg.Store.KeyPrefix)
	// 未出现的字段保留默认值
	assert.Equal(t, 0.2, cfg.MinAlpha)
	require.NoError(t, cfg.Validate())

	_, err = Parse([]byte("top_k: [1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "top_k zero", mutate: func(c *Config) { c.TopK = 0 }},
		{name: "lambda above one", mutate: func(c *Config) { c.Lambda = 1.2 }},
		{name: "lambda negative", mutate: func(c *Config) { c.Lambda = -0.1 }},
		{name: "multiplier zero", mutate: func(c *Config) { c.CandidateMultiplier = 0 }},
		{name: "placeholder negative", mutate: func(c *Config) { c.PlaceholderScore = -1 }},
		{name: "placeholder zero", mutate: func(c *Config) { c.PlaceholderScore = 0 }},
		{name: "timeout negative", mutate: func(c *Config) { c.ChannelTimeout = -time.Second }},
		{name: "alpha range inverted", mutate: func(c *Config) { c.MinAlpha, c.MaxAlpha = 0.7, 0.3 }},
		{name: "density cap zero", mutate: func(c *Config) { c.DensityCap = 0 }},
		{name: "content share", mutate: func(c *Config) { c.ContentShare = 1.5 }},
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "redis without addr", mutate: func(c *Config) { c.Store.Backend = "redis" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "etcd" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"HYBRIDREC_TOP_K":           "25",
		"HYBRIDREC_LAMBDA":          " 0.4 ",
		"HYBRIDREC_DIVERSIFY":       "true",
		"HYBRIDREC_CHANNEL_TIMEOUT": "1s",
		"HYBRIDREC_FILTERS":         `item.score < 0.1; ;item.id == "x"`,
		"HYBRIDREC_STORE_BACKEND":   "redis",
		"HYBRIDREC_STORE_ADDR":      "redis:6379",
		"HYBRIDREC_STORE_DB":        "2",
		"TOP_K":                     "99",
	}))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.TopK)
	assert.Equal(t, 0.4, cfg.Lambda)
	assert.True(t, cfg.Diversify)
	assert.Equal(t, time.Second, cfg.ChannelTimeout)
	assert.Equal(t, []string{"item.score < 0.1", `item.id == "x"`}, cfg.Filters)
	assert.Equal(t, "redis:6379", cfg.Store.Addr)
	assert.Equal(t, 2, cfg.Store.DB)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_Invalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"HYBRIDREC_TOP_K": "ten"},
		{"HYBRIDREC_LAMBDA": "high"},
		{"HYBRIDREC_DIVERSIFY": "maybe"},
		{"HYBRIDREC_CHANNEL_TIMEOUT": "soon"},
	} {
		err := Default().ApplyEnv(envMap(env))
		require.Error(t, err)
		assert.True(t, core.IsConfigurationError(err))
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hybridrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: 7\nlambda: 0.9\n"), 0o600))

	t.Setenv("HYBRIDREC_TOP_K", "8")
	cfg, err := LoadFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.TopK)
	assert.Equal(t, 0.9, cfg.Lambda)

	_, err = LoadFromYAML(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("lambda: 3\n"), 0o600))
	_, err = LoadFromYAML(bad)
	assert.True(t, core.IsConfigurationError(err))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HYBRIDREC_TEST_DOTENV=from-file\n"), 0o600))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env"), path))
	t.Cleanup(func() { os.Unsetenv("HYBRIDREC_TEST_DOTENV") })
	assert.Equal(t, "from-file", os.Getenv("HYBRIDREC_TEST_DOTENV"))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogLevel = "warn"
	logger := cfg.Logger(&buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestOpenStore(t *testing.T) {
	s, err := Default().OpenStore()
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	cfg := Default()
	cfg.Store.Backend = "etcd"
	_, err = cfg.OpenStore()
	assert.True(t, core.IsConfigurationError(err))
}
