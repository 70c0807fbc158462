package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rushteam/hybridrec/core"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 HYBRIDREC_TOP_K=20。
const EnvPrefix = "HYBRIDREC_"

// LoadDotEnv 在文件存在时加载 .env，已存在的环境变量不会被覆盖。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// LookupFunc 与 os.LookupEnv 签名一致，便于测试注入。
type LookupFunc func(key string) (string, bool)

// ApplyEnv 用 HYBRIDREC_* 环境变量覆盖配置。
// HYBRIDREC_FILTERS 以 ";" 分隔多个表达式。
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	ints := map[string]*int{
		"TOP_K":                &c.TopK,
		"CANDIDATE_MULTIPLIER": &c.CandidateMultiplier,
		"MAX_CONCURRENT":       &c.MaxConcurrent,
		"STORE_DB":             &c.Store.DB,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return core.ConfigError("%s%s: %v", EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"LAMBDA":            &c.Lambda,
		"MIN_ALPHA":         &c.MinAlpha,
		"MAX_ALPHA":         &c.MaxAlpha,
		"DENSITY_CAP":       &c.DensityCap,
		"CONTENT_SHARE":     &c.ContentShare,
		"PLACEHOLDER_SCORE": &c.PlaceholderScore,
	}
	for name, dst := range floats {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return core.ConfigError("%s%s: %v", EnvPrefix, name, err)
			}
			*dst = f
		}
	}

	strs := map[string]*string{
		"LOG_LEVEL":        &c.LogLevel,
		"STORE_BACKEND":    &c.Store.Backend,
		"STORE_ADDR":       &c.Store.Addr,
		"STORE_KEY_PREFIX": &c.Store.KeyPrefix,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	if v, ok := get("DIVERSIFY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return core.ConfigError("%sDIVERSIFY: %v", EnvPrefix, err)
		}
		c.Diversify = b
	}
	if v, ok := get("CHANNEL_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return core.ConfigError("%sCHANNEL_TIMEOUT: %v", EnvPrefix, err)
		}
		c.ChannelTimeout = d
	}
	if v, ok := get("FILTERS"); ok {
		c.Filters = c.Filters[:0]
		for _, expr := range strings.Split(v, ";") {
			if expr = strings.TrimSpace(expr); expr != "" {
				c.Filters = append(c.Filters, expr)
			}
		}
	}
	return nil
}

// Load 依次加载默认值、可选的 YAML 文件、.env 与环境变量，并校验。path 为空时跳过 YAML。
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if path != "" {
		return LoadFromYAML(path)
	}
	cfg := Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
