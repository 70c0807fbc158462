// Package config 定义融合引擎的运行参数，支持 YAML 文件、.env 与 HYBRIDREC_* 环境变量。
//
// 加载顺序：Default() → YAML → 环境变量（.env 中的值不会覆盖已存在的环境变量）→ Validate()。
//
// 示例（hybridrec.yaml）：
//
//	top_k: 20
//	diversify: true
//	lambda: 0.7
//	channel_timeout: 200ms
//	filters:
//	  - item.meta.category == "Gift Card"
//	store:
//	  backend: redis
//	  addr: 127.0.0.1:6379
//	  key_prefix: shop
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/postprocess"
	"github.com/rushteam/hybridrec/rank"
	"github.com/rushteam/hybridrec/rerank"
)

// Config 是融合引擎的运行参数。
type Config struct {
	// TopK 默认返回结果数（请求未指定时使用）
	TopK int `yaml:"top_k" json:"top_k"`

	// Diversify 是否默认做 MMR 多样性重排
	Diversify bool `yaml:"diversify" json:"diversify"`

	// Lambda 是 MMR 的相关性/多样性权衡，[0, 1]
	Lambda float64 `yaml:"lambda" json:"lambda"`

	// 自适应权重参数
	MinAlpha     float64 `yaml:"min_alpha" json:"min_alpha"`
	MaxAlpha     float64 `yaml:"max_alpha" json:"max_alpha"`
	DensityCap   float64 `yaml:"density_cap" json:"density_cap"`
	ContentShare float64 `yaml:"content_share" json:"content_share"`

	// CandidateMultiplier 每个通道的候选上限为 CandidateMultiplier*top_k
	CandidateMultiplier int `yaml:"candidate_multiplier" json:"candidate_multiplier"`

	// PlaceholderScore 兜底补齐物品的分数，必须为正
	PlaceholderScore float64 `yaml:"placeholder_score" json:"placeholder_score"`

	// ChannelTimeout 单个通道的超时时间，0 表示不限制
	ChannelTimeout time.Duration `yaml:"channel_timeout" json:"channel_timeout"`

	// MaxConcurrent 通道最大并发数，0 表示不限制；1 表示顺序执行
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`

	// Filters 是额外的业务规则过滤表达式（CEL），表达式为 true 的物品被过滤
	Filters []string `yaml:"filters" json:"filters"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Store StoreConfig `yaml:"store" json:"store"`
}

// StoreConfig 描述目录/热度/用户数据所在的存储。
type StoreConfig struct {
	// Backend 为 memory 或 redis
	Backend   string `yaml:"backend" json:"backend"`
	Addr      string `yaml:"addr" json:"addr"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		TopK:                10,
		Diversify:           false,
		Lambda:              rerank.DefaultLambda,
		MinAlpha:            rank.DefaultMinAlpha,
		MaxAlpha:            rank.DefaultMaxAlpha,
		DensityCap:          rank.DefaultDensityCap,
		ContentShare:        rank.DefaultContentShare,
		CandidateMultiplier: rank.DefaultCandidateMultiplier,
		PlaceholderScore:    postprocess.DefaultPlaceholderScore,
		LogLevel:            "info",
		Store: StoreConfig{
			Backend:   "memory",
			KeyPrefix: "hybrid",
		},
	}
}

// Validate 检查参数范围，不合法时返回 INVALID_CONFIG。
func (c *Config) Validate() error {
	switch {
	case c.TopK <= 0:
		return core.ConfigError("top_k must be positive, got %d", c.TopK)
	case c.Lambda < 0 || c.Lambda > 1:
		return core.ConfigError("lambda must be in [0, 1], got %g", c.Lambda)
	case c.CandidateMultiplier < 1:
		return core.ConfigError("candidate_multiplier must be >= 1, got %d", c.CandidateMultiplier)
	case c.PlaceholderScore <= 0:
		return core.ConfigError("placeholder_score must be positive, got %g", c.PlaceholderScore)
	case c.ChannelTimeout < 0:
		return core.ConfigError("channel_timeout must be non-negative, got %s", c.ChannelTimeout)
	case c.MaxConcurrent < 0:
		return core.ConfigError("max_concurrent must be non-negative, got %d", c.MaxConcurrent)
	}
	if err := c.Weighter(nil).Validate(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return core.ConfigError("invalid log_level %q", c.LogLevel)
	}
	switch c.Store.Backend {
	case "", "memory":
	case "redis":
		if c.Store.Addr == "" {
			return core.ConfigError("store.addr is required for redis backend")
		}
	default:
		return core.ConfigError("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// Weighter 按配置构建 AdaptiveWeighter。
func (c *Config) Weighter(src core.InteractionSource) *rank.AdaptiveWeighter {
	return &rank.AdaptiveWeighter{
		Interactions: src,
		MinAlpha:     c.MinAlpha,
		MaxAlpha:     c.MaxAlpha,
		DensityCap:   c.DensityCap,
		ContentShare: c.ContentShare,
	}
}

// Logger 按 LogLevel 构建 zerolog.Logger。
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Parse 解析 YAML，未出现的字段保留默认值。不做校验。
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return cfg, nil
}

// LoadFromYAML 从 YAML 文件加载配置，叠加环境变量后校验。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
