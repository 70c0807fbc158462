// Package hybrid 是融合引擎的入口：把协同过滤、内容、视觉三个通道的分数
// 按 Aggregate → Enrich → Filter → (Diversify | Truncate) → Fallback 组装成 Pipeline 执行。
//
// Recommender 在调用之间不保存任何可变状态，每次请求都会新建 Pipeline 与 Node，
// 因此同一个 Recommender 可以被多个 goroutine 并发使用。
package hybrid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/feature"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/metrics"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
	"github.com/rushteam/hybridrec/postprocess"
	"github.com/rushteam/hybridrec/rank"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/rerank"
)

// Options 是 Recommender 的依赖。除 Catalog 外都是可选的。
type Options struct {
	// Config 为 nil 时使用 config.Default()
	Config *config.Config

	Logger  zerolog.Logger
	Metrics *metrics.Collector

	// Channels 按顺序参与融合，平局时靠前通道中先出现的物品排在前面。
	// 名称必须是 recall.ChannelCollaborative / ChannelContent / ChannelVisual 之一。
	Channels []recall.Channel

	// Interactions 用于计算交互密度（自适应 alpha）
	Interactions core.InteractionSource

	Catalog    core.CatalogSource
	Popularity core.PopularitySource

	// Similarity 用于 MMR 多样性惩罚与相似物品推荐（通常为内容相似度矩阵）
	Similarity core.SimilarityMatrix

	// 以下数据源用于元数据注入与推荐解释
	Metadata core.MetadataSource
	Profiles core.ProfileSource
	History  core.HistorySource

	// Filters 是额外的过滤器，在目录过滤之后执行
	Filters []filter.Filter
}

// Recommender 是混合推荐引擎。
type Recommender struct {
	cfg     *config.Config
	opts    Options
	filters []filter.Filter
	logger  zerolog.Logger
}

// New 校验配置并创建 Recommender。配置中的 filters 表达式在这里编译一次。
func New(opts Options) (*Recommender, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Catalog == nil {
		return nil, core.ConfigError("catalog source is required")
	}

	filters := make([]filter.Filter, 0, len(cfg.Filters)+len(opts.Filters))
	filters = append(filters, opts.Filters...)
	for _, expr := range cfg.Filters {
		f, err := filter.NewExprFilter(expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return &Recommender{
		cfg:     cfg,
		opts:    opts,
		filters: filters,
		logger:  opts.Logger.With().Str("component", "hybrid").Logger(),
	}, nil
}

// Config 返回生效的配置。
func (r *Recommender) Config() *config.Config {
	return r.cfg
}

// Request 是一次推荐请求。指针字段为 nil 时使用配置或自适应计算的值。
type Request struct {
	UserID string

	// QueryImage 为空时视觉通道不参与
	QueryImage string

	// TopK 为 0（未设置）时使用配置的 top_k；负数返回 INVALID_CONFIG
	TopK int

	Diversify *bool
	Lambda    *float64

	// 显式权重原样使用，不做归一化
	Alpha *float64
	Beta  *float64
	Gamma *float64

	// Exclude 是请求级排除的物品
	Exclude []string
}

// ChannelReport 是单个通道在本次请求中的表现。
type ChannelReport struct {
	Channel    string         `json:"channel"`
	Outcome    recall.Outcome `json:"outcome"`
	Candidates int            `json:"candidates"`
	Duration   time.Duration  `json:"duration"`
	Error      string         `json:"error,omitempty"`
}

// Response 是推荐结果。Items 按最终分数降序（兜底补齐的物品排在末尾）。
type Response struct {
	RequestID   string                `json:"request_id"`
	UserID      string                `json:"user_id"`
	Items       []*core.Item          `json:"items"`
	Weights     core.Weights          `json:"weights"`
	Diversified bool                  `json:"diversified"`
	Filled      int                   `json:"filled"`
	Channels    []ChannelReport       `json:"channels"`
	Stages      []pipeline.StageTrace `json:"stages"`

	// Labels 是请求级 Label（权重来源、候选池状态）
	Labels map[string]utils.Label `json:"labels,omitempty"`
}

// Scores 返回 (item id, score) 序列。
func (r *Response) Scores() core.ScoreSeries {
	out := make(core.ScoreSeries, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, core.Score{ItemID: it.ID, Value: it.Score})
	}
	return out
}

var weightNames = [...]string{"alpha", "beta", "gamma"}

// Recommend 执行一次推荐。
//
// 只有配置错误（top_k < 0、负权重、lambda 越界）会返回错误；
// 通道失败、候选为空、目录读取失败都会被吸收，调用方总能拿到（可能为空、可能被补齐的）结果。
// req.TopK 为 0 表示使用配置的 top_k（配置中的 top_k 必须为正）。
func (r *Recommender) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := r.recommend(ctx, req)

	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case len(resp.Items) == 0:
		outcome = metrics.OutcomeEmpty
	case resp.Filled > 0:
		outcome = metrics.OutcomeFallback
	}
	r.opts.Metrics.ObserveRequest(outcome, time.Since(start))
	return resp, err
}

func (r *Recommender) recommend(ctx context.Context, req Request) (*Response, error) {
	topK := req.TopK
	if topK == 0 {
		topK = r.cfg.TopK
	}
	if topK < 0 {
		return nil, core.ConfigError("top_k must be positive, got %d", topK)
	}
	for i, w := range []*float64{req.Alpha, req.Beta, req.Gamma} {
		if w != nil && *w < 0 {
			return nil, core.ConfigError("%s must be non-negative, got %g", weightNames[i], *w)
		}
	}
	diversify := r.cfg.Diversify
	if req.Diversify != nil {
		diversify = *req.Diversify
	}
	lambda := r.cfg.Lambda
	if req.Lambda != nil {
		lambda = *req.Lambda
	}

	requestID := uuid.NewString()
	logger := r.logger.With().Str("request_id", requestID).Str("user_id", req.UserID).Logger()

	rctx := &core.RecommendContext{
		UserID:     req.UserID,
		QueryImage: req.QueryImage,
		TopK:       topK,
		Params:     map[string]any{"request_id": requestID},
	}

	// 目录在一次请求内只读取一次，过滤与兜底看到同一份快照
	catalog := &catalogSnapshot{src: r.opts.Catalog, logger: logger}

	fusion := &rank.FusionNode{
		Channels: r.opts.Channels,
		Fanout: &recall.Fanout{
			Timeout:       r.cfg.ChannelTimeout,
			MaxConcurrent: r.cfg.MaxConcurrent,
			Sequential:    r.cfg.MaxConcurrent == 1,
			Logger:        logger,
		},
		Weighter:            r.cfg.Weighter(r.opts.Interactions),
		Explicit:            rank.ExplicitWeights{Alpha: req.Alpha, Beta: req.Beta, Gamma: req.Gamma},
		CandidateMultiplier: r.cfg.CandidateMultiplier,
		Logger:              logger,
	}
	fallback := &postprocess.FallbackNode{
		Popularity:       r.opts.Popularity,
		Catalog:          catalog,
		TopK:             topK,
		PlaceholderScore: r.cfg.PlaceholderScore,
		Logger:           logger,
	}

	nodes := []pipeline.Node{fusion}
	if r.opts.Metadata != nil || r.opts.Profiles != nil {
		nodes = append(nodes, &feature.EnrichNode{
			Metadata: r.opts.Metadata,
			Profiles: r.opts.Profiles,
			Logger:   logger,
		})
	}
	nodes = append(nodes, &filter.FilterNode{Filters: r.requestFilters(catalog, req.Exclude), Logger: logger})
	if diversify {
		nodes = append(nodes, &rerank.MMRNode{
			Similarity: r.opts.Similarity,
			TopK:       topK,
			Lambda:     lambda,
			Logger:     logger,
		})
	} else {
		nodes = append(nodes, &rerank.TopNNode{N: topK})
	}
	nodes = append(nodes, fallback)

	p := &pipeline.Pipeline{Nodes: nodes, Logger: logger}
	items, stages, err := p.RunTraced(ctx, rctx, nil)

	channels := r.reportChannels(fusion.Results)
	if err != nil {
		if core.IsConfigurationError(err) {
			logger.Debug().Err(err).Msg("request rejected")
		} else {
			logger.Error().Err(err).Msg("recommend failed")
		}
		return nil, err
	}
	r.opts.Metrics.AddFallbackItems(fallback.Filled)

	logger.Debug().
		Int("top_k", topK).
		Int("results", len(items)).
		Int("filled", fallback.Filled).
		Str("weights", rctx.Weights.String()).
		Bool("diversify", diversify).
		Msg("recommend done")

	return &Response{
		RequestID:   requestID,
		UserID:      req.UserID,
		Items:       items,
		Weights:     rctx.Weights,
		Diversified: diversify,
		Filled:      fallback.Filled,
		Channels:    channels,
		Stages:      stages,
		Labels:      rctx.Labels,
	}, nil
}

func (r *Recommender) requestFilters(catalog core.CatalogSource, exclude []string) []filter.Filter {
	filters := make([]filter.Filter, 0, len(r.filters)+2)
	filters = append(filters, &filter.CatalogFilter{Catalog: catalog})
	if len(exclude) > 0 {
		filters = append(filters, filter.NewBlacklistFilter(exclude, nil, ""))
	}
	return append(filters, r.filters...)
}

func (r *Recommender) reportChannels(results []recall.ChannelResult) []ChannelReport {
	out := make([]ChannelReport, 0, len(results))
	for _, res := range results {
		if res.Outcome == recall.OutcomeSkipped {
			continue
		}
		rep := ChannelReport{
			Channel:    res.Channel,
			Outcome:    res.Outcome,
			Candidates: len(res.Scores),
			Duration:   res.Duration,
		}
		if res.Err != nil {
			rep.Error = res.Err.Error()
		}
		r.opts.Metrics.ObserveChannel(res.Channel, string(res.Outcome), res.Duration)
		out = append(out, rep)
	}
	return out
}

// SimilarItems 返回与 itemID 最相似的 topK 个物品（不含自身）。
// 物品不在相似度矩阵中时返回 CHANNEL_UNAVAILABLE。
func (r *Recommender) SimilarItems(_ context.Context, itemID string, topK int) (core.ScoreSeries, error) {
	if topK <= 0 {
		return nil, core.ConfigError("top_k must be positive, got %d", topK)
	}
	return recall.SimilarItems(r.opts.Similarity, itemID, topK)
}

// catalogSnapshot 缓存第一次读取的目录。
// 读取失败时记录日志并退化为空目录：所有候选被过滤、兜底也不补齐，请求返回空结果。
type catalogSnapshot struct {
	src    core.CatalogSource
	logger zerolog.Logger
	loaded bool
	items  map[string]struct{}
}

func (c *catalogSnapshot) Items(ctx context.Context) (map[string]struct{}, error) {
	if !c.loaded {
		items, err := c.src.Items(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("load catalog failed, using empty catalog")
			items = map[string]struct{}{}
		}
		c.items = items
		c.loaded = true
	}
	return c.items, nil
}
