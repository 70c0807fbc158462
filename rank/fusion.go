package rank

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
	"github.com/rushteam/hybridrec/recall"
)

// DefaultCandidateMultiplier 每个通道的候选上限为 top_k 的倍数。
const DefaultCandidateMultiplier = 5

// FusionNode 是融合阶段的 Node：调用各通道、归一化、加权合并。
//
// 流程：
//  1. 通过 AdaptiveWeighter 计算 alpha/beta/gamma，写入 rctx.Weights
//  2. 通过 recall.Fanout 调用所有通道，每个通道最多取 CandidateMultiplier*top_k 个
//  3. 各通道独立 DedupMax + MinMaxNormalize
//  4. final = alpha*collab + beta*content + gamma*visual，缺失按 0
//  5. 按最终分数降序排列，平局保持首次出现顺序（通道顺序 collab → content → visual）
//
// 它是 Pipeline 的第一个阶段，输入 items 会被忽略。
// 写入：Features[通道名] = 归一化后的通道分数；Label fusion_channels = 贡献通道列表；
// rctx 上的 Label weights = 权重来源，候选为空时 Label candidates = empty。
type FusionNode struct {
	Channels []recall.Channel
	Fanout   *recall.Fanout
	Weighter *AdaptiveWeighter
	Explicit ExplicitWeights

	CandidateMultiplier int

	Logger zerolog.Logger

	// Results 是最近一次 Process 的通道调用结果（与 Channels 一一对应）
	Results []recall.ChannelResult
}

func (n *FusionNode) Name() string        { return "rank.fusion" }
func (n *FusionNode) Kind() pipeline.Kind { return pipeline.KindAggregate }

func (n *FusionNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || rctx.TopK <= 0 {
		topK := 0
		if rctx != nil {
			topK = rctx.TopK
		}
		return nil, core.ConfigError("top_k must be positive, got %d", topK)
	}
	mult := n.CandidateMultiplier
	if mult == 0 {
		mult = DefaultCandidateMultiplier
	}
	if mult < 1 {
		return nil, core.ConfigError("candidate multiplier must be >= 1, got %d", mult)
	}
	for _, ch := range n.Channels {
		if ch == nil {
			continue
		}
		if _, ok := weightFor(ch.Name(), core.Weights{}); !ok {
			return nil, core.ConfigError("unknown channel %q", ch.Name())
		}
	}

	weights, source, err := n.weights(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	rctx.Weights = weights
	rctx.PutLabel(core.LabelWeights, utils.Label{Value: source, Source: "fusion"})

	fanout := n.Fanout
	if fanout == nil {
		fanout = &recall.Fanout{Logger: n.Logger}
	}
	limit := rctx.TopK * mult
	n.Results = fanout.Run(ctx, rctx, limit, n.Channels)

	items := n.merge(n.Results, weights, limit)
	if len(items) == 0 {
		rctx.PutLabel(core.LabelCandidates, utils.Label{Value: core.CandidatesEmpty, Source: "fusion"})
		n.Logger.Debug().
			Str("code", core.ErrorCodeEmptyCandidates).
			Str("user_id", rctx.UserID).
			Msg("no candidates after fusion")
	}
	return items, nil
}

// weights 计算本次请求的权重并返回来源；交互数据读取失败时退化为冷启动 alpha。
func (n *FusionNode) weights(ctx context.Context, userID string) (core.Weights, string, error) {
	weighter := n.Weighter
	if weighter == nil {
		weighter = NewAdaptiveWeighter(nil)
	}
	if err := weighter.Validate(); err != nil {
		return core.Weights{}, "", err
	}
	source := "adaptive"
	if n.Explicit.Alpha != nil || (n.Explicit.Beta != nil && n.Explicit.Gamma != nil) {
		source = "explicit"
	}
	weights, err := weighter.Weights(ctx, userID, n.Explicit)
	if err == nil || core.IsConfigurationError(err) {
		return weights, source, err
	}

	n.Logger.Warn().Err(err).Str("user_id", userID).Msg("interaction density unavailable, using min alpha")
	explicit := n.Explicit
	minAlpha := weighter.MinAlpha
	explicit.Alpha = &minAlpha
	weights, err = weighter.Weights(ctx, userID, explicit)
	return weights, "min_alpha", err
}

func (n *FusionNode) merge(results []recall.ChannelResult, weights core.Weights, limit int) []*core.Item {
	pos := make(map[string]int)
	items := make([]*core.Item, 0)

	for _, res := range results {
		if res.Outcome != recall.OutcomeOK {
			continue
		}
		w, _ := weightFor(res.Channel, weights)
		normalized := Normalize(res.Scores.Top(limit))
		for _, sc := range normalized {
			i, ok := pos[sc.ItemID]
			if !ok {
				i = len(items)
				pos[sc.ItemID] = i
				items = append(items, core.NewItem(sc.ItemID))
			}
			it := items[i]
			it.Score += w * sc.Value
			it.SetFeature(res.Channel, sc.Value)
			it.PutLabel("fusion_channels", utils.Label{Value: res.Channel, Source: "fusion"})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items
}

func weightFor(channel string, w core.Weights) (float64, bool) {
	switch channel {
	case recall.ChannelCollaborative:
		return w.Alpha, true
	case recall.ChannelContent:
		return w.Beta, true
	case recall.ChannelVisual:
		return w.Gamma, true
	default:
		return 0, false
	}
}
