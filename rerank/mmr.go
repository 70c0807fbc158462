package rerank

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// DefaultLambda 是 MMR 默认的相关性/多样性权衡参数。
const DefaultLambda = 0.7

// MMRNode 实现 Maximal Marginal Relevance 多样性重排。
//
// 贪心地逐个选择物品：
//
//	mmr(i) = Lambda * rel(i) - (1 - Lambda) * max(sim(i, s) for s in selected)
//
//   - rel(i) 为融合后的分数（item.Score），输入按相关性降序排列
//   - 尚未选择任何物品时 max_sim = 0；相似度缺失按 0 处理
//   - 平局取输入中靠前的物品
//   - Lambda = 1 等价于按相关性截断；Lambda = 0 只看多样性
//
// 输出物品保留相关性分数作为 Score，选中时的 MMR 值写入 Features["mmr"]。
type MMRNode struct {
	Similarity core.SimilarityMatrix

	// TopK 最多选择的物品数；<= 0 时使用 rctx.TopK
	TopK int

	Lambda float64

	// MaxCandidates 参与 MMR 的候选上限（输入前缀）；0 表示 5*TopK，< 0 表示不限制
	MaxCandidates int

	Logger zerolog.Logger
}

func (n *MMRNode) Name() string {
	return "rerank.mmr"
}

func (n *MMRNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *MMRNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Lambda < 0 || n.Lambda > 1 {
		return nil, core.ConfigError("lambda must be in [0, 1], got %g", n.Lambda)
	}
	k := n.TopK
	if k <= 0 && rctx != nil {
		k = rctx.TopK
	}
	if k <= 0 {
		return nil, core.ConfigError("top_k must be positive, got %d", k)
	}

	candidates := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			candidates = append(candidates, it)
		}
	}
	limit := n.MaxCandidates
	if limit == 0 {
		limit = 5 * k
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]*core.Item, 0, k)
	taken := make([]bool, len(candidates))
	// maxSim[i] 为候选 i 与已选集合的最大相似度，每选一个物品增量更新
	maxSim := make([]float64, len(candidates))
	missing := 0

	for len(selected) < k {
		bestIdx := -1
		bestMMR := 0.0
		for i, it := range candidates {
			if taken[i] {
				continue
			}
			score := n.Lambda*it.Score - (1-n.Lambda)*maxSim[i]
			if bestIdx < 0 || score > bestMMR {
				bestIdx = i
				bestMMR = score
			}
		}
		if bestIdx < 0 {
			break
		}

		best := candidates[bestIdx]
		taken[bestIdx] = true
		best.SetFeature("mmr", bestMMR)
		selected = append(selected, best)

		if len(selected) == k {
			break
		}
		for i, it := range candidates {
			if taken[i] {
				continue
			}
			sim, ok := n.similarity(it.ID, best.ID)
			if !ok {
				missing++
			}
			if len(selected) == 1 || sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}

	if missing > 0 {
		n.Logger.Debug().
			Str("code", core.ErrorCodeMalformedLookup).
			Int("missing_pairs", missing).
			Msg("similarity missing for some pairs, treated as 0")
	}
	return selected, nil
}

func (n *MMRNode) similarity(a, b string) (float64, bool) {
	if n.Similarity == nil {
		return 0, false
	}
	return n.Similarity.Similarity(a, b)
}
