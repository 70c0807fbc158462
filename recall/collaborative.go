package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/core"
)

// vecMultiplier 由支持整行向量乘法的相似度矩阵实现（例如 similarity.Matrix）。
type vecMultiplier interface {
	VecMul(weights map[string]float64) core.ScoreSeries
}

// CollaborativeChannel 是基于物品相似度的协同过滤通道（Item-CF）。
//
// 核心思想："被同一批用户喜欢的物品，相互相似"
//
// 算法流程：
//  1. 取用户交互行 u（item → 交互强度）
//  2. scores = u · S，S 为物品-物品相似度矩阵（离线产出，这里只读）
//  3. 去掉用户已交互的物品，取 TopK
//
// 冷启动（用户不在矩阵中或整行为 0）：
//   - 配置了 Popularity 时返回热门物品，分数统一为 1.0
//   - 否则返回 CHANNEL_UNAVAILABLE
type CollaborativeChannel struct {
	Interactions core.InteractionSource
	Similarity   core.SimilarityMatrix

	// Popularity 冷启动时的热门物品来源（可选）
	Popularity core.PopularitySource
}

func (c *CollaborativeChannel) Name() string { return ChannelCollaborative }

func (c *CollaborativeChannel) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	topK int,
) (core.ScoreSeries, error) {
	if c.Interactions == nil || c.Similarity == nil {
		return nil, core.ChannelUnavailable(c.Name(), "interaction matrix or item similarity not configured")
	}
	if rctx == nil || rctx.UserID == "" {
		return c.coldStart(ctx, topK)
	}

	row, present, err := c.Interactions.UserInteractions(ctx, rctx.UserID)
	if err != nil {
		return nil, fmt.Errorf("load interactions for user %s: %w", rctx.UserID, err)
	}
	if !present || rowSum(row) == 0 {
		return c.coldStart(ctx, topK)
	}

	var scores core.ScoreSeries
	if vm, ok := c.Similarity.(vecMultiplier); ok {
		scores = vm.VecMul(row)
	} else {
		scores = c.accumulate(row)
	}

	out := make(core.ScoreSeries, 0, len(scores))
	for _, sc := range scores {
		if row[sc.ItemID] > 0 {
			continue
		}
		out = append(out, sc)
	}
	return out.Top(topK), nil
}

// accumulate 在矩阵不支持向量乘法时逐行累加：scores[j] = Σ u[i]·S[i][j]。
// 为保证结果确定，按行 ID 排序后再累加。
func (c *CollaborativeChannel) accumulate(row map[string]float64) core.ScoreSeries {
	ids := core.FromMap(row).IDs()
	pos := make(map[string]int)
	var out core.ScoreSeries
	for _, id := range ids {
		w := row[id]
		if w == 0 {
			continue
		}
		sims, ok := c.Similarity.Row(id)
		if !ok {
			continue
		}
		for _, s := range sims {
			i, seen := pos[s.ItemID]
			if !seen {
				pos[s.ItemID] = len(out)
				out = append(out, core.Score{ItemID: s.ItemID})
				i = len(out) - 1
			}
			out[i].Value += w * s.Value
		}
	}
	return out
}

func (c *CollaborativeChannel) coldStart(ctx context.Context, topK int) (core.ScoreSeries, error) {
	if c.Popularity == nil {
		return nil, core.ChannelUnavailable(c.Name(), "cold-start user and no popularity source")
	}
	popular, err := c.Popularity.Popular(ctx, topK)
	if err != nil {
		return nil, fmt.Errorf("load popular items: %w", err)
	}
	out := make(core.ScoreSeries, len(popular))
	for i, p := range popular {
		out[i] = core.Score{ItemID: p.ItemID, Value: 1.0}
	}
	return out, nil
}

func rowSum(row map[string]float64) float64 {
	var sum float64
	for _, v := range row {
		sum += v
	}
	return sum
}
