package recall

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/hybridrec/core"
)

const (
	// DefaultRecentN 内容通道默认参考的最近交互物品数
	DefaultRecentN = 5

	// DefaultStyleBoost 描述命中用户风格偏好时的分数放大系数
	DefaultStyleBoost = 1.2
)

// ContentChannel 是基于内容相似度的通道（Content-Based）。
//
// 核心思想："用户最近喜欢的物品，推荐与之属性相似的物品"
//
// 算法流程：
//  1. 取用户最近 RecentN 个交互物品（时间倒序），第 r 个的权重为 1/(r+1)
//  2. 按权重累加这些物品在内容相似度矩阵中的整行
//  3. 描述中包含用户风格偏好（不区分大小写）的物品乘以 StyleBoost
//  4. 去掉用户交互过的全部物品，取 TopK
//
// 用户没有交互历史时返回 CHANNEL_UNAVAILABLE。
type ContentChannel struct {
	History    core.HistorySource
	Similarity core.SimilarityMatrix

	// Profiles / Metadata 用于风格偏好加权，任一为空时跳过加权
	Profiles core.ProfileSource
	Metadata core.MetadataSource

	RecentN    int
	StyleBoost float64
}

func (c *ContentChannel) Name() string { return ChannelContent }

func (c *ContentChannel) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	topK int,
) (core.ScoreSeries, error) {
	if c.History == nil || c.Similarity == nil {
		return nil, core.ChannelUnavailable(c.Name(), "history or content similarity not configured")
	}
	if rctx == nil || rctx.UserID == "" {
		return nil, core.ChannelUnavailable(c.Name(), "anonymous user")
	}

	history, present, err := c.History.RecentItems(ctx, rctx.UserID, 0)
	if err != nil {
		return nil, fmt.Errorf("load history for user %s: %w", rctx.UserID, err)
	}
	if !present || len(history) == 0 {
		return nil, core.ChannelUnavailable(c.Name(), "no interaction history for user "+rctx.UserID)
	}

	recentN := c.RecentN
	if recentN <= 0 {
		recentN = DefaultRecentN
	}
	recent := history
	if len(recent) > recentN {
		recent = recent[:recentN]
	}

	pos := make(map[string]int)
	var scores core.ScoreSeries
	for rank, itemID := range recent {
		row, ok := c.Similarity.Row(itemID)
		if !ok {
			continue
		}
		weight := 1.0 / float64(rank+1)
		for _, s := range row {
			i, seen := pos[s.ItemID]
			if !seen {
				pos[s.ItemID] = len(scores)
				scores = append(scores, core.Score{ItemID: s.ItemID})
				i = len(scores) - 1
			}
			scores[i].Value += weight * s.Value
		}
	}
	if len(scores) == 0 {
		return nil, core.ChannelUnavailable(c.Name(), "recent items not in content similarity matrix")
	}

	if err := c.applyStyleBoost(ctx, rctx.UserID, scores); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(history))
	for _, id := range history {
		seen[id] = struct{}{}
	}
	out := make(core.ScoreSeries, 0, len(scores))
	for _, sc := range scores {
		if _, ok := seen[sc.ItemID]; ok {
			continue
		}
		out = append(out, sc)
	}
	return out.Top(topK), nil
}

// applyStyleBoost 就地放大描述命中风格偏好的物品分数。
func (c *ContentChannel) applyStyleBoost(ctx context.Context, userID string, scores core.ScoreSeries) error {
	if c.Profiles == nil || c.Metadata == nil {
		return nil
	}
	profile, ok, err := c.Profiles.UserProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile for user %s: %w", userID, err)
	}
	if !ok || profile == nil || profile.StylePref == "" {
		return nil
	}

	boost := c.StyleBoost
	if boost <= 0 {
		boost = DefaultStyleBoost
	}
	style := strings.ToLower(profile.StylePref)
	for i := range scores {
		meta, ok, err := c.Metadata.ItemMeta(ctx, scores[i].ItemID)
		if err != nil {
			return fmt.Errorf("load metadata for item %s: %w", scores[i].ItemID, err)
		}
		if !ok || meta == nil {
			continue
		}
		if strings.Contains(strings.ToLower(meta.Description), style) {
			scores[i].Value *= boost
		}
	}
	return nil
}
