package recall

import (
	"github.com/rushteam/hybridrec/core"
)

// SimilarItems 返回与 itemID 最相似的 topK 个物品（不含自身），按相似度降序。
// 物品不在矩阵中时返回 CHANNEL_UNAVAILABLE。
func SimilarItems(sim core.SimilarityMatrix, itemID string, topK int) (core.ScoreSeries, error) {
	if sim == nil {
		return nil, core.ChannelUnavailable("similar", "similarity matrix not configured")
	}
	row, ok := sim.Row(itemID)
	if !ok {
		return nil, core.ChannelUnavailable("similar", "item "+itemID+" not found in similarity matrix")
	}
	out := make(core.ScoreSeries, 0, len(row))
	for _, s := range row {
		if s.ItemID == itemID {
			continue
		}
		out = append(out, s)
	}
	return out.Top(topK), nil
}
