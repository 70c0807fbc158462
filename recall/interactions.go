package recall

import (
	"context"
	"sort"
	"time"

	"github.com/rushteam/hybridrec/core"
)

// Interaction 是一条用户-物品交互记录（点击/收藏/购买等，Score 为交互强度）。
type Interaction struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// InteractionMatrix 是内存中的用户-物品交互矩阵。
//
// 构建后只读，可安全并发访问：
//   - 矩阵行：同一 (user, item) 多次交互取最大分数
//   - 历史：按时间倒序，同一物品只保留最近一次
//   - 热度：交互记录条数降序，平局按物品 ID 升序
type InteractionMatrix struct {
	rows    map[string]map[string]float64
	history map[string][]string
	popular core.ScoreSeries
}

var (
	_ core.InteractionSource = (*InteractionMatrix)(nil)
	_ core.HistorySource     = (*InteractionMatrix)(nil)
	_ core.PopularitySource  = (*InteractionMatrix)(nil)
)

// NewInteractionMatrix 由交互记录构建矩阵。
func NewInteractionMatrix(interactions []Interaction) *InteractionMatrix {
	m := &InteractionMatrix{
		rows:    make(map[string]map[string]float64),
		history: make(map[string][]string),
	}

	counts := make(map[string]float64)
	byUser := make(map[string][]Interaction)
	for _, in := range interactions {
		if in.UserID == "" || in.ItemID == "" {
			continue
		}
		row, ok := m.rows[in.UserID]
		if !ok {
			row = make(map[string]float64)
			m.rows[in.UserID] = row
		}
		if old, seen := row[in.ItemID]; !seen || in.Score > old {
			row[in.ItemID] = in.Score
		}
		counts[in.ItemID]++
		byUser[in.UserID] = append(byUser[in.UserID], in)
	}

	for userID, list := range byUser {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.After(list[j].Timestamp)
		})
		seen := make(map[string]struct{}, len(list))
		recent := make([]string, 0, len(list))
		for _, in := range list {
			if _, dup := seen[in.ItemID]; dup {
				continue
			}
			seen[in.ItemID] = struct{}{}
			recent = append(recent, in.ItemID)
		}
		m.history[userID] = recent
	}

	m.popular = core.FromMap(counts)
	return m
}

// UserInteractions 返回用户的交互行（副本）。
func (m *InteractionMatrix) UserInteractions(_ context.Context, userID string) (map[string]float64, bool, error) {
	row, ok := m.rows[userID]
	if !ok {
		return nil, false, nil
	}
	out := make(map[string]float64, len(row))
	for id, v := range row {
		out[id] = v
	}
	return out, true, nil
}

// RecentItems 返回用户最近交互的 n 个物品（n <= 0 返回全部）。
func (m *InteractionMatrix) RecentItems(_ context.Context, userID string, n int) ([]string, bool, error) {
	recent, ok := m.history[userID]
	if !ok {
		return nil, false, nil
	}
	if n > 0 && len(recent) > n {
		recent = recent[:n]
	}
	return append([]string(nil), recent...), true, nil
}

// Popular 返回交互次数最多的 limit 个物品（limit <= 0 返回全部）。
func (m *InteractionMatrix) Popular(_ context.Context, limit int) (core.ScoreSeries, error) {
	out := m.popular
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append(core.ScoreSeries(nil), out...), nil
}

// Density 返回用户非零交互的物品数。
func (m *InteractionMatrix) Density(userID string) int {
	n := 0
	for _, v := range m.rows[userID] {
		if v != 0 {
			n++
		}
	}
	return n
}

// Users 返回矩阵中的用户数。
func (m *InteractionMatrix) Users() int { return len(m.rows) }
