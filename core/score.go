package core

import "sort"

// Score 是单个物品在某个通道（或融合后）的相关性分数。
type Score struct {
	ItemID string
	Value  float64
}

// ScoreSeries 是 item → score 的有序序列。
//
// 约定：
//   - 构造时不要求有序，消费方在显式排序前一律视为无序
//   - 通道原始输出可能包含重复 ID，经 DedupMax 后 key 唯一
//   - 顺序即"首次出现顺序"，用于排序时的稳定打破平局
type ScoreSeries []Score

// Len 返回序列长度。
func (s ScoreSeries) Len() int { return len(s) }

// DedupMax 合并重复的 item ID，保留最大分数；位置取首次出现的位置。
func (s ScoreSeries) DedupMax() ScoreSeries {
	if len(s) == 0 {
		return s
	}
	pos := make(map[string]int, len(s))
	out := make(ScoreSeries, 0, len(s))
	for _, sc := range s {
		if i, ok := pos[sc.ItemID]; ok {
			if sc.Value > out[i].Value {
				out[i].Value = sc.Value
			}
			continue
		}
		pos[sc.ItemID] = len(out)
		out = append(out, sc)
	}
	return out
}

// Lookup 返回 item → score 的索引。重复 ID 以最大值为准。
func (s ScoreSeries) Lookup() map[string]float64 {
	m := make(map[string]float64, len(s))
	for _, sc := range s {
		if old, ok := m[sc.ItemID]; ok && old >= sc.Value {
			continue
		}
		m[sc.ItemID] = sc.Value
	}
	return m
}

// IDs 返回序列中的 item ID（保持顺序）。
func (s ScoreSeries) IDs() []string {
	out := make([]string, len(s))
	for i, sc := range s {
		out[i] = sc.ItemID
	}
	return out
}

// SortedDesc 返回按分数降序排列的副本；分数相同时保持原顺序（稳定排序）。
func (s ScoreSeries) SortedDesc() ScoreSeries {
	out := make(ScoreSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}

// Top 返回降序排列后的前 n 个；n <= 0 时返回全部。
func (s ScoreSeries) Top(n int) ScoreSeries {
	out := s.SortedDesc()
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FromMap 由 map 构造序列，按分数降序、ID 升序排列，保证结果确定。
func FromMap(m map[string]float64) ScoreSeries {
	out := make(ScoreSeries, 0, len(m))
	for id, v := range m {
		out = append(out, Score{ItemID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}
