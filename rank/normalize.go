package rank

import (
	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/hybridrec/core"
)

// MinMaxNormalize 把序列的分数线性映射到 [0, 1]：最小值 → 0，最大值 → 1。
//
//   - 空序列原样返回
//   - 所有分数相同（区间为 0）时全部置 0
//   - 保持 key 与顺序不变，返回新序列
func MinMaxNormalize(s core.ScoreSeries) core.ScoreSeries {
	if len(s) == 0 {
		return s
	}
	values := make([]float64, len(s))
	for i, sc := range s {
		values[i] = sc.Value
	}
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo

	out := make(core.ScoreSeries, len(s))
	for i, sc := range s {
		v := 0.0
		if span > 0 {
			v = (sc.Value - lo) / span
		}
		out[i] = core.Score{ItemID: sc.ItemID, Value: v}
	}
	return out
}

// Normalize 先合并重复 ID（取最大值）再做 min-max 归一化。
func Normalize(s core.ScoreSeries) core.ScoreSeries {
	return MinMaxNormalize(s.DedupMax())
}
