// Package similarity 提供只读的物品相似度矩阵（基于 gonum 对称矩阵）。
//
// 矩阵本身由外部（离线训练 / 内容建模）产出，这里只负责承载与查询：
//   - 对称：Similarity(i, j) == Similarity(j, i)
//   - 自相似是所在行的最大值
//   - 不在矩阵中的物品对返回 ok=false，由调用方按 0 处理
package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/hybridrec/core"
)

// symmetryTolerance 是校验对称性时允许的浮点误差。
const symmetryTolerance = 1e-9

// Matrix 是 core.SimilarityMatrix 的稠密实现。
type Matrix struct {
	ids   []string
	index map[string]int
	data  *mat.SymDense
}

var _ core.SimilarityMatrix = (*Matrix)(nil)

// New 根据物品 ID 与方阵数据构建相似度矩阵。
// values[i][j] 为 ids[i] 与 ids[j] 的相似度，必须对称。
func New(ids []string, values [][]float64) (*Matrix, error) {
	n := len(ids)
	if len(values) != n {
		return nil, fmt.Errorf("similarity: expected %d rows, got %d", n, len(values))
	}
	index := make(map[string]int, n)
	for i, id := range ids {
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("similarity: duplicate item id %q", id)
		}
		index[id] = i
	}

	if n == 0 {
		return &Matrix{index: index}, nil
	}

	data := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(values[i]) != n {
			return nil, fmt.Errorf("similarity: row %d has %d columns, want %d", i, len(values[i]), n)
		}
		for j := i; j < n; j++ {
			if math.Abs(values[i][j]-values[j][i]) > symmetryTolerance {
				return nil, fmt.Errorf("similarity: matrix not symmetric at (%s, %s)", ids[i], ids[j])
			}
			data.SetSym(i, j, values[i][j])
		}
	}

	return &Matrix{
		ids:   append([]string(nil), ids...),
		index: index,
		data:  data,
	}, nil
}

// Pair 是一个物品对的相似度。
type Pair struct {
	A, B  string
	Value float64
}

// FromPairs 由稀疏物品对构建矩阵，未给出的物品对相似度为 0，自相似为 self。
// 物品顺序按 ids 给出。
func FromPairs(ids []string, self float64, pairs ...Pair) (*Matrix, error) {
	values := make([][]float64, len(ids))
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
		values[i] = make([]float64, len(ids))
		values[i][i] = self
	}
	for _, p := range pairs {
		i, ok := index[p.A]
		if !ok {
			return nil, fmt.Errorf("similarity: unknown item %q", p.A)
		}
		j, ok := index[p.B]
		if !ok {
			return nil, fmt.Errorf("similarity: unknown item %q", p.B)
		}
		values[i][j] = p.Value
		values[j][i] = p.Value
	}
	return New(ids, values)
}

// Similarity 返回两个物品的相似度；任一物品不在矩阵中时 ok=false。
func (m *Matrix) Similarity(a, b string) (float64, bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	return m.data.At(i, j), true
}

// Row 返回物品与所有物品的相似度，顺序与构建时的 ids 一致。
func (m *Matrix) Row(id string) (core.ScoreSeries, bool) {
	i, ok := m.index[id]
	if !ok {
		return nil, false
	}
	out := make(core.ScoreSeries, len(m.ids))
	for j, other := range m.ids {
		out[j] = core.Score{ItemID: other, Value: m.data.At(i, j)}
	}
	return out, true
}

// Has 判断物品是否在矩阵中。
func (m *Matrix) Has(id string) bool {
	_, ok := m.index[id]
	return ok
}

// IDs 返回矩阵中的物品 ID（构建顺序）。
func (m *Matrix) IDs() []string {
	return append([]string(nil), m.ids...)
}

// Len 返回矩阵维度。
func (m *Matrix) Len() int { return len(m.ids) }

// VecMul 计算 weights · M，weights 是 item → 权重的稀疏向量（例如用户交互行）。
// 返回与矩阵同序的得分序列。未在矩阵中的物品被忽略。
func (m *Matrix) VecMul(weights map[string]float64) core.ScoreSeries {
	n := len(m.ids)
	if n == 0 {
		return core.ScoreSeries{}
	}
	x := mat.NewVecDense(n, nil)
	for id, w := range weights {
		if i, ok := m.index[id]; ok {
			x.SetVec(i, w)
		}
	}
	var y mat.VecDense
	y.MulVec(m.data, x)

	out := make(core.ScoreSeries, n)
	for j, id := range m.ids {
		out[j] = core.Score{ItemID: id, Value: y.AtVec(j)}
	}
	return out
}
