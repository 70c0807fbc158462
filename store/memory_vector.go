package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/hybridrec/core"
)

// MemoryEmbeddingIndex 是内存实现的图像向量索引，用于测试/开发/原型。
//
// 特点：
//   - 纯内存实现，进程重启后数据丢失
//   - 使用内积打分（向量通常已做 L2 归一化，内积即余弦相似度）
//   - 线程安全；按插入顺序遍历，结果确定
type MemoryEmbeddingIndex struct {
	mu        sync.RWMutex
	dimension int
	ids       []string
	vectors   map[string][]float64
}

// NewMemoryEmbeddingIndex 创建指定维度的向量索引。
func NewMemoryEmbeddingIndex(dimension int) *MemoryEmbeddingIndex {
	return &MemoryEmbeddingIndex{
		dimension: dimension,
		vectors:   make(map[string][]float64),
	}
}

var _ core.EmbeddingIndex = (*MemoryEmbeddingIndex)(nil)

func (m *MemoryEmbeddingIndex) Name() string { return "memory_embedding" }

// Insert 写入（或覆盖）一个物品向量。
func (m *MemoryEmbeddingIndex) Insert(id string, vector []float64) error {
	if len(vector) != m.dimension {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported,
			fmt.Sprintf("vector dimension mismatch: got %d, want %d", len(vector), m.dimension))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vectors[id]; !ok {
		m.ids = append(m.ids, id)
	}
	m.vectors[id] = append([]float64(nil), vector...)
	return nil
}

// Len 返回索引中的向量数。
func (m *MemoryEmbeddingIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

func (m *MemoryEmbeddingIndex) Vector(_ context.Context, id string) ([]float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vectors[id]
	return v, ok, nil
}

// Search 计算查询向量与所有物品向量的内积，返回分数最高的 TopK（TopK<=0 返回全部）。
func (m *MemoryEmbeddingIndex) Search(_ context.Context, req *core.VectorSearchRequest) (core.ScoreSeries, error) {
	if req == nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported, "vector search request is nil")
	}
	if len(req.Vector) != m.dimension {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported,
			fmt.Sprintf("query dimension mismatch: got %d, want %d", len(req.Vector), m.dimension))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(core.ScoreSeries, 0, len(m.ids))
	for _, id := range m.ids {
		if _, skip := req.Exclude[id]; skip {
			continue
		}
		out = append(out, core.Score{ItemID: id, Value: floats.Dot(req.Vector, m.vectors[id])})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	if req.TopK > 0 && len(out) > req.TopK {
		out = out[:req.TopK]
	}
	return out, nil
}
