package core

import "context"

// 本文件定义融合引擎依赖的外部数据源接口。
// 所有数据源在单次请求内都视为只读快照，引擎不会修改它们。

// CatalogSource 提供当前目录中的有效物品 ID 集合（由外部刷新）。
type CatalogSource interface {
	Items(ctx context.Context) (map[string]struct{}, error)
}

// PopularitySource 提供全局热度（交互频次），仅供兜底补齐使用。
// 返回结果按热度降序排列。
type PopularitySource interface {
	Popular(ctx context.Context, limit int) (ScoreSeries, error)
}

// InteractionSource 提供用户-物品交互矩阵中的一行。
// present=false 表示用户不在矩阵中（冷启动）。
type InteractionSource interface {
	UserInteractions(ctx context.Context, userID string) (row map[string]float64, present bool, err error)
}

// HistorySource 提供用户按时间倒序的最近交互物品。
type HistorySource interface {
	RecentItems(ctx context.Context, userID string, n int) (items []string, present bool, err error)
}

// ProfileSource 提供用户画像（风格偏好等）。
type ProfileSource interface {
	UserProfile(ctx context.Context, userID string) (*UserProfile, bool, error)
}

// MetadataSource 提供物品元数据（品牌、类别、描述）。
type MetadataSource interface {
	ItemMeta(ctx context.Context, itemID string) (*ItemMeta, bool, error)
}

// SimilarityMatrix 是对称的物品相似度矩阵，只读。
//
// 约定：Similarity(i, i) 是所在行的最大值；Similarity(i, j) == Similarity(j, i)。
// 物品对缺失时 ok=false，调用方按 0 处理。
type SimilarityMatrix interface {
	Similarity(a, b string) (sim float64, ok bool)

	// Row 返回物品与矩阵中所有物品的相似度（按矩阵索引顺序）
	Row(id string) (ScoreSeries, bool)

	// Has 判断物品是否在矩阵中
	Has(id string) bool
}

// VectorSearchRequest 向量检索请求（内积）。
type VectorSearchRequest struct {
	Vector  []float64
	TopK    int
	Exclude map[string]struct{}
}

// EmbeddingIndex 是物品图像向量索引。
type EmbeddingIndex interface {
	// Vector 返回物品（或图片路径）对应的向量
	Vector(ctx context.Context, id string) ([]float64, bool, error)

	// Search 返回与查询向量内积最大的 TopK 个物品，按分数降序
	Search(ctx context.Context, req *VectorSearchRequest) (ScoreSeries, error)
}

// Embedder 把查询图片转换为向量（例如调用外部的图像模型服务）。
type Embedder interface {
	Embed(ctx context.Context, image string) ([]float64, error)
}
