package pipeline

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// Kind 用于标记 Node 所处阶段，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindAggregate Kind = "aggregate" // 融合阶段：调用各通道、归一化、加权合并
	KindEnrich    Kind = "enrich"    // 注入阶段：补充物品元数据与用户画像，供规则过滤/解释使用
	KindFilter    Kind = "filter"    // 过滤阶段：剔除目录外/不符合规则的候选
	KindReRank    Kind = "rerank"    // 重排阶段：MMR 多样性重排或 Top-N 截断
	KindFallback  Kind = "fallback"  // 兜底阶段：结果不足时用热门物品补齐
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态，方便融合生成、过滤截断、重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
