// Package hybridrec 是一个混合推荐融合引擎。
//
// 设计要点：
// - Pipeline-first: 融合逻辑通过 Node 串联（Aggregate → Enrich → Filter → Diversify/Truncate → Fallback）
// - Channel 独立: 协同过滤 / 内容 / 视觉三个通道实现同一接口，失败只降级为空贡献
// - Labels-first: fusion_channels / fallback 等标签全链路透传，支持 explain 与观测
// - 无状态: 每次请求都是输入的纯函数，结果与通道完成顺序无关
package hybridrec

import (
	"github.com/rushteam/hybridrec/hybrid"
	"github.com/rushteam/hybridrec/pipeline"
)

// 轻量 facade：便于用户直接 import "hybridrec" 使用核心抽象。
type (
	Pipeline    = pipeline.Pipeline
	Node        = pipeline.Node
	Kind        = pipeline.Kind
	Recommender = hybrid.Recommender
	Options     = hybrid.Options
	Request     = hybrid.Request
	Response    = hybrid.Response
)

const (
	KindAggregate = pipeline.KindAggregate
	KindEnrich    = pipeline.KindEnrich
	KindFilter    = pipeline.KindFilter
	KindReRank    = pipeline.KindReRank
	KindFallback  = pipeline.KindFallback
)

// New 创建 Recommender，等价于 hybrid.New。
func New(opts Options) (*Recommender, error) {
	return hybrid.New(opts)
}
