package core

import "github.com/rushteam/hybridrec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户/查询信息，贯穿整个 Pipeline 透传。
// 只在单次请求内有效，不跨请求保存任何状态。
type RecommendContext struct {
	UserID string

	// QueryImage 是视觉通道的查询图片（通常为图片路径或物品 ID）。
	// 为空时视觉通道不参与融合。
	QueryImage string

	// TopK 是本次请求的目标结果数
	TopK int

	// Weights 是本次请求实际使用的通道权重（由融合阶段写入）
	Weights Weights

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	// 例如：冷启动用户、重度用户等
	Labels map[string]utils.Label

	// Params 请求级上下文参数
	Params map[string]any
}

// 融合阶段写入的请求级 Label。
const (
	// LabelCandidates 标记融合后的候选池状态，候选为空时值为 CandidatesEmpty
	LabelCandidates = "candidates"
	CandidatesEmpty = "empty"

	// LabelWeights 标记权重来源：adaptive / explicit / min_alpha（密度读取失败）
	LabelWeights = "weights"
)

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
