package recall

import (
	"context"
	"time"

	"github.com/rushteam/hybridrec/core"
)

// 通道名称，同时作为 Item.Features 中各通道贡献的 key。
const (
	ChannelCollaborative = "collaborative"
	ChannelContent       = "content"
	ChannelVisual        = "visual"
)

// Channel 表示一个独立的推荐信号通道（协同过滤 / 内容 / 视觉）。
// 三个通道统一为"给定上下文产出分数序列"的能力，可独立测试与替换。
//
// 约定：
//   - 无法为当前用户/图片产出结果时返回 core.ChannelUnavailable 错误（或空序列），不得 panic
//   - 返回的序列可以包含重复 ID、可以无序，融合阶段会去重并归一化
type Channel interface {
	Name() string
	Score(ctx context.Context, rctx *core.RecommendContext, topK int) (core.ScoreSeries, error)
}

// Outcome 是单个通道调用的结果分类。
type Outcome string

const (
	OutcomeOK          Outcome = "ok"          // 产出了非空序列
	OutcomeEmpty       Outcome = "empty"       // 正常返回但没有分数（无信号）
	OutcomeUnavailable Outcome = "unavailable" // 通道声明不适用（冷启动/未知 ID/无查询图片）
	OutcomeError       Outcome = "error"       // 真实错误（超时、存储失败、panic）
	OutcomeSkipped     Outcome = "skipped"     // 未配置该通道
)

// ChannelResult 区分"无信号"与"错误"：两者都降级为空贡献，但观测与告警需要区别对待。
type ChannelResult struct {
	Channel  string
	Scores   core.ScoreSeries
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// NoSignal 表示该通道没有可用分数（无论原因）。
func (r ChannelResult) NoSignal() bool {
	return len(r.Scores) == 0
}

// classify 根据通道返回值确定 Outcome。
func classify(scores core.ScoreSeries, err error) Outcome {
	switch {
	case err != nil && core.IsChannelUnavailable(err):
		return OutcomeUnavailable
	case err != nil:
		return OutcomeError
	case len(scores) == 0:
		return OutcomeEmpty
	default:
		return OutcomeOK
	}
}
