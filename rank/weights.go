package rank

import (
	"context"
	"fmt"
	"math"

	"github.com/rushteam/hybridrec/core"
)

const (
	DefaultMinAlpha     = 0.2
	DefaultMaxAlpha     = 0.6
	DefaultDensityCap   = 50
	DefaultContentShare = 0.67
)

// ExplicitWeights 是调用方显式指定的通道权重，nil 表示由 AdaptiveWeighter 计算。
//
//   - Alpha 可单独指定，Beta/Gamma 仍按 1-Alpha 派生
//   - Beta 与 Gamma 必须同时指定才生效
//   - 显式值原样使用，不做归一化
type ExplicitWeights struct {
	Alpha *float64
	Beta  *float64
	Gamma *float64
}

// AdaptiveWeighter 按用户交互密度自适应计算协同过滤权重 alpha：
//
//	alpha = MinAlpha + (MaxAlpha - MinAlpha) * min(density / DensityCap, 1)
//
// density 为用户在交互矩阵中非零交互的物品数；用户不在矩阵中时 alpha = MinAlpha。
// 剩余权重 1-alpha 按 ContentShare 分给内容通道，其余分给视觉通道。
type AdaptiveWeighter struct {
	Interactions core.InteractionSource

	MinAlpha     float64
	MaxAlpha     float64
	DensityCap   float64
	ContentShare float64
}

// NewAdaptiveWeighter 使用默认参数创建 AdaptiveWeighter。
func NewAdaptiveWeighter(src core.InteractionSource) *AdaptiveWeighter {
	return &AdaptiveWeighter{
		Interactions: src,
		MinAlpha:     DefaultMinAlpha,
		MaxAlpha:     DefaultMaxAlpha,
		DensityCap:   DefaultDensityCap,
		ContentShare: DefaultContentShare,
	}
}

// Validate 检查参数范围。
func (w *AdaptiveWeighter) Validate() error {
	switch {
	case w.MinAlpha < 0 || w.MaxAlpha > 1 || w.MinAlpha > w.MaxAlpha:
		return core.ConfigError("alpha range must satisfy 0 <= min_alpha <= max_alpha <= 1, got [%g, %g]", w.MinAlpha, w.MaxAlpha)
	case w.DensityCap <= 0:
		return core.ConfigError("density_cap must be positive, got %g", w.DensityCap)
	case w.ContentShare < 0 || w.ContentShare > 1:
		return core.ConfigError("content_share must be in [0, 1], got %g", w.ContentShare)
	}
	return nil
}

// ComputeAlpha 返回用户的协同过滤权重。交互数据读取失败时返回错误。
func (w *AdaptiveWeighter) ComputeAlpha(ctx context.Context, userID string) (float64, error) {
	if w.Interactions == nil || userID == "" {
		return w.MinAlpha, nil
	}
	row, present, err := w.Interactions.UserInteractions(ctx, userID)
	if err != nil {
		return w.MinAlpha, fmt.Errorf("interaction density for user %s: %w", userID, err)
	}
	if !present {
		return w.MinAlpha, nil
	}
	density := 0
	for _, v := range row {
		if v != 0 {
			density++
		}
	}
	return w.alphaFor(density), nil
}

func (w *AdaptiveWeighter) alphaFor(density int) float64 {
	ratio := math.Min(float64(density)/w.DensityCap, 1)
	return w.MinAlpha + (w.MaxAlpha-w.MinAlpha)*ratio
}

// Split 由 alpha 派生完整权重。
func (w *AdaptiveWeighter) Split(alpha float64) core.Weights {
	rest := 1 - alpha
	return core.Weights{
		Alpha: alpha,
		Beta:  rest * w.ContentShare,
		Gamma: rest * (1 - w.ContentShare),
	}
}

// Weights 结合显式权重与自适应 alpha 得到本次请求的三通道权重。
// 结果包含负数时返回 INVALID_CONFIG。
func (w *AdaptiveWeighter) Weights(ctx context.Context, userID string, explicit ExplicitWeights) (core.Weights, error) {
	var alpha float64
	if explicit.Alpha != nil {
		alpha = *explicit.Alpha
	} else {
		a, err := w.ComputeAlpha(ctx, userID)
		if err != nil {
			return core.Weights{}, err
		}
		alpha = a
	}

	weights := w.Split(alpha)
	if explicit.Beta != nil && explicit.Gamma != nil {
		weights.Beta = *explicit.Beta
		weights.Gamma = *explicit.Gamma
	}
	if err := weights.Validate(); err != nil {
		return core.Weights{}, err
	}
	return weights, nil
}
