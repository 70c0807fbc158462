package core

import "fmt"

// Weights 是三个通道的融合权重（alpha/beta/gamma）。
//
// 非负；按构造 Alpha+Beta+Gamma ≈ 1（beta、gamma 由 1-alpha 派生）。
// 调用方显式传入的权重原样使用，不做归一化，由调用方保证一致性。
type Weights struct {
	Alpha float64 `json:"alpha" yaml:"alpha"` // 协同过滤
	Beta  float64 `json:"beta" yaml:"beta"`   // 内容
	Gamma float64 `json:"gamma" yaml:"gamma"` // 视觉
}

// Validate 检查权重非负。
func (w Weights) Validate() error {
	if w.Alpha < 0 || w.Beta < 0 || w.Gamma < 0 {
		return ConfigError("negative channel weight: alpha=%g beta=%g gamma=%g", w.Alpha, w.Beta, w.Gamma)
	}
	return nil
}

func (w Weights) String() string {
	return fmt.Sprintf("alpha=%.3f beta=%.3f gamma=%.3f", w.Alpha, w.Beta, w.Gamma)
}
