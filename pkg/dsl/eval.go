package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/hybridrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量和函数
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译后的 Label DSL 表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可在多个请求/物品上并发求值。
//
// 表达式语法（CEL 标准语法）：
//   - 标签：label.fusion_channels.contains("visual") / label.fallback == "popularity"
//   - 分数：item.score > 0.3
//   - 通道贡献：item.features.content > 0.5
//   - 元信息：item.meta.category == "Shoes"
//   - 请求：rctx.user_id == "u1" / rctx.weights.alpha > 0.4
//
// 访问不存在的 key 会报错，使用 has(item.meta.category) 或 label.key != null 检查存在性。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。空表达式恒为 true。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return &Program{}, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Evaluate 对单个物品求值，返回布尔结果。
func (p *Program) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if p.prg == nil {
		return true, nil
	}

	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Eval 编译并执行一次表达式，适合一次性判断；热路径请使用 Compile。
func Eval(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Evaluate(item, rctx)
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	labelAccessor := make(map[string]any)
	itemMap := map[string]any{}
	if item != nil {
		for k, v := range item.Labels {
			labels[k] = map[string]any{
				"value":  v.Value,
				"source": v.Source,
			}
			// label.key 直接返回 value
			labelAccessor[k] = v.Value
		}
		features := item.Features
		if features == nil {
			features = map[string]float64{}
		}
		meta := item.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		itemMap = map[string]any{
			"id":       item.ID,
			"score":    item.Score,
			"features": features,
			"meta":     meta,
			"labels":   labels,
		}
	}

	rctxMap := map[string]any{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		rctxMap = map[string]any{
			"user_id":     rctx.UserID,
			"query_image": rctx.QueryImage,
			"top_k":       rctx.TopK,
			"params":      params,
			"weights": map[string]float64{
				"alpha": rctx.Weights.Alpha,
				"beta":  rctx.Weights.Beta,
				"gamma": rctx.Weights.Gamma,
			},
		}
	}

	return map[string]any{
		"item":  itemMap,
		"label": labelAccessor,
		"rctx":  rctxMap,
	}
}
