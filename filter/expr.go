package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/dsl"
)

// ExprFilter 是基于 Label DSL（CEL）的业务规则过滤器。
//
// 表达式为 true 的物品被过滤掉（Invert=true 时反之，只保留表达式为 true 的物品）。
// 求值出错的物品保留，由 FilterNode 记录日志。
//
// 示例：
//
//	filter.MustExprFilter(`item.meta.category == "Bags"`)                  // 去掉包类
//	filter.MustExprFilter(`item.features.collaborative > 0.2`).Keep()      // 只保留协同信号足够强的
type ExprFilter struct {
	Invert bool

	prg *dsl.Program
}

var _ Filter = (*ExprFilter)(nil)

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.ConfigError("invalid filter expression %q: %v", expr, err)
	}
	return &ExprFilter{prg: prg}, nil
}

// MustExprFilter 与 NewExprFilter 相同，编译失败时 panic。
func MustExprFilter(expr string) *ExprFilter {
	f, err := NewExprFilter(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// Keep 切换为"只保留表达式为 true 的物品"。
func (f *ExprFilter) Keep() *ExprFilter {
	f.Invert = true
	return f
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	matched, err := f.prg.Evaluate(item, rctx)
	if err != nil {
		return false, err
	}
	return matched != f.Invert, nil
}
