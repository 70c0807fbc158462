package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
)

// Pipeline 把融合逻辑拆成可组合的 Node 链：
// Aggregate → Filter → (Diversify | Truncate) → Fallback。
type Pipeline struct {
	Nodes  []Node
	Logger zerolog.Logger
}

// StageTrace 记录单个 Node 的执行情况。
type StageTrace struct {
	Node     string        `json:"node"`
	Kind     Kind          `json:"kind"`
	In       int           `json:"in"`
	Out      int           `json:"out"`
	Duration time.Duration `json:"duration"`
}

// Run 依次执行所有 Node。任一 Node 返回错误即中断。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	out, _, err := p.RunTraced(ctx, rctx, items)
	return out, err
}

// RunTraced 与 Run 相同，额外返回每个阶段的 StageTrace。
func (p *Pipeline) RunTraced(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, []StageTrace, error) {
	cur := items
	traces := make([]StageTrace, 0, len(p.Nodes))
	for _, node := range p.Nodes {
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, traces, fmt.Errorf("%s: %w", node.Name(), err)
		}
		tr := StageTrace{
			Node:     node.Name(),
			Kind:     node.Kind(),
			In:       len(cur),
			Out:      len(next),
			Duration: time.Since(start),
		}
		traces = append(traces, tr)
		p.Logger.Debug().
			Str("node", tr.Node).
			Str("kind", string(tr.Kind)).
			Int("in", tr.In).
			Int("out", tr.Out).
			Dur("duration", tr.Duration).
			Msg("pipeline stage done")
		cur = next
	}
	return cur, traces, nil
}
