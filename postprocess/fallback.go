// Package postprocess 提供 Pipeline 的收尾阶段：结果不足 top_k 时用热门物品补齐。
package postprocess

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// DefaultPlaceholderScore 是补齐物品的固定分数，低于任何真实通道分数，只会排在末尾。
const DefaultPlaceholderScore = 0.01

// FallbackNode 在结果少于 top_k 时追加热门物品：
//   - 按热度降序，热度相同按物品 ID 升序
//   - 跳过已在结果中的物品；配置了 Catalog 时只补目录内的物品（目录为空则不补）
//   - 热度列表用尽后，目录中剩余的物品按热度 0 处理，按物品 ID 升序继续补齐
//   - 分数统一为 PlaceholderScore，写入 Label fallback=popularity 或 fallback=catalog
//
// 配置了 Catalog 且热度可读时，保证返回 min(top_k, 目录大小) 个物品。
// 热度数据读取失败时记录日志并原样返回（兜底是尽力而为的）。
type FallbackNode struct {
	Popularity core.PopularitySource
	Catalog    core.CatalogSource

	// TopK 目标结果数；<= 0 时使用 rctx.TopK
	TopK int

	// PlaceholderScore 补齐物品的分数；0 表示 DefaultPlaceholderScore
	PlaceholderScore float64

	Logger zerolog.Logger

	// Filled 是最近一次 Process 补齐的物品数
	Filled int
}

func (n *FallbackNode) Name() string        { return "postprocess.fallback" }
func (n *FallbackNode) Kind() pipeline.Kind { return pipeline.KindFallback }

func (n *FallbackNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	n.Filled = 0
	k := n.TopK
	if k <= 0 && rctx != nil {
		k = rctx.TopK
	}
	if k <= 0 || len(items) >= k {
		return items, nil
	}
	if n.Popularity == nil {
		n.Logger.Debug().Int("have", len(items)).Int("want", k).Msg("no popularity source, result not padded")
		return items, nil
	}

	popular, err := n.Popularity.Popular(ctx, 0)
	if err != nil {
		n.Logger.Warn().Err(err).Msg("load popularity failed, result not padded")
		return items, nil
	}

	if rctx != nil {
		if lbl, ok := rctx.GetLabel(core.LabelCandidates); ok && lbl.Value == core.CandidatesEmpty {
			n.Logger.Debug().Int("want", k).Msg("candidate pool empty, result built from popularity")
		}
	}

	var catalog map[string]struct{}
	if n.Catalog != nil {
		catalog, err = n.Catalog.Items(ctx)
		if err != nil {
			n.Logger.Warn().Err(err).Msg("load catalog failed, result not padded")
			return items, nil
		}
	}

	ranked := append(core.ScoreSeries(nil), popular...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].ItemID < ranked[j].ItemID
	})

	present := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it != nil {
			present[it.ID] = struct{}{}
		}
	}

	placeholder := n.PlaceholderScore
	if placeholder == 0 {
		placeholder = DefaultPlaceholderScore
	}

	inCatalog := func(id string) bool {
		if n.Catalog == nil {
			return true
		}
		_, ok := catalog[id]
		return ok
	}

	out := items
	pad := func(id string, popularity float64, source string) {
		present[id] = struct{}{}
		it := core.NewItem(id)
		it.Score = placeholder
		it.SetFeature("popularity", popularity)
		it.PutLabel("fallback", utils.Label{Value: source, Source: "fallback"})
		out = append(out, it)
		n.Filled++
	}

	for _, p := range ranked {
		if len(out) >= k {
			break
		}
		if _, ok := present[p.ItemID]; ok || !inCatalog(p.ItemID) {
			continue
		}
		pad(p.ItemID, p.Value, "popularity")
	}

	if n.Catalog != nil && len(out) < k {
		rest := make([]string, 0, len(catalog))
		for id := range catalog {
			if _, ok := present[id]; !ok {
				rest = append(rest, id)
			}
		}
		sort.Strings(rest)
		for _, id := range rest {
			if len(out) >= k {
				break
			}
			pad(id, 0, "catalog")
		}
	}

	if n.Filled > 0 {
		n.Logger.Debug().Int("filled", n.Filled).Int("total", len(out)).Msg("result padded with popular items")
	}
	return out, nil
}
