package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/core"
)

// CatalogFilter 过滤掉不在当前目录中的物品（已下架、已删除）。
//
// 目录在每次请求开始时取一次快照，请求内保持不变；目录本身由外部刷新。
type CatalogFilter struct {
	Catalog core.CatalogSource
}

var (
	_ Filter   = (*CatalogFilter)(nil)
	_ Preparer = (*CatalogFilter)(nil)
)

func (f *CatalogFilter) Name() string {
	return "filter.catalog"
}

// Prepare 加载目录快照。
func (f *CatalogFilter) Prepare(ctx context.Context, _ *core.RecommendContext) (Filter, error) {
	if f.Catalog == nil {
		return nil, core.ConfigError("catalog source not configured")
	}
	items, err := f.Catalog.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalogSnapshot(items), nil
}

// ShouldFilter 未经 Prepare 直接调用时每次都会读取目录。
func (f *CatalogFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	snap, err := f.Prepare(ctx, rctx)
	if err != nil {
		return false, err
	}
	return snap.ShouldFilter(ctx, rctx, item)
}

// catalogSnapshot 是单次请求内的目录快照。
type catalogSnapshot map[string]struct{}

func (s catalogSnapshot) Name() string { return "filter.catalog" }

func (s catalogSnapshot) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	_, ok := s[item.ID]
	return !ok, nil
}

// StaticCatalog 是内存中的目录，只读。
type StaticCatalog map[string]struct{}

var _ core.CatalogSource = StaticCatalog(nil)

// NewStaticCatalog 由物品 ID 构建目录。
func NewStaticCatalog(ids ...string) StaticCatalog {
	c := make(StaticCatalog, len(ids))
	for _, id := range ids {
		c[id] = struct{}{}
	}
	return c
}

func (c StaticCatalog) Items(context.Context) (map[string]struct{}, error) {
	return c, nil
}

// Len 返回目录大小。
func (c StaticCatalog) Len() int { return len(c) }
