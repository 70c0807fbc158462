package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的物品。
// 黑名单来自两处：内存中的 ItemIDs（例如请求级排除列表）与 Store 中的全局黑名单。
type BlacklistFilter struct {
	// ItemIDs 是内存中的黑名单物品 ID 列表
	ItemIDs []string

	// Store 用于从存储中读取黑名单（可选）
	Store BlacklistStore

	// Key 是 Store 中的黑名单 key（可选）
	Key string
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	// GetBlacklist 获取黑名单物品 ID 列表
	GetBlacklist(ctx context.Context, key string) ([]string, error)
}

var (
	_ Filter   = (*BlacklistFilter)(nil)
	_ Preparer = (*BlacklistFilter)(nil)
)

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(itemIDs []string, storeAdapter *StoreAdapter, key string) *BlacklistFilter {
	var store BlacklistStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &BlacklistFilter{
		ItemIDs: itemIDs,
		Store:   store,
		Key:     key,
	}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

// Prepare 合并内存与 Store 中的黑名单。Store 中 key 不存在视为空黑名单。
func (f *BlacklistFilter) Prepare(ctx context.Context, _ *core.RecommendContext) (Filter, error) {
	set := make(idSet, len(f.ItemIDs))
	for _, id := range f.ItemIDs {
		set[id] = struct{}{}
	}
	if f.Store != nil && f.Key != "" {
		ids, err := f.Store.GetBlacklist(ctx, f.Key)
		if err != nil && !core.IsStoreNotFound(err) {
			return nil, fmt.Errorf("load blacklist %s: %w", f.Key, err)
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	set, err := f.Prepare(ctx, rctx)
	if err != nil {
		return false, err
	}
	return set.ShouldFilter(ctx, rctx, item)
}

type idSet map[string]struct{}

func (s idSet) Name() string { return "filter.blacklist" }

func (s idSet) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	if item == nil {
		return true, nil
	}
	_, ok := s[item.ID]
	return ok, nil
}
