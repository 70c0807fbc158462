package filter

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的存储接口（黑名单 JSON 数组）。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetBlacklist 从 Store 读取黑名单。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}

	return ids, nil
}

// StoreCatalog 从 Store 读取目录：
//   - Store 实现了 KeyValueStore 时，优先读取 Hash {KeyPrefix}:items（field 为物品 ID）
//   - 否则（或 Hash 为空）读取 {KeyPrefix}:catalog 中的 JSON 数组
type StoreCatalog struct {
	store     core.Store
	KeyPrefix string
}

var _ core.CatalogSource = (*StoreCatalog)(nil)

// NewStoreCatalog 创建一个基于 core.Store 的目录。
func NewStoreCatalog(s core.Store, keyPrefix string) *StoreCatalog {
	if keyPrefix == "" {
		keyPrefix = "hybrid"
	}
	return &StoreCatalog{store: s, KeyPrefix: keyPrefix}
}

func (c *StoreCatalog) Items(ctx context.Context) (map[string]struct{}, error) {
	if kv, ok := c.store.(core.KeyValueStore); ok {
		fields, err := kv.HGetAll(ctx, c.KeyPrefix+":items")
		if err != nil && !core.IsStoreNotFound(err) {
			return nil, fmt.Errorf("store hgetall %s:items: %w", c.KeyPrefix, err)
		}
		if len(fields) > 0 {
			out := make(map[string]struct{}, len(fields))
			for id := range fields {
				out[id] = struct{}{}
			}
			return out, nil
		}
	}

	key := c.KeyPrefix + ":catalog"
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("store get %s: %w", key, err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// AddItems 把物品写入目录 Hash（需要 KeyValueStore）。
func (c *StoreCatalog) AddItems(ctx context.Context, ids ...string) error {
	kv, ok := c.store.(core.KeyValueStore)
	if !ok {
		return core.ErrStoreNotSupported
	}
	for _, id := range ids {
		if err := kv.HSet(ctx, c.KeyPrefix+":items", id, []byte("1")); err != nil {
			return err
		}
	}
	return nil
}
