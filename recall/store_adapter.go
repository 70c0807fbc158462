package recall

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

// StoreInteractions 是基于 core.Store 的用户数据适配器，从 Redis/内存等存储读取：
//
//	用户交互行：{KeyPrefix}:user:{userID}     JSON map[itemID]score
//	用户历史：  {KeyPrefix}:history:{userID}  JSON []itemID（时间倒序）
//	用户画像：  {KeyPrefix}:profile:{userID}  JSON core.UserProfile
//
// key 不存在视为"用户不在矩阵中"，不是错误。
type StoreInteractions struct {
	store core.Store

	KeyPrefix string
}

var (
	_ core.InteractionSource = (*StoreInteractions)(nil)
	_ core.HistorySource     = (*StoreInteractions)(nil)
	_ core.ProfileSource     = (*StoreInteractions)(nil)
)

// NewStoreInteractions 创建一个基于 core.Store 的用户数据适配器。
func NewStoreInteractions(s core.Store, keyPrefix string) *StoreInteractions {
	if keyPrefix == "" {
		keyPrefix = "hybrid"
	}
	return &StoreInteractions{
		store:     s,
		KeyPrefix: keyPrefix,
	}
}

func (a *StoreInteractions) UserInteractions(ctx context.Context, userID string) (map[string]float64, bool, error) {
	var row map[string]float64
	ok, err := a.getJSON(ctx, a.KeyPrefix+":user:"+userID, &row)
	if err != nil || !ok {
		return nil, false, err
	}
	return row, true, nil
}

func (a *StoreInteractions) RecentItems(ctx context.Context, userID string, n int) ([]string, bool, error) {
	var items []string
	ok, err := a.getJSON(ctx, a.KeyPrefix+":history:"+userID, &items)
	if err != nil || !ok {
		return nil, false, err
	}
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items, true, nil
}

func (a *StoreInteractions) UserProfile(ctx context.Context, userID string) (*core.UserProfile, bool, error) {
	var profile core.UserProfile
	ok, err := a.getJSON(ctx, a.KeyPrefix+":profile:"+userID, &profile)
	if err != nil || !ok {
		return nil, false, err
	}
	if profile.UserID == "" {
		profile.UserID = userID
	}
	return &profile, true, nil
}

// SaveUserInteractions 写入用户交互行（离线任务/测试用）。
func (a *StoreInteractions) SaveUserInteractions(ctx context.Context, userID string, row map[string]float64) error {
	return a.setJSON(ctx, a.KeyPrefix+":user:"+userID, row)
}

// SaveHistory 写入用户历史（时间倒序）。
func (a *StoreInteractions) SaveHistory(ctx context.Context, userID string, items []string) error {
	return a.setJSON(ctx, a.KeyPrefix+":history:"+userID, items)
}

// SaveProfile 写入用户画像。
func (a *StoreInteractions) SaveProfile(ctx context.Context, profile *core.UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return fmt.Errorf("profile without user id")
	}
	return a.setJSON(ctx, a.KeyPrefix+":profile:"+profile.UserID, profile)
}

func (a *StoreInteractions) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("store get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (a *StoreInteractions) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}

// StoreMetadata 从 Hash {KeyPrefix}:meta 读取物品元数据（field 为物品 ID，value 为 JSON core.ItemMeta）。
// 首次访问时整表加载并缓存在实例上，实例应按请求或按刷新周期创建。
type StoreMetadata struct {
	store     core.KeyValueStore
	KeyPrefix string

	loaded map[string]*core.ItemMeta
}

var _ core.MetadataSource = (*StoreMetadata)(nil)

func NewStoreMetadata(s core.KeyValueStore, keyPrefix string) *StoreMetadata {
	if keyPrefix == "" {
		keyPrefix = "hybrid"
	}
	return &StoreMetadata{store: s, KeyPrefix: keyPrefix}
}

// Load 读取整个元数据 Hash。
func (a *StoreMetadata) Load(ctx context.Context) error {
	key := a.KeyPrefix + ":meta"
	fields, err := a.store.HGetAll(ctx, key)
	if err != nil && !core.IsStoreNotFound(err) {
		return fmt.Errorf("store hgetall %s: %w", key, err)
	}
	loaded := make(map[string]*core.ItemMeta, len(fields))
	for id, raw := range fields {
		var meta core.ItemMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("decode metadata for item %s: %w", id, err)
		}
		if meta.ItemID == "" {
			meta.ItemID = id
		}
		loaded[id] = &meta
	}
	a.loaded = loaded
	return nil
}

func (a *StoreMetadata) ItemMeta(ctx context.Context, itemID string) (*core.ItemMeta, bool, error) {
	if a.loaded == nil {
		if err := a.Load(ctx); err != nil {
			return nil, false, err
		}
	}
	meta, ok := a.loaded[itemID]
	return meta, ok, nil
}

// SaveItemMeta 写入单个物品元数据。
func (a *StoreMetadata) SaveItemMeta(ctx context.Context, meta *core.ItemMeta) error {
	if meta == nil || meta.ItemID == "" {
		return fmt.Errorf("item metadata without item id")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	a.loaded = nil
	return a.store.HSet(ctx, a.KeyPrefix+":meta", meta.ItemID, data)
}
