package postprocess

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/core"
)

// StaticPopularity 是内存中的热度表（物品 → 交互次数），只读。
type StaticPopularity struct {
	ranked core.ScoreSeries
}

var _ core.PopularitySource = (*StaticPopularity)(nil)

// NewStaticPopularity 由交互次数构建热度表。
func NewStaticPopularity(counts map[string]float64) *StaticPopularity {
	return &StaticPopularity{ranked: core.FromMap(counts)}
}

// Popular 返回热度最高的 limit 个物品（limit <= 0 返回全部）。
func (p *StaticPopularity) Popular(_ context.Context, limit int) (core.ScoreSeries, error) {
	out := p.ranked
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append(core.ScoreSeries(nil), out...), nil
}

// StorePopularity 从有序集合 {KeyPrefix}:popular 读取热度（member 为物品 ID，score 为交互次数）。
type StorePopularity struct {
	store     core.KeyValueStore
	KeyPrefix string
}

var _ core.PopularitySource = (*StorePopularity)(nil)

// NewStorePopularity 创建一个基于 KeyValueStore 的热度来源。
func NewStorePopularity(s core.KeyValueStore, keyPrefix string) *StorePopularity {
	if keyPrefix == "" {
		keyPrefix = "hybrid"
	}
	return &StorePopularity{store: s, KeyPrefix: keyPrefix}
}

func (p *StorePopularity) key() string { return p.KeyPrefix + ":popular" }

func (p *StorePopularity) Popular(ctx context.Context, limit int) (core.ScoreSeries, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	members, err := p.store.ZRangeWithScores(ctx, p.key(), 0, stop)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return core.ScoreSeries{}, nil
		}
		return nil, fmt.Errorf("store zrange %s: %w", p.key(), err)
	}
	return core.ScoreSeries(members), nil
}

// SetCount 写入物品的交互次数（离线任务/测试用）。
func (p *StorePopularity) SetCount(ctx context.Context, itemID string, count float64) error {
	return p.store.ZAdd(ctx, p.key(), count, itemID)
}
