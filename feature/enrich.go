// Package feature 负责在融合之后为候选物品注入元数据、为请求注入用户画像，
// 使规则过滤（CEL 表达式）与推荐解释可以读取 item.meta.* / rctx.params.profile.*。
package feature

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// Meta 中的标准 key。
const (
	MetaBrand       = "brand"
	MetaCategory    = "category"
	MetaDescription = "description"
	MetaCollection  = "collection"
	MetaPrice       = "price"

	// ParamProfile 是 rctx.Params 中用户画像的 key
	ParamProfile = "profile"
)

// EnrichNode 是元数据注入节点。
// 支持两类数据：
//  1. 物品元数据（MetadataSource）：写入 item.Meta，价格同时写入 Features["price"]
//  2. 用户画像（ProfileSource）：写入 rctx.Params["profile"]
//
// 注入只是尽力而为：数据源报错时记录日志并跳过，不影响推荐结果。
type EnrichNode struct {
	Metadata core.MetadataSource
	Profiles core.ProfileSource

	Logger zerolog.Logger
}

func (n *EnrichNode) Name() string {
	return "feature.enrich"
}

func (n *EnrichNode) Kind() pipeline.Kind {
	return pipeline.KindEnrich
}

func (n *EnrichNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx != nil && n.Profiles != nil && rctx.UserID != "" {
		n.enrichUser(ctx, rctx)
	}
	if n.Metadata == nil || len(items) == 0 {
		return items, nil
	}

	missing := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		meta, ok, err := n.Metadata.ItemMeta(ctx, item.ID)
		if err != nil {
			n.Logger.Warn().Err(err).Str("item_id", item.ID).Msg("load item metadata failed")
			continue
		}
		if !ok || meta == nil {
			missing++
			continue
		}
		ApplyMeta(item, meta)
	}
	if missing > 0 {
		n.Logger.Debug().Int("missing", missing).Int("total", len(items)).Msg("items without metadata")
	}
	return items, nil
}

func (n *EnrichNode) enrichUser(ctx context.Context, rctx *core.RecommendContext) {
	profile, ok, err := n.Profiles.UserProfile(ctx, rctx.UserID)
	if err != nil {
		n.Logger.Warn().Err(err).Str("user_id", rctx.UserID).Msg("load user profile failed")
		return
	}
	if !ok || profile == nil {
		return
	}
	if rctx.Params == nil {
		rctx.Params = make(map[string]any)
	}
	rctx.Params[ParamProfile] = map[string]any{
		"age":        profile.Age,
		"gender":     profile.Gender,
		"location":   profile.Location,
		"style_pref": profile.StylePref,
	}
}

// ApplyMeta 把元数据写入 item.Meta；空字段不写入。
func ApplyMeta(item *core.Item, meta *core.ItemMeta) {
	if item.Meta == nil {
		item.Meta = make(map[string]any)
	}
	put := func(key, v string) {
		if v != "" {
			item.Meta[key] = v
		}
	}
	put(MetaBrand, meta.Brand)
	put(MetaCategory, meta.Category)
	put(MetaDescription, meta.Description)
	put(MetaCollection, meta.Collection)
	if meta.Price > 0 {
		item.Meta[MetaPrice] = meta.Price
		item.SetFeature(MetaPrice, meta.Price)
	}
}
