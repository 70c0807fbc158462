package hybrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/hybridrec/core"
)

// ExplainSources 是生成推荐解释所需的数据源。
type ExplainSources struct {
	Metadata core.MetadataSource
	Profiles core.ProfileSource
	History  core.HistorySource
}

// Explain 为推荐给 userID 的 itemID 生成一句可读的推荐理由：
//   - 物品没有元数据：按通用偏好解释
//   - 用户没有画像：按热门趋势解释
//   - 物品类别/品牌出现在用户交互过的物品中：列出这些重合
//   - 否则按用户的风格偏好解释
func Explain(ctx context.Context, src ExplainSources, userID, itemID string) (string, error) {
	if src.Metadata == nil {
		return "", core.ConfigError("metadata source is required for explanations")
	}
	item, ok, err := src.Metadata.ItemMeta(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("load item %s: %w", itemID, err)
	}
	if !ok || item == nil {
		return "Recommended based on your general preferences (item not found in catalog).", nil
	}

	var profile *core.UserProfile
	if src.Profiles != nil {
		profile, ok, err = src.Profiles.UserProfile(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("load profile %s: %w", userID, err)
		}
	}
	if !ok || profile == nil {
		return "Recommended based on popular trends (new user with no profile).", nil
	}

	brands, categories, err := historyOverlap(ctx, src, userID)
	if err != nil {
		return "", err
	}

	var reasons []string
	if _, hit := categories[item.Category]; hit && item.Category != "" {
		reasons = append(reasons, "you viewed "+item.Category+" before")
	}
	if _, hit := brands[item.Brand]; hit && item.Brand != "" {
		reasons = append(reasons, "you liked "+item.Brand)
	}
	if len(reasons) > 0 {
		return "Recommended because " + strings.Join(reasons, " and ") + ".", nil
	}
	return "Recommended because it matches your style preference: " + profile.StylePref + ".", nil
}

// historyOverlap 收集用户交互过的物品的品牌与类别。
func historyOverlap(ctx context.Context, src ExplainSources, userID string) (brands, categories map[string]struct{}, err error) {
	brands = make(map[string]struct{})
	categories = make(map[string]struct{})
	if src.History == nil {
		return brands, categories, nil
	}
	seen, _, err := src.History.RecentItems(ctx, userID, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("load history %s: %w", userID, err)
	}
	for _, id := range seen {
		meta, ok, err := src.Metadata.ItemMeta(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load item %s: %w", id, err)
		}
		if !ok || meta == nil {
			continue
		}
		brands[meta.Brand] = struct{}{}
		categories[meta.Category] = struct{}{}
	}
	return brands, categories, nil
}

// Explain 使用 Recommender 配置的数据源生成推荐理由。
func (r *Recommender) Explain(ctx context.Context, userID, itemID string) (string, error) {
	return Explain(ctx, ExplainSources{
		Metadata: r.opts.Metadata,
		Profiles: r.opts.Profiles,
		History:  r.opts.History,
	}, userID, itemID)
}
