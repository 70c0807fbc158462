package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/hybridrec/core"
)

// VisualChannel 是基于图像向量的视觉相似通道（Embedding 检索）。
//
// 查询图片先经 Embedder 转换为向量（未配置时直接在索引中查找该图片的向量），
// 再与所有物品向量做内积（向量已归一化时即余弦相似度），排除查询图片本身后取 TopK。
//
// 没有查询图片、或查询图片无法得到向量时返回 CHANNEL_UNAVAILABLE。
type VisualChannel struct {
	Index    core.EmbeddingIndex
	Embedder core.Embedder
}

func (c *VisualChannel) Name() string { return ChannelVisual }

func (c *VisualChannel) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	topK int,
) (core.ScoreSeries, error) {
	if c.Index == nil {
		return nil, core.ChannelUnavailable(c.Name(), "embedding index not configured")
	}
	if rctx == nil || rctx.QueryImage == "" {
		return nil, core.ChannelUnavailable(c.Name(), "no query image")
	}

	vec, err := c.queryVector(ctx, rctx.QueryImage)
	if err != nil {
		return nil, err
	}

	return c.Index.Search(ctx, &core.VectorSearchRequest{
		Vector:  vec,
		TopK:    topK,
		Exclude: map[string]struct{}{rctx.QueryImage: {}},
	})
}

func (c *VisualChannel) queryVector(ctx context.Context, image string) ([]float64, error) {
	if c.Embedder != nil {
		vec, err := c.Embedder.Embed(ctx, image)
		if err != nil {
			return nil, fmt.Errorf("embed query image %s: %w", image, err)
		}
		if len(vec) == 0 {
			return nil, core.ChannelUnavailable(c.Name(), "empty embedding for "+image)
		}
		return vec, nil
	}

	vec, ok, err := c.Index.Vector(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("lookup query image %s: %w", image, err)
	}
	if !ok || len(vec) == 0 {
		return nil, core.ChannelUnavailable(c.Name(), "query image not indexed: "+image)
	}
	return vec, nil
}
