package postprocess

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/pkg/utils"
	"github.com/rushteam/hybridrec/store"
)

func scored(kv ...any) []*core.Item {
	out := make([]*core.Item, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		it := core.NewItem(kv[i].(string))
		it.Score = kv[i+1].(float64)
		out = append(out, it)
	}
	return out
}

func TestFallbackNode_PadsWithPopular(t *testing.T) {
	pop := NewStaticPopularity(map[string]float64{"X": 30, "Y": 20, "Z": 10, "W": 5})
	n := &FallbackNode{Popularity: pop}

	out, err := n.Process(context.Background(), &core.RecommendContext{TopK: 5}, scored("A", 0.8, "B", 0.4))
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "X", "Y", "Z"}, core.ItemIDs(out))
	for _, it := range out[2:] {
		assert.Equal(t, DefaultPlaceholderScore, it.Score)
		assert.Equal(t, "popularity", it.Labels["fallback"].Value)
	}
	assert.Equal(t, 0.8, out[0].Score)
	assert.Equal(t, 3, n.Filled)
}

func TestFallbackNode_SkipsPresentAndOffCatalog(t *testing.T) {
	pop := NewStaticPopularity(map[string]float64{"A": 50, "X": 30, "Y": 30, "Z": 10})
	n := &FallbackNode{
		Popularity:       pop,
		Catalog:          filter.NewStaticCatalog("A", "B", "Y", "Z"),
		PlaceholderScore: 0.001,
	}

	// A 已在结果中；X 不在目录中；Y 与 X 热度相同，按 ID 排序；B 没有热度数据，最后补入
	out, err := n.Process(context.Background(), &core.RecommendContext{TopK: 4}, scored("A", 0.9))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "Y", "Z", "B"}, core.ItemIDs(out))
	assert.Equal(t, 0.001, out[1].Score)
	assert.Equal(t, "popularity", out[2].Labels["fallback"].Value)
	assert.Equal(t, "catalog", out[3].Labels["fallback"].Value)
	assert.Equal(t, 0.0, out[3].Features["popularity"])
}

func TestFallbackNode_EmptyCatalogPadsNothing(t *testing.T) {
	pop := NewStaticPopularity(map[string]float64{"X": 3, "Y": 2})

	for _, catalog := range []core.CatalogSource{filter.StaticCatalog(nil), filter.NewStaticCatalog()} {
		n := &FallbackNode{Popularity: pop, Catalog: catalog}
		out, err := n.Process(context.Background(), &core.RecommendContext{TopK: 3}, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Zero(t, n.Filled)
	}
}

func TestFallbackNode_SizeReachesCatalogSize(t *testing.T) {
	pop := NewStaticPopularity(map[string]float64{"B": 3})
	catalog := filter.NewStaticCatalog("A", "B", "C", "D")

	tests := []struct {
		name string
		topK int
		want []string
	}{
		{name: "top_k equals catalog", topK: 4, want: []string{"A", "B", "C", "D"}},
		{name: "top_k beyond catalog", topK: 10, want: []string{"A", "B", "C", "D"}},
		{name: "top_k below catalog", topK: 3, want: []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &FallbackNode{Popularity: pop, Catalog: catalog}
			out, err := n.Process(context.Background(), &core.RecommendContext{TopK: tt.topK}, scored("A", 1.0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, core.ItemIDs(out))
			for _, it := range out[1:] {
				assert.Equal(t, DefaultPlaceholderScore, it.Score)
			}
		})
	}
}

func TestFallbackNode_LogsEmptyCandidatePool(t *testing.T) {
	var buf bytes.Buffer
	n := &FallbackNode{
		Popularity: NewStaticPopularity(map[string]float64{"X": 1}),
		Logger:     zerolog.New(&buf).Level(zerolog.DebugLevel),
	}
	rctx := &core.RecommendContext{TopK: 2}
	rctx.PutLabel(core.LabelCandidates, utils.Label{Value: core.CandidatesEmpty, Source: "fusion"})

	out, err := n.Process(context.Background(), rctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, core.ItemIDs(out))
	assert.Contains(t, buf.String(), "candidate pool empty")
}

func TestFallbackNode_NoOp(t *testing.T) {
	pop := NewStaticPopularity(map[string]float64{"X": 1})

	tests := []struct {
		name string
		node *FallbackNode
		topK int
		in   []*core.Item
		want []string
	}{
		{name: "already full", node: &FallbackNode{Popularity: pop}, topK: 1, in: scored("A", 1.0), want: []string{"A"}},
		{name: "no popularity", node: &FallbackNode{}, topK: 3, in: scored("A", 1.0), want: []string{"A"}},
		{name: "popularity exhausted", node: &FallbackNode{Popularity: pop}, topK: 5, in: nil, want: []string{"X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.node.Process(context.Background(), &core.RecommendContext{TopK: tt.topK}, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, core.ItemIDs(out))
		})
	}
}

type brokenPopularity struct{}

func (brokenPopularity) Popular(context.Context, int) (core.ScoreSeries, error) {
	return nil, errors.New("redis timeout")
}

func TestFallbackNode_PopularityErrorDegrades(t *testing.T) {
	n := &FallbackNode{Popularity: brokenPopularity{}}
	out, err := n.Process(context.Background(), &core.RecommendContext{TopK: 3}, scored("A", 1.0))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, core.ItemIDs(out))
}

func TestStorePopularity(t *testing.T) {
	ctx := context.Background()
	p := NewStorePopularity(store.NewMemoryStore(), "shop")

	empty, err := p.Popular(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, p.SetCount(ctx, "a", 3))
	require.NoError(t, p.SetCount(ctx, "b", 7))
	require.NoError(t, p.SetCount(ctx, "c", 5))

	got, err := p.Popular(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, got.IDs())

	got, err = p.Popular(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, got.IDs())
}

func TestStaticPopularity(t *testing.T) {
	p := NewStaticPopularity(map[string]float64{"b": 2, "a": 2, "c": 1})
	got, err := p.Popular(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got.IDs())
}
