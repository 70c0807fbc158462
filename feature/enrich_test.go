package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

type brokenMeta struct{}

func (brokenMeta) ItemMeta(context.Context, string) (*core.ItemMeta, bool, error) {
	return nil, false, errors.New("store down")
}

func TestEnrichNode(t *testing.T) {
	n := &EnrichNode{
		Metadata: core.StaticMetadata{
			"a": {ItemID: "a", Brand: "Acme", Category: "Bags", Price: 59.5},
			"b": {ItemID: "b", Category: "Shoes"},
		},
		Profiles: core.StaticProfiles{
			"u1": {UserID: "u1", StylePref: "casual", Age: 31},
		},
	}
	rctx := &core.RecommendContext{UserID: "u1"}
	in := []*core.Item{core.NewItem("a"), core.NewItem("b"), core.NewItem("c")}

	out, err := n.Process(context.Background(), rctx, in)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "Acme", out[0].Meta[MetaBrand])
	assert.Equal(t, "Bags", out[0].Meta[MetaCategory])
	assert.Equal(t, 59.5, out[0].Features[MetaPrice])
	assert.Equal(t, "Shoes", out[1].Meta[MetaCategory])
	assert.NotContains(t, out[1].Meta, MetaBrand)
	assert.Empty(t, out[2].Meta)

	profile, ok := rctx.Params[ParamProfile].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "casual", profile["style_pref"])
	assert.Equal(t, 31, profile["age"])
}

func TestEnrichNode_Degrades(t *testing.T) {
	n := &EnrichNode{Metadata: brokenMeta{}, Profiles: core.StaticProfiles{}}
	rctx := &core.RecommendContext{UserID: "ghost"}

	out, err := n.Process(context.Background(), rctx, []*core.Item{core.NewItem("a")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, core.ItemIDs(out))
	assert.Empty(t, out[0].Meta)
	assert.Nil(t, rctx.Params)
}
