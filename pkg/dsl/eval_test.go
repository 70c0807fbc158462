package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
)

func TestProgram_Evaluate(t *testing.T) {
	item := core.NewItem("a")
	item.Score = 0.42
	item.SetFeature("content", 0.9)
	item.Meta["category"] = "Shoes"
	item.PutLabel("fusion_channels", utils.Label{Value: "collaborative", Source: "fusion"})
	item.PutLabel("fusion_channels", utils.Label{Value: "content", Source: "fusion"})

	rctx := &core.RecommendContext{UserID: "u1", TopK: 5, Weights: core.Weights{Alpha: 0.5}}

	tests := []struct {
		expr string
		want bool
	}{
		{expr: "", want: true},
		{expr: `item.score > 0.4`, want: true},
		{expr: `item.features.content >= 0.9`, want: true},
		{expr: `item.meta.category == "Shoes"`, want: true},
		{expr: `has(item.meta.brand)`, want: false},
		{expr: `label.fusion_channels.contains("content")`, want: true},
		{expr: `rctx.user_id == "u1" && rctx.top_k == 5`, want: true},
		{expr: `rctx.weights.alpha < 0.3`, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := p.Evaluate(item, rctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(`item.score >`)
	assert.Error(t, err)

	p, err := Compile(`item.score + 1.0`)
	require.NoError(t, err)
	_, err = p.Evaluate(core.NewItem("a"), nil)
	assert.Error(t, err)
}

func TestEval_MissingKeyErrors(t *testing.T) {
	_, err := Eval(`item.meta.brand == "Acme"`, core.NewItem("a"), &core.RecommendContext{})
	assert.Error(t, err)
}
