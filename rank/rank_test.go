package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/recall"
)

func series(kv ...any) core.ScoreSeries {
	out := make(core.ScoreSeries, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, core.Score{ItemID: kv[i].(string), Value: kv[i+1].(float64)})
	}
	return out
}

func TestMinMaxNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   core.ScoreSeries
		want core.ScoreSeries
	}{
		{name: "empty", in: core.ScoreSeries{}, want: core.ScoreSeries{}},
		{name: "range", in: series("a", 0.9, "b", 0.3, "c", 0.6), want: series("a", 1.0, "b", 0.0, "c", 0.5)},
		{name: "zero range", in: series("a", 0.7, "b", 0.7), want: series("a", 0.0, "b", 0.0)},
		{name: "single", in: series("a", 3.0), want: series("a", 0.0)},
		{name: "negative", in: series("a", -2.0, "b", 2.0), want: series("a", 0.0, "b", 1.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinMaxNormalize(tt.in)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].ItemID, got[i].ItemID)
				assert.InDelta(t, tt.want[i].Value, got[i].Value, 1e-9)
			}
		})
	}
}

func TestNormalize_DedupsBeforeScaling(t *testing.T) {
	got := Normalize(series("a", 1.0, "b", 3.0, "a", 5.0))
	assert.Equal(t, []string{"a", "b"}, got.IDs())
	assert.Equal(t, 1.0, got[0].Value)
	assert.Equal(t, 0.0, got[1].Value)
}

func TestNormalize_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOf(rapid.Float64Range(-1e6, 1e6)).Draw(t, "values")
		s := make(core.ScoreSeries, len(values))
		for i, v := range values {
			s[i] = core.Score{ItemID: fmt.Sprintf("i%d", i%7), Value: v}
		}
		once := Normalize(s)
		twice := Normalize(once)
		if len(once) != len(twice) {
			t.Fatalf("length changed: %d -> %d", len(once), len(twice))
		}
		for i := range once {
			if once[i] != twice[i] {
				t.Fatalf("not idempotent at %d: %v vs %v", i, once[i], twice[i])
			}
			if once[i].Value < 0 || once[i].Value > 1 {
				t.Fatalf("value out of [0,1]: %v", once[i])
			}
		}
	})
}

// densitySource 返回包含 n 个非零交互的用户行；不在 map 中的用户视为不存在
type densitySource map[string]int

func (d densitySource) UserInteractions(_ context.Context, userID string) (map[string]float64, bool, error) {
	n, ok := d[userID]
	if !ok {
		return nil, false, nil
	}
	row := make(map[string]float64, n+1)
	for i := 0; i < n; i++ {
		row[fmt.Sprintf("item%d", i)] = 1
	}
	row["zero"] = 0
	return row, true, nil
}

type failingSource struct{}

func (failingSource) UserInteractions(context.Context, string) (map[string]float64, bool, error) {
	return nil, false, errors.New("store down")
}

func TestAdaptiveWeighter_ComputeAlpha(t *testing.T) {
	w := NewAdaptiveWeighter(densitySource{"none": 0, "half": 25, "full": 50, "heavy": 500})
	ctx := context.Background()

	tests := []struct {
		user string
		want float64
	}{
		{user: "ghost", want: 0.2},
		{user: "none", want: 0.2},
		{user: "half", want: 0.4},
		{user: "full", want: 0.6},
		{user: "heavy", want: 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			got, err := w.ComputeAlpha(ctx, tt.user)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAdaptiveWeighter_AlphaMonotonicAndCapped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 300).Draw(t, "a")
		b := rapid.IntRange(0, 300).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		w := NewAdaptiveWeighter(densitySource{"a": a, "b": b})
		alphaA, err := w.ComputeAlpha(context.Background(), "a")
		if err != nil {
			t.Fatal(err)
		}
		alphaB, err := w.ComputeAlpha(context.Background(), "b")
		if err != nil {
			t.Fatal(err)
		}
		if alphaA > alphaB {
			t.Fatalf("alpha not monotonic: density %d -> %g, density %d -> %g", a, alphaA, b, alphaB)
		}
		if alphaA < DefaultMinAlpha-1e-12 || alphaB > DefaultMaxAlpha+1e-12 {
			t.Fatalf("alpha out of range: %g, %g", alphaA, alphaB)
		}
		if b >= DefaultDensityCap && math.Abs(alphaB-DefaultMaxAlpha) > 1e-12 {
			t.Fatalf("alpha not capped at density %d: %g", b, alphaB)
		}
	})
}

func ptr(v float64) *float64 { return &v }

func TestAdaptiveWeighter_Weights(t *testing.T) {
	w := NewAdaptiveWeighter(densitySource{"full": 50})
	ctx := context.Background()

	tests := []struct {
		name     string
		user     string
		explicit ExplicitWeights
		want     core.Weights
		wantErr  bool
	}{
		{name: "cold start", user: "ghost", want: core.Weights{Alpha: 0.2, Beta: 0.536, Gamma: 0.264}},
		{name: "dense user", user: "full", want: core.Weights{Alpha: 0.6, Beta: 0.268, Gamma: 0.132}},
		{name: "explicit alpha", user: "full", explicit: ExplicitWeights{Alpha: ptr(0.5)}, want: core.Weights{Alpha: 0.5, Beta: 0.335, Gamma: 0.165}},
		{
			name:     "explicit all, no renormalization",
			user:     "full",
			explicit: ExplicitWeights{Alpha: ptr(1), Beta: ptr(1), Gamma: ptr(1)},
			want:     core.Weights{Alpha: 1, Beta: 1, Gamma: 1},
		},
		{
			name:     "beta without gamma ignored",
			user:     "ghost",
			explicit: ExplicitWeights{Beta: ptr(0.9)},
			want:     core.Weights{Alpha: 0.2, Beta: 0.536, Gamma: 0.264},
		},
		{name: "negative", user: "full", explicit: ExplicitWeights{Alpha: ptr(-0.1)}, wantErr: true},
		{name: "alpha above one", user: "full", explicit: ExplicitWeights{Alpha: ptr(1.5)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.Weights(ctx, tt.user, tt.explicit)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Alpha, got.Alpha, 1e-9)
			assert.InDelta(t, tt.want.Beta, got.Beta, 1e-9)
			assert.InDelta(t, tt.want.Gamma, got.Gamma, 1e-9)
		})
	}
}

func TestAdaptiveWeighter_Validate(t *testing.T) {
	w := NewAdaptiveWeighter(nil)
	require.NoError(t, w.Validate())

	w.MinAlpha = 0.7
	assert.True(t, core.IsConfigurationError(w.Validate()))

	w = NewAdaptiveWeighter(nil)
	w.DensityCap = 0
	assert.True(t, core.IsConfigurationError(w.Validate()))
}

type stubChannel struct {
	name   string
	scores core.ScoreSeries
	err    error
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Score(context.Context, *core.RecommendContext, int) (core.ScoreSeries, error) {
	return s.scores, s.err
}

func scenarioChannels() []recall.Channel {
	return []recall.Channel{
		&stubChannel{name: recall.ChannelCollaborative, scores: series("A", 0.9, "B", 0.3)},
		&stubChannel{name: recall.ChannelContent, scores: series("B", 0.8, "C", 0.5)},
		&stubChannel{name: recall.ChannelVisual},
	}
}

func TestFusionNode_ConcreteScenario(t *testing.T) {
	n := &FusionNode{
		Channels: scenarioChannels(),
		Weighter: NewAdaptiveWeighter(nil),
		Explicit: ExplicitWeights{Alpha: ptr(0.5), Beta: ptr(0.335), Gamma: ptr(0.165)},
	}
	rctx := &core.RecommendContext{UserID: "u1", TopK: 3}

	items, err := n.Process(context.Background(), rctx, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, core.ItemIDs(items))
	assert.InDelta(t, 0.5, items[0].Score, 1e-9)
	assert.InDelta(t, 0.335, items[1].Score, 1e-9)
	assert.InDelta(t, 0.0, items[2].Score, 1e-9)

	assert.Equal(t, 0.0, items[1].Features[recall.ChannelCollaborative])
	assert.Equal(t, 1.0, items[1].Features[recall.ChannelContent])
	assert.Equal(t, "collaborative|content", items[1].Labels["fusion_channels"].Value)
	assert.InDelta(t, 0.5, rctx.Weights.Alpha, 1e-9)

	require.Len(t, n.Results, 3)
	assert.Equal(t, recall.OutcomeEmpty, n.Results[2].Outcome)
}

func TestFusionNode_ChannelFailureIsolation(t *testing.T) {
	channels := scenarioChannels()
	channels[2] = &stubChannel{name: recall.ChannelVisual, err: errors.New("image service down")}
	n := &FusionNode{
		Channels: channels,
		Explicit: ExplicitWeights{Alpha: ptr(0.5), Beta: ptr(0.335), Gamma: ptr(0.165)},
	}

	items, err := n.Process(context.Background(), &core.RecommendContext{UserID: "u1", TopK: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, core.ItemIDs(items))
	assert.Equal(t, recall.OutcomeError, n.Results[2].Outcome)
}

func TestFusionNode_AllChannelsEmpty(t *testing.T) {
	n := &FusionNode{Channels: []recall.Channel{
		&stubChannel{name: recall.ChannelCollaborative, err: core.ChannelUnavailable("collaborative", "cold")},
		&stubChannel{name: recall.ChannelContent},
	}}
	rctx := &core.RecommendContext{TopK: 3}
	items, err := n.Process(context.Background(), rctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)

	lbl, ok := rctx.GetLabel(core.LabelCandidates)
	require.True(t, ok)
	assert.Equal(t, core.CandidatesEmpty, lbl.Value)
	lbl, ok = rctx.GetLabel(core.LabelWeights)
	require.True(t, ok)
	assert.Equal(t, "adaptive", lbl.Value)
}

func TestFusionNode_CandidateCap(t *testing.T) {
	var scores core.ScoreSeries
	for i := 0; i < 20; i++ {
		scores = append(scores, core.Score{ItemID: fmt.Sprintf("i%02d", i), Value: float64(i)})
	}
	n := &FusionNode{
		Channels:            []recall.Channel{&stubChannel{name: recall.ChannelCollaborative, scores: scores}},
		CandidateMultiplier: 2,
	}
	items, err := n.Process(context.Background(), &core.RecommendContext{TopK: 3}, nil)
	require.NoError(t, err)
	require.Len(t, items, 6)
	assert.Equal(t, "i19", items[0].ID)
}

func TestFusionNode_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		node *FusionNode
		topK int
	}{
		{name: "zero top_k", node: &FusionNode{}, topK: 0},
		{name: "negative multiplier", node: &FusionNode{CandidateMultiplier: -1}, topK: 3},
		{name: "unknown channel", node: &FusionNode{Channels: []recall.Channel{&stubChannel{name: "audio"}}}, topK: 3},
		{name: "negative weight", node: &FusionNode{Explicit: ExplicitWeights{Beta: ptr(-1), Gamma: ptr(0)}}, topK: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.node.Process(context.Background(), &core.RecommendContext{TopK: tt.topK}, nil)
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

func TestFusionNode_DensityFailureFallsBackToMinAlpha(t *testing.T) {
	n := &FusionNode{
		Channels: scenarioChannels(),
		Weighter: NewAdaptiveWeighter(failingSource{}),
	}
	rctx := &core.RecommendContext{UserID: "u1", TopK: 3}
	_, err := n.Process(context.Background(), rctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, DefaultMinAlpha, rctx.Weights.Alpha, 1e-9)
	assert.Equal(t, "min_alpha", rctx.Labels[core.LabelWeights].Value)
	_, empty := rctx.GetLabel(core.LabelCandidates)
	assert.False(t, empty)
}
