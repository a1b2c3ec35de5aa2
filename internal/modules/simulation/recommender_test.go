package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/scoring"
)

func TestRecommend_UnknownSimulation(t *testing.T) {
	s := newTestService(t)

	_, err := s.Recommend(context.Background(), "does-not-exist", 5)
	assert.ErrorIs(t, err, domain.ErrUnknownSimulation)
}

func TestRecommend_NeutralSignalsYieldNoCandidates(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	// The stub market has no history and no macro feed, so every
	// sub-score degrades to neutral and every signal is HOLD
	recommendations, err := s.Recommend(context.Background(), sim.ID, 5)
	require.NoError(t, err)
	assert.Empty(t, recommendations)
}

func TestAutoTrade_NothingToDo(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	results, err := s.AutoTrade(context.Background(), sim.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	trades, err := s.History(sim.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestAutoTradeLimit_DefaultsToThree(t *testing.T) {
	assert.Equal(t, 3, autoTradeLimit(0))
	assert.Equal(t, 3, autoTradeLimit(-1))
	assert.Equal(t, 7, autoTradeLimit(7))
}

func TestConfidenceFor(t *testing.T) {
	assert.Equal(t, 0.0, confidenceFor(&scoring.Breakdown{Final: 50}))
	assert.Equal(t, 0.6, confidenceFor(&scoring.Breakdown{Final: 80}))
	assert.Equal(t, 0.6, confidenceFor(&scoring.Breakdown{Final: 20}))
	assert.Equal(t, 1.0, confidenceFor(&scoring.Breakdown{Final: 100}))
}

func TestTradeReasons(t *testing.T) {
	plain := &scoring.Breakdown{Final: 72.5}
	assert.Equal(t, "composite score 72.5", buyReason(plain))

	withFactors := &scoring.Breakdown{
		Final: 72.5,
		PositiveFactors: []scoring.Factor{
			{Signal: scoring.SignalML, Label: "model probability 0.85"},
			{Signal: scoring.SignalMomentum, Label: "momentum 30d +8.0%"},
		},
		RiskFactors: []scoring.Factor{
			{Signal: scoring.SignalTechnical, Label: "rsi overbought"},
		},
	}
	assert.Equal(t, "score 72.5: model probability 0.85; momentum 30d +8.0%", buyReason(withFactors))
	assert.Equal(t, "score 72.5: rsi overbought", sellReason(withFactors))
}
