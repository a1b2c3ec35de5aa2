package risk

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/domain"
)

func newScorer() *Scorer {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewScorer(config.DefaultConstitution().Risk, log)
}

// history builds a synthetic candle series from closes with a small
// intraday range
func history(closes []float64) domain.PriceHistory {
	h := make(domain.PriceHistory, len(closes))
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		h[i] = domain.Candle{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return h
}

func flatCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func TestAssess_AllSubMetricsUnavailableIsNeutralMedium(t *testing.T) {
	profile := newScorer().Assess("XYZ", nil, nil)

	assert.Equal(t, 50.0, profile.Volatility.Value)
	assert.True(t, profile.Volatility.Degraded)
	assert.Equal(t, 50.0, profile.Drawdown.Value)
	assert.True(t, profile.Drawdown.Degraded)
	assert.Equal(t, 50.0, profile.Correlation.Value)
	assert.True(t, profile.Correlation.Degraded)
	assert.Equal(t, 50.0, profile.Composite)
	assert.Equal(t, LevelMedium, profile.Level)
}

func TestAssess_FlatSeriesScoresLowRisk(t *testing.T) {
	closes := flatCloses(120, 100)
	bench := flatCloses(120, 4000)

	profile := newScorer().Assess("FLAT", history(closes), bench)

	// No drawdown at all; volatility limited to the 1% candle range
	assert.False(t, profile.Drawdown.Degraded)
	assert.Equal(t, 0.0, profile.Drawdown.Value)
	assert.False(t, profile.Volatility.Degraded)
	assert.Less(t, profile.Volatility.Value, 60.0)
	// Flat returns have zero variance so correlation is undecidable
	assert.True(t, profile.Correlation.Degraded)
}

func TestAssess_DeepDrawdownSaturates(t *testing.T) {
	// 50% collapse inside the trailing window
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100
	}
	for i := 60; i < 80; i++ {
		closes[i] = 50
	}

	profile := newScorer().Assess("CRASH", history(closes), nil)

	require.False(t, profile.Drawdown.Degraded)
	assert.Equal(t, 100.0, profile.Drawdown.Value)
}

func TestAssess_CorrelatedAssetScoresHighSystemicRisk(t *testing.T) {
	// Asset follows the benchmark exactly (scaled)
	closes := make([]float64, 100)
	bench := make([]float64, 100)
	for i := range closes {
		v := 100 + 10*math.Sin(float64(i)/5)
		closes[i] = v
		bench[i] = v * 40
	}

	profile := newScorer().Assess("BETA", history(closes), bench)

	require.False(t, profile.Correlation.Degraded)
	assert.InDelta(t, 100.0, profile.Correlation.Value, 1.0)
}

func TestAssess_CompositeUsesRiskWeights(t *testing.T) {
	profile := newScorer().Assess("XYZ", nil, nil)

	// All neutral: 50*0.40 + 50*0.35 + 50*0.25 = 50
	assert.Equal(t, 50.0, profile.Composite)
}

func TestLevelBuckets(t *testing.T) {
	assert.Equal(t, LevelLow, levelFor(20))
	assert.Equal(t, LevelMedium, levelFor(35))
	assert.Equal(t, LevelMedium, levelFor(65))
	assert.Equal(t, LevelHigh, levelFor(80))
}
