// Package regime classifies overall market state from a volatility
// index and a broad-index trend signal.
package regime

import (
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/pkg/formulas"
)

// State represents the market regime classification
type State string

const (
	// StateRiskOn - calm volatility, constructive trend
	StateRiskOn State = "RISK_ON"
	// StateNeutral - elevated volatility or mixed signals
	StateNeutral State = "NEUTRAL"
	// StateRiskOff - defensive: high volatility with a falling benchmark
	StateRiskOff State = "RISK_OFF"
)

// VolatilitySubState describes the volatility index level
type VolatilitySubState string

const (
	VolCalm     VolatilitySubState = "calm"
	VolElevated VolatilitySubState = "elevated"
	VolExtreme  VolatilitySubState = "extreme"
)

// TrendSubState describes the benchmark trend direction
type TrendSubState string

const (
	TrendUp   TrendSubState = "up"
	TrendFlat TrendSubState = "flat"
	TrendDown TrendSubState = "down"
)

// flatBand is the trend magnitude below which the benchmark counts as
// directionless (fractional slope of the moving average pair)
const flatBand = 0.005

// RegimeState is the full detection result. It is a pure function of
// current inputs: recomputed every cycle, never persisted.
type RegimeState struct {
	State      State              `json:"state"`
	Score      float64            `json:"regime_score"` // 0-100, 0 = most defensive
	Volatility VolatilitySubState `json:"volatility"`
	Trend      TrendSubState      `json:"trend"`
}

// Defensive reports whether buys should be vetoed
func (s RegimeState) Defensive() bool {
	return s.State == StateRiskOff
}

// Detector classifies market regime against configured thresholds
type Detector struct {
	thresholds config.RegimeThresholds
	log        zerolog.Logger
}

// NewDetector creates a new regime detector
func NewDetector(thresholds config.RegimeThresholds, log zerolog.Logger) *Detector {
	return &Detector{
		thresholds: thresholds,
		log:        log.With().Str("component", "regime_detector").Logger(),
	}
}

// Detect classifies the regime from the volatility index level and
// the benchmark trend signal (positive = rising, negative = falling).
//
// Rules:
//   - volatility above the high threshold forces at least NEUTRAL
//   - high volatility AND a downward trend forces RISK_OFF
//
// The continuous score blends 60% volatility / 40% trend so consumers
// can interpolate instead of branching on the enum.
func (d *Detector) Detect(volatilityIndex, benchmarkTrend float64) RegimeState {
	state := RegimeState{
		Volatility: volatilitySubState(volatilityIndex, d.thresholds),
		Trend:      trendSubState(benchmarkTrend),
	}

	volHigh := volatilityIndex >= d.thresholds.VolatilityHigh
	trendDown := state.Trend == TrendDown

	switch {
	case volHigh && trendDown:
		state.State = StateRiskOff
	case volHigh || trendDown:
		state.State = StateNeutral
	default:
		state.State = StateRiskOn
	}

	// Volatility component: 100 at zero vol, 0 at the extreme threshold
	volScore := 100 * (1 - volatilityIndex/d.thresholds.VolatilityExtreme)
	volScore = formulas.Clamp(volScore, 0, 100)

	// Trend component: map slope to 0-100 around the flat band.
	// ±5% slope saturates the scale.
	trendScore := formulas.Clamp(50+benchmarkTrend*1000, 0, 100)

	state.Score = formulas.Round2(volScore*0.6 + trendScore*0.4)

	d.log.Debug().
		Float64("volatility_index", volatilityIndex).
		Float64("benchmark_trend", benchmarkTrend).
		Str("state", string(state.State)).
		Float64("score", state.Score).
		Msg("Regime detected")

	return state
}

func volatilitySubState(vol float64, t config.RegimeThresholds) VolatilitySubState {
	switch {
	case vol >= t.VolatilityExtreme:
		return VolExtreme
	case vol >= t.VolatilityHigh:
		return VolElevated
	default:
		return VolCalm
	}
}

func trendSubState(trend float64) TrendSubState {
	switch {
	case trend > flatBand:
		return TrendUp
	case trend < -flatBand:
		return TrendDown
	default:
		return TrendFlat
	}
}
