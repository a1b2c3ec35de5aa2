// Package risk computes per-asset risk profiles from volatility,
// drawdown and benchmark correlation.
package risk

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/pkg/formulas"
)

const (
	atrPeriod = 14
	// drawdownWindow is a trailing 3-month window in trading sessions
	drawdownWindow = 63
	// correlationWindow is the rolling correlation lookback
	correlationWindow = 60
)

// Level buckets the composite risk score
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Profile is the risk assessment result for one asset. Sub-scores
// are 0-100 where higher means riskier; undecidable sub-metrics carry
// the neutral default and are tagged degraded.
type Profile struct {
	Ticker      string          `json:"ticker"`
	Volatility  domain.SubScore `json:"volatility_score"`
	Drawdown    domain.SubScore `json:"drawdown_score"`
	Correlation domain.SubScore `json:"correlation_score"`
	Composite   float64         `json:"composite"`
	Level       Level           `json:"level"`
}

// Scorer computes risk profiles under the constitution's risk weights
type Scorer struct {
	weights config.RiskWeights
	log     zerolog.Logger
}

// NewScorer creates a new risk scorer
func NewScorer(weights config.RiskWeights, log zerolog.Logger) *Scorer {
	return &Scorer{
		weights: weights,
		log:     log.With().Str("service", "risk").Logger(),
	}
}

// Assess computes the risk profile for a ticker. Each sub-score is
// clamped to [0,100] independently before weighting; missing history
// degrades the affected sub-metric only.
func (s *Scorer) Assess(ticker string, history domain.PriceHistory, benchmarkCloses []float64) Profile {
	log := s.log.With().Str("ticker", ticker).Logger()

	p := Profile{
		Ticker:      ticker,
		Volatility:  s.volatilityScore(history, log),
		Drawdown:    s.drawdownScore(history.Closes(), log),
		Correlation: s.correlationScore(history.Closes(), benchmarkCloses, log),
	}

	p.Composite = formulas.Round2(
		p.Volatility.Value*s.weights.Volatility +
			p.Drawdown.Value*s.weights.Drawdown +
			p.Correlation.Value*s.weights.Correlation)
	p.Level = levelFor(p.Composite)

	return p
}

// volatilityScore derives from ATR normalized against the last close.
// A daily true range of 4% of price or more saturates the scale.
func (s *Scorer) volatilityScore(history domain.PriceHistory, log zerolog.Logger) domain.SubScore {
	if len(history) < atrPeriod+1 {
		return domain.Degraded("insufficient history for ATR", log)
	}

	highs := make([]float64, len(history))
	lows := make([]float64, len(history))
	closes := make([]float64, len(history))
	for i, c := range history {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	atr := talib.Atr(highs, lows, closes, atrPeriod)
	last := atr[len(atr)-1]
	lastClose := closes[len(closes)-1]
	if math.IsNaN(last) || lastClose <= 0 {
		return domain.Degraded("ATR undecidable", log)
	}

	relative := last / lastClose
	return domain.Computed(formulas.Clamp(relative/0.04*100, 0, 100))
}

// drawdownScore derives from the maximum peak-to-trough decline over
// the trailing 3-month window. A 40% drawdown saturates the scale.
func (s *Scorer) drawdownScore(closes []float64, log zerolog.Logger) domain.SubScore {
	if len(closes) < 2 {
		return domain.Degraded("insufficient history for drawdown", log)
	}

	window := closes
	if len(window) > drawdownWindow {
		window = window[len(window)-drawdownWindow:]
	}

	maxDD := formulas.MaxDrawdown(window)
	if maxDD == nil {
		return domain.Degraded("drawdown undecidable", log)
	}

	return domain.Computed(formulas.Clamp(*maxDD/0.40*100, 0, 100))
}

// correlationScore derives from the rolling correlation of daily
// returns to the benchmark. Higher |correlation| means more systemic
// risk: 0 correlation scores 0, perfect correlation scores 100.
func (s *Scorer) correlationScore(closes, benchmarkCloses []float64, log zerolog.Logger) domain.SubScore {
	if len(closes) < correlationWindow || len(benchmarkCloses) < correlationWindow {
		return domain.Degraded("insufficient history for correlation", log)
	}

	assetReturns := formulas.Returns(closes[len(closes)-correlationWindow:])
	benchReturns := formulas.Returns(benchmarkCloses[len(benchmarkCloses)-correlationWindow:])
	if len(assetReturns) != len(benchReturns) || len(assetReturns) < 2 {
		return domain.Degraded("correlation windows misaligned", log)
	}

	corr := formulas.Correlation(assetReturns, benchReturns)
	if math.IsNaN(corr) {
		return domain.Degraded("correlation undecidable", log)
	}

	return domain.Computed(formulas.Clamp(math.Abs(corr)*100, 0, 100))
}

func levelFor(composite float64) Level {
	switch {
	case composite < 35:
		return LevelLow
	case composite <= 65:
		return LevelMedium
	default:
		return LevelHigh
	}
}
