// Package indicators computes technical signals from OHLCV history.
package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/aristath/vantage/internal/domain"
)

// Standard indicator periods
const (
	RSIPeriod        = 14
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignalPeriod = 9
	BollingerPeriod  = 20
	BollingerStdDev  = 2.0
	ADXPeriod        = 14
)

// IndicatorSet holds the computed technical signals for one asset.
// Every field is nil until enough history exists to compute it.
type IndicatorSet struct {
	RSI        *float64 `json:"rsi,omitempty"`
	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
	BBUpper    *float64 `json:"bb_upper,omitempty"`
	BBLower    *float64 `json:"bb_lower,omitempty"`
	// BBPosition is where the last close sits between the bands:
	// 0.0 at the lower band, 1.0 at the upper band
	BBPosition *float64 `json:"bb_position,omitempty"`
	ADX        *float64 `json:"adx,omitempty"`
}

// Engine computes indicator sets from candle history
type Engine struct{}

// NewEngine creates a new indicator engine
func NewEngine() *Engine {
	return &Engine{}
}

// Compute calculates all indicators from the given history. Missing
// or short history yields nil fields, never an error: downstream
// scoring degrades per-component.
func (e *Engine) Compute(history domain.PriceHistory) IndicatorSet {
	var set IndicatorSet
	if len(history) == 0 {
		return set
	}

	closes := history.Closes()
	highs := make([]float64, len(history))
	lows := make([]float64, len(history))
	for i, c := range history {
		highs[i] = c.High
		lows[i] = c.Low
	}

	set.RSI = computeRSI(closes)
	set.MACD, set.MACDSignal = computeMACD(closes)
	set.BBUpper, set.BBLower, set.BBPosition = computeBollinger(closes)
	set.ADX = computeADX(highs, lows, closes)

	return set
}

func computeRSI(closes []float64) *float64 {
	if len(closes) < RSIPeriod+1 {
		return nil
	}
	return lastValid(talib.Rsi(closes, RSIPeriod))
}

func computeMACD(closes []float64) (*float64, *float64) {
	// talib needs slow period + signal period of history for a stable value
	if len(closes) < MACDSlow+MACDSignalPeriod {
		return nil, nil
	}

	macd, signal, _ := talib.Macd(closes, MACDFast, MACDSlow, MACDSignalPeriod)
	return lastValid(macd), lastValid(signal)
}

func computeBollinger(closes []float64) (*float64, *float64, *float64) {
	if len(closes) < BollingerPeriod {
		return nil, nil, nil
	}

	// MAType 0 = SMA
	upper, _, lower := talib.BBands(closes, BollingerPeriod, BollingerStdDev, BollingerStdDev, 0)

	u := lastValid(upper)
	l := lastValid(lower)
	if u == nil || l == nil {
		return nil, nil, nil
	}

	var position *float64
	if width := *u - *l; width > 0 {
		p := (closes[len(closes)-1] - *l) / width
		// Price can pierce the bands; keep position in [0, 1]
		p = math.Max(0, math.Min(1, p))
		position = &p
	}

	return u, l, position
}

func computeADX(highs, lows, closes []float64) *float64 {
	// ADX needs roughly two periods of history to stabilize
	if len(closes) < 2*ADXPeriod {
		return nil
	}
	return lastValid(talib.Adx(highs, lows, closes, ADXPeriod))
}

// lastValid returns a pointer to the final value of a talib output
// series, or nil when the series is empty or ends in NaN
func lastValid(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
