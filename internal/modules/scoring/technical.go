package scoring

import (
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/indicators"
	"github.com/aristath/vantage/pkg/formulas"
)

// technicalScore blends the indicator components into the single
// technical sub-score using the constitution's technical weights
// (RSI 30%, MACD 30%, Bollinger 20%, ADX 20% in version 1).
//
// Component rules, each mapped to 0-100 where higher favors buying:
//   - RSI: score = 100 - RSI. Oversold (30) scores 70, overbought
//     (70) scores 30, neutral 50 scores 50.
//   - MACD: histogram (macd - signal) relative to price; ±2% of
//     price saturates the scale around 50.
//   - Bollinger: (1 - band position) × 100; price at the lower band
//     scores 100, at the upper band 0.
//   - ADX: trend-strength quality, ADX × 2 capped at 100.
//
// Missing components degrade to neutral individually, so one short
// history never blanks the whole technical signal.
func technicalScore(set indicators.IndicatorSet, snapshot domain.AssetSnapshot, w config.TechnicalWeights, log zerolog.Logger) domain.SubScore {
	rsi := componentOrNeutral(rsiScore(set.RSI), "rsi unavailable", log)
	macd := componentOrNeutral(macdScore(set.MACD, set.MACDSignal, snapshot.Price), "macd unavailable", log)
	boll := componentOrNeutral(bollingerScore(set.BBPosition), "bollinger unavailable", log)
	adx := componentOrNeutral(adxScore(set.ADX), "adx unavailable", log)

	value := rsi.Value*w.RSI + macd.Value*w.MACD + boll.Value*w.Bollinger + adx.Value*w.ADX

	// The sub-score counts as degraded only when every component was
	if rsi.Degraded && macd.Degraded && boll.Degraded && adx.Degraded {
		return domain.SubScore{Value: domain.NeutralScore, Degraded: true, Reason: "no technical indicators available"}
	}

	return domain.Computed(formulas.Clamp(value, 0, 100))
}

func componentOrNeutral(v *float64, reason string, log zerolog.Logger) domain.SubScore {
	if v == nil {
		return domain.Degraded(reason, log)
	}
	return domain.Computed(*v)
}

func rsiScore(rsi *float64) *float64 {
	if rsi == nil {
		return nil
	}
	v := formulas.Clamp(100-*rsi, 0, 100)
	return &v
}

func macdScore(macd, signal *float64, price float64) *float64 {
	if macd == nil || signal == nil || price <= 0 {
		return nil
	}
	histogram := (*macd - *signal) / price
	v := formulas.Clamp(50+histogram*2500, 0, 100)
	return &v
}

func bollingerScore(position *float64) *float64 {
	if position == nil {
		return nil
	}
	v := formulas.Clamp((1-*position)*100, 0, 100)
	return &v
}

func adxScore(adx *float64) *float64 {
	if adx == nil {
		return nil
	}
	v := formulas.Clamp(*adx*2, 0, 100)
	return &v
}
