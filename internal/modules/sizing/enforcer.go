// Package sizing converts scores and risk levels into allowed
// position sizes under portfolio-level exposure limits.
package sizing

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/regime"
	"github.com/aristath/vantage/internal/modules/risk"
)

// Exposure is the current portfolio exposure view used for limit
// checks. Fractions are of total portfolio value (cash included).
type Exposure struct {
	TotalValue float64
	Cash       float64
	// ByTicker maps ticker to current market value
	ByTicker map[string]float64
	// ByClass maps asset class to current market value
	ByClass map[domain.AssetClass]float64
}

// Decision is the structured sizing verdict. Blocked trades are
// never resized silently; the caller gets the reason.
type Decision struct {
	// MaxPercent is the largest allowed position fraction for this
	// asset under current limits (before any trade)
	MaxPercent float64 `json:"max_percent"`
	Blocked    bool    `json:"blocked"`
	Reason     string  `json:"reason,omitempty"`
}

// Enforcer applies the constitution's exposure limits
type Enforcer struct {
	limits config.PositionLimits
	log    zerolog.Logger
}

// NewEnforcer creates a new limit enforcer
func NewEnforcer(limits config.PositionLimits, log zerolog.Logger) *Enforcer {
	return &Enforcer{
		limits: limits,
		log:    log.With().Str("service", "sizing").Logger(),
	}
}

// effectiveLimits returns the limits in force for the given regime.
// RISK_OFF halves every numeric limit and doubles the cash floor,
// uniformly, with no per-asset override.
func (e *Enforcer) effectiveLimits(regimeState regime.RegimeState) config.PositionLimits {
	l := e.limits
	if regimeState.Defensive() {
		l.SingleEquity /= 2
		l.SingleCrypto /= 2
		l.AggregateEquity /= 2
		l.AggregateCrypto /= 2
		l.CashReserve *= 2
	}
	return l
}

// singleCap returns the per-position cap for an asset class and risk
// level. High-risk assets get half the class cap.
func singleCap(l config.PositionLimits, class domain.AssetClass, riskLevel risk.Level) float64 {
	cap := l.SingleEquity
	if class == domain.AssetClassCrypto {
		cap = l.SingleCrypto
	}
	if riskLevel == risk.LevelHigh {
		cap /= 2
	}
	return cap
}

func aggregateCap(l config.PositionLimits, class domain.AssetClass) float64 {
	if class == domain.AssetClassCrypto {
		return l.AggregateCrypto
	}
	return l.AggregateEquity
}

// AllowedSize reports how large a position in this asset may be under
// current limits, without reference to a specific trade
func (e *Enforcer) AllowedSize(class domain.AssetClass, riskLevel risk.Level, regimeState regime.RegimeState) Decision {
	l := e.effectiveLimits(regimeState)
	return Decision{MaxPercent: singleCap(l, class, riskLevel)}
}

// MaxBuyValue returns the largest additional buy value in this asset
// that passes every limit check, floored at zero. Uses the same
// pre-trade total value convention as CheckBuy.
func (e *Enforcer) MaxBuyValue(
	ticker string,
	class domain.AssetClass,
	exposure Exposure,
	riskLevel risk.Level,
	regimeState regime.RegimeState,
) float64 {
	if exposure.TotalValue <= 0 {
		return 0
	}

	l := e.effectiveLimits(regimeState)
	headroom := []float64{
		singleCap(l, class, riskLevel)*exposure.TotalValue - exposure.ByTicker[ticker],
		aggregateCap(l, class)*exposure.TotalValue - exposure.ByClass[class],
		exposure.Cash - l.CashReserve*exposure.TotalValue,
	}

	max := headroom[0]
	for _, h := range headroom[1:] {
		if h < max {
			max = h
		}
	}
	if max < 0 {
		return 0
	}
	return max
}

// CheckBuy verdicts a proposed buy of the given value. Any breached
// limit blocks the trade outright with a structured reason.
func (e *Enforcer) CheckBuy(
	ticker string,
	class domain.AssetClass,
	tradeValue float64,
	exposure Exposure,
	riskLevel risk.Level,
	regimeState regime.RegimeState,
) Decision {
	l := e.effectiveLimits(regimeState)
	decision := Decision{MaxPercent: singleCap(l, class, riskLevel)}

	if exposure.TotalValue <= 0 {
		decision.Blocked = true
		decision.Reason = "portfolio has no value"
		return decision
	}

	block := func(format string, args ...any) Decision {
		decision.Blocked = true
		decision.Reason = fmt.Sprintf(format, args...)
		e.log.Info().
			Str("ticker", ticker).
			Str("asset_class", string(class)).
			Float64("trade_value", tradeValue).
			Str("reason", decision.Reason).
			Bool("defensive", regimeState.Defensive()).
			Msg("Trade blocked by position limits")
		return decision
	}

	// Per-position cap
	positionFrac := (exposure.ByTicker[ticker] + tradeValue) / exposure.TotalValue
	if cap := decision.MaxPercent; positionFrac > cap {
		return block("position in %s would be %.1f%% of portfolio, limit %.1f%%", ticker, positionFrac*100, cap*100)
	}

	// Aggregate class cap
	classFrac := (exposure.ByClass[class] + tradeValue) / exposure.TotalValue
	if cap := aggregateCap(l, class); classFrac > cap {
		return block("aggregate %s exposure would be %.1f%%, limit %.1f%%", class, classFrac*100, cap*100)
	}

	// Cash reserve floor
	cashFrac := (exposure.Cash - tradeValue) / exposure.TotalValue
	if cashFrac < l.CashReserve {
		return block("cash reserve would fall to %.1f%%, floor %.1f%%", cashFrac*100, l.CashReserve*100)
	}

	return decision
}
