package backtest

import (
	"github.com/aristath/vantage/pkg/formulas"
)

// tradingSessionsPerYear annualizes daily-curve ratios
const tradingSessionsPerYear = 252

// computeMetrics derives summary metrics from an equity curve and the
// realized trade tally. Undecidable ratios report as zero rather than
// poisoning the result with NaN.
func computeMetrics(curve []EquityPoint, wins, losses, trades int) Metrics {
	m := Metrics{Trades: trades}
	if len(curve) < 2 {
		return m
	}

	values := make([]float64, len(curve))
	for i, p := range curve {
		values[i] = p.Value
	}

	if values[0] > 0 {
		m.TotalReturn = values[len(values)-1]/values[0] - 1
	}

	if dd := formulas.MaxDrawdown(values); dd != nil {
		m.MaxDrawdown = *dd
	}

	if sharpe := formulas.SharpeRatio(formulas.Returns(values), 0, tradingSessionsPerYear); sharpe != nil {
		m.Sharpe = *sharpe
	}

	if calmar := formulas.CalmarRatio(values, tradingSessionsPerYear); calmar != nil {
		m.Calmar = *calmar
	}

	if closed := wins + losses; closed > 0 {
		m.WinRate = float64(wins) / float64(closed)
	}

	return m
}
