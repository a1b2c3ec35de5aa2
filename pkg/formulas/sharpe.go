package formulas

import "math"

// SharpeRatio calculates the annualized Sharpe ratio.
//
// Sharpe Ratio Formula:
//
//	Sharpe = (Mean Return - Risk-free Rate) / Standard Deviation of Returns
//	Annualized: Sharpe × sqrt(periods per year)
//
// Args:
//
//	returns: Array of periodic returns (daily, monthly, etc.)
//	riskFreeRate: Risk-free rate (annual, as decimal, e.g., 0.02 for 2%)
//	periodsPerYear: Number of periods per year (252 for daily, 12 for monthly)
//
// Returns nil if there is not enough data or returns have zero variance.
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))

	return &annualized
}

// CalmarRatio calculates annualized return divided by maximum drawdown.
// Returns nil when the drawdown is zero (the ratio is undefined) or
// the series is too short.
func CalmarRatio(values []float64, periodsPerYear int) *float64 {
	if len(values) < 2 || values[0] == 0 {
		return nil
	}

	maxDD := MaxDrawdown(values)
	if maxDD == nil || *maxDD == 0 {
		return nil
	}

	totalReturn := (values[len(values)-1] - values[0]) / values[0]
	years := float64(len(values)-1) / float64(periodsPerYear)
	if years <= 0 {
		return nil
	}

	// Geometric annualization of the total return
	annualized := math.Pow(1+totalReturn, 1/years) - 1
	calmar := annualized / *maxDD

	return &calmar
}
