package formulas

// MaxDrawdown calculates the maximum peak-to-trough decline from a
// value series.
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// Returns the maximum drawdown as a positive fraction (0.25 = 25%
// loss from peak) or nil if the series is too short to decide.
func MaxDrawdown(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// WindowReturn calculates the simple return over the trailing window
// of the given length. Returns nil if the series is shorter than
// window+1 points.
func WindowReturn(prices []float64, window int) *float64 {
	if window < 1 || len(prices) < window+1 {
		return nil
	}

	start := prices[len(prices)-window-1]
	end := prices[len(prices)-1]
	if start == 0 {
		return nil
	}

	r := (end - start) / start
	return &r
}
