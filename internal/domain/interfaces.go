package domain

import (
	"context"
	"time"
)

// MarketDataSource provides price series and macro inputs. External
// fetch/retry policy lives behind this interface; the core treats
// calls as synchronous.
type MarketDataSource interface {
	// Snapshot returns the current view of one asset including its
	// OHLCV history. Returns ErrDataUnavailable when no prices exist.
	Snapshot(ticker string) (*AssetSnapshot, error)

	// History returns daily candles for a ticker in [start, end]
	History(ticker string, start, end time.Time) (PriceHistory, error)

	// BenchmarkCloses returns trailing benchmark index closes, oldest
	// first, up to the given number of sessions
	BenchmarkCloses(sessions int) ([]float64, error)

	// VolatilityIndex returns the current volatility index level
	VolatilityIndex() (float64, error)

	// BenchmarkTrend returns the benchmark trend signal (positive =
	// up, negative = down), derived from moving average slope
	BenchmarkTrend() (float64, error)
}

// ProbabilityProvider wraps the externally trained classifier. The
// returned probability is in [0, 1]. Failures surface as
// ErrModelUnavailable and degrade downstream to a neutral sub-score.
type ProbabilityProvider interface {
	Probability(ctx context.Context, features Features) (float64, error)
}
