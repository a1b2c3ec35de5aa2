package marketdata

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/universe"
	"github.com/aristath/vantage/pkg/formulas"
)

// snapshotSessions is how much trailing history a snapshot carries;
// enough for every indicator and the 60-session momentum window.
const snapshotSessions = 252

// Trend moving-average windows for the benchmark signal
const (
	trendFastWindow = 20
	trendSlowWindow = 60
)

// Service implements domain.MarketDataSource on top of the price
// repository and the asset catalogue.
type Service struct {
	prices *PriceRepository
	assets *universe.AssetRepository
	log    zerolog.Logger
}

// Compile-time check that Service implements the collaborator contract
var _ domain.MarketDataSource = (*Service)(nil)

// NewService creates a market data service
func NewService(prices *PriceRepository, assets *universe.AssetRepository, log zerolog.Logger) *Service {
	return &Service{
		prices: prices,
		assets: assets,
		log:    log.With().Str("service", "marketdata").Logger(),
	}
}

// Snapshot returns the current view of one asset with trailing history
func (s *Service) Snapshot(ticker string) (*domain.AssetSnapshot, error) {
	asset, err := s.assets.Get(ticker)
	if err != nil {
		return nil, err
	}

	history, err := s.prices.TrailingHistory(asset.Ticker, snapshotSessions)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no price history for %s: %w", ticker, domain.ErrDataUnavailable)
	}

	last := history[len(history)-1]
	return &domain.AssetSnapshot{
		Ticker:    asset.Ticker,
		Class:     asset.Class,
		Price:     last.Close,
		Volume:    last.Volume,
		Timestamp: last.Date,
		History:   history,
	}, nil
}

// History returns daily candles for a ticker in [start, end]
func (s *Service) History(ticker string, start, end time.Time) (domain.PriceHistory, error) {
	return s.prices.History(ticker, start, end)
}

// BenchmarkCloses returns trailing benchmark index values
func (s *Service) BenchmarkCloses(sessions int) ([]float64, error) {
	values, err := s.prices.TrailingMacro(SeriesBenchmark, sessions)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("benchmark series empty: %w", domain.ErrDataUnavailable)
	}
	return values, nil
}

// VolatilityIndex returns the latest volatility index level
func (s *Service) VolatilityIndex() (float64, error) {
	values, err := s.prices.TrailingMacro(SeriesVolatility, 1)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("volatility series empty: %w", domain.ErrDataUnavailable)
	}
	return values[len(values)-1], nil
}

// BenchmarkTrend returns the benchmark trend signal as the fractional
// gap between the 20-session and 60-session moving averages. Positive
// means the benchmark is rising.
func (s *Service) BenchmarkTrend() (float64, error) {
	closes, err := s.BenchmarkCloses(trendSlowWindow)
	if err != nil {
		return 0, err
	}
	if len(closes) < trendSlowWindow {
		return 0, fmt.Errorf("benchmark history too short for trend: %w", domain.ErrDataUnavailable)
	}

	fast := formulas.Mean(closes[len(closes)-trendFastWindow:])
	slow := formulas.Mean(closes)
	if slow == 0 {
		return 0, fmt.Errorf("benchmark trend undecidable: %w", domain.ErrDataUnavailable)
	}

	return (fast - slow) / slow, nil
}
