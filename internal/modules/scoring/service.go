package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/indicators"
	"github.com/aristath/vantage/internal/modules/momentum"
	"github.com/aristath/vantage/internal/modules/regime"
)

// classifierTimeout bounds one probability call so a slow sidecar
// cannot stall an evaluation cycle
const classifierTimeout = 5 * time.Second

// Service orchestrates one evaluation cycle per ticker: snapshot,
// indicators, momentum, classifier probability, regime, then the
// composite engine. Results go through the TTL cache when present.
type Service struct {
	engine      *Engine
	indicators  *indicators.Engine
	momentum    *momentum.Calculator
	market      domain.MarketDataSource
	probability domain.ProbabilityProvider // may be nil (degrades to neutral)
	detector    *regime.Detector
	cache       *Cache // may be nil
	log         zerolog.Logger
}

// NewService creates a scoring service
func NewService(
	engine *Engine,
	indicatorEngine *indicators.Engine,
	momentumCalc *momentum.Calculator,
	market domain.MarketDataSource,
	probability domain.ProbabilityProvider,
	detector *regime.Detector,
	cache *Cache,
	log zerolog.Logger,
) *Service {
	return &Service{
		engine:      engine,
		indicators:  indicatorEngine,
		momentum:    momentumCalc,
		market:      market,
		probability: probability,
		detector:    detector,
		cache:       cache,
		log:         log.With().Str("service", "scoring").Logger(),
	}
}

// CurrentRegime recomputes the regime from current macro inputs.
// Missing macro data degrades to NEUTRAL rather than failing: a
// scoring cycle must keep working when the macro feed is behind.
func (s *Service) CurrentRegime() regime.RegimeState {
	vol, err := s.market.VolatilityIndex()
	if err != nil {
		s.log.Warn().Err(err).Msg("Volatility index unavailable, assuming NEUTRAL regime")
		return regime.RegimeState{State: regime.StateNeutral, Score: domain.NeutralScore, Volatility: regime.VolElevated, Trend: regime.TrendFlat}
	}

	trend, err := s.market.BenchmarkTrend()
	if err != nil {
		s.log.Warn().Err(err).Msg("Benchmark trend unavailable, assuming flat trend")
		trend = 0
	}

	return s.detector.Detect(vol, trend)
}

// ScoreTicker produces the breakdown for one ticker, serving from
// cache when a fresh entry exists. The adjustment parameter is the
// external context adjustment request (clamped by the engine).
func (s *Service) ScoreTicker(ctx context.Context, ticker string, adjustment float64) (*Breakdown, error) {
	now := time.Now().UTC()

	if s.cache != nil && adjustment == 0 {
		if cached := s.cache.Get(ticker, s.engine.constitution.Version, now); cached != nil {
			return cached, nil
		}
	}

	snapshot, err := s.market.Snapshot(ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to score %s: %w", ticker, err)
	}

	set := s.indicators.Compute(snapshot.History)
	mom := s.momentum.Calculate(snapshot.History.Closes())
	mlProb := s.classifierProbability(ctx, *snapshot, set, mom)
	regimeState := s.CurrentRegime()

	breakdown := s.engine.Score(Input{
		Snapshot:      *snapshot,
		Indicators:    set,
		Momentum:      mom,
		MLProbability: mlProb,
		Regime:        regimeState,
		Adjustment:    adjustment,
	})

	if s.cache != nil && adjustment == 0 {
		s.cache.Put(breakdown, now)
	}

	return &breakdown, nil
}

// classifierProbability queries the external model; any failure
// yields nil so the engine substitutes the neutral sub-score
func (s *Service) classifierProbability(ctx context.Context, snapshot domain.AssetSnapshot, set indicators.IndicatorSet, mom momentum.Momentum) *float64 {
	if s.probability == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	features := domain.Features{
		Ticker: snapshot.Ticker,
		RSI:    set.RSI,
		MACD:   set.MACD,
	}
	if r, ok := mom.ByWindow[10]; ok {
		v := r
		features.Momentum10 = &v
	}
	if r, ok := mom.ByWindow[30]; ok {
		v := r
		features.Momentum30 = &v
	}

	p, err := s.probability.Probability(ctx, features)
	if err != nil {
		if errors.Is(err, domain.ErrModelUnavailable) {
			s.log.Warn().Str("ticker", snapshot.Ticker).Msg("Probability model unavailable, degrading to neutral")
		} else {
			s.log.Error().Err(err).Str("ticker", snapshot.Ticker).Msg("Probability call failed, degrading to neutral")
		}
		return nil
	}

	return &p
}
