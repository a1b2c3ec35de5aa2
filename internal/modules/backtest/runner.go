package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/indicators"
	"github.com/aristath/vantage/internal/modules/marketdata"
	"github.com/aristath/vantage/internal/modules/momentum"
	"github.com/aristath/vantage/internal/modules/regime"
	"github.com/aristath/vantage/internal/modules/risk"
	"github.com/aristath/vantage/internal/modules/scoring"
	"github.com/aristath/vantage/internal/modules/sizing"
	"github.com/aristath/vantage/internal/modules/universe"
	"github.com/aristath/vantage/pkg/formulas"
)

// warmupCalendarDays of history before the start date feed the
// indicator and risk windows so day one is not fully degraded
const warmupCalendarDays = 400

// Benchmark trend moving-average windows, matching the live detector
// inputs
const (
	trendFastWindow = 20
	trendSlowWindow = 60
)

const dateLayout = "2006-01-02"

// Runner replays scoring and execution rules over stored history.
// Deterministic by construction: tickers and dates iterate in sorted
// order, trades execute at the daily close, and the probability proxy
// is a pure function of the same history.
type Runner struct {
	prices       *marketdata.PriceRepository
	assets       *universe.AssetRepository
	engine       *scoring.Engine
	indicators   *indicators.Engine
	momentum     *momentum.Calculator
	detector     *regime.Detector
	riskScorer   *risk.Scorer
	enforcer     *sizing.Enforcer
	constitution *config.Constitution
	log          zerolog.Logger
}

// NewRunner creates a backtest runner
func NewRunner(
	prices *marketdata.PriceRepository,
	assets *universe.AssetRepository,
	engine *scoring.Engine,
	indicatorEngine *indicators.Engine,
	momentumCalc *momentum.Calculator,
	detector *regime.Detector,
	riskScorer *risk.Scorer,
	enforcer *sizing.Enforcer,
	constitution *config.Constitution,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		prices:       prices,
		assets:       assets,
		engine:       engine,
		indicators:   indicatorEngine,
		momentum:     momentumCalc,
		detector:     detector,
		riskScorer:   riskScorer,
		enforcer:     enforcer,
		constitution: constitution,
		log:          log.With().Str("service", "backtest").Logger(),
	}
}

// tickerSeries is the preloaded candle history for one ticker
type tickerSeries struct {
	class   domain.AssetClass
	candles domain.PriceHistory
}

// holding is an in-memory backtest position
type holding struct {
	class domain.AssetClass
	qty   int64
	cost  float64
}

// Run executes the requested variants and returns one result per
// variant
func (r *Runner) Run(req Request) (map[string]Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	loadStart := req.Start.AddDate(0, 0, -warmupCalendarDays)

	series := make(map[string]tickerSeries, len(req.Tickers))
	dateSet := make(map[string]bool)
	for _, ticker := range req.Tickers {
		asset, err := r.assets.Get(ticker)
		if err != nil {
			return nil, err
		}

		candles, err := r.prices.History(ticker, loadStart, req.End)
		if err != nil {
			return nil, err
		}
		if len(candles) == 0 {
			return nil, fmt.Errorf("no history for %s in range: %w", ticker, domain.ErrDataUnavailable)
		}

		series[ticker] = tickerSeries{class: asset.Class, candles: candles}
		for _, c := range candles {
			if !c.Date.Before(req.Start) && !c.Date.After(req.End) {
				dateSet[c.Date.Format(dateLayout)] = true
			}
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if len(dates) == 0 {
		return nil, fmt.Errorf("no trading sessions in range: %w", domain.ErrDataUnavailable)
	}

	benchmark, err := r.prices.MacroHistory(marketdata.SeriesBenchmark, loadStart, req.End)
	if err != nil {
		return nil, err
	}
	volatility, err := r.prices.MacroHistory(marketdata.SeriesVolatility, loadStart, req.End)
	if err != nil {
		return nil, err
	}

	results := make(map[string]Result, len(req.Variants))
	for _, variant := range req.Variants {
		var result Result
		if variant == VariantBenchmark {
			result = r.runBenchmark(req, benchmark)
		} else {
			result = r.runPortfolio(variant, req, series, dates, benchmark, volatility)
		}
		results[variant] = result

		r.log.Info().
			Str("variant", variant).
			Int("sessions", len(result.EquityCurve)).
			Float64("total_return", result.Metrics.TotalReturn).
			Int("trades", result.Metrics.Trades).
			Msg("Backtest variant complete")
	}

	return results, nil
}

// runBenchmark holds the benchmark index passively over the range
func (r *Runner) runBenchmark(req Request, benchmark []marketdata.MacroPoint) Result {
	var curve []EquityPoint
	first := 0.0
	for _, p := range benchmark {
		if p.Date.Before(req.Start) || p.Date.After(req.End) {
			continue
		}
		if first == 0 {
			first = p.Value
		}
		if first == 0 {
			continue
		}
		curve = append(curve, EquityPoint{
			Date:  p.Date,
			Value: req.InitialCapital * p.Value / first,
		})
	}

	return Result{
		Variant:     VariantBenchmark,
		EquityCurve: curve,
		Metrics:     computeMetrics(curve, 0, 0, 0),
	}
}

// runPortfolio replays the execution rules day by day for one active
// variant
func (r *Runner) runPortfolio(
	variant string,
	req Request,
	series map[string]tickerSeries,
	dates []string,
	benchmark, volatility []marketdata.MacroPoint,
) Result {
	cash := req.InitialCapital
	holdings := make(map[string]*holding, len(req.Tickers))
	lastPrice := make(map[string]float64, len(req.Tickers))
	cursor := make(map[string]int, len(req.Tickers))

	benchCursor, volCursor := 0, 0
	var wins, losses, trades int
	curve := make([]EquityPoint, 0, len(dates))

	for _, date := range dates {
		day, _ := time.Parse(dateLayout, date)

		for benchCursor < len(benchmark) && !benchmark[benchCursor].Date.After(day) {
			benchCursor++
		}
		for volCursor < len(volatility) && !volatility[volCursor].Date.After(day) {
			volCursor++
		}

		benchCloses := make([]float64, benchCursor)
		for i := 0; i < benchCursor; i++ {
			benchCloses[i] = benchmark[i].Value
		}
		regimeState := r.regimeAt(benchCloses, volatility, volCursor)

		for _, ticker := range req.Tickers {
			ts := series[ticker]

			i := cursor[ticker]
			for i < len(ts.candles) && !ts.candles[i].Date.After(day) {
				i++
			}
			cursor[ticker] = i
			if i == 0 {
				continue
			}

			hist := ts.candles[:i]
			today := hist[len(hist)-1]
			lastPrice[ticker] = today.Close
			if today.Date.Format(dateLayout) != date {
				continue
			}

			signal := r.signalFor(variant, ticker, ts.class, hist, regimeState)

			switch signal {
			case domain.ActionSell:
				h := holdings[ticker]
				if h == nil {
					continue
				}
				cash += float64(h.qty) * today.Close
				if today.Close > h.cost {
					wins++
				} else {
					losses++
				}
				trades++
				delete(holdings, ticker)

			case domain.ActionBuy:
				exposure := r.exposure(cash, req.Tickers, holdings, lastPrice)
				riskLevel := r.riskScorer.Assess(ticker, hist, benchCloses).Level
				budget := r.enforcer.MaxBuyValue(ticker, ts.class, exposure, riskLevel, regimeState)
				qty := int64(math.Floor(budget / today.Close))
				if qty < 1 {
					continue
				}
				cost := float64(qty) * today.Close
				if cost > cash {
					continue
				}

				h := holdings[ticker]
				if h == nil {
					holdings[ticker] = &holding{class: ts.class, qty: qty, cost: today.Close}
				} else {
					total := h.qty + qty
					h.cost = (float64(h.qty)*h.cost + cost) / float64(total)
					h.qty = total
				}
				cash -= cost
				trades++
			}
		}

		// Sum in sorted ticker order: float addition is not
		// associative, and the equity curve must be byte-identical
		// across runs
		value := cash
		for _, ticker := range req.Tickers {
			if h := holdings[ticker]; h != nil {
				value += float64(h.qty) * lastPrice[ticker]
			}
		}
		curve = append(curve, EquityPoint{Date: day, Value: value})
	}

	return Result{
		Variant:     variant,
		EquityCurve: curve,
		Metrics:     computeMetrics(curve, wins, losses, trades),
	}
}

// regimeAt detects the regime as of a replay day from the macro
// prefixes; missing macro data degrades to NEUTRAL like the live path
func (r *Runner) regimeAt(benchCloses []float64, volatility []marketdata.MacroPoint, volCursor int) regime.RegimeState {
	if volCursor == 0 || len(benchCloses) < trendSlowWindow {
		return regime.RegimeState{
			State:      regime.StateNeutral,
			Score:      domain.NeutralScore,
			Volatility: regime.VolElevated,
			Trend:      regime.TrendFlat,
		}
	}

	slow := formulas.Mean(benchCloses[len(benchCloses)-trendSlowWindow:])
	fast := formulas.Mean(benchCloses[len(benchCloses)-trendFastWindow:])
	trend := 0.0
	if slow != 0 {
		trend = (fast - slow) / slow
	}

	return r.detector.Detect(volatility[volCursor-1].Value, trend)
}

// signalFor produces the trading signal for one ticker-day under the
// given variant
func (r *Runner) signalFor(variant, ticker string, class domain.AssetClass, hist domain.PriceHistory, regimeState regime.RegimeState) domain.Action {
	mom := r.momentum.Calculate(hist.Closes())
	probability := proxyProbability(mom)

	if variant == VariantMLOnly {
		if probability == nil {
			return domain.ActionHold
		}
		return r.bandedSignal(*probability*100, regimeState)
	}

	last := hist[len(hist)-1]
	breakdown := r.engine.Score(scoring.Input{
		Snapshot: domain.AssetSnapshot{
			Ticker:    ticker,
			Class:     class,
			Price:     last.Close,
			Volume:    last.Volume,
			Timestamp: last.Date,
			History:   hist,
		},
		Indicators:    r.indicators.Compute(hist),
		Momentum:      mom,
		MLProbability: probability,
		Regime:        regimeState,
	})
	return breakdown.Signal
}

// bandedSignal applies the score thresholds and the regime veto
func (r *Runner) bandedSignal(score float64, regimeState regime.RegimeState) domain.Action {
	var signal domain.Action
	switch {
	case score >= r.constitution.BuyThreshold:
		signal = domain.ActionBuy
	case score <= r.constitution.SellThreshold:
		signal = domain.ActionSell
	default:
		signal = domain.ActionHold
	}
	if signal == domain.ActionBuy && regimeState.Defensive() {
		signal = domain.ActionHold
	}
	return signal
}

// exposure snapshots the replay portfolio for the limit checks,
// summed in sorted ticker order to keep runs bit-for-bit reproducible
func (r *Runner) exposure(cash float64, tickers []string, holdings map[string]*holding, lastPrice map[string]float64) sizing.Exposure {
	exposure := sizing.Exposure{
		Cash:       cash,
		TotalValue: cash,
		ByTicker:   make(map[string]float64, len(holdings)),
		ByClass:    make(map[domain.AssetClass]float64, 2),
	}
	for _, ticker := range tickers {
		h := holdings[ticker]
		if h == nil {
			continue
		}
		value := float64(h.qty) * lastPrice[ticker]
		exposure.ByTicker[ticker] = value
		exposure.ByClass[h.class] += value
		exposure.TotalValue += value
	}
	return exposure
}

// proxyProbability is the deterministic stand-in for the external
// classifier during replay: a logistic squash of blended momentum, so
// historical runs never depend on a live model round-trip. ±10%
// average momentum maps to roughly 0.23/0.77.
func proxyProbability(mom momentum.Momentum) *float64 {
	if !mom.Decided {
		return nil
	}
	p := 1 / (1 + math.Exp(-12*mom.Average))
	return &p
}
