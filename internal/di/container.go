// Package di wires repositories, services and jobs into a single
// container constructed once at startup.
package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/clients/classifier"
	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/database"
	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/backtest"
	"github.com/aristath/vantage/internal/modules/indicators"
	"github.com/aristath/vantage/internal/modules/marketdata"
	"github.com/aristath/vantage/internal/modules/momentum"
	"github.com/aristath/vantage/internal/modules/regime"
	"github.com/aristath/vantage/internal/modules/risk"
	"github.com/aristath/vantage/internal/modules/scoring"
	"github.com/aristath/vantage/internal/modules/scoring/jobs"
	"github.com/aristath/vantage/internal/modules/simulation"
	"github.com/aristath/vantage/internal/modules/sizing"
	"github.com/aristath/vantage/internal/modules/universe"
)

// Databases groups the database handles the container builds on
type Databases struct {
	Universe  *database.DB
	Portfolio *database.DB
	History   *database.DB
}

// Container holds all repositories and services. Built once in main,
// never mutated afterwards.
type Container struct {
	Constitution *config.Constitution

	// Repositories
	AssetRepo      *universe.AssetRepository
	PriceRepo      *marketdata.PriceRepository
	SimulationRepo *simulation.Repository

	// Market data + external model
	MarketData *marketdata.Service
	Classifier domain.ProbabilityProvider // nil when no sidecar configured

	// Scoring pipeline
	IndicatorEngine   *indicators.Engine
	MomentumCalc      *momentum.Calculator
	RegimeDetector    *regime.Detector
	RiskScorer        *risk.Scorer
	ScoringEngine     *scoring.Engine
	ScoreCache        *scoring.Cache
	ScoringService    *scoring.Service
	SizingEnforcer    *sizing.Enforcer
	SimulationService *simulation.Service
	BacktestRunner    *backtest.Runner

	// Jobs
	RefreshJob *jobs.RefreshJob
}

// New wires the full service graph
func New(cfg *config.Config, constitution *config.Constitution, dbs Databases, log zerolog.Logger) *Container {
	c := &Container{Constitution: constitution}

	c.AssetRepo = universe.NewAssetRepository(dbs.Universe.Conn(), log)
	c.PriceRepo = marketdata.NewPriceRepository(dbs.History.Conn(), log)
	c.SimulationRepo = simulation.NewRepository(dbs.Portfolio.Conn(), log)

	c.MarketData = marketdata.NewService(c.PriceRepo, c.AssetRepo, log)
	if cfg.ClassifierURL != "" {
		c.Classifier = classifier.New(cfg.ClassifierURL, log)
	}

	c.IndicatorEngine = indicators.NewEngine()
	c.MomentumCalc = momentum.NewCalculator(constitution.MomentumWindows)
	c.RegimeDetector = regime.NewDetector(constitution.Regime, log)
	c.RiskScorer = risk.NewScorer(constitution.Risk, log)
	c.ScoringEngine = scoring.NewEngine(constitution, log)
	c.ScoreCache = scoring.NewCache(dbs.History.Conn(), scoring.DefaultCacheTTL, log)
	c.ScoringService = scoring.NewService(
		c.ScoringEngine, c.IndicatorEngine, c.MomentumCalc,
		c.MarketData, c.Classifier, c.RegimeDetector, c.ScoreCache, log)

	c.SizingEnforcer = sizing.NewEnforcer(constitution.Limits, log)
	c.SimulationService = simulation.NewService(
		c.SimulationRepo, c.AssetRepo, c.MarketData,
		c.ScoringService, c.SizingEnforcer, c.RiskScorer, log)

	c.BacktestRunner = backtest.NewRunner(
		c.PriceRepo, c.AssetRepo, c.ScoringEngine, c.IndicatorEngine,
		c.MomentumCalc, c.RegimeDetector, c.RiskScorer, c.SizingEnforcer,
		constitution, log)

	c.RefreshJob = jobs.NewRefreshJob(c.ScoringService, c.ScoreCache, c.AssetRepo, log)

	return c
}
