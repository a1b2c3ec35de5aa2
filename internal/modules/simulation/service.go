package simulation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/risk"
	"github.com/aristath/vantage/internal/modules/scoring"
	"github.com/aristath/vantage/internal/modules/sizing"
	"github.com/aristath/vantage/internal/modules/universe"
)

// riskBenchmarkSessions is how much benchmark history the risk scorer
// receives for correlation
const riskBenchmarkSessions = 252

// Service owns simulation state transitions. Each simulation's
// mutable state is a single-writer resource: a per-id mutex
// serializes trade execution so the atomicity of cash + position +
// trade record holds under concurrent callers. Different simulation
// ids proceed in parallel.
type Service struct {
	repo       *Repository
	assets     *universe.AssetRepository
	market     domain.MarketDataSource
	scorer     *scoring.Service
	enforcer   *sizing.Enforcer
	riskScorer *risk.Scorer
	log        zerolog.Logger

	// locks maps simulation id -> *sync.Mutex
	locks sync.Map
}

// NewService creates a simulation service
func NewService(
	repo *Repository,
	assets *universe.AssetRepository,
	market domain.MarketDataSource,
	scorer *scoring.Service,
	enforcer *sizing.Enforcer,
	riskScorer *risk.Scorer,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		assets:     assets,
		market:     market,
		scorer:     scorer,
		enforcer:   enforcer,
		riskScorer: riskScorer,
		log:        log.With().Str("service", "simulation").Logger(),
	}
}

func (s *Service) lockFor(simulationID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(simulationID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Create starts a new simulation with cash = initial capital
func (s *Service) Create(owner string, initialCapital float64, mode Mode) (*Simulation, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	if initialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive, got %.2f", domain.ErrValidation, initialCapital)
	}
	if mode == "" {
		mode = ModeManual
	}
	if mode != ModeManual && mode != ModeAuto {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, mode)
	}

	return s.repo.Create(owner, initialCapital, mode)
}

// Get returns the simulation record
func (s *Service) Get(simulationID string) (*Simulation, error) {
	return s.repo.Get(simulationID)
}

// Snapshot returns the full simulation view: record, positions valued
// at current prices, ordered trades and derived totals
func (s *Service) Snapshot(simulationID string) (*SimulationSnapshot, error) {
	sim, err := s.repo.Get(simulationID)
	if err != nil {
		return nil, err
	}

	portfolio, err := s.valuate(sim)
	if err != nil {
		return nil, err
	}

	trades, err := s.repo.Trades(simulationID)
	if err != nil {
		return nil, err
	}
	if trades == nil {
		trades = []Trade{}
	}

	return &SimulationSnapshot{
		Simulation: *sim,
		Positions:  portfolio.Positions,
		Trades:     trades,
		TotalValue: portfolio.TotalValue,
		ProfitLoss: portfolio.ProfitLoss,
	}, nil
}

// History returns the ordered trade list
func (s *Service) History(simulationID string) ([]Trade, error) {
	if _, err := s.repo.Get(simulationID); err != nil {
		return nil, err
	}
	return s.repo.Trades(simulationID)
}

// TradeRequest is a validated trade order
type TradeRequest struct {
	Ticker     string
	Action     domain.Action
	Quantity   int64
	Price      float64
	Reason     string
	Confidence *float64
}

func (r *TradeRequest) validate() error {
	r.Ticker = strings.ToUpper(strings.TrimSpace(r.Ticker))
	if r.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", domain.ErrValidation)
	}
	if r.Action != domain.ActionBuy && r.Action != domain.ActionSell {
		return fmt.Errorf("%w: action must be BUY or SELL, got %q", domain.ErrValidation, r.Action)
	}
	if r.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be >= 1, got %d", domain.ErrValidation, r.Quantity)
	}
	if r.Price <= 0 {
		return fmt.Errorf("%w: price must be positive, got %.4f", domain.ErrValidation, r.Price)
	}
	return nil
}

// ExecuteTrade validates and commits one trade. All effects are
// atomic; every failure leaves state untouched.
func (s *Service) ExecuteTrade(simulationID string, req TradeRequest) (*Trade, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	asset, err := s.assets.Get(req.Ticker)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(simulationID)
	mu.Lock()
	defer mu.Unlock()

	sim, err := s.repo.Get(simulationID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case domain.ActionBuy:
		return s.executeBuy(sim, asset, req)
	default:
		return s.executeSell(sim, req)
	}
}

func (s *Service) executeBuy(sim *Simulation, asset *universe.Asset, req TradeRequest) (*Trade, error) {
	cost := float64(req.Quantity) * req.Price
	if cost > sim.Cash {
		return nil, fmt.Errorf("%w: need %.2f, have %.2f", domain.ErrInsufficientFunds, cost, sim.Cash)
	}

	snapshot, err := s.valuate(sim)
	if err != nil {
		return nil, err
	}

	exposure := sizing.Exposure{
		TotalValue: snapshot.TotalValue,
		Cash:       snapshot.Cash,
		ByTicker:   make(map[string]float64, len(snapshot.Positions)),
		ByClass:    make(map[domain.AssetClass]float64, 2),
	}
	for _, p := range snapshot.Positions {
		exposure.ByTicker[p.Ticker] = p.MarketValue
		exposure.ByClass[p.Class] += p.MarketValue
	}

	decision := s.enforcer.CheckBuy(
		req.Ticker, asset.Class, cost, exposure,
		s.assessRiskLevel(req.Ticker), s.scorer.CurrentRegime())
	if decision.Blocked {
		return nil, fmt.Errorf("%w: %s", domain.ErrLimitExceeded, decision.Reason)
	}

	positions, err := s.repo.Positions(sim.ID)
	if err != nil {
		return nil, err
	}

	newPosition := &Position{
		SimulationID: sim.ID,
		Ticker:       req.Ticker,
		Quantity:     req.Quantity,
		AverageCost:  req.Price,
	}
	for _, p := range positions {
		if p.Ticker == req.Ticker {
			// Weighted-average cost across the combined position
			totalQty := p.Quantity + req.Quantity
			newPosition.AverageCost = (float64(p.Quantity)*p.AverageCost + cost) / float64(totalQty)
			newPosition.Quantity = totalQty
			break
		}
	}

	trade := s.newTrade(sim.ID, req)
	if err := s.repo.ExecuteTrade(sim, trade, sim.Cash-cost, newPosition); err != nil {
		return nil, err
	}

	s.log.Info().Str("simulation_id", sim.ID).Str("ticker", req.Ticker).
		Int64("quantity", req.Quantity).Float64("price", req.Price).
		Msg("Buy executed")

	return &trade, nil
}

func (s *Service) executeSell(sim *Simulation, req TradeRequest) (*Trade, error) {
	positions, err := s.repo.Positions(sim.ID)
	if err != nil {
		return nil, err
	}

	var held *Position
	for i := range positions {
		if positions[i].Ticker == req.Ticker {
			held = &positions[i]
			break
		}
	}
	if held == nil || held.Quantity < req.Quantity {
		heldQty := int64(0)
		if held != nil {
			heldQty = held.Quantity
		}
		return nil, fmt.Errorf("%w: selling %d, holding %d %s", domain.ErrInsufficientPosition, req.Quantity, heldQty, req.Ticker)
	}

	proceeds := float64(req.Quantity) * req.Price
	newPosition := &Position{
		SimulationID: sim.ID,
		Ticker:       req.Ticker,
		Quantity:     held.Quantity - req.Quantity,
		AverageCost:  held.AverageCost,
	}
	if newPosition.Quantity == 0 {
		newPosition = nil
	}

	trade := s.newTrade(sim.ID, req)
	if err := s.repo.ExecuteTrade(sim, trade, sim.Cash+proceeds, newPosition); err != nil {
		return nil, err
	}

	s.log.Info().Str("simulation_id", sim.ID).Str("ticker", req.Ticker).
		Int64("quantity", req.Quantity).Float64("price", req.Price).
		Msg("Sell executed")

	return &trade, nil
}

func (s *Service) newTrade(simulationID string, req TradeRequest) Trade {
	return Trade{
		ID:           uuid.New().String(),
		SimulationID: simulationID,
		Ticker:       req.Ticker,
		Action:       req.Action,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Reason:       req.Reason,
		Confidence:   req.Confidence,
		ExecutedAt:   time.Now().UTC(),
	}
}

// Portfolio revalues all positions at current prices
func (s *Service) Portfolio(simulationID string) (*PortfolioSnapshot, error) {
	sim, err := s.repo.Get(simulationID)
	if err != nil {
		return nil, err
	}
	return s.valuate(sim)
}

// valuate builds the derived portfolio snapshot. Positions whose live
// price is unavailable fall back to cost basis and are marked stale.
func (s *Service) valuate(sim *Simulation) (*PortfolioSnapshot, error) {
	positions, err := s.repo.Positions(sim.ID)
	if err != nil {
		return nil, err
	}

	snapshot := &PortfolioSnapshot{
		SimulationID:    sim.ID,
		Cash:            sim.Cash,
		InitialCapital:  sim.InitialCapital,
		Positions:       make([]PositionView, 0, len(positions)),
		TotalValue:      sim.Cash,
		ExposureByClass: make(map[domain.AssetClass]float64, 2),
		AsOf:            time.Now().UTC(),
	}

	for _, p := range positions {
		view := PositionView{
			Ticker:      p.Ticker,
			Quantity:    p.Quantity,
			AverageCost: p.AverageCost,
		}

		if asset, err := s.assets.Get(p.Ticker); err == nil {
			view.Class = asset.Class
		}

		assetSnapshot, err := s.market.Snapshot(p.Ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", p.Ticker).
				Msg("Live price unavailable, valuing position at cost")
			view.CurrentPrice = p.AverageCost
			view.PriceStale = true
		} else {
			view.CurrentPrice = assetSnapshot.Price
		}

		view.MarketValue = float64(p.Quantity) * view.CurrentPrice
		view.ProfitLoss = view.MarketValue - float64(p.Quantity)*p.AverageCost

		snapshot.Positions = append(snapshot.Positions, view)
		snapshot.TotalValue += view.MarketValue
	}

	snapshot.ProfitLoss = snapshot.TotalValue - sim.InitialCapital
	if snapshot.TotalValue > 0 {
		for _, v := range snapshot.Positions {
			snapshot.ExposureByClass[v.Class] += v.MarketValue / snapshot.TotalValue
		}
	}

	return snapshot, nil
}

// assessRiskLevel computes the risk level for a ticker; data gaps
// degrade to MEDIUM through the risk scorer's neutral defaults
func (s *Service) assessRiskLevel(ticker string) risk.Level {
	snapshot, err := s.market.Snapshot(ticker)
	if err != nil {
		return risk.LevelMedium
	}

	benchmark, err := s.market.BenchmarkCloses(riskBenchmarkSessions)
	if err != nil {
		benchmark = nil
	}

	return s.riskScorer.Assess(ticker, snapshot.History, benchmark).Level
}

// Reset clears trades and positions and restores the initial cash.
// Idempotent: calling it twice yields identical state.
func (s *Service) Reset(simulationID string) error {
	mu := s.lockFor(simulationID)
	mu.Lock()
	defer mu.Unlock()

	return s.repo.Reset(simulationID)
}

// Delete removes the simulation permanently
func (s *Service) Delete(simulationID string) error {
	mu := s.lockFor(simulationID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.repo.Delete(simulationID); err != nil {
		return err
	}

	s.locks.Delete(simulationID)
	return nil
}
