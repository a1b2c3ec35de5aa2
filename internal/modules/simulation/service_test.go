package simulation

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/database"
	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/indicators"
	"github.com/aristath/vantage/internal/modules/momentum"
	"github.com/aristath/vantage/internal/modules/regime"
	"github.com/aristath/vantage/internal/modules/risk"
	"github.com/aristath/vantage/internal/modules/scoring"
	"github.com/aristath/vantage/internal/modules/sizing"
	"github.com/aristath/vantage/internal/modules/universe"
)

// stubMarket serves fixed prices; macro inputs are unavailable so the
// regime degrades to NEUTRAL and risk to MEDIUM
type stubMarket struct {
	prices map[string]float64
}

func (m *stubMarket) Snapshot(ticker string) (*domain.AssetSnapshot, error) {
	price, ok := m.prices[ticker]
	if !ok {
		return nil, fmt.Errorf("no prices for %s: %w", ticker, domain.ErrDataUnavailable)
	}
	return &domain.AssetSnapshot{Ticker: ticker, Class: domain.AssetClassEquity, Price: price}, nil
}

func (m *stubMarket) History(ticker string, start, end time.Time) (domain.PriceHistory, error) {
	return nil, nil
}

func (m *stubMarket) BenchmarkCloses(sessions int) ([]float64, error) {
	return nil, domain.ErrDataUnavailable
}

func (m *stubMarket) VolatilityIndex() (float64, error) {
	return 0, domain.ErrDataUnavailable
}

func (m *stubMarket) BenchmarkTrend() (float64, error) {
	return 0, domain.ErrDataUnavailable
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A second pool connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(database.PortfolioSchema)
	require.NoError(t, err)
	_, err = db.Exec(database.UniverseSchema)
	require.NoError(t, err)

	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := openTestDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	assets := universe.NewAssetRepository(db, log)
	require.NoError(t, assets.Upsert(universe.Asset{Ticker: "TEST", Name: "Test Corp", Class: domain.AssetClassEquity, Active: true}))

	market := &stubMarket{prices: map[string]float64{"TEST": 50}}
	constitution := config.DefaultConstitution()

	scorer := scoring.NewService(
		scoring.NewEngine(constitution, log),
		indicators.NewEngine(),
		momentum.NewCalculator(constitution.MomentumWindows),
		market,
		nil,
		regime.NewDetector(constitution.Regime, log),
		nil,
		log,
	)

	return NewService(
		NewRepository(db, log),
		assets,
		market,
		scorer,
		sizing.NewEnforcer(constitution.Limits, log),
		risk.NewScorer(constitution.Risk, log),
		log,
	)
}

func buyRequest(qty int64, price float64) TradeRequest {
	return TradeRequest{Ticker: "TEST", Action: domain.ActionBuy, Quantity: qty, Price: price}
}

func TestCreate_Validation(t *testing.T) {
	s := newTestService(t)

	_, err := s.Create("", 10000, ModeManual)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Create("alice", 0, ModeManual)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Create("alice", 10000, Mode("turbo"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_DefaultsToManualMode(t *testing.T) {
	s := newTestService(t)

	sim, err := s.Create("alice", 10000, "")
	require.NoError(t, err)

	assert.Equal(t, ModeManual, sim.Mode)
	assert.Equal(t, 10000.0, sim.Cash)
	assert.Equal(t, 10000.0, sim.InitialCapital)
}

func TestExecuteTrade_BuyDebitsCashAndOpensPosition(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	trade, err := s.ExecuteTrade(sim.ID, buyRequest(10, 50))
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, trade.Action)
	assert.Equal(t, 500.0, trade.Value())

	after, err := s.Get(sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 9500.0, after.Cash)

	portfolio, err := s.Portfolio(sim.ID)
	require.NoError(t, err)
	require.Len(t, portfolio.Positions, 1)
	assert.Equal(t, "TEST", portfolio.Positions[0].Ticker)
	assert.Equal(t, int64(10), portfolio.Positions[0].Quantity)
	assert.Equal(t, 50.0, portfolio.Positions[0].AverageCost)
	assert.Equal(t, 10000.0, portfolio.TotalValue)
}

func TestExecuteTrade_InsufficientFundsLeavesStateUntouched(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, buyRequest(1000, 50))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	after, err := s.Get(sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, after.Cash)

	trades, err := s.History(sim.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestExecuteTrade_BlockedByPositionLimits(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	// 1500 would be 15% of the portfolio against a 10% cap
	_, err = s.ExecuteTrade(sim.ID, buyRequest(30, 50))
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)

	trades, err := s.History(sim.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestExecuteTrade_SellRoundTripRestoresCash(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, buyRequest(10, 50))
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, TradeRequest{Ticker: "TEST", Action: domain.ActionSell, Quantity: 10, Price: 50})
	require.NoError(t, err)

	after, err := s.Get(sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, after.Cash)

	portfolio, err := s.Portfolio(sim.ID)
	require.NoError(t, err)
	assert.Empty(t, portfolio.Positions)

	trades, err := s.History(sim.ID)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestExecuteTrade_SellMoreThanHeld(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, TradeRequest{Ticker: "TEST", Action: domain.ActionSell, Quantity: 1, Price: 50})
	assert.ErrorIs(t, err, domain.ErrInsufficientPosition)

	_, err = s.ExecuteTrade(sim.ID, buyRequest(5, 50))
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, TradeRequest{Ticker: "TEST", Action: domain.ActionSell, Quantity: 6, Price: 50})
	assert.ErrorIs(t, err, domain.ErrInsufficientPosition)
}

func TestExecuteTrade_WeightedAverageCost(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 100000, ModeManual)
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, buyRequest(10, 50))
	require.NoError(t, err)
	_, err = s.ExecuteTrade(sim.ID, buyRequest(10, 60))
	require.NoError(t, err)

	portfolio, err := s.Portfolio(sim.ID)
	require.NoError(t, err)
	require.Len(t, portfolio.Positions, 1)
	assert.Equal(t, int64(20), portfolio.Positions[0].Quantity)
	assert.Equal(t, 55.0, portfolio.Positions[0].AverageCost)
}

func TestExecuteTrade_UnknownTicker(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, TradeRequest{Ticker: "NOPE", Action: domain.ActionBuy, Quantity: 1, Price: 50})
	assert.ErrorIs(t, err, domain.ErrUnknownAsset)
}

func TestExecuteTrade_Validation(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	cases := []TradeRequest{
		{Ticker: "", Action: domain.ActionBuy, Quantity: 1, Price: 50},
		{Ticker: "TEST", Action: domain.ActionHold, Quantity: 1, Price: 50},
		{Ticker: "TEST", Action: domain.ActionBuy, Quantity: 0, Price: 50},
		{Ticker: "TEST", Action: domain.ActionBuy, Quantity: 1, Price: 0},
	}
	for _, req := range cases {
		_, err := s.ExecuteTrade(sim.ID, req)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
}

func TestExecuteTrade_TickerNormalized(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	trade, err := s.ExecuteTrade(sim.ID, TradeRequest{Ticker: " test ", Action: domain.ActionBuy, Quantity: 1, Price: 50})
	require.NoError(t, err)
	assert.Equal(t, "TEST", trade.Ticker)
}

func TestReset_Idempotent(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, buyRequest(10, 50))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.Reset(sim.ID))

		after, err := s.Get(sim.ID)
		require.NoError(t, err)
		assert.Equal(t, 10000.0, after.Cash)

		trades, err := s.History(sim.ID)
		require.NoError(t, err)
		assert.Empty(t, trades)

		portfolio, err := s.Portfolio(sim.ID)
		require.NoError(t, err)
		assert.Empty(t, portfolio.Positions)
	}
}

func TestSnapshot_ComposesFullView(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, buyRequest(10, 50))
	require.NoError(t, err)

	snapshot, err := s.Snapshot(sim.ID)
	require.NoError(t, err)
	assert.Equal(t, sim.ID, snapshot.ID)
	assert.Equal(t, "alice", snapshot.Owner)
	assert.Equal(t, 9500.0, snapshot.Cash)
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, int64(10), snapshot.Positions[0].Quantity)
	require.Len(t, snapshot.Trades, 1)
	assert.Equal(t, domain.ActionBuy, snapshot.Trades[0].Action)
	assert.Equal(t, 10000.0, snapshot.TotalValue)
	assert.Equal(t, 0.0, snapshot.ProfitLoss)
}

func TestSnapshot_EmptySimulationHasEmptyLists(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	snapshot, err := s.Snapshot(sim.ID)
	require.NoError(t, err)
	assert.NotNil(t, snapshot.Trades)
	assert.Empty(t, snapshot.Trades)
	assert.Empty(t, snapshot.Positions)
	assert.Equal(t, 10000.0, snapshot.TotalValue)

	_, err = s.Snapshot("does-not-exist")
	assert.ErrorIs(t, err, domain.ErrUnknownSimulation)
}

func TestGet_UnknownSimulation(t *testing.T) {
	s := newTestService(t)

	_, err := s.Get("does-not-exist")
	assert.ErrorIs(t, err, domain.ErrUnknownSimulation)

	_, err = s.ExecuteTrade("does-not-exist", buyRequest(1, 50))
	assert.ErrorIs(t, err, domain.ErrUnknownSimulation)
}

func TestDelete_RemovesSimulation(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	require.NoError(t, s.Delete(sim.ID))

	_, err = s.Get(sim.ID)
	assert.ErrorIs(t, err, domain.ErrUnknownSimulation)

	assert.ErrorIs(t, s.Delete(sim.ID), domain.ErrUnknownSimulation)
}

func TestPortfolio_StalePriceFallsBackToCost(t *testing.T) {
	s := newTestService(t)
	sim, err := s.Create("alice", 10000, ModeManual)
	require.NoError(t, err)

	_, err = s.ExecuteTrade(sim.ID, buyRequest(10, 50))
	require.NoError(t, err)

	// Drop the live price feed
	s.market.(*stubMarket).prices = map[string]float64{}

	portfolio, err := s.Portfolio(sim.ID)
	require.NoError(t, err)
	require.Len(t, portfolio.Positions, 1)
	assert.True(t, portfolio.Positions[0].PriceStale)
	assert.Equal(t, 50.0, portfolio.Positions[0].CurrentPrice)
	assert.Equal(t, 10000.0, portfolio.TotalValue)
}
