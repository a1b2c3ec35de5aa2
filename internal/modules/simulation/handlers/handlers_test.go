package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
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
	"github.com/aristath/vantage/internal/modules/simulation"
	"github.com/aristath/vantage/internal/modules/sizing"
	"github.com/aristath/vantage/internal/modules/universe"
)

type fixedPriceMarket struct {
	prices map[string]float64
}

func (m *fixedPriceMarket) Snapshot(ticker string) (*domain.AssetSnapshot, error) {
	price, ok := m.prices[ticker]
	if !ok {
		return nil, fmt.Errorf("no prices for %s: %w", ticker, domain.ErrDataUnavailable)
	}
	return &domain.AssetSnapshot{Ticker: ticker, Class: domain.AssetClassEquity, Price: price}, nil
}

func (m *fixedPriceMarket) History(ticker string, start, end time.Time) (domain.PriceHistory, error) {
	return nil, nil
}

func (m *fixedPriceMarket) BenchmarkCloses(sessions int) ([]float64, error) {
	return nil, domain.ErrDataUnavailable
}

func (m *fixedPriceMarket) VolatilityIndex() (float64, error) {
	return 0, domain.ErrDataUnavailable
}

func (m *fixedPriceMarket) BenchmarkTrend() (float64, error) {
	return 0, domain.ErrDataUnavailable
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(database.PortfolioSchema)
	require.NoError(t, err)
	_, err = db.Exec(database.UniverseSchema)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	assets := universe.NewAssetRepository(db, log)
	require.NoError(t, assets.Upsert(universe.Asset{Ticker: "TEST", Class: domain.AssetClassEquity, Active: true}))

	market := &fixedPriceMarket{prices: map[string]float64{"TEST": 50}}
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

	service := simulation.NewService(
		simulation.NewRepository(db, log),
		assets,
		market,
		scorer,
		sizing.NewEnforcer(constitution.Limits, log),
		risk.NewScorer(constitution.Risk, log),
		log,
	)

	r := chi.NewRouter()
	NewSimulationHandlers(service, log).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createSimulation(t *testing.T, r chi.Router) string {
	t.Helper()

	rec := doRequest(t, r, http.MethodPost, "/simulations", `{"user_id":"alice","initial_capital":10000}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"simulation_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	return created.ID
}

func TestHandleGet_ReturnsFullSnapshot(t *testing.T) {
	r := newTestRouter(t)
	id := createSimulation(t, r)

	rec := doRequest(t, r, http.MethodPost, "/simulations/"+id+"/trades",
		`{"ticker":"TEST","action":"BUY","quantity":10,"price":50}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, r, http.MethodGet, "/simulations/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot struct {
		ID         string  `json:"simulation_id"`
		Owner      string  `json:"owner"`
		Cash       float64 `json:"cash"`
		TotalValue float64 `json:"total_value"`
		ProfitLoss float64 `json:"total_pnl"`
		Positions  []struct {
			Ticker   string `json:"ticker"`
			Quantity int64  `json:"quantity"`
		} `json:"positions"`
		Trades []struct {
			Action string `json:"action"`
		} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))

	assert.Equal(t, id, snapshot.ID)
	assert.Equal(t, "alice", snapshot.Owner)
	assert.Equal(t, 9500.0, snapshot.Cash)
	assert.Equal(t, 10000.0, snapshot.TotalValue)
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, int64(10), snapshot.Positions[0].Quantity)
	require.Len(t, snapshot.Trades, 1)
	assert.Equal(t, "BUY", snapshot.Trades[0].Action)
}

func TestHandleGet_UnknownSimulationIs404(t *testing.T) {
	r := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/simulations/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleExecuteTrade_ReturnsUpdatedCashAndPositions(t *testing.T) {
	r := newTestRouter(t)
	id := createSimulation(t, r)

	rec := doRequest(t, r, http.MethodPost, "/simulations/"+id+"/trades",
		`{"ticker":"TEST","action":"BUY","quantity":10,"price":50,"ml_confidence":0.8}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Trade struct {
			Ticker     string   `json:"ticker"`
			Confidence *float64 `json:"confidence"`
		} `json:"trade"`
		Cash      float64 `json:"cash"`
		Positions []struct {
			Quantity int64 `json:"quantity"`
		} `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "TEST", resp.Trade.Ticker)
	require.NotNil(t, resp.Trade.Confidence)
	assert.Equal(t, 0.8, *resp.Trade.Confidence)
	assert.Equal(t, 9500.0, resp.Cash)
	require.Len(t, resp.Positions, 1)
	assert.Equal(t, int64(10), resp.Positions[0].Quantity)
}

func TestHandleAutoTrade_EmptyBodyReturnsResultsAndCash(t *testing.T) {
	r := newTestRouter(t)
	id := createSimulation(t, r)

	rec := doRequest(t, r, http.MethodPost, "/simulations/"+id+"/auto-trade", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []json.RawMessage `json:"results"`
		Cash    *float64          `json:"cash"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotNil(t, resp.Results)
	require.NotNil(t, resp.Cash)
	assert.Equal(t, 10000.0, *resp.Cash)
}
