// Package simulation owns virtual paper-trading portfolios: trade
// execution, position tracking, recommendations and portfolio
// valuation.
package simulation

import (
	"time"

	"github.com/aristath/vantage/internal/domain"
)

// Mode controls whether trades are operator-driven or automatic
type Mode string

const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

// Simulation is one virtual account. Cash and positions are mutated
// only through trade execution.
type Simulation struct {
	ID             string    `json:"simulation_id"`
	Owner          string    `json:"owner"`
	Mode           Mode      `json:"mode"`
	InitialCapital float64   `json:"initial_capital"`
	Cash           float64   `json:"cash"`
	CreatedAt      time.Time `json:"created_at"`
}

// Position is a holding within a simulation, unique per (simulation,
// ticker). Removed when quantity reaches zero.
type Position struct {
	SimulationID string  `json:"simulation_id"`
	Ticker       string  `json:"ticker"`
	Quantity     int64   `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
}

// Trade is one executed order. Immutable once recorded; append-only.
type Trade struct {
	ID           string        `json:"id"`
	SimulationID string        `json:"simulation_id"`
	Ticker       string        `json:"ticker"`
	Action       domain.Action `json:"action"`
	Quantity     int64         `json:"quantity"`
	Price        float64       `json:"price"`
	Reason       string        `json:"reason"`
	Confidence   *float64      `json:"confidence,omitempty"`
	ExecutedAt   time.Time     `json:"executed_at"`
}

// Value returns the cash value of the trade
func (t Trade) Value() float64 {
	return float64(t.Quantity) * t.Price
}

// PositionView is a position revalued at the live price
type PositionView struct {
	Ticker       string            `json:"ticker"`
	Class        domain.AssetClass `json:"asset_class"`
	Quantity     int64             `json:"quantity"`
	AverageCost  float64           `json:"average_cost"`
	CurrentPrice float64           `json:"current_price"`
	MarketValue  float64           `json:"market_value"`
	ProfitLoss   float64           `json:"profit_loss"`
	// PriceStale marks positions whose live price could not be
	// fetched; MarketValue falls back to cost basis
	PriceStale bool `json:"price_stale,omitempty"`
}

// PortfolioSnapshot is the derived, never-stored valuation of a
// simulation at current prices
type PortfolioSnapshot struct {
	SimulationID   string         `json:"simulation_id"`
	Cash           float64        `json:"cash"`
	InitialCapital float64        `json:"initial_capital"`
	Positions      []PositionView `json:"positions"`
	TotalValue     float64        `json:"total_value"`
	ProfitLoss     float64        `json:"total_pnl"`
	// ExposureByClass maps asset class to fraction of total value
	ExposureByClass map[domain.AssetClass]float64 `json:"exposure_by_class"`
	AsOf            time.Time                     `json:"as_of"`
}

// SimulationSnapshot is the full view of a simulation: the record
// itself plus positions valued at live prices, the ordered trade list
// and derived metrics
type SimulationSnapshot struct {
	Simulation
	Positions  []PositionView `json:"positions"`
	Trades     []Trade        `json:"trades"`
	TotalValue float64        `json:"total_value"`
	ProfitLoss float64        `json:"total_pnl"`
}

// Recommendation is one ranked trade candidate
type Recommendation struct {
	Ticker     string        `json:"ticker"`
	Action     domain.Action `json:"action"`
	Quantity   int64         `json:"quantity"`
	Price      float64       `json:"price"`
	Confidence float64       `json:"confidence"`
	Score      float64       `json:"score"`
	Reason     string        `json:"reason"`
}

// AutoTradeResult reports the outcome of one attempted auto trade.
// Auto trading is best-effort: failures are reported per trade, not
// rolled up into all-or-nothing.
type AutoTradeResult struct {
	Recommendation Recommendation `json:"recommendation"`
	Executed       bool           `json:"executed"`
	Error          string         `json:"error,omitempty"`
	Trade          *Trade         `json:"trade,omitempty"`
}
