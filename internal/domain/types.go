// Package domain holds types shared across modules. It has no
// infrastructure dependencies so any module can import it without
// creating cycles.
package domain

import "time"

// AssetClass categorizes tradable assets for exposure limits
type AssetClass string

const (
	AssetClassEquity AssetClass = "EQUITY"
	AssetClassCrypto AssetClass = "CRYPTO"
)

// Valid reports whether the asset class is a known value
func (c AssetClass) Valid() bool {
	return c == AssetClassEquity || c == AssetClassCrypto
}

// Action is a trade direction or the absence of one
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Candle is a single OHLCV bar
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceHistory is an ordered (oldest first) series of candles
type PriceHistory []Candle

// Closes extracts closing prices in series order
func (h PriceHistory) Closes() []float64 {
	closes := make([]float64, len(h))
	for i, c := range h {
		closes[i] = c.Close
	}
	return closes
}

// AssetSnapshot is the per-evaluation view of one asset. Immutable
// per fetch; regenerated each evaluation cycle.
type AssetSnapshot struct {
	Ticker    string       `json:"ticker"`
	Class     AssetClass   `json:"asset_class"`
	Price     float64      `json:"price"`
	Volume    float64      `json:"volume"`
	Timestamp time.Time    `json:"timestamp"`
	History   PriceHistory `json:"-"`
}

// Features is the engineered input handed to the external classifier
type Features struct {
	Ticker      string   `json:"ticker"`
	RSI         *float64 `json:"rsi,omitempty"`
	MACD        *float64 `json:"macd,omitempty"`
	Momentum10  *float64 `json:"momentum_10,omitempty"`
	Momentum30  *float64 `json:"momentum_30,omitempty"`
	Volatility  *float64 `json:"volatility,omitempty"`
	VolumeRatio *float64 `json:"volume_ratio,omitempty"`
}
