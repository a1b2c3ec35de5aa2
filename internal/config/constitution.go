package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// weightTolerance is the allowed deviation when checking that a
// weight group sums to 1.0
const weightTolerance = 1e-9

// Constitution is the versioned, immutable scoring configuration.
// It is loaded once at startup and never mutated at runtime;
// amendments ship as a new version in a new file or binary.
type Constitution struct {
	Version string `yaml:"version"`

	// Composite weights (must sum to 1.0)
	Weights CompositeWeights `yaml:"weights"`

	// Technical blend inside the technical sub-score (must sum to 1.0)
	Technical TechnicalWeights `yaml:"technical"`

	// Risk sub-score weights (must sum to 1.0)
	Risk RiskWeights `yaml:"risk"`

	// Momentum lookback windows in trading sessions
	MomentumWindows []int `yaml:"momentum_windows"`

	// Regime detection thresholds
	Regime RegimeThresholds `yaml:"regime"`

	// Position sizing limits, fractions of portfolio value
	Limits PositionLimits `yaml:"limits"`

	// Signal bands on the composite score
	BuyThreshold  float64 `yaml:"buy_threshold"`
	SellThreshold float64 `yaml:"sell_threshold"`

	// MaxAdjustment bounds the external context adjustment channel
	// (absolute composite points). Requests beyond it are clamped.
	MaxAdjustment float64 `yaml:"max_adjustment"`
}

// CompositeWeights are the four signal weights of the composite score
type CompositeWeights struct {
	Technical float64 `yaml:"technical"`
	ML        float64 `yaml:"ml"`
	Momentum  float64 `yaml:"momentum"`
	Regime    float64 `yaml:"regime"`
}

// TechnicalWeights blend the indicator components into the technical
// sub-score
type TechnicalWeights struct {
	RSI       float64 `yaml:"rsi"`
	MACD      float64 `yaml:"macd"`
	Bollinger float64 `yaml:"bollinger"`
	ADX       float64 `yaml:"adx"`
}

// RiskWeights blend the risk sub-metrics into the risk composite
type RiskWeights struct {
	Volatility  float64 `yaml:"volatility"`
	Drawdown    float64 `yaml:"drawdown"`
	Correlation float64 `yaml:"correlation"`
}

// RegimeThresholds hold the volatility-index and trend cut-offs
type RegimeThresholds struct {
	VolatilityHigh    float64 `yaml:"volatility_high"`    // above: at least NEUTRAL
	VolatilityExtreme float64 `yaml:"volatility_extreme"` // above: volatility sub-state "extreme"
}

// PositionLimits hold base exposure limits. All are fractions of
// total portfolio value. Under RISK_OFF every limit is halved and the
// cash floor is doubled.
type PositionLimits struct {
	SingleEquity    float64 `yaml:"single_equity"`
	SingleCrypto    float64 `yaml:"single_crypto"`
	AggregateEquity float64 `yaml:"aggregate_equity"`
	AggregateCrypto float64 `yaml:"aggregate_crypto"`
	CashReserve     float64 `yaml:"cash_reserve"`
}

// DefaultConstitution returns version 1 of the compiled-in
// configuration. The weights mirror the documented scheme:
// technical 40%, ml 30%, momentum 20%, regime 10%.
func DefaultConstitution() *Constitution {
	return &Constitution{
		Version: "1",
		Weights: CompositeWeights{
			Technical: 0.40,
			ML:        0.30,
			Momentum:  0.20,
			Regime:    0.10,
		},
		Technical: TechnicalWeights{
			RSI:       0.30,
			MACD:      0.30,
			Bollinger: 0.20,
			ADX:       0.20,
		},
		Risk: RiskWeights{
			Volatility:  0.40,
			Drawdown:    0.35,
			Correlation: 0.25,
		},
		MomentumWindows: []int{10, 30, 60},
		Regime: RegimeThresholds{
			VolatilityHigh:    30,
			VolatilityExtreme: 40,
		},
		Limits: PositionLimits{
			SingleEquity:    0.10,
			SingleCrypto:    0.05,
			AggregateEquity: 0.70,
			AggregateCrypto: 0.20,
			CashReserve:     0.10,
		},
		BuyThreshold:  70,
		SellThreshold: 40,
		MaxAdjustment: 5,
	}
}

// LoadConstitution returns the constitution from the given YAML file,
// or the compiled default when path is empty. Validation failures are
// fatal by contract: a misconfigured constitution must never score.
func LoadConstitution(path string) (*Constitution, error) {
	c := DefaultConstitution()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read constitution %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse constitution %s: %w", path, err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid constitution (version %s): %w", c.Version, err)
	}

	return c, nil
}

// Validate checks every weight group sums to 1.0 and limits are sane
func (c *Constitution) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	groups := []struct {
		name string
		sum  float64
	}{
		{"weights", c.Weights.Technical + c.Weights.ML + c.Weights.Momentum + c.Weights.Regime},
		{"technical", c.Technical.RSI + c.Technical.MACD + c.Technical.Bollinger + c.Technical.ADX},
		{"risk", c.Risk.Volatility + c.Risk.Drawdown + c.Risk.Correlation},
	}
	for _, g := range groups {
		if math.Abs(g.sum-1.0) > weightTolerance {
			return fmt.Errorf("%s weights sum to %.6f, expected 1.0", g.name, g.sum)
		}
	}

	if len(c.MomentumWindows) == 0 {
		return fmt.Errorf("at least one momentum window is required")
	}
	for _, w := range c.MomentumWindows {
		if w < 1 {
			return fmt.Errorf("momentum window must be >= 1, got %d", w)
		}
	}

	limits := map[string]float64{
		"single_equity":    c.Limits.SingleEquity,
		"single_crypto":    c.Limits.SingleCrypto,
		"aggregate_equity": c.Limits.AggregateEquity,
		"aggregate_crypto": c.Limits.AggregateCrypto,
		"cash_reserve":     c.Limits.CashReserve,
	}
	for name, v := range limits {
		if v <= 0 || v > 1 {
			return fmt.Errorf("limit %s must be in (0, 1], got %.4f", name, v)
		}
	}

	if c.BuyThreshold <= c.SellThreshold {
		return fmt.Errorf("buy threshold (%.1f) must exceed sell threshold (%.1f)", c.BuyThreshold, c.SellThreshold)
	}
	if c.MaxAdjustment < 0 {
		return fmt.Errorf("max adjustment must be >= 0, got %.2f", c.MaxAdjustment)
	}

	return nil
}
