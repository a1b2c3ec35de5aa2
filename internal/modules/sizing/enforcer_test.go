package sizing

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/regime"
	"github.com/aristath/vantage/internal/modules/risk"
)

func newEnforcer() *Enforcer {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewEnforcer(config.DefaultConstitution().Limits, log)
}

func riskOn() regime.RegimeState {
	return regime.RegimeState{State: regime.StateRiskOn, Score: 80}
}

func riskOff() regime.RegimeState {
	return regime.RegimeState{State: regime.StateRiskOff, Score: 10}
}

func emptyExposure(total float64) Exposure {
	return Exposure{
		TotalValue: total,
		Cash:       total,
		ByTicker:   map[string]float64{},
		ByClass:    map[domain.AssetClass]float64{},
	}
}

func TestAllowedSize_BaseCaps(t *testing.T) {
	e := newEnforcer()

	equity := e.AllowedSize(domain.AssetClassEquity, risk.LevelMedium, riskOn())
	crypto := e.AllowedSize(domain.AssetClassCrypto, risk.LevelMedium, riskOn())

	assert.Equal(t, 0.10, equity.MaxPercent)
	assert.Equal(t, 0.05, crypto.MaxPercent)
}

func TestAllowedSize_HighRiskHalvesCap(t *testing.T) {
	e := newEnforcer()

	d := e.AllowedSize(domain.AssetClassEquity, risk.LevelHigh, riskOn())

	assert.Equal(t, 0.05, d.MaxPercent)
}

func TestAllowedSize_DefensiveRegimeHalvesCap(t *testing.T) {
	e := newEnforcer()

	d := e.AllowedSize(domain.AssetClassEquity, risk.LevelMedium, riskOff())

	assert.Equal(t, 0.05, d.MaxPercent)

	// Both halvings stack
	d = e.AllowedSize(domain.AssetClassEquity, risk.LevelHigh, riskOff())
	assert.Equal(t, 0.025, d.MaxPercent)
}

func TestCheckBuy_AllowsWithinLimits(t *testing.T) {
	d := newEnforcer().CheckBuy("AAPL", domain.AssetClassEquity, 500, emptyExposure(10000), risk.LevelMedium, riskOn())

	assert.False(t, d.Blocked)
	assert.Empty(t, d.Reason)
}

func TestCheckBuy_BlocksOversizedPosition(t *testing.T) {
	// 15% of a 10k portfolio against a 10% cap
	d := newEnforcer().CheckBuy("AAPL", domain.AssetClassEquity, 1500, emptyExposure(10000), risk.LevelMedium, riskOn())

	require.True(t, d.Blocked)
	assert.Contains(t, d.Reason, "position in AAPL")
}

func TestCheckBuy_BlocksAggregateClassBreach(t *testing.T) {
	exposure := Exposure{
		TotalValue: 10000,
		Cash:       3100,
		ByTicker:   map[string]float64{"BTC": 1000, "ETH": 950},
		ByClass:    map[domain.AssetClass]float64{domain.AssetClassCrypto: 1950},
	}

	// Aggregate crypto would hit 24.5% against a 20% cap
	d := newEnforcer().CheckBuy("SOL", domain.AssetClassCrypto, 500, exposure, risk.LevelMedium, riskOn())

	require.True(t, d.Blocked)
	assert.Contains(t, d.Reason, "aggregate CRYPTO")
}

func TestCheckBuy_BlocksCashReserveBreach(t *testing.T) {
	exposure := Exposure{
		TotalValue: 10000,
		Cash:       1200,
		ByTicker:   map[string]float64{},
		ByClass:    map[domain.AssetClass]float64{},
	}

	// Cash would fall to 4% against a 10% floor
	d := newEnforcer().CheckBuy("AAPL", domain.AssetClassEquity, 800, exposure, risk.LevelMedium, riskOn())

	require.True(t, d.Blocked)
	assert.Contains(t, d.Reason, "cash reserve")
}

func TestCheckBuy_DefensiveModeTightensEverything(t *testing.T) {
	// 800 is 8% of the portfolio: fine normally, over the halved 5% cap
	d := newEnforcer().CheckBuy("AAPL", domain.AssetClassEquity, 800, emptyExposure(10000), risk.LevelMedium, riskOn())
	assert.False(t, d.Blocked)

	d = newEnforcer().CheckBuy("AAPL", domain.AssetClassEquity, 800, emptyExposure(10000), risk.LevelMedium, riskOff())
	assert.True(t, d.Blocked)
}

func TestCheckBuy_EmptyPortfolioBlocked(t *testing.T) {
	d := newEnforcer().CheckBuy("AAPL", domain.AssetClassEquity, 100, emptyExposure(0), risk.LevelMedium, riskOn())

	require.True(t, d.Blocked)
	assert.Equal(t, "portfolio has no value", d.Reason)
}

func TestMaxBuyValue_PassesItsOwnCheck(t *testing.T) {
	e := newEnforcer()
	exposure := Exposure{
		TotalValue: 10000,
		Cash:       5000,
		ByTicker:   map[string]float64{"AAPL": 400},
		ByClass:    map[domain.AssetClass]float64{domain.AssetClassEquity: 5000},
	}

	max := e.MaxBuyValue("AAPL", domain.AssetClassEquity, exposure, risk.LevelMedium, riskOn())
	require.Greater(t, max, 0.0)

	d := e.CheckBuy("AAPL", domain.AssetClassEquity, max, exposure, risk.LevelMedium, riskOn())
	assert.False(t, d.Blocked)

	d = e.CheckBuy("AAPL", domain.AssetClassEquity, max+1, exposure, risk.LevelMedium, riskOn())
	assert.True(t, d.Blocked)
}

func TestMaxBuyValue_ZeroWhenNoHeadroom(t *testing.T) {
	e := newEnforcer()
	exposure := Exposure{
		TotalValue: 10000,
		Cash:       900, // below the 10% reserve already
		ByTicker:   map[string]float64{},
		ByClass:    map[domain.AssetClass]float64{},
	}

	assert.Equal(t, 0.0, e.MaxBuyValue("AAPL", domain.AssetClassEquity, exposure, risk.LevelMedium, riskOn()))
	assert.Equal(t, 0.0, e.MaxBuyValue("AAPL", domain.AssetClassEquity, emptyExposure(0), risk.LevelMedium, riskOn()))
}
