package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConstitution_Validates(t *testing.T) {
	c := DefaultConstitution()

	require.NoError(t, c.Validate())
	assert.Equal(t, "1", c.Version)
	assert.Equal(t, 0.40, c.Weights.Technical)
	assert.Equal(t, 0.30, c.Weights.ML)
	assert.Equal(t, 0.20, c.Weights.Momentum)
	assert.Equal(t, 0.10, c.Weights.Regime)
	assert.Equal(t, 5.0, c.MaxAdjustment)
}

func TestValidate_RejectsWeightsNotSummingToOne(t *testing.T) {
	c := DefaultConstitution()
	c.Weights.Technical = 0.50 // sum now 1.10

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights sum")
}

func TestValidate_RejectsBadTechnicalBlend(t *testing.T) {
	c := DefaultConstitution()
	c.Technical.RSI = 0.0

	assert.Error(t, c.Validate())
}

func TestValidate_RejectsBadRiskWeights(t *testing.T) {
	c := DefaultConstitution()
	c.Risk.Volatility = 0.50 // sum now 1.10

	assert.Error(t, c.Validate())
}

func TestValidate_RejectsInvertedThresholds(t *testing.T) {
	c := DefaultConstitution()
	c.BuyThreshold = 40
	c.SellThreshold = 70

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buy threshold")
}

func TestValidate_RejectsOutOfRangeLimits(t *testing.T) {
	c := DefaultConstitution()
	c.Limits.SingleEquity = 1.5

	assert.Error(t, c.Validate())

	c = DefaultConstitution()
	c.Limits.CashReserve = 0

	assert.Error(t, c.Validate())
}

func TestValidate_RejectsMissingVersion(t *testing.T) {
	c := DefaultConstitution()
	c.Version = ""

	assert.Error(t, c.Validate())
}

func TestValidate_RejectsEmptyMomentumWindows(t *testing.T) {
	c := DefaultConstitution()
	c.MomentumWindows = nil

	assert.Error(t, c.Validate())
}

func TestLoadConstitution_EmptyPathUsesDefault(t *testing.T) {
	c, err := LoadConstitution("")

	require.NoError(t, err)
	assert.Equal(t, DefaultConstitution(), c)
}
