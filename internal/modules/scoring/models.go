// Package scoring fuses technical, ML, momentum and regime signals
// into a single bounded decision-support score.
package scoring

import (
	"time"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/indicators"
	"github.com/aristath/vantage/internal/modules/momentum"
	"github.com/aristath/vantage/internal/modules/regime"
)

// Signal priority order used for factor tie-breaking:
// technical > ml > momentum > regime
const (
	SignalTechnical = "technical"
	SignalML        = "ml"
	SignalMomentum  = "momentum"
	SignalRegime    = "regime"
)

// Input carries everything the engine needs for one score
type Input struct {
	Snapshot   domain.AssetSnapshot
	Indicators indicators.IndicatorSet
	Momentum   momentum.Momentum
	// MLProbability is the classifier output in [0,1]; nil when the
	// provider is unavailable (degrades to neutral, never fails)
	MLProbability *float64
	Regime        regime.RegimeState
	// Adjustment is the external context adjustment request in
	// absolute composite points; clamped to the constitution bound
	Adjustment float64
}

// Factor is one labeled contributor to the composite score
type Factor struct {
	Signal       string  `json:"signal"`
	Label        string  `json:"label"`
	Contribution float64 `json:"contribution"`
}

// Breakdown is the full scoring result
type Breakdown struct {
	Ticker string `json:"ticker"`

	Technical domain.SubScore `json:"technical"`
	ML        domain.SubScore `json:"ml_probability"`
	Momentum  domain.SubScore `json:"momentum"`
	Regime    domain.SubScore `json:"regime"`

	// Composite is the exact weighted sum of the four sub-scores,
	// before the adjustment channel
	Composite float64 `json:"composite"`
	// Adjustment is the applied (post-clamp) adjustment
	Adjustment float64 `json:"adjustment"`
	// Final is composite + adjustment bounded to [0,100]
	Final float64 `json:"final"`

	Signal      domain.Action `json:"signal"`
	VetoApplied bool          `json:"veto_applied"`
	Reason      string        `json:"reason"`

	PositiveFactors []Factor `json:"positive_factors"`
	RiskFactors     []Factor `json:"risk_factors"`

	ConstitutionVersion string    `json:"constitution_version"`
	ScoredAt            time.Time `json:"scored_at"`
}
