package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/aristath/vantage/internal/config"
	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/momentum"
	"github.com/aristath/vantage/pkg/formulas"
)

// signalPriority breaks ties between factors with equal weighted
// contribution: technical > ml > momentum > regime
var signalPriority = map[string]int{
	SignalTechnical: 0,
	SignalML:        1,
	SignalMomentum:  2,
	SignalRegime:    3,
}

// Engine fuses the four sub-signals under the constitution's
// immutable weights, applies the bounded adjustment channel and the
// regime veto.
type Engine struct {
	constitution *config.Constitution
	log          zerolog.Logger
}

// NewEngine creates a new composite scoring engine
func NewEngine(constitution *config.Constitution, log zerolog.Logger) *Engine {
	return &Engine{
		constitution: constitution,
		log:          log.With().Str("service", "scoring").Logger(),
	}
}

// Score produces the full breakdown for one asset.
//
// Invariants:
//   - Composite is the exact weighted sum of the four sub-scores
//   - the adjustment channel never moves Final by more than the
//     constitution bound (±5 points in version 1); larger requests
//     are clamped, never rejected
//   - RISK_OFF downgrades a would-be BUY to HOLD after the
//     adjustment, so the channel cannot bypass the veto
func (e *Engine) Score(in Input) Breakdown {
	log := e.log.With().Str("ticker", in.Snapshot.Ticker).Logger()
	w := e.constitution.Weights

	b := Breakdown{
		Ticker:              in.Snapshot.Ticker,
		Technical:           technicalScore(in.Indicators, in.Snapshot, e.constitution.Technical, log),
		ML:                  e.mlScore(in.MLProbability, log),
		Momentum:            e.momentumScore(in.Momentum, log),
		Regime:              domain.Computed(in.Regime.Score),
		ConstitutionVersion: e.constitution.Version,
		ScoredAt:            time.Now().UTC(),
	}

	b.Composite = b.Technical.Value*w.Technical +
		b.ML.Value*w.ML +
		b.Momentum.Value*w.Momentum +
		b.Regime.Value*w.Regime

	b.Adjustment = formulas.Clamp(in.Adjustment, -e.constitution.MaxAdjustment, e.constitution.MaxAdjustment)
	if b.Adjustment != in.Adjustment {
		log.Info().
			Float64("requested", in.Adjustment).
			Float64("applied", b.Adjustment).
			Msg("Context adjustment clamped to bound")
	}

	b.Final = formulas.Clamp(b.Composite+b.Adjustment, 0, 100)

	b.Signal = e.signalFor(b.Final)
	b.Reason = fmt.Sprintf("composite %.1f", b.Final)

	// Regime veto: absolute, applied last, logged
	if in.Regime.Defensive() && b.Signal == domain.ActionBuy {
		b.Signal = domain.ActionHold
		b.VetoApplied = true
		b.Reason = fmt.Sprintf("regime veto: RISK_OFF suppresses BUY (composite %.1f)", b.Final)
		log.Warn().
			Float64("final", b.Final).
			Msg("Regime veto applied: BUY downgraded to HOLD")
	}

	b.PositiveFactors, b.RiskFactors = e.factors(b, in)

	return b
}

// mlScore maps classifier probability to 0-100; unavailable models
// degrade to neutral rather than failing the whole score
func (e *Engine) mlScore(probability *float64, log zerolog.Logger) domain.SubScore {
	if probability == nil {
		return domain.Degraded("probability model unavailable", log)
	}
	return domain.Computed(formulas.Clamp(*probability*100, 0, 100))
}

// momentumScore maps the blended multi-window return to 0-100; ±10%
// average momentum saturates the scale
func (e *Engine) momentumScore(m momentum.Momentum, log zerolog.Logger) domain.SubScore {
	if !m.Decided {
		return domain.Degraded("insufficient history for momentum", log)
	}
	return domain.Computed(formulas.Clamp(50+m.Average*500, 0, 100))
}

// signalFor maps the final score to an action band
func (e *Engine) signalFor(final float64) domain.Action {
	switch {
	case final >= e.constitution.BuyThreshold:
		return domain.ActionBuy
	case final <= e.constitution.SellThreshold:
		return domain.ActionSell
	default:
		return domain.ActionHold
	}
}

// factors selects the top-3 positive and top-3 risk contributors by
// magnitude of weighted contribution relative to neutral, ties broken
// by fixed signal priority
func (e *Engine) factors(b Breakdown, in Input) (positive, risk []Factor) {
	w := e.constitution.Weights

	all := []Factor{
		{Signal: SignalTechnical, Label: technicalLabel(b.Technical), Contribution: (b.Technical.Value - domain.NeutralScore) * w.Technical},
		{Signal: SignalML, Label: mlLabel(b.ML), Contribution: (b.ML.Value - domain.NeutralScore) * w.ML},
		{Signal: SignalMomentum, Label: in.Momentum.Describe(), Contribution: (b.Momentum.Value - domain.NeutralScore) * w.Momentum},
		{Signal: SignalRegime, Label: regimeLabel(in), Contribution: (b.Regime.Value - domain.NeutralScore) * w.Regime},
	}

	sort.SliceStable(all, func(i, j int) bool {
		ai, aj := abs(all[i].Contribution), abs(all[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return signalPriority[all[i].Signal] < signalPriority[all[j].Signal]
	})

	positive = lo.Filter(all, func(f Factor, _ int) bool { return f.Contribution > 0 })
	risk = lo.Filter(all, func(f Factor, _ int) bool { return f.Contribution < 0 })

	if len(positive) > 3 {
		positive = positive[:3]
	}
	if len(risk) > 3 {
		risk = risk[:3]
	}

	return positive, risk
}

func technicalLabel(s domain.SubScore) string {
	switch {
	case s.Degraded:
		return "technicals unavailable"
	case s.Value >= 65:
		return "strong technical setup"
	case s.Value <= 35:
		return "weak technical setup"
	default:
		return "mixed technicals"
	}
}

func mlLabel(s domain.SubScore) string {
	switch {
	case s.Degraded:
		return "model unavailable"
	case s.Value >= 65:
		return fmt.Sprintf("model favorable (%.0f%%)", s.Value)
	case s.Value <= 35:
		return fmt.Sprintf("model unfavorable (%.0f%%)", s.Value)
	default:
		return "model neutral"
	}
}

func regimeLabel(in Input) string {
	return fmt.Sprintf("market regime %s", in.Regime.State)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
