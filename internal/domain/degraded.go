package domain

import "github.com/rs/zerolog"

// NeutralScore is the documented fallback used whenever a sub-metric
// cannot be computed from available data.
const NeutralScore = 50.0

// SubScore is a 0-100 sub-metric value that remembers whether it was
// computed from real data or substituted with the neutral default.
// Centralizing the fallback here keeps degradation auditable: every
// scorer goes through Degraded() instead of inventing its own
// neutral-value path.
type SubScore struct {
	Value    float64 `json:"value"`
	Degraded bool    `json:"degraded"`
	Reason   string  `json:"degraded_reason,omitempty"`
}

// Computed wraps a successfully computed sub-metric value
func Computed(value float64) SubScore {
	return SubScore{Value: value}
}

// Degraded returns the neutral fallback tagged with the reason the
// real value could not be computed. The substitution is logged so it
// is never silent.
func Degraded(reason string, log zerolog.Logger) SubScore {
	log.Warn().Str("reason", reason).Float64("neutral", NeutralScore).
		Msg("Sub-score degraded to neutral default")
	return SubScore{Value: NeutralScore, Degraded: true, Reason: reason}
}
