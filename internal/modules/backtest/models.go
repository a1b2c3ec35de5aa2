// Package backtest replays the scoring and execution rules over
// stored history to compare strategy variants.
package backtest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/vantage/internal/domain"
)

// Strategy variants
const (
	VariantComposite = "composite"
	VariantMLOnly    = "ml_only"
	VariantBenchmark = "benchmark"
)

var knownVariants = map[string]bool{
	VariantComposite: true,
	VariantMLOnly:    true,
	VariantBenchmark: true,
}

// Request describes one backtest run
type Request struct {
	Tickers        []string  `json:"tickers"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	InitialCapital float64   `json:"initial_capital"`
	// Variants defaults to all known variants when empty
	Variants []string `json:"variants"`
}

// Validate normalizes and checks the request. Tickers are upper-cased
// and sorted so identical inputs always replay identically.
func (r *Request) Validate() error {
	if len(r.Tickers) == 0 {
		return fmt.Errorf("%w: at least one ticker is required", domain.ErrValidation)
	}
	for i, t := range r.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			return fmt.Errorf("%w: empty ticker", domain.ErrValidation)
		}
		r.Tickers[i] = t
	}
	sort.Strings(r.Tickers)

	if r.Start.IsZero() || r.End.IsZero() || !r.Start.Before(r.End) {
		return fmt.Errorf("%w: start must be before end", domain.ErrValidation)
	}
	if r.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %.2f", domain.ErrValidation, r.InitialCapital)
	}

	if len(r.Variants) == 0 {
		r.Variants = []string{VariantComposite, VariantMLOnly, VariantBenchmark}
	}
	seen := make(map[string]bool, len(r.Variants))
	deduped := r.Variants[:0]
	for _, v := range r.Variants {
		if !knownVariants[v] {
			return fmt.Errorf("%w: unknown variant %q", domain.ErrValidation, v)
		}
		if !seen[v] {
			seen[v] = true
			deduped = append(deduped, v)
		}
	}
	r.Variants = deduped

	return nil
}

// EquityPoint is one day of the equity curve
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Metrics summarize one variant's equity curve
type Metrics struct {
	TotalReturn float64 `json:"total_return"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Sharpe      float64 `json:"sharpe"`
	WinRate     float64 `json:"win_rate"`
	Calmar      float64 `json:"calmar"`
	Trades      int     `json:"trades"`
}

// Result is the outcome for one strategy variant
type Result struct {
	Variant     string        `json:"variant"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Metrics     Metrics       `json:"metrics"`
}
