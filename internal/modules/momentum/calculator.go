// Package momentum computes return-based momentum over multiple
// lookback windows.
package momentum

import (
	"fmt"
	"sort"

	"github.com/aristath/vantage/pkg/formulas"
)

// Momentum holds per-window returns plus their average. Windows
// without enough history are absent from ByWindow and excluded from
// the average.
type Momentum struct {
	ByWindow map[int]float64 `json:"by_window"`
	Average  float64         `json:"average"`
	// Decided is false when no window could be computed at all
	Decided bool `json:"decided"`
}

// Calculator computes momentum over the configured windows
type Calculator struct {
	windows []int
}

// NewCalculator creates a calculator for the given lookback windows
// (in trading sessions, e.g. 10/30/60)
func NewCalculator(windows []int) *Calculator {
	return &Calculator{windows: windows}
}

// Calculate computes the momentum for a close-price series
func (c *Calculator) Calculate(closes []float64) Momentum {
	m := Momentum{ByWindow: make(map[int]float64, len(c.windows))}

	sum := 0.0
	for _, w := range c.windows {
		r := formulas.WindowReturn(closes, w)
		if r == nil {
			continue
		}
		m.ByWindow[w] = *r
		sum += *r
	}

	if len(m.ByWindow) > 0 {
		m.Average = sum / float64(len(m.ByWindow))
		m.Decided = true
	}

	return m
}

// Describe renders the strongest window for factor labels,
// e.g. "momentum 30d +4.2%"
func (m Momentum) Describe() string {
	if !m.Decided {
		return "momentum unavailable"
	}

	windows := make([]int, 0, len(m.ByWindow))
	for w := range m.ByWindow {
		windows = append(windows, w)
	}
	sort.Ints(windows)

	// Equal magnitudes resolve to the shortest window
	bestWindow := 0
	bestAbs := -1.0
	for _, w := range windows {
		abs := m.ByWindow[w]
		if abs < 0 {
			abs = -abs
		}
		if abs > bestAbs {
			bestAbs = abs
			bestWindow = w
		}
	}

	return fmt.Sprintf("momentum %dd %+.1f%%", bestWindow, m.ByWindow[bestWindow]*100)
}
