// Package indicator holds the closed set of scoring indicators and the registry that
// binds them to strategies.
package indicator

import (
	"math"

	"SignalBench/internal/model"
)

// Category groups indicators for bulk weight operations.
type Category string

const (
	Trend         Category = "trend"
	Momentum      Category = "momentum"
	Volume        Category = "volume"
	Candlestick   Category = "candlestick"
	PriceAction   Category = "price_action"
	MeanReversion Category = "mean_reversion"
	Adjustment    Category = "adjustment"
)

// Categories lists every category in a stable order.
var Categories = []Category{Trend, Momentum, Volume, Candlestick, PriceAction, MeanReversion, Adjustment}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Output describes how an indicator's raw value reacts to its multiplier.
type Output int

const (
	// Continuous values scale linearly with the multiplier.
	Continuous Output = iota
	// Stepped values pick one fixed magnitude from a threshold ladder.
	Stepped
	// Binary values are either 0 or the indicator's Points.
	Binary
)

func (o Output) String() string {
	switch o {
	case Continuous:
		return "continuous"
	case Stepped:
		return "stepped"
	default:
		return "binary"
	}
}

// maxWindow bounds how many trailing bars an indicator sees.
const maxWindow = 260

// Input is the read-only view an indicator scores. Only bars at or before Index are visible.
type Input struct {
	Series    *model.Series
	Index     int
	Benchmark *model.Series
}

// Window returns the trailing bars ending at Index.
func (in Input) Window() []model.OHLCV {
	if in.Series == nil || in.Index < 0 || in.Index >= len(in.Series.Bars) {
		return nil
	}
	start := in.Index + 1 - maxWindow
	if start < 0 {
		start = 0
	}
	return in.Series.Bars[start : in.Index+1]
}

// Bar returns the as-of bar.
func (in Input) Bar() model.OHLCV {
	return in.Series.Bars[in.Index]
}

// Indicator is one scoring rule.
type Indicator struct {
	ID          string
	Category    Category
	Output      Output
	Points      float64 // binary: value when triggered; stepped/continuous: largest magnitude
	MinBars     int
	Description string

	score func(Input) float64
	ready func(Input) bool
}

// Abstains reports whether the indicator lacks the history it needs at in.Index.
func (d Indicator) Abstains(in Input) bool {
	if in.Series == nil || in.Index < 0 || in.Index >= len(in.Series.Bars) {
		return true
	}
	if in.Index+1 < d.MinBars {
		return true
	}
	return d.ready != nil && !d.ready(in)
}

// Score returns the raw (unweighted) value, or 0 when the indicator abstains.
func (d Indicator) Score(in Input) float64 {
	if d.Abstains(in) {
		return 0
	}
	v := d.score(in)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func binary(id string, cat Category, points float64, minBars int, desc string, detect func(Input) bool) Indicator {
	return Indicator{
		ID: id, Category: cat, Output: Binary, Points: points, MinBars: minBars, Description: desc,
		score: func(in Input) float64 {
			if detect(in) {
				return points
			}
			return 0
		},
	}
}

func stepped(id string, cat Category, points float64, minBars int, desc string, fn func(Input) float64) Indicator {
	return Indicator{ID: id, Category: cat, Output: Stepped, Points: points, MinBars: minBars, Description: desc, score: fn}
}

func continuous(id string, cat Category, bound float64, minBars int, desc string, fn func(Input) float64) Indicator {
	return Indicator{
		ID: id, Category: cat, Output: Continuous, Points: bound, MinBars: minBars, Description: desc,
		score: func(in Input) float64 { return clamp(fn(in), -bound, bound) },
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
