package strategy

import (
	"fmt"

	"SignalBench/internal/indicator"
	"SignalBench/internal/model"
	"SignalBench/internal/weights"
)

// Tiers defines the score thresholds, highest first.
var Tiers = []struct {
	MinScore float64
	Tier     model.SignalTier
}{
	{50, model.TierExtreme},
	{35, model.TierHigh},
	{20, model.TierMedium},
	{10, model.TierLow},
}

// DefaultTier is the tier for scores below every threshold.
const DefaultTier = model.TierWeak

// mapTier maps a total score to a SignalTier.
func mapTier(total float64) model.SignalTier {
	for _, t := range Tiers {
		if total >= t.MinScore {
			return t.Tier
		}
	}
	return DefaultTier
}

// Score computes the composite breakdown of series at index under strategy s.
//
// Only indicators with a non-zero multiplier are evaluated. Indicators lacking history
// are listed in Abstained and contribute nothing. Adjustment-category indicators
// (relative strength, overextension) land in Adjustments, everything else in
// Contributions; Total is the sum of both. benchmark may be nil.
func Score(series *model.Series, index int, benchmark *model.Series, s model.Strategy, cfg *weights.Config) (*model.ScoreBreakdown, error) {
	if !s.Valid() {
		return nil, &model.ConfigurationError{Strategy: string(s), Reason: "unknown strategy"}
	}
	if cfg == nil {
		return nil, &model.ConfigurationError{Strategy: string(s), Reason: "no weight configuration"}
	}
	if series == nil || index < 0 || index >= len(series.Bars) {
		name := ""
		if series != nil {
			name = series.Instrument
		}
		return nil, &model.DataIntegrityError{Instrument: name, Index: index, Reason: "as-of index out of range"}
	}
	if err := series.ValidateThrough(index); err != nil {
		return nil, err
	}

	b := &model.ScoreBreakdown{
		Instrument:    series.Instrument,
		AsOf:          model.Day(series.Bars[index].Time),
		Strategy:      s,
		Contributions: map[string]float64{},
		Adjustments:   map[string]float64{},
	}
	in := indicator.Input{Series: series, Index: index, Benchmark: benchmark}

	for _, e := range cfg.Registry().Entries(s) {
		m := cfg.Multiplier(e.Key())
		if m == 0 {
			continue
		}
		if e.Abstains(in) {
			b.Abstained = append(b.Abstained, e.ID)
			continue
		}
		raw := e.Score(in)
		points := raw * m
		b.Details = append(b.Details, model.Contribution{
			Indicator:  e.ID,
			Category:   string(e.Category),
			Raw:        raw,
			Multiplier: m,
			Points:     points,
		})
		if e.Category == indicator.Adjustment {
			b.Adjustments[e.ID] = points
		} else {
			b.Contributions[e.ID] = points
		}
		b.Total += points
	}
	b.Tier = mapTier(b.Total)
	return b, nil
}

// Explain returns a one-line summary: total, tier, then every non-zero indicator in
// evaluation order.
func Explain(b *model.ScoreBreakdown) string {
	out := fmt.Sprintf("%s %.1f (%s)", b.Instrument, b.Total, b.Tier)
	for _, d := range b.Details {
		if d.Points != 0 {
			out += fmt.Sprintf(" %s=%+.1f", d.Indicator, d.Points)
		}
	}
	return out
}
