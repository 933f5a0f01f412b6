// Package planner turns a scored candidate into entry, stop and target levels.
package planner

import (
	"fmt"
	"math"

	"SignalBench/internal/calculator"
	"SignalBench/internal/model"
)

// Discounts is the entry discount, in ATR multiples, per tier. Stronger signals chase more.
var Discounts = map[model.SignalTier]float64{
	model.TierExtreme: 0.10,
	model.TierHigh:    0.25,
	model.TierMedium:  0.40,
	model.TierLow:     0.50,
	model.TierWeak:    0.60,
}

// Trend-following and mean-reversion multipliers.
const (
	TrendStopATR       = 2.0
	TrendTargetATR     = 3.0
	SwingLowBars       = 5
	SwingLowBuffer     = 0.985
	HighWaterBars      = 20
	ReversionStopATR   = 1.5
	ReversionTargetATR = 2.0
	ReversionEMA       = 20
	DefaultATRPeriod   = 14
	historyWindowBars  = 260
)

// Planner builds trade plans. The zero value uses a 14-bar ATR.
type Planner struct {
	ATRPeriod int
}

// New returns a planner with the given ATR period (DefaultATRPeriod when <= 0).
func New(atrPeriod int) *Planner {
	if atrPeriod <= 0 {
		atrPeriod = DefaultATRPeriod
	}
	return &Planner{ATRPeriod: atrPeriod}
}

// Discount returns the entry discount for tier.
func Discount(tier model.SignalTier) float64 {
	if d, ok := Discounts[tier]; ok {
		return d
	}
	return Discounts[model.TierWeak]
}

// Plan computes the plan for b using bars up to and including index. A candidate with
// zero or undefined ATR, or whose levels are not strictly ordered stop < entry < target,
// yields a *model.DegeneratePlanError.
func (p *Planner) Plan(b *model.ScoreBreakdown, series *model.Series, index int) (*model.TradePlan, error) {
	if series == nil || index < 0 || index >= len(series.Bars) {
		return nil, &model.DegeneratePlanError{Instrument: b.Instrument, Reason: "no bar at as-of index"}
	}
	period := p.ATRPeriod
	if period <= 0 {
		period = DefaultATRPeriod
	}
	start := index + 1 - historyWindowBars
	if start < 0 {
		start = 0
	}
	bars := series.Bars[start : index+1]
	last := bars[len(bars)-1]

	atr, err := calculator.CalculateATR(bars, period)
	if err != nil {
		return nil, &model.DegeneratePlanError{Instrument: b.Instrument, Reason: fmt.Sprintf("ATR undefined: %v", err)}
	}
	if math.IsNaN(atr) || math.IsInf(atr, 0) || atr <= 0 {
		return nil, &model.DegeneratePlanError{Instrument: b.Instrument, Reason: "zero ATR"}
	}
	if last.Close <= 0 {
		return nil, &model.DegeneratePlanError{Instrument: b.Instrument, Reason: "non-positive close"}
	}

	plan := &model.TradePlan{
		Instrument: b.Instrument,
		AsOf:       model.Day(last.Time),
		Strategy:   b.Strategy,
		Tier:       b.Tier,
		ATR:        atr,
		Score:      b.Total,
	}

	switch b.Strategy {
	case model.MeanReversion:
		plan.EntryPrice = last.Close
		plan.StopPrice = plan.EntryPrice - ReversionStopATR*atr
		plan.TargetPrice = plan.EntryPrice + ReversionTargetATR*atr
		if ema, err := calculator.CalculateEMA(calculator.Closes(bars), ReversionEMA); err == nil && ema > plan.TargetPrice {
			plan.TargetPrice = ema
		}
	case model.TrendFollowing:
		plan.DiscountUsed = Discount(b.Tier)
		plan.EntryPrice = last.Close - plan.DiscountUsed*atr
		_, swingLow, _ := calculator.CalculateRange(bars, SwingLowBars)
		plan.StopPrice = math.Min(plan.EntryPrice-TrendStopATR*atr, swingLow*SwingLowBuffer)
		high20, _, _ := calculator.CalculateRange(bars, HighWaterBars)
		plan.TargetPrice = math.Max(high20, plan.EntryPrice+TrendTargetATR*atr)
	default:
		return nil, &model.ConfigurationError{Strategy: string(b.Strategy), Reason: "unknown strategy"}
	}

	if !(plan.StopPrice < plan.EntryPrice && plan.EntryPrice < plan.TargetPrice) {
		return nil, &model.DegeneratePlanError{Instrument: b.Instrument,
			Reason: fmt.Sprintf("levels out of order: stop %.4f entry %.4f target %.4f", plan.StopPrice, plan.EntryPrice, plan.TargetPrice)}
	}
	if plan.EntryPrice <= 0 {
		return nil, &model.DegeneratePlanError{Instrument: b.Instrument, Reason: "non-positive entry"}
	}
	return plan, nil
}
