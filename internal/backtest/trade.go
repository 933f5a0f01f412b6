package backtest

import (
	"errors"

	"SignalBench/internal/model"
)

var (
	// ErrNotFilled means a limit entry was never reached inside the entry window.
	ErrNotFilled = errors.New("entry not filled")
	// ErrNoForwardBars means the series ends before any bar after the entry.
	ErrNoForwardBars = errors.New("no bars after entry")
)

// Advance opens plan on series at index (the as-of bar) and walks forward until the
// stop, the target or the holding limit closes it. Only bars after the entry bar are
// inspected for exits. Exits at stop or target fill at the level itself.
func Advance(plan *model.TradePlan, series *model.Series, index int, cfg Config) (*model.Trade, error) {
	cfg = cfg.withDefaults()
	bars := series.Bars
	entry := index

	if cfg.FillMode == FillLimit {
		if index+1 >= len(bars) {
			return nil, ErrNoForwardBars
		}
		entry = -1
		for j := index + 1; j <= index+cfg.EntryWindowDays && j < len(bars); j++ {
			if bars[j].Low <= plan.EntryPrice {
				entry = j
				break
			}
		}
		if entry < 0 {
			return nil, ErrNotFilled
		}
	}
	if entry+1 >= len(bars) {
		return nil, ErrNoForwardBars
	}

	last := entry + cfg.MaxHoldDays
	if last > len(bars)-1 {
		last = len(bars) - 1
	}

	t := &model.Trade{
		Plan:      *plan,
		EntryDate: model.Day(bars[entry].Time),
	}
	for j := entry + 1; j <= last; j++ {
		b := bars[j]
		hitStop := b.Low <= plan.StopPrice
		hitTarget := b.High >= plan.TargetPrice
		if hitStop && hitTarget {
			if cfg.SameBarPolicy == TargetFirst {
				hitStop = false
			} else {
				hitTarget = false
			}
		}
		switch {
		case hitStop:
			return closeTrade(t, b, j-entry, model.ExitStop, plan.StopPrice), nil
		case hitTarget:
			return closeTrade(t, b, j-entry, model.ExitTarget, plan.TargetPrice), nil
		}
	}
	b := bars[last]
	return closeTrade(t, b, last-entry, model.ExitTimeExit, b.Close), nil
}

func closeTrade(t *model.Trade, b model.OHLCV, held int, reason model.ExitReason, price float64) *model.Trade {
	t.ExitDate = model.Day(b.Time)
	t.ExitReason = reason
	t.ExitPrice = price
	t.BarsHeld = held
	t.PnLPct = (price - t.Plan.EntryPrice) / t.Plan.EntryPrice * 100
	return t
}
