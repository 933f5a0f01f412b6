package calculator

import (
	"errors"
	"math"

	"SignalBench/internal/model"
)

// CalculateRange scans the most recent lookback bars and returns the high and low.
// Shorter windows use every bar available.
func CalculateRange(bars []model.OHLCV, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	if lookback <= 0 {
		return 0, 0, errors.New("lookback must be positive")
	}
	n := len(bars)
	start := n - lookback
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// Calculate52WeekRange returns the high and low of the last 252 trading days.
func Calculate52WeekRange(bars []model.OHLCV) (high, low float64, err error) {
	return CalculateRange(bars, 252)
}

// CalculateRangePosition returns where current sits within [low, high] (0.0~1.0).
func CalculateRangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}

// CalculateStochasticK returns the raw %K: where the last close sits inside the high/low
// range of the last period bars, 0..100. A zero range yields 50.
func CalculateStochasticK(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period {
		return 0, insufficient("stochastic", len(bars), period)
	}
	high, low, err := CalculateRange(bars, period)
	if err != nil {
		return 0, err
	}
	pos, err := CalculateRangePosition(bars[len(bars)-1].Close, high, low)
	if err != nil {
		return 0, err
	}
	return pos * 100, nil
}
