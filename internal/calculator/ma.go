package calculator

import (
	"errors"
	"fmt"

	"SignalBench/internal/model"

	"github.com/markcheno/go-talib"
)

// ErrInsufficientData is returned when a window is shorter than the calculation needs.
var ErrInsufficientData = errors.New("not enough data")

func insufficient(name string, have, need int) error {
	return fmt.Errorf("%s: have %d values, need %d: %w", name, have, need, ErrInsufficientData)
}

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, insufficient("sma", len(prices), period)
	}
	out := talib.Sma(prices, period)
	return out[len(out)-1], nil
}

// CalculateEMASeries returns the exponential moving average for every position of prices.
// Positions before period-1 are zero.
func CalculateEMASeries(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(prices) < period {
		return nil, insufficient("ema", len(prices), period)
	}
	return talib.Ema(prices, period), nil
}

// CalculateEMA returns the latest exponential moving average value.
func CalculateEMA(prices []float64, period int) (float64, error) {
	out, err := CalculateEMASeries(prices, period)
	if err != nil {
		return 0, err
	}
	return out[len(out)-1], nil
}

// Closes extracts closing prices.
func Closes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts high prices.
func Highs(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts low prices.
func Lows(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts traded volume.
func Volumes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
