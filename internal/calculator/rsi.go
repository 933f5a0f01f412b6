package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"
)

// CalculateRSI computes the Wilder-smoothed RSI over the given period.
// Requires at least period+1 closes.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	if len(closes) < period+1 {
		return 0, insufficient("rsi", len(closes), period+1)
	}
	out := talib.Rsi(closes, period)
	rsi := out[len(out)-1]
	if rsi == 0 && flat(closes) {
		return 50.0, nil // no movement at all
	}
	return rsi, nil
}

func flat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// MACD is the latest reading of the moving average convergence divergence.
type MACD struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// CalculateMACD computes MACD(fast, slow, signal) on the closes.
func CalculateMACD(closes []float64, fast, slow, signal int) (MACD, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return MACD{}, errors.New("invalid macd periods")
	}
	need := slow + signal
	if len(closes) < need {
		return MACD{}, insufficient("macd", len(closes), need)
	}
	line, sig, hist := talib.Macd(closes, fast, slow, signal)
	n := len(closes) - 1
	return MACD{Line: line[n], Signal: sig[n], Histogram: hist[n]}, nil
}

// CalculateROC returns the percentage rate of change over period bars.
func CalculateROC(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 0, insufficient("roc", len(closes), period+1)
	}
	out := talib.Roc(closes, period)
	return out[len(out)-1], nil
}

