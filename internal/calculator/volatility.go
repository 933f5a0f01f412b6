package calculator

import (
	"errors"

	"SignalBench/internal/model"

	"github.com/markcheno/go-talib"
)

// CalculateATR returns the latest Wilder average true range.
// Requires at least period+1 bars.
func CalculateATR(bars []model.OHLCV, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	if len(bars) < period+1 {
		return 0, insufficient("atr", len(bars), period+1)
	}
	out := talib.Atr(Highs(bars), Lows(bars), Closes(bars), period)
	return out[len(out)-1], nil
}

// DirectionalMovement is the latest ADX reading together with its directional indices.
type DirectionalMovement struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// CalculateADX computes ADX, +DI and -DI over period.
func CalculateADX(bars []model.OHLCV, period int) (DirectionalMovement, error) {
	if period < 2 {
		return DirectionalMovement{}, errors.New("period must be at least 2")
	}
	need := 3 * period
	if len(bars) < need {
		return DirectionalMovement{}, insufficient("adx", len(bars), need)
	}
	h, l, c := Highs(bars), Lows(bars), Closes(bars)
	n := len(bars) - 1
	return DirectionalMovement{
		ADX:     talib.Adx(h, l, c, period)[n],
		PlusDI:  talib.PlusDI(h, l, c, period)[n],
		MinusDI: talib.MinusDI(h, l, c, period)[n],
	}, nil
}

// Bands is the latest Bollinger band reading.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// CalculateBollinger computes SMA-based Bollinger bands with k population deviations.
func CalculateBollinger(closes []float64, period int, k float64) (Bands, error) {
	if period < 2 {
		return Bands{}, errors.New("period must be at least 2")
	}
	if len(closes) < period {
		return Bands{}, insufficient("bollinger", len(closes), period)
	}
	up, mid, lo := talib.BBands(closes, period, k, k, talib.SMA)
	n := len(closes) - 1
	return Bands{Upper: up[n], Middle: mid[n], Lower: lo[n]}, nil
}

// CalculateStdDev returns the population standard deviation of the last period values.
func CalculateStdDev(values []float64, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	if len(values) < period {
		return 0, insufficient("stddev", len(values), period)
	}
	out := talib.StdDev(values, period, 1.0)
	return out[len(out)-1], nil
}

// CalculateReturnStdDev returns the population standard deviation of the last window
// close-to-close fractional returns.
func CalculateReturnStdDev(closes []float64, window int) (float64, error) {
	if window < 2 {
		return 0, errors.New("window must be at least 2")
	}
	if len(closes) < window+1 {
		return 0, insufficient("return stddev", len(closes), window+1)
	}
	tail := closes[len(closes)-window-1:]
	rets := make([]float64, window)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			continue
		}
		rets[i-1] = tail[i]/tail[i-1] - 1
	}
	return CalculateStdDev(rets, window)
}
