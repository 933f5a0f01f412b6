package calculator

import (
	"errors"

	"SignalBench/internal/model"

	"github.com/markcheno/go-talib"
)

// CalculateOBVSeries returns on-balance volume for every bar.
func CalculateOBVSeries(bars []model.OHLCV) ([]float64, error) {
	if len(bars) == 0 {
		return nil, errors.New("no bars provided")
	}
	return talib.Obv(Closes(bars), Volumes(bars)), nil
}

// CalculateAverageVolume returns the mean volume of the period bars before the last one.
// The last bar is excluded so it can be compared against its own history.
func CalculateAverageVolume(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 0, insufficient("average volume", len(bars), period+1)
	}
	vols := Volumes(bars[len(bars)-period-1 : len(bars)-1])
	return CalculateSMA(vols, period)
}
