package indicator

import "SignalBench/internal/calculator"

// RelativeStrengthWindow is the lookback, in bars, of the benchmark comparison.
const RelativeStrengthWindow = 20

var relativeStrength = Indicator{
	ID:          "relative_strength",
	Category:    Adjustment,
	Output:      Stepped,
	Points:      5,
	MinBars:     RelativeStrengthWindow + 1,
	Description: "performance ratio vs benchmark above 1.10 adds 5, above 1.0 adds 2, otherwise subtracts 2",
	ready: func(in Input) bool {
		bi := benchmarkIndex(in)
		return bi >= RelativeStrengthWindow && in.Benchmark.Bars[bi-RelativeStrengthWindow].Close > 0 &&
			in.Series.Bars[in.Index-RelativeStrengthWindow].Close > 0
	},
	score: func(in Input) float64 {
		bi := benchmarkIndex(in)
		bars, bench := in.Series.Bars, in.Benchmark.Bars
		own := bars[in.Index].Close / bars[in.Index-RelativeStrengthWindow].Close
		ref := bench[bi].Close / bench[bi-RelativeStrengthWindow].Close
		if ref == 0 {
			return 0
		}
		ratio := own / ref
		switch {
		case ratio > 1.10:
			return 5
		case ratio > 1.0:
			return 2
		default:
			return -2
		}
	},
}

func benchmarkIndex(in Input) int {
	if in.Benchmark == nil || len(in.Benchmark.Bars) == 0 {
		return -1
	}
	return in.Benchmark.IndexAtOrBefore(in.Bar().Time)
}

var overextension = stepped("overextension", Adjustment, 6, 20,
	"close more than 15% above SMA20 subtracts 6, more than 10% subtracts 3",
	func(in Input) float64 {
		closes := calculator.Closes(in.Window())
		sma, err := calculator.CalculateSMA(closes, 20)
		if err != nil || sma == 0 {
			return 0
		}
		ext := closes[len(closes)-1]/sma - 1
		switch {
		case ext > 0.15:
			return -6
		case ext > 0.10:
			return -3
		default:
			return 0
		}
	})
