package indicator

import "SignalBench/internal/calculator"

var rsiMomentum = stepped("rsi_momentum", Momentum, 8, 20,
	"RSI14 in 55..70 scores 8, 50..55 scores 4, above 70 scores 2",
	func(in Input) float64 {
		rsi, err := calculator.CalculateRSI(calculator.Closes(in.Window()), 14)
		if err != nil {
			return 0
		}
		switch {
		case rsi > 70:
			return 2
		case rsi >= 55:
			return 8
		case rsi >= 50:
			return 4
		default:
			return 0
		}
	})

var macdHistogram = continuous("macd_histogram", Momentum, 5, 40,
	"MACD(12,26,9) histogram as basis points of close, halved",
	func(in Input) float64 {
		closes := calculator.Closes(in.Window())
		m, err := calculator.CalculateMACD(closes, 12, 26, 9)
		if err != nil {
			return 0
		}
		c := closes[len(closes)-1]
		if c == 0 {
			return 0
		}
		return 200 * m.Histogram / c
	})

var rocMomentum = continuous("roc_momentum", Momentum, 5, 12,
	"10-bar rate of change in percent, halved",
	func(in Input) float64 {
		roc, err := calculator.CalculateROC(calculator.Closes(in.Window()), 10)
		if err != nil {
			return 0
		}
		return roc / 2
	})
