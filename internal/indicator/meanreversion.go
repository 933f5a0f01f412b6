package indicator

import "SignalBench/internal/calculator"

var rsiOversold = stepped("rsi_oversold", MeanReversion, 10, 20,
	"RSI14 below 25 scores 10, below 30 scores 7, below 35 scores 4",
	func(in Input) float64 {
		rsi, err := calculator.CalculateRSI(calculator.Closes(in.Window()), 14)
		if err != nil {
			return 0
		}
		switch {
		case rsi < 25:
			return 10
		case rsi < 30:
			return 7
		case rsi < 35:
			return 4
		default:
			return 0
		}
	})

var bollingerLower = binary("bollinger_lower", MeanReversion, 8, 20,
	"close below the 20-bar, 2-sigma lower Bollinger band",
	func(in Input) bool {
		closes := calculator.Closes(in.Window())
		bands, err := calculator.CalculateBollinger(closes, 20, 2)
		if err != nil {
			return false
		}
		return closes[len(closes)-1] < bands.Lower
	})

var zscoreReversion = continuous("zscore_reversion", MeanReversion, 9, 20,
	"negative 20-bar z-score of close, tripled",
	func(in Input) float64 {
		closes := calculator.Closes(in.Window())
		sd, err := calculator.CalculateStdDev(closes, 20)
		if err != nil || sd == 0 {
			return 0
		}
		mean, err := calculator.CalculateSMA(closes, 20)
		if err != nil {
			return 0
		}
		z := (closes[len(closes)-1] - mean) / sd
		return -3 * z
	})

var stochasticOversold = stepped("stochastic_oversold", MeanReversion, 6, 14,
	"raw %K14 below 10 scores 6, below 20 scores 3",
	func(in Input) float64 {
		w := in.Window()
		k, err := calculator.CalculateStochasticK(w, 14)
		if err != nil {
			return 0
		}
		switch {
		case k < 10:
			return 6
		case k < 20:
			return 3
		default:
			return 0
		}
	})

var sma50Distance = continuous("sma50_distance", MeanReversion, 5, 50,
	"percent below SMA50, halved",
	func(in Input) float64 {
		closes := calculator.Closes(in.Window())
		sma, err := calculator.CalculateSMA(closes, 50)
		if err != nil || sma == 0 {
			return 0
		}
		pct := (closes[len(closes)-1]/sma - 1) * 100
		return -pct / 2
	})
