package indicator

import "SignalBench/internal/calculator"

var maAlignment = stepped("ma_alignment", Trend, 10, 50,
	"close > SMA20 > SMA50 scores 10, close > SMA50 scores 4",
	func(in Input) float64 {
		closes := calculator.Closes(in.Window())
		sma20, err := calculator.CalculateSMA(closes, 20)
		if err != nil {
			return 0
		}
		sma50, err := calculator.CalculateSMA(closes, 50)
		if err != nil {
			return 0
		}
		c := closes[len(closes)-1]
		switch {
		case c > sma20 && sma20 > sma50:
			return 10
		case c > sma50:
			return 4
		default:
			return 0
		}
	})

var emaCross = binary("ema_cross", Trend, 8, 30,
	"EMA9 crossed above EMA21 within the last 3 bars",
	func(in Input) bool {
		closes := calculator.Closes(in.Window())
		fast, err := calculator.CalculateEMASeries(closes, 9)
		if err != nil {
			return false
		}
		slow, err := calculator.CalculateEMASeries(closes, 21)
		if err != nil {
			return false
		}
		n := len(closes) - 1
		if fast[n] <= slow[n] {
			return false
		}
		for j := n - 1; j >= n-3 && j >= 20; j-- {
			if fast[j] <= slow[j] {
				return true
			}
		}
		return false
	})

var adxTrend = stepped("adx_trend", Trend, 6, 45,
	"ADX14 >= 25 with +DI above -DI scores 6, ADX14 >= 20 scores 3",
	func(in Input) float64 {
		dm, err := calculator.CalculateADX(in.Window(), 14)
		if err != nil || dm.PlusDI <= dm.MinusDI {
			return 0
		}
		switch {
		case dm.ADX >= 25:
			return 6
		case dm.ADX >= 20:
			return 3
		default:
			return 0
		}
	})
