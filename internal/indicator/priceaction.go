package indicator

import "SignalBench/internal/calculator"

var breakout20d = binary("breakout_20d", PriceAction, 8, 21,
	"close above the highest high of the prior 20 bars",
	func(in Input) bool {
		prior := in.Series.Bars[in.Index-20 : in.Index]
		high, _, err := calculator.CalculateRange(prior, 20)
		if err != nil {
			return false
		}
		return in.Bar().Close > high
	})

var higherLows = binary("higher_lows", PriceAction, 4, 15,
	"three consecutive rising 5-bar lows",
	func(in Input) bool {
		bars := in.Series.Bars
		i := in.Index + 1
		_, l1, err1 := calculator.CalculateRange(bars[i-5:i], 5)
		_, l2, err2 := calculator.CalculateRange(bars[i-10:i-5], 5)
		_, l3, err3 := calculator.CalculateRange(bars[i-15:i-10], 5)
		if err1 != nil || err2 != nil || err3 != nil {
			return false
		}
		return l1 > l2 && l2 > l3
	})

var nearHigh52w = stepped("near_high_52w", PriceAction, 5, 60,
	"close within 5% of the trailing 52-week high scores 5, within 10% scores 2",
	func(in Input) float64 {
		high, _, err := calculator.Calculate52WeekRange(in.Window())
		if err != nil || high <= 0 {
			return 0
		}
		c := in.Bar().Close
		switch {
		case c >= 0.95*high:
			return 5
		case c >= 0.90*high:
			return 2
		default:
			return 0
		}
	})
