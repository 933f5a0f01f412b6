package indicator

import "math"

var bullishEngulfing = binary("bullish_engulfing", Candlestick, 5, 2,
	"up bar whose body engulfs the prior down bar",
	func(in Input) bool {
		prev := in.Series.Bars[in.Index-1]
		cur := in.Bar()
		if prev.Close >= prev.Open || cur.Close <= cur.Open {
			return false
		}
		return cur.Open <= prev.Close && cur.Close >= prev.Open &&
			cur.Close-cur.Open > prev.Open-prev.Close
	})

var hammer = binary("hammer", Candlestick, 4, 6,
	"lower shadow at least twice the body after a 4-bar decline",
	func(in Input) bool {
		b := in.Bar()
		body := math.Abs(b.Close - b.Open)
		if body == 0 || b.High <= b.Low {
			return false
		}
		lower := math.Min(b.Open, b.Close) - b.Low
		upper := b.High - math.Max(b.Open, b.Close)
		if lower < 2*body || upper > body {
			return false
		}
		bars := in.Series.Bars
		return bars[in.Index-1].Close < bars[in.Index-5].Close
	})
