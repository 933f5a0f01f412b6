package indicator

import "SignalBench/internal/calculator"

var volumeSurge = binary("volume_surge", Volume, 6, 21,
	"up bar on volume above 1.5x the prior 20-bar average",
	func(in Input) bool {
		w := in.Window()
		avg, err := calculator.CalculateAverageVolume(w, 20)
		if err != nil || avg <= 0 {
			return false
		}
		b := in.Bar()
		return b.Volume > 1.5*avg && b.Close > b.Open
	})

var obvTrend = binary("obv_trend", Volume, 4, 11,
	"on-balance volume above its value 10 bars ago",
	func(in Input) bool {
		obv, err := calculator.CalculateOBVSeries(in.Window())
		if err != nil || len(obv) < 11 {
			return false
		}
		n := len(obv) - 1
		return obv[n] > obv[n-10]
	})
