package loader

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"SignalBench/internal/model"
)

// SyntheticSpec parameterises a generated random-walk universe.
type SyntheticSpec struct {
	Instruments int
	Bars        int
	Start       time.Time
	Seed        uint64
	Drift       float64 // mean daily log return
	Volatility  float64 // daily log return stddev
}

func (s SyntheticSpec) withDefaults() SyntheticSpec {
	if s.Instruments == 0 {
		s.Instruments = 20
	}
	if s.Bars == 0 {
		s.Bars = 300
	}
	if s.Start.IsZero() {
		s.Start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if s.Volatility == 0 {
		s.Volatility = 0.02
	}
	return s
}

// Synthetic generates geometric random walks on consecutive weekdays, named SYN000...,
// plus a benchmark named BENCH. The same spec always yields the same bars.
func Synthetic(spec SyntheticSpec) *MemoryLoader {
	spec = spec.withDefaults()
	series := make([]*model.Series, 0, spec.Instruments+1)
	for i := 0; i < spec.Instruments; i++ {
		series = append(series, RandomWalk(fmt.Sprintf("SYN%03d", i), spec, uint64(i)))
	}
	bench := spec
	bench.Volatility = spec.Volatility / 2
	series = append(series, RandomWalk("BENCH", bench, math.MaxUint32))
	return NewMemoryLoader(series...)
}

// RandomWalk generates one instrument's series. stream separates instruments sharing a seed.
func RandomWalk(instrument string, spec SyntheticSpec, stream uint64) *model.Series {
	spec = spec.withDefaults()
	rng := rand.New(rand.NewPCG(spec.Seed, stream))
	s := &model.Series{Instrument: instrument, Bars: make([]model.OHLCV, 0, spec.Bars)}
	price := 20 + rng.Float64()*180
	day := spec.Start
	for len(s.Bars) < spec.Bars {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			day = day.AddDate(0, 0, 1)
			continue
		}
		next := price * math.Exp(spec.Drift+rng.NormFloat64()*spec.Volatility)
		wick := spec.Volatility / 2
		s.Bars = append(s.Bars, model.OHLCV{
			Time:   day,
			Open:   price,
			High:   math.Max(price, next) * (1 + rng.Float64()*wick),
			Low:    math.Min(price, next) * (1 - rng.Float64()*wick),
			Close:  next,
			Volume: math.Round(1e5 * math.Exp(rng.NormFloat64()*0.3)),
		})
		price = next
		day = day.AddDate(0, 0, 1)
	}
	return s
}
