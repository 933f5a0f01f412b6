package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalBench/internal/model"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesFromCloses(id string, closes []float64) *model.Series {
	s := &model.Series{Instrument: id}
	prev := closes[0]
	for i, c := range closes {
		s.Bars = append(s.Bars, model.OHLCV{
			Time:   day0.AddDate(0, 0, i),
			Open:   prev,
			High:   math.Max(prev, c) + 0.5,
			Low:    math.Min(prev, c) - 0.5,
			Close:  c,
			Volume: 1000,
		})
		prev = c
	}
	return s
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func last(s *model.Series) Input {
	return Input{Series: s, Index: len(s.Bars) - 1}
}

func TestBreakout20d_Triggers(t *testing.T) {
	s := seriesFromCloses("BRK", append(constant(30, 100), 105))
	assert.Equal(t, 8.0, breakout20d.Score(last(s)))

	flat := seriesFromCloses("FLAT", constant(31, 100))
	assert.Equal(t, 0.0, breakout20d.Score(last(flat)))
}

func TestBullishEngulfing(t *testing.T) {
	s := seriesFromCloses("ENG", constant(5, 100))
	s.Bars = append(s.Bars,
		model.OHLCV{Time: day0.AddDate(0, 0, 5), Open: 101, High: 101.5, Low: 98.5, Close: 99, Volume: 1000},
		model.OHLCV{Time: day0.AddDate(0, 0, 6), Open: 98.5, High: 102.5, Low: 98, Close: 102, Volume: 1000},
	)
	assert.Equal(t, 5.0, bullishEngulfing.Score(last(s)))
	assert.Equal(t, 0.0, bullishEngulfing.Score(Input{Series: s, Index: 5}))
}

func TestHammer_AfterDecline(t *testing.T) {
	s := seriesFromCloses("HAM", []float64{110, 108, 106, 104, 102, 100})
	s.Bars = append(s.Bars, model.OHLCV{Time: day0.AddDate(0, 0, 6), Open: 99.5, High: 100.1, Low: 97, Close: 100, Volume: 1000})
	assert.Equal(t, 4.0, hammer.Score(last(s)))
}

func TestRSIOversold_FallingSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 200 - float64(i)*2
	}
	assert.Equal(t, 10.0, rsiOversold.Score(last(seriesFromCloses("DN", closes))))
}

func TestVolumeSurge(t *testing.T) {
	s := seriesFromCloses("VOL", append(constant(25, 100), 101))
	s.Bars[len(s.Bars)-1].Volume = 2000
	assert.Equal(t, 6.0, volumeSurge.Score(last(s)))

	s.Bars[len(s.Bars)-1].Volume = 1400
	assert.Equal(t, 0.0, volumeSurge.Score(last(s)))
}

func TestRelativeStrength(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100 * (1 + 0.01*float64(i))
	}
	s := seriesFromCloses("RS", closes)
	bench := seriesFromCloses("BENCH", constant(25, 100))

	in := Input{Series: s, Index: 24, Benchmark: bench}
	assert.False(t, relativeStrength.Abstains(in))
	assert.Equal(t, 5.0, relativeStrength.Score(in))

	weak := seriesFromCloses("WEAK", constant(25, 100))
	assert.Equal(t, -2.0, relativeStrength.Score(Input{Series: weak, Index: 24, Benchmark: bench}))

	noBench := Input{Series: s, Index: 24}
	assert.True(t, relativeStrength.Abstains(noBench))
	assert.Equal(t, 0.0, relativeStrength.Score(noBench))

	short := seriesFromCloses("BENCH", constant(10, 100))
	assert.True(t, relativeStrength.Abstains(Input{Series: s, Index: 24, Benchmark: short}))
}

func TestAbstainsOnShortHistory(t *testing.T) {
	s := seriesFromCloses("SHORT", constant(10, 100))
	for _, e := range Default().Entries(model.TrendFollowing) {
		if e.MinBars <= 10 {
			continue
		}
		assert.True(t, e.Abstains(last(s)), e.ID)
		assert.Equal(t, 0.0, e.Score(last(s)), e.ID)
	}
}

func TestScoresIgnoreFutureBars(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/7) + float64(i)*0.3
	}
	s := seriesFromCloses("LA", closes)
	bench := seriesFromCloses("BENCH", constant(120, 100))
	in := Input{Series: s, Index: 80, Benchmark: bench}

	before := map[string]float64{}
	for _, st := range model.Strategies {
		for _, e := range Default().Entries(st) {
			before[e.Key().String()] = e.Score(in)
		}
	}
	for i := 81; i < len(s.Bars); i++ {
		s.Bars[i].Close *= 3
		s.Bars[i].High *= 3
		s.Bars[i].Volume *= 10
		bench.Bars[i].Close *= 0.5
	}
	for _, st := range model.Strategies {
		for _, e := range Default().Entries(st) {
			assert.Equal(t, before[e.Key().String()], e.Score(in), e.Key().String())
		}
	}
}

func TestDefaultRegistry_StrategyScopedKeys(t *testing.T) {
	reg := Default()
	tfVol, ok := reg.Lookup(Key{Strategy: model.TrendFollowing, ID: "volume_surge"})
	require.True(t, ok)
	mrVol, ok := reg.Lookup(Key{Strategy: model.MeanReversion, ID: "volume_surge"})
	require.True(t, ok)
	assert.Equal(t, 1.0, tfVol.DefaultMultiplier)
	assert.Equal(t, 0.5, mrVol.DefaultMultiplier)
	assert.NotEqual(t, tfVol.Key(), mrVol.Key())

	_, ok = reg.Lookup(Key{Strategy: model.MeanReversion, ID: "breakout_20d"})
	assert.False(t, ok)
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(tf(hammer, 1), tf(hammer, 2))
	require.Error(t, err)

	_, err = NewRegistry(tf(hammer, 1), mr(hammer, 2))
	require.NoError(t, err)
}

func TestOutputKinds(t *testing.T) {
	for _, st := range model.Strategies {
		for _, e := range Default().Entries(st) {
			assert.Greater(t, e.Points, 0.0, e.ID)
			if e.Output == Binary {
				assert.Contains(t, []Category{Volume, Candlestick, PriceAction, Trend, MeanReversion}, e.Category, e.ID)
			}
		}
	}
	assert.Equal(t, "continuous", macdHistogram.Output.String())
	assert.Equal(t, "binary", hammer.Output.String())
}
