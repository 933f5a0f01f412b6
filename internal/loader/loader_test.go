package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SignalBench/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Date,Open,High,Low,Close,Volume
2024-01-03,101,103,100,102,1200
2024-01-02,100,102,99,101,1000
2024-01-04,102,104,101,103,1500
`

func TestParseCSVSortsBars(t *testing.T) {
	s, err := ParseCSV("AAA", strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, s.Bars, 3)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Bars[0].Time)
	assert.Equal(t, 103.0, s.Bars[2].Close)
	assert.NoError(t, s.Validate())
}

func TestParseCSVRejectsDuplicatesAndBadInput(t *testing.T) {
	dup := sample + "2024-01-03,1,1,1,1,1\n"
	_, err := ParseCSV("AAA", strings.NewReader(dup))
	var de *model.DataIntegrityError
	assert.True(t, errors.As(err, &de))

	_, err = ParseCSV("AAA", strings.NewReader("date,open,high,low,close\n"))
	assert.ErrorContains(t, err, "volume")

	_, err = ParseCSV("AAA", strings.NewReader("date,open,high,low,close,volume\nyesterday,1,1,1,1,1\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestCSVLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAA.csv"), []byte(sample), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	src := RandomWalk("BBB", SyntheticSpec{Bars: 40, Seed: 5}, 1)
	f, err := os.Create(filepath.Join(dir, "BBB.csv"))
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, src))
	require.NoError(t, f.Close())

	l := NewCSVLoader(dir)
	ids, err := l.Instruments()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, ids)

	got, err := l.Load("BBB")
	require.NoError(t, err)
	assert.Equal(t, src.Bars, got.Bars)

	_, err = l.Load("ZZZ")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSyntheticIsDeterministic(t *testing.T) {
	spec := SyntheticSpec{Instruments: 4, Bars: 120, Seed: 9}
	a, b := Synthetic(spec), Synthetic(spec)
	ids, _ := a.Instruments()
	assert.Equal(t, []string{"BENCH", "SYN000", "SYN001", "SYN002", "SYN003"}, ids)
	for _, id := range ids {
		sa, _ := a.Load(id)
		sb, _ := b.Load(id)
		assert.Equal(t, sa, sb)
		assert.Len(t, sa.Bars, 120)
		assert.NoError(t, sa.Validate())
		for _, bar := range sa.Bars {
			assert.NotEqual(t, time.Saturday, bar.Time.Weekday())
			assert.NotEqual(t, time.Sunday, bar.Time.Weekday())
		}
	}
	other, _ := Synthetic(SyntheticSpec{Instruments: 4, Bars: 120, Seed: 10}).Load("SYN000")
	first, _ := a.Load("SYN000")
	assert.NotEqual(t, first.Bars[50].Close, other.Bars[50].Close)
}

func TestCollect(t *testing.T) {
	l := Synthetic(SyntheticSpec{Instruments: 3, Bars: 30, Seed: 1})

	u, err := NewCollector(l).Collect(nil, "BENCH")
	require.NoError(t, err)
	assert.Equal(t, []string{"SYN000", "SYN001", "SYN002"}, u.Instruments())
	require.NotNil(t, u.Benchmark)
	assert.NotNil(t, u.Get("SYN001"))
	assert.Nil(t, u.Get("NOPE"))
	assert.Len(t, u.Dates(), 30)

	u, err = NewCollector(l).Collect([]string{"SYN002", "GONE", "SYN000"}, "MISSING")
	require.NoError(t, err)
	assert.Equal(t, []string{"SYN000", "SYN002"}, u.Instruments())
	assert.Nil(t, u.Benchmark)
	require.Len(t, u.Skipped, 1)
	assert.Equal(t, model.Exclusion{Instrument: "GONE", Reason: model.ReasonNotFound}, u.Skipped[0])
}

func TestCollectSkipsMalformedSeries(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("GOOD.csv", sample)
	write("DUP.csv", sample+"2024-01-02,1,1,1,1,1\n")
	write("BAD.csv", sample+"2024-01-05,1,1,1,abc,1\n")
	write("BENCH.csv", "Date,Open\n")

	u, err := NewCollector(NewCSVLoader(dir)).Collect(nil, "BENCH")
	require.NoError(t, err)
	assert.Equal(t, []string{"GOOD"}, u.Instruments())
	assert.Nil(t, u.Benchmark)

	require.Len(t, u.Skipped, 2)
	skipped := map[string]model.Exclusion{}
	for _, e := range u.Skipped {
		skipped[e.Instrument] = e
	}
	for _, id := range []string{"BAD", "DUP"} {
		e, ok := skipped[id]
		require.True(t, ok, id)
		assert.Equal(t, model.ReasonDataIntegrity, e.Reason)
		assert.Contains(t, e.Detail, id)
	}
	assert.Contains(t, skipped["DUP"].Detail, "duplicate")

	_, err = NewCSVLoader(filepath.Join(dir, "nowhere")).Instruments()
	assert.Error(t, err)
}

func TestProbabilityTable(t *testing.T) {
	tbl, err := ParseProbabilities(strings.NewReader("instrument,date,probability\nAAA,2024-01-02,0.61\nBBB, 2024-01-02 ,0.4\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	p, err := tbl.PredictWinProbability("AAA", time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0.61, p)

	_, err = tbl.PredictWinProbability("AAA", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = ParseProbabilities(strings.NewReader("instrument,date,probability\nAAA,2024-01-02,high\n"))
	assert.Error(t, err)
	_, err = ParseProbabilities(strings.NewReader("instrument,date,probability\nAAA,2024-01-02\n"))
	assert.Error(t, err)
}
