package experiment

import (
	"math/rand/v2"
	"sort"
	"time"

	"SignalBench/internal/model"
)

// runPlan is the sampled date and instrument subset of one run.
type runPlan struct {
	Index    int
	Date     time.Time
	Universe []*model.Series
}

// eligibleDates returns the calendar dates with at least minLookback earlier bars and
// maxHold later bars. The benchmark calendar is used when present.
func eligibleDates(calendar []time.Time, minLookback, maxHold int, from, to time.Time) []time.Time {
	var out []time.Time
	for i, d := range calendar {
		if i < minLookback || i+maxHold >= len(calendar) {
			continue
		}
		if !from.IsZero() && d.Before(model.Day(from)) {
			continue
		}
		if !to.IsZero() && d.After(model.Day(to)) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// planRuns draws every run's date and instrument subset. Run r depends only on
// (seed, r), so adding runs never changes earlier ones.
func planRuns(seed uint64, runs, sampleSize int, dates []time.Time, universe []*model.Series) []runPlan {
	plans := make([]runPlan, runs)
	for r := 0; r < runs; r++ {
		rng := rand.New(rand.NewPCG(seed, uint64(r)))
		p := runPlan{Index: r, Date: dates[rng.IntN(len(dates))]}
		if sampleSize > 0 && sampleSize < len(universe) {
			picked := rng.Perm(len(universe))[:sampleSize]
			sort.Ints(picked)
			p.Universe = make([]*model.Series, sampleSize)
			for i, idx := range picked {
				p.Universe[i] = universe[idx]
			}
		} else {
			p.Universe = universe
		}
		plans[r] = p
	}
	return plans
}
