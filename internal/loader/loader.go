// Package loader supplies instrument series to the simulator. Market-data acquisition
// is outside this package: it reads what is already on disk or in memory.
package loader

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"SignalBench/internal/model"

	"github.com/rs/zerolog/log"
)

// SeriesLoader returns chronologically sorted, duplicate-free daily series.
type SeriesLoader interface {
	// Load returns the series for instrument, or an error wrapping model.ErrNotFound.
	Load(instrument string) (*model.Series, error)
	// Instruments lists every instrument the loader can serve, sorted.
	Instruments() ([]string, error)
	Name() string
}

// Universe is the set of series one backtest or experiment runs over.
type Universe struct {
	Series    []*model.Series
	Benchmark *model.Series
	Skipped   []model.Exclusion
}

// Get returns the series for instrument, or nil.
func (u *Universe) Get(instrument string) *model.Series {
	i := sort.Search(len(u.Series), func(i int) bool { return u.Series[i].Instrument >= instrument })
	if i < len(u.Series) && u.Series[i].Instrument == instrument {
		return u.Series[i]
	}
	return nil
}

// Instruments returns the instrument ids in order.
func (u *Universe) Instruments() []string {
	out := make([]string, len(u.Series))
	for i, s := range u.Series {
		out[i] = s.Instrument
	}
	return out
}

// Dates returns the sorted union of bar dates across the universe.
func (u *Universe) Dates() []time.Time {
	seen := map[time.Time]struct{}{}
	for _, s := range u.Series {
		for _, b := range s.Bars {
			seen[model.Day(b.Time)] = struct{}{}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Collector assembles a Universe from a SeriesLoader.
type Collector struct {
	Loader SeriesLoader
}

// NewCollector creates a new Collector.
func NewCollector(l SeriesLoader) *Collector {
	return &Collector{Loader: l}
}

// Collect loads instruments (every instrument except the benchmark when empty) and the
// benchmark. Missing and malformed instruments are recorded in Skipped; a missing or
// malformed benchmark only disables the relative-strength comparison. Other loader
// failures abort.
func (c *Collector) Collect(instruments []string, benchmark string) (*Universe, error) {
	if len(instruments) == 0 {
		all, err := c.Loader.Instruments()
		if err != nil {
			return nil, fmt.Errorf("list instruments: %w", err)
		}
		for _, id := range all {
			if id != benchmark {
				instruments = append(instruments, id)
			}
		}
	}

	u := &Universe{}
	for _, id := range instruments {
		s, err := c.Loader.Load(id)
		if errors.Is(err, model.ErrNotFound) {
			log.Warn().Str("instrument", id).Str("loader", c.Loader.Name()).Msg("Series not found, skipped")
			u.Skipped = append(u.Skipped, model.Exclusion{Instrument: id, Reason: model.ReasonNotFound})
			continue
		}
		var de *model.DataIntegrityError
		if errors.As(err, &de) {
			log.Warn().Err(err).Str("instrument", id).Msg("Series is malformed, skipped")
			u.Skipped = append(u.Skipped, model.Exclusion{Instrument: id, Reason: model.ReasonDataIntegrity, Detail: err.Error()})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", id, err)
		}
		if err := s.Validate(); err != nil {
			log.Warn().Err(err).Str("instrument", id).Msg("Series has integrity problems, affected dates will be excluded")
		}
		u.Series = append(u.Series, s)
	}
	sort.Slice(u.Series, func(i, j int) bool { return u.Series[i].Instrument < u.Series[j].Instrument })

	if benchmark != "" {
		b, err := c.Loader.Load(benchmark)
		switch {
		case errors.Is(err, model.ErrNotFound):
			log.Warn().Str("benchmark", benchmark).Msg("Benchmark not found, relative strength disabled")
		case errors.As(err, new(*model.DataIntegrityError)):
			log.Warn().Err(err).Str("benchmark", benchmark).Msg("Benchmark is malformed, relative strength disabled")
		case err != nil:
			return nil, fmt.Errorf("load benchmark %s: %w", benchmark, err)
		default:
			u.Benchmark = b
		}
	}

	log.Info().
		Str("loader", c.Loader.Name()).
		Int("instruments", len(u.Series)).
		Int("skipped", len(u.Skipped)).
		Bool("benchmark", u.Benchmark != nil).
		Msg("Universe collected")
	return u, nil
}
