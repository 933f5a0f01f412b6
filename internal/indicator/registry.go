package indicator

import (
	"fmt"
	"sort"
	"sync"

	"SignalBench/internal/model"
)

// Key identifies an indicator within one strategy. The same ID under two strategies
// is two distinct keys.
type Key struct {
	Strategy model.Strategy
	ID       string
}

func (k Key) String() string { return string(k.Strategy) + "." + k.ID }

// Entry binds an indicator to a strategy with its default multiplier.
type Entry struct {
	Indicator
	Strategy          model.Strategy
	DefaultMultiplier float64
}

// Key returns the strategy-qualified key.
func (e Entry) Key() Key { return Key{Strategy: e.Strategy, ID: e.ID} }

// Registry is an immutable lookup table of indicator entries.
type Registry struct {
	entries map[Key]Entry
	order   map[model.Strategy][]Key
}

// NewRegistry builds a registry, rejecting duplicate keys and unknown strategies or categories.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make(map[Key]Entry, len(entries)),
		order:   make(map[model.Strategy][]Key),
	}
	for _, e := range entries {
		if !e.Strategy.Valid() {
			return nil, fmt.Errorf("indicator %s: unknown strategy %q", e.ID, e.Strategy)
		}
		if !e.Category.Valid() {
			return nil, fmt.Errorf("indicator %s: unknown category %q", e.ID, e.Category)
		}
		if e.score == nil {
			return nil, fmt.Errorf("indicator %s: no score function", e.ID)
		}
		if e.DefaultMultiplier < 0 {
			return nil, fmt.Errorf("indicator %s: negative default multiplier", e.ID)
		}
		k := e.Key()
		if _, dup := r.entries[k]; dup {
			return nil, fmt.Errorf("duplicate indicator %s", k)
		}
		r.entries[k] = e
		r.order[e.Strategy] = append(r.order[e.Strategy], k)
	}
	for s := range r.order {
		keys := r.order[s]
		sort.SliceStable(keys, func(i, j int) bool {
			ci, cj := categoryRank(r.entries[keys[i]].Category), categoryRank(r.entries[keys[j]].Category)
			if ci != cj {
				return ci < cj
			}
			return keys[i].ID < keys[j].ID
		})
	}
	return r, nil
}

func categoryRank(c Category) int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return len(Categories)
}

// Lookup returns the entry for key.
func (r *Registry) Lookup(k Key) (Entry, bool) {
	e, ok := r.entries[k]
	return e, ok
}

// Entries returns the strategy's entries ordered by category then id.
func (r *Registry) Entries(s model.Strategy) []Entry {
	keys := r.order[s]
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = r.entries[k]
	}
	return out
}

// Len returns the number of entries across all strategies.
func (r *Registry) Len() int { return len(r.entries) }

func tf(ind Indicator, m float64) Entry {
	return Entry{Indicator: ind, Strategy: model.TrendFollowing, DefaultMultiplier: m}
}

func mr(ind Indicator, m float64) Entry {
	return Entry{Indicator: ind, Strategy: model.MeanReversion, DefaultMultiplier: m}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := NewRegistry(
			tf(maAlignment, 1), tf(emaCross, 1), tf(adxTrend, 1),
			tf(rsiMomentum, 1), tf(macdHistogram, 1), tf(rocMomentum, 1),
			tf(volumeSurge, 1), tf(obvTrend, 1),
			tf(bullishEngulfing, 1), tf(hammer, 1),
			tf(breakout20d, 1), tf(higherLows, 1), tf(nearHigh52w, 1),
			tf(relativeStrength, 1), tf(overextension, 1),

			mr(rsiOversold, 1), mr(bollingerLower, 1), mr(zscoreReversion, 1),
			mr(stochasticOversold, 1), mr(sma50Distance, 1),
			mr(volumeSurge, 0.5),
			mr(bullishEngulfing, 1), mr(hammer, 1),
			mr(relativeStrength, 0.5),
		)
		if err != nil {
			panic(err)
		}
		defaultReg = reg
	})
	return defaultReg
}
