package loader

import (
	"fmt"
	"sort"

	"SignalBench/internal/model"
)

// MemoryLoader serves series held in memory, for tests and generated universes.
type MemoryLoader struct {
	series map[string]*model.Series
}

// NewMemoryLoader indexes series by instrument.
func NewMemoryLoader(series ...*model.Series) *MemoryLoader {
	m := &MemoryLoader{series: make(map[string]*model.Series, len(series))}
	for _, s := range series {
		m.series[s.Instrument] = s
	}
	return m
}

func (m *MemoryLoader) Name() string { return "memory" }

func (m *MemoryLoader) Load(instrument string) (*model.Series, error) {
	s, ok := m.series[instrument]
	if !ok {
		return nil, fmt.Errorf("%s: %w", instrument, model.ErrNotFound)
	}
	return s, nil
}

func (m *MemoryLoader) Instruments() ([]string, error) {
	out := make([]string, 0, len(m.series))
	for id := range m.series {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
