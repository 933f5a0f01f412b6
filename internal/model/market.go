package model

import (
	"math"
	"time"
)

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series holds the chronologically ordered daily bars of one instrument.
type Series struct {
	Instrument string  `json:"instrument"`
	Bars       []OHLCV `json:"bars"`
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Validate checks the whole series. See ValidateThrough.
func (s *Series) Validate() error {
	return s.ValidateThrough(s.Len() - 1)
}

// ValidateThrough checks bars [0, index] for strictly increasing dates and sane prices.
// Bars after index are never inspected.
func (s *Series) ValidateThrough(index int) error {
	if s == nil {
		return &DataIntegrityError{Index: -1, Reason: "nil series"}
	}
	if index >= len(s.Bars) {
		index = len(s.Bars) - 1
	}
	for i := 0; i <= index; i++ {
		b := s.Bars[i]
		if b.Time.IsZero() {
			return &DataIntegrityError{Instrument: s.Instrument, Index: i, Reason: "missing bar date"}
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return &DataIntegrityError{Instrument: s.Instrument, Index: i, Reason: "dates not strictly increasing"}
		}
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return &DataIntegrityError{Instrument: s.Instrument, Index: i, Reason: "non-finite or negative value"}
			}
		}
		if b.High < b.Low {
			return &DataIntegrityError{Instrument: s.Instrument, Index: i, Reason: "high below low"}
		}
	}
	return nil
}

// IndexOf returns the index of the bar dated exactly on day (calendar date, UTC), or -1.
func (s *Series) IndexOf(day time.Time) int {
	if s == nil {
		return -1
	}
	d := Day(day)
	lo, hi := 0, len(s.Bars)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		bd := Day(s.Bars[mid].Time)
		switch {
		case bd.Equal(d):
			return mid
		case bd.Before(d):
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}

// IndexAtOrBefore returns the index of the last bar dated on or before day, or -1.
func (s *Series) IndexAtOrBefore(day time.Time) int {
	if s == nil {
		return -1
	}
	d := Day(day)
	idx := -1
	lo, hi := 0, len(s.Bars)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if !Day(s.Bars[mid].Time).After(d) {
			idx = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return idx
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
