package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by loaders when an instrument has no series.
var ErrNotFound = errors.New("series not found")

// ErrIncomparable is returned when two experiments were sampled differently.
var ErrIncomparable = errors.New("experiments are not comparable")

// DataIntegrityError reports a malformed series. It aborts scoring for that instrument only.
// Index is -1 when the problem is not tied to one bar.
type DataIntegrityError struct {
	Instrument string
	Index      int
	Reason     string
}

func (e *DataIntegrityError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("data integrity: %s: %s", e.Instrument, e.Reason)
	}
	return fmt.Sprintf("data integrity: %s at bar %d: %s", e.Instrument, e.Index, e.Reason)
}

// ConfigurationError reports an invalid weight configuration. It aborts the whole run.
type ConfigurationError struct {
	Strategy  string
	Category  string
	Indicator string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	path := e.Strategy
	if e.Category != "" {
		path += "." + e.Category
	}
	if e.Indicator != "" {
		path += "." + e.Indicator
	}
	if path == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", path, e.Reason)
}

// DegeneratePlanError means no plan with a positive risk distance could be built.
type DegeneratePlanError struct {
	Instrument string
	Reason     string
}

func (e *DegeneratePlanError) Error() string {
	return fmt.Sprintf("degenerate plan for %s: %s", e.Instrument, e.Reason)
}
