package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"SignalBench/internal/model"
)

type probKey struct {
	instrument string
	day        time.Time
}

// ProbabilityTable serves precomputed win probabilities exported by an external
// classifier as CSV rows of instrument, date, probability.
type ProbabilityTable struct {
	values map[probKey]float64
}

// LoadProbabilities reads a probability table from path.
func LoadProbabilities(path string) (*ProbabilityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open probabilities: %w", err)
	}
	defer f.Close()
	return ParseProbabilities(f)
}

// ParseProbabilities reads a probability table. The first row is a header.
func ParseProbabilities(r io.Reader) (*ProbabilityTable, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = 3
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &ProbabilityTable{values: map[probKey]float64{}}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		day, err := parseDate(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: probability: %w", line, err)
		}
		t.values[probKey{strings.TrimSpace(rec[0]), day}] = p
	}
	return t, nil
}

// PredictWinProbability returns the stored probability or an error wrapping model.ErrNotFound.
func (t *ProbabilityTable) PredictWinProbability(instrument string, asOf time.Time) (float64, error) {
	p, ok := t.values[probKey{instrument, model.Day(asOf)}]
	if !ok {
		return 0, fmt.Errorf("%w: no probability for %s on %s", model.ErrNotFound, instrument, asOf.Format("2006-01-02"))
	}
	return p, nil
}

// Len returns the number of stored predictions.
func (t *ProbabilityTable) Len() int { return len(t.values) }
