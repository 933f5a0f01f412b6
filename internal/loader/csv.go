package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"SignalBench/internal/model"
)

// CSVLoader reads <Dir>/<instrument>.csv files with a header row naming the columns
// date, open, high, low, close and volume (any order, case-insensitive).
type CSVLoader struct {
	Dir string
}

// NewCSVLoader creates a loader rooted at dir.
func NewCSVLoader(dir string) *CSVLoader {
	return &CSVLoader{Dir: dir}
}

func (c *CSVLoader) Name() string { return "csv:" + c.Dir }

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "20060102"}

func (c *CSVLoader) Instruments() ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(out)
	return out, nil
}

// Load parses the instrument's file and sorts bars by date. Malformed content is
// reported as a *model.DataIntegrityError; I/O failures are returned as they are.
func (c *CSVLoader) Load(instrument string) (*model.Series, error) {
	f, err := os.Open(filepath.Join(c.Dir, instrument+".csv"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", instrument, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := ParseCSV(instrument, f)
	if err != nil {
		var de *model.DataIntegrityError
		if errors.As(err, &de) {
			return nil, fmt.Errorf("parse %s: %w", instrument, err)
		}
		return nil, fmt.Errorf("parse %s: %w", instrument,
			&model.DataIntegrityError{Instrument: instrument, Index: -1, Reason: err.Error()})
	}
	return s, nil
}

// ParseCSV reads one instrument's bars from r.
func ParseCSV(instrument string, r io.Reader) (*model.Series, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["date"]; !ok {
		if i, ok := cols["time"]; ok {
			cols["date"] = i
		}
	}
	for _, need := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[need]; !ok {
			return nil, fmt.Errorf("missing column %q", need)
		}
	}

	s := &model.Series{Instrument: instrument}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		bar, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s.Bars = append(s.Bars, bar)
	}

	sort.SliceStable(s.Bars, func(i, j int) bool { return s.Bars[i].Time.Before(s.Bars[j].Time) })
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Time.After(s.Bars[i-1].Time) {
			return nil, &model.DataIntegrityError{Instrument: instrument, Index: i, Reason: "duplicate date " + s.Bars[i].Time.Format("2006-01-02")}
		}
	}
	return s, nil
}

func parseRecord(rec []string, cols map[string]int) (model.OHLCV, error) {
	var bar model.OHLCV
	t, err := parseDate(rec[cols["date"]])
	if err != nil {
		return bar, err
	}
	bar.Time = t
	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close}, {"volume", &bar.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[f.name]]), 64)
		if err != nil {
			return bar, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return bar, nil
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", v)
}

// WriteCSV writes s in the format Load reads.
func WriteCSV(w io.Writer, s *model.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range s.Bars {
		rec := []string{
			b.Time.Format("2006-01-02"),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
