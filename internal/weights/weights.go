// Package weights validates indicator multipliers and builds isolated configurations.
//
// The file format is a nested mapping {strategy: {category: {indicator_id: multiplier}}}.
// Keys absent from a file keep the value of the configuration it is applied over,
// which is the registry default for that strategy unless a base is given. Nothing is
// ever inherited across strategies.
package weights

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"SignalBench/internal/indicator"
	"SignalBench/internal/model"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a weight configuration.
type File map[string]map[string]map[string]float64

// Config maps strategy-qualified indicator keys to multipliers. Read-only once built;
// the mutating helpers all return copies.
type Config struct {
	reg    *indicator.Registry
	values map[indicator.Key]float64
}

// Defaults returns the registry's default multipliers for every strategy.
func Defaults(reg *indicator.Registry) *Config {
	c := &Config{reg: reg, values: make(map[indicator.Key]float64, reg.Len())}
	for _, s := range model.Strategies {
		for _, e := range reg.Entries(s) {
			c.values[e.Key()] = e.DefaultMultiplier
		}
	}
	return c
}

// Load reads a YAML weight file applied over the registry defaults.
func Load(path string, reg *indicator.Registry) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	return Parse(data, reg)
}

// Parse decodes YAML applied over the registry defaults.
func Parse(data []byte, reg *indicator.Registry) (*Config, error) {
	return ParseOver(Defaults(reg), data)
}

// ParseOver decodes YAML and applies it over base. base is not modified.
func ParseOver(base *Config, data []byte) (*Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &model.ConfigurationError{Reason: fmt.Sprintf("malformed weight file: %v", err)}
	}
	return base.Apply(f)
}

// Apply returns a copy of c with every multiplier in f applied. All problems are
// reported together; the first is reachable with errors.As.
func (c *Config) Apply(f File) (*Config, error) {
	out := c.Clone()
	var errs []error
	for _, sName := range sortedKeys(f) {
		s := model.Strategy(sName)
		if !s.Valid() {
			errs = append(errs, &model.ConfigurationError{Strategy: sName, Reason: "unknown strategy"})
			continue
		}
		for _, catName := range sortedKeys(f[sName]) {
			cat := indicator.Category(catName)
			if !cat.Valid() {
				errs = append(errs, &model.ConfigurationError{Strategy: sName, Category: catName, Reason: "unknown category"})
				continue
			}
			for _, id := range sortedKeys(f[sName][catName]) {
				m := f[sName][catName][id]
				e, ok := c.reg.Lookup(indicator.Key{Strategy: s, ID: id})
				switch {
				case !ok:
					errs = append(errs, &model.ConfigurationError{Strategy: sName, Category: catName, Indicator: id, Reason: "unknown indicator"})
				case e.Category != cat:
					errs = append(errs, &model.ConfigurationError{Strategy: sName, Category: catName, Indicator: id,
						Reason: fmt.Sprintf("indicator belongs to category %s", e.Category)})
				case !validMultiplier(m):
					errs = append(errs, &model.ConfigurationError{Strategy: sName, Category: catName, Indicator: id,
						Reason: fmt.Sprintf("multiplier %v must be a finite non-negative number", m)})
				default:
					out.values[e.Key()] = m
				}
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func validMultiplier(m float64) bool {
	return !math.IsNaN(m) && !math.IsInf(m, 0) && m >= 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Registry returns the indicator registry the configuration was validated against.
func (c *Config) Registry() *indicator.Registry { return c.reg }

// Multiplier returns the multiplier for k, 0 for keys the registry does not know.
func (c *Config) Multiplier(k indicator.Key) float64 { return c.values[k] }

// Enabled reports whether k has a non-zero multiplier.
func (c *Config) Enabled(k indicator.Key) bool { return c.values[k] > 0 }

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	out := &Config{reg: c.reg, values: make(map[indicator.Key]float64, len(c.values))}
	for k, v := range c.values {
		out.values[k] = v
	}
	return out
}

// With returns a copy with k set to m.
func (c *Config) With(k indicator.Key, m float64) (*Config, error) {
	e, ok := c.reg.Lookup(k)
	if !ok {
		return nil, &model.ConfigurationError{Strategy: string(k.Strategy), Indicator: k.ID, Reason: "unknown indicator"}
	}
	if !validMultiplier(m) {
		return nil, &model.ConfigurationError{Strategy: string(k.Strategy), Category: string(e.Category), Indicator: k.ID,
			Reason: fmt.Sprintf("multiplier %v must be a finite non-negative number", m)}
	}
	out := c.Clone()
	out.values[k] = m
	return out, nil
}

// ZeroCategory returns a copy with every indicator of cat under strategy s disabled.
func (c *Config) ZeroCategory(s model.Strategy, cat indicator.Category) *Config {
	out := c.Clone()
	for _, e := range c.reg.Entries(s) {
		if e.Category == cat {
			out.values[e.Key()] = 0
		}
	}
	return out
}

// ZeroStrategy returns a copy with every indicator of strategy s disabled.
func (c *Config) ZeroStrategy(s model.Strategy) *Config {
	out := c.Clone()
	for _, e := range c.reg.Entries(s) {
		out.values[e.Key()] = 0
	}
	return out
}

// Isolate returns a copy where strategy s has only id enabled, at multiplier m.
// Other strategies' sections are left exactly as they were, including their own
// entry for the same id.
func (c *Config) Isolate(s model.Strategy, id string, m float64) (*Config, error) {
	if !s.Valid() {
		return nil, &model.ConfigurationError{Strategy: string(s), Reason: "unknown strategy"}
	}
	return c.ZeroStrategy(s).With(indicator.Key{Strategy: s, ID: id}, m)
}

// Isolated builds a configuration where every indicator of every strategy is 0 except
// (s, id), which is set to m.
func Isolated(reg *indicator.Registry, s model.Strategy, id string, m float64) (*Config, error) {
	base := Defaults(reg)
	for _, st := range model.Strategies {
		base = base.ZeroStrategy(st)
	}
	return base.Isolate(s, id, m)
}

// File returns the nested representation of every multiplier.
func (c *Config) File() File {
	f := File{}
	for _, s := range model.Strategies {
		for _, e := range c.reg.Entries(s) {
			cats, ok := f[string(s)]
			if !ok {
				cats = map[string]map[string]float64{}
				f[string(s)] = cats
			}
			ids, ok := cats[string(e.Category)]
			if !ok {
				ids = map[string]float64{}
				cats[string(e.Category)] = ids
			}
			ids[e.ID] = c.values[e.Key()]
		}
	}
	return f
}

// Save writes the full configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c.File())
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	return nil
}
