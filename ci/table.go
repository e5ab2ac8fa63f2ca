package ci

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBadTable is generated when a per-camera table does not cover exactly
// the valid extension names, or holds an unusable value
var ErrBadTable = errors.New("per-camera table does not match the CI camera set")

// Table is an immutable per-camera lookup of a scalar constant
type Table struct {
	name string
	vals [NumExtnames]float64
}

// NewTable builds a Table from a map.  The map must have one entry for
// every valid Extname and no others.  If positive is true, every value must
// also be > 0.  name is used in error messages only.
func NewTable(name string, m map[Extname]float64, positive bool) (Table, error) {
	t := Table{name: name}
	var extra []string
	for k := range m {
		if !k.Valid() {
			extra = append(extra, string(k))
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return t, fmt.Errorf("%w: %s has unknown cameras %s", ErrBadTable, name, strings.Join(extra, ","))
	}
	for i, e := range extnames {
		v, ok := m[e]
		if !ok {
			return t, fmt.Errorf("%w: %s missing %s", ErrBadTable, name, e)
		}
		if positive && !(v > 0) {
			return t, fmt.Errorf("%w: %s[%s]=%v must be positive", ErrBadTable, name, e, v)
		}
		t.vals[i] = v
	}
	return t, nil
}

// MustTable is NewTable that panics on error, for package level tables
func MustTable(name string, m map[Extname]float64, positive bool) Table {
	t, err := NewTable(name, m, positive)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the value for e
func (t Table) Lookup(e Extname) (float64, error) {
	i := e.Index()
	if i < 0 {
		return 0, fmt.Errorf("%s lookup: %w: %q", t.name, ErrInvalidExtname, string(e))
	}
	return t.vals[i], nil
}

// Map returns a copy of the table as a map
func (t Table) Map() map[Extname]float64 {
	m := make(map[Extname]float64, NumExtnames)
	for i, e := range extnames {
		m[e] = t.vals[i]
	}
	return m
}

// GainTable maps each camera to its gain in e-/ADU
type GainTable struct {
	Table
}

// NewGainTable validates a gain map.  Every camera needs a positive gain.
func NewGainTable(m map[Extname]float64) (GainTable, error) {
	t, err := NewTable("gain", m, true)
	return GainTable{t}, err
}

// GainTableFromStrings is NewGainTable for maps with string keys, as they
// come out of config files.  Keys are case insensitive.
func GainTableFromStrings(m map[string]float64) (GainTable, error) {
	conv := make(map[Extname]float64, len(m))
	for k, v := range m {
		conv[Extname(strings.ToUpper(strings.TrimSpace(k)))] = v
	}
	return NewGainTable(conv)
}

// Gain returns the gain of camera e in e-/ADU
func (g GainTable) Gain(e Extname) (float64, error) {
	return g.Lookup(e)
}

// DefaultGain is the nominal e-/ADU used for any camera without a measured
// value in the configuration
const DefaultGain = 1.64

// DefaultGains returns a gain map with DefaultGain for every camera
func DefaultGains() map[string]float64 {
	m := make(map[string]float64, NumExtnames)
	for _, e := range extnames {
		m[string(e)] = DefaultGain
	}
	return m
}
