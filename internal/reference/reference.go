// Package reference loads the climatological reference wind-speed
// distributions used for bias correction. The reference file is produced
// externally (or by the refgen helper) and is read-only: one quantile curve per
// station, with an optional default curve for stations without their own.
package reference

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// Distribution is a reference speed distribution described by its quantile
// curve: Values[i] is the speed at cumulative probability Probs[i].
type Distribution struct {
	Probs  []float64
	Values []float64
}

// Quantile returns the speed at cumulative probability p, linearly
// interpolating between the stored quantile points.
func (d *Distribution) Quantile(p float64) float64 {
	if p <= d.Probs[0] {
		return d.Values[0]
	}
	last := len(d.Probs) - 1
	if p >= d.Probs[last] {
		return d.Values[last]
	}
	i := sort.SearchFloat64s(d.Probs, p)
	// Probs[i-1] < p <= Probs[i]
	span := d.Probs[i] - d.Probs[i-1]
	if span == 0 {
		return d.Values[i]
	}
	frac := (p - d.Probs[i-1]) / span
	return d.Values[i-1] + frac*(d.Values[i]-d.Values[i-1])
}

// Set holds every reference distribution available to a run. It is shared
// read-only across all workers.
type Set struct {
	stations map[string]*Distribution
	fallback *Distribution
}

// Load reads a reference file:
//
//	probabilities: [0.0, 0.25, 0.5, 0.75, 1.0]
//	stations:
//	  PAJN: [0, 3.5, 7.0, 11.5, 46.0]
//	default: [0, 3.1, 6.4, 10.8, 52.0]
func Load(path string) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference file: %w", err)
	}

	var doc struct {
		Probabilities []float64            `yaml:"probabilities"`
		Stations      map[string][]float64 `yaml:"stations"`
		Default       []float64            `yaml:"default"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parsing reference file %s: %w", path, err)
	}

	if err := checkProbs(doc.Probabilities); err != nil {
		return nil, fmt.Errorf("reference file %s: %w", path, err)
	}

	set := &Set{stations: make(map[string]*Distribution, len(doc.Stations))}
	for sid, values := range doc.Stations {
		dist, err := newDistribution(doc.Probabilities, values)
		if err != nil {
			return nil, fmt.Errorf("reference file %s, station %s: %w", path, sid, err)
		}
		set.stations[sid] = dist
	}
	if len(doc.Default) > 0 {
		set.fallback, err = newDistribution(doc.Probabilities, doc.Default)
		if err != nil {
			return nil, fmt.Errorf("reference file %s, default: %w", path, err)
		}
	}
	return set, nil
}

// ForStation returns the reference distribution for a station, falling back to
// the regional default. The second return is false when neither exists.
func (s *Set) ForStation(id string) (*Distribution, bool) {
	if s == nil {
		return nil, false
	}
	if d, ok := s.stations[id]; ok {
		return d, true
	}
	if s.fallback != nil {
		return s.fallback, true
	}
	return nil, false
}

func newDistribution(probs, values []float64) (*Distribution, error) {
	if len(values) != len(probs) {
		return nil, fmt.Errorf("have %d values for %d probabilities", len(values), len(probs))
	}
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return nil, fmt.Errorf("quantile values must be non-decreasing")
		}
	}
	return &Distribution{Probs: probs, Values: values}, nil
}

func checkProbs(probs []float64) error {
	if len(probs) < 2 {
		return fmt.Errorf("need at least two probability points")
	}
	for i, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("probability %v out of [0,1]", p)
		}
		if i > 0 && p <= probs[i-1] {
			return fmt.Errorf("probabilities must be strictly ascending")
		}
	}
	return nil
}
