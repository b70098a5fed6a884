// Package types defines the core data model shared by all pipeline stages.
package types

import (
	"time"
)

// QCFlag is a bitmask recording which quality-control rules fired for an
// observation. A zero value means the observation passed every enabled rule.
type QCFlag uint8

const (
	// QCRange marks a wind speed outside the physically plausible range.
	QCRange QCFlag = 1 << iota
	// QCCalmInconsistent marks a zero-speed observation reporting a nonzero direction.
	QCCalmInconsistent
	// QCGustBelowSustained marks a gust slower than the sustained speed.
	QCGustBelowSustained
	// QCStuckRun marks an observation inside an implausibly long run of
	// identical values.
	QCStuckRun
	// QCSpike marks an isolated speed excursion far above its neighbors.
	QCSpike
)

// Has reports whether flag f contains all bits of other.
func (f QCFlag) Has(other QCFlag) bool {
	return f&other == other
}

// Observation is a single wind record for a station. Direction is degrees
// in [0, 360); Calm is set when the record reported calm or variable wind,
// in which case WindDir is meaningless.
type Observation struct {
	StationID string    `msgpack:"sid" json:"sid"`
	Timestamp time.Time `msgpack:"ts" json:"ts"`
	WindSpeed float64   `msgpack:"ws" json:"ws"`
	WindDir   float64   `msgpack:"wd" json:"wd"`
	GustSpeed float64   `msgpack:"gust,omitempty" json:"gust,omitempty"`
	HasGust   bool      `msgpack:"has_gust,omitempty" json:"has_gust,omitempty"`
	Calm      bool      `msgpack:"calm,omitempty" json:"calm,omitempty"`
	Flags     QCFlag    `msgpack:"flags,omitempty" json:"flags,omitempty"`
}

// Valid reports whether the observation passed quality control.
func (o Observation) Valid() bool {
	return o.Flags == 0
}

// Station describes a reporting site. The observation series for a station
// is owned exclusively by that station's pipeline; no sharing across stations.
type Station struct {
	ID        string  `yaml:"id" msgpack:"id" json:"id"`
	Name      string  `yaml:"name" msgpack:"name" json:"name"`
	Latitude  float64 `yaml:"lat" msgpack:"lat" json:"lat"`
	Longitude float64 `yaml:"lon" msgpack:"lon" json:"lon"`
	Elevation float64 `yaml:"elev" msgpack:"elev" json:"elev"`
}

// Segment is a maximal interval between two consecutive detected changepoints
// (or the series boundaries). Segments partition a station's cleaned series
// exhaustively and without overlap; Index is 0-based and increases with Start.
type Segment struct {
	StationID string    `msgpack:"sid" json:"sid"`
	Start     time.Time `msgpack:"start" json:"start"`
	End       time.Time `msgpack:"end" json:"end"`
	Index     int       `msgpack:"index" json:"index"`
}

// Contains reports whether t falls inside the segment. The final segment of a
// series is closed on its end so the last observation belongs somewhere.
func (s Segment) Contains(t time.Time, last bool) bool {
	if t.Before(s.Start) {
		return false
	}
	if last {
		return !t.After(s.End)
	}
	return t.Before(s.End)
}

// CorrectedObservation is an observation plus its bias-corrected speed and the
// index of the segment whose correction model produced it.
type CorrectedObservation struct {
	Observation    `msgpack:",inline"`
	CorrectedSpeed float64 `msgpack:"cws" json:"cws"`
	SegmentIndex   int     `msgpack:"seg" json:"seg"`
}
