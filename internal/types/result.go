package types

import "time"

// WindRose is one cell of a station's wind-rose histogram: the number of valid
// observations whose direction fell in Sector and whose corrected speed fell in
// SpeedBin, within the period identified by PeriodKey. Sector is CalmSector for
// calm/variable observations.
type WindRose struct {
	StationID string `msgpack:"sid" json:"sid"`
	PeriodKey string `msgpack:"period" json:"period"`
	Sector    int    `msgpack:"sector" json:"sector"`
	SpeedBin  int    `msgpack:"bin" json:"bin"`
	Count     int64  `msgpack:"count" json:"count"`
}

// CalmSector is the pseudo-sector that accumulates calm/variable observations.
const CalmSector = -1

// CalmSummary counts calm observations against the total for one period.
type CalmSummary struct {
	StationID string  `msgpack:"sid" json:"sid"`
	PeriodKey string  `msgpack:"period" json:"period"`
	Total     int64   `msgpack:"total" json:"total"`
	Calm      int64   `msgpack:"calm" json:"calm"`
	Percent   float64 `msgpack:"percent" json:"percent"`
}

// CrosswindExceedance is the frequency (percent) of observations whose
// crosswind component relative to a runway heading exceeds a threshold.
type CrosswindExceedance struct {
	StationID string  `msgpack:"sid" json:"sid"`
	Heading   int     `msgpack:"heading" json:"heading"`
	Threshold float64 `msgpack:"threshold" json:"threshold"`
	Percent   float64 `msgpack:"percent" json:"percent"`
}

// EnergyPotential is the mean wind energy potential (W/m^2) for one
// station/year/month.
type EnergyPotential struct {
	StationID string  `msgpack:"sid" json:"sid"`
	Year      int     `msgpack:"year" json:"year"`
	Month     int     `msgpack:"month" json:"month"`
	MeanWEP   float64 `msgpack:"mean_wep" json:"mean_wep"`
}

// StationDiagnostics records everything a run did to a station's data: dropped
// records, per-rule flag counts, skipped stages and the failure reason if the
// station was excluded from the output.
type StationDiagnostics struct {
	StationID        string         `msgpack:"sid" json:"sid"`
	RawRecords       int            `msgpack:"raw_records" json:"raw_records"`
	DroppedRecords   int            `msgpack:"dropped_records" json:"dropped_records"`
	DuplicateRecords int            `msgpack:"duplicate_records" json:"duplicate_records"`
	FlagCounts       map[string]int `msgpack:"flag_counts,omitempty" json:"flag_counts,omitempty"`
	Changepoints     int            `msgpack:"changepoints" json:"changepoints"`
	ReferenceMissing bool           `msgpack:"reference_missing,omitempty" json:"reference_missing,omitempty"`
	SkippedStages    []string       `msgpack:"skipped_stages,omitempty" json:"skipped_stages,omitempty"`
	Failed           bool           `msgpack:"failed,omitempty" json:"failed,omitempty"`
	FailureReason    string         `msgpack:"failure_reason,omitempty" json:"failure_reason,omitempty"`
}

// PipelineResult is the per-station artifact bundle. It is produced once per
// run per station, is immutable once written, and is consumed read-only.
type PipelineResult struct {
	StationID   string                 `msgpack:"sid" json:"sid"`
	Station     Station                `msgpack:"station" json:"station"`
	Cleaned     []Observation          `msgpack:"cleaned" json:"cleaned"`
	Segments    []Segment              `msgpack:"segments" json:"segments"`
	Corrected   []CorrectedObservation `msgpack:"corrected" json:"corrected"`
	Roses       []WindRose             `msgpack:"roses" json:"roses"`
	Calms       []CalmSummary          `msgpack:"calms,omitempty" json:"calms,omitempty"`
	Crosswinds  []CrosswindExceedance  `msgpack:"crosswinds,omitempty" json:"crosswinds,omitempty"`
	Energy      []EnergyPotential      `msgpack:"energy,omitempty" json:"energy,omitempty"`
	Diagnostics StationDiagnostics     `msgpack:"diagnostics" json:"diagnostics"`
}

// RunSummary describes a whole pipeline run.
type RunSummary struct {
	RunID     string    `msgpack:"run_id" json:"run_id"`
	StartedAt time.Time `msgpack:"started_at" json:"started_at"`
	Duration  float64   `msgpack:"duration_s" json:"duration_s"`
	Succeeded int       `msgpack:"succeeded" json:"succeeded"`
	Failed    int       `msgpack:"failed" json:"failed"`
}

// Bundle is the serialized output of a run: the merged per-station results,
// ordered by station ID, plus diagnostics for stations that failed.
type Bundle struct {
	Summary     RunSummary           `msgpack:"summary" json:"summary"`
	Results     []PipelineResult     `msgpack:"results" json:"results"`
	Diagnostics []StationDiagnostics `msgpack:"diagnostics" json:"diagnostics"`
}
