package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the per-station failure modes. All of them are caught at
// the station-pipeline boundary and converted into diagnostics entries; none is
// fatal to the run.
var (
	// ErrMalformedRecord marks a raw record that cannot be parsed into the
	// observation schema. The record is dropped and counted.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInsufficientData marks a station that lacks enough valid observations
	// for a requested stage. The station is skipped.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMissingReferenceData marks a station with no reference distribution.
	// Bias correction is skipped; corrected speeds equal raw speeds.
	ErrMissingReferenceData = errors.New("missing reference data")
)

// WorkerFailure wraps an unexpected error (or recovered panic) raised inside a
// station's pipeline. The station is excluded from the output; the run continues.
type WorkerFailure struct {
	StationID string
	Stage     string
	Err       error
}

func (w *WorkerFailure) Error() string {
	return fmt.Sprintf("station %s failed in stage %s: %v", w.StationID, w.Stage, w.Err)
}

func (w *WorkerFailure) Unwrap() error {
	return w.Err
}
