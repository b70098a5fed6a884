// Package biascorrect adjusts a station's wind-speed distribution against a
// climatological reference using empirical quantile mapping. Correction is
// fitted independently for each changepoint-delimited segment: instrument
// changes shift the distribution, so a single whole-series mapping would
// conflate unrelated regimes.
package biascorrect

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wxarchive/windprep/internal/reference"
	"github.com/wxarchive/windprep/internal/types"
)

// Corrector maps observed speeds through the reference distribution.
type Corrector struct {
	refs *reference.Set
}

// NewCorrector creates a corrector over the shared read-only reference set,
// which may be nil when no reference dataset was supplied.
func NewCorrector(refs *reference.Set) *Corrector {
	return &Corrector{refs: refs}
}

// Apply produces the corrected series for a cleaned, segmented station.
// Every observation gets an entry; only speed is corrected, direction passes
// through. When the station has no reference distribution the corrected speed
// equals the raw speed and the second return is true so the caller can record
// a diagnostic. Never a fatal error.
func (c *Corrector) Apply(stationID string, cleaned []types.Observation, segments []types.Segment) ([]types.CorrectedObservation, bool) {
	dist, ok := c.refs.ForStation(stationID)
	if !ok {
		out := make([]types.CorrectedObservation, len(cleaned))
		for i, o := range cleaned {
			out[i] = types.CorrectedObservation{
				Observation:    o,
				CorrectedSpeed: o.WindSpeed,
				SegmentIndex:   segmentIndexFor(o, segments),
			}
		}
		return out, true
	}

	out := make([]types.CorrectedObservation, 0, len(cleaned))
	for _, seg := range segments {
		last := seg.Index == len(segments)-1

		// Empirical distribution of this segment's valid speeds.
		var speeds []float64
		for _, o := range cleaned {
			if o.Valid() && seg.Contains(o.Timestamp, last) {
				speeds = append(speeds, o.WindSpeed)
			}
		}
		sort.Float64s(speeds)

		for _, o := range cleaned {
			if !seg.Contains(o.Timestamp, last) {
				continue
			}
			co := types.CorrectedObservation{
				Observation:    o,
				CorrectedSpeed: o.WindSpeed,
				SegmentIndex:   seg.Index,
			}
			// Flagged observations keep their raw value: they carry no weight
			// downstream and correcting them would launder bad data.
			if o.Valid() && len(speeds) > 0 {
				p := stat.CDF(o.WindSpeed, stat.Empirical, speeds, nil)
				corrected := dist.Quantile(p)
				if corrected < 0 {
					corrected = 0
				}
				co.CorrectedSpeed = corrected
			}
			out = append(out, co)
		}
	}
	return out, false
}

// Passthrough builds the corrected series without any correction, for runs
// where the bias_correct stage is not selected.
func Passthrough(cleaned []types.Observation, segments []types.Segment) []types.CorrectedObservation {
	out := make([]types.CorrectedObservation, len(cleaned))
	for i, o := range cleaned {
		out[i] = types.CorrectedObservation{
			Observation:    o,
			CorrectedSpeed: o.WindSpeed,
			SegmentIndex:   segmentIndexFor(o, segments),
		}
	}
	return out
}

func segmentIndexFor(o types.Observation, segments []types.Segment) int {
	for _, seg := range segments {
		if seg.Contains(o.Timestamp, seg.Index == len(segments)-1) {
			return seg.Index
		}
	}
	return 0
}
