// Package changepoint detects structural breaks in a station's wind series,
// typically caused by sensor relocation or instrument change. It implements
// deterministic binary segmentation over a combined speed/direction cost:
// the series is recursively split at the point of maximum cost reduction until
// no split improves the criterion beyond the configured penalty.
package changepoint

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/config"
)

// Detector segments a fitted signal. Construct with NewDetector, call Fit with
// the valid observations and Predict for the breakpoint indices, or use
// Segments for the full timeline-aware result.
type Detector struct {
	minSize   int
	maxBkps   int
	penalty   float64
	minObs    int
	dirWeight float64

	// Prefix sums over the fitted signal, one extra leading zero each, so any
	// segment cost is O(1).
	n       int
	sum     []float64
	sumSq   []float64
	sumSin  []float64
	sumCos  []float64
	dirObs  []float64
	signal  []float64
}

// NewDetector creates a detector from configuration.
func NewDetector(cfg config.ChangepointData) *Detector {
	return &Detector{
		minSize:   cfg.MinSegmentLen,
		maxBkps:   cfg.MaxChangepoints,
		penalty:   cfg.Penalty,
		minObs:    cfg.MinObservations,
		dirWeight: cfg.DirectionWeight,
	}
}

// Fit prepares the detector for the given valid observations. Speeds are
// standardized over the whole series so the penalty is scale-free; directions
// enter through unit vectors, with calm observations contributing nothing to
// the circular term.
func (d *Detector) Fit(obs []types.Observation) {
	n := len(obs)
	speeds := make([]float64, n)
	for i, o := range obs {
		speeds[i] = o.WindSpeed
	}
	mean, std := stat.MeanStdDev(speeds, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}

	d.n = n
	d.signal = make([]float64, n)
	d.sum = make([]float64, n+1)
	d.sumSq = make([]float64, n+1)
	d.sumSin = make([]float64, n+1)
	d.sumCos = make([]float64, n+1)
	d.dirObs = make([]float64, n+1)

	for i, o := range obs {
		z := (speeds[i] - mean) / std
		d.signal[i] = z
		d.sum[i+1] = d.sum[i] + z
		d.sumSq[i+1] = d.sumSq[i] + z*z

		var sin, cos, w float64
		if !o.Calm {
			rad := o.WindDir * math.Pi / 180
			sin, cos, w = math.Sin(rad), math.Cos(rad), 1
		}
		d.sumSin[i+1] = d.sumSin[i] + sin
		d.sumCos[i+1] = d.sumCos[i] + cos
		d.dirObs[i+1] = d.dirObs[i] + w
	}
}

// cost is the within-segment heterogeneity of [start, end): the sum of squared
// deviations of standardized speed plus the circular dispersion of direction.
// Both terms shrink when a segment is distributionally homogeneous.
func (d *Detector) cost(start, end int) float64 {
	if start >= end {
		return 0
	}
	n := float64(end - start)
	s := d.sum[end] - d.sum[start]
	sse := (d.sumSq[end] - d.sumSq[start]) - s*s/n

	var circ float64
	if m := d.dirObs[end] - d.dirObs[start]; m > 0 {
		sin := d.sumSin[end] - d.sumSin[start]
		cos := d.sumCos[end] - d.sumCos[start]
		r := math.Sqrt(sin*sin + cos*cos)
		circ = m - r
	}
	return sse + d.dirWeight*circ
}

// bestSplit finds the split of [start, end) with the largest cost reduction.
// Ties resolve to the earliest index, keeping the search deterministic.
func (d *Detector) bestSplit(start, end int) (int, float64) {
	whole := d.cost(start, end)
	bestIdx, bestGain := -1, 0.0
	for k := start + d.minSize; k <= end-d.minSize; k++ {
		gain := whole - d.cost(start, k) - d.cost(k, end)
		if gain > bestGain {
			bestIdx, bestGain = k, gain
		}
	}
	return bestIdx, bestGain
}

// Predict returns the breakpoint indices into the fitted signal, ascending.
// A breakpoint k means the right-hand segment starts at index k.
func (d *Detector) Predict() []int {
	type span struct{ start, end int }
	segments := []span{{0, d.n}}
	var bkps []int

	for d.maxBkps == 0 || len(bkps) < d.maxBkps {
		bestSeg, bestIdx, bestGain := -1, -1, d.penalty
		for i, sg := range segments {
			if sg.end-sg.start < 2*d.minSize {
				continue
			}
			idx, gain := d.bestSplit(sg.start, sg.end)
			if idx >= 0 && gain > bestGain {
				bestSeg, bestIdx, bestGain = i, idx, gain
			}
		}
		if bestSeg < 0 {
			break
		}
		sg := segments[bestSeg]
		segments = append(segments[:bestSeg], append([]span{{sg.start, bestIdx}, {bestIdx, sg.end}}, segments[bestSeg+1:]...)...)
		bkps = append(bkps, bestIdx)
	}

	sort.Ints(bkps)
	return bkps
}

// Segments runs detection over a cleaned series and expresses the resulting
// partition in the original timeline. Invalid observations are excluded from
// the detection signal but remain inside the segments that cover them.
func (d *Detector) Segments(stationID string, cleaned []types.Observation) ([]types.Segment, error) {
	valid := make([]types.Observation, 0, len(cleaned))
	for _, o := range cleaned {
		if o.Valid() {
			valid = append(valid, o)
		}
	}
	if len(valid) < d.minObs {
		return nil, fmt.Errorf("%w: station %s has %d valid observations, need %d",
			types.ErrInsufficientData, stationID, len(valid), d.minObs)
	}

	start := cleaned[0].Timestamp
	end := cleaned[len(cleaned)-1].Timestamp

	// Too short to split: exactly one segment, no changepoints.
	if len(valid) < 2*d.minSize {
		return []types.Segment{{StationID: stationID, Start: start, End: end, Index: 0}}, nil
	}

	d.Fit(valid)
	bkps := d.Predict()

	segments := make([]types.Segment, 0, len(bkps)+1)
	segStart := start
	for i, k := range bkps {
		boundary := valid[k].Timestamp
		segments = append(segments, types.Segment{StationID: stationID, Start: segStart, End: boundary, Index: i})
		segStart = boundary
	}
	segments = append(segments, types.Segment{StationID: stationID, Start: segStart, End: end, Index: len(bkps)})
	return segments, nil
}
