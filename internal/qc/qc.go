// Package qc flags physically implausible or sensor-fault observations.
// Flagged observations are never removed or reordered; downstream stages skip
// them and diagnostics retain the full history.
package qc

import (
	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/config"
)

// Filter applies the enabled quality-control rules.
type Filter struct {
	cfg config.QCData
}

// NewFilter creates a filter from the rule configuration.
func NewFilter(cfg config.QCData) *Filter {
	return &Filter{cfg: cfg}
}

// Apply returns a copy of obs with Flags populated. Same input and same rule
// configuration always produce identical flags.
func (f *Filter) Apply(obs []types.Observation) []types.Observation {
	out := make([]types.Observation, len(obs))
	copy(out, obs)

	for i := range out {
		if f.cfg.RangeCheck {
			f.rangeCheck(&out[i])
		}
		if f.cfg.CalmConsistency {
			f.calmCheck(&out[i])
		}
		if f.cfg.GustCheck {
			f.gustCheck(&out[i])
		}
	}
	if f.cfg.StuckRun {
		f.stuckRuns(out)
	}
	if f.cfg.SpikeCheck {
		f.spikes(out)
	}
	return out
}

// FlagCounts tallies, per rule, how many observations carry its flag.
func FlagCounts(obs []types.Observation) map[string]int {
	names := map[types.QCFlag]string{
		types.QCRange:              "range",
		types.QCCalmInconsistent:   "calm_inconsistent",
		types.QCGustBelowSustained: "gust_below_sustained",
		types.QCStuckRun:           "stuck_run",
		types.QCSpike:              "spike",
	}
	counts := make(map[string]int)
	for _, o := range obs {
		for flag, name := range names {
			if o.Flags.Has(flag) {
				counts[name]++
			}
		}
	}
	return counts
}

func (f *Filter) rangeCheck(o *types.Observation) {
	if o.WindSpeed < 0 || o.WindSpeed > f.cfg.MaxSpeed {
		o.Flags |= types.QCRange
	}
}

// calmCheck flags a zero-speed observation reporting a direction. There is no
// way to tell whether speed or direction was the bad measurement.
func (f *Filter) calmCheck(o *types.Observation) {
	if o.WindSpeed == 0 && o.WindDir > f.cfg.CalmTolerance {
		o.Flags |= types.QCCalmInconsistent
	}
}

func (f *Filter) gustCheck(o *types.Observation) {
	if o.HasGust && o.GustSpeed < o.WindSpeed {
		o.Flags |= types.QCGustBelowSustained
	}
}

// stuckRuns flags runs of identical speed and direction at least MinRunLength
// long. Calm stretches are legitimate and exempt.
func (f *Filter) stuckRuns(obs []types.Observation) {
	start := 0
	for i := 1; i <= len(obs); i++ {
		if i < len(obs) && sameValue(obs[i], obs[start]) {
			continue
		}
		if i-start >= f.cfg.MinRunLength && !obs[start].Calm {
			for j := start; j < i; j++ {
				obs[j].Flags |= types.QCStuckRun
			}
		}
		start = i
	}
}

func sameValue(a, b types.Observation) bool {
	return a.WindSpeed == b.WindSpeed && a.WindDir == b.WindDir && a.Calm == b.Calm
}

// spikes flags isolated speed excursions whose prominence over both neighbors
// exceeds the configured threshold. Matches the peak filtering applied to the
// raw archive before serving, without the dip direction: drops in speed are
// usually real lulls.
func (f *Filter) spikes(obs []types.Observation) {
	for i := 1; i < len(obs)-1; i++ {
		if obs[i].Flags != 0 {
			continue
		}
		prev, next := obs[i-1].WindSpeed, obs[i+1].WindSpeed
		rise := obs[i].WindSpeed - prev
		fall := obs[i].WindSpeed - next
		if rise >= f.cfg.SpikeProminence && fall >= f.cfg.SpikeProminence {
			obs[i].Flags |= types.QCSpike
		}
	}
}
