package qc

import (
	"reflect"
	"testing"
	"time"

	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/config"
)

func obsAt(i int, speed, dir float64) types.Observation {
	return types.Observation{
		StationID: "PAJN",
		Timestamp: time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		WindSpeed: speed,
		WindDir:   dir,
	}
}

func allRules() config.QCData {
	return config.Default().QC
}

func TestRangeCheck(t *testing.T) {
	tests := []struct {
		name string
		obs  types.Observation
		want bool
	}{
		{"typical", obsAt(0, 12.5, 180), false},
		{"at limit", obsAt(0, 110, 180), false},
		{"above limit", obsAt(0, 110.1, 180), true},
		{"negative", obsAt(0, -1, 180), true},
	}
	f := NewFilter(allRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Apply([]types.Observation{tt.obs})
			if got[0].Flags.Has(types.QCRange) != tt.want {
				t.Errorf("range flag = %v, want %v", !tt.want, tt.want)
			}
		})
	}
}

func TestCalmConsistency(t *testing.T) {
	calm := obsAt(0, 0, 0)
	calm.Calm = true
	inconsistent := obsAt(1, 0, 270)
	inconsistent.Calm = true

	f := NewFilter(allRules())
	got := f.Apply([]types.Observation{calm, inconsistent})

	if got[0].Flags.Has(types.QCCalmInconsistent) {
		t.Error("true calm must not be flagged")
	}
	if !got[1].Flags.Has(types.QCCalmInconsistent) {
		t.Error("zero speed with a direction must be flagged")
	}
}

func TestGustCheck(t *testing.T) {
	ok := obsAt(0, 10, 90)
	ok.GustSpeed, ok.HasGust = 18, true
	bad := obsAt(1, 10, 90)
	bad.GustSpeed, bad.HasGust = 6, true
	noGust := obsAt(2, 10, 90)

	f := NewFilter(allRules())
	got := f.Apply([]types.Observation{ok, bad, noGust})

	if got[0].Flags.Has(types.QCGustBelowSustained) {
		t.Error("gust above sustained must not be flagged")
	}
	if !got[1].Flags.Has(types.QCGustBelowSustained) {
		t.Error("gust below sustained must be flagged")
	}
	if got[2].Flags.Has(types.QCGustBelowSustained) {
		t.Error("missing gust must not be flagged")
	}
}

func TestStuckRuns(t *testing.T) {
	cfg := allRules()
	cfg.MinRunLength = 3

	var obs []types.Observation
	// A run of 3 identical reports, then a change, then a calm run of 4.
	for i := 0; i < 3; i++ {
		obs = append(obs, obsAt(i, 8.5, 120))
	}
	obs = append(obs, obsAt(3, 9.0, 130))
	for i := 4; i < 8; i++ {
		o := obsAt(i, 0, 0)
		o.Calm = true
		obs = append(obs, o)
	}

	got := NewFilter(cfg).Apply(obs)

	for i := 0; i < 3; i++ {
		if !got[i].Flags.Has(types.QCStuckRun) {
			t.Errorf("obs %d: stuck run not flagged", i)
		}
	}
	if got[3].Flags.Has(types.QCStuckRun) {
		t.Error("single differing report flagged as stuck")
	}
	for i := 4; i < 8; i++ {
		if got[i].Flags.Has(types.QCStuckRun) {
			t.Errorf("obs %d: calm run must be exempt", i)
		}
	}
}

func TestStuckRunShorterThanMinimum(t *testing.T) {
	cfg := allRules()
	cfg.MinRunLength = 3

	obs := []types.Observation{obsAt(0, 8.5, 120), obsAt(1, 8.5, 120), obsAt(2, 9.0, 120)}
	got := NewFilter(cfg).Apply(obs)
	for i, o := range got {
		if o.Flags.Has(types.QCStuckRun) {
			t.Errorf("obs %d: run of 2 flagged with minimum 3", i)
		}
	}
}

func TestSpikes(t *testing.T) {
	cfg := allRules()
	cfg.SpikeProminence = 30

	obs := []types.Observation{
		obsAt(0, 10, 90),
		obsAt(1, 45, 90), // isolated spike
		obsAt(2, 12, 90),
		obsAt(3, 40, 90), // sustained rise, not a spike
		obsAt(4, 42, 90),
	}
	got := NewFilter(cfg).Apply(obs)

	if !got[1].Flags.Has(types.QCSpike) {
		t.Error("isolated excursion not flagged as spike")
	}
	for _, i := range []int{0, 2, 3, 4} {
		if got[i].Flags.Has(types.QCSpike) {
			t.Errorf("obs %d: flagged as spike", i)
		}
	}
}

func TestDisabledRulesDoNotFlag(t *testing.T) {
	cfg := config.QCData{} // every rule off
	obs := []types.Observation{obsAt(0, 500, 270), obsAt(1, 0, 90)}
	got := NewFilter(cfg).Apply(obs)
	for i, o := range got {
		if o.Flags != 0 {
			t.Errorf("obs %d: flags %v with all rules disabled", i, o.Flags)
		}
	}
}

func TestApplyLeavesInputUnmodified(t *testing.T) {
	obs := []types.Observation{obsAt(0, 500, 270)}
	NewFilter(allRules()).Apply(obs)
	if obs[0].Flags != 0 {
		t.Error("Apply mutated its input")
	}
}

func TestApplyDeterministic(t *testing.T) {
	var obs []types.Observation
	for i := 0; i < 50; i++ {
		obs = append(obs, obsAt(i, float64(i%20), float64((i*37)%360)))
	}
	f := NewFilter(allRules())
	a := f.Apply(obs)
	b := f.Apply(obs)
	if !reflect.DeepEqual(a, b) {
		t.Error("repeated Apply produced different flags")
	}
}

func TestFlagCounts(t *testing.T) {
	fast := obsAt(0, 200, 90)
	ghost := obsAt(1, 0, 270)

	got := FlagCounts(NewFilter(allRules()).Apply([]types.Observation{fast, ghost}))
	want := map[string]int{"range": 1, "calm_inconsistent": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FlagCounts = %v, want %v", got, want)
	}
}
