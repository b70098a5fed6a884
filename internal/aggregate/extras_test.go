package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/wxarchive/windprep/internal/types"
)

func TestCalms(t *testing.T) {
	a := New(roseConfig())
	base := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)

	// 3 calm out of 8 valid: 37.5%.
	var obs []types.CorrectedObservation
	for i := 0; i < 8; i++ {
		obs = append(obs, corrected(base.Add(time.Duration(i)*time.Hour), 8, 90, i < 3))
	}
	// Flagged observation does not count toward the total.
	flagged := corrected(base.Add(100*time.Hour), 8, 90, false)
	flagged.Flags = types.QCRange
	obs = append(obs, flagged)

	got := a.Calms("PAJN", obs)
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	s := got[0]
	if s.PeriodKey != PeriodAll || s.Total != 8 || s.Calm != 3 {
		t.Errorf("summary = %+v, want all/8/3", s)
	}
	if s.Percent != 37.5 {
		t.Errorf("percent = %v, want 37.5", s.Percent)
	}
}

func TestCalmsRounding(t *testing.T) {
	a := New(roseConfig())
	base := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)

	// 1 of 3: 33.333...% rounds to one decimal as 33.3.
	obs := []types.CorrectedObservation{
		corrected(base, 0, 0, true),
		corrected(base.Add(time.Hour), 8, 90, false),
		corrected(base.Add(2*time.Hour), 9, 90, false),
	}
	got := a.Calms("PAJN", obs)
	if got[0].Percent != 33.3 {
		t.Errorf("percent = %v, want 33.3", got[0].Percent)
	}
}

func TestCrosswinds(t *testing.T) {
	cfg := roseConfig()
	cfg.CrosswindThresholds = []float64{10}
	a := New(cfg)
	base := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)

	// Two winds blowing due east at 20 mph, one northerly at 20 mph, one calm.
	obs := []types.CorrectedObservation{
		corrected(base, 20, 90, false),
		corrected(base.Add(time.Hour), 20, 90, false),
		corrected(base.Add(2*time.Hour), 20, 0, false),
		corrected(base.Add(3*time.Hour), 0, 0, true),
	}
	got := a.Crosswinds("PAJN", obs)
	if len(got) != 18 {
		t.Fatalf("got %d rows, want 18 headings x 1 threshold", len(got))
	}

	byHeading := make(map[int]types.CrosswindExceedance)
	for _, x := range got {
		byHeading[x.Heading] = x
	}

	// Runway heading 0 (north-south): the easterlies are pure crosswind
	// (20 > 10), the northerly has none. 2 of 3 non-calm observations.
	if p := byHeading[0].Percent; math.Abs(p-66.67) > 0.001 {
		t.Errorf("heading 0 percent = %v, want 66.67", p)
	}
	// Runway heading 90 (east-west): the northerly is pure crosswind.
	if p := byHeading[90].Percent; math.Abs(p-33.33) > 0.001 {
		t.Errorf("heading 90 percent = %v, want 33.33", p)
	}
}

func TestCrosswindsNoThresholds(t *testing.T) {
	a := New(roseConfig())
	obs := []types.CorrectedObservation{
		corrected(time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC), 20, 90, false),
	}
	if got := a.Crosswinds("PAJN", obs); got != nil {
		t.Errorf("got %d rows with no thresholds configured, want none", len(got))
	}
}

func TestCrosswindComponent(t *testing.T) {
	tests := []struct {
		speed, dir, heading float64
		want                float64
	}{
		{20, 90, 0, 20},   // pure crosswind
		{20, 0, 0, 0},     // pure headwind
		{20, 180, 0, 0},   // pure tailwind
		{20, 45, 0, 20 * math.Sqrt2 / 2},
		{20, 270, 0, 20},  // crosswind from the other side
		{20, 350, 170, 0}, // tailwind across the wrap
	}
	for _, tt := range tests {
		got := crosswindComponent(tt.speed, tt.dir, tt.heading)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("crosswindComponent(%v, %v, %v) = %v, want %v", tt.speed, tt.dir, tt.heading, got, tt.want)
		}
	}
}

func TestEnergy(t *testing.T) {
	cfg := roseConfig()
	cfg.EnergyPotential = true
	a := New(cfg)

	// Constant 22.37 mph = 10 m/s all month: WEP = 0.5 * 1.23 * 1000 = 615.
	base := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)
	var obs []types.CorrectedObservation
	for i := 0; i < 100; i++ {
		obs = append(obs, corrected(base.Add(time.Duration(i)*time.Hour), 22.37, 90, false))
	}
	obs = append(obs, corrected(time.Date(1995, 7, 1, 0, 0, 0, 0, time.UTC), 22.37, 90, false))

	got := a.Energy("PAJN", obs)
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2 station-months", len(got))
	}
	for i, e := range got {
		if e.MeanWEP != 615 {
			t.Errorf("row %d: mean WEP = %v, want 615", i, e.MeanWEP)
		}
	}
	if got[0].Year != 1995 || got[0].Month != 6 || got[1].Month != 7 {
		t.Errorf("rows out of order: %+v", got)
	}
}
