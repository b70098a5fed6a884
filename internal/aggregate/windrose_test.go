package aggregate

import (
	"testing"
	"time"

	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/config"
)

func roseConfig() config.RoseData {
	cfg := config.Default().Rose
	cfg.Monthly = false
	cfg.Seasonal = false
	return cfg
}

func corrected(ts time.Time, speed, dir float64, calm bool) types.CorrectedObservation {
	return types.CorrectedObservation{
		Observation: types.Observation{
			StationID: "PAJN",
			Timestamp: ts,
			WindSpeed: speed,
			WindDir:   dir,
			Calm:      calm,
		},
		CorrectedSpeed: speed,
	}
}

func TestSector(t *testing.T) {
	a := New(roseConfig()) // 36 sectors, 10° wide

	tests := []struct {
		dir  float64
		want int
	}{
		{0, 0},
		{4.9, 0},
		{355, 0}, // straddles north
		{359.9, 0},
		{5, 1},
		{10, 1},
		{14.9, 1},
		{180, 18},
		{354.9, 35},
	}
	for _, tt := range tests {
		if got := a.Sector(tt.dir); got != tt.want {
			t.Errorf("Sector(%v) = %d, want %d", tt.dir, got, tt.want)
		}
	}
}

func TestSpeedBin(t *testing.T) {
	a := New(roseConfig()) // bins 0, 6, 10, 14, 18, 22

	tests := []struct {
		speed float64
		want  int
	}{
		{0, 0},
		{5.9, 0},
		{6, 1},
		{9.9, 1},
		{10, 2},
		{22, 5},
		{90, 5}, // top bin open-ended
	}
	for _, tt := range tests {
		if got := a.SpeedBin(tt.speed); got != tt.want {
			t.Errorf("SpeedBin(%v) = %d, want %d", tt.speed, got, tt.want)
		}
	}
}

func TestPeriodKeys(t *testing.T) {
	cfg := roseConfig()
	cfg.Monthly = true
	cfg.Seasonal = true
	a := New(cfg)

	got := a.PeriodKeys(time.Date(1995, time.January, 15, 0, 0, 0, 0, time.UTC))
	want := []string{"all", "m01", "sDJF"}
	if len(got) != len(want) {
		t.Fatalf("PeriodKeys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PeriodKeys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRosesCountConservation(t *testing.T) {
	a := New(roseConfig())
	base := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)

	var obs []types.CorrectedObservation
	for i := 0; i < 500; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		switch {
		case i%7 == 0:
			obs = append(obs, corrected(ts, 0, 0, true))
		default:
			obs = append(obs, corrected(ts, float64(i%30), float64((i*13)%360), false))
		}
	}
	// Flagged observations are excluded from every product.
	obs[10].Flags = types.QCRange
	obs[11].Flags = types.QCSpike

	roses := a.Roses("PAJN", obs)

	var total int64
	for _, r := range roses {
		total += r.Count
	}
	if want := int64(len(obs) - 2); total != want {
		t.Errorf("rose counts sum to %d, want %d valid observations", total, want)
	}
}

func TestRosesCalmPseudoSector(t *testing.T) {
	a := New(roseConfig())
	ts := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)

	obs := []types.CorrectedObservation{
		corrected(ts, 0, 0, true),
		corrected(ts.Add(time.Hour), 8, 90, false),
	}
	roses := a.Roses("PAJN", obs)

	foundCalm := false
	for _, r := range roses {
		if r.Sector == types.CalmSector {
			foundCalm = true
			if r.Count != 1 {
				t.Errorf("calm cell count = %d, want 1", r.Count)
			}
		}
	}
	if !foundCalm {
		t.Error("calm observation missing from rose")
	}
}

func TestRosesWraparound(t *testing.T) {
	a := New(roseConfig())
	ts := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)

	obs := []types.CorrectedObservation{
		corrected(ts, 8, 359.9, false),
		corrected(ts.Add(time.Hour), 8, 0.1, false),
	}
	roses := a.Roses("PAJN", obs)
	if len(roses) != 1 {
		t.Fatalf("got %d cells, want both observations merged into sector 0", len(roses))
	}
	if roses[0].Sector != 0 || roses[0].Count != 2 {
		t.Errorf("cell = sector %d count %d, want sector 0 count 2", roses[0].Sector, roses[0].Count)
	}
}

func TestRosesDeterministicOrder(t *testing.T) {
	a := New(roseConfig())
	base := time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC)

	var obs []types.CorrectedObservation
	for i := 0; i < 200; i++ {
		obs = append(obs, corrected(base.Add(time.Duration(i)*time.Hour), float64(i%25), float64((i*71)%360), false))
	}

	first := a.Roses("PAJN", obs)
	for run := 0; run < 3; run++ {
		again := a.Roses("PAJN", obs)
		if len(again) != len(first) {
			t.Fatal("rose cell count varies between runs")
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("cell %d differs between runs: %+v vs %+v", i, first[i], again[i])
			}
		}
	}
}

func TestRosesMonthlyKeys(t *testing.T) {
	cfg := roseConfig()
	cfg.Monthly = true
	a := New(cfg)

	obs := []types.CorrectedObservation{
		corrected(time.Date(1995, time.January, 1, 0, 0, 0, 0, time.UTC), 8, 90, false),
		corrected(time.Date(1995, time.July, 1, 0, 0, 0, 0, time.UTC), 8, 90, false),
	}
	roses := a.Roses("PAJN", obs)

	periods := make(map[string]int64)
	for _, r := range roses {
		periods[r.PeriodKey] += r.Count
	}
	if periods[PeriodAll] != 2 {
		t.Errorf("all-time count = %d, want 2", periods[PeriodAll])
	}
	if periods["m01"] != 1 || periods["m07"] != 1 {
		t.Errorf("monthly counts = %v, want m01:1 m07:1", periods)
	}
}
