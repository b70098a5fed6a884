package recordstore

import (
	"strings"
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestReadSortsAndDeduplicates(t *testing.T) {
	// Out of order, one exact duplicate timestamp where the later record has
	// fewer missing fields and must win.
	csv := `station,valid,drct,sped,gust_mph
PAJN,1995-06-01 03:00,180,10.0,M
PAJN,1995-06-01 01:00,90,5.0,M
PAJN,1995-06-01 02:00,M,7.0,M
PAJN,1995-06-01 02:00,120,7.0,15.0
`
	store := NewStore("", Options{CalmThreshold: 2.3})
	series, err := store.read("PAJN", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if series.Raw != 4 {
		t.Errorf("raw count = %d, want 4", series.Raw)
	}
	if series.Duplicates != 1 {
		t.Errorf("duplicate count = %d, want 1", series.Duplicates)
	}
	if len(series.Observations) != 3 {
		t.Fatalf("got %d observations, want 3", len(series.Observations))
	}

	for i := 1; i < len(series.Observations); i++ {
		if !series.Observations[i-1].Timestamp.Before(series.Observations[i].Timestamp) {
			t.Errorf("observations not strictly ascending at %d", i)
		}
	}

	// The duplicate at 02:00 resolves to the record with direction and gust.
	o := series.Observations[1]
	if o.WindDir != 120 || !o.HasGust {
		t.Errorf("dedupe kept wrong record: dir=%v hasGust=%v", o.WindDir, o.HasGust)
	}
}

func TestReadDuplicateTieKeepsFirst(t *testing.T) {
	csv := `station,valid,drct,sped,gust_mph
PAJN,1995-06-01 02:00,100,7.0,M
PAJN,1995-06-01 02:00,200,9.0,M
`
	store := NewStore("", Options{})
	series, err := store.read("PAJN", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(series.Observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(series.Observations))
	}
	if series.Observations[0].WindDir != 100 {
		t.Errorf("tie should keep first record, got dir=%v", series.Observations[0].WindDir)
	}
}

func TestReadDropsMalformedRecords(t *testing.T) {
	csv := `station,valid,drct,sped,gust_mph
PAJN,1995-06-01 01:00,90,5.0,M
PAJN,not-a-time,90,5.0,M
PAJN,1995-06-01 02:00,90,fast,M
PAJN,1995-06-01 03:00,720,5.0,M
PAJN,1995-06-01 04:00,90,M,M
PAJN,1995-06-01 05:00,90,6.0,M
`
	store := NewStore("", Options{})
	series, err := store.read("PAJN", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if series.Dropped != 4 {
		t.Errorf("dropped = %d, want 4", series.Dropped)
	}
	if len(series.Observations) != 2 {
		t.Errorf("got %d observations, want 2", len(series.Observations))
	}
}

func TestReadCalmStandardization(t *testing.T) {
	tests := []struct {
		name     string
		row      string
		wantCalm bool
		wantWS   float64
		wantDir  float64
	}{
		{"below threshold", "PAJN,1995-06-01 01:00,90,1.0,M", true, 0, 0},
		{"at threshold", "PAJN,1995-06-01 01:00,90,2.3,M", true, 0, 0},
		{"above threshold", "PAJN,1995-06-01 01:00,90,2.4,M", false, 2.4, 90},
		{"missing direction is variable", "PAJN,1995-06-01 01:00,M,8.0,M", true, 8.0, 0},
		// A raw zero speed reporting a direction is contradictory; the
		// direction survives so QC can flag the record.
		{"zero speed with direction", "PAJN,1995-06-01 01:00,90,0.0,M", true, 0, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore("", Options{CalmThreshold: 2.3})
			series, err := store.read("PAJN", strings.NewReader("station,valid,drct,sped,gust_mph\n"+tt.row+"\n"))
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(series.Observations) != 1 {
				t.Fatalf("got %d observations, want 1", len(series.Observations))
			}
			o := series.Observations[0]
			if o.Calm != tt.wantCalm {
				t.Errorf("calm = %v, want %v", o.Calm, tt.wantCalm)
			}
			if o.WindSpeed != tt.wantWS {
				t.Errorf("speed = %v, want %v", o.WindSpeed, tt.wantWS)
			}
			if o.WindDir != tt.wantDir {
				t.Errorf("direction = %v, want %v", o.WindDir, tt.wantDir)
			}
		})
	}
}

func TestReadNegativeGustTreatedMissing(t *testing.T) {
	csv := `station,valid,drct,sped,gust_mph
PAJN,1995-06-01 01:00,90,8.0,-9.0
`
	store := NewStore("", Options{})
	series, err := store.read("PAJN", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if series.Observations[0].HasGust {
		t.Error("negative gust should be treated as missing")
	}
}

func TestResampleHourlyKeepsNearestToHour(t *testing.T) {
	csv := `station,valid,drct,sped,gust_mph
PAJN,1995-06-01 00:53,90,5.0,M
PAJN,1995-06-01 01:07,100,6.0,M
PAJN,1995-06-01 01:55,110,7.0,M
PAJN,1995-06-01 02:20,120,8.0,M
`
	store := NewStore("", Options{HourlyResample: true})
	series, err := store.read("PAJN", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(series.Observations) != 2 {
		t.Fatalf("got %d observations, want 2", len(series.Observations))
	}

	// 00:53 and 01:07 both round to 01:00; 00:53 is equally close and earlier.
	first := series.Observations[0]
	if !first.Timestamp.Equal(ts("1995-06-01 01:00")) {
		t.Errorf("first timestamp = %v, want 01:00", first.Timestamp)
	}
	if first.WindDir != 90 {
		t.Errorf("hourly resample kept dir=%v, want the 00:53 record (90)", first.WindDir)
	}

	// 01:55 beats 02:20 for the 02:00 slot.
	second := series.Observations[1]
	if second.WindDir != 110 {
		t.Errorf("hourly resample kept dir=%v, want the 01:55 record (110)", second.WindDir)
	}
}

func TestReadEmptyArchive(t *testing.T) {
	store := NewStore("", Options{})
	series, err := store.read("PAJN", strings.NewReader(""))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(series.Observations) != 0 || series.Raw != 0 {
		t.Errorf("empty archive should yield empty series, got %+v", series)
	}
}
