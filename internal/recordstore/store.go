// Package recordstore loads raw per-station observation archives and
// normalizes them into time-sorted, deduplicated observation series.
//
// Archives are one CSV file per station in the IEM ASOS export layout:
//
//	station,valid,drct,sped,gust_mph
//	PAJN,1980-01-01 00:53,270,12.7,M
//
// Missing values are encoded as "M" (or empty). Timestamps are UTC.
package recordstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wxarchive/windprep/internal/types"
)

const timeLayout = "2006-01-02 15:04"

// Options control archive normalization.
type Options struct {
	// HourlyResample keeps only the observation closest to each clock hour.
	// Routine reports are filed near the hour; this drops SPECI records that
	// would otherwise oversample stormy periods.
	HourlyResample bool

	// CalmThreshold standardizes reporting practice across stations: speeds at
	// or below it are rewritten as calm (zero speed, no direction).
	CalmThreshold float64
}

// Series is a station's normalized observation sequence plus the counts of
// records that were dropped or collapsed on the way.
type Series struct {
	StationID    string
	Observations []types.Observation
	Raw          int
	Dropped      int
	Duplicates   int
}

// Store reads raw station archives from a directory.
type Store struct {
	dir  string
	opts Options
}

// NewStore creates a store over dir.
func NewStore(dir string, opts Options) *Store {
	return &Store{dir: dir, opts: opts}
}

// List returns the station IDs present in the archive directory, sorted.
func (s *Store) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads and normalizes the archive for one station.
func (s *Store) Load(stationID string) (*Series, error) {
	f, err := os.Open(filepath.Join(s.dir, stationID+".csv"))
	if err != nil {
		return nil, fmt.Errorf("opening archive for %s: %w", stationID, err)
	}
	defer f.Close()

	return s.read(stationID, f)
}

// read parses, filters and orders a station archive from r.
func (s *Store) read(stationID string, r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return &Series{StationID: stationID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading archive header for %s: %w", stationID, err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, fmt.Errorf("archive for %s: %w", stationID, err)
	}

	series := &Series{StationID: stationID}
	var recs []record
	for order := 0; ; order++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Row-level CSV damage is a malformed record, not a fatal error.
			series.Raw++
			series.Dropped++
			continue
		}
		series.Raw++
		rec, err := s.parseRow(stationID, row, cols, order)
		if err != nil {
			series.Dropped++
			continue
		}
		recs = append(recs, rec)
	}

	if s.opts.HourlyResample {
		recs = resampleHourly(recs)
	}
	series.Observations, series.Duplicates = dedupe(recs)
	return series, nil
}

// record carries a parsed observation plus the bookkeeping dedupe needs.
type record struct {
	obs     types.Observation
	missing int
	order   int
	// delta is the distance from the rounded clock hour, set by resampling.
	delta time.Duration
}

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"station", "valid", "drct", "sped"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", types.ErrMalformedRecord, required)
		}
	}
	return cols, nil
}

// parseRow converts one CSV row into an observation. Anything that cannot be
// parsed into the schema is a malformed record.
func (s *Store) parseRow(stationID string, row []string, cols map[string]int, order int) (record, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[i])
		if v == "" || v == "M" {
			return "", false
		}
		return v, true
	}

	ts, ok := field("valid")
	if !ok {
		return record{}, fmt.Errorf("%w: missing timestamp", types.ErrMalformedRecord)
	}
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return record{}, fmt.Errorf("%w: bad timestamp %q", types.ErrMalformedRecord, ts)
	}

	missing := 0
	obs := types.Observation{StationID: stationID, Timestamp: t.UTC()}

	spd, ok := field("sped")
	if !ok {
		return record{}, fmt.Errorf("%w: missing wind speed", types.ErrMalformedRecord)
	}
	obs.WindSpeed, err = strconv.ParseFloat(spd, 64)
	if err != nil || math.IsNaN(obs.WindSpeed) || math.IsInf(obs.WindSpeed, 0) {
		return record{}, fmt.Errorf("%w: bad wind speed %q", types.ErrMalformedRecord, spd)
	}

	if dir, ok := field("drct"); ok {
		obs.WindDir, err = strconv.ParseFloat(dir, 64)
		if err != nil {
			return record{}, fmt.Errorf("%w: bad wind direction %q", types.ErrMalformedRecord, dir)
		}
		if obs.WindDir < 0 || obs.WindDir >= 360 {
			// 360 means north in some feeds; anything else is garbage.
			if obs.WindDir == 360 {
				obs.WindDir = 0
			} else {
				return record{}, fmt.Errorf("%w: direction %v out of range", types.ErrMalformedRecord, obs.WindDir)
			}
		}
	} else {
		// No direction with measurable speed is a variable-wind report.
		obs.Calm = true
		missing++
	}

	if gust, ok := field("gust_mph"); ok {
		g, err := strconv.ParseFloat(gust, 64)
		if err != nil {
			return record{}, fmt.Errorf("%w: bad gust %q", types.ErrMalformedRecord, gust)
		}
		// Negative gusts are sensor noise, treated as missing.
		if g >= 0 {
			obs.GustSpeed = g
			obs.HasGust = true
		} else {
			missing++
		}
	} else {
		missing++
	}

	// Different stations report different minimum speeds. Standardize: slower
	// than the calm threshold is calm, with both speed and direction zeroed.
	// A raw zero speed carrying a direction is contradictory and keeps it for
	// QC to flag.
	if obs.WindSpeed <= s.opts.CalmThreshold {
		if obs.WindSpeed > 0 {
			obs.WindDir = 0
		}
		obs.WindSpeed = 0
		obs.Calm = true
	}

	return record{obs: obs, missing: missing, order: order}, nil
}

// resampleHourly rounds each timestamp to the nearest clock hour and keeps,
// per hour, the record closest to it. Ties go to the earlier record.
func resampleHourly(recs []record) []record {
	byHour := make(map[time.Time]record, len(recs))
	for _, rec := range recs {
		hour := rec.obs.Timestamp.Round(time.Hour)
		rec.delta = rec.obs.Timestamp.Sub(hour)
		if rec.delta < 0 {
			rec.delta = -rec.delta
		}
		rec.obs.Timestamp = hour

		best, ok := byHour[hour]
		if !ok || rec.delta < best.delta || (rec.delta == best.delta && rec.order < best.order) {
			byHour[hour] = rec
		}
	}

	out := make([]record, 0, len(byHour))
	for _, rec := range byHour {
		out = append(out, rec)
	}
	return out
}

// dedupe sorts ascending and collapses equal timestamps, preferring the record
// with fewer missing fields; ties break by input order (first wins). Returns
// the collapsed count alongside the observations.
func dedupe(recs []record) ([]types.Observation, int) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].obs.Timestamp.Equal(recs[j].obs.Timestamp) {
			return recs[i].obs.Timestamp.Before(recs[j].obs.Timestamp)
		}
		if recs[i].missing != recs[j].missing {
			return recs[i].missing < recs[j].missing
		}
		return recs[i].order < recs[j].order
	})

	duplicates := 0
	obs := make([]types.Observation, 0, len(recs))
	for _, rec := range recs {
		if n := len(obs); n > 0 && obs[n-1].Timestamp.Equal(rec.obs.Timestamp) {
			duplicates++
			continue
		}
		obs = append(obs, rec.obs)
	}
	return obs, duplicates
}

// IsNotExist reports whether err means the station has no archive file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
