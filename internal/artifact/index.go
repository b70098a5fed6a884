package artifact

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/wxarchive/windprep/internal/types"
)

// writeIndex records the run and its per-station outcomes in the SQLite index
// next to the data file. The index lets the artifact server answer station and
// diagnostics queries without decoding the whole bundle.
func (w *Writer) writeIndex(bundle *types.Bundle) error {
	db, err := sql.Open("sqlite", w.IndexPath())
	if err != nil {
		return fmt.Errorf("opening artifact index: %w", err)
	}
	defer db.Close()

	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration_s REAL NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS stations (
			run_id TEXT NOT NULL,
			station_id TEXT NOT NULL,
			name TEXT,
			latitude REAL,
			longitude REAL,
			elevation REAL,
			changepoints INTEGER NOT NULL,
			PRIMARY KEY (run_id, station_id)
		)`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT NOT NULL,
			station_id TEXT NOT NULL,
			failed INTEGER NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (run_id, station_id)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating artifact index schema: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting artifact index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, started_at, duration_s, succeeded, failed) VALUES (?, ?, ?, ?, ?)`,
		bundle.Summary.RunID,
		bundle.Summary.StartedAt.Format("2006-01-02T15:04:05Z"),
		bundle.Summary.Duration,
		bundle.Summary.Succeeded,
		bundle.Summary.Failed,
	); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	for _, res := range bundle.Results {
		if _, err := tx.Exec(
			`INSERT INTO stations (run_id, station_id, name, latitude, longitude, elevation, changepoints)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			bundle.Summary.RunID,
			res.StationID,
			res.Station.Name,
			res.Station.Latitude,
			res.Station.Longitude,
			res.Station.Elevation,
			res.Diagnostics.Changepoints,
		); err != nil {
			return fmt.Errorf("recording station %s: %w", res.StationID, err)
		}
	}

	for _, diag := range bundle.Diagnostics {
		body, err := json.Marshal(diag)
		if err != nil {
			return fmt.Errorf("encoding diagnostics for %s: %w", diag.StationID, err)
		}
		failed := 0
		if diag.Failed {
			failed = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO diagnostics (run_id, station_id, failed, body) VALUES (?, ?, ?, ?)`,
			bundle.Summary.RunID,
			diag.StationID,
			failed,
			string(body),
		); err != nil {
			return fmt.Errorf("recording diagnostics for %s: %w", diag.StationID, err)
		}
	}

	return tx.Commit()
}
