package config

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements Provider for SQLite database configuration.
// Sections are stored as JSON bodies in a two-column table so the pipeline
// and the management tooling share one schema.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS config (section TEXT PRIMARY KEY, body TEXT NOT NULL)`,
	); err != nil {
		return nil, fmt.Errorf("failed to create config table: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

var sections = []string{"archive", "qc", "changepoint", "bias", "rose", "run"}

// LoadConfig loads the complete configuration from the SQLite database.
// Missing sections keep their defaults.
func (s *SQLiteProvider) LoadConfig() (*Data, error) {
	data := Default()
	targets := map[string]interface{}{
		"archive":     &data.Archive,
		"qc":          &data.QC,
		"changepoint": &data.Changepoint,
		"bias":        &data.Bias,
		"rose":        &data.Rose,
		"run":         &data.Run,
	}

	for _, section := range sections {
		var body string
		err := s.db.QueryRow(`SELECT body FROM config WHERE section = ?`, section).Scan(&body)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load config section %s: %w", section, err)
		}
		if err := json.Unmarshal([]byte(body), targets[section]); err != nil {
			return nil, fmt.Errorf("failed to decode config section %s: %w", section, err)
		}
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

// SaveConfig writes every section of data back to the database in one
// transaction. Used by the config-convert tool.
func (s *SQLiteProvider) SaveConfig(data *Data) error {
	bodies := map[string]interface{}{
		"archive":     data.Archive,
		"qc":          data.QC,
		"changepoint": data.Changepoint,
		"bias":        data.Bias,
		"rose":        data.Rose,
		"run":         data.Run,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, section := range sections {
		body, err := json.Marshal(bodies[section])
		if err != nil {
			return fmt.Errorf("failed to encode config section %s: %w", section, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO config (section, body) VALUES (?, ?)
			 ON CONFLICT(section) DO UPDATE SET body = excluded.body`,
			section, string(body),
		); err != nil {
			return fmt.Errorf("failed to save config section %s: %w", section, err)
		}
	}

	return tx.Commit()
}

// IsReadOnly always returns false for SQLite databases
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
