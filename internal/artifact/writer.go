// Package artifact serializes the merged pipeline output for the front end.
//
// The data file (MessagePack or JSON) holds only station results and
// diagnostics, so re-running the pipeline on unchanged input produces a
// byte-identical file. Run metadata (run ID, timing, success counts) is
// volatile by nature and goes to the SQLite index instead.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wxarchive/windprep/internal/types"
)

// Data is the deterministic content of the artifact file.
type Data struct {
	Results     []types.PipelineResult     `msgpack:"results" json:"results"`
	Diagnostics []types.StationDiagnostics `msgpack:"diagnostics" json:"diagnostics"`
}

// Writer writes run output into a directory.
type Writer struct {
	dir    string
	format string
}

// NewWriter creates a writer. format is "msgpack" or "json".
func NewWriter(dir, format string) *Writer {
	return &Writer{dir: dir, format: format}
}

// DataPath returns the artifact file path for the writer's format.
func (w *Writer) DataPath() string {
	return filepath.Join(w.dir, "artifacts."+w.format)
}

// IndexPath returns the SQLite index path.
func (w *Writer) IndexPath() string {
	return filepath.Join(w.dir, "index.db")
}

// Write persists the bundle. The data file is written to a temp file in the
// target directory and renamed into place, so a killed run leaves either the
// previous artifact or none, never a torn one. The index is rewritten after
// the data file lands.
func (w *Writer) Write(bundle *types.Bundle) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data := Data{Results: bundle.Results, Diagnostics: bundle.Diagnostics}
	encoded, err := w.encode(&data)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(w.dir, ".artifacts-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmpName, w.DataPath()); err != nil {
		return fmt.Errorf("publishing artifact: %w", err)
	}

	return w.writeIndex(bundle)
}

func (w *Writer) encode(data *Data) ([]byte, error) {
	switch w.format {
	case "json":
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding artifact: %w", err)
		}
		return b, nil
	default:
		// FlagCounts is a map; without sorted keys its iteration order would
		// leak into the artifact bytes and break reproducibility.
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)
		if err := enc.Encode(data); err != nil {
			return nil, fmt.Errorf("encoding artifact: %w", err)
		}
		return buf.Bytes(), nil
	}
}

// Load reads an artifact file written by a Writer, decoding by extension.
func Load(path string) (*Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var data Data
	if filepath.Ext(path) == ".json" {
		if err := json.Unmarshal(b, &data); err != nil {
			return nil, fmt.Errorf("decoding artifact %s: %w", path, err)
		}
		return &data, nil
	}
	if err := msgpack.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decoding artifact %s: %w", path, err)
	}
	return &data, nil
}
