package recordstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/wxarchive/windprep/internal/types"
)

// LoadMetadata reads the station metadata file: a YAML list of stations with
// id, name, lat, lon and elevation. Metadata is supplied by an external
// process; the pipeline never scrapes or fetches it.
func LoadMetadata(path string) (map[string]types.Station, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading station metadata: %w", err)
	}

	var doc struct {
		Stations []types.Station `yaml:"stations"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parsing station metadata %s: %w", path, err)
	}

	meta := make(map[string]types.Station, len(doc.Stations))
	for _, st := range doc.Stations {
		if st.ID == "" {
			return nil, fmt.Errorf("station metadata %s: entry without id", path)
		}
		meta[st.ID] = st
	}
	return meta, nil
}
