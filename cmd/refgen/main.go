// Command refgen builds a reference-distribution file from a directory of
// station archives: per-station wind-speed quantile curves, suitable as the
// bias-correction reference for a later pipeline run. Intended for deriving a
// regional reference from a trusted subset of stations.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v2"

	"github.com/wxarchive/windprep/internal/log"
	"github.com/wxarchive/windprep/internal/qc"
	"github.com/wxarchive/windprep/internal/recordstore"
	"github.com/wxarchive/windprep/pkg/config"
)

func main() {
	archiveDir := flag.String("archive", "data/raw", "Directory of raw station archives")
	out := flag.String("out", "data/reference.yaml", "Output reference file")
	points := flag.Int("points", 21, "Number of quantile points per curve")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *points < 2 {
		log.Fatalf("need at least 2 quantile points, got %d", *points)
	}

	if err := run(*archiveDir, *out, *points); err != nil {
		log.Errorf("refgen failed: %v", err)
		os.Exit(1)
	}
}

func run(archiveDir, out string, points int) error {
	defaults := config.Default()
	store := recordstore.NewStore(archiveDir, recordstore.Options{
		HourlyResample: defaults.Archive.HourlyResample,
		CalmThreshold:  defaults.Archive.CalmThreshold,
	})
	filter := qc.NewFilter(defaults.QC)

	ids, err := store.List()
	if err != nil {
		return err
	}

	probs := make([]float64, points)
	for i := range probs {
		probs[i] = float64(i) / float64(points-1)
	}

	doc := struct {
		Probabilities []float64            `yaml:"probabilities"`
		Stations      map[string][]float64 `yaml:"stations"`
		Default       []float64            `yaml:"default"`
	}{
		Probabilities: probs,
		Stations:      make(map[string][]float64, len(ids)),
	}

	var pooled []float64
	for _, sid := range ids {
		series, err := store.Load(sid)
		if err != nil {
			log.Warnf("skipping %s: %v", sid, err)
			continue
		}

		var speeds []float64
		for _, o := range filter.Apply(series.Observations) {
			if o.Valid() {
				speeds = append(speeds, o.WindSpeed)
			}
		}
		if len(speeds) == 0 {
			log.Warnf("skipping %s: no valid observations", sid)
			continue
		}
		sort.Float64s(speeds)
		doc.Stations[sid] = curve(speeds, probs)
		pooled = append(pooled, speeds...)
	}

	if len(pooled) == 0 {
		return fmt.Errorf("no usable observations under %s", archiveDir)
	}
	sort.Float64s(pooled)
	doc.Default = curve(pooled, probs)

	b, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encoding reference file: %w", err)
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return fmt.Errorf("writing reference file: %w", err)
	}

	log.Infof("wrote reference curves for %d stations to %s", len(doc.Stations), out)
	return nil
}

// curve evaluates the empirical quantile function of sorted speeds at probs.
func curve(sorted, probs []float64) []float64 {
	values := make([]float64, len(probs))
	for i, p := range probs {
		values[i] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}
	return values
}
