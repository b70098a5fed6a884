// Command windprep runs the station wind preprocessing pipeline: it loads raw
// per-station observation archives, quality-controls them, detects regime
// changepoints, applies bias correction against a reference distribution and
// bins the result into wind-rose artifacts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/wxarchive/windprep/internal/artifact"
	"github.com/wxarchive/windprep/internal/log"
	"github.com/wxarchive/windprep/internal/pipeline"
	"github.com/wxarchive/windprep/internal/recordstore"
	"github.com/wxarchive/windprep/internal/reference"
	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/config"
)

const version = "1.2-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source (YAML file or SQLite database)")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	stations := flag.String("stations", "", "Comma-separated station IDs to process (default: all archives)")
	workers := flag.Int("workers", 0, "Worker pool size (overrides config)")
	stages := flag.String("stages", "", "Comma-separated stage selection (overrides config): quality_control,changepoint,bias_correct,aggregate")
	output := flag.String("output", "", "Output directory (overrides config)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("windprep %s\n", version)
		os.Exit(0)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *stations, *workers, *stages, *output)
	if err := cfg.Validate(); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Errorf("Run failed: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Data) error {
	store := recordstore.NewStore(cfg.Archive.Dir, recordstore.Options{
		HourlyResample: cfg.Archive.HourlyResample,
		CalmThreshold:  cfg.Archive.CalmThreshold,
	})

	meta := map[string]types.Station{}
	if cfg.Archive.MetadataFile != "" {
		var err error
		meta, err = recordstore.LoadMetadata(cfg.Archive.MetadataFile)
		if err != nil {
			return err
		}
	}

	var refs *reference.Set
	if cfg.Bias.ReferenceFile != "" {
		var err error
		refs, err = reference.Load(cfg.Bias.ReferenceFile)
		if err != nil {
			return err
		}
	}

	// SIGINT/SIGTERM stop dispatching new stations; in-flight stations finish.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := pipeline.NewOrchestrator(cfg, store, meta, refs, log.GetSugaredLogger())
	bundle, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	writer := artifact.NewWriter(cfg.Run.OutputPath, cfg.Run.Format)
	if err := writer.Write(bundle); err != nil {
		return err
	}

	log.Infof("run %s complete: %d stations succeeded, %d failed, artifacts in %s",
		bundle.Summary.RunID, bundle.Summary.Succeeded, bundle.Summary.Failed, cfg.Run.OutputPath)
	for _, diag := range bundle.Diagnostics {
		if diag.Failed {
			log.Warnf("station %s excluded: %s", diag.StationID, diag.FailureReason)
		}
	}
	return nil
}

func applyOverrides(cfg *config.Data, stations string, workers int, stages, output string) {
	if stations != "" {
		cfg.Run.StationIDs = splitList(stations)
	}
	if workers > 0 {
		cfg.Run.Workers = workers
	}
	if stages != "" {
		cfg.Run.Stages = splitList(stages)
	}
	if output != "" {
		cfg.Run.OutputPath = output
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadConfig(cfgFile, cfgBackend string) (*config.Data, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.Provider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, errors.New("unsupported configuration backend: use 'yaml' or 'sqlite'")
	}
	defer provider.Close()

	return provider.LoadConfig()
}
