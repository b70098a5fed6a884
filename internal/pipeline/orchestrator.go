package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wxarchive/windprep/internal/recordstore"
	"github.com/wxarchive/windprep/internal/reference"
	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/config"
)

// ErrNoStationsSucceeded is the run-level fatal condition: every station
// failed or there was no usable input at all.
var ErrNoStationsSucceeded = errors.New("no stations produced any result")

// Orchestrator fans station pipelines out across a bounded worker pool and
// merges the per-station results into a bundle. The merge is keyed by station
// ID, never by completion order, so the bundle is identical across runs with
// different worker counts.
type Orchestrator struct {
	cfg      *config.Data
	store    *recordstore.Store
	pipeline *StationPipeline
	logger   *zap.SugaredLogger
}

// NewOrchestrator builds an orchestrator over the given archive and reference
// set.
func NewOrchestrator(cfg *config.Data, store *recordstore.Store, meta map[string]types.Station, refs *reference.Set, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		pipeline: NewStationPipeline(cfg, store, meta, refs, logger),
		logger:   logger,
	}
}

type outcome struct {
	stationID string
	result    types.PipelineResult
	err       error
}

// Run processes every selected station and returns the merged bundle.
// Cancelling ctx stops dispatching new stations; in-flight stations complete.
// The returned error is ErrNoStationsSucceeded only when nothing succeeded;
// individual station failures are reported through the bundle's diagnostics.
func (o *Orchestrator) Run(ctx context.Context) (*types.Bundle, error) {
	started := time.Now()

	stations, err := o.selectStations()
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: no station archives found", ErrNoStationsSucceeded)
	}

	o.logger.Infof("processing %d stations with %d workers", len(stations), o.cfg.Run.Workers)

	jobs := make(chan string)
	outcomes := make(chan outcome, len(stations))

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Run.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sid := range jobs {
				result, err := o.runStation(ctx, sid)
				outcomes <- outcome{stationID: sid, result: result, err: err}
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, sid := range stations {
		select {
		case jobs <- sid:
			dispatched++
		case <-ctx.Done():
			o.logger.Warnf("abort requested, %d of %d stations dispatched; letting in-flight work finish",
				dispatched, len(stations))
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	bundle := o.merge(outcomes, started)
	if bundle.Summary.Succeeded == 0 {
		return bundle, ErrNoStationsSucceeded
	}
	return bundle, nil
}

// runStation executes one station pipeline under the configured deadline,
// converting panics into WorkerFailure so one bad station cannot take down
// the pool.
func (o *Orchestrator) runStation(ctx context.Context, stationID string) (result types.PipelineResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &types.WorkerFailure{
				StationID: stationID,
				Stage:     "pipeline",
				Err:       fmt.Errorf("panic: %v", r),
			}
		}
	}()

	// Abort stops dispatch only; a station already handed to a worker runs to
	// completion, subject only to its own deadline.
	ctx = context.WithoutCancel(ctx)
	if deadline := o.cfg.Run.StationDeadline.Value(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	return o.pipeline.Run(ctx, stationID)
}

// merge collects outcomes and assembles the bundle ordered by station ID.
func (o *Orchestrator) merge(outcomes <-chan outcome, started time.Time) *types.Bundle {
	bundle := &types.Bundle{
		Summary: types.RunSummary{
			RunID:     uuid.NewString(),
			StartedAt: started.UTC(),
		},
	}

	for out := range outcomes {
		if out.err != nil {
			o.logger.Warnf("station %s failed: %v", out.stationID, out.err)
			diag := out.result.Diagnostics
			diag.StationID = out.stationID
			diag.Failed = true
			diag.FailureReason = out.err.Error()
			bundle.Diagnostics = append(bundle.Diagnostics, diag)
			bundle.Summary.Failed++
			continue
		}
		bundle.Results = append(bundle.Results, out.result)
		bundle.Diagnostics = append(bundle.Diagnostics, out.result.Diagnostics)
		bundle.Summary.Succeeded++
	}

	sort.Slice(bundle.Results, func(i, j int) bool {
		return bundle.Results[i].StationID < bundle.Results[j].StationID
	})
	sort.Slice(bundle.Diagnostics, func(i, j int) bool {
		return bundle.Diagnostics[i].StationID < bundle.Diagnostics[j].StationID
	})

	bundle.Summary.Duration = time.Since(started).Seconds()
	return bundle
}

// selectStations resolves the configured station list, defaulting to every
// station present in the archive directory.
func (o *Orchestrator) selectStations() ([]string, error) {
	if len(o.cfg.Run.StationIDs) > 0 {
		ids := append([]string(nil), o.cfg.Run.StationIDs...)
		sort.Strings(ids)
		return ids, nil
	}
	return o.store.List()
}
