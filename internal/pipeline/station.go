// Package pipeline runs the per-station preprocessing stages and orchestrates
// them across a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wxarchive/windprep/internal/aggregate"
	"github.com/wxarchive/windprep/internal/biascorrect"
	"github.com/wxarchive/windprep/internal/changepoint"
	"github.com/wxarchive/windprep/internal/qc"
	"github.com/wxarchive/windprep/internal/recordstore"
	"github.com/wxarchive/windprep/internal/reference"
	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/config"
)

// StationPipeline runs the selected stages for one station at a time. Each
// station's series is an independent immutable value; nothing is shared across
// stations except the read-only reference set.
type StationPipeline struct {
	cfg    *config.Data
	store  *recordstore.Store
	meta   map[string]types.Station
	filter *qc.Filter
	corr   *biascorrect.Corrector
	agg    *aggregate.Aggregator
	logger *zap.SugaredLogger
}

// NewStationPipeline wires the stages from configuration. refs may be nil when
// no reference dataset was supplied; bias correction then passes through with
// a diagnostic flag per station.
func NewStationPipeline(cfg *config.Data, store *recordstore.Store, meta map[string]types.Station, refs *reference.Set, logger *zap.SugaredLogger) *StationPipeline {
	return &StationPipeline{
		cfg:    cfg,
		store:  store,
		meta:   meta,
		filter: qc.NewFilter(cfg.QC),
		corr:   biascorrect.NewCorrector(refs),
		agg:    aggregate.New(cfg.Rose),
		logger: logger,
	}
}

// Run executes the station's pipeline to completion. On error the returned
// result still carries whatever diagnostics had accumulated, so the
// orchestrator can report the failure without losing the counts.
func (p *StationPipeline) Run(ctx context.Context, stationID string) (types.PipelineResult, error) {
	result := types.PipelineResult{
		StationID: stationID,
		Station:   p.meta[stationID],
		Diagnostics: types.StationDiagnostics{
			StationID: stationID,
		},
	}
	if result.Station.ID == "" {
		result.Station = types.Station{ID: stationID}
	}

	series, err := p.store.Load(stationID)
	if err != nil {
		return result, fmt.Errorf("record store: %w", err)
	}
	result.Diagnostics.RawRecords = series.Raw
	result.Diagnostics.DroppedRecords = series.Dropped
	result.Diagnostics.DuplicateRecords = series.Duplicates

	if len(series.Observations) == 0 {
		return result, fmt.Errorf("%w: station %s archive has no usable observations",
			types.ErrInsufficientData, stationID)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if p.cfg.StageEnabled(config.StageQualityControl) {
		result.Cleaned = p.filter.Apply(series.Observations)
		result.Diagnostics.FlagCounts = qc.FlagCounts(result.Cleaned)
	} else {
		result.Cleaned = series.Observations
		result.Diagnostics.SkippedStages = append(result.Diagnostics.SkippedStages, config.StageQualityControl)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if p.cfg.StageEnabled(config.StageChangepoint) {
		detector := changepoint.NewDetector(p.cfg.Changepoint)
		segments, err := detector.Segments(stationID, result.Cleaned)
		if err != nil {
			return result, err
		}
		result.Segments = segments
		result.Diagnostics.Changepoints = len(segments) - 1
	} else {
		result.Segments = []types.Segment{{
			StationID: stationID,
			Start:     result.Cleaned[0].Timestamp,
			End:       result.Cleaned[len(result.Cleaned)-1].Timestamp,
			Index:     0,
		}}
		result.Diagnostics.SkippedStages = append(result.Diagnostics.SkippedStages, config.StageChangepoint)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if p.cfg.StageEnabled(config.StageBiasCorrect) {
		corrected, refMissing := p.corr.Apply(stationID, result.Cleaned, result.Segments)
		result.Corrected = corrected
		result.Diagnostics.ReferenceMissing = refMissing
		if refMissing {
			p.logger.Debugf("station %s: %v, correction skipped", stationID, types.ErrMissingReferenceData)
		}
	} else {
		result.Corrected = biascorrect.Passthrough(result.Cleaned, result.Segments)
		result.Diagnostics.SkippedStages = append(result.Diagnostics.SkippedStages, config.StageBiasCorrect)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	if p.cfg.StageEnabled(config.StageAggregate) {
		result.Roses = p.agg.Roses(stationID, result.Corrected)
		if p.cfg.Rose.Calms {
			result.Calms = p.agg.Calms(stationID, result.Corrected)
		}
		result.Crosswinds = p.agg.Crosswinds(stationID, result.Corrected)
		if p.cfg.Rose.EnergyPotential {
			result.Energy = p.agg.Energy(stationID, result.Corrected)
		}
	} else {
		result.Diagnostics.SkippedStages = append(result.Diagnostics.SkippedStages, config.StageAggregate)
	}

	return result, nil
}
