// Package config defines the pipeline configuration structure and the
// providers that load it from YAML files or SQLite databases.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Stage names accepted by run.stages.
const (
	StageQualityControl = "quality_control"
	StageChangepoint    = "changepoint"
	StageBiasCorrect    = "bias_correct"
	StageAggregate      = "aggregate"
)

// Provider defines the interface for configuration data sources
type Provider interface {
	// LoadConfig loads the complete configuration
	LoadConfig() (*Data, error)

	// IsReadOnly reports whether the backend can be written
	IsReadOnly() bool
	Close() error
}

// Data represents the complete pipeline configuration. Every QC rule,
// changepoint parameter, bin definition and stage-selection flag is enumerated
// here and validated once at run start.
type Data struct {
	Archive     ArchiveData     `yaml:"archive" json:"archive" validate:"required"`
	QC          QCData          `yaml:"qc" json:"qc"`
	Changepoint ChangepointData `yaml:"changepoint" json:"changepoint"`
	Bias        BiasData        `yaml:"bias" json:"bias"`
	Rose        RoseData        `yaml:"rose" json:"rose"`
	Run         RunData         `yaml:"run" json:"run"`
}

// ArchiveData configures the record store: where raw per-station archives and
// station metadata live, and how raw records are normalized.
type ArchiveData struct {
	Dir            string  `yaml:"dir" json:"dir" validate:"required"`
	MetadataFile   string  `yaml:"metadata_file" json:"metadata_file"`
	HourlyResample bool    `yaml:"hourly_resample" json:"hourly_resample"`
	CalmThreshold  float64 `yaml:"calm_threshold" json:"calm_threshold" validate:"gte=0"`
}

// QCData enumerates the quality-control rules. Each rule is independently
// toggleable.
type QCData struct {
	RangeCheck      bool    `yaml:"range_check" json:"range_check"`
	MaxSpeed        float64 `yaml:"max_speed" json:"max_speed" validate:"gt=0"`
	CalmConsistency bool    `yaml:"calm_consistency" json:"calm_consistency"`
	CalmTolerance   float64 `yaml:"calm_tolerance" json:"calm_tolerance" validate:"gte=0"`
	GustCheck       bool    `yaml:"gust_check" json:"gust_check"`
	StuckRun        bool    `yaml:"stuck_run" json:"stuck_run"`
	MinRunLength    int     `yaml:"min_run_length" json:"min_run_length" validate:"gte=2"`
	SpikeCheck      bool    `yaml:"spike_check" json:"spike_check"`
	SpikeProminence float64 `yaml:"spike_prominence" json:"spike_prominence" validate:"gte=0"`
}

// ChangepointData configures the binary-segmentation detector.
type ChangepointData struct {
	MinSegmentLen   int     `yaml:"min_segment_len" json:"min_segment_len" validate:"gte=2"`
	MaxChangepoints int     `yaml:"max_changepoints" json:"max_changepoints" validate:"gte=0"`
	Penalty         float64 `yaml:"penalty" json:"penalty" validate:"gt=0"`
	MinObservations int     `yaml:"min_observations" json:"min_observations" validate:"gte=1"`
	DirectionWeight float64 `yaml:"direction_weight" json:"direction_weight" validate:"gte=0"`
}

// BiasData configures quantile-mapping bias correction.
type BiasData struct {
	ReferenceFile string `yaml:"reference_file" json:"reference_file"`
}

// RoseData configures wind-rose binning and the optional aggregate products.
type RoseData struct {
	Sectors             int       `yaml:"sectors" json:"sectors" validate:"gte=4"`
	SpeedBins           []float64 `yaml:"speed_bins" json:"speed_bins" validate:"min=1"`
	Monthly             bool      `yaml:"monthly" json:"monthly"`
	Seasonal            bool      `yaml:"seasonal" json:"seasonal"`
	Calms               bool      `yaml:"calms" json:"calms"`
	CrosswindThresholds []float64 `yaml:"crosswind_thresholds" json:"crosswind_thresholds"`
	EnergyPotential     bool      `yaml:"energy_potential" json:"energy_potential"`
	AirDensity          float64   `yaml:"air_density" json:"air_density" validate:"gt=0"`
}

// RunData configures orchestration: worker count, stage selection and output.
type RunData struct {
	StationIDs      []string      `yaml:"station_ids" json:"station_ids"`
	Workers         int           `yaml:"workers" json:"workers" validate:"gte=1"`
	Stages          []string      `yaml:"stages" json:"stages" validate:"min=1,dive,oneof=quality_control changepoint bias_correct aggregate"`
	OutputPath      string        `yaml:"output_path" json:"output_path" validate:"required"`
	Format          string        `yaml:"format" json:"format" validate:"oneof=msgpack json"`
	StationDeadline Duration      `yaml:"station_deadline" json:"station_deadline" validate:"gte=0"`
}

// Default returns the configuration defaults. Numeric choices follow the
// operational values used for the Alaska ASOS archive; all are overridable.
func Default() *Data {
	return &Data{
		Archive: ArchiveData{
			Dir:            "data/raw",
			MetadataFile:   "data/stations.yaml",
			HourlyResample: true,
			CalmThreshold:  2.3,
		},
		QC: QCData{
			RangeCheck:      true,
			MaxSpeed:        110,
			CalmConsistency: true,
			CalmTolerance:   0,
			GustCheck:       true,
			StuckRun:        true,
			MinRunLength:    12,
			SpikeCheck:      true,
			SpikeProminence: 30,
		},
		Changepoint: ChangepointData{
			MinSegmentLen:   720,
			MaxChangepoints: 2,
			Penalty:         50,
			MinObservations: 2000,
			DirectionWeight: 1,
		},
		Bias: BiasData{},
		Rose: RoseData{
			Sectors:         36,
			SpeedBins:       []float64{0, 6, 10, 14, 18, 22},
			Monthly:         true,
			Seasonal:        false,
			Calms:           true,
			EnergyPotential: false,
			AirDensity:      1.23,
		},
		Run: RunData{
			Workers:    4,
			Stages:     []string{StageQualityControl, StageChangepoint, StageBiasCorrect, StageAggregate},
			OutputPath: "data/artifacts",
			Format:     "msgpack",
		},
	}
}

// Validate checks the configuration once at run start.
func (d *Data) Validate() error {
	if err := validator.New().Struct(d); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for i := 1; i < len(d.Rose.SpeedBins); i++ {
		if d.Rose.SpeedBins[i] <= d.Rose.SpeedBins[i-1] {
			return fmt.Errorf("invalid configuration: rose.speed_bins must be strictly ascending")
		}
	}
	if err := validStages(d.Run.Stages); err != nil {
		return err
	}
	return nil
}

// StageEnabled reports whether the named stage was selected for this run.
func (d *Data) StageEnabled(stage string) bool {
	for _, s := range d.Run.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// validStages enforces stage ordering prerequisites: every later stage needs
// quality control, and bias correction needs changepoints for its segments.
func validStages(stages []string) error {
	has := map[string]bool{}
	for _, s := range stages {
		has[s] = true
	}
	if (has[StageChangepoint] || has[StageBiasCorrect] || has[StageAggregate]) && !has[StageQualityControl] {
		return fmt.Errorf("invalid configuration: stage %q requires %q", StageChangepoint, StageQualityControl)
	}
	if has[StageBiasCorrect] && !has[StageChangepoint] {
		return fmt.Errorf("invalid configuration: stage %q requires %q", StageBiasCorrect, StageChangepoint)
	}
	return nil
}
