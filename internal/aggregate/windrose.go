// Package aggregate bins corrected observations into wind-rose histograms and
// the companion summary products served to the front end.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/config"
)

// PeriodAll keys the all-time aggregation granularity.
const PeriodAll = "all"

// Aggregator bins observations according to the rose configuration.
type Aggregator struct {
	cfg config.RoseData
}

// New creates an aggregator.
func New(cfg config.RoseData) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Sector assigns a direction (degrees) to a rose sector. Sectors are
// fixed-width arcs; sector 0 straddles the 0/360 boundary symmetrically, so
// with 36 sectors both 359° and 4° land in sector 0.
func (a *Aggregator) Sector(dir float64) int {
	width := 360.0 / float64(a.cfg.Sectors)
	return int(math.Mod(dir+width/2, 360) / width)
}

// SpeedBin assigns a speed to a bin. Thresholds are ascending lower edges; the
// top bin is open-ended.
func (a *Aggregator) SpeedBin(speed float64) int {
	bin := 0
	for i := 1; i < len(a.cfg.SpeedBins); i++ {
		if speed < a.cfg.SpeedBins[i] {
			break
		}
		bin = i
	}
	return bin
}

// PeriodKeys returns every configured granularity key the timestamp falls in.
// An observation contributes to each of them.
func (a *Aggregator) PeriodKeys(t time.Time) []string {
	keys := []string{PeriodAll}
	if a.cfg.Monthly {
		keys = append(keys, fmt.Sprintf("m%02d", int(t.Month())))
	}
	if a.cfg.Seasonal {
		keys = append(keys, seasonKey(t.Month()))
	}
	return keys
}

func seasonKey(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "sDJF"
	case time.March, time.April, time.May:
		return "sMAM"
	case time.June, time.July, time.August:
		return "sJJA"
	default:
		return "sSON"
	}
}

type roseKey struct {
	period string
	sector int
	bin    int
}

// Roses bins every valid observation into one (sector, speed bin) cell per
// period key. Calm and variable-direction observations go to the calm
// pseudo-sector, never dropped, so for any (station, period) the counts sum
// exactly to the number of valid observations in that period.
func (a *Aggregator) Roses(stationID string, obs []types.CorrectedObservation) []types.WindRose {
	cells := make(map[roseKey]int64)
	for _, o := range obs {
		if !o.Valid() {
			continue
		}
		sector := types.CalmSector
		if !o.Calm {
			sector = a.Sector(o.WindDir)
		}
		bin := a.SpeedBin(o.CorrectedSpeed)
		for _, period := range a.PeriodKeys(o.Timestamp) {
			cells[roseKey{period, sector, bin}]++
		}
	}

	keys := make([]roseKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].period != keys[j].period {
			return keys[i].period < keys[j].period
		}
		if keys[i].sector != keys[j].sector {
			return keys[i].sector < keys[j].sector
		}
		return keys[i].bin < keys[j].bin
	})

	roses := make([]types.WindRose, 0, len(keys))
	for _, k := range keys {
		roses = append(roses, types.WindRose{
			StationID: stationID,
			PeriodKey: k.period,
			Sector:    k.sector,
			SpeedBin:  k.bin,
			Count:     cells[k],
		})
	}
	return roses
}
