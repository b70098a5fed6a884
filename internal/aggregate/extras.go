package aggregate

import (
	"math"
	"sort"

	"github.com/wxarchive/windprep/internal/types"
)

const mphPerMPS = 2.237

// Calms counts calm observations against the total for every configured
// period, for the %calm indicator drawn at the center of a rose.
func (a *Aggregator) Calms(stationID string, obs []types.CorrectedObservation) []types.CalmSummary {
	type tally struct{ total, calm int64 }
	periods := make(map[string]*tally)

	for _, o := range obs {
		if !o.Valid() {
			continue
		}
		for _, period := range a.PeriodKeys(o.Timestamp) {
			t := periods[period]
			if t == nil {
				t = &tally{}
				periods[period] = t
			}
			t.total++
			if o.Calm {
				t.calm++
			}
		}
	}

	keys := make([]string, 0, len(periods))
	for k := range periods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.CalmSummary, 0, len(keys))
	for _, k := range keys {
		t := periods[k]
		percent := 0.0
		if t.total > 0 {
			percent = math.Round(float64(t.calm)/float64(t.total)*1000) / 10
		}
		out = append(out, types.CalmSummary{
			StationID: stationID,
			PeriodKey: k,
			Total:     t.total,
			Calm:      t.calm,
			Percent:   percent,
		})
	}
	return out
}

// Crosswinds computes, for runway headings 0–170° in 10° steps, how often the
// crosswind component exceeds each configured threshold. Calm observations
// have no crosswind and are excluded.
func (a *Aggregator) Crosswinds(stationID string, obs []types.CorrectedObservation) []types.CrosswindExceedance {
	if len(a.cfg.CrosswindThresholds) == 0 {
		return nil
	}

	var speeds, dirs []float64
	for _, o := range obs {
		if o.Valid() && !o.Calm {
			speeds = append(speeds, o.CorrectedSpeed)
			dirs = append(dirs, o.WindDir)
		}
	}
	if len(speeds) == 0 {
		return nil
	}

	out := make([]types.CrosswindExceedance, 0, 18*len(a.cfg.CrosswindThresholds))
	for heading := 0; heading < 180; heading += 10 {
		for _, threshold := range a.cfg.CrosswindThresholds {
			exceeding := 0
			for i := range speeds {
				if crosswindComponent(speeds[i], dirs[i], float64(heading)) > threshold {
					exceeding++
				}
			}
			percent := math.Round(float64(exceeding)/float64(len(speeds))*10000) / 100
			out = append(out, types.CrosswindExceedance{
				StationID: stationID,
				Heading:   heading,
				Threshold: threshold,
				Percent:   percent,
			})
		}
	}
	return out
}

// crosswindComponent is the magnitude of the wind vector projected across a
// runway with the given heading.
func crosswindComponent(speed, dir, heading float64) float64 {
	angle := math.Mod(dir-heading+180, 360) - 180
	return math.Abs(math.Sin(angle*math.Pi/180) * speed)
}

// Energy computes mean wind energy potential (0.5·ρ·v³, W/m²) per year and
// month, with speeds converted from mph to m/s.
func (a *Aggregator) Energy(stationID string, obs []types.CorrectedObservation) []types.EnergyPotential {
	type ym struct{ year, month int }
	type tally struct {
		sum float64
		n   int
	}
	months := make(map[ym]*tally)

	for _, o := range obs {
		if !o.Valid() {
			continue
		}
		key := ym{o.Timestamp.Year(), int(o.Timestamp.Month())}
		t := months[key]
		if t == nil {
			t = &tally{}
			months[key] = t
		}
		mps := o.CorrectedSpeed / mphPerMPS
		t.sum += 0.5 * a.cfg.AirDensity * mps * mps * mps
		t.n++
	}

	keys := make([]ym, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	out := make([]types.EnergyPotential, 0, len(keys))
	for _, k := range keys {
		t := months[k]
		out = append(out, types.EnergyPotential{
			StationID: stationID,
			Year:      k.year,
			Month:     k.month,
			MeanWEP:   math.Round(t.sum / float64(t.n)),
		})
	}
	return out
}
