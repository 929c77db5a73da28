// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package hvacstate

import "hvaccore/v2/internal/hvac"

// detectColdSnap implements spec.md §4.4 "Detectors / Cold snap": a drop of
// at least cfg.ColdSnapDropC between now and the 48h-lookahead minimum,
// where the minimum must land 12-36 hours out.
func detectColdSnap(forecast hvac.Forecast, cfg Config) *hvac.ColdSnapInfo {
	temps := nonNilTemps(forecast, cfg.DetectorLookaheadHours)
	if len(temps) < cfg.DetectorMinSamples {
		return nil
	}

	minIdx, minVal := argmin(temps)
	drop := temps[0] - minVal
	if drop < cfg.ColdSnapDropC {
		return nil
	}
	if minIdx <= cfg.ColdSnapWindowMinHour || minIdx > cfg.ColdSnapWindowMaxHour {
		return nil
	}

	return &hvac.ColdSnapInfo{
		HoursUntil: minIdx,
		TempDrop:   drop,
		MinTemp:    minVal,
	}
}

// detectHeatwave mirrors detectColdSnap for the summer case: a peak
// reaching cfg.HeatwavePeakC anywhere within the lookahead, with no
// 12-36h window requirement (spec.md §4.4: unlike the cold snap, the
// heatwave detector has no such window).
func detectHeatwave(forecast hvac.Forecast, cfg Config) *hvac.HeatwaveInfo {
	temps := nonNilTemps(forecast, cfg.DetectorLookaheadHours)
	if len(temps) < cfg.DetectorMinSamples {
		return nil
	}

	maxIdx, maxVal := argmax(temps)
	if maxVal < cfg.HeatwavePeakC {
		return nil
	}

	return &hvac.HeatwaveInfo{
		HoursUntil: maxIdx,
		PeakTemp:   maxVal,
	}
}

// nonNilTemps flattens a forecast's non-null outdoor temperatures, capped
// at lookaheadHours samples.
func nonNilTemps(forecast hvac.Forecast, lookaheadHours int) []float64 {
	if !forecast.Available {
		return nil
	}
	var out []float64
	for _, s := range forecast.Samples {
		if len(out) >= lookaheadHours {
			break
		}
		if s.OutdoorTemp == nil {
			continue
		}
		out = append(out, *s.OutdoorTemp)
	}
	return out
}

func argmin(vals []float64) (int, float64) {
	idx, min := 0, vals[0]
	for i, v := range vals {
		if v < min {
			idx, min = i, v
		}
	}
	return idx, min
}

func argmax(vals []float64) (int, float64) {
	idx, max := 0, vals[0]
	for i, v := range vals {
		if v > max {
			idx, max = i, v
		}
	}
	return idx, max
}
