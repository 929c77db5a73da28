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

package setpoint

// Config holds the calculator's overridable constants (spec.md §4.3).
// Zero-valued fields are treated as "use the default" by OverrideWith, so a
// config file only needs to list the constants it wants to change.
type Config struct {
	DesignOutdoorWinterC float64 `json:"design_outdoor_winter_c"`
	DesignOutdoorSummerC float64 `json:"design_outdoor_summer_c"`

	// L1 outdoor reset
	OutdoorResetGain  float64 `json:"outdoor_reset_gain"`
	OutdoorResetClamp float64 `json:"outdoor_reset_clamp"` // +/-

	// L2 forecast look-ahead
	ForecastHorizonHours      int     `json:"forecast_horizon_hours"`
	ForecastTimeConstantHours float64 `json:"forecast_time_constant_hours"`
	ForecastGain              float64 `json:"forecast_gain"`
	ForecastClamp             float64 `json:"forecast_clamp"` // +/-

	// L3 solar gain (winter only)
	SolarLookaheadHours int     `json:"solar_lookahead_hours"`
	SolarThresholdWm2   float64 `json:"solar_threshold_wm2"`
	SolarGain           float64 `json:"solar_gain"`
	SolarClampMin       float64 `json:"solar_clamp_min"`

	// L4 error correction
	ErrorCorrectionKp    float64 `json:"error_correction_kp"`
	ErrorCorrectionClamp float64 `json:"error_correction_clamp"` // +/-

	// L5 cold-weather boost (winter only)
	ColdBoostThreshold1C float64 `json:"cold_boost_threshold_1c"` // < this -> Boost1
	ColdBoostAmount1     float64 `json:"cold_boost_amount_1"`
	ColdBoostThreshold2C float64 `json:"cold_boost_threshold_2c"` // < this -> Boost2
	ColdBoostAmount2     float64 `json:"cold_boost_amount_2"`
	ColdBoostThreshold3C float64 `json:"cold_boost_threshold_3c"` // < this -> Boost3
	ColdBoostAmount3     float64 `json:"cold_boost_amount_3"`

	// Final bounds
	FinalBoundSummer      float64 `json:"final_bound_summer"`       // +/- around userComfortTarget
	FinalBoundWinterNorm  float64 `json:"final_bound_winter_norm"`  // +/- around userComfortTarget
	FinalBoundWinterCold  float64 `json:"final_bound_winter_cold"`  // upper bound when outdoor < 0 in winter
	FinalClampMin         float64 `json:"final_clamp_min"`
	FinalClampMax         float64 `json:"final_clamp_max"`
	RoundStep             float64 `json:"round_step"`
}

// DefaultConfig returns the documented defaults from spec.md §4.3.
func DefaultConfig() Config {
	return Config{
		DesignOutdoorWinterC: 10,
		DesignOutdoorSummerC: 25,

		OutdoorResetGain:  0.4,
		OutdoorResetClamp: 2,

		ForecastHorizonHours:      24,
		ForecastTimeConstantHours: 6,
		ForecastGain:              0.3,
		ForecastClamp:             1,

		SolarLookaheadHours: 6,
		SolarThresholdWm2:   200,
		SolarGain:           0.02,
		SolarClampMin:       -2,

		ErrorCorrectionKp:    0.3,
		ErrorCorrectionClamp: 1,

		ColdBoostThreshold1C: -5,
		ColdBoostAmount1:     3,
		ColdBoostThreshold2C: 0,
		ColdBoostAmount2:     2,
		ColdBoostThreshold3C: 5,
		ColdBoostAmount3:     1,

		FinalBoundSummer:     2,
		FinalBoundWinterNorm: 2,
		FinalBoundWinterCold: 4,
		FinalClampMin:        16,
		FinalClampMax:        30,
		RoundStep:            0.5,
	}
}

// OverrideWith returns c with every non-zero field of override applied on
// top, mirroring internal/config's "apply defaults only where unset"
// pattern.
func (c Config) OverrideWith(override Config) Config {
	out := c
	if override.DesignOutdoorWinterC != 0 {
		out.DesignOutdoorWinterC = override.DesignOutdoorWinterC
	}
	if override.DesignOutdoorSummerC != 0 {
		out.DesignOutdoorSummerC = override.DesignOutdoorSummerC
	}
	if override.OutdoorResetGain != 0 {
		out.OutdoorResetGain = override.OutdoorResetGain
	}
	if override.OutdoorResetClamp != 0 {
		out.OutdoorResetClamp = override.OutdoorResetClamp
	}
	if override.ForecastHorizonHours != 0 {
		out.ForecastHorizonHours = override.ForecastHorizonHours
	}
	if override.ForecastTimeConstantHours != 0 {
		out.ForecastTimeConstantHours = override.ForecastTimeConstantHours
	}
	if override.ForecastGain != 0 {
		out.ForecastGain = override.ForecastGain
	}
	if override.ForecastClamp != 0 {
		out.ForecastClamp = override.ForecastClamp
	}
	if override.SolarLookaheadHours != 0 {
		out.SolarLookaheadHours = override.SolarLookaheadHours
	}
	if override.SolarThresholdWm2 != 0 {
		out.SolarThresholdWm2 = override.SolarThresholdWm2
	}
	if override.SolarGain != 0 {
		out.SolarGain = override.SolarGain
	}
	if override.SolarClampMin != 0 {
		out.SolarClampMin = override.SolarClampMin
	}
	if override.ErrorCorrectionKp != 0 {
		out.ErrorCorrectionKp = override.ErrorCorrectionKp
	}
	if override.ErrorCorrectionClamp != 0 {
		out.ErrorCorrectionClamp = override.ErrorCorrectionClamp
	}
	if override.ColdBoostThreshold1C != 0 {
		out.ColdBoostThreshold1C = override.ColdBoostThreshold1C
	}
	if override.ColdBoostAmount1 != 0 {
		out.ColdBoostAmount1 = override.ColdBoostAmount1
	}
	if override.ColdBoostThreshold2C != 0 {
		out.ColdBoostThreshold2C = override.ColdBoostThreshold2C
	}
	if override.ColdBoostAmount2 != 0 {
		out.ColdBoostAmount2 = override.ColdBoostAmount2
	}
	if override.ColdBoostThreshold3C != 0 {
		out.ColdBoostThreshold3C = override.ColdBoostThreshold3C
	}
	if override.ColdBoostAmount3 != 0 {
		out.ColdBoostAmount3 = override.ColdBoostAmount3
	}
	if override.FinalBoundSummer != 0 {
		out.FinalBoundSummer = override.FinalBoundSummer
	}
	if override.FinalBoundWinterNorm != 0 {
		out.FinalBoundWinterNorm = override.FinalBoundWinterNorm
	}
	if override.FinalBoundWinterCold != 0 {
		out.FinalBoundWinterCold = override.FinalBoundWinterCold
	}
	if override.FinalClampMin != 0 {
		out.FinalClampMin = override.FinalClampMin
	}
	if override.FinalClampMax != 0 {
		out.FinalClampMax = override.FinalClampMax
	}
	if override.RoundStep != 0 {
		out.RoundStep = override.RoundStep
	}
	return out
}
