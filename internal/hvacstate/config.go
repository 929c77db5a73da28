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

// Package hvacstate implements the 8-state anti-oscillation state machine
// (spec.md §4.4) that turns a predicted setpoint into a dispatchable action.
package hvacstate

import "time"

// Config holds the state machine's overridable constants (spec.md §4.4).
type Config struct {
	DeadbandC           float64 `json:"deadband_c"`
	HysteresisC         float64 `json:"hysteresis_c"`
	MinOnSeconds         int    `json:"min_on_seconds"`
	MinOffSeconds        int    `json:"min_off_seconds"`
	MinModeSwitchSeconds int    `json:"min_mode_switch_seconds"`

	// Detector parameters (spec.md §4.4 "Detectors").
	DetectorLookaheadHours int     `json:"detector_lookahead_hours"`
	DetectorMinSamples     int     `json:"detector_min_samples"`
	ColdSnapDropC          float64 `json:"cold_snap_drop_c"`
	ColdSnapWindowMinHour  int     `json:"cold_snap_window_min_hour"` // exclusive lower bound
	ColdSnapWindowMaxHour  int     `json:"cold_snap_window_max_hour"` // inclusive upper bound
	HeatwavePeakC          float64 `json:"heatwave_peak_c"`

	HistorySize int `json:"history_size"`
}

// HalfDeadband is DEADBAND/2, matching spec.md's "halfDeadband" constant.
func (c Config) HalfDeadband() float64 {
	return c.DeadbandC / 2
}

func (c Config) MinOn() time.Duration {
	return time.Duration(c.MinOnSeconds) * time.Second
}

func (c Config) MinOff() time.Duration {
	return time.Duration(c.MinOffSeconds) * time.Second
}

func (c Config) MinModeSwitch() time.Duration {
	return time.Duration(c.MinModeSwitchSeconds) * time.Second
}

// DefaultConfig returns the documented defaults from spec.md §4.4.
func DefaultConfig() Config {
	return Config{
		DeadbandC:            4.0,
		HysteresisC:          2.0,
		MinOnSeconds:         300,
		MinOffSeconds:        180,
		MinModeSwitchSeconds: 600,

		DetectorLookaheadHours: 48,
		DetectorMinSamples:     24,
		ColdSnapDropC:          5,
		ColdSnapWindowMinHour:  12,
		ColdSnapWindowMaxHour:  36,
		HeatwavePeakC:          30,

		HistorySize: 50,
	}
}

// OverrideWith returns c with every non-zero field of override applied on
// top, mirroring internal/setpoint.Config's merge pattern.
func (c Config) OverrideWith(override Config) Config {
	out := c
	if override.DeadbandC != 0 {
		out.DeadbandC = override.DeadbandC
	}
	if override.HysteresisC != 0 {
		out.HysteresisC = override.HysteresisC
	}
	if override.MinOnSeconds != 0 {
		out.MinOnSeconds = override.MinOnSeconds
	}
	if override.MinOffSeconds != 0 {
		out.MinOffSeconds = override.MinOffSeconds
	}
	if override.MinModeSwitchSeconds != 0 {
		out.MinModeSwitchSeconds = override.MinModeSwitchSeconds
	}
	if override.DetectorLookaheadHours != 0 {
		out.DetectorLookaheadHours = override.DetectorLookaheadHours
	}
	if override.DetectorMinSamples != 0 {
		out.DetectorMinSamples = override.DetectorMinSamples
	}
	if override.ColdSnapDropC != 0 {
		out.ColdSnapDropC = override.ColdSnapDropC
	}
	if override.ColdSnapWindowMinHour != 0 {
		out.ColdSnapWindowMinHour = override.ColdSnapWindowMinHour
	}
	if override.ColdSnapWindowMaxHour != 0 {
		out.ColdSnapWindowMaxHour = override.ColdSnapWindowMaxHour
	}
	if override.HeatwavePeakC != 0 {
		out.HeatwavePeakC = override.HeatwavePeakC
	}
	if override.HistorySize != 0 {
		out.HistorySize = override.HistorySize
	}
	return out
}
