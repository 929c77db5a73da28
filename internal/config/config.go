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

package config

import (
	"encoding/json"
	"log"
	"os"

	"hvaccore/v2/internal/hvacstate"
	"hvaccore/v2/internal/setpoint"
)

// LocationConfig is a device's geographic position, used for forecast
// lookups. Immutable per device.
type LocationConfig struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ExternalSensorConfig configures the external room-temperature sensor
// poller.
type ExternalSensorConfig struct {
	Addr                string `json:"addr"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
}

// ACConfig configures the AC cloud client connection.
type ACConfig struct {
	Addr                   string  `json:"addr"`
	RefreshIntervalSeconds int     `json:"refresh_interval_seconds"`
	AccountType            int     `json:"account_type"`
	DisplayType            int     `json:"display_type"`
	MinSetTemp             float64 `json:"min_set_temp"`
	MaxSetTemp             float64 `json:"max_set_temp"`
}

// WeatherConfig configures the hourly forecast cache.
type WeatherConfig struct {
	PollIntervalMinutes int `json:"poll_interval_minutes"`
	CacheValidMinutes   int `json:"cache_valid_minutes"`
	TimeoutSeconds      int `json:"timeout_seconds"`
}

// DataLoggerConfig configures the optional time-series sink.
type DataLoggerConfig struct {
	Addr            string `json:"addr"`
	ApiKey          string `json:"apikey"`
	IntervalSeconds int    `json:"interval_seconds"`
}

// DeviceConfig is one managed AC/room pairing. A single process may run
// several, each fully independent (spec.md §5 "Shared resources: none
// across devices").
type DeviceConfig struct {
	ID                string               `json:"id"`
	TargetTemperature float64              `json:"target_temperature"`
	Location          LocationConfig       `json:"location"`
	ExternalSensor    ExternalSensorConfig `json:"external_sensor"`
	AC                ACConfig             `json:"ac"`
	Weather           WeatherConfig        `json:"weather"`
	DataLogger        DataLoggerConfig     `json:"datalogger"`
	Calculator        setpoint.Config      `json:"calculator"`
	StateMachine      hvacstate.Config     `json:"state_machine"`
}

// Config is the top-level application config.
type Config struct {
	Devices []DeviceConfig `json:"devices"`

	// not loaded from file, but added here to pass to all services
	// alongside config
	DataDir string `json:"-"`
	RootDir string `json:"-"`
}

func LoadFile(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open config: %v", err)
	}
	defer f.Close()

	var c Config
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		log.Fatalf("decode config: %v", err)
	}

	for i := range c.Devices {
		applyDeviceDefaults(&c.Devices[i])
	}
	return &c
}

func applyDeviceDefaults(d *DeviceConfig) {
	if d.TargetTemperature == 0 {
		d.TargetTemperature = 23
	}
	if d.ExternalSensor.PollIntervalSeconds == 0 {
		d.ExternalSensor.PollIntervalSeconds = 60
	}
	if d.AC.RefreshIntervalSeconds == 0 {
		d.AC.RefreshIntervalSeconds = 90
	}
	if d.AC.MinSetTemp == 0 {
		d.AC.MinSetTemp = 16
	}
	if d.AC.MaxSetTemp == 0 {
		d.AC.MaxSetTemp = 30
	}
	if d.Weather.PollIntervalMinutes == 0 {
		d.Weather.PollIntervalMinutes = 60
	}
	if d.Weather.CacheValidMinutes == 0 {
		d.Weather.CacheValidMinutes = 120
	}
	if d.Weather.TimeoutSeconds == 0 {
		d.Weather.TimeoutSeconds = 10
	}
	if d.DataLogger.IntervalSeconds == 0 {
		d.DataLogger.IntervalSeconds = 60
	}
	d.Calculator = setpoint.DefaultConfig().OverrideWith(d.Calculator)
	d.StateMachine = hvacstate.DefaultConfig().OverrideWith(d.StateMachine)
}

// ComfortBand returns the [min, max] the user may dial TargetTemperature
// within (spec.md §3 "baseTarget−3 ≤ userComfortTarget ≤ baseTarget+3").
func (d DeviceConfig) ComfortBand() (min, max float64) {
	return d.TargetTemperature - 3, d.TargetTemperature + 3
}

// ClampComfortTarget clamps a user-requested target into the comfort band.
func (d DeviceConfig) ClampComfortTarget(t float64) float64 {
	min, max := d.ComfortBand()
	if t < min {
		return min
	}
	if t > max {
		return max
	}
	return t
}
