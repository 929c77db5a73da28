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

package events

import (
	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/pkg/eventbus"
)

var (
	TopicDeviceSnapshot eventbus.Topic = "device_snapshot"
	TopicSensorReading  eventbus.Topic = "sensor_reading"
	TopicForecast       eventbus.Topic = "forecast"
	TopicUserRequest    eventbus.Topic = "user_request"
	TopicAccessoryState eventbus.Topic = "accessory_state"
)

// DeviceSnapshotUpdate is published by the AC client whenever it emits a
// fresh device state.
type DeviceSnapshotUpdate struct {
	Snapshot hvac.DeviceSnapshot
}

// SensorReadingUpdate is published by the sensor tracker whenever the
// external sensor poll succeeds.
type SensorReadingUpdate struct {
	Reading hvac.SensorReading
	Online  bool
}

// ForecastUpdate is published by the weather cache whenever a fetch
// succeeds.
type ForecastUpdate struct {
	Forecast hvac.Forecast
}

// UserRequestUpdate is published by the accessory adapter whenever the user
// changes target temperature, target mode, or active state.
type UserRequestUpdate struct {
	TargetTemperature *float64
	TargetMode        *hvac.ModeSelector
	Active            *bool
}

// AccessoryStateUpdate is published by the orchestrator after every
// recalculate (spec.md §4.6 step 7 "update accessory characteristics") so
// the accessory adapter can push a fresh HeaterCooler-style state to its
// clients without depending on the orchestrator directly.
type AccessoryStateUpdate struct {
	DeviceID          string
	Active            bool
	State             hvac.HVACState
	Mode              hvac.ModeSelector
	RoomTemp          *float64
	UserComfortTarget float64
	ComfortMin        float64
	ComfortMax        float64
	Snapshot          hvac.DeviceSnapshot
}
