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

package sensortracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/internal/sensorclient"
	"hvaccore/v2/pkg/eventbus"
)

func newTracker() *Tracker {
	return New(sensorclient.NewClient("http://unused.invalid"), eventbus.New(), time.Hour, 16, 30)
}

func TestTracker_Compensate_OfflineReturnsUserTargetUnchanged(t *testing.T) {
	tr := newTracker()

	assert.Equal(t, 22.0, tr.Compensate(22))
}

func TestTracker_OnACSnapshot_EstablishesOffsetOnceRoomReadingExists(t *testing.T) {
	tr := newTracker()
	now := time.Now()
	tr.mu.Lock()
	tr.reading = &hvac.SensorReading{RoomTemp: 20, ObservedAt: now}
	tr.online = true
	tr.mu.Unlock()

	tr.OnACSnapshot(hvac.DeviceSnapshot{ACSensorTemp: 21})

	got := tr.Compensate(22)
	assert.Equal(t, 23.0, got) // offset of +1 applied and snapped to 0.5 degC
}

func TestTracker_OnACSnapshot_IgnoresSmallDriftWithinHysteresis(t *testing.T) {
	tr := newTracker()
	now := time.Now()
	tr.mu.Lock()
	tr.reading = &hvac.SensorReading{RoomTemp: 20, ObservedAt: now}
	tr.online = true
	tr.mu.Unlock()

	tr.OnACSnapshot(hvac.DeviceSnapshot{ACSensorTemp: 21})
	tr.OnACSnapshot(hvac.DeviceSnapshot{ACSensorTemp: 21.1}) // delta 0.1 < 0.3 hysteresis

	tr.mu.RLock()
	offset := tr.offset
	tr.mu.RUnlock()
	assert.Equal(t, 1.0, offset)
}

func TestTracker_Compensate_ClampsToACRange(t *testing.T) {
	tr := New(sensorclient.NewClient("http://unused.invalid"), eventbus.New(), time.Hour, 16, 23)
	now := time.Now()
	tr.mu.Lock()
	tr.reading = &hvac.SensorReading{RoomTemp: 15, ObservedAt: now}
	tr.online = true
	tr.mu.Unlock()

	tr.OnACSnapshot(hvac.DeviceSnapshot{ACSensorTemp: 20}) // +5 offset

	got := tr.Compensate(22)
	assert.Equal(t, 23.0, got) // 27 clamped down to maxAC=23
}

func TestTracker_Latest_ReturnsNilReadingBeforeFirstPoll(t *testing.T) {
	tr := newTracker()

	reading, online := tr.Latest()

	assert.Nil(t, reading)
	assert.False(t, online)
}
