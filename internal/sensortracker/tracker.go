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

// Package sensortracker polls the external room sensor and maintains the
// AC-sensor/room-sensor offset (spec.md §4.1), grounded on the teacher's
// internal/weather/weather.service.go ticker+pollOnce Run loop and
// internal/dx2w/invalid.value.detection.go's history-comparison idiom.
package sensortracker

import (
	"context"
	"math"
	"sync"
	"time"

	"hvaccore/v2/internal/events"
	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/internal/sensorclient"
	"hvaccore/v2/pkg/eventbus"
	"hvaccore/v2/pkg/logger"
)

const (
	offsetHysteresisC = 0.3

	// maxRoomTempJumpC/maxACSensorJumpC/anomalyWindow bound how fast a room
	// or AC sensor temperature may plausibly move, mirroring
	// invalid.value.detection.go's outside_air_temp_check rate-of-change
	// guard: a jump bigger than this within the window is treated as a bad
	// reading and discarded rather than accepted into history.
	maxRoomTempJumpC = 5.0
	maxACSensorJumpC = 8.0
	anomalyWindow    = 2 * time.Minute

	// historySize bounds the room-reading ring used for anomaly comparison.
	historySize = 8
)

// Tracker polls one external sensor and derives the AC/room offset
// (spec.md §4.1 "Offset maintenance").
type Tracker struct {
	client *sensorclient.Client
	eb     *eventbus.Bus
	poll   time.Duration
	minAC  float64
	maxAC  float64
	log    *logger.Logger

	mu             sync.RWMutex
	reading        *hvac.SensorReading
	history        []hvac.SensorReading // ring, most recent last
	online         bool
	offset         float64
	offsetValid    bool
	lastACSensor   *float64
	lastACSensorAt time.Time
}

// New builds a Tracker. minAC/maxAC bound compensate's output (spec.md §4.1
// "compensate").
func New(client *sensorclient.Client, eb *eventbus.Bus, poll time.Duration, minAC, maxAC float64) *Tracker {
	return &Tracker{
		client: client,
		eb:     eb,
		poll:   poll,
		minAC:  minAC,
		maxAC:  maxAC,
		log:    logger.New("SensorTracker"),
	}
}

// Run ticks at the configured poll interval, same shape as
// weather.service.go's Run/pollOnce.
func (t *Tracker) Run(ctx context.Context) {
	t.log.Info("starting")
	defer t.log.Info("stopping")

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	t.pollOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce()
		}
	}
}

func (t *Tracker) pollOnce() {
	reading, err := t.client.FetchTemperature()
	if err != nil {
		t.log.Error("fetch failed: %v", err)
		t.mu.Lock()
		t.online = false
		t.mu.Unlock()
		return
	}

	candidate := hvac.SensorReading{RoomTemp: reading.RoomTemp, Humidity: reading.Humidity, ObservedAt: time.Now()}

	t.mu.Lock()
	if t.isAnomalousRoomReadingLocked(candidate) {
		t.mu.Unlock()
		t.log.Error("discarding anomalous room reading: %.2fC", candidate.RoomTemp)
		return
	}
	t.reading = &candidate
	t.online = true
	t.history = append(t.history, candidate)
	if len(t.history) > historySize {
		t.history = t.history[len(t.history)-historySize:]
	}
	t.mu.Unlock()

	t.eb.Publish(events.TopicSensorReading, events.SensorReadingUpdate{
		Reading: candidate,
		Online:  true,
	})
}

// isAnomalousRoomReadingLocked rejects a candidate reading that jumps more
// than maxRoomTempJumpC from the most recent history entry within
// anomalyWindow. Caller must hold t.mu.
func (t *Tracker) isAnomalousRoomReadingLocked(candidate hvac.SensorReading) bool {
	if len(t.history) == 0 {
		return false
	}
	prev := t.history[len(t.history)-1]
	dt := candidate.ObservedAt.Sub(prev.ObservedAt)
	if dt <= 0 || dt > anomalyWindow {
		return false
	}
	return absF(candidate.RoomTemp-prev.RoomTemp) > maxRoomTempJumpC
}

// OnACSnapshot feeds a fresh AC snapshot into offset maintenance (spec.md
// §4.1): whenever a room reading has been stored, recompute the offset and
// adopt it as the offset Compensate applies if it moved by more than the
// hysteresis band. The stored reading is used whatever its age, and no
// event is published for an offset change.
func (t *Tracker) OnACSnapshot(snapshot hvac.DeviceSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acSensor := snapshot.ACSensorTemp
	now := time.Now()

	if t.lastACSensor != nil && !t.lastACSensorAt.IsZero() {
		dt := now.Sub(t.lastACSensorAt)
		if dt > 0 && dt <= anomalyWindow && absF(acSensor-*t.lastACSensor) > maxACSensorJumpC {
			t.log.Error("discarding anomalous AC sensor reading: %.2fC", acSensor)
			return
		}
	}
	t.lastACSensor = &acSensor
	t.lastACSensorAt = now

	if t.reading == nil {
		return
	}

	newOffset := acSensor - t.reading.RoomTemp
	delta := newOffset - t.offset
	if delta < 0 {
		delta = -delta
	}
	if t.offsetValid && delta <= offsetHysteresisC {
		return
	}
	t.offset = newOffset
	t.offsetValid = true
}

// Latest returns the latest reading (nil if none yet) and online state.
func (t *Tracker) Latest() (*hvac.SensorReading, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.reading == nil {
		return nil, t.online
	}
	r := *t.reading
	return &r, t.online
}

// Compensate implements spec.md §4.1's compensate(userTarget): applies the
// offset (if meaningfully non-zero and the tracker is online), clamped to
// the AC's settable range and snapped to 0.5 degC.
func (t *Tracker) Compensate(userTarget float64) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.online || !t.offsetValid || absF(t.offset) < offsetHysteresisC {
		return userTarget
	}

	compensated := roundTo(userTarget+t.offset, 0.5)
	return clampF(compensated, t.minAC, t.maxAC)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clampF(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}
