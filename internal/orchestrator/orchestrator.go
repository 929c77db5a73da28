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

// Package orchestrator wires the per-device sensor tracker, weather cache,
// setpoint calculator, state machine, and action executor into the event
// loop described in spec.md §4.6, grounded on the teacher's
// internal/controller/controller.go: subscribe to every upstream topic and
// recalculate on any event.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"hvaccore/v2/internal/actionexec"
	"hvaccore/v2/internal/events"
	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/internal/hvacstate"
	"hvaccore/v2/internal/sensortracker"
	"hvaccore/v2/internal/setpoint"
	"hvaccore/v2/internal/tssink"
	"hvaccore/v2/internal/weathercache"
	"hvaccore/v2/pkg/eventbus"
	"hvaccore/v2/pkg/logger"
)

// autoAvgLookaheadHours is how far ahead the AUTO mode selector averages
// the forecast to decide winter vs summer (spec.md §4.6 "24h-average
// forecast").
const autoAvgLookaheadHours = 24

// Orchestrator runs one device's control loop: it owns no I/O itself,
// delegating to the tracker/cache/machine/executor it was built with.
type Orchestrator struct {
	deviceID string
	eb       *eventbus.Bus
	tracker  *sensortracker.Tracker
	weather  *weathercache.Cache
	calcCfg  setpoint.Config
	machine  *hvacstate.Machine
	exec     *actionexec.Executor
	sink     tssink.Sink
	log      *logger.Logger

	mu           sync.Mutex
	userTarget   float64
	comfortMin   float64
	comfortMax   float64
	modeOverride hvac.ModeSelector
	active       bool
	snapshot     hvac.DeviceSnapshot
	haveSnapshot bool

	sinkInterval time.Duration
	lastSinkAt   time.Time
}

// New builds an Orchestrator for one device. baseTarget seeds the comfort
// band and initial userTarget (spec.md §3 "baseTarget"); comfortMin/Max
// bound later TargetTemperature requests. sink may be tssink.NoopSink{}
// when no data logger is configured; sinkInterval rate-limits writes to it
// the same way actionexec rate-limits AC commands.
func New(
	deviceID string,
	eb *eventbus.Bus,
	tracker *sensortracker.Tracker,
	weather *weathercache.Cache,
	calcCfg setpoint.Config,
	machine *hvacstate.Machine,
	exec *actionexec.Executor,
	sink tssink.Sink,
	sinkInterval time.Duration,
	baseTarget, comfortMin, comfortMax float64,
) *Orchestrator {
	return &Orchestrator{
		deviceID:     deviceID,
		eb:           eb,
		tracker:      tracker,
		weather:      weather,
		calcCfg:      calcCfg,
		machine:      machine,
		exec:         exec,
		sink:         sink,
		sinkInterval: sinkInterval,
		log:          logger.New("Orchestrator"),
		userTarget:   baseTarget,
		comfortMin:   comfortMin,
		comfortMax:   comfortMax,
		active:       true,
	}
}

// Run subscribes to every upstream topic for this device's bus and
// recalculates on any event, mirroring controller.go's select loop.
func (o *Orchestrator) Run(ctx context.Context) {
	o.log.Info("starting for device %s", o.deviceID)
	defer o.log.Info("stopping for device %s", o.deviceID)

	sensorEvents, _ := o.eb.Subscribe(ctx, events.TopicSensorReading, true)
	forecastEvents, _ := o.eb.Subscribe(ctx, events.TopicForecast, true)
	snapshotEvents, _ := o.eb.Subscribe(ctx, events.TopicDeviceSnapshot, true)
	userEvents, _ := o.eb.Subscribe(ctx, events.TopicUserRequest, true)

	for {
		select {
		case ev := <-sensorEvents:
			_ = ev.(events.SensorReadingUpdate)
			o.recalculate()
		case ev := <-forecastEvents:
			_ = ev.(events.ForecastUpdate)
			o.recalculate()
		case ev := <-snapshotEvents:
			o.handleSnapshot(ev.(events.DeviceSnapshotUpdate))
		case ev := <-userEvents:
			o.handleUserRequest(ev.(events.UserRequestUpdate))
		case <-ctx.Done():
			return
		}
	}
}

// handleSnapshot records the device's latest AC snapshot. On the very first
// snapshot it also seeds userTarget from the AC's current setpoint (spec.md
// §4.6 step 3 "on the first tick, userComfortTarget starts from the
// snapshot's current setpoint"), clamped to the comfort band, rather than
// leaving the constructor's baseTarget in place indefinitely.
func (o *Orchestrator) handleSnapshot(u events.DeviceSnapshotUpdate) {
	o.mu.Lock()
	if !o.haveSnapshot {
		o.userTarget = clampF(u.Snapshot.ACSetTemp, o.comfortMin, o.comfortMax)
	}
	o.snapshot = u.Snapshot
	o.haveSnapshot = true
	o.mu.Unlock()

	o.tracker.OnACSnapshot(u.Snapshot)
	o.recalculate()
}

// handleUserRequest applies a sparse patch from the accessory (spec.md
// §4.7): only non-nil fields change.
func (o *Orchestrator) handleUserRequest(u events.UserRequestUpdate) {
	o.mu.Lock()
	if u.TargetTemperature != nil {
		o.userTarget = clampF(*u.TargetTemperature, o.comfortMin, o.comfortMax)
	}
	if u.TargetMode != nil {
		o.modeOverride = *u.TargetMode
	}
	if u.Active != nil {
		o.active = *u.Active
	}
	o.mu.Unlock()

	if !o.isActive() {
		o.machine.Force(hvac.Standby, "accessory deactivated", time.Now())
	}
	o.recalculate()
}

func (o *Orchestrator) isActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// recalculate implements spec.md §4.6's per-tick pipeline: pull the latest
// room reading and forecast, resolve the season, run the calculator and
// state machine, then dispatch (or drift-redispatch) through the executor.
func (o *Orchestrator) recalculate() {
	o.mu.Lock()
	active := o.active
	userTarget := o.userTarget
	modeOverride := o.modeOverride
	snapshot := o.snapshot
	haveSnapshot := o.haveSnapshot
	o.mu.Unlock()

	if !active {
		return
	}

	reading, sensorOnline := o.tracker.Latest()
	var roomTemp *float64
	if sensorOnline && reading != nil {
		rt := reading.RoomTemp
		roomTemp = &rt
	}

	forecast := o.weather.GetForecast()
	season := o.resolveSeasonMode(modeOverride, userTarget)

	ctx := hvac.ControlContext{
		UserComfortTarget: userTarget,
		RoomTemp:          roomTemp,
		OutdoorTemp:       o.weather.CurrentOutdoorTemp(),
		ForecastTemps:     o.weather.TempsForNextNHours(48),
		ForecastSolar:     o.weather.SolarForNextNHours(48),
		SeasonMode:        season,
		ACPowerState:      snapshot.Power,
	}
	prediction := setpoint.Calculate(ctx, o.calcCfg)

	decision := o.machine.Step(hvacstate.Input{
		RoomTemp:          roomTemp,
		UserTarget:        userTarget,
		PredictedSetpoint: prediction.PredictedRoomTarget,
		SeasonMode:        season,
		Forecast:          forecast,
		ACPowerState:      snapshot.Power,
		Now:               time.Now(),
	})

	o.log.Debug("device %s: season=%s state=%s setpoint=%.1f reason=%q",
		o.deviceID, season, decision.State, prediction.PredictedRoomTarget, decision.Reason)

	o.eb.Publish(events.TopicAccessoryState, events.AccessoryStateUpdate{
		DeviceID:          o.deviceID,
		Active:            active,
		State:             decision.State,
		Mode:              modeOverride,
		RoomTemp:          roomTemp,
		UserComfortTarget: userTarget,
		ComfortMin:        o.comfortMin,
		ComfortMax:        o.comfortMax,
		Snapshot:          snapshot,
	})

	o.maybeWriteSinkPoint(season, decision.State, userTarget, prediction, roomTemp, ctx.OutdoorTemp, snapshot)

	if !haveSnapshot {
		o.log.Debug("device %s: no AC snapshot yet, withholding dispatch", o.deviceID)
		return
	}

	if decision.Action != nil {
		o.exec.Dispatch(decision, snapshot)
		return
	}
	o.exec.MaybeRedispatch(decision.State, prediction.PredictedRoomTarget, snapshot)
}

// maybeWriteSinkPoint posts one point to the optional time-series sink
// (spec.md §6 "Optional time-series sink"), rate-limited to sinkInterval.
func (o *Orchestrator) maybeWriteSinkPoint(
	season hvac.SeasonMode,
	state hvac.HVACState,
	userTarget float64,
	prediction hvac.PredictionResult,
	roomTemp, outdoorTemp *float64,
	snapshot hvac.DeviceSnapshot,
) {
	o.mu.Lock()
	if !o.lastSinkAt.IsZero() && time.Since(o.lastSinkAt) < o.sinkInterval {
		o.mu.Unlock()
		return
	}
	o.lastSinkAt = time.Now()
	o.mu.Unlock()

	acSensor := snapshot.ACSensorTemp
	o.sink.WritePoint(tssink.Tags{
		DeviceID:   o.deviceID,
		HVACState:  state.String(),
		SeasonMode: season.String(),
	}, tssink.Fields{
		IndoorTemp:      roomTemp,
		RecuperatorTemp: &acSensor,
		OutdoorTemp:     outdoorTemp,
		ACSetpoint:      prediction.PredictedRoomTarget,
		UserTarget:      userTarget,
		PowerState:      snapshot.Power,
	})
}

// resolveSeasonMode implements spec.md §4.6's mode-selector rule: HEAT/COOL
// force a season, AUTO falls back to a 24h-average forecast comparison
// against userTarget, and to winter when no forecast is available.
func (o *Orchestrator) resolveSeasonMode(sel hvac.ModeSelector, userTarget float64) hvac.SeasonMode {
	switch sel {
	case hvac.ModeSelectorHeat:
		return hvac.SeasonWinter
	case hvac.ModeSelectorCool:
		return hvac.SeasonSummer
	default:
		avg, ok := o.weather.AvgForNextNHours(autoAvgLookaheadHours)
		if !ok {
			return hvac.SeasonWinter
		}
		if avg <= userTarget {
			return hvac.SeasonWinter
		}
		return hvac.SeasonSummer
	}
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
