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

// Package accessory exposes the HeaterCooler-style external surface
// described in spec.md §4.7: Active, CurrentHeaterCoolerState,
// TargetHeaterCoolerState, CurrentTemperature, CoolingThresholdTemperature,
// HeatingThresholdTemperature. Grounded on
// internal/thermostat/thermostat.service.go's client-request-queue +
// event-broadcast Run loop, generalized from a single local backend to the
// event-bus-decoupled orchestrator this package never imports directly.
package accessory

import (
	"context"
	"sync"

	"hvaccore/v2/internal/acclient"
	"hvaccore/v2/internal/events"
	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/pkg/eventbus"
	"hvaccore/v2/pkg/logger"
)

// ACPowerClient is the narrow subset of acclient.Client the accessory needs
// for the "Active bypasses the predictive path" direct power toggle
// (spec.md §4.7).
type ACPowerClient interface {
	Send(accountType, displayType int, snapshot hvac.DeviceSnapshot, flags acclient.EffectiveFlag) error
}

// Request is one write from an accessory client (HTTP POST or websocket
// message), mirroring thermostat.web.service.go's WebAppRequest shape.
type Request struct {
	Command           string  `json:"command"`
	TargetTemperature float64 `json:"target_temperature,omitempty"`
	TargetMode        string  `json:"target_mode,omitempty"` // "heat" | "cool" | "auto"
	Active            bool    `json:"active,omitempty"`
}

// State is the HeaterCooler-style snapshot pushed to clients, mirroring
// thermostat.web.service.go's WebAppState shape renamed to this domain.
type State struct {
	Active                      bool    `json:"active"`
	CurrentHeaterCoolerState    string  `json:"current_heater_cooler_state"`
	TargetHeaterCoolerState     string  `json:"target_heater_cooler_state"`
	CurrentTemperature          float64 `json:"current_temperature"`
	CoolingThresholdTemperature float64 `json:"cooling_threshold_temperature"`
	HeatingThresholdTemperature float64 `json:"heating_threshold_temperature"`
}

// Accessory is one device's external-facing surface. It holds no control
// logic of its own: reads arrive via events.TopicAccessoryState, writes are
// republished to events.TopicUserRequest for the orchestrator to apply.
type Accessory struct {
	deviceID    string
	eb          *eventbus.Bus
	client      ACPowerClient
	accountType int
	displayType int
	clientQueue chan Request
	log         *logger.Logger

	mu           sync.RWMutex
	state        State
	lastSnapshot hvac.DeviceSnapshot
	haveSnapshot bool

	httpHandler *httpHandler
}

// New builds an Accessory for one device. client is used only for the
// direct Active power toggle; it may be nil in tests that never exercise
// that path.
func New(deviceID string, eb *eventbus.Bus, client ACPowerClient, accountType, displayType int) *Accessory {
	a := &Accessory{
		deviceID:    deviceID,
		eb:          eb,
		client:      client,
		accountType: accountType,
		displayType: displayType,
		clientQueue: make(chan Request, 8),
		log:         logger.New("Accessory "),
	}
	a.httpHandler = newHTTPHandler(a)
	return a
}

// Run consumes accessory-state events from the orchestrator and client
// requests from the HTTP/websocket surface, same merged-select shape as
// thermostat.service.go's Run.
func (a *Accessory) Run(ctx context.Context) {
	a.log.Info("starting for device %s", a.deviceID)
	defer a.log.Info("stopping for device %s", a.deviceID)

	stateEvents, _ := a.eb.Subscribe(ctx, events.TopicAccessoryState, true)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-stateEvents:
			a.applyStateUpdate(ev.(events.AccessoryStateUpdate))
		case req := <-a.clientQueue:
			a.handleRequest(req)
		}
	}
}

func (a *Accessory) applyStateUpdate(u events.AccessoryStateUpdate) {
	if u.DeviceID != "" && u.DeviceID != a.deviceID {
		return
	}

	threshold := clampF(u.UserComfortTarget, u.ComfortMin, u.ComfortMax)
	state := State{
		Active:                      u.Active,
		CurrentHeaterCoolerState:    currentStateLabel(u.Active, u.State),
		TargetHeaterCoolerState:     targetModeLabel(u.Mode),
		CoolingThresholdTemperature: threshold,
		HeatingThresholdTemperature: threshold,
	}
	if u.RoomTemp != nil {
		state.CurrentTemperature = *u.RoomTemp
	}

	a.mu.Lock()
	a.state = state
	a.lastSnapshot = u.Snapshot
	a.haveSnapshot = true
	a.mu.Unlock()

	go a.broadcast(state)
}

// handleRequest applies one client write (spec.md §4.7 "Writes from the
// user") by republishing it as a UserRequestUpdate for the orchestrator,
// and — for Active — also issuing a direct power command, bypassing the
// predictive path as spec.md requires.
func (a *Accessory) handleRequest(req Request) {
	switch req.Command {
	case "set_target_temperature":
		target := req.TargetTemperature
		a.eb.Publish(events.TopicUserRequest, events.UserRequestUpdate{TargetTemperature: &target})

	case "set_target_mode":
		mode, ok := parseMode(req.TargetMode)
		if !ok {
			a.log.Error("unknown target mode: %q", req.TargetMode)
			return
		}
		a.eb.Publish(events.TopicUserRequest, events.UserRequestUpdate{TargetMode: &mode})

	case "set_active":
		active := req.Active
		a.eb.Publish(events.TopicUserRequest, events.UserRequestUpdate{Active: &active})
		a.directPowerToggle(active)

	default:
		a.log.Error("unhandled accessory request: %+v", req)
	}
}

func (a *Accessory) directPowerToggle(active bool) {
	if a.client == nil {
		return
	}

	a.mu.RLock()
	snapshot := a.lastSnapshot
	haveSnapshot := a.haveSnapshot
	a.mu.RUnlock()

	if !haveSnapshot {
		a.log.Debug("no snapshot yet, cannot toggle power directly")
		return
	}

	snapshot.Power = active
	if err := a.client.Send(a.accountType, a.displayType, snapshot, acclient.FlagPower); err != nil {
		a.log.Error("direct power toggle failed: %v", err)
	}
}

func (a *Accessory) currentState() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func currentStateLabel(active bool, s hvac.HVACState) string {
	if !active || s == hvac.SensorFault {
		return "INACTIVE"
	}
	switch s {
	case hvac.HeatingActive, hvac.PreHeat:
		return "HEATING"
	case hvac.CoolingActive, hvac.PreCool:
		return "COOLING"
	default:
		return "IDLE"
	}
}

func targetModeLabel(m hvac.ModeSelector) string {
	switch m {
	case hvac.ModeSelectorHeat:
		return "HEAT"
	case hvac.ModeSelectorCool:
		return "COOL"
	default:
		return "AUTO"
	}
}

func parseMode(s string) (hvac.ModeSelector, bool) {
	switch s {
	case "heat":
		return hvac.ModeSelectorHeat, true
	case "cool":
		return hvac.ModeSelectorCool, true
	case "auto":
		return hvac.ModeSelectorAuto, true
	default:
		return hvac.ModeSelectorAuto, false
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
