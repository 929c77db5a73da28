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

// Package actionexec dispatches state-machine decisions to the AC client
// (spec.md §4.5): rate limiting, sensor-offset compensation, and the
// optional drift re-dispatch. The retry-with-backoff on a single dispatch
// is grounded on internal/controller/pumpctrl/lwtctrl/lwtctrl.go's
// fixed-attempt retry loop.
package actionexec

import (
	"math"
	"sync"
	"time"

	"hvaccore/v2/internal/acclient"
	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/pkg/logger"
)

const (
	minActionInterval = 60 * time.Second
	driftThresholdC    = 0.5
	maxRetries         = 3
	retryDelay         = 500 * time.Millisecond
)

// ACClient is the subset of acclient.Client the executor depends on, kept
// as a narrow interface so tests can fake it.
type ACClient interface {
	Send(accountType, displayType int, snapshot hvac.DeviceSnapshot, flags acclient.EffectiveFlag) error
}

// Compensator narrows sensortracker.Tracker down to the one method the
// executor needs.
type Compensator interface {
	Compensate(userTarget float64) float64
}

// Executor consumes (state, action, reason) and dispatches to the AC
// client, enforcing spec.md §4.5's global rate limit.
type Executor struct {
	client      ACClient
	compensator Compensator
	flagTable   acclient.CommandFlagTable
	accountType int
	displayType int
	log         *logger.Logger

	mu                      sync.Mutex
	lastDispatchAt          time.Time
	lastCompensatedSetpoint *float64
}

// New builds an Executor for one device, resolving wire flags through
// flagTable (spec.md §6's named flags) instead of hardcoding bit
// positions, so a deployment can retarget to a cloud API with different
// flag semantics via acclient.LoadCommandFlagTable.
func New(client ACClient, compensator Compensator, flagTable acclient.CommandFlagTable, accountType, displayType int) *Executor {
	return &Executor{
		client:      client,
		compensator: compensator,
		flagTable:   flagTable,
		accountType: accountType,
		displayType: displayType,
		log:         logger.New("ActionExec"),
	}
}

// Dispatch handles a state machine decision. If action is nil, it is a
// no-op. The rate limit is enforced regardless of action type.
func (e *Executor) Dispatch(decision hvac.StateMachineDecision, currentSnapshot hvac.DeviceSnapshot) {
	if decision.Action == nil {
		return
	}
	e.dispatchAction(*decision.Action, currentSnapshot)
}

// MaybeRedispatch implements spec.md §4.5's "drift re-dispatch": even when
// the state machine returned no action, recompute the compensated setpoint
// for the current state and re-issue a coast command if it drifted enough.
func (e *Executor) MaybeRedispatch(state hvac.HVACState, predictedSetpoint float64, currentSnapshot hvac.DeviceSnapshot) {
	if state == hvac.SensorFault {
		return
	}

	compensated := e.compensator.Compensate(predictedSetpoint)

	e.mu.Lock()
	last := e.lastCompensatedSetpoint
	e.mu.Unlock()

	if last == nil {
		return
	}
	if math.Abs(compensated-*last) < driftThresholdC {
		return
	}

	e.dispatchAction(hvac.Action{Type: hvac.ActionCoast, Setpoint: predictedSetpoint}, currentSnapshot)
}

func (e *Executor) dispatchAction(action hvac.Action, currentSnapshot hvac.DeviceSnapshot) {
	e.mu.Lock()
	if !e.lastDispatchAt.IsZero() && time.Since(e.lastDispatchAt) < minActionInterval {
		e.mu.Unlock()
		e.log.Debug("rate-limited: dropping command %+v", action)
		return
	}
	e.mu.Unlock()

	compensated := e.compensator.Compensate(action.Setpoint)

	snapshot := currentSnapshot
	snapshot.ACSetTemp = compensated

	var flags acclient.EffectiveFlag
	switch action.Type {
	case hvac.ActionSetMode:
		snapshot.Power = true
		snapshot.OperationMode = modeFor(action.Mode)
		flags = e.flagTable.Flag("powerOperationModeSetTemperature")
	case hvac.ActionCoast:
		flags = e.flagTable.Flag("setTemperature")
	default:
		return
	}

	if !e.send(snapshot, flags) {
		return
	}

	e.mu.Lock()
	e.lastDispatchAt = time.Now()
	e.lastCompensatedSetpoint = &compensated
	e.mu.Unlock()
}

// send retries up to maxRetries times, same shape as lwtctrl.go's
// SetTargetLWT. Failures do not mutate timers (spec.md §4.5 "Failure
// handling"): the caller's lastDispatchAt is only updated on success.
func (e *Executor) send(snapshot hvac.DeviceSnapshot, flags acclient.EffectiveFlag) bool {
	for i := 0; i < maxRetries; i++ {
		if err := e.client.Send(e.accountType, e.displayType, snapshot, flags); err != nil {
			e.log.Error("attempt %d/%d: %v", i+1, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}
		return true
	}
	e.log.Error("dispatch failed after %d attempts", maxRetries)
	return false
}

func modeFor(mode string) hvac.OperationMode {
	switch mode {
	case "heat":
		return hvac.ModeHeat
	case "cool":
		return hvac.ModeCool
	default:
		return hvac.ModeAuto
	}
}
