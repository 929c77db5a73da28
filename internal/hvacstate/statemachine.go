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

import (
	"sync"
	"time"

	"hvaccore/v2/internal/hvac"
)

// Input is one tick's worth of data fed to Machine.Step (spec.md §4.4
// "Inputs per step").
type Input struct {
	RoomTemp         *float64
	UserTarget       float64
	PredictedSetpoint float64
	SeasonMode       hvac.SeasonMode
	Forecast         hvac.Forecast
	ACPowerState     bool
	Now              time.Time
}

// Machine is the anti-oscillation state machine described in spec.md §4.4.
// It is safe for concurrent use; a device owns exactly one Machine.
type Machine struct {
	mu sync.Mutex

	cfg Config

	state     hvac.HVACState
	enteredAt time.Time

	lastOnAt         time.Time
	lastOffAt        time.Time
	lastModeSwitchAt time.Time

	history []hvac.Transition
}

// NewMachine builds a Machine in STANDBY with all timers zeroed, matching
// the teacher's "no history before the process started" convention.
func NewMachine(cfg Config, now time.Time) *Machine {
	return &Machine{
		cfg:       cfg,
		state:     hvac.Standby,
		enteredAt: now,
	}
}

// CurrentState returns the machine's current state.
func (m *Machine) CurrentState() hvac.HVACState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// TimeInState returns how long the machine has held its current state.
func (m *Machine) TimeInState(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Sub(m.enteredAt)
}

// History returns a copy of the last transitions (most recent last).
func (m *Machine) History() []hvac.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]hvac.Transition, len(m.history))
	copy(out, m.history)
	return out
}

// Reset returns the machine to STANDBY and clears all timers.
func (m *Machine) Reset(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = hvac.Standby
	m.enteredAt = now
	m.lastOnAt = time.Time{}
	m.lastOffAt = time.Time{}
	m.lastModeSwitchAt = time.Time{}
}

// Force bypasses transition guards, moving directly to state and recording
// history. Intended for tests and manual override (spec.md §4.4).
func (m *Machine) Force(state hvac.HVACState, reason string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionLocked(state, reason, now)
}

// Step evaluates one tick and returns the resulting decision. It mutates
// the machine's internal state and timers.
func (m *Machine) Step(in Input) hvac.StateMachineDecision {
	m.mu.Lock()
	defer m.mu.Unlock()

	if in.RoomTemp == nil {
		m.transitionLocked(hvac.SensorFault, "room sensor unavailable", in.Now)
		return hvac.StateMachineDecision{State: m.state, Action: actionFor(m.state, in.PredictedSetpoint), Reason: "room sensor unavailable"}
	}

	desired, reason := m.desiredState(in)
	if desired == m.state {
		return hvac.StateMachineDecision{State: m.state, Action: nil, Reason: reason}
	}

	if !m.guardAllows(desired, in.Now) {
		return hvac.StateMachineDecision{State: m.state, Action: nil, Reason: "Transition blocked by anti-oscillation timer"}
	}

	m.transitionLocked(desired, reason, in.Now)
	return hvac.StateMachineDecision{State: m.state, Action: actionFor(m.state, in.PredictedSetpoint), Reason: reason}
}

// desiredState implements spec.md §4.4 "Desired-state determination" steps
// 2-4 (step 1, the sensor-fault check, is handled by the caller).
func (m *Machine) desiredState(in Input) (hvac.HVACState, string) {
	winter := in.SeasonMode == hvac.SeasonWinter

	if winter && !inFamily(m.state, hvac.HeatingActive, hvac.PreHeat, hvac.HeatingCoast) {
		if snap := detectColdSnap(in.Forecast, m.cfg); snap != nil {
			return hvac.PreHeat, "cold snap detected"
		}
	}
	if !winter && !inFamily(m.state, hvac.CoolingActive, hvac.PreCool, hvac.CoolingCoast) {
		if wave := detectHeatwave(in.Forecast, m.cfg); wave != nil {
			return hvac.PreCool, "heatwave detected"
		}
	}

	dev := *in.RoomTemp - in.UserTarget

	if winter {
		switch {
		case dev < -m.cfg.HysteresisC:
			return hvac.HeatingActive, "below hysteresis band"
		case dev > m.cfg.HalfDeadband():
			if m.state == hvac.HeatingActive || m.state == hvac.PreHeat || m.state == hvac.HeatingCoast {
				return hvac.HeatingCoast, "above half-deadband, coasting"
			}
			return hvac.Standby, "above half-deadband"
		case m.state == hvac.HeatingCoast && dev > -0.5:
			return hvac.Standby, "coast settled near target"
		}
		if m.state == hvac.SensorFault {
			return hvac.Standby, "sensor recovered within deadband"
		}
		return m.state, "within deadband"
	}

	// summer: mirror heat<->cool and sign
	switch {
	case dev > m.cfg.HysteresisC:
		return hvac.CoolingActive, "above hysteresis band"
	case dev < -m.cfg.HalfDeadband():
		if m.state == hvac.CoolingActive || m.state == hvac.PreCool || m.state == hvac.CoolingCoast {
			return hvac.CoolingCoast, "below half-deadband, coasting"
		}
		return hvac.Standby, "below half-deadband"
	case m.state == hvac.CoolingCoast && dev < 0.5:
		return hvac.Standby, "coast settled near target"
	}
	if m.state == hvac.SensorFault {
		return hvac.Standby, "sensor recovered within deadband"
	}
	return m.state, "within deadband"
}

// guardAllows implements spec.md §4.4's three anti-oscillation timers.
func (m *Machine) guardAllows(desired hvac.HVACState, now time.Time) bool {
	leavingActive := m.state.IsActive()
	enteringActive := desired.IsActive()

	if leavingActive && !m.lastOnAt.IsZero() && now.Sub(m.lastOnAt) < m.cfg.MinOn() {
		return false
	}
	if enteringActive && !m.lastOffAt.IsZero() && now.Sub(m.lastOffAt) < m.cfg.MinOff() {
		return false
	}
	if isModeSwitch(m.state, desired) && !m.lastModeSwitchAt.IsZero() && now.Sub(m.lastModeSwitchAt) < m.cfg.MinModeSwitch() {
		return false
	}
	return true
}

// transitionLocked performs the state change, updates timers, and records
// history. Caller must hold m.mu.
func (m *Machine) transitionLocked(to hvac.HVACState, reason string, now time.Time) {
	from := m.state
	if from == to {
		return
	}

	if to.IsActive() {
		m.lastOnAt = now
	}
	if from.IsActive() && !to.IsActive() {
		m.lastOffAt = now
	}
	if isModeSwitch(from, to) {
		m.lastModeSwitchAt = now
	}

	m.state = to
	m.enteredAt = now

	m.history = append(m.history, hvac.Transition{From: from, To: to, Timestamp: now, Reason: reason})
	if len(m.history) > m.cfg.HistorySize {
		m.history = m.history[len(m.history)-m.cfg.HistorySize:]
	}
}

func actionFor(state hvac.HVACState, setpoint float64) *hvac.Action {
	switch state {
	case hvac.HeatingActive, hvac.PreHeat:
		return &hvac.Action{Type: hvac.ActionSetMode, Mode: "heat", Setpoint: setpoint}
	case hvac.CoolingActive, hvac.PreCool:
		return &hvac.Action{Type: hvac.ActionSetMode, Mode: "cool", Setpoint: setpoint}
	case hvac.Standby, hvac.HeatingCoast, hvac.CoolingCoast:
		return &hvac.Action{Type: hvac.ActionCoast, Setpoint: setpoint}
	default: // SensorFault
		return nil
	}
}

func inFamily(state hvac.HVACState, family ...hvac.HVACState) bool {
	for _, f := range family {
		if state == f {
			return true
		}
	}
	return false
}

func isHeatSide(s hvac.HVACState) bool {
	return s == hvac.HeatingActive || s == hvac.PreHeat || s == hvac.HeatingCoast
}

func isCoolSide(s hvac.HVACState) bool {
	return s == hvac.CoolingActive || s == hvac.PreCool || s == hvac.CoolingCoast
}

// isModeSwitch reports whether moving from -> to crosses the heat/cool
// family boundary (spec.md §4.4 "a heating<->cooling swap").
func isModeSwitch(from, to hvac.HVACState) bool {
	return (isHeatSide(from) && isCoolSide(to)) || (isCoolSide(from) && isHeatSide(to))
}
