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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hvaccore/v2/internal/hvac"
)

func f(v float64) *float64 { return &v }

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMachine_SensorFault_Unconditional(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)

	decision := m.Step(Input{RoomTemp: nil, UserTarget: 23, SeasonMode: hvac.SeasonWinter, Now: epoch})

	assert.Equal(t, hvac.SensorFault, decision.State)
	assert.Nil(t, decision.Action)
}

func TestMachine_WinterColdMorning_StaysStandbyWithinHysteresis(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)

	decision := m.Step(Input{
		RoomTemp:          f(22.5),
		UserTarget:        23,
		PredictedSetpoint: 27,
		SeasonMode:        hvac.SeasonWinter,
		Now:               epoch,
	})

	assert.Equal(t, hvac.Standby, decision.State)
	require.NotNil(t, decision.Action)
	assert.Equal(t, hvac.ActionCoast, decision.Action.Type)
	assert.Equal(t, 27.0, decision.Action.Setpoint)
}

func TestMachine_WinterBelowHysteresis_EntersHeating(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)

	decision := m.Step(Input{
		RoomTemp:          f(20),
		UserTarget:        23,
		PredictedSetpoint: 24,
		SeasonMode:        hvac.SeasonWinter,
		Now:               epoch,
	})

	assert.Equal(t, hvac.HeatingActive, decision.State)
	require.NotNil(t, decision.Action)
	assert.Equal(t, "heat", decision.Action.Mode)
}

func TestMachine_AntiOscillation_BlocksEarlyExitThenAllowsAfterMinOn(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)

	// Enter HEATING_ACTIVE at t=0.
	start := m.Step(Input{RoomTemp: f(20), UserTarget: 23, PredictedSetpoint: 24, SeasonMode: hvac.SeasonWinter, Now: epoch})
	require.Equal(t, hvac.HeatingActive, start.State)

	// t=60s, room swings far above target: blocked by MIN_ON=300s.
	blocked := m.Step(Input{RoomTemp: f(26), UserTarget: 23, PredictedSetpoint: 24, SeasonMode: hvac.SeasonWinter, Now: epoch.Add(60 * time.Second)})
	assert.Equal(t, hvac.HeatingActive, blocked.State)
	assert.Nil(t, blocked.Action)
	assert.True(t, strings.Contains(blocked.Reason, "blocked"))

	// t=301s: guard clears, transition allowed.
	allowed := m.Step(Input{RoomTemp: f(25.5), UserTarget: 23, PredictedSetpoint: 24, SeasonMode: hvac.SeasonWinter, Now: epoch.Add(301 * time.Second)})
	assert.NotEqual(t, hvac.HeatingActive, allowed.State)
}

func TestMachine_ModeSwitchDelay(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)

	// Force the machine into HEATING_ACTIVE with lastModeSwitchAt=0, as if a
	// heat<->cool swap had just happened at t=0.
	m.Force(hvac.CoolingActive, "setup", epoch)
	m.Force(hvac.HeatingActive, "setup", epoch)

	// t=500s summer: room far above target wants COOLING_ACTIVE, blocked by MIN_MODE_SWITCH=600s.
	blocked := m.Step(Input{RoomTemp: f(28), UserTarget: 23, PredictedSetpoint: 22, SeasonMode: hvac.SeasonSummer, Now: epoch.Add(500 * time.Second)})
	assert.NotEqual(t, hvac.CoolingActive, blocked.State)

	// t=601s: allowed.
	allowed := m.Step(Input{RoomTemp: f(28), UserTarget: 23, PredictedSetpoint: 22, SeasonMode: hvac.SeasonSummer, Now: epoch.Add(601 * time.Second)})
	assert.Equal(t, hvac.CoolingActive, allowed.State)
}

func TestMachine_SummerHeatwaveDetected_PreCool(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)

	temps := make([]float64, 48)
	for i := range temps {
		temps[i] = 25
	}
	temps[20] = 32 // peak inside the (12,36] window

	samples := make([]hvac.ForecastSample, len(temps))
	for i, v := range temps {
		v := v
		samples[i] = hvac.ForecastSample{OutdoorTemp: &v}
	}
	forecast := hvac.Forecast{Samples: samples, Available: true}

	decision := m.Step(Input{
		RoomTemp:          f(24),
		UserTarget:        24,
		PredictedSetpoint: 23,
		SeasonMode:        hvac.SeasonSummer,
		Forecast:          forecast,
		Now:               epoch,
	})

	assert.Equal(t, hvac.PreCool, decision.State)
	require.NotNil(t, decision.Action)
	assert.Equal(t, "cool", decision.Action.Mode)
}

func TestMachine_SummerHeatwaveDetected_NoWindowRequirement_PreCool(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)

	temps := make([]float64, 48)
	for i := range temps {
		temps[i] = 25
	}
	temps[4] = 32 // peak well outside the cold-snap-style (12,36] window

	samples := make([]hvac.ForecastSample, len(temps))
	for i, v := range temps {
		v := v
		samples[i] = hvac.ForecastSample{OutdoorTemp: &v}
	}
	forecast := hvac.Forecast{Samples: samples, Available: true}

	decision := m.Step(Input{
		RoomTemp:          f(24),
		UserTarget:        24,
		PredictedSetpoint: 23,
		SeasonMode:        hvac.SeasonSummer,
		Forecast:          forecast,
		Now:               epoch,
	})

	assert.Equal(t, hvac.PreCool, decision.State)
	require.NotNil(t, decision.Action)
	assert.Equal(t, "cool", decision.Action.Mode)
}

func TestMachine_SensorRecovery_WithinDeadbandLeavesSensorFaultForStandby(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)

	fault := m.Step(Input{RoomTemp: nil, UserTarget: 23, SeasonMode: hvac.SeasonWinter, Now: epoch})
	require.Equal(t, hvac.SensorFault, fault.State)

	recovered := m.Step(Input{
		RoomTemp:          f(23),
		UserTarget:        23,
		PredictedSetpoint: 23,
		SeasonMode:        hvac.SeasonWinter,
		Now:               epoch.Add(time.Minute),
	})

	assert.Equal(t, hvac.Standby, recovered.State)
	assert.NotEqual(t, hvac.SensorFault, m.CurrentState())
}

func TestMachine_ResetReturnsToStandbyAndClearsTimers(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMachine(cfg, epoch)
	m.Force(hvac.HeatingActive, "setup", epoch)

	m.Reset(epoch.Add(time.Hour))

	assert.Equal(t, hvac.Standby, m.CurrentState())
	// A fresh entry into an active state should not be blocked by a stale MIN_OFF timer.
	decision := m.Step(Input{RoomTemp: f(10), UserTarget: 23, PredictedSetpoint: 24, SeasonMode: hvac.SeasonWinter, Now: epoch.Add(time.Hour)})
	assert.Equal(t, hvac.HeatingActive, decision.State)
}

func TestMachine_HistoryIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 3
	m := NewMachine(cfg, epoch)

	for i := 0; i < 10; i++ {
		state := hvac.HeatingActive
		if i%2 == 0 {
			state = hvac.Standby
		}
		m.Force(state, "cycle", epoch.Add(time.Duration(i)*time.Hour))
	}

	assert.LessOrEqual(t, len(m.History()), 3)
}
