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

package accessory

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"hvaccore/v2/internal/acclient"
	"hvaccore/v2/internal/events"
	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/pkg/eventbus"
)

type fakePowerClient struct {
	calls int32
	flags acclient.EffectiveFlag
	power bool
}

func (f *fakePowerClient) Send(accountType, displayType int, snapshot hvac.DeviceSnapshot, flags acclient.EffectiveFlag) error {
	atomic.AddInt32(&f.calls, 1)
	f.flags = flags
	f.power = snapshot.Power
	return nil
}

func TestAccessory_ApplyStateUpdate_PopulatesThresholdsFromComfortTarget(t *testing.T) {
	a := New("dev1", eventbus.New(), nil, 1, 1)
	room := 21.5

	a.applyStateUpdate(events.AccessoryStateUpdate{
		DeviceID:          "dev1",
		Active:            true,
		State:             hvac.HeatingActive,
		Mode:              hvac.ModeSelectorHeat,
		RoomTemp:          &room,
		UserComfortTarget: 23,
		ComfortMin:        20,
		ComfortMax:        26,
	})

	state := a.currentState()
	assert.True(t, state.Active)
	assert.Equal(t, "HEATING", state.CurrentHeaterCoolerState)
	assert.Equal(t, "HEAT", state.TargetHeaterCoolerState)
	assert.Equal(t, 21.5, state.CurrentTemperature)
	assert.Equal(t, 23.0, state.CoolingThresholdTemperature)
	assert.Equal(t, 23.0, state.HeatingThresholdTemperature)
}

func TestAccessory_ApplyStateUpdate_IgnoresOtherDevices(t *testing.T) {
	a := New("dev1", eventbus.New(), nil, 1, 1)

	a.applyStateUpdate(events.AccessoryStateUpdate{DeviceID: "dev2", UserComfortTarget: 99})

	assert.Equal(t, State{}, a.currentState())
}

func TestAccessory_InactiveOrSensorFault_ReportsInactive(t *testing.T) {
	assert.Equal(t, "INACTIVE", currentStateLabel(false, hvac.HeatingActive))
	assert.Equal(t, "INACTIVE", currentStateLabel(true, hvac.SensorFault))
	assert.Equal(t, "IDLE", currentStateLabel(true, hvac.Standby))
	assert.Equal(t, "COOLING", currentStateLabel(true, hvac.PreCool))
}

func TestAccessory_SetActive_PublishesRequestAndTogglesPowerDirectly(t *testing.T) {
	client := &fakePowerClient{}
	eb := eventbus.New()
	a := New("dev1", eb, client, 7, 9)

	a.applyStateUpdate(events.AccessoryStateUpdate{
		DeviceID: "dev1",
		Snapshot: hvac.DeviceSnapshot{Power: true, ACSetTemp: 22},
	})

	userEvents, _ := eb.Subscribe(context.Background(), events.TopicUserRequest, false)
	a.handleRequest(Request{Command: "set_active", Active: false})

	assert.Equal(t, int32(1), client.calls)
	assert.Equal(t, acclient.FlagPower, client.flags)
	assert.False(t, client.power)

	select {
	case ev := <-userEvents:
		u := ev.(events.UserRequestUpdate)
		assert.NotNil(t, u.Active)
		assert.False(t, *u.Active)
	default:
		t.Fatal("expected a UserRequestUpdate to be published")
	}
}

func TestAccessory_SetTargetTemperature_PublishesRequest(t *testing.T) {
	eb := eventbus.New()
	a := New("dev1", eb, nil, 1, 1)

	userEvents, _ := eb.Subscribe(context.Background(), events.TopicUserRequest, false)
	a.handleRequest(Request{Command: "set_target_temperature", TargetTemperature: 24.5})

	ev := <-userEvents
	u := ev.(events.UserRequestUpdate)
	assert.NotNil(t, u.TargetTemperature)
	assert.Equal(t, 24.5, *u.TargetTemperature)
}

func TestAccessory_SetTargetMode_UnknownModeIsNoop(t *testing.T) {
	eb := eventbus.New()
	a := New("dev1", eb, nil, 1, 1)

	a.handleRequest(Request{Command: "set_target_mode", TargetMode: "bogus"})
}
