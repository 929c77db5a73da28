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

package acclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hvaccore/v2/internal/hvac"
)

func TestDefaultCommandFlagTable_NamesMatchFlags(t *testing.T) {
	table := DefaultCommandFlagTable()

	assert.Equal(t, FlagPower, table.Flag("power"))
	assert.Equal(t, FlagOperationMode, table.Flag("operationMode"))
	assert.Equal(t, FlagSetTemperature, table.Flag("setTemperature"))
	assert.Equal(t, FlagProhibit, table.Flag("prohibit"))
	assert.Equal(t, FlagPowerOperationModeSetTemperature, table.Flag("powerOperationModeSetTemperature"))
}

func TestCommandFlagTable_Flag_UnknownNameFallsBackToCombined(t *testing.T) {
	table := DefaultCommandFlagTable()

	assert.Equal(t, FlagPowerOperationModeSetTemperature, table.Flag("bogus"))
}

func TestClient_Send_FailsWhenNotConnected(t *testing.T) {
	c := NewClient("ws://unused.invalid", "dev1")

	err := c.Send(1, 1, hvac.DeviceSnapshot{}, FlagPower)

	assert.Error(t, err)
}

func TestClient_Close_IsSafeWhenNeverConnected(t *testing.T) {
	c := NewClient("ws://unused.invalid", "dev1")

	c.Close()
}
