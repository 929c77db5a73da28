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
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// CommandFlagTable maps a human-readable command name to the wire
// EffectiveFlag bitmask it should carry, so deployments can retarget to a
// cloud API whose flag bit positions differ without a code change. Shape
// grounded on pkg/modbus/modbus.config.go's register-table config.
type CommandFlagTable struct {
	Flags map[string]EffectiveFlag `yaml:"flags"`
}

// DefaultCommandFlagTable matches spec.md §6's named flags.
func DefaultCommandFlagTable() CommandFlagTable {
	return CommandFlagTable{
		Flags: map[string]EffectiveFlag{
			"power":                              FlagPower,
			"operationMode":                      FlagOperationMode,
			"setTemperature":                     FlagSetTemperature,
			"prohibit":                           FlagProhibit,
			"powerOperationModeSetTemperature":   FlagPowerOperationModeSetTemperature,
		},
	}
}

// LoadCommandFlagTable reads a YAML override of the flag table.
func LoadCommandFlagTable(filename string) CommandFlagTable {
	data, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("acclient: read command flag table: %v", err)
	}

	table := DefaultCommandFlagTable()
	if err := yaml.Unmarshal(data, &table); err != nil {
		log.Fatalf("acclient: parse command flag table: %v", err)
	}
	return table
}

// Flag looks up a named command, falling back to
// FlagPowerOperationModeSetTemperature if the name is unknown.
func (t CommandFlagTable) Flag(name string) EffectiveFlag {
	if f, ok := t.Flags[name]; ok {
		return f
	}
	return FlagPowerOperationModeSetTemperature
}
