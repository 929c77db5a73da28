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

package weatherclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestBuildForecast_CapsAt48SamplesAndAlignsByIndex(t *testing.T) {
	var body response
	for i := 0; i < 60; i++ {
		body.Hourly.Time = append(body.Hourly.Time, "2026-07-31T00:00")
		body.Hourly.Temperature2m = append(body.Hourly.Temperature2m, f(20))
		body.Hourly.ShortwaveRadiation = append(body.Hourly.ShortwaveRadiation, f(100))
		body.Hourly.DirectRadiation = append(body.Hourly.DirectRadiation, f(80))
		body.Hourly.CloudCover = append(body.Hourly.CloudCover, f(10))
		body.Hourly.WindSpeed10m = append(body.Hourly.WindSpeed10m, f(5))
	}

	forecast := buildForecast(body)

	assert.True(t, forecast.Available)
	assert.Len(t, forecast.Samples, 48)
	assert.Equal(t, 20.0, *forecast.Samples[0].OutdoorTemp)
}

func TestBuildForecast_TruncatesToShortestArray(t *testing.T) {
	var body response
	body.Hourly.Time = []string{"2026-07-31T00:00", "2026-07-31T01:00"}
	body.Hourly.Temperature2m = []*float64{f(20), f(21)}
	body.Hourly.ShortwaveRadiation = []*float64{f(100)} // one short
	body.Hourly.DirectRadiation = []*float64{f(80), f(81)}
	body.Hourly.CloudCover = []*float64{f(10), f(11)}
	body.Hourly.WindSpeed10m = []*float64{f(5), f(6)}

	forecast := buildForecast(body)

	assert.Len(t, forecast.Samples, 1)
}

func TestBuildForecast_EmptyInputIsUnavailable(t *testing.T) {
	forecast := buildForecast(response{})

	assert.False(t, forecast.Available)
}
