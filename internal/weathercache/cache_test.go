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

package weathercache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/internal/weatherclient"
	"hvaccore/v2/pkg/eventbus"
)

func f(v float64) *float64 { return &v }

func newCacheWithForecast(forecast hvac.Forecast) *Cache {
	c := New(weatherclient.NewClient(time.Second), eventbus.New(), hvac.Location{}, time.Hour, time.Hour)
	c.forecast = forecast
	return c
}

func TestCache_GetForecast_UnavailableBeforeFirstFetch(t *testing.T) {
	c := New(weatherclient.NewClient(time.Second), eventbus.New(), hvac.Location{}, time.Hour, time.Hour)

	assert.False(t, c.GetForecast().Available)
	assert.Nil(t, c.CurrentOutdoorTemp())
}

func TestCache_GetForecast_MarksStaleBeyondValidFor(t *testing.T) {
	c := newCacheWithForecast(hvac.Forecast{
		Available: true,
		FetchedAt: time.Now().Add(-2 * time.Hour),
		Samples:   []hvac.ForecastSample{{OutdoorTemp: f(10)}},
	})
	c.validFor = time.Hour

	assert.False(t, c.GetForecast().Available)
}

func TestCache_TempsForNextNHours_SkipsNilSamplesAndCapsAtN(t *testing.T) {
	c := newCacheWithForecast(hvac.Forecast{
		Available: true,
		FetchedAt: time.Now(),
		Samples: []hvac.ForecastSample{
			{OutdoorTemp: f(10)},
			{OutdoorTemp: nil},
			{OutdoorTemp: f(12)},
			{OutdoorTemp: f(14)},
		},
	})

	got := c.TempsForNextNHours(2)

	assert.Equal(t, []float64{10, 12}, got)
}

func TestCache_AvgMinMax(t *testing.T) {
	c := newCacheWithForecast(hvac.Forecast{
		Available: true,
		FetchedAt: time.Now(),
		Samples: []hvac.ForecastSample{
			{OutdoorTemp: f(10)},
			{OutdoorTemp: f(20)},
			{OutdoorTemp: f(30)},
		},
	})

	avg, ok := c.Avg()
	assert.True(t, ok)
	assert.Equal(t, 20.0, avg)

	min, ok := c.Min()
	assert.True(t, ok)
	assert.Equal(t, 10.0, min)

	max, ok := c.Max()
	assert.True(t, ok)
	assert.Equal(t, 30.0, max)
}

func TestCache_AvgForNextNHours_NotOkWhenUnavailable(t *testing.T) {
	c := New(weatherclient.NewClient(time.Second), eventbus.New(), hvac.Location{}, time.Hour, time.Hour)

	_, ok := c.AvgForNextNHours(24)

	assert.False(t, ok)
}
