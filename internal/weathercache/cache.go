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

// Package weathercache periodically fetches and caches the hourly
// forecast (spec.md §4.2), grounded on the teacher's
// internal/weather/weather.service.go ticker+pollOnce Run loop and its
// ServeHTTP diagnostics handler.
package weathercache

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"hvaccore/v2/internal/events"
	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/internal/weatherclient"
	"hvaccore/v2/pkg/eventbus"
	"hvaccore/v2/pkg/logger"
)

// Cache polls weatherclient.Client and exposes the last good Forecast even
// while a refresh is failing (spec.md §4.2 "Never blocks the orchestrator").
type Cache struct {
	client       *weatherclient.Client
	eb           *eventbus.Bus
	loc          hvac.Location
	poll         time.Duration
	validFor     time.Duration
	log          *logger.Logger

	mu       sync.RWMutex
	forecast hvac.Forecast
}

// New builds a Cache for one device location.
func New(client *weatherclient.Client, eb *eventbus.Bus, loc hvac.Location, poll, validFor time.Duration) *Cache {
	return &Cache{
		client:   client,
		eb:       eb,
		loc:      loc,
		poll:     poll,
		validFor: validFor,
		log:      logger.New("WeatherCache"),
	}
}

// Run ticks at the configured poll interval, same shape as
// weather.service.go's Run.
func (c *Cache) Run(ctx context.Context) {
	c.log.Info("starting")
	defer c.log.Info("stopping")

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	c.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Cache) pollOnce(ctx context.Context) {
	forecast, err := c.client.Fetch(ctx, c.loc)
	if err != nil {
		c.log.Error("fetch failed: %v", err)
		c.mu.Lock()
		c.forecast.Available = false
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.forecast = forecast
	c.mu.Unlock()

	c.eb.Publish(events.TopicForecast, events.ForecastUpdate{Forecast: forecast})
}

// current returns the cached forecast, marking it unavailable if stale
// beyond validFor (spec.md §3 "expires after 2h").
func (c *Cache) current() hvac.Forecast {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f := c.forecast
	if f.Available && time.Since(f.FetchedAt) > c.validFor {
		f.Available = false
	}
	return f
}

// GetForecast returns the current (possibly stale-marked) forecast.
func (c *Cache) GetForecast() hvac.Forecast {
	return c.current()
}

// CurrentOutdoorTemp returns forecast[0].OutdoorTemp, or nil if unavailable.
func (c *Cache) CurrentOutdoorTemp() *float64 {
	f := c.current()
	if !f.Available || len(f.Samples) == 0 {
		return nil
	}
	return f.Samples[0].OutdoorTemp
}

// CurrentSolar returns forecast[0].SolarRadiationWm2, or nil if unavailable.
func (c *Cache) CurrentSolar() *float64 {
	f := c.current()
	if !f.Available || len(f.Samples) == 0 {
		return nil
	}
	return f.Samples[0].SolarRadiationWm2
}

// TempsForNextNHours returns up to n non-nil outdoor temperatures.
func (c *Cache) TempsForNextNHours(n int) []float64 {
	return samplesToSlice(c.current(), n, func(s hvac.ForecastSample) *float64 { return s.OutdoorTemp })
}

// SolarForNextNHours returns up to n non-nil solar radiation values.
func (c *Cache) SolarForNextNHours(n int) []float64 {
	return samplesToSlice(c.current(), n, func(s hvac.ForecastSample) *float64 { return s.SolarRadiationWm2 })
}

func samplesToSlice(f hvac.Forecast, n int, extract func(hvac.ForecastSample) *float64) []float64 {
	if !f.Available {
		return nil
	}
	var out []float64
	for _, s := range f.Samples {
		if len(out) >= n {
			break
		}
		if v := extract(s); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Avg/Min/Max over the available samples (spec.md §4.2 "avg/min/max").
func (c *Cache) Avg() (float64, bool) {
	return c.AvgForNextNHours(48)
}

// AvgForNextNHours averages up to n hourly outdoor temperatures, used by
// the orchestrator's AUTO season resolver (spec.md §4.6 "24h-average
// forecast").
func (c *Cache) AvgForNextNHours(n int) (float64, bool) {
	temps := c.TempsForNextNHours(n)
	return avg(temps)
}

func (c *Cache) Min() (float64, bool) {
	temps := c.TempsForNextNHours(48)
	return reduce(temps, func(a, b float64) bool { return b < a })
}

func (c *Cache) Max() (float64, bool) {
	temps := c.TempsForNextNHours(48)
	return reduce(temps, func(a, b float64) bool { return b > a })
}

func avg(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

func reduce(vals []float64, better func(cur, candidate float64) bool) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	best := vals[0]
	for _, v := range vals[1:] {
		if better(best, v) {
			best = v
		}
	}
	return best, true
}

// ManualRefresh forces an immediate fetch (diagnostics).
func (c *Cache) ManualRefresh(ctx context.Context) {
	c.pollOnce(ctx)
}

// ServeHTTP exposes the cached forecast as JSON for diagnostics, same
// shape as weather.service.go's /api/history endpoint.
func (c *Cache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(c.current())
}
