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

// Package weatherclient fetches the Open-Meteo hourly forecast (spec.md
// §6 "Weather client"), grounded on the same net/http.Get + encoding/json
// decode shape used by the pack's other Open-Meteo adapter
// (a14ea6e3_lucabodd-solar-forecast's OpenMeteoAdapter).
package weatherclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hvaccore/v2/internal/hvac"
)

const forecastURL = "https://api.open-meteo.com/v1/forecast" +
	"?latitude=%.4f&longitude=%.4f" +
	"&hourly=temperature_2m,shortwave_radiation,direct_radiation,cloud_cover,wind_speed_10m" +
	"&forecast_days=2"

// response mirrors Open-Meteo's hourly-arrays-aligned-by-index shape.
// Entries can be null when a field briefly drops out, so each array is
// decoded as a pointer slice.
type response struct {
	Hourly struct {
		Time               []string   `json:"time"`
		Temperature2m      []*float64 `json:"temperature_2m"`
		ShortwaveRadiation []*float64 `json:"shortwave_radiation"`
		DirectRadiation    []*float64 `json:"direct_radiation"`
		CloudCover         []*float64 `json:"cloud_cover"`
		WindSpeed10m       []*float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

// Client fetches forecasts for one location.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch performs one GET and decodes up to the first 48 hourly samples
// (spec.md §6 "the core uses up to the first 48").
func (c *Client) Fetch(ctx context.Context, loc hvac.Location) (hvac.Forecast, error) {
	url := fmt.Sprintf(forecastURL, loc.Latitude, loc.Longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return hvac.Forecast{}, fmt.Errorf("weatherclient: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return hvac.Forecast{}, fmt.Errorf("weatherclient: GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hvac.Forecast{}, fmt.Errorf("weatherclient: HTTP %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return hvac.Forecast{}, fmt.Errorf("weatherclient: decode failed: %w", err)
	}

	return buildForecast(body), nil
}

func buildForecast(body response) hvac.Forecast {
	n := len(body.Hourly.Time)
	for _, arr := range [][]*float64{
		body.Hourly.Temperature2m,
		body.Hourly.ShortwaveRadiation,
		body.Hourly.DirectRadiation,
		body.Hourly.CloudCover,
		body.Hourly.WindSpeed10m,
	} {
		if len(arr) < n {
			n = len(arr)
		}
	}
	if n > 48 {
		n = 48
	}

	samples := make([]hvac.ForecastSample, 0, n)
	for i := 0; i < n; i++ {
		ts, _ := time.Parse("2006-01-02T15:04", body.Hourly.Time[i])
		samples = append(samples, hvac.ForecastSample{
			Timestamp:         ts,
			OutdoorTemp:       body.Hourly.Temperature2m[i],
			SolarRadiationWm2: body.Hourly.ShortwaveRadiation[i],
			DirectRadiation:   body.Hourly.DirectRadiation[i],
			CloudCover:        body.Hourly.CloudCover[i],
			WindSpeed:         body.Hourly.WindSpeed10m[i],
		})
	}

	return hvac.Forecast{
		Samples:   samples,
		FetchedAt: time.Now(),
		Available: len(samples) > 0,
	}
}
