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

// Package sensorclient is the external room-sensor cloud client (spec.md
// §6 "External sensor client"): a single polled GET, grounded in
// internal/phidgets/phidgets.api.go's plain net/http JSON request style.
package sensorclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Reading is the decoded response body.
type Reading struct {
	RoomTemp float64 `json:"room_temp"`
	Humidity float64 `json:"humidity"`
}

// Client polls a single external sensor endpoint over HTTP.
type Client struct {
	addr       string
	httpClient *http.Client
}

// NewClient builds a Client with a 5s timeout, matching
// phidgets.api.go's postJSON client.
func NewClient(addr string) *Client {
	return &Client{
		addr:       addr,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// FetchTemperature performs one GET against the sensor endpoint (spec.md
// §6 "fetchTemperature() -> {roomTemp, humidity} or unavailable"). The
// caller is responsible for respecting the minimum 1s poll spacing.
func (c *Client) FetchTemperature() (Reading, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf("%s/sensor/temperature", c.addr))
	if err != nil {
		return Reading{}, fmt.Errorf("sensorclient: GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("sensorclient: HTTP %d", resp.StatusCode)
	}

	var reading Reading
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		return Reading{}, fmt.Errorf("sensorclient: decode failed: %w", err)
	}
	return reading, nil
}
