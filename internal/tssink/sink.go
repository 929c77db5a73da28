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

// Package tssink is the optional time-series sink (spec.md §6): a
// WritePoint-shaped interface with a log-and-continue HTTP implementation,
// grounded on internal/emoncms/emoncms.logger.service.go's
// post-and-log-on-failure style.
package tssink

import (
	"fmt"
	"net/http"
	"time"

	"hvaccore/v2/pkg/logger"
)

// Tags identifies the series a Point belongs to.
type Tags struct {
	DeviceID   string
	HVACState  string
	SeasonMode string
}

// Fields is the per-tick measurement set spec.md §6 names.
type Fields struct {
	IndoorTemp       *float64
	RecuperatorTemp  *float64
	OutdoorTemp      *float64
	ACSetpoint       float64
	UserTarget       float64
	SolarRadiation   *float64
	PowerState       bool
}

// Sink accepts one point per orchestrator tick. Implementations must not
// block the caller for long; failures are logged, never returned, matching
// the teacher's emoncms logger (a failed post doesn't stop the next tick).
type Sink interface {
	WritePoint(tags Tags, fields Fields)
}

// NoopSink discards every point; the default when no DataLogger.Addr is
// configured.
type NoopSink struct{}

func (NoopSink) WritePoint(Tags, Fields) {}

// HTTPSink sends one point per call as an HTTP GET to addr + "/write", with
// the tags and fields encoded as query parameters. Failures are logged and
// otherwise ignored.
type HTTPSink struct {
	addr       string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewHTTPSink builds an HTTPSink, mirroring the teacher's
// loggerService's addr/apiKey fields.
func NewHTTPSink(addr, apiKey string) *HTTPSink {
	return &HTTPSink{
		addr:       addr,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        logger.New("DataLogger"),
	}
}

func (s *HTTPSink) WritePoint(tags Tags, fields Fields) {
	url := fmt.Sprintf("%s/write?apikey=%s&device=%s&state=%s&season=%s&ac_setpoint=%.2f&user_target=%.2f&power=%v",
		s.addr, s.apiKey, tags.DeviceID, tags.HVACState, tags.SeasonMode,
		fields.ACSetpoint, fields.UserTarget, fields.PowerState)
	if fields.IndoorTemp != nil {
		url += fmt.Sprintf("&indoor_temp=%.2f", *fields.IndoorTemp)
	}
	if fields.RecuperatorTemp != nil {
		url += fmt.Sprintf("&recuperator_temp=%.2f", *fields.RecuperatorTemp)
	}
	if fields.OutdoorTemp != nil {
		url += fmt.Sprintf("&outdoor_temp=%.2f", *fields.OutdoorTemp)
	}
	if fields.SolarRadiation != nil {
		url += fmt.Sprintf("&solar_radiation=%.2f", *fields.SolarRadiation)
	}

	resp, err := s.httpClient.Get(url)
	if err != nil {
		s.log.Error("tssink: post failed: %v", err)
		return
	}
	resp.Body.Close()
}
