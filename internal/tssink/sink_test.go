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

package tssink

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopSink_WritePoint_NeverPanics(t *testing.T) {
	var s Sink = NoopSink{}

	s.WritePoint(Tags{DeviceID: "dev1"}, Fields{ACSetpoint: 22, UserTarget: 22})
}

func TestHTTPSink_WritePoint_EncodesFieldsAsQueryParams(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, "key123")
	indoor := 21.5
	s.WritePoint(Tags{DeviceID: "dev1", HVACState: "HEATING_ACTIVE", SeasonMode: "WINTER"}, Fields{
		IndoorTemp: &indoor,
		ACSetpoint: 23,
		UserTarget: 22,
		PowerState: true,
	})

	assert.Equal(t, "dev1", gotQuery.Get("device"))
	assert.Equal(t, "key123", gotQuery.Get("apikey"))
	assert.Equal(t, "21.50", gotQuery.Get("indoor_temp"))
}

func TestHTTPSink_WritePoint_SwallowsRequestFailure(t *testing.T) {
	s := NewHTTPSink("http://127.0.0.1:0", "key")

	s.WritePoint(Tags{DeviceID: "dev1"}, Fields{ACSetpoint: 22, UserTarget: 22})
}
