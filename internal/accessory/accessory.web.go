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
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"hvaccore/v2/pkg/logger"
)

// httpHandler is the accessory's external transport: a JSON GET for
// one-shot reads and a websocket for push/pull, same shape as
// thermostat.web.service.go's mux + ClientSync, generalized from a
// single-process client set to this package's State/Request types.
type httpHandler struct {
	a       *Accessory
	mux     *http.ServeMux
	clients clientSync
}

type clientSync struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func (c *clientSync) add(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns == nil {
		c.conns = make(map[*websocket.Conn]bool)
	}
	c.conns[ws] = true
}

func (c *clientSync) remove(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, ws)
}

func (c *clientSync) broadcast(pm *websocket.PreparedMessage, log *logger.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ws := range c.conns {
		if err := ws.WritePreparedMessage(pm); err != nil {
			log.Error("failed to write message: %v", err)
			ws.Close()
			delete(c.conns, ws)
		}
	}
}

func newHTTPHandler(a *Accessory) *httpHandler {
	h := &httpHandler{a: a, mux: http.NewServeMux()}
	h.mux.HandleFunc("/state", h.serveState)
	h.mux.HandleFunc("/ws", h.serveWebSocket)
	return h
}

func (h *httpHandler) serveState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(h.a.currentState())
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		if strings.Contains(origin, "localhost") {
			return true
		}
		return strings.Contains(origin, r.Host)
	},
}

func (h *httpHandler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.a.log.Error("failed to upgrade websocket: %v", err)
		return
	}
	h.clients.add(ws)
	defer func() {
		h.clients.remove(ws)
		ws.Close()
	}()

	if data, err := json.Marshal(h.a.currentState()); err == nil {
		_ = ws.WriteMessage(websocket.TextMessage, data)
	}

	var req Request
	for {
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			h.a.log.Error("failed ws ReadJSON: %v", err)
			break
		}
		select {
		case h.a.clientQueue <- req:
		default:
			h.a.log.Debug("clientQueue is full; dropping client message")
		}
	}
}

// ServeHTTP lets main.go mount an Accessory directly on a root mux, same
// as VirtThermostat.ServeHTTP.
func (a *Accessory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.httpHandler.mux.ServeHTTP(w, r)
}

func (a *Accessory) broadcast(state State) {
	data, err := json.Marshal(state)
	if err != nil {
		a.log.Error("failed to marshal broadcast: %v", err)
		return
	}
	pm, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		a.log.Error("failed to prepare message: %v", err)
		return
	}
	a.httpHandler.clients.broadcast(pm, a.log)
}
