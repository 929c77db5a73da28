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

// Package acclient is the cloud client for the managed AC unit (spec.md
// §6 "AC cloud client"): an event-driven CheckState/Send pair, reachable
// over a reconnecting websocket, generalized from the teacher's
// zwave-js-server client to a generic device-state stream.
package acclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hvaccore/v2/internal/hvac"
	"hvaccore/v2/pkg/logger"
)

// EffectiveFlag is a bitmask naming which fields of a device update are
// meaningful, matching spec.md §6's combined-write semantics.
type EffectiveFlag uint

const (
	FlagPower EffectiveFlag = 1 << iota
	FlagOperationMode
	FlagSetTemperature
	FlagProhibit
)

// FlagPowerOperationModeSetTemperature is the combined flag the action
// executor uses for a setMode command (spec.md §4.5).
const FlagPowerOperationModeSetTemperature = FlagPower | FlagOperationMode | FlagSetTemperature

// Update is what the cloud client sends on the wire for a Send call.
type Update struct {
	AccountType     int                `json:"accountType"`
	DisplayType     int                `json:"displayType"`
	DeviceID        string             `json:"deviceId"`
	Power           bool               `json:"power"`
	OperationMode   hvac.OperationMode `json:"operationMode"`
	SetTemperature  float64            `json:"setTemperature"`
	Prohibit        bool               `json:"prohibit"`
	EffectiveFlags  EffectiveFlag      `json:"effectiveFlags"`
}

// frame is the generic envelope read off the websocket: either a snapshot
// push or a command acknowledgement, mirroring zwave-js-server's
// {type, result, event} shape but generalized to one device's state.
type frame struct {
	Type     string          `json:"type"`
	DeviceID string          `json:"deviceId,omitempty"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Success  bool            `json:"success,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type wireSnapshot struct {
	Power           bool    `json:"power"`
	OperationMode   int     `json:"operationMode"`
	RoomTemperature float64 `json:"roomTemperature"`
	SetTemperature  float64 `json:"setTemperature"`
	Prohibit        bool    `json:"prohibit"`
}

// Client manages the websocket connection to the AC cloud bridge.
type Client struct {
	url       string
	deviceID  string
	mu        sync.Mutex
	conn      *websocket.Conn
	onState   func(hvac.DeviceSnapshot)
	retryWait time.Duration
	log       *logger.Logger
}

// NewClient builds a Client for one device, mirroring
// pkg/zwavejsws.NewClient's shape.
func NewClient(url, deviceID string) *Client {
	return &Client{
		url:       url,
		deviceID:  deviceID,
		retryWait: 5 * time.Second,
		log:       logger.New("ACClient  "),
	}
}

// OnState registers the callback invoked whenever a fresh device snapshot
// arrives (spec.md §6 "checkState(devList) -> emits {deviceInfo,
// deviceState(snapshot)}").
func (c *Client) OnState(fn func(hvac.DeviceSnapshot)) {
	c.onState = fn
}

// CheckState requests a state refresh; the response arrives asynchronously
// via the OnState callback, as spec.md describes.
func (c *Client) CheckState() error {
	return c.sendCommand(map[string]any{
		"command":  "checkState",
		"deviceId": c.deviceID,
	})
}

// Send dispatches an atomic device command (spec.md §6 "send(accountType,
// displayType, snapshot, effectiveFlags)").
func (c *Client) Send(accountType, displayType int, snapshot hvac.DeviceSnapshot, flags EffectiveFlag) error {
	update := Update{
		AccountType:    accountType,
		DisplayType:    displayType,
		DeviceID:       c.deviceID,
		Power:          snapshot.Power,
		OperationMode:  snapshot.OperationMode,
		SetTemperature: snapshot.ACSetTemp,
		Prohibit:       snapshot.UserProhibit,
		EffectiveFlags: flags,
	}
	return c.sendCommand(map[string]any{
		"command": "send",
		"update":  update,
	})
}

func (c *Client) sendCommand(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("acclient: not connected")
	}
	return c.conn.WriteJSON(msg)
}

// Connect dials the websocket once. Call Run for the reconnect loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.log.Error("connect failed: %v (%v), retrying in %s", err, c.url, c.retryWait)
		return err
	}

	go func() {
		<-ctx.Done()
		c.Close()
	}()

	c.conn = conn
	c.log.Info("connected to %s", c.url)
	return nil
}

// Close tears down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		conn := c.conn
		c.conn = nil
		conn.Close()
		c.log.Info("closed")
	}
}

// ListenNext blocks for the next frame and dispatches it.
func (c *Client) ListenNext() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("acclient: not connected")
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		c.mu.Lock()
		closed := c.conn == nil
		c.mu.Unlock()
		if closed {
			return nil
		}
		c.log.Error("read failed: %v", err)
		return err
	}

	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.log.Error("unmarshal frame: %v", err)
		return err
	}

	switch f.Type {
	case "snapshot":
		c.handleSnapshot(f)
	case "ack":
		if !f.Success {
			c.log.Error("command failed: %s", f.Error)
		}
	default:
		c.log.Debug("unhandled frame type: %s", f.Type)
	}
	return nil
}

func (c *Client) handleSnapshot(f frame) {
	if f.DeviceID != "" && f.DeviceID != c.deviceID {
		return
	}
	var ws wireSnapshot
	if err := json.Unmarshal(f.Snapshot, &ws); err != nil {
		c.log.Error("unmarshal snapshot: %v", err)
		return
	}
	snapshot := hvac.DeviceSnapshot{
		Power:         ws.Power,
		OperationMode: hvac.OperationMode(ws.OperationMode),
		ACSensorTemp:  ws.RoomTemperature,
		ACSetTemp:     ws.SetTemperature,
		UserProhibit:  ws.Prohibit,
		ObservedAt:    time.Now(),
	}
	if c.onState != nil {
		c.onState(snapshot)
	}
}

// Run is the reconnect loop: dial, request an initial state, then read
// frames until ctx is cancelled or the connection drops, grounded in
// internal/thermostat/thermostat.zwave.backend.go's Run.
func (c *Client) Run(ctx context.Context) {
	c.log.Info("starting AC client for device %s", c.deviceID)
	defer c.log.Info("stopping AC client for device %s", c.deviceID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.Connect(ctx); err != nil {
			time.Sleep(c.retryWait)
			continue
		}
		if err := c.CheckState(); err != nil {
			c.log.Error("initial checkState failed: %v", err)
		}
		for {
			if err := c.ListenNext(); err != nil {
				c.Close()
				break
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}
