// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package push implements the push-channel lifecycle: address
// validation, lazy connect, and reconnect-on-disconnect over a WebSocket.
package push

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/digisign/playercore/pkg/events"
)

// MisconfiguredReason names why a push address could not be used.
type MisconfiguredReason string

const (
	ReasonMissing     MisconfiguredReason = "missing"
	ReasonWrongProto  MisconfiguredReason = "wrongProtocol"
	ReasonPlaceholder MisconfiguredReason = "placeholder"
)

// Callbacks is invoked by the Channel as push messages arrive. The Core
// implements it to wire layout override, overlay, revert, purge, command
// execution, trigger, screenshot, geo report, data-connector refresh, and
// collectNow.
type Callbacks interface {
	OnChangeLayout(layoutID string, durationSeconds int, changeMode string)
	OnOverlayLayout(layoutID string, durationSeconds int)
	OnRevertToSchedule()
	OnPurgeAll()
	OnCommand(code string)
	OnTrigger(code string)
	OnScreenshot()
	OnGeoReport()
	OnDataConnectorRefresh(connectorID string)
	OnCollectNow()
}

// Channel owns one WebSocket connection to the CMS real-time endpoint and
// reconnects it on disconnect.
type Channel struct {
	log  *zap.SugaredLogger
	bus  *events.Bus
	cb   Callbacks

	mu            sync.Mutex
	conn          *websocket.Conn
	url           string
	cmsKey        string
	connected     bool
	reconnects    int
	stopCh        chan struct{}
}

// NewChannel builds an unconnected Channel.
func NewChannel(log *zap.SugaredLogger, bus *events.Bus, cb Callbacks) *Channel {
	return &Channel{log: log, bus: bus, cb: cb}
}

// ValidateAddress checks a push-channel address is usable. ok is false
// when the address cannot be used at all; reason is only meaningful then.
func ValidateAddress(address string) (ok bool, reason MisconfiguredReason) {
	if strings.TrimSpace(address) == "" {
		return false, ReasonMissing
	}
	if strings.HasPrefix(address, "tcp://") {
		return false, ReasonWrongProto
	}
	lower := strings.ToLower(address)
	if strings.Contains(lower, "example.") {
		return false, ReasonPlaceholder
	}
	return true, ""
}

// Start validates address and, if valid, connects and emits PushConnected.
// If invalid, it emits PushMisconfigured and does nothing else.
func (c *Channel) Start(ctx context.Context, address, cmsKey string) {
	ok, reason := ValidateAddress(address)
	if !ok {
		evt := events.New(events.TypePushMisconfigured, time.Now())
		evt.Reason = string(reason)
		c.bus.Publish(evt)
		return
	}

	c.mu.Lock()
	c.url, c.cmsKey = address, cmsKey
	c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		if c.log != nil {
			c.log.Warnw("push channel connect failed", "url", address, "error", err)
		}
		return
	}
	c.bus.Publish(events.New(events.TypePushConnected, time.Now()))
}

// IsConnected reports whether the underlying socket is believed open.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// EnsureConnected is called once per collection cycle: if the
// channel dropped, reset reconnect attempts and restart it, emitting
// PushReconnected instead of PushConnected.
func (c *Channel) EnsureConnected(ctx context.Context) {
	if c.IsConnected() {
		return
	}
	c.mu.Lock()
	c.reconnects = 0
	url, key := c.url, c.cmsKey
	c.mu.Unlock()
	if url == "" {
		return
	}

	if err := c.connect(ctx); err != nil {
		if c.log != nil {
			c.log.Warnw("push channel reconnect failed", "url", url, "error", err)
		}
		return
	}
	_ = key
	c.bus.Publish(events.New(events.TypePushReconnected, time.Now()))
}

func (c *Channel) connect(ctx context.Context) error {
	c.mu.Lock()
	url := c.url
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("push: dial %s: %w", url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	go c.readLoop(conn, stopCh)
	return nil
}

// readLoop consumes inbound frames until the connection closes, then marks
// the channel disconnected so the next cycle's EnsureConnected reconnects.
func (c *Channel) readLoop(conn *websocket.Conn, stopCh chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.connected = false
		}
		c.mu.Unlock()
	}()

	for {
		select {
		case <-stopCh:
			return
		default:
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.dispatch(payload)
	}
}

// Close tears down the connection by closing the underlying socket; no
// close frame is sent and no close handshake is attempted.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.connected = false
	return err
}
