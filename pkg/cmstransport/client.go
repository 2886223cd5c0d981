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

// Package cmstransport is the default transport.Transport implementation:
// a JSON-over-HTTP client against the CMS's display-agent API. It is the
// concrete edge a standalone playerd binary plugs into the Collection
// Loop; an embedding Platform shell is free to supply its own
// transport.Transport instead.
package cmstransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/digisign/playercore/pkg/transport"
)

// Client calls the CMS display-agent endpoints under BaseURL, authenticating
// every request with ServerKey and DisplayID.
type Client struct {
	BaseURL   string
	ServerKey string
	DisplayID string
	HTTP      *http.Client
}

// New builds a Client. httpClient may be nil, in which case a new
// http.Client with a 30-second timeout is used.
func New(baseURL, serverKey, displayID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{BaseURL: baseURL, ServerKey: serverKey, DisplayID: displayID, HTTP: httpClient}
}

var _ transport.Transport = (*Client)(nil)

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Server-Key", c.ServerKey)
	req.Header.Set("X-Display-ID", c.DisplayID)
	req.Header.Set("X-Correlation-ID", uuid.NewString())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cmstransport: %s returned %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RegisterDisplay implements transport.Transport.
func (c *Client) RegisterDisplay(ctx context.Context) (transport.RegistrationResult, error) {
	var out transport.RegistrationResult
	err := c.post(ctx, "/display/register", nil, &out)
	return out, err
}

// RequiredFiles implements transport.Transport.
func (c *Client) RequiredFiles(ctx context.Context) (transport.RequiredFilesResult, error) {
	var out transport.RequiredFilesResult
	err := c.post(ctx, "/display/requiredFiles", nil, &out)
	return out, err
}

// Schedule implements transport.Transport.
func (c *Client) Schedule(ctx context.Context) (transport.ScheduleDoc, error) {
	var out transport.ScheduleDoc
	err := c.post(ctx, "/display/schedule", nil, &out)
	return out, err
}

// NotifyStatus implements transport.Transport.
func (c *Client) NotifyStatus(ctx context.Context, status transport.StatusReport) error {
	return c.post(ctx, "/display/notifyStatus", status, nil)
}

// MediaInventory implements transport.Transport. The body is raw XML, not
// JSON, so it bypasses post's JSON envelope.
func (c *Client) MediaInventory(ctx context.Context, inventoryXML string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/display/mediaInventory", bytes.NewBufferString(inventoryXML))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("X-Server-Key", c.ServerKey)
	req.Header.Set("X-Display-ID", c.DisplayID)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cmstransport: mediaInventory returned %d", resp.StatusCode)
	}
	return nil
}

// BlackList implements transport.Transport.
func (c *Client) BlackList(ctx context.Context, layoutID, kind, reason string) error {
	return c.post(ctx, "/display/blacklist", map[string]string{
		"layoutId": layoutID,
		"kind":     kind,
		"reason":   reason,
	}, nil)
}

// GetWeather implements transport.Transport.
func (c *Client) GetWeather(ctx context.Context) (transport.WeatherSnapshot, error) {
	var out transport.WeatherSnapshot
	err := c.post(ctx, "/display/weather", nil, &out)
	return out, err
}
