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

// Package config decodes the CMS-supplied settings map and tags array
// into the typed Settings the rest of the Core consumes.
package config

import (
	"fmt"
	"time"

	"github.com/digisign/playercore/pkg/transport"
)

// Settings is the decoded form of RegistrationResult.Settings.
type Settings struct {
	CollectInterval      time.Duration
	XMRWebSocketAddress  string
	XMRCmsKey            string
	ServerKey            string
	LogLevel             string
	StatsEnabled         bool
	DownloadWindowStart  string
	DownloadWindowEnd    string
	GoogleGeoAPIKey      string

	// SyncConfig is committed verbatim from RegistrationResult.SyncConfig;
	// DecodeSettings never touches it since it arrives pre-typed, not as
	// part of the raw settings map.
	SyncConfig *transport.SyncConfig
}

// DefaultCollectInterval is used when settings omit collectInterval or it
// parses to a non-positive value.
const DefaultCollectInterval = 15 * time.Minute

// DecodeSettings builds a Settings from the raw map returned by
// RegistrationResult, applying defaults for anything missing.
func DecodeSettings(raw map[string]interface{}) Settings {
	s := Settings{CollectInterval: DefaultCollectInterval}

	if v, ok := intSeconds(raw["collectInterval"]); ok && v > 0 {
		s.CollectInterval = time.Duration(v) * time.Second
	}
	s.XMRWebSocketAddress = stringOr(raw["xmrWebSocketAddress"], "")
	s.XMRCmsKey = stringOr(raw["xmrCmsKey"], "")
	s.ServerKey = stringOr(raw["serverKey"], "")
	s.LogLevel = stringOr(raw["logLevel"], "info")
	s.StatsEnabled = boolOr(raw["statsEnabled"], false)
	s.DownloadWindowStart = stringOr(raw["downloadWindowStart"], "")
	s.DownloadWindowEnd = stringOr(raw["downloadWindowEnd"], "")

	return s
}

func stringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func boolOr(v interface{}, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func intSeconds(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
