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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSettings_AppliesDefaultsWhenMissing(t *testing.T) {
	s := DecodeSettings(map[string]interface{}{})

	assert.Equal(t, DefaultCollectInterval, s.CollectInterval)
	assert.Equal(t, "info", s.LogLevel)
	assert.False(t, s.StatsEnabled)
}

func TestDecodeSettings_ParsesProvidedValues(t *testing.T) {
	s := DecodeSettings(map[string]interface{}{
		"collectInterval":     float64(300),
		"xmrWebSocketAddress": "wss://cms.example-corp.io/xmr",
		"statsEnabled":        true,
		"logLevel":            "debug",
	})

	assert.Equal(t, 300*time.Second, s.CollectInterval)
	assert.Equal(t, "wss://cms.example-corp.io/xmr", s.XMRWebSocketAddress)
	assert.True(t, s.StatsEnabled)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestApplyTags_SetsRecognizedKeyIgnoresUnknown(t *testing.T) {
	s := &Settings{}
	ApplyTags(s, []string{"geoApiKey|AIzaSomeKey", "unknownTag|value"})

	assert.Equal(t, "AIzaSomeKey", s.GoogleGeoAPIKey)
}

func TestApplyTags_MalformedTagIgnored(t *testing.T) {
	s := &Settings{}
	ApplyTags(s, []string{"noPipeHere"})

	assert.Empty(t, s.GoogleGeoAPIKey)
}
