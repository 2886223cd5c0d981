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

package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseXLFDuration_ExplicitAttributeWins(t *testing.T) {
	d, err := ParseXLFDuration([]byte(`<layout duration="45"><region><media duration="10" useDuration="1"/></region></layout>`))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
}

func TestParseXLFDuration_SumsMediaAcrossMaxRegion(t *testing.T) {
	xlf := `<layout>
		<region><media duration="10" useDuration="1"/><media duration="20" useDuration="1"/></region>
		<region><media duration="5" useDuration="1"/></region>
	</layout>`
	d, err := ParseXLFDuration([]byte(xlf))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestParseXLFDuration_ZeroUseDurationIsSixtySecondPlaceholder(t *testing.T) {
	xlf := `<layout><region><media duration="0" useDuration="0"/></region></layout>`
	d, err := ParseXLFDuration([]byte(xlf))
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, d)
}

func TestDurationTracker_NeverShrinksAboveThreshold(t *testing.T) {
	tr := NewDurationTracker()
	tr.RecordLayoutDuration("a.xlf", 120*time.Second)
	tr.RecordLayoutDuration("a.xlf", 30*time.Second)

	assert.Equal(t, 120*time.Second, tr.Duration("a.xlf"))
}

func TestDurationTracker_AllowsShrinkBelowThreshold(t *testing.T) {
	tr := NewDurationTracker()
	tr.RecordLayoutDuration("a.xlf", 60*time.Second)
	tr.RecordLayoutDuration("a.xlf", 10*time.Second)

	assert.Equal(t, 10*time.Second, tr.Duration("a.xlf"))
}
