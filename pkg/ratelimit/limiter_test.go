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

package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestAllowed_UnlimitedWhenZero(t *testing.T) {
	l := New(clockwork.NewFakeClock())
	assert.True(t, l.Allowed("x", 0, time.Now()))
}

func TestAllowed_EvenDistributionGap(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	l.RecordPlay("472")

	// 3/hour => gap of 20 minutes required.
	assert.False(t, l.Allowed("472", 3, clock.Now().Add(10*time.Minute)))
	assert.True(t, l.Allowed("472", 3, clock.Now().Add(21*time.Minute)))
}

func TestAllowed_CapsPlaysPerHour(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)

	l.RecordPlay("472")
	clock.Advance(20 * time.Minute)
	l.RecordPlay("472")
	clock.Advance(20 * time.Minute)
	l.RecordPlay("472")

	// Three plays within the hour at the 3/hour cap: must be excluded now.
	assert.False(t, l.Allowed("472", 3, clock.Now().Add(20*time.Minute)))

	// After the oldest falls off the trailing hour, it becomes allowed again.
	clock.Advance(21 * time.Minute)
	assert.True(t, l.Allowed("472", 3, clock.Now()))
}
