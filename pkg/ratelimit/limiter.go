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

// Package ratelimit implements the even-distribution per-layout play gate:
// a sliding one-hour window with a minimum inter-play gap.
package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const window = time.Hour

// Limiter tracks per-layout play history and answers Allowed queries.
// Entries older than one hour are garbage-collected on every read.
type Limiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	history map[string][]time.Time
}

// New builds a Limiter using clock for all "now" lookups.
func New(clock clockwork.Clock) *Limiter {
	return &Limiter{clock: clock, history: map[string][]time.Time{}}
}

// RecordPlay records a successful play for layoutFile, as reported by the
// Renderer.
func (l *Limiter) RecordPlay(layoutFile string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	l.history[layoutFile] = append(gc(l.history[layoutFile], now), now)
}

// Allowed implements schedule.RateLimitView: true iff maxPerHour == 0
// (unlimited) or both gates below pass:
//   - fewer than maxPerHour plays in the trailing 60 minutes, and
//   - at least 3600/maxPerHour seconds since the most recent play.
func (l *Limiter) Allowed(layoutFile string, maxPerHour int, now time.Time) bool {
	if maxPerHour <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	hist := gc(l.history[layoutFile], now)
	l.history[layoutFile] = hist

	if len(hist) >= maxPerHour {
		return false
	}
	if len(hist) == 0 {
		return true
	}
	minGap := time.Duration(float64(window) / float64(maxPerHour))
	last := hist[len(hist)-1]
	return now.Sub(last) >= minGap
}

// gc drops entries older than one hour relative to now. hist is assumed
// sorted ascending (true by construction, since plays are appended in time
// order).
func gc(hist []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(hist) && hist[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return hist
	}
	return append([]time.Time(nil), hist[i:]...)
}
