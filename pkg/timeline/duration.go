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

// Package timeline implements the Timeline Predictor: an
// offline, clock-walk simulation of upcoming layout playback using a
// simulated rate limiter, plus the XLF duration parser it depends on.
package timeline

import (
	"encoding/xml"
	"sync"
	"time"
)

const (
	defaultMediaPlaceholder = 60 * time.Second
	shrinkGuardThreshold    = 60 * time.Second
)

type xlfLayout struct {
	XMLName  xml.Name    `xml:"layout"`
	Duration int         `xml:"duration,attr"`
	Regions  []xlfRegion `xml:"region"`
}

type xlfRegion struct {
	Media []xlfMedia `xml:"media"`
}

type xlfMedia struct {
	Duration    int `xml:"duration,attr"`
	UseDuration int `xml:"useDuration,attr"`
}

// ParseXLFDuration resolves a layout's duration: an
// explicit <layout duration> attribute wins; otherwise the max across
// regions of the summed media duration, with useDuration=0 media counted
// at the 60s placeholder.
func ParseXLFDuration(xlfBytes []byte) (time.Duration, error) {
	var doc xlfLayout
	if err := xml.Unmarshal(xlfBytes, &doc); err != nil {
		return 0, err
	}
	if doc.Duration > 0 {
		return time.Duration(doc.Duration) * time.Second, nil
	}

	var max time.Duration
	for _, region := range doc.Regions {
		var sum time.Duration
		for _, m := range region.Media {
			if m.UseDuration == 0 {
				sum += defaultMediaPlaceholder
				continue
			}
			sum += time.Duration(m.Duration) * time.Second
		}
		if sum > max {
			max = sum
		}
	}
	return max, nil
}

// DurationTracker remembers the best-known duration per layout file,
// applying a never-shrink correction: a later observation
// must never shrink a previously recorded duration greater than 60s.
type DurationTracker struct {
	mu        sync.Mutex
	durations map[string]time.Duration
}

// NewDurationTracker returns an empty tracker.
func NewDurationTracker() *DurationTracker {
	return &DurationTracker{durations: map[string]time.Duration{}}
}

// RecordLayoutDuration stores d for file, unless a previously recorded
// duration for file exceeds the shrink-guard threshold and d is smaller.
func (t *DurationTracker) RecordLayoutDuration(file string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.durations[file]
	if ok && prev > shrinkGuardThreshold && d < prev {
		return
	}
	t.durations[file] = d
}

// Duration returns the recorded duration for file, or 0 if unknown.
func (t *DurationTracker) Duration(file string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.durations[file]
}
