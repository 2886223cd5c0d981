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

// Package blacklist implements the per-layout failure tracker.
package blacklist

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultThreshold is the consecutive-failure count that blacklists a layout.
const DefaultThreshold = 3

// Reporter reports newly blacklisted layouts to the CMS. Unblacklisting is
// not reported. The Tracker calls it synchronously, after the local state
// change, and logs and swallows any error it returns.
type Reporter interface {
	BlackList(layoutID, kind, reason string) error
}

// Tracker is the per-display blacklist state. All methods are safe for
// concurrent use, though the orchestration core only ever calls it from
// its single event-loop goroutine.
type Tracker struct {
	mu        sync.Mutex
	threshold int
	failures  map[string]int
	blacklisted map[string]bool

	log      *zap.SugaredLogger
	reporter Reporter
	onEvent  func(event Event)
}

// Event is emitted on blacklist state transitions.
type Event struct {
	Type     string // "blacklisted" | "unblacklisted"
	LayoutID string
	Failures int
}

// New builds a Tracker. onEvent may be nil.
func New(log *zap.SugaredLogger, reporter Reporter, onEvent func(Event)) *Tracker {
	return &Tracker{
		threshold:   DefaultThreshold,
		failures:    map[string]int{},
		blacklisted: map[string]bool{},
		log:         log,
		reporter:    reporter,
		onEvent:     onEvent,
	}
}

// ReportFailure increments the failure counter for layoutID; once it
// reaches the threshold the layout is blacklisted and reported to the CMS.
func (t *Tracker) ReportFailure(layoutID, reason string) {
	t.mu.Lock()
	t.failures[layoutID]++
	n := t.failures[layoutID]
	newlyBlacklisted := n >= t.threshold && !t.blacklisted[layoutID]
	if newlyBlacklisted {
		t.blacklisted[layoutID] = true
	}
	t.mu.Unlock()

	if newlyBlacklisted {
		if t.log != nil {
			t.log.Infow("layout blacklisted", "layoutID", layoutID, "failures", n, "reason", reason)
		}
		if t.onEvent != nil {
			t.onEvent(Event{Type: "blacklisted", LayoutID: layoutID, Failures: n})
		}
		if t.reporter != nil {
			// Synchronous report to the CMS, made after the local blacklist
			// transition; a failed report is logged and does not undo it.
			if err := t.reporter.BlackList(layoutID, "layout", reason); err != nil && t.log != nil {
				t.log.Warnw("blacklist report to CMS failed", "layoutID", layoutID, "error", err)
			}
		}
	}
}

// ReportSuccess clears any failure/blacklist state for layoutID.
func (t *Tracker) ReportSuccess(layoutID string) {
	t.mu.Lock()
	wasBlacklisted := t.blacklisted[layoutID]
	delete(t.failures, layoutID)
	delete(t.blacklisted, layoutID)
	t.mu.Unlock()

	if wasBlacklisted {
		if t.log != nil {
			t.log.Infow("layout unblacklisted", "layoutID", layoutID)
		}
		if t.onEvent != nil {
			t.onEvent(Event{Type: "unblacklisted", LayoutID: layoutID})
		}
	}
}

// IsBlacklisted reports whether layoutID is currently blacklisted.
func (t *Tracker) IsBlacklisted(layoutID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blacklisted[layoutID]
}

// Reset clears all entries. Called exactly when checkRf changes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = map[string]int{}
	t.blacklisted = map[string]bool{}
}

// Size returns the number of currently blacklisted layouts, for metrics.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.blacklisted)
}
