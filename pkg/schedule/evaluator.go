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

package schedule

import (
	"sort"
	"sync"
	"time"
)

// Evaluator holds the current Schedule and answers layoutsAt-style queries.
// It is a pure, stateless-per-call engine: Set replaces the schedule
// atomically; everything else is a read.
type Evaluator struct {
	mu       sync.RWMutex
	schedule Schedule
}

// New builds an Evaluator with an empty schedule.
func New() *Evaluator {
	return &Evaluator{}
}

// Set atomically replaces the active schedule.
func (e *Evaluator) Set(s Schedule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.schedule = s
}

// Get returns the current schedule (read-only use by callers).
func (e *Evaluator) Get() Schedule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.schedule
}

// LayoutsNow returns the ordered set of layouts active right now, honoring
// rate limits.
func (e *Evaluator) LayoutsNow(now time.Time, ctx EvalContext) []ActiveLayout {
	return e.layoutsAt(now, ctx, true)
}

// AllLayoutsAt returns every time-active layout with its priority, ignoring
// rate limits.
func (e *Evaluator) AllLayoutsAt(t time.Time, ctx EvalContext) []ActiveLayout {
	return e.layoutsAt(t, ctx, false)
}

type candidate struct {
	active ActiveLayout
	order  int // preserves campaign/layout declaration order
}

func (e *Evaluator) layoutsAt(now time.Time, ctx EvalContext, honorRateLimit bool) []ActiveLayout {
	sched := e.Get()
	var candidates []candidate
	order := 0

	considerLayout := func(l Layout, campaignID string) {
		if !isTimeActive(l.FromDT, l.ToDT, l.RecurrenceType, l.RecurrenceRepeatsOn, l.RecurrenceRange, now) {
			return
		}
		if !evaluateCriteria(l.Criteria, now, ctx) {
			return
		}
		if l.IsGeoAware && !withinGeoFence(l.GeoLocation, ctx.PlayerLocation) {
			return
		}
		candidates = append(candidates, candidate{
			active: ActiveLayout{
				File:         l.File,
				Priority:     l.Priority,
				SyncEvent:    l.SyncEvent,
				ShareOfVoice: l.ShareOfVoice,
				CampaignID:   campaignID,
			},
			order: order,
		})
		order++
	}

	for _, c := range sched.Campaigns {
		if !isTimeActive(c.FromDT, c.ToDT, c.RecurrenceType, c.RecurrenceRepeatsOn, c.RecurrenceRange, now) {
			continue
		}
		if !evaluateCriteria(c.Criteria, now, ctx) {
			continue
		}
		if c.IsGeoAware && !withinGeoFence(c.GeoLocation, ctx.PlayerLocation) {
			continue
		}
		for _, l := range c.Layouts {
			// Campaign-level priority governs; individual layout priority
			// inside a campaign is not independently meaningful here.
			l.Priority = c.Priority
			considerLayout(l, c.ID)
		}
	}
	for _, l := range sched.Layouts {
		considerLayout(l, "")
	}

	if !honorRateLimit {
		return dedupeByMaxPriority(candidates)
	}

	filtered := candidates[:0:0]
	for _, c := range candidates {
		if ctx.PlayHistory == nil || ctx.PlayHistory.Allowed(c.active.File, layoutMaxPlaysPerHour(sched, c.active.File), now) {
			filtered = append(filtered, c)
		}
	}

	if len(filtered) == 0 {
		if sched.Default != "" {
			return []ActiveLayout{{File: sched.Default, Priority: 0}}
		}
		return nil
	}

	return selectAtMaxPriority(filtered)
}

// selectAtMaxPriority returns all candidates at the maximum priority among
// them, preserving declaration order.
func selectAtMaxPriority(candidates []candidate) []ActiveLayout {
	maxP := candidates[0].active.Priority
	for _, c := range candidates {
		if c.active.Priority > maxP {
			maxP = c.active.Priority
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].order < candidates[j].order })
	var out []ActiveLayout
	for _, c := range candidates {
		if c.active.Priority == maxP {
			out = append(out, c.active)
		}
	}
	return out
}

// dedupeByMaxPriority is used by AllLayoutsAt: every time-active layout is
// returned (no rate-limit filtering), in declaration order.
func dedupeByMaxPriority(candidates []candidate) []ActiveLayout {
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].order < candidates[j].order })
	out := make([]ActiveLayout, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.active)
	}
	return out
}

func layoutMaxPlaysPerHour(s Schedule, file string) int {
	for _, l := range s.Layouts {
		if l.File == file {
			return l.MaxPlaysPerHour
		}
	}
	for _, c := range s.Campaigns {
		for _, l := range c.Layouts {
			if l.File == file {
				return l.MaxPlaysPerHour
			}
		}
	}
	return 0
}

// isTimeActive checks whether a layout or campaign's fromdt/todt window
// (or weekly recurrence time-of-day with midnight wrap-around) and its
// day-of-week/recurrenceRange gates are satisfied at now.
func isTimeActive(fromDT, toDT *time.Time, recurrenceType string, repeatsOn []time.Weekday, recurrenceRange *time.Time, now time.Time) bool {
	if recurrenceRange != nil && now.After(*recurrenceRange) {
		return false
	}
	if len(repeatsOn) > 0 && !weekdayIn(now.Weekday(), repeatsOn) {
		return false
	}

	if recurrenceType == "Week" && fromDT != nil && toDT != nil {
		return timeOfDayActive(*fromDT, *toDT, now)
	}

	if fromDT != nil && now.Before(*fromDT) {
		return false
	}
	if toDT != nil && now.After(*toDT) {
		return false
	}
	return true
}

func weekdayIn(d time.Weekday, set []time.Weekday) bool {
	for _, w := range set {
		if w == d {
			return true
		}
	}
	return false
}

// timeOfDayActive compares only the time-of-day component of from/to
// against now, allowing wrap-around across midnight (e.g. 22:00-06:00).
func timeOfDayActive(from, to, now time.Time) bool {
	toSeconds := func(t time.Time) int {
		return t.Hour()*3600 + t.Minute()*60 + t.Second()
	}
	f, t, n := toSeconds(from), toSeconds(to), toSeconds(now)
	if f <= t {
		return n >= f && n <= t
	}
	// Wraps past midnight.
	return n >= f || n <= t
}
