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
	"sort"
	"time"

	"github.com/digisign/playercore/pkg/schedule"
)

const (
	maxEntries  = 500
	noneStep    = 60 * time.Second
	simWindow   = time.Hour
)

// Entry is one predicted playback slot.
type Entry struct {
	LayoutFile string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	IsDefault  bool
	Hidden     bool
}

// Options bounds and seeds a prediction run.
type Options struct {
	From                  time.Time
	Hours                 int
	CurrentLayoutStartedAt time.Time // zero means unknown/not playing
}

// simHistory is a self-contained play-history map using the same
// even-distribution algorithm as pkg/ratelimit, scoped to a single
// Predict call so it never pollutes the real rate limiter's state.
type simHistory struct {
	plays map[string][]time.Time
}

func newSimHistory() *simHistory {
	return &simHistory{plays: map[string][]time.Time{}}
}

func (h *simHistory) allowed(file string, maxPerHour int, now time.Time) bool {
	if maxPerHour <= 0 {
		return true
	}
	hist := h.gc(file, now)
	if len(hist) >= maxPerHour {
		return false
	}
	if len(hist) == 0 {
		return true
	}
	minGap := time.Duration(float64(simWindow) / float64(maxPerHour))
	return now.Sub(hist[len(hist)-1]) >= minGap
}

func (h *simHistory) record(file string, at time.Time) {
	h.plays[file] = append(h.gc(file, at), at)
}

func (h *simHistory) gc(file string, now time.Time) []time.Time {
	cutoff := now.Add(-simWindow)
	hist := h.plays[file]
	i := 0
	for i < len(hist) && hist[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		hist = append([]time.Time(nil), hist[i:]...)
		h.plays[file] = hist
	}
	return hist
}

// Predict runs the clock-walk simulation described in .
func Predict(eval *schedule.Evaluator, durations *DurationTracker, evalCtx schedule.EvalContext, opts Options) []Entry {
	sim := newSimHistory()
	maxPerHour := func(file string) int {
		return layoutMaxPlaysPerHour(eval.Get(), file)
	}

	var entries []Entry
	t := opts.From
	end := opts.From.Add(time.Duration(opts.Hours) * time.Hour)
	first := true

	for t.Before(end) && len(entries) < maxEntries {
		active := eval.AllLayoutsAt(t, evalCtx)

		eligible := make([]schedule.ActiveLayout, 0, len(active))
		for _, a := range active {
			if sim.allowed(a.File, maxPerHour(a.File), t) {
				eligible = append(eligible, a)
			}
		}

		if len(eligible) == 0 {
			def := eval.Get().Default
			if def == "" {
				t = t.Add(noneStep)
				continue
			}
			dur := durations.Duration(def)
			if dur == 0 {
				dur = defaultMediaPlaceholder
			}
			entries = append(entries, Entry{LayoutFile: def, StartTime: t, EndTime: t.Add(dur), Duration: dur, IsDefault: true})
			sim.record(def, t)
			t = t.Add(dur)
			first = false
			continue
		}

		sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Priority > eligible[j].Priority })
		topPriority := eligible[0].Priority

		var playable []schedule.ActiveLayout
		var hidden []schedule.ActiveLayout
		for _, a := range eligible {
			if a.Priority == topPriority {
				playable = append(playable, a)
			} else {
				hidden = append(hidden, a)
			}
		}

		dayPart := active
		for _, a := range playable {
			if !sameDayPart(dayPart, eval.AllLayoutsAt(t, evalCtx)) {
				break
			}
			dur := durations.Duration(a.File)
			if dur == 0 {
				dur = defaultMediaPlaceholder
			}
			if first && !opts.CurrentLayoutStartedAt.IsZero() && a.File == playable[0].File {
				elapsed := t.Sub(opts.CurrentLayoutStartedAt)
				if elapsed > 0 && elapsed < dur {
					dur -= elapsed
				}
			}
			entry := Entry{LayoutFile: a.File, StartTime: t, EndTime: t.Add(dur), Duration: dur}
			entries = append(entries, entry)
			for _, h := range hidden {
				entries = append(entries, Entry{LayoutFile: h.File, StartTime: t, EndTime: t.Add(dur), Duration: dur, Hidden: true})
			}
			sim.record(a.File, t)
			t = t.Add(dur)
			first = false

			if len(entries) >= maxEntries {
				break
			}
			if !sameDayPart(dayPart, eval.AllLayoutsAt(t, evalCtx)) {
				break
			}
		}
	}

	return entries
}

func sameDayPart(a, b []schedule.ActiveLayout) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]bool{}
	for _, x := range a {
		seen[x.File] = true
	}
	for _, y := range b {
		if !seen[y.File] {
			return false
		}
	}
	return true
}

// layoutMaxPlaysPerHour mirrors the unexported helper in pkg/schedule;
// reimplemented here since the Predictor needs it from outside that
// package and the schedule package intentionally keeps its evaluation
// internals private.
func layoutMaxPlaysPerHour(s schedule.Schedule, file string) int {
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
