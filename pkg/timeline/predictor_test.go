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

	"github.com/digisign/playercore/pkg/schedule"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

func TestPredict_NoScheduleSkipsForwardWithoutEntries(t *testing.T) {
	eval := schedule.New()
	eval.Set(schedule.Schedule{})
	durations := NewDurationTracker()

	entries := Predict(eval, durations, schedule.EvalContext{}, Options{
		From:  mustTime(t, "2026-07-30T08:00:00Z"),
		Hours: 1,
	})

	assert.Empty(t, entries)
}

func TestPredict_SingleAlwaysOnLayoutFillsWindow(t *testing.T) {
	eval := schedule.New()
	eval.Set(schedule.Schedule{
		Layouts: []schedule.Layout{{File: "a.xlf", Priority: 1}},
	})
	durations := NewDurationTracker()
	durations.RecordLayoutDuration("a.xlf", 10*time.Minute)

	entries := Predict(eval, durations, schedule.EvalContext{}, Options{
		From:  mustTime(t, "2026-07-30T08:00:00Z"),
		Hours: 1,
	})

	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, "a.xlf", e.LayoutFile)
		assert.False(t, e.Hidden)
	}
}

func TestPredict_LowerPriorityAttachedAsHidden(t *testing.T) {
	eval := schedule.New()
	eval.Set(schedule.Schedule{
		Layouts: []schedule.Layout{
			{File: "high.xlf", Priority: 2},
			{File: "low.xlf", Priority: 1},
		},
	})
	durations := NewDurationTracker()
	durations.RecordLayoutDuration("high.xlf", 30*time.Minute)
	durations.RecordLayoutDuration("low.xlf", 30*time.Minute)

	entries := Predict(eval, durations, schedule.EvalContext{}, Options{
		From:  mustTime(t, "2026-07-30T08:00:00Z"),
		Hours: 1,
	})

	var sawHidden bool
	for _, e := range entries {
		if e.Hidden {
			sawHidden = true
			assert.Equal(t, "low.xlf", e.LayoutFile)
		}
	}
	assert.True(t, sawHidden)
}

func TestPredict_RespectsCurrentLayoutStartedAtByShorteningFirstEntry(t *testing.T) {
	eval := schedule.New()
	eval.Set(schedule.Schedule{
		Layouts: []schedule.Layout{{File: "a.xlf", Priority: 1}},
	})
	durations := NewDurationTracker()
	durations.RecordLayoutDuration("a.xlf", 10*time.Minute)

	from := mustTime(t, "2026-07-30T08:05:00Z")
	started := mustTime(t, "2026-07-30T08:00:00Z")

	entries := Predict(eval, durations, schedule.EvalContext{}, Options{
		From:                   from,
		Hours:                  1,
		CurrentLayoutStartedAt: started,
	})

	require.NotEmpty(t, entries)
	assert.Equal(t, 5*time.Minute, entries[0].Duration)
}
