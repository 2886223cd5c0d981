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

package selector

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digisign/playercore/pkg/events"
)

type fakeBlacklist struct {
	ids map[string]bool
}

func (f *fakeBlacklist) IsBlacklisted(id string) bool { return f.ids[id] }

func newTestSelector() (*Selector, *events.Bus, clockwork.FakeClock) {
	bus := events.NewBus()
	clock := clockwork.NewFakeClock()
	return New(nil, clock, bus, &fakeBlacklist{ids: map[string]bool{}}), bus, clock
}

func collect(bus *events.Bus) *[]events.Event {
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })
	return &got
}

func TestEvaluate_EmptySchedule_NoDefault(t *testing.T) {
	s, bus, _ := newTestSelector()
	got := collect(bus)

	s.Evaluate(nil, "")

	require.Len(t, *got, 1)
	assert.Equal(t, events.TypeNoLayoutsScheduled, (*got)[0].Type)
}

func TestEvaluate_EmptySchedule_FallsBackToDefault(t *testing.T) {
	s, bus, _ := newTestSelector()
	s.Evaluate([]string{"a.xlf"}, "default.xlf")
	got := collect(bus)

	s.Evaluate(nil, "default.xlf")

	require.Len(t, *got, 1)
	assert.Equal(t, events.TypeLayoutPrepareRequest, (*got)[0].Type)
	assert.Equal(t, "default.xlf", (*got)[0].LayoutID)
}

func TestEvaluate_CurrentStillScheduled_EmitsAlreadyPlaying(t *testing.T) {
	s, bus, _ := newTestSelector()
	s.Evaluate([]string{"a.xlf", "b.xlf"}, "")
	got := collect(bus)

	s.Evaluate([]string{"a.xlf", "b.xlf"}, "")

	require.Len(t, *got, 1)
	assert.Equal(t, events.TypeLayoutAlreadyPlaying, (*got)[0].Type)
	assert.Equal(t, "a.xlf", (*got)[0].LayoutID)
}

func TestEvaluate_CurrentDropped_PicksFirstNonBlacklisted(t *testing.T) {
	s, bus, _ := newTestSelector()
	s.Evaluate([]string{"a.xlf"}, "")
	got := collect(bus)

	s.Evaluate([]string{"b.xlf", "c.xlf"}, "")

	require.Len(t, *got, 1)
	assert.Equal(t, events.TypeLayoutPrepareRequest, (*got)[0].Type)
	assert.Equal(t, "b.xlf", (*got)[0].LayoutID)
}

func TestAdvanceNext_SkipsBlacklisted(t *testing.T) {
	bus := events.NewBus()
	clock := clockwork.NewFakeClock()
	bl := &fakeBlacklist{ids: map[string]bool{"b.xlf": true}}
	s := New(nil, clock, bus, bl)
	s.Evaluate([]string{"a.xlf", "b.xlf", "c.xlf"}, "")
	got := collect(bus)

	s.AdvanceNext(nil, nil)

	require.Len(t, *got, 1)
	assert.Equal(t, "c.xlf", (*got)[0].LayoutID)
}

func TestAdvanceNext_NoOpDuringOverride(t *testing.T) {
	s, bus, _ := newTestSelector()
	s.Evaluate([]string{"a.xlf", "b.xlf"}, "")
	s.ChangeLayout("override.xlf", 0, "")
	got := collect(bus)

	s.AdvanceNext(nil, nil)

	assert.Empty(t, *got)
}

func TestChangeLayout_SetsOverrideAndClearsCurrentLayout(t *testing.T) {
	s, _, _ := newTestSelector()
	s.Evaluate([]string{"a.xlf"}, "")
	require.Equal(t, "a.xlf", s.CurrentLayoutID())

	s.ChangeLayout("override.xlf", 5*time.Second, "")

	require.NotNil(t, s.Override())
	assert.Equal(t, "override.xlf", s.Override().LayoutID)
	assert.Equal(t, OverrideChange, s.Override().Type)
	assert.Empty(t, s.CurrentLayoutID())
}

func TestRevertToSchedule_ClearsOverrideAndReevaluates(t *testing.T) {
	s, bus, _ := newTestSelector()
	s.Evaluate([]string{"a.xlf"}, "")
	s.ChangeLayout("override.xlf", 0, "")
	got := collect(bus)

	s.RevertToSchedule()

	require.Nil(t, s.Override())
	require.Len(t, *got, 2)
	assert.Equal(t, events.TypeRevertToSchedule, (*got)[0].Type)
	assert.Equal(t, events.TypeLayoutPrepareRequest, (*got)[1].Type)
	assert.Equal(t, "a.xlf", (*got)[1].LayoutID)
}

func TestPendingLayout_NotifyMediaReadyEmitsCheckPendingLayout(t *testing.T) {
	s, bus, _ := newTestSelector()
	s.SetPending("a.xlf", []string{"img1", "img2"})
	s.SetPending("b.xlf", []string{"img3"})
	got := collect(bus)

	s.NotifyMediaReady("img2")

	require.Len(t, *got, 1)
	assert.Equal(t, events.TypeCheckPendingLayout, (*got)[0].Type)
	assert.Equal(t, "a.xlf", (*got)[0].LayoutID)
}
