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

package command

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digisign/playercore/pkg/events"
	"github.com/digisign/playercore/pkg/schedule"
)

type fakeCollectNower struct{ called int }

func (f *fakeCollectNower) RequestCollectNow() { f.called++ }

func TestRunScheduled_ExecutesOnceAtOrAfterDate(t *testing.T) {
	bus := events.NewBus()
	clock := clockwork.NewFakeClock()
	p := New(nil, clock, bus, nil, nil)

	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	cmds := []schedule.ScheduledCommand{{Code: "restart", Date: clock.Now().Add(-time.Minute)}}
	p.RunScheduled(cmds)
	p.RunScheduled(cmds)

	require.Len(t, got, 1)
	assert.Equal(t, events.TypeScheduledCommand, got[0].Type)
	assert.Equal(t, "restart", got[0].Code)
}

func TestRunScheduled_FutureDateSkipped(t *testing.T) {
	bus := events.NewBus()
	clock := clockwork.NewFakeClock()
	p := New(nil, clock, bus, nil, nil)
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	p.RunScheduled([]schedule.ScheduledCommand{{Code: "x", Date: clock.Now().Add(time.Hour)}})

	assert.Empty(t, got)
}

func TestRunScheduled_CollectNowNotifiesWithoutEmittingEvent(t *testing.T) {
	bus := events.NewBus()
	clock := clockwork.NewFakeClock()
	notify := &fakeCollectNower{}
	p := New(nil, clock, bus, nil, notify)
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	p.RunScheduled([]schedule.ScheduledCommand{{Code: "collectNow", Date: clock.Now()}})

	assert.Equal(t, 1, notify.called)
	assert.Empty(t, got)
}

func TestExecuteCommand_UnknownCodeEmitsFailure(t *testing.T) {
	bus := events.NewBus()
	p := New(nil, clockwork.NewFakeClock(), bus, nil, nil)
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	p.ExecuteCommand(context.Background(), "missing", map[string]CommandSpec{})

	require.Len(t, got, 1)
	assert.False(t, got[0].Success)
	assert.Equal(t, "Unknown command", got[0].Reason)
}

func TestExecuteCommand_HTTPSchemeEmitsCommandResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bus := events.NewBus()
	p := New(nil, clockwork.NewFakeClock(), bus, srv.Client(), nil)
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	p.ExecuteCommand(context.Background(), "ping", map[string]CommandSpec{
		"ping": NewCommandSpec("http|"+srv.URL, ""),
	})

	require.Len(t, got, 1)
	assert.Equal(t, events.TypeCommandResult, got[0].Type)
	assert.True(t, got[0].Success)
	assert.Equal(t, http.StatusOK, got[0].HTTPStatus)
}

func TestExecuteCommand_NativeSchemeEmitsExecuteNativeCommand(t *testing.T) {
	bus := events.NewBus()
	p := New(nil, clockwork.NewFakeClock(), bus, nil, nil)
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	p.ExecuteCommand(context.Background(), "shell", map[string]CommandSpec{
		"shell": NewCommandSpec("rs232|PWR_ON", ""),
	})

	require.Len(t, got, 1)
	assert.Equal(t, events.TypeExecuteNativeCommand, got[0].Type)
	assert.Equal(t, "rs232|PWR_ON", got[0].CommandString)
}

func TestHandleTrigger_NavLayoutCallsChangeLayout(t *testing.T) {
	bus := events.NewBus()
	p := New(nil, clockwork.NewFakeClock(), bus, nil, nil)
	actions := []schedule.Action{{TriggerCode: "btn1", ActionType: "navLayout", LayoutCode: "menu.xlf"}}

	var navigated string
	p.HandleTrigger("btn1", actions, func(layoutID string) { navigated = layoutID })

	assert.Equal(t, "menu.xlf", navigated)
}

func TestHandleTrigger_CommandEmitsExecuteCommand(t *testing.T) {
	bus := events.NewBus()
	p := New(nil, clockwork.NewFakeClock(), bus, nil, nil)
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })
	actions := []schedule.Action{{TriggerCode: "btn2", ActionType: "command", CommandCode: "reboot"}}

	p.HandleTrigger("btn2", actions, nil)

	require.Len(t, got, 1)
	assert.Equal(t, events.TypeExecuteCommand, got[0].Type)
	assert.Equal(t, "reboot", got[0].Code)
}

func TestHandleTrigger_UnboundCodeIsNoop(t *testing.T) {
	bus := events.NewBus()
	p := New(nil, clockwork.NewFakeClock(), bus, nil, nil)
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })

	p.HandleTrigger("nope", nil, nil)

	assert.Empty(t, got)
}
