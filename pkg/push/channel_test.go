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

package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digisign/playercore/pkg/events"
)

func TestValidateAddress_Missing(t *testing.T) {
	ok, reason := ValidateAddress("")
	assert.False(t, ok)
	assert.Equal(t, ReasonMissing, reason)
}

func TestValidateAddress_WrongProtocol(t *testing.T) {
	ok, reason := ValidateAddress("tcp://10.0.0.1:9505")
	assert.False(t, ok)
	assert.Equal(t, ReasonWrongProto, reason)
}

func TestValidateAddress_Placeholder(t *testing.T) {
	ok, reason := ValidateAddress("wss://example.com/xmr")
	assert.False(t, ok)
	assert.Equal(t, ReasonPlaceholder, reason)
}

func TestValidateAddress_Valid(t *testing.T) {
	ok, _ := ValidateAddress("wss://cms.signage.example-corp.io/xmr")
	assert.True(t, ok)
}

func TestStart_InvalidAddressEmitsMisconfigured(t *testing.T) {
	bus := events.NewBus()
	var got []events.Event
	bus.Subscribe(func(e events.Event) { got = append(got, e) })
	ch := NewChannel(nil, bus, nil)

	ch.Start(nil, "", "") //nolint:staticcheck // nil ctx acceptable: validation short-circuits before any dial

	require.Len(t, got, 1)
	assert.Equal(t, events.TypePushMisconfigured, got[0].Type)
	assert.Equal(t, string(ReasonMissing), got[0].Reason)
}

type recordingCallbacks struct {
	changeLayout string
	reverted     bool
	command      string
	trigger      string
}

func (r *recordingCallbacks) OnChangeLayout(layoutID string, duration int, mode string) { r.changeLayout = layoutID }
func (r *recordingCallbacks) OnOverlayLayout(string, int)                               {}
func (r *recordingCallbacks) OnRevertToSchedule()                                       { r.reverted = true }
func (r *recordingCallbacks) OnPurgeAll()                                               {}
func (r *recordingCallbacks) OnCommand(code string)                                     { r.command = code }
func (r *recordingCallbacks) OnTrigger(code string)                                     { r.trigger = code }
func (r *recordingCallbacks) OnScreenshot()                                             {}
func (r *recordingCallbacks) OnGeoReport()                                              {}
func (r *recordingCallbacks) OnDataConnectorRefresh(string)                             {}
func (r *recordingCallbacks) OnCollectNow()                                             {}

func TestDispatch_ChangeLayout(t *testing.T) {
	cb := &recordingCallbacks{}
	ch := NewChannel(nil, events.NewBus(), cb)

	ch.dispatch([]byte(`{"action":"changeLayout","layoutId":"42.xlf","duration":30}`))

	assert.Equal(t, "42.xlf", cb.changeLayout)
}

func TestDispatch_RevertToSchedule(t *testing.T) {
	cb := &recordingCallbacks{}
	ch := NewChannel(nil, events.NewBus(), cb)

	ch.dispatch([]byte(`{"action":"revertToSchedule"}`))

	assert.True(t, cb.reverted)
}

func TestDispatch_UnknownActionIsIgnored(t *testing.T) {
	cb := &recordingCallbacks{}
	ch := NewChannel(nil, events.NewBus(), cb)

	ch.dispatch([]byte(`{"action":"somethingNew"}`))

	assert.Empty(t, cb.command)
	assert.False(t, cb.reverted)
}

func TestDispatch_MalformedPayloadDoesNotPanic(t *testing.T) {
	cb := &recordingCallbacks{}
	ch := NewChannel(nil, events.NewBus(), cb)

	assert.NotPanics(t, func() {
		ch.dispatch([]byte(`not json`))
	})
}
