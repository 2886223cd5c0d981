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

package blacklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReporter struct {
	calls []string
}

func (f *fakeReporter) BlackList(layoutID, kind, reason string) error {
	f.calls = append(f.calls, layoutID+"|"+kind+"|"+reason)
	return nil
}

func TestReportFailure_BlacklistsAtThreshold(t *testing.T) {
	rep := &fakeReporter{}
	var events []Event
	tr := New(nil, rep, func(e Event) { events = append(events, e) })

	tr.ReportFailure("100", "render")
	assert.False(t, tr.IsBlacklisted("100"))
	tr.ReportFailure("100", "render")
	assert.False(t, tr.IsBlacklisted("100"))
	tr.ReportFailure("100", "render")

	assert.True(t, tr.IsBlacklisted("100"))
	require.Len(t, events, 1)
	assert.Equal(t, "blacklisted", events[0].Type)
	require.Len(t, rep.calls, 1)
	assert.Equal(t, "100|layout|render", rep.calls[0])

	// Further failures must not re-report.
	tr.ReportFailure("100", "render")
	assert.Len(t, rep.calls, 1)
}

func TestReportSuccess_ClearsBlacklist(t *testing.T) {
	tr := New(nil, nil, nil)
	tr.ReportFailure("1", "x")
	tr.ReportFailure("1", "x")
	tr.ReportFailure("1", "x")
	require.True(t, tr.IsBlacklisted("1"))

	tr.ReportSuccess("1")
	assert.False(t, tr.IsBlacklisted("1"))
}

func TestReset_ClearsAllEntries(t *testing.T) {
	tr := New(nil, nil, nil)
	tr.ReportFailure("1", "x")
	tr.ReportFailure("2", "x")
	tr.ReportFailure("2", "x")
	tr.ReportFailure("2", "x")
	require.Equal(t, 1, tr.Size())

	tr.Reset()
	assert.Equal(t, 0, tr.Size())
	assert.False(t, tr.IsBlacklisted("2"))
}
