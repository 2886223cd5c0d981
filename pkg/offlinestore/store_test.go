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

package offlinestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingsFixture struct {
	CollectInterval int `json:"collectInterval"`
}

func TestFileStore_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, SaveJSON(s, KeySettings, settingsFixture{CollectInterval: 900}))

	snapshot, err := s.Load()
	require.NoError(t, err)

	var got settingsFixture
	ok, err := LoadJSON(snapshot, KeySettings, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 900, got.CollectInterval)
}

func TestFileStore_LoadMissingKeysReturnsEmptyMap(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	snapshot, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestFileStore_HasCachedData(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	assert.False(t, s.HasCachedData())

	s.Save(KeySchedule, []byte(`{"layouts":[]}`))
	assert.True(t, s.HasCachedData())

	// A fresh store pointed at the same dir picks up the on-disk file too.
	s2, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	assert.True(t, s2.HasCachedData())
	assert.FileExists(t, filepath.Join(dir, "schedule.json"))
}
