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

// Package offlinestore provides the durable three-key snapshot store used
// for offline fallback: settings, schedule, and requiredFiles.
package offlinestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Key names the three persisted snapshots.
type Key string

const (
	KeySettings      Key = "settings"
	KeySchedule      Key = "schedule"
	KeyRequiredFiles Key = "requiredFiles"
)

// Store is the capability interface the Collection Loop depends on: a
// narrow interface, not a global. The Platform shell supplies a concrete
// implementation backed by its persistent key-value store.
type Store interface {
	// Load hydrates all three snapshots at startup. Missing keys are left
	// as zero-length raw values.
	Load() (map[Key][]byte, error)
	// Save persists value under key. Fire-and-forget: errors are logged by
	// the implementation, never propagated.
	Save(key Key, value []byte)
	// HasCachedData reports whether a schedule snapshot exists.
	HasCachedData() bool
}

// FileStore is a simple file-backed Store, one file per key under dir.
// It is the default implementation used outside of a full platform shell
// (e.g. for local testing or a bare Linux player).
type FileStore struct {
	dir string
	log *zap.SugaredLogger

	mu    sync.Mutex
	cache map[Key][]byte
}

// NewFileStore builds a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string, log *zap.SugaredLogger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, log: log, cache: map[Key][]byte{}}, nil
}

func (f *FileStore) path(key Key) string {
	return filepath.Join(f.dir, string(key)+".json")
}

// Load implements Store.
func (f *FileStore) Load() (map[Key][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[Key][]byte{}
	for _, key := range []Key{KeySettings, KeySchedule, KeyRequiredFiles} {
		b, err := os.ReadFile(f.path(key))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		out[key] = b
		f.cache[key] = b
	}
	return out, nil
}

// Save implements Store.
func (f *FileStore) Save(key Key, value []byte) {
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()

	if err := os.WriteFile(f.path(key), value, 0o644); err != nil {
		if f.log != nil {
			f.log.Warnw("offline store save failed", "key", key, "error", err)
		}
	}
}

// HasCachedData implements Store.
func (f *FileStore) HasCachedData() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cache[KeySchedule]; ok {
		return true
	}
	_, err := os.Stat(f.path(KeySchedule))
	return err == nil
}

// SaveJSON is a convenience wrapper that marshals v before calling Save.
func SaveJSON(s Store, key Key, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Save(key, b)
	return nil
}

// LoadJSON is a convenience wrapper that unmarshals the snapshot for key, if
// present, into v. Returns false if the key was absent.
func LoadJSON(snapshot map[Key][]byte, key Key, v interface{}) (bool, error) {
	b, ok := snapshot[key]
	if !ok || len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, err
	}
	return true, nil
}
