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

package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToAllSubscribers(t *testing.T) {
	b := NewBus()
	var a, c []Event
	b.Subscribe(func(e Event) { a = append(a, e) })
	unsub := b.Subscribe(func(e Event) { c = append(c, e) })

	b.Publish(New(TypeCollectionStart, time.Now()))
	unsub()
	b.Publish(New(TypeCollectionComplete, time.Now()))

	require.Len(t, a, 2)
	require.Len(t, c, 1)
	assert.Equal(t, TypeCollectionStart, c[0].Type)
	assert.Equal(t, TypeCollectionComplete, a[1].Type)
}
