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

import "sync"

// Subscriber receives every Event published on a Bus, in emission order.
type Subscriber func(Event)

// Bus fans a single stream of Events out to every registered Subscriber.
// Multiple producers (the collection loop, the push channel, the command
// processor) all call Publish, and every interested consumer (the
// pubsub sink, metrics, status enrichment) is handed the same ordered
// stream.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers sub to receive all future events. The returned
// func removes it.
func (b *Bus) Subscribe(sub Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	idx := len(b.subs) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.subs) {
			b.subs[idx] = nil
		}
	}
}

// Publish delivers evt to every live subscriber, synchronously and in
// registration order. The orchestration core is single-threaded, so
// Publish is called only from the event loop goroutine; any producer
// running on another goroutine (push channel reads) must hand its event
// back into that loop rather than calling Publish directly.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub != nil {
			sub(evt)
		}
	}
}
