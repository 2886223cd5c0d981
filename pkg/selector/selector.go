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

// Package selector implements the Layout Selector: the
// round-robin rotation state machine, override stack, and pending-layout
// gating that decides what the Renderer should be showing.
package selector

import (
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/digisign/playercore/pkg/events"
)

// Blacklisted reports whether a layout file is currently blacklisted.
// Satisfied by *blacklist.Tracker.
type Blacklisted interface {
	IsBlacklisted(layoutID string) bool
}

// OverrideType distinguishes a full change from a transient overlay.
type OverrideType string

const (
	OverrideChange  OverrideType = "change"
	OverrideOverlay OverrideType = "overlay"
)

// Override is the active out-of-schedule layout, if any.
type Override struct {
	LayoutID   string
	Type       OverrideType
	ChangeMode string
}

// Selector holds the rotation cursor, current layout, active override,
// and pending-layout set described in .
type Selector struct {
	log   *zap.SugaredLogger
	clock clockwork.Clock
	bus   *events.Bus
	bl    Blacklisted

	layoutFiles []string
	index       int

	currentLayoutID string
	override        *Override
	revertTimer      clockwork.Timer

	pending *orderedmap.OrderedMap[string, []string]

	defaultLayoutID string
}

// New builds a Selector. bl may be nil (treated as nothing blacklisted).
func New(log *zap.SugaredLogger, clock clockwork.Clock, bus *events.Bus, bl Blacklisted) *Selector {
	return &Selector{
		log:     log,
		clock:   clock,
		bus:     bus,
		bl:      bl,
		pending: orderedmap.NewOrderedMap[string, []string](),
	}
}

func (s *Selector) isBlacklisted(id string) bool {
	return s.bl != nil && s.bl.IsBlacklisted(id)
}

func (s *Selector) emit(typ events.Type, layoutID string) {
	evt := events.New(typ, s.clock.Now())
	evt.LayoutID = layoutID
	s.bus.Publish(evt)
}

// firstEligible returns the index of the first non-blacklisted entry in
// layoutFiles starting at 0, or -1 if every entry is blacklisted.
func (s *Selector) firstEligible(layoutFiles []string) int {
	for i, id := range layoutFiles {
		if !s.isBlacklisted(id) {
			return i
		}
	}
	return -1
}

// Evaluate runs the cycle-evaluation decision tree against
// the layouts currently scheduled, with defaultLayoutID used as the
// fallback when nothing is scheduled.
func (s *Selector) Evaluate(layoutFiles []string, defaultLayoutID string) {
	s.layoutFiles = layoutFiles
	s.defaultLayoutID = defaultLayoutID

	if len(layoutFiles) == 0 {
		if s.currentLayoutID != "" && defaultLayoutID != "" {
			s.currentLayoutID = ""
			s.index = 0
			s.emit(events.TypeLayoutPrepareRequest, defaultLayoutID)
			return
		}
		s.emit(events.TypeNoLayoutsScheduled, "")
		return
	}

	if s.currentLayoutID != "" {
		if idx := indexOf(layoutFiles, s.currentLayoutID); idx >= 0 {
			s.index = idx
			s.emit(events.TypeLayoutAlreadyPlaying, s.currentLayoutID)
			return
		}
	}

	idx := s.firstEligible(layoutFiles)
	if idx < 0 {
		idx = 0
	}
	s.index = idx
	s.currentLayoutID = layoutFiles[idx]
	s.emit(events.TypeLayoutPrepareRequest, s.currentLayoutID)
}

// AdvanceNext advances round-robin rotation when the Renderer reports a
// layout finished playing.
func (s *Selector) AdvanceNext(syncEventLayouts map[string]bool, delegateSync func(layoutID string) bool) {
	if s.override != nil {
		return
	}
	if len(s.layoutFiles) == 0 {
		if s.currentLayoutID != "" {
			s.emit(events.TypeLayoutPrepareRequest, s.currentLayoutID)
		} else {
			s.emit(events.TypeNoLayoutsScheduled, "")
		}
		return
	}

	n := len(s.layoutFiles)
	next := s.index
	chosen := ""
	for i := 0; i < n; i++ {
		next = (next + 1) % n
		candidate := s.layoutFiles[next]
		if !s.isBlacklisted(candidate) {
			chosen = candidate
			break
		}
	}
	if chosen == "" {
		// Every entry blacklisted: replay current.
		chosen = s.currentLayoutID
		next = s.index
	}
	s.index = next

	if chosen == s.currentLayoutID {
		s.currentLayoutID = ""
	}

	if syncEventLayouts[chosen] && delegateSync != nil {
		if delegateSync(chosen) {
			return
		}
	}

	s.currentLayoutID = chosen
	s.emit(events.TypeLayoutPrepareRequest, chosen)
}

// AdvancePrevious is AdvanceNext's symmetrical counterpart for manual
// navigation; it never consults the sync delegate.
func (s *Selector) AdvancePrevious() {
	if s.override != nil {
		return
	}
	if len(s.layoutFiles) == 0 {
		if s.currentLayoutID != "" {
			s.emit(events.TypeLayoutPrepareRequest, s.currentLayoutID)
		} else {
			s.emit(events.TypeNoLayoutsScheduled, "")
		}
		return
	}

	n := len(s.layoutFiles)
	prev := s.index
	chosen := ""
	for i := 0; i < n; i++ {
		prev = (prev - 1 + n) % n
		candidate := s.layoutFiles[prev]
		if !s.isBlacklisted(candidate) {
			chosen = candidate
			break
		}
	}
	if chosen == "" {
		chosen = s.currentLayoutID
		prev = s.index
	}
	s.index = prev
	if chosen == s.currentLayoutID {
		s.currentLayoutID = ""
	}
	s.currentLayoutID = chosen
	s.emit(events.TypeLayoutPrepareRequest, chosen)
}

// ChangeLayout commands an immediate layout switch, overriding the
// schedule. duration is how long until the automatic revert; 0 means no
// auto-revert.
func (s *Selector) ChangeLayout(layoutID string, duration time.Duration, changeMode string) {
	if s.revertTimer != nil {
		s.revertTimer.Stop()
		s.revertTimer = nil
	}
	s.override = &Override{LayoutID: layoutID, Type: OverrideChange, ChangeMode: changeMode}
	s.currentLayoutID = ""
	s.emit(events.TypeLayoutPrepareRequest, layoutID)

	if duration > 0 {
		s.revertTimer = s.clock.AfterFunc(duration, func() {
			s.RevertToSchedule()
		})
	}
}

// OverlayLayout requests layoutID be shown as an overlay above whatever
// the schedule or an active override is already playing.
func (s *Selector) OverlayLayout(layoutID string, duration time.Duration) {
	s.override = &Override{LayoutID: layoutID, Type: OverrideOverlay}
	s.emit(events.TypeOverlayLayoutRequest, layoutID)

	if duration > 0 {
		if s.revertTimer != nil {
			s.revertTimer.Stop()
		}
		s.revertTimer = s.clock.AfterFunc(duration, func() {
			s.RevertToSchedule()
		})
	}
}

// RevertToSchedule clears any active override and re-evaluates the
// schedule from scratch.
func (s *Selector) RevertToSchedule() {
	if s.revertTimer != nil {
		s.revertTimer.Stop()
		s.revertTimer = nil
	}
	s.override = nil
	s.currentLayoutID = ""
	s.emit(events.TypeRevertToSchedule, "")
	s.Evaluate(s.layoutFiles, s.defaultLayoutID)
}

// Override returns the active override, or nil.
func (s *Selector) Override() *Override {
	return s.override
}

// CurrentLayoutID returns what the Renderer is believed to be showing.
func (s *Selector) CurrentLayoutID() string {
	return s.currentLayoutID
}

// SetPending records that the Renderer reports layoutID
// is waiting on requiredMediaIDs before it can play.
func (s *Selector) SetPending(layoutID string, requiredMediaIDs []string) {
	s.pending.Set(layoutID, requiredMediaIDs)
}

// NotifyMediaReady fans out when the Cache
// reports a file ready: every pending layout whose required set
// contains id gets a CheckPendingLayout event, and is then removed from
// the pending set.
func (s *Selector) NotifyMediaReady(id string) {
	var ready []string
	for el := s.pending.Front(); el != nil; el = el.Next() {
		for _, req := range el.Value {
			if req == id {
				ready = append(ready, el.Key)
				break
			}
		}
	}
	for _, layoutID := range ready {
		required, _ := s.pending.Get(layoutID)
		evt := events.New(events.TypeCheckPendingLayout, s.clock.Now())
		evt.LayoutID = layoutID
		evt.RequiredIDs = required
		s.bus.Publish(evt)
		s.pending.Delete(layoutID)
	}
}

func indexOf(haystack []string, needle string) int {
	for i, v := range haystack {
		if v == needle {
			return i
		}
	}
	return -1
}
