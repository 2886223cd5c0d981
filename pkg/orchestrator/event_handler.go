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

package orchestrator

import (
	"context"

	"github.com/digisign/playercore/pkg/events"
)

// EventHandler is the single switch-on-trigger-kind dispatcher the
// Collection Loop's event-loop goroutine drives every trigger through.
// Splitting it out from Core keeps the enqueue-only callback surface
// (core.go) separate from the state-mutating dispatch logic.
type EventHandler struct {
	core *Core
}

// Handle dispatches one trigger. It runs exclusively on Core.Run's
// goroutine, so every branch may freely read/write Selector, Processor,
// Evaluator, Tracker, and Limiter state without additional locking.
func (h *EventHandler) Handle(ctx context.Context, t trigger) {
	c := h.core

	switch t.kind {
	case triggerPeriodic, triggerCollectNow:
		if err := c.RunCycle(ctx, reasonFor(t.kind)); err != nil {
			c.log.Warnw("collection cycle failed", "error", err)
		}
		c.scheduleNextCycle()

	case triggerFaultTick:
		c.bus.Publish(events.New(events.TypeSubmitFaultsRequest, c.clock.Now()))
		c.scheduleFaultTick()

	case triggerPushChangeLayout:
		c.selector.ChangeLayout(t.layoutID, t.duration, t.changeMode)

	case triggerPushOverlayLayout:
		c.selector.OverlayLayout(t.layoutID, t.duration)

	case triggerPushRevert:
		c.selector.RevertToSchedule()

	case triggerPushPurgeAll:
		evt := events.New(events.TypePurgeRequest, c.clock.Now())
		evt.Reason = "all"
		c.bus.Publish(evt)

	case triggerPushCommand:
		c.processor.ExecuteCommand(ctx, t.code, c.commands)

	case triggerPushTrigger:
		sched := c.evaluator.Get()
		c.processor.HandleTrigger(t.code, sched.Actions, func(layoutID string) {
			c.selector.ChangeLayout(layoutID, 0, "")
		})

	case triggerPushScreenshot:
		c.bus.Publish(events.New(events.TypeScreenshotRequest, c.clock.Now()))

	case triggerPushGeoReport:
		c.bus.Publish(events.New(events.TypeGeoReportRequest, c.clock.Now()))

	case triggerPushDataConnectorRefresh:
		evt := events.New(events.TypeDataConnectorRefreshRequest, c.clock.Now())
		evt.Code = t.connectorID
		c.bus.Publish(evt)

	case triggerAdvanceNext:
		c.selector.AdvanceNext(c.syncEventLayouts(), c.delegateSyncEvent)

	case triggerAdvancePrevious:
		c.selector.AdvancePrevious()

	case triggerRenderFailure:
		c.tracker.ReportFailure(t.layoutID, t.reason)

	case triggerRenderSuccess:
		c.tracker.ReportSuccess(t.layoutID)
		c.limiter.RecordPlay(t.layoutID)

	case triggerSetPending:
		c.selector.SetPending(t.layoutID, t.requiredIDs)

	case triggerMediaReady:
		c.selector.NotifyMediaReady(t.mediaID)
	}
}

func reasonFor(kind triggerKind) string {
	if kind == triggerCollectNow {
		return "collectNow"
	}
	return "periodic"
}

// syncEventLayouts returns the set of currently-scheduled layout files
// flagged SyncEvent, so AdvanceNext knows which candidates require
// multi-display sync-group delegation before they can be chosen.
func (c *Core) syncEventLayouts() map[string]bool {
	sched := c.evaluator.Get()
	out := map[string]bool{}
	for _, l := range sched.Layouts {
		if l.SyncEvent {
			out[l.File] = true
		}
	}
	for _, camp := range sched.Campaigns {
		for _, l := range camp.Layouts {
			if l.SyncEvent {
				out[l.File] = true
			}
		}
	}
	return out
}

// delegateSyncEvent would hand a sync-group-gated layout change off to
// the sync publisher/subscriber so every display in the group switches
// together; multi-display sync-group coordination is out of scope here,
// so it always declines, letting the Selector fall back to choosing the
// layout locally.
func (c *Core) delegateSyncEvent(layoutID string) bool {
	return false
}
