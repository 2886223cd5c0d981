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

// Package command implements the Command Processor: scheduled
// commands executed exactly once, on-demand commands dispatched by scheme,
// and trigger-code action dispatch.
package command

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/digisign/playercore/pkg/events"
	"github.com/digisign/playercore/pkg/schedule"
)

// CollectNower is invoked when a scheduled "collectNow" command fires, so
// the Collection Loop can enqueue an immediate cycle without re-entering
// itself from inside the command processor.
type CollectNower interface {
	RequestCollectNow()
}

// Processor tracks exactly-once execution of scheduled commands and
// dispatches on-demand commands and trigger actions.
type Processor struct {
	log    *zap.SugaredLogger
	clock  clockwork.Clock
	bus    *events.Bus
	client *http.Client
	notify CollectNower

	executed map[string]bool
	lastCode   string
	lastResult bool
}

// New builds a Processor. client may be nil, in which case http.DefaultClient
// is used.
func New(log *zap.SugaredLogger, clock clockwork.Clock, bus *events.Bus, client *http.Client, notify CollectNower) *Processor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Processor{
		log:      log,
		clock:    clock,
		bus:      bus,
		client:   client,
		notify:   notify,
		executed: map[string]bool{},
	}
}

// RunScheduled walks the schedule's commands array once per cycle,
// executing any not yet executed whose date has passed.
func (p *Processor) RunScheduled(commands []schedule.ScheduledCommand) {
	now := p.clock.Now()
	for _, cmd := range commands {
		if cmd.Date.IsZero() {
			continue
		}
		key := cmd.Code + "|" + cmd.Date.Format(time.RFC3339)
		if p.executed[key] {
			continue
		}
		if now.Before(cmd.Date) {
			continue
		}
		p.executed[key] = true

		if cmd.Code == "collectNow" {
			if p.notify != nil {
				p.notify.RequestCollectNow()
			}
			continue
		}

		evt := events.New(events.TypeScheduledCommand, now)
		evt.Code = cmd.Code
		evt.Date = cmd.Date
		p.bus.Publish(evt)
	}
}

// CommandSpec is a resolved entry from the schedule's commands map: either
// a structured commandString or a plain value, syntax
// "<scheme>|<payload>[|<contentType>]".
type CommandSpec struct {
	CommandString string
	Value         string
}

// ExecuteCommand resolves an on-demand command: look up code in
// commands, parse its scheme, and dispatch.
func (p *Processor) ExecuteCommand(ctx context.Context, code string, commands map[string]CommandSpec) {
	spec, ok := commands[code]
	if !ok {
		p.emitResult(code, false, "Unknown command")
		return
	}

	raw := spec.CommandString
	if raw == "" {
		raw = spec.Value
	}
	scheme, payload, contentType := parseCommandString(raw)

	p.lastCode = code
	switch scheme {
	case "http":
		p.executeHTTP(ctx, code, payload, contentType)
	default:
		evt := events.New(events.TypeExecuteNativeCommand, p.clock.Now())
		evt.Code = code
		evt.CommandString = raw
		p.bus.Publish(evt)
		p.lastResult = true
	}
}

func (p *Processor) executeHTTP(ctx context.Context, code, url, contentType string) {
	if contentType == "" {
		contentType = "application/json"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(nil))
	if err != nil {
		p.emitResult(code, false, err.Error())
		return
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Correlation-ID", uuid.NewString())

	resp, err := p.client.Do(req)
	if err != nil {
		p.emitResult(code, false, err.Error())
		return
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	evt := events.New(events.TypeCommandResult, p.clock.Now())
	evt.Code = code
	evt.Success = success
	evt.HTTPStatus = resp.StatusCode
	p.bus.Publish(evt)
	p.lastResult = success
}

func (p *Processor) emitResult(code string, success bool, reason string) {
	evt := events.New(events.TypeCommandResult, p.clock.Now())
	evt.Code = code
	evt.Success = success
	evt.Reason = reason
	p.bus.Publish(evt)
	p.lastCode, p.lastResult = code, success
}

// ResetExecuted clears the exactly-once ledger. Called whenever a new
// schedule is adopted.
func (p *Processor) ResetExecuted() {
	p.executed = map[string]bool{}
}

// LastOutcome returns the most recently executed command's code and
// success flag, for status-reporting enrichment.
func (p *Processor) LastOutcome() (code string, success bool) {
	return p.lastCode, p.lastResult
}

// parseCommandString splits "<scheme>|<payload>[|<contentType>]".
func parseCommandString(raw string) (scheme, payload, contentType string) {
	parts := strings.SplitN(raw, "|", 3)
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2]
	case 2:
		return parts[0], parts[1], ""
	case 1:
		return "", parts[0], ""
	default:
		return "", "", ""
	}
}

// HandleTrigger dispatches a scheduled trigger: find the action
// bound to code and switch on its type.
func (p *Processor) HandleTrigger(code string, actions []schedule.Action, changeLayout func(layoutID string)) {
	var action *schedule.Action
	for i := range actions {
		if actions[i].TriggerCode == code {
			action = &actions[i]
			break
		}
	}
	if action == nil {
		if p.log != nil {
			p.log.Warnw("trigger fired with no bound action", "code", code)
		}
		return
	}

	switch action.ActionType {
	case "navLayout", "navigateToLayout":
		if changeLayout != nil {
			changeLayout(action.LayoutCode)
		}
	case "navWidget":
		evt := events.New(events.TypeNavigateToWidget, p.clock.Now())
		evt.Code = action.Payload
		p.bus.Publish(evt)
	case "command":
		evt := events.New(events.TypeExecuteCommand, p.clock.Now())
		evt.Code = action.CommandCode
		p.bus.Publish(evt)
	default:
		if p.log != nil {
			p.log.Warnw("unknown trigger action type", "code", code, "actionType", action.ActionType)
		}
	}
}

// NewCommandSpec builds a CommandSpec; exported for callers constructing
// the commands map from the schedule payload.
func NewCommandSpec(commandString, value string) CommandSpec {
	return CommandSpec{CommandString: commandString, Value: value}
}
