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

import "encoding/json"

// inboundMessage is the wire shape of a push frame. The subset of fields
// populated depends on Action; unrecognized actions are logged and
// dropped.
type inboundMessage struct {
	Action          string `json:"action"`
	LayoutID        string `json:"layoutId"`
	DurationSeconds int    `json:"duration"`
	ChangeMode      string `json:"changeMode"`
	Code            string `json:"code"`
	ConnectorID     string `json:"connectorId"`
}

// dispatch decodes payload and routes it to the matching Callbacks method.
// Malformed frames and unknown actions are logged and otherwise ignored;
// a single bad frame must never take down the channel.
func (c *Channel) dispatch(payload []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		if c.log != nil {
			c.log.Warnw("push channel: malformed frame", "error", err)
		}
		return
	}
	if c.cb == nil {
		return
	}

	switch msg.Action {
	case "changeLayout":
		c.cb.OnChangeLayout(msg.LayoutID, msg.DurationSeconds, msg.ChangeMode)
	case "overlayLayout":
		c.cb.OnOverlayLayout(msg.LayoutID, msg.DurationSeconds)
	case "revertToSchedule":
		c.cb.OnRevertToSchedule()
	case "purgeAll":
		c.cb.OnPurgeAll()
	case "command":
		c.cb.OnCommand(msg.Code)
	case "trigger":
		c.cb.OnTrigger(msg.Code)
	case "screenShot", "screenshot":
		c.cb.OnScreenshot()
	case "reportGeoLocation", "geoReport":
		c.cb.OnGeoReport()
	case "dataConnectorRefresh", "triggerDataConnector":
		c.cb.OnDataConnectorRefresh(msg.ConnectorID)
	case "collectNow":
		c.cb.OnCollectNow()
	default:
		if c.log != nil {
			c.log.Warnw("push channel: unknown action", "action", msg.Action)
		}
	}
}
