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

// Package schedule implements the pure Schedule Evaluator:
// given a schedule and a point in time, determine which layouts are
// active.
package schedule

import "time"

// Criterion is a single predicate clause, ANDed with its siblings.
type Criterion struct {
	Metric    string
	Condition string
	Type      string
	Value     string
}

// GeoLocation is a parsed "lat,lng[,radiusMeters]" geo-fence.
type GeoLocation struct {
	Lat      float64
	Lng      float64
	RadiusM  float64
}

// Layout is the intersection of ScheduledLayout/Campaign-layout fields
// relevant to evaluation.
type Layout struct {
	File                string
	Priority            int
	FromDT, ToDT         *time.Time
	RecurrenceType       string // "Week" or ""
	RecurrenceRepeatsOn  []time.Weekday
	RecurrenceRange      *time.Time
	MaxPlaysPerHour      int
	Criteria             []Criterion
	IsGeoAware           bool
	GeoLocation          *GeoLocation
	SyncEvent            bool
	ShareOfVoice         int
	Dependants           []string
}

// Campaign is an ordered group of Layouts sharing a time window/priority.
type Campaign struct {
	ID                  string
	Priority            int
	FromDT, ToDT        *time.Time
	RecurrenceType      string
	RecurrenceRepeatsOn []time.Weekday
	RecurrenceRange     *time.Time
	Criteria            []Criterion
	IsGeoAware          bool
	GeoLocation         *GeoLocation
	Layouts             []Layout
}

// Action is a trigger-code-driven navigation/command entry.
type Action struct {
	TriggerCode string
	ActionType  string // navLayout | navWidget | command
	LayoutCode  string
	Payload     string
	CommandCode string
}

// ScheduledCommand is a one-shot, date-gated command.
type ScheduledCommand struct {
	Code string
	Date time.Time
}

// DataConnector is a URL/key/interval triple for real-time data polling.
type DataConnector struct {
	URL      string
	Key      string
	Interval time.Duration
}

// Schedule is the full per-cycle schedule received from the CMS.
type Schedule struct {
	Default        string
	Layouts        []Layout
	Campaigns      []Campaign
	Actions        []Action
	Commands       []ScheduledCommand
	DataConnectors []DataConnector
	Dependants     []string
}

// PlayerLocation is the display's last known coordinates, if any.
type PlayerLocation struct {
	Known    bool
	Lat, Lng float64
}

// WeatherSnapshot holds the metrics a criterion predicate may reference.
type WeatherSnapshot struct {
	Known       bool
	TempC       float64
	Humidity    float64
	WindSpeed   float64
	Condition   string
	CloudCover  float64
}

// EvalContext bundles the ambient data criteria/geo-fencing may need.
type EvalContext struct {
	PlayerLocation     PlayerLocation
	DisplayProperties  map[string]string
	Weather            WeatherSnapshot
	// PlayHistory supplies the rate-limit view; nil disables rate limiting.
	// AllLayoutsAt never consults it.
	PlayHistory RateLimitView
}

// RateLimitView answers whether a layout may play right now. Implemented
// by pkg/ratelimit.Limiter.
type RateLimitView interface {
	Allowed(layoutFile string, maxPerHour int, now time.Time) bool
}

// ActiveLayout is a time-active candidate with its resolved metadata,
// returned by the evaluator.
type ActiveLayout struct {
	File         string
	Priority     int
	SyncEvent    bool
	ShareOfVoice int
	// CampaignID is non-empty when this layout came from a campaign, so
	// selection can preserve campaign order.
	CampaignID string
}
