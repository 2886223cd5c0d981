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

// Package transport declares the contract the Collection Loop consumes to
// talk to the CMS. The wire protocol itself is out of scope;
// only the method shapes and wire-adjacent data types live here.
package transport

import (
	"context"
	"time"
)

// RegistrationResult is the per-cycle response from registerDisplay.
type RegistrationResult struct {
	Code        string
	DisplayName string
	Tags        []string
	Commands    map[string]CommandEntry
	Settings    map[string]interface{}
	CheckRf       string
	CheckSchedule string
	SyncConfig    *SyncConfig
}

// CommandEntry is one entry of RegistrationResult.Commands.
type CommandEntry struct {
	CommandString string
	Value         string
}

// SyncConfig describes this display's role in a multi-display synchronized
// event group, when present.
type SyncConfig struct {
	SyncGroup           string
	IsLead              bool
	SyncSwitchDelay     time.Duration
	SyncVideoPauseDelay time.Duration
	SyncPublisherPort   int
}

// RequiredFilesResult is the requiredFiles response.
type RequiredFilesResult struct {
	Files []RequiredFile
	Purge []PurgeEntry
}

// RequiredFile is one entry of RequiredFilesResult.Files.
type RequiredFile struct {
	ID         string
	Type       string // media | layout | resource | dependency | widget
	Path       string
	MD5        string
	Size       int64
	Dependants []string
}

// PurgeEntry names a previously-downloaded file to remove.
type PurgeEntry struct {
	ID       string
	StoredAs string
}

// StatusReport is notifyStatus's input.
type StatusReport struct {
	CurrentLayoutID       string
	DeviceName            string
	DisplayName           string
	LastCommandSuccess    bool
	Code                  int // 1, 2, or 3
	LastLayoutChangeTime  time.Time
	Latitude, Longitude   *float64
}

// WeatherSnapshot is the parsed getWeather response.
type WeatherSnapshot struct {
	TempC      float64
	Humidity   float64
	WindSpeed  float64
	Condition  string
	CloudCover float64
}

// Transport is every CMS interaction the Collection Loop depends on. Each
// method is asynchronous (ctx-scoped) and returns a non-nil error on
// failure; the Collection Loop wraps that error as KindTransportFailure.
type Transport interface {
	RegisterDisplay(ctx context.Context) (RegistrationResult, error)
	RequiredFiles(ctx context.Context) (RequiredFilesResult, error)
	Schedule(ctx context.Context) (ScheduleDoc, error)
	NotifyStatus(ctx context.Context, status StatusReport) error
	MediaInventory(ctx context.Context, xml string) error
	BlackList(ctx context.Context, id, kind, reason string) error
	GetWeather(ctx context.Context) (WeatherSnapshot, error)
}

// ScheduleDoc is the wire shape of a schedule response, decoded by the
// caller into pkg/schedule.Schedule. Kept distinct from that package's
// evaluation-oriented Schedule type so the wire contract can evolve (new
// fields, renamed attributes) without touching evaluation logic.
type ScheduleDoc struct {
	Default        string
	Layouts        []ScheduledLayoutDoc
	Campaigns      []CampaignDoc
	Actions        []ActionDoc
	Commands       []ScheduledCommandDoc
	DataConnectors []DataConnectorDoc
	Dependants     []string
}

// ScheduledLayoutDoc is the wire shape of a ScheduledLayout.
type ScheduledLayoutDoc struct {
	File                string
	Priority            int
	FromDT, ToDT         *time.Time
	RecurrenceType      string
	RecurrenceRepeatsOn string // comma-separated ISO days, 1=Monday
	RecurrenceRange     *time.Time
	MaxPlaysPerHour     int
	Criteria            []CriterionDoc
	IsGeoAware          bool
	GeoLocation         string
	SyncEvent           bool
	ShareOfVoice        int
	Dependants          []string
}

// CampaignDoc is the wire shape of a Campaign.
type CampaignDoc struct {
	ID                  string
	Priority            int
	FromDT, ToDT         *time.Time
	RecurrenceType      string
	RecurrenceRepeatsOn string
	RecurrenceRange     *time.Time
	Criteria            []CriterionDoc
	IsGeoAware          bool
	GeoLocation         string
	Layouts             []ScheduledLayoutDoc
}

// CriterionDoc is the wire shape of a criteria predicate clause.
type CriterionDoc struct {
	Metric    string
	Condition string
	Type      string
	Value     string
}

// ActionDoc is the wire shape of a trigger-code action.
type ActionDoc struct {
	TriggerCode string
	ActionType  string
	LayoutCode  string
	Payload     string
	CommandCode string
}

// ScheduledCommandDoc is the wire shape of a one-shot scheduled command.
type ScheduledCommandDoc struct {
	Code string
	Date time.Time
}

// DataConnectorDoc is the wire shape of a real-time data polling source.
type DataConnectorDoc struct {
	URL      string
	Key      string
	Interval time.Duration
}
