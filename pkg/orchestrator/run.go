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
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/digisign/playercore/pkg/command"
	"github.com/digisign/playercore/pkg/config"
	"github.com/digisign/playercore/pkg/coreerr"
	"github.com/digisign/playercore/pkg/events"
	"github.com/digisign/playercore/pkg/metrics"
	"github.com/digisign/playercore/pkg/offlinestore"
	"github.com/digisign/playercore/pkg/schedule"
	"github.com/digisign/playercore/pkg/transport"
)

// RunCycle runs one collection cycle, coalescing any concurrent callers
// (periodic timer, collectNow trigger, a manual kick) onto a single
// in-flight attempt rather than racing two cycles against each other.
// singleflight replaces a simple bool guard for this mutual exclusion.
func (c *Core) RunCycle(ctx context.Context, reason string) error {
	_, err, _ := c.sf.Do("cycle", func() (interface{}, error) {
		return nil, c.runCycleLocked(ctx, reason)
	})
	return err
}

func (c *Core) runCycleLocked(ctx context.Context, reason string) error {
	start := c.clock.Now()
	c.bus.Publish(events.New(events.TypeCollectionStart, start))

	reg, err := c.transport.RegisterDisplay(ctx)
	if err != nil {
		return c.enterOfflineOrFail(ctx, coreerr.New(coreerr.KindTransportFailure, err), start)
	}
	c.status.Offline = false
	c.bus.Publish(events.New(events.TypeRegisterComplete, c.clock.Now()))
	_ = offlinestore.SaveJSON(c.store, offlinestore.KeySettings, reg.Settings)

	c.settings = config.DecodeSettings(reg.Settings)
	c.settings.SyncConfig = reg.SyncConfig
	config.ApplyTags(&c.settings, reg.Tags)
	c.commands = buildCommandSpecs(reg.Commands)
	c.applyLogLevel()

	if c.settings.XMRWebSocketAddress != "" {
		if !c.pushStarted {
			c.push.Start(ctx, c.settings.XMRWebSocketAddress, c.settings.XMRCmsKey)
			c.pushStarted = true
		} else {
			c.push.EnsureConnected(ctx)
		}
	}

	scheduleChanged := c.status.needToFetchSchedule(reg.CheckSchedule)
	filesChanged := c.status.needToFetchRequiredFiles(reg.CheckRf)

	var rfResult transport.RequiredFilesResult
	var scheduleDoc transport.ScheduleDoc
	var weather transport.WeatherSnapshot
	var rfErr, scheduleErr error

	// Each goroutine records its own failure instead of returning it to
	// the group, so a requiredFiles failure doesn't cancel an in-flight
	// schedule fetch (or vice versa): both outcomes are collected and
	// aggregated below rather than racing to report only the first.
	g, gctx := errgroup.WithContext(ctx)
	if filesChanged {
		g.Go(func() error {
			res, err := c.transport.RequiredFiles(gctx)
			if err != nil {
				rfErr = coreerr.New(coreerr.KindTransportFailure, err)
				return nil
			}
			rfResult = res
			return nil
		})
	} else {
		metrics.CRCSkips.WithLabelValues("requiredFiles").Inc()
	}
	if scheduleChanged {
		g.Go(func() error {
			doc, err := c.transport.Schedule(gctx)
			if err != nil {
				scheduleErr = coreerr.New(coreerr.KindTransportFailure, err)
				return nil
			}
			scheduleDoc = doc
			return nil
		})
	} else {
		metrics.CRCSkips.WithLabelValues("schedule").Inc()
	}
	g.Go(func() error {
		w, err := c.transport.GetWeather(gctx)
		if err != nil {
			// Swallowed per the WeatherFailure policy: weather only
			// narrows geo/criteria evaluation, never blocks a cycle.
			if c.log != nil {
				c.log.Warnw("weather fetch failed", "error", err)
			}
			return nil
		}
		weather = w
		return nil
	})
	_ = g.Wait()

	if fetchErr := coreerr.Append(rfErr, scheduleErr); fetchErr != nil {
		if c.log != nil {
			for _, e := range coreerr.Errors(fetchErr) {
				c.log.Warnw("collection fetch failed", "error", e)
			}
		}
		return c.enterOfflineOrFail(ctx, fetchErr, start)
	}

	if filesChanged {
		c.bus.Publish(events.New(events.TypeFilesReceived, c.clock.Now()))
		if ids := purgeIDs(rfResult.Purge); len(ids) > 0 {
			pevt := events.New(events.TypePurgeRequest, c.clock.Now())
			pevt.RequiredIDs = ids
			c.bus.Publish(pevt)
		}
		_ = offlinestore.SaveJSON(c.store, offlinestore.KeyRequiredFiles, rfResult)
		c.tracker.Reset()

		if xmlBody := buildMediaInventoryXML(rfResult.Files); xmlBody != "" {
			if err := c.transport.MediaInventory(ctx, xmlBody); err != nil {
				if c.log != nil {
					c.log.Warnw("media inventory submission failed", "error", err)
				}
			}
		}

		if c.settings.DownloadWindowStart != "" && !withinDownloadWindow(c.clock.Now(), c.settings.DownloadWindowStart, c.settings.DownloadWindowEnd) {
			if c.log != nil {
				c.log.Infow("outside download window, deferring file fetch")
			}
		} else {
			devt := events.New(events.TypeDownloadRequest, c.clock.Now())
			devt.RequiredIDs = fileIDsOf(rfResult.Files)
			c.bus.Publish(devt)
		}
	}

	if scheduleChanged {
		sched := convertScheduleDoc(scheduleDoc)
		c.evaluator.Set(sched)
		c.processor.ResetExecuted()
		c.bus.Publish(events.New(events.TypeScheduleReceived, c.clock.Now()))
		_ = offlinestore.SaveJSON(c.store, offlinestore.KeySchedule, scheduleDoc)
	}

	evalCtx := c.evalContext()
	evalCtx.Weather = convertWeather(weather)
	now := c.clock.Now()
	active := c.evaluator.LayoutsNow(now, evalCtx)

	sched := c.evaluator.Get()
	c.processor.RunScheduled(sched.Commands)

	layoutsEvt := events.New(events.TypeLayoutsScheduled, now)
	layoutsEvt.RequiredIDs = filesOf(active)
	c.bus.Publish(layoutsEvt)
	c.selector.Evaluate(filesOf(active), sched.Default)

	status := transport.StatusReport{
		CurrentLayoutID: c.selector.CurrentLayoutID(),
		DeviceName:      c.opts.PlayerName,
		DisplayName:     reg.DisplayName,
		Code:            1,
	}
	if code, success := c.processor.LastOutcome(); code != "" {
		status.LastCommandSuccess = success
	}
	if err := c.transport.NotifyStatus(ctx, status); err != nil {
		nerr := coreerr.New(coreerr.KindNotifyStatusFailure, err)
		c.bus.Publish(events.Event{Type: events.TypeStatusNotifyFailed, At: c.clock.Now(), Err: nerr})
	}

	end := c.clock.Now()
	c.status.recordCycle(reg.CheckRf, reg.CheckSchedule, start, end, nil)
	metrics.RecordStageDuration("cycle", nil, start)
	c.bus.Publish(events.New(events.TypeCollectionComplete, end))
	return nil
}

// enterOfflineOrFail implements the offline-mode branch of the
// Collection Loop: a TransportFailure drops the display into offline
// mode if a cached schedule exists, replaying it from the OfflineStore;
// otherwise the cycle fails outright (OfflineNoCache).
func (c *Core) enterOfflineOrFail(ctx context.Context, cause error, start time.Time) error {
	if !c.store.HasCachedData() {
		err := coreerr.New(coreerr.KindOfflineNoCache, cause)
		c.status.recordCycle(c.status.LastCheckRf, c.status.LastCheckSchedule, start, c.clock.Now(), err)
		c.bus.Publish(events.Event{Type: events.TypeCollectionError, At: c.clock.Now(), Err: err})
		return err
	}

	wasOffline := c.status.Offline
	c.status.Offline = true

	snapshot, loadErr := c.store.Load()
	if loadErr == nil {
		var doc transport.ScheduleDoc
		if ok, _ := offlinestore.LoadJSON(snapshot, offlinestore.KeySchedule, &doc); ok {
			c.evaluator.Set(convertScheduleDoc(doc))
		}
		var raw map[string]interface{}
		if ok, _ := offlinestore.LoadJSON(snapshot, offlinestore.KeySettings, &raw); ok {
			c.settings = config.DecodeSettings(raw)
			c.applyLogLevel()
		}
	}

	now := c.clock.Now()
	active := c.evaluator.LayoutsNow(now, c.evalContext())
	sched := c.evaluator.Get()
	c.selector.Evaluate(filesOf(active), sched.Default)

	if !wasOffline {
		evt := events.New(events.TypeOfflineMode, now)
		evt.Success = true
		c.bus.Publish(evt)
	}

	end := c.clock.Now()
	c.status.recordCycle(c.status.LastCheckRf, c.status.LastCheckSchedule, start, end, cause)
	c.bus.Publish(events.Event{Type: events.TypeCollectionError, At: end, Err: cause})
	c.bus.Publish(events.New(events.TypeCollectionComplete, end))
	return nil
}

func filesOf(active []schedule.ActiveLayout) []string {
	out := make([]string, 0, len(active))
	for _, a := range active {
		out = append(out, a.File)
	}
	return out
}

func fileIDsOf(files []transport.RequiredFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}
	return out
}

func purgeIDs(purge []transport.PurgeEntry) []string {
	out := make([]string, 0, len(purge))
	for _, p := range purge {
		out = append(out, p.ID)
	}
	return out
}

// applyLogLevel pushes Settings.LogLevel into the AtomicLevel supplied at
// construction, if any. An empty or unrecognized level leaves the current
// level untouched.
func (c *Core) applyLogLevel() {
	if c.opts.LogLevel == nil || c.settings.LogLevel == "" {
		return
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.settings.LogLevel)); err != nil {
		if c.log != nil {
			c.log.Warnw("unrecognized log level in settings", "level", c.settings.LogLevel)
		}
		return
	}
	c.opts.LogLevel.SetLevel(lvl)
}

func buildCommandSpecs(entries map[string]transport.CommandEntry) map[string]command.CommandSpec {
	out := make(map[string]command.CommandSpec, len(entries))
	for code, e := range entries {
		out[code] = command.NewCommandSpec(e.CommandString, e.Value)
	}
	return out
}

// buildMediaInventoryXML renders the mediaInventory submission body: one
// <file> element per locally-known file, reporting completion and md5.
// An empty files list yields an empty string, signalling the caller to
// skip the submission.
func buildMediaInventoryXML(files []transport.RequiredFile) string {
	if len(files) == 0 {
		return ""
	}
	type fileElem struct {
		Type     string `xml:"type,attr"`
		ID       string `xml:"id,attr"`
		Complete int    `xml:"complete,attr"`
		MD5      string `xml:"md5,attr"`
	}
	type inventory struct {
		XMLName xml.Name   `xml:"files"`
		Files   []fileElem `xml:"file"`
	}
	inv := inventory{Files: make([]fileElem, 0, len(files))}
	for _, f := range files {
		inv.Files = append(inv.Files, fileElem{Type: f.Type, ID: f.ID, Complete: 1, MD5: f.MD5})
	}
	b, err := xml.Marshal(inv)
	if err != nil {
		return ""
	}
	return string(b)
}

// withinDownloadWindow compares now's time-of-day against a "HH:MM" start
// and end, wrapping past midnight the same way the Schedule Evaluator's
// recurrence window does.
func withinDownloadWindow(now time.Time, start, end string) bool {
	s, errS := time.Parse("15:04", start)
	e, errE := time.Parse("15:04", end)
	if errS != nil || errE != nil {
		return true
	}
	toSeconds := func(t time.Time) int { return t.Hour()*3600 + t.Minute()*60 }
	f, t, n := toSeconds(s), toSeconds(e), now.Hour()*3600+now.Minute()*60+now.Second()
	if f <= t {
		return n >= f && n <= t
	}
	return n >= f || n <= t
}

// convertScheduleDoc maps the wire-level transport.ScheduleDoc onto the
// evaluation-oriented schedule.Schedule, parsing the comma-separated
// weekday list and "lat,lng[,radiusMeters]" geo-fence strings along the
// way.
func convertScheduleDoc(doc transport.ScheduleDoc) schedule.Schedule {
	out := schedule.Schedule{
		Default:    doc.Default,
		Dependants: doc.Dependants,
	}
	for _, l := range doc.Layouts {
		out.Layouts = append(out.Layouts, convertLayoutDoc(l))
	}
	for _, cd := range doc.Campaigns {
		camp := schedule.Campaign{
			ID:                  cd.ID,
			Priority:            cd.Priority,
			FromDT:              cd.FromDT,
			ToDT:                cd.ToDT,
			RecurrenceType:      cd.RecurrenceType,
			RecurrenceRepeatsOn: parseRepeatsOn(cd.RecurrenceRepeatsOn),
			RecurrenceRange:     cd.RecurrenceRange,
			Criteria:            convertCriteria(cd.Criteria),
			IsGeoAware:          cd.IsGeoAware,
			GeoLocation:         parseGeoLocation(cd.GeoLocation),
		}
		for _, l := range cd.Layouts {
			camp.Layouts = append(camp.Layouts, convertLayoutDoc(l))
		}
		out.Campaigns = append(out.Campaigns, camp)
	}
	for _, a := range doc.Actions {
		out.Actions = append(out.Actions, schedule.Action{
			TriggerCode: a.TriggerCode,
			ActionType:  a.ActionType,
			LayoutCode:  a.LayoutCode,
			Payload:     a.Payload,
			CommandCode: a.CommandCode,
		})
	}
	for _, cmd := range doc.Commands {
		out.Commands = append(out.Commands, schedule.ScheduledCommand{Code: cmd.Code, Date: cmd.Date})
	}
	for _, dc := range doc.DataConnectors {
		out.DataConnectors = append(out.DataConnectors, schedule.DataConnector{URL: dc.URL, Key: dc.Key, Interval: dc.Interval})
	}
	return out
}

func convertLayoutDoc(l transport.ScheduledLayoutDoc) schedule.Layout {
	return schedule.Layout{
		File:                l.File,
		Priority:            l.Priority,
		FromDT:              l.FromDT,
		ToDT:                l.ToDT,
		RecurrenceType:      l.RecurrenceType,
		RecurrenceRepeatsOn: parseRepeatsOn(l.RecurrenceRepeatsOn),
		RecurrenceRange:     l.RecurrenceRange,
		MaxPlaysPerHour:     l.MaxPlaysPerHour,
		Criteria:            convertCriteria(l.Criteria),
		IsGeoAware:          l.IsGeoAware,
		GeoLocation:         parseGeoLocation(l.GeoLocation),
		SyncEvent:           l.SyncEvent,
		ShareOfVoice:        l.ShareOfVoice,
		Dependants:          l.Dependants,
	}
}

func convertCriteria(docs []transport.CriterionDoc) []schedule.Criterion {
	out := make([]schedule.Criterion, 0, len(docs))
	for _, d := range docs {
		out = append(out, schedule.Criterion{Metric: d.Metric, Condition: d.Condition, Type: d.Type, Value: d.Value})
	}
	return out
}

func convertWeather(w transport.WeatherSnapshot) schedule.WeatherSnapshot {
	if w == (transport.WeatherSnapshot{}) {
		return schedule.WeatherSnapshot{}
	}
	return schedule.WeatherSnapshot{
		Known:      true,
		TempC:      w.TempC,
		Humidity:   w.Humidity,
		WindSpeed:  w.WindSpeed,
		Condition:  w.Condition,
		CloudCover: w.CloudCover,
	}
}

// isoWeekdays maps the ISO weekday numbers the CMS sends (1=Monday,
// 7=Sunday) onto time.Weekday (0=Sunday..6=Saturday).
var isoWeekdays = map[int]time.Weekday{
	1: time.Monday, 2: time.Tuesday, 3: time.Wednesday, 4: time.Thursday,
	5: time.Friday, 6: time.Saturday, 7: time.Sunday,
}

func parseRepeatsOn(csv string) []time.Weekday {
	if csv == "" {
		return nil
	}
	var out []time.Weekday
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if d, ok := isoWeekdays[n]; ok {
			out = append(out, d)
		}
	}
	return out
}

// parseGeoLocation parses "lat,lng[,radiusMeters]", defaulting the radius
// to 500m when omitted.
func parseGeoLocation(s string) *schedule.GeoLocation {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return nil
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	radius := 500.0
	if len(parts) >= 3 {
		if r, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err == nil {
			radius = r
		}
	}
	return &schedule.GeoLocation{Lat: lat, Lng: lng, RadiusM: radius}
}
