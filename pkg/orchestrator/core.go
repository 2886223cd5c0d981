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

// Package orchestrator wires the Schedule Evaluator, Blacklist Tracker,
// Rate Limiter, Offline Store, Layout Selector, Command Processor, push
// channel, and Timeline Predictor into the single-threaded Collection
// Loop.
package orchestrator

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/digisign/playercore/pkg/blacklist"
	"github.com/digisign/playercore/pkg/command"
	"github.com/digisign/playercore/pkg/config"
	"github.com/digisign/playercore/pkg/events"
	"github.com/digisign/playercore/pkg/metrics"
	"github.com/digisign/playercore/pkg/offlinestore"
	"github.com/digisign/playercore/pkg/push"
	"github.com/digisign/playercore/pkg/ratelimit"
	"github.com/digisign/playercore/pkg/schedule"
	"github.com/digisign/playercore/pkg/selector"
	"github.com/digisign/playercore/pkg/timeline"
	"github.com/digisign/playercore/pkg/transport"
)

const (
	offlineBaseBackoff = 30 * time.Second
	faultTickInterval  = 60 * time.Second
	triggerBacklog     = 64
)

// LocationProvider supplies the display's own coordinates, if known, for
// geo-fence evaluation. Optional: a nil provider is
// treated as "location unknown", which is permissive for geo-aware
// layouts.
type LocationProvider interface {
	Location() (lat, lng float64, known bool)
}

// Options configures a Core. Transport and OfflineStore are the only
// required fields; everything else defaults sensibly.
type Options struct {
	DisplayID  string
	PlayerName string

	Transport    transport.Transport
	OfflineStore offlinestore.Store

	// Bus receives every emitted event; if nil, a fresh Bus is created.
	Bus *events.Bus
	// Clock defaults to clockwork.NewRealClock().
	Clock clockwork.Clock
	// Log defaults to zap.NewNop().Sugar().
	Log *zap.SugaredLogger
	// LogLevel, if set, is adjusted to match Settings.LogLevel every time
	// registration returns a new value, letting the CMS raise or lower
	// verbosity without a restart.
	LogLevel *zap.AtomicLevel
	// HTTPClient is used by the Command Processor's http| scheme.
	HTTPClient *http.Client

	LocationProvider  LocationProvider
	DisplayProperties map[string]string

	// PubsubProjectID/PubsubTopicID, if both set, relay a subset of
	// events to Pub/Sub (see pkg/events.PubsubSink).
	PubsubProjectID string
	PubsubTopicID   string
}

// Core owns every piece of mutable orchestration state and the single
// goroutine that mutates it.
type Core struct {
	opts Options

	log   *zap.SugaredLogger
	clock clockwork.Clock
	bus   *events.Bus

	transport transport.Transport
	store     offlinestore.Store

	evaluator *schedule.Evaluator
	tracker   *blacklist.Tracker
	limiter   *ratelimit.Limiter
	selector  *selector.Selector
	processor *command.Processor
	push      *push.Channel
	durations *timeline.DurationTracker

	status      CollectionStatus
	settings    config.Settings
	commands    map[string]command.CommandSpec
	pushStarted bool

	sf        singleflight.Group
	triggerCh chan trigger

	periodicTimer clockwork.Timer
	faultTimer    clockwork.Timer

	handler *EventHandler
}

// NewCore constructs a Core from opts, filling in defaults. It does not
// start any goroutines; call Run to begin the Collection Loop.
func NewCore(opts Options) (*Core, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	c := &Core{
		opts:      opts,
		log:       opts.Log,
		clock:     opts.Clock,
		bus:       opts.Bus,
		transport: opts.Transport,
		store:     opts.OfflineStore,
		evaluator: schedule.New(),
		durations: timeline.NewDurationTracker(),
		commands:  map[string]command.CommandSpec{},
		triggerCh: make(chan trigger, triggerBacklog),
	}

	c.tracker = blacklist.New(opts.Log, blacklistReporter{c}, c.onBlacklistEvent)
	c.limiter = ratelimit.New(opts.Clock)
	c.selector = selector.New(opts.Log, opts.Clock, opts.Bus, c.tracker)
	c.processor = command.New(opts.Log, opts.Clock, opts.Bus, opts.HTTPClient, c)
	c.push = push.NewChannel(opts.Log, opts.Bus, c)
	c.handler = &EventHandler{core: c}

	c.bus.Subscribe(c.recordMetrics)

	if opts.PubsubProjectID != "" && opts.PubsubTopicID != "" {
		sink, err := events.NewPubsubSink(context.Background(), opts.PubsubProjectID, opts.PubsubTopicID, opts.DisplayID, opts.PlayerName, opts.Log)
		if err != nil {
			return nil, err
		}
		c.bus.Subscribe(sink.Subscriber())
	}

	return c, nil
}

// blacklistReporter adapts Core's Transport to blacklist.Reporter.
type blacklistReporter struct{ c *Core }

func (r blacklistReporter) BlackList(layoutID, kind, reason string) error {
	return r.c.transport.BlackList(context.Background(), layoutID, kind, reason)
}

func (c *Core) onBlacklistEvent(evt blacklist.Event) {
	typ := events.TypeLayoutUnblacklisted
	if evt.Type == "blacklisted" {
		typ = events.TypeLayoutBlacklisted
	}
	e := events.New(typ, c.clock.Now())
	e.LayoutID = evt.LayoutID
	c.bus.Publish(e)
	metrics.BlacklistSize.Set(float64(c.tracker.Size()))
}

func (c *Core) recordMetrics(evt events.Event) {
	if evt.Type == events.TypeLayoutPrepareRequest {
		metrics.LayoutSwitches.Inc()
	}
}

// Run builds a Core from opts and runs its Collection Loop until ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	c, err := NewCore(opts)
	if err != nil {
		return err
	}
	return c.Run(ctx)
}

// Run executes the first collection cycle immediately, then drives the
// periodic timer, the fault-submission timer, and every push/Renderer/
// Cache-originated trigger from a single goroutine until ctx is done.
func (c *Core) Run(ctx context.Context) error {
	defer c.push.Close()

	if err := c.RunCycle(ctx, "startup"); err != nil {
		c.log.Warnw("startup collection cycle failed", "error", err)
	}
	c.scheduleNextCycle()
	c.scheduleFaultTick()

	for {
		select {
		case <-ctx.Done():
			if c.periodicTimer != nil {
				c.periodicTimer.Stop()
			}
			if c.faultTimer != nil {
				c.faultTimer.Stop()
			}
			return ctx.Err()
		case t := <-c.triggerCh:
			c.handler.Handle(ctx, t)
		}
	}
}

// enqueue hands a trigger back to the single consuming goroutine. Safe
// to call from any goroutine,
// including the push channel's read loop and external Renderer/Cache
// callers.
func (c *Core) enqueue(t trigger) {
	select {
	case c.triggerCh <- t:
	default:
		c.log.Warnw("trigger backlog full, dropping", "kind", t.kind)
	}
}

func (c *Core) scheduleNextCycle() {
	if c.periodicTimer != nil {
		c.periodicTimer.Stop()
	}
	interval := c.nextInterval()
	c.periodicTimer = c.clock.AfterFunc(interval, func() { c.enqueue(trigger{kind: triggerPeriodic}) })
}

func (c *Core) scheduleFaultTick() {
	if c.faultTimer != nil {
		c.faultTimer.Stop()
	}
	c.faultTimer = c.clock.AfterFunc(faultTickInterval, func() { c.enqueue(trigger{kind: triggerFaultTick}) })
}

func (c *Core) nextInterval() time.Duration {
	normal := c.settings.CollectInterval
	if normal <= 0 {
		normal = config.DefaultCollectInterval
	}
	if c.status.Offline {
		return c.status.backoff(offlineBaseBackoff, normal)
	}
	return normal
}

// RequestCollectNow implements command.CollectNower: the Command
// Processor calls this when a scheduled "collectNow" command fires.
func (c *Core) RequestCollectNow() {
	c.enqueue(trigger{kind: triggerCollectNow})
}

// --- push.Callbacks: invoked from the push channel's read-loop
// goroutine, so every method here only enqueues; it never touches
// Selector/Processor/Evaluator state directly.

func (c *Core) OnChangeLayout(layoutID string, durationSeconds int, changeMode string) {
	c.enqueue(trigger{kind: triggerPushChangeLayout, layoutID: layoutID, duration: time.Duration(durationSeconds) * time.Second, changeMode: changeMode})
}

func (c *Core) OnOverlayLayout(layoutID string, durationSeconds int) {
	c.enqueue(trigger{kind: triggerPushOverlayLayout, layoutID: layoutID, duration: time.Duration(durationSeconds) * time.Second})
}

func (c *Core) OnRevertToSchedule() {
	c.enqueue(trigger{kind: triggerPushRevert})
}

func (c *Core) OnPurgeAll() {
	c.enqueue(trigger{kind: triggerPushPurgeAll})
}

func (c *Core) OnCommand(code string) {
	c.enqueue(trigger{kind: triggerPushCommand, code: code})
}

func (c *Core) OnTrigger(code string) {
	c.enqueue(trigger{kind: triggerPushTrigger, code: code})
}

func (c *Core) OnScreenshot() {
	c.enqueue(trigger{kind: triggerPushScreenshot})
}

func (c *Core) OnGeoReport() {
	c.enqueue(trigger{kind: triggerPushGeoReport})
}

func (c *Core) OnDataConnectorRefresh(connectorID string) {
	c.enqueue(trigger{kind: triggerPushDataConnectorRefresh, connectorID: connectorID})
}

func (c *Core) OnCollectNow() {
	c.RequestCollectNow()
}

// --- Renderer/Cache-facing API: also enqueue-only, for the same reason.

// AdvanceNext is called by the Renderer when the current layout ends.
func (c *Core) AdvanceNext() {
	c.enqueue(trigger{kind: triggerAdvanceNext})
}

// AdvancePrevious is called by the Renderer for manual back-navigation.
func (c *Core) AdvancePrevious() {
	c.enqueue(trigger{kind: triggerAdvancePrevious})
}

// ReportRenderFailure is called by the Renderer when a layout fails to
// render.
func (c *Core) ReportRenderFailure(layoutID, reason string) {
	c.enqueue(trigger{kind: triggerRenderFailure, layoutID: layoutID, reason: reason})
}

// ReportRenderSuccess is called by the Renderer on a successful layout
// start; it both clears blacklist state and records a rate-limit play.
func (c *Core) ReportRenderSuccess(layoutID string) {
	c.enqueue(trigger{kind: triggerRenderSuccess, layoutID: layoutID})
}

// SetPending is called by the Renderer when layoutID is waiting on files.
func (c *Core) SetPending(layoutID string, requiredMediaIDs []string) {
	c.enqueue(trigger{kind: triggerSetPending, layoutID: layoutID, requiredIDs: requiredMediaIDs})
}

// NotifyMediaReady is called by the Cache when a file finishes downloading.
func (c *Core) NotifyMediaReady(id string) {
	c.enqueue(trigger{kind: triggerMediaReady, mediaID: id})
}

// Predict runs the Timeline Predictor against the Core's
// current schedule. Safe to call from any goroutine: it only reads the
// Evaluator's atomically-replaced schedule and the DurationTracker, both
// already safe for concurrent reads.
func (c *Core) Predict(opts timeline.Options) []timeline.Entry {
	return timeline.Predict(c.evaluator, c.durations, c.evalContext(), opts)
}

// RecordLayoutDuration feeds a parsed/observed layout duration back into
// the Timeline Predictor's tracker.
func (c *Core) RecordLayoutDuration(file string, d time.Duration) {
	c.durations.RecordLayoutDuration(file, d)
}

func (c *Core) evalContext() schedule.EvalContext {
	ctx := schedule.EvalContext{
		DisplayProperties: c.opts.DisplayProperties,
		PlayHistory:       rateLimitRecorder{c.limiter},
	}
	if c.opts.LocationProvider != nil {
		if lat, lng, known := c.opts.LocationProvider.Location(); known {
			ctx.PlayerLocation = schedule.PlayerLocation{Known: true, Lat: lat, Lng: lng}
		}
	}
	return ctx
}

// rateLimitRecorder wraps the Rate Limiter so a rejected play increments
// metrics.RateLimitRejections, without teaching the pure Schedule
// Evaluator about Prometheus.
type rateLimitRecorder struct {
	limiter *ratelimit.Limiter
}

func (r rateLimitRecorder) Allowed(layoutFile string, maxPerHour int, now time.Time) bool {
	ok := r.limiter.Allowed(layoutFile, maxPerHour, now)
	if !ok {
		metrics.RateLimitRejections.Inc()
	}
	return ok
}

// trigger is the single serialized unit of work the event loop consumes;
// every external entrypoint (push callback, Renderer/Cache call, timer
// fire) becomes one of these rather than a direct method call into
// Selector/Processor/Evaluator state.
type trigger struct {
	kind triggerKind

	layoutID    string
	duration    time.Duration
	changeMode  string
	code        string
	connectorID string
	requiredIDs []string
	mediaID     string
	reason      string
}

type triggerKind int

const (
	triggerPeriodic triggerKind = iota
	triggerCollectNow
	triggerFaultTick

	triggerPushChangeLayout
	triggerPushOverlayLayout
	triggerPushRevert
	triggerPushPurgeAll
	triggerPushCommand
	triggerPushTrigger
	triggerPushScreenshot
	triggerPushGeoReport
	triggerPushDataConnectorRefresh

	triggerAdvanceNext
	triggerAdvancePrevious
	triggerRenderFailure
	triggerRenderSuccess
	triggerSetPending
	triggerMediaReady
)
