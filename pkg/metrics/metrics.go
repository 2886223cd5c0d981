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

// Package metrics exposes the Prometheus collectors the Core updates as
// it runs collection cycles, mirroring the call-site style of the
// teacher's metrics.RecordParserDuration (stage, status, elapsed time).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CycleDuration records how long each named stage of a collection
	// cycle took, labeled by stage and outcome.
	CycleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "playercore",
		Subsystem: "collection",
		Name:      "stage_duration_seconds",
		Help:      "Duration of a collection-cycle stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage", "status"})

	// LayoutSwitches counts every time the Layout Selector requests a new
	// layout from the Renderer.
	LayoutSwitches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playercore",
		Subsystem: "selector",
		Name:      "layout_switches_total",
		Help:      "Total layout prepare requests emitted by the selector.",
	})

	// BlacklistSize reports the current number of blacklisted layouts.
	BlacklistSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "playercore",
		Subsystem: "blacklist",
		Name:      "entries",
		Help:      "Number of currently blacklisted layouts.",
	})

	// RateLimitRejections counts Allowed() calls that returned false.
	RateLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playercore",
		Subsystem: "ratelimit",
		Name:      "rejections_total",
		Help:      "Total plays rejected by the rate limiter.",
	})

	// CRCSkips counts collection cycles that skipped a download because
	// checkRf/checkSchedule matched the previous cycle.
	CRCSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playercore",
		Subsystem: "collection",
		Name:      "crc_skips_total",
		Help:      "Collection cycles that skipped refetching unchanged content.",
	}, []string{"kind"})
)

// MustRegister registers every collector in this package against reg.
// Called once at startup from cmd/playerd.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(CycleDuration, LayoutSwitches, BlacklistSize, RateLimitRejections, CRCSkips)
}

// RecordStageDuration records how long stage took, tagged with whether
// it errored.
func RecordStageDuration(stage string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CycleDuration.WithLabelValues(stage, status).Observe(time.Since(start).Seconds())
}
