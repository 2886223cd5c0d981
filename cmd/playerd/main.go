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

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/digisign/playercore/pkg/cmstransport"
	"github.com/digisign/playercore/pkg/metrics"
	"github.com/digisign/playercore/pkg/offlinestore"
	"github.com/digisign/playercore/pkg/orchestrator"
)

var flagsVar = struct {
	displayID   string
	playerName  string
	cmsAddress  string
	serverKey   string
	stateDir    string
	metricsAddr string
	pubsubProject string
	pubsubTopic   string
	debug       bool
}{}

func main() {
	root := &cobra.Command{
		Use:   "playerd",
		Short: "Digital-signage player orchestration daemon",
		RunE:  run,
	}

	flagsSet := root.Flags()
	flagsSet.StringVar(&flagsVar.displayID, "display-id", os.Getenv("PLAYER_DISPLAY_ID"), "Unique ID this display registers as with the CMS")
	flagsSet.StringVar(&flagsVar.playerName, "player-name", os.Getenv("PLAYER_NAME"), "Human-readable name reported in status updates")
	flagsSet.StringVar(&flagsVar.cmsAddress, "cms-address", os.Getenv("PLAYER_CMS_ADDRESS"), "Base URL of the CMS display-agent API")
	flagsSet.StringVar(&flagsVar.serverKey, "server-key", os.Getenv("PLAYER_SERVER_KEY"), "Shared key used to authenticate with the CMS")
	flagsSet.StringVar(&flagsVar.stateDir, "state-dir", envOr("PLAYER_STATE_DIR", "/var/lib/playerd"), "Directory holding the offline-store snapshots")
	flagsSet.StringVar(&flagsVar.metricsAddr, "metrics-address", envOr("PLAYER_METRICS_ADDRESS", ":9090"), "Address to serve Prometheus metrics on")
	flagsSet.StringVar(&flagsVar.pubsubProject, "pubsub-project", os.Getenv("PLAYER_PUBSUB_PROJECT"), "GCP project ID for event relay via Pub/Sub (optional)")
	flagsSet.StringVar(&flagsVar.pubsubTopic, "pubsub-topic", os.Getenv("PLAYER_PUBSUB_TOPIC"), "Pub/Sub topic for event relay (optional)")
	flagsSet.BoolVar(&flagsVar.debug, "debug", false, "Enable verbose logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(cmd *cobra.Command, args []string) error {
	if flagsVar.displayID == "" {
		return fmt.Errorf("--display-id is required")
	}
	if flagsVar.cmsAddress == "" {
		return fmt.Errorf("--cms-address is required")
	}

	atomicLevel := zap.NewAtomicLevel()
	if flagsVar.debug {
		atomicLevel.SetLevel(zap.DebugLevel)
	}
	logger, err := newLogger(flagsVar.debug, atomicLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.Sugar()

	store, err := offlinestore.NewFileStore(flagsVar.stateDir, log)
	if err != nil {
		return fmt.Errorf("opening offline store at %s: %w", flagsVar.stateDir, err)
	}

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)
	go serveMetrics(flagsVar.metricsAddr, reg, log)

	transportClient := cmstransport.New(flagsVar.cmsAddress, flagsVar.serverKey, flagsVar.displayID, http.DefaultClient)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := orchestrator.Options{
		DisplayID:       flagsVar.displayID,
		PlayerName:      flagsVar.playerName,
		Transport:       transportClient,
		OfflineStore:    store,
		Log:             log,
		LogLevel:        &atomicLevel,
		PubsubProjectID: flagsVar.pubsubProject,
		PubsubTopicID:   flagsVar.pubsubTopic,
	}

	log.Infow("starting player orchestration core", "displayID", flagsVar.displayID, "cms", flagsVar.cmsAddress)
	err = orchestrator.Run(ctx, opts)
	if err != nil && ctx.Err() != nil {
		// Clean shutdown via signal; not a real failure.
		return nil
	}
	return err
}

func newLogger(debug bool, level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	return cfg.Build()
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warnw("metrics server stopped", "error", err)
	}
}
