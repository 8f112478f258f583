// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tombee/netdiag-toolserver/internal/catalog"
	"github.com/tombee/netdiag-toolserver/internal/clock"
	"github.com/tombee/netdiag-toolserver/internal/config"
	"github.com/tombee/netdiag-toolserver/internal/httpclient"
	"github.com/tombee/netdiag-toolserver/internal/log"
	"github.com/tombee/netdiag-toolserver/internal/metrics"
	"github.com/tombee/netdiag-toolserver/internal/probe"
	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
	"github.com/tombee/netdiag-toolserver/internal/toolserver"
)

// Version information (injected via ldflags at build time)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configPath  = pflag.String("config", "", "Path to an optional YAML config file")
		logLevel    = pflag.String("log-level", "", "Log level: debug, info, warn, error")
		logFormat   = pflag.String("log-format", "", "Log format: json, text")
		metricsAddr = pflag.String("metrics-addr", "", "Address for the /metrics HTTP endpoint")
		probeURL    = pflag.String("probe-url", "", "Upstream probe engine endpoint")
		traceURL    = pflag.String("trace-url", "", "Upstream connection-trace endpoint")
		locationURL = pflag.String("location-url", "", "Upstream edge-server catalog endpoint")
		showVersion = pflag.Bool("version", false, "Show version information")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("toolserverd %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	logCfg := log.FromEnv()
	if *logLevel != "" {
		logCfg.Level = *logLevel
	}
	if *logFormat != "" {
		logCfg.Format = log.Format(*logFormat)
	}
	logger := log.New(logCfg)
	slog.SetDefault(logger)

	cfg := config.Load(*configPath, logger)

	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	httpClient, err := httpclient.New(httpclient.DefaultConfig())
	if err != nil {
		logger.Error("failed to build probe HTTP client", "error", err)
		os.Exit(1)
	}

	probeClient := probe.New(httpClient, probe.Config{
		ProbeURL:    envOrFlag(*probeURL, "PROBE_URL"),
		TraceURL:    envOrFlag(*traceURL, "TRACE_URL"),
		LocationURL: envOrFlag(*locationURL, "LOCATION_URL"),
	})

	realClock := clock.Real{}
	limiter := ratelimit.New(cfg.RateLimits, cfg.Backoff, realClock, logger)
	edgeCatalog := catalog.New(probeClient, limiter, realClock, logger)

	deps := &toolserver.Deps{
		Limiter: limiter,
		Catalog: edgeCatalog,
		Probe:   probeClient,
		Clock:   realClock,
		Logger:  logger,
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	report := toolserver.RunStartupHealthChecks(startupCtx, deps)
	startupCancel()
	for _, check := range report.Checks {
		logger.Info("startup health check", "name", check.Name, "status", check.Status, "message", check.Message)
	}
	if !report.Healthy {
		logger.Warn("starting with a degraded health report; some tools may fail until the upstream backend recovers")
	}

	server, err := toolserver.NewServer(toolserver.Config{
		Name:    "netdiag-toolserver",
		Version: version,
		Deps:    deps,
	})
	if err != nil {
		logger.Error("failed to build tool server", "error", err)
		os.Exit(1)
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	metricsErrCh := make(chan error, 1)
	go func() {
		metricsErrCh <- metricsServer.Run(ctx)
	}()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	var exitCode int
	select {
	case sig := <-sigCh:
		fmt.Printf("\nreceived signal %v, shutting down...\n", sig)
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("tool server exited with error", "error", err)
			exitCode = 1
		}
	case err := <-metricsErrCh:
		if err != nil {
			logger.Error("metrics server exited with error", "error", err)
		}
	}

	// Cancelling ctx stops admitting new tool invocations and stops the
	// metrics listener; Shutdown then drains in-flight invocations, and a
	// failure there is only logged (spec.md §5 "Shutdown").
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := server.Shutdown(drainCtx); err != nil {
		logger.Error("error during tool server shutdown", "error", err)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// envOrFlag prefers an explicit flag value, falling back to the named
// environment variable when the flag was left at its zero value.
func envOrFlag(flagValue, envName string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envName)
}
