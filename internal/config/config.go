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

// Package config loads the tool server's static configuration: per-class
// rate-limit overrides, the backoff shape, and the log level. Layering
// order, low to high precedence: compiled-in defaults, an optional YAML
// file, then environment variables.
package config

import (
	"log/slog"

	"github.com/tombee/netdiag-toolserver/internal/clock"
	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
)

// Config is the fully resolved, ready-to-use configuration.
type Config struct {
	RateLimits  map[ratelimit.OperationClass]ratelimit.BucketConfig
	Backoff     clock.BackoffConfig
	LogLevel    string
	MetricsAddr string
}

// Default returns the compiled-in defaults from spec.md §6, with no file or
// env layering applied.
func Default() Config {
	return Config{
		RateLimits:  ratelimit.DefaultBucketConfigs(),
		Backoff:     clock.DefaultBackoffConfig(),
		LogLevel:    "info",
		MetricsAddr: ":9090",
	}
}

// Load builds the effective Config: defaults, then filePath (if non-empty),
// then environment variables. It never fails outright — a missing or
// unreadable file, or an out-of-bounds env var, is logged and the
// corresponding value falls back to its default (spec.md §6 "rejected with
// a one-line diagnostic and the compiled-in default is used").
func Load(filePath string, logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Default()

	if filePath != "" {
		file, err := LoadFile(filePath)
		if err != nil {
			logger.Warn("failed to load config file, using defaults", "path", filePath, "error", err.Error())
		} else {
			cfg = mergeFile(cfg, file)
		}
	}

	cfg = applyEnv(cfg, logger)

	return cfg
}
