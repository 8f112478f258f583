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

package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
)

// recognizedClasses lists every OperationClass that carries a compiled-in
// default and can therefore be overridden via RATE_LIMIT_<CLASS>_*.
var recognizedClasses = []ratelimit.OperationClass{
	ratelimit.ClassSpeedTest,
	ratelimit.ClassLatencyTest,
	ratelimit.ClassDownloadTest,
	ratelimit.ClassUploadTest,
	ratelimit.ClassPacketLossTest,
	ratelimit.ClassConnectionInfo,
}

// applyEnv overrides cfg with any well-formed, in-bounds environment
// variables from spec.md §6. Malformed or out-of-bounds values are logged
// once and left at whatever cfg already held (defaults, or the file layer).
func applyEnv(cfg Config, logger *slog.Logger) Config {
	rateLimits := make(map[ratelimit.OperationClass]ratelimit.BucketConfig, len(cfg.RateLimits))
	for op, bc := range cfg.RateLimits {
		rateLimits[op] = bc
	}

	for _, class := range recognizedClasses {
		bc := rateLimits[class]
		envName := class.EnvName()

		bc.TokensPerInterval = boundedInt64Env(logger, "RATE_LIMIT_"+envName+"_TOKENS_PER_INTERVAL", bc.TokensPerInterval, 1, 1000)
		bc.IntervalMs = boundedInt64Env(logger, "RATE_LIMIT_"+envName+"_INTERVAL_MS", bc.IntervalMs, 1, 24*3600*1000)
		bc.MaxBucketSize = boundedInt64Env(logger, "RATE_LIMIT_"+envName+"_MAX_BUCKET_SIZE", bc.MaxBucketSize, 1, 10_000)
		bc.MaxDailyRequests = boundedInt64Env(logger, "RATE_LIMIT_"+envName+"_MAX_DAILY_REQUESTS", bc.MaxDailyRequests, 1, 100_000)
		bc.MaxConcurrentRequests = boundedInt64Env(logger, "RATE_LIMIT_"+envName+"_MAX_CONCURRENT_REQUESTS", bc.MaxConcurrentRequests, 1, 100)

		rateLimits[class] = bc
	}
	cfg.RateLimits = rateLimits

	cfg.Backoff.BaseDelayMs = boundedInt64Env(logger, "RATE_LIMIT_BACKOFF_BASE_DELAY_MS", cfg.Backoff.BaseDelayMs, 1, 60_000)
	cfg.Backoff.MaxDelayMs = boundedInt64Env(logger, "RATE_LIMIT_BACKOFF_MAX_DELAY_MS", cfg.Backoff.MaxDelayMs, 1, 600_000)
	cfg.Backoff.BackoffMultiplier = boundedFloat64Env(logger, "RATE_LIMIT_BACKOFF_MULTIPLIER", cfg.Backoff.BackoffMultiplier, 0, 10)
	cfg.Backoff.JitterFactor = boundedFloat64Env(logger, "RATE_LIMIT_BACKOFF_JITTER_FACTOR", cfg.Backoff.JitterFactor, 0, 1.0)

	if level, ok := validLogLevelEnv(logger); ok {
		cfg.LogLevel = level
	}

	if addr, present := os.LookupEnv("METRICS_ADDR"); present && addr != "" {
		cfg.MetricsAddr = addr
	}

	return cfg
}

// boundedInt64Env parses env as an int64 bounded to [min, max]. On any
// failure it logs a one-line diagnostic and returns fallback unchanged.
func boundedInt64Env(logger *slog.Logger, env string, fallback, min, max int64) int64 {
	raw, present := os.LookupEnv(env)
	if !present || raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warn("ignoring malformed config env var, using default", "env", env, "value", raw)
		return fallback
	}

	if v < min || v > max {
		logger.Warn("ignoring out-of-bounds config env var, using default", "env", env, "value", v, "min", min, "max", max)
		return fallback
	}

	return v
}

// boundedFloat64Env is boundedInt64Env's float64 counterpart, used for the
// backoff multiplier and jitter factor.
func boundedFloat64Env(logger *slog.Logger, env string, fallback, min, max float64) float64 {
	raw, present := os.LookupEnv(env)
	if !present || raw == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Warn("ignoring malformed config env var, using default", "env", env, "value", raw)
		return fallback
	}

	if v < min || v > max {
		logger.Warn("ignoring out-of-bounds config env var, using default", "env", env, "value", v, "min", min, "max", max)
		return fallback
	}

	return v
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func validLogLevelEnv(logger *slog.Logger) (string, bool) {
	raw, present := os.LookupEnv("LOG_LEVEL")
	if !present || raw == "" {
		return "", false
	}

	level := strings.ToLower(raw)
	if !validLogLevels[level] {
		logger.Warn("ignoring invalid LOG_LEVEL, using default", "value", raw)
		return "", false
	}

	return level, true
}
