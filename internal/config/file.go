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
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
)

// FileConfig mirrors the env-var surface for operators who prefer a static
// file over per-variable overrides. Every field is optional; anything left
// unset keeps whatever the layer below already resolved.
type FileConfig struct {
	RateLimits  map[string]FileBucketConfig `yaml:"rate_limits"`
	Backoff     *FileBackoffConfig          `yaml:"backoff"`
	LogLevel    string                      `yaml:"log_level"`
	MetricsAddr string                      `yaml:"metrics_addr"`
}

// FileBucketConfig is the YAML shape of one operation class's overrides.
// Pointer fields distinguish "not set in the file" from "set to zero".
type FileBucketConfig struct {
	TokensPerInterval     *int64 `yaml:"tokens_per_interval"`
	IntervalMs            *int64 `yaml:"interval_ms"`
	MaxBucketSize         *int64 `yaml:"max_bucket_size"`
	MaxDailyRequests      *int64 `yaml:"max_daily_requests"`
	MaxConcurrentRequests *int64 `yaml:"max_concurrent_requests"`
}

// FileBackoffConfig is the YAML shape of the backoff overrides.
type FileBackoffConfig struct {
	BaseDelayMs       *int64   `yaml:"base_delay_ms"`
	MaxDelayMs        *int64   `yaml:"max_delay_ms"`
	BackoffMultiplier *float64 `yaml:"multiplier"`
	JitterFactor      *float64 `yaml:"jitter_factor"`
}

// LoadFile reads and parses a YAML config file at path.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	return &fc, nil
}

// mergeFile layers a parsed file over cfg. Only fields explicitly present
// in the file override cfg's current value.
func mergeFile(cfg Config, file *FileConfig) Config {
	if file == nil {
		return cfg
	}

	rateLimits := make(map[ratelimit.OperationClass]ratelimit.BucketConfig, len(cfg.RateLimits))
	for op, bc := range cfg.RateLimits {
		rateLimits[op] = bc
	}

	for className, override := range file.RateLimits {
		class := ratelimit.OperationClass(className)
		bc, ok := rateLimits[class]
		if !ok {
			continue
		}
		if override.TokensPerInterval != nil {
			bc.TokensPerInterval = *override.TokensPerInterval
		}
		if override.IntervalMs != nil {
			bc.IntervalMs = *override.IntervalMs
		}
		if override.MaxBucketSize != nil {
			bc.MaxBucketSize = *override.MaxBucketSize
		}
		if override.MaxDailyRequests != nil {
			bc.MaxDailyRequests = *override.MaxDailyRequests
		}
		if override.MaxConcurrentRequests != nil {
			bc.MaxConcurrentRequests = *override.MaxConcurrentRequests
		}
		rateLimits[class] = bc
	}
	cfg.RateLimits = rateLimits

	if file.Backoff != nil {
		if file.Backoff.BaseDelayMs != nil {
			cfg.Backoff.BaseDelayMs = *file.Backoff.BaseDelayMs
		}
		if file.Backoff.MaxDelayMs != nil {
			cfg.Backoff.MaxDelayMs = *file.Backoff.MaxDelayMs
		}
		if file.Backoff.BackoffMultiplier != nil {
			cfg.Backoff.BackoffMultiplier = *file.Backoff.BackoffMultiplier
		}
		if file.Backoff.JitterFactor != nil {
			cfg.Backoff.JitterFactor = *file.Backoff.JitterFactor
		}
	}

	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}

	if file.MetricsAddr != "" {
		cfg.MetricsAddr = file.MetricsAddr
	}

	return cfg
}
