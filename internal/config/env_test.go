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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedInt64Env(t *testing.T) {
	const envName = "TEST_BOUNDED_INT64"

	tests := []struct {
		name     string
		value    string
		set      bool
		fallback int64
		min      int64
		max      int64
		want     int64
	}{
		{name: "unset returns fallback", set: false, fallback: 7, min: 1, max: 10, want: 7},
		{name: "empty returns fallback", value: "", set: true, fallback: 7, min: 1, max: 10, want: 7},
		{name: "in bounds", value: "5", set: true, fallback: 7, min: 1, max: 10, want: 5},
		{name: "at min boundary", value: "1", set: true, fallback: 7, min: 1, max: 10, want: 1},
		{name: "at max boundary", value: "10", set: true, fallback: 7, min: 1, max: 10, want: 10},
		{name: "below min falls back", value: "0", set: true, fallback: 7, min: 1, max: 10, want: 7},
		{name: "above max falls back", value: "11", set: true, fallback: 7, min: 1, max: 10, want: 7},
		{name: "malformed falls back", value: "abc", set: true, fallback: 7, min: 1, max: 10, want: 7},
		{name: "negative when disallowed falls back", value: "-1", set: true, fallback: 7, min: 1, max: 10, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(envName)
			if tt.set {
				os.Setenv(envName, tt.value)
				defer os.Unsetenv(envName)
			}

			logger, _ := testLogger()
			got := boundedInt64Env(logger, envName, tt.fallback, tt.min, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoundedFloat64Env(t *testing.T) {
	const envName = "TEST_BOUNDED_FLOAT64"

	tests := []struct {
		name     string
		value    string
		set      bool
		fallback float64
		min      float64
		max      float64
		want     float64
	}{
		{name: "unset returns fallback", set: false, fallback: 0.1, min: 0, max: 1, want: 0.1},
		{name: "in bounds", value: "0.5", set: true, fallback: 0.1, min: 0, max: 1, want: 0.5},
		{name: "at max boundary", value: "1.0", set: true, fallback: 0.1, min: 0, max: 1, want: 1.0},
		{name: "above max falls back", value: "1.5", set: true, fallback: 0.1, min: 0, max: 1, want: 0.1},
		{name: "malformed falls back", value: "nope", set: true, fallback: 0.1, min: 0, max: 1, want: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(envName)
			if tt.set {
				os.Setenv(envName, tt.value)
				defer os.Unsetenv(envName)
			}

			logger, _ := testLogger()
			got := boundedFloat64Env(logger, envName, tt.fallback, tt.min, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidLogLevelEnv(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		set     bool
		wantOK  bool
		wantVal string
	}{
		{name: "unset", set: false, wantOK: false},
		{name: "debug", value: "debug", set: true, wantOK: true, wantVal: "debug"},
		{name: "uppercase normalized", value: "WARN", set: true, wantOK: true, wantVal: "warn"},
		{name: "unrecognized rejected", value: "trace", set: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("LOG_LEVEL")
			if tt.set {
				os.Setenv("LOG_LEVEL", tt.value)
				defer os.Unsetenv("LOG_LEVEL")
			}

			logger, _ := testLogger()
			gotVal, gotOK := validLogLevelEnv(logger)
			assert.Equal(t, tt.wantOK, gotOK)
			if tt.wantOK {
				assert.Equal(t, tt.wantVal, gotVal)
			}
		})
	}
}

func TestApplyEnv_EveryRecognizedClassIsOverridable(t *testing.T) {
	for _, class := range recognizedClasses {
		class := class
		t.Run(string(class), func(t *testing.T) {
			envName := "RATE_LIMIT_" + class.EnvName() + "_MAX_DAILY_REQUESTS"
			os.Setenv(envName, "42")
			defer os.Unsetenv(envName)

			logger, _ := testLogger()
			cfg := applyEnv(Default(), logger)

			assert.Equal(t, int64(42), cfg.RateLimits[class].MaxDailyRequests)
		})
	}
}

func TestApplyEnv_MetricsAddrOverride(t *testing.T) {
	os.Setenv("METRICS_ADDR", ":9999")
	defer os.Unsetenv("METRICS_ADDR")

	logger, _ := testLogger()
	cfg := applyEnv(Default(), logger)

	assert.Equal(t, ":9999", cfg.MetricsAddr)
}

func TestApplyEnv_MetricsAddrUnsetKeepsDefault(t *testing.T) {
	os.Unsetenv("METRICS_ADDR")

	logger, _ := testLogger()
	cfg := applyEnv(Default(), logger)

	assert.Equal(t, Default().MetricsAddr, cfg.MetricsAddr)
}
