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

// Package metrics exposes the toolserver's Prometheus metrics: admission
// outcomes, admission denials by reason, probe durations, and catalog cache
// health (spec.md §5.6, supplemented from the original's observability
// surface).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolserver_admissions_total",
			Help: "Total tool invocations admitted or denied by the rate limiter",
		},
		[]string{"class", "result"},
	)

	admissionDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolserver_admission_denials_total",
			Help: "Total admission denials broken down by reason",
		},
		[]string{"class", "reason"},
	)

	probeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "toolserver_probe_duration_seconds",
			Help:    "Duration of probe backend calls per tool",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	catalogCacheStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "toolserver_catalog_cache_status",
			Help: "Catalog cache status, 1 for the current status and 0 for all others",
		},
		[]string{"status"},
	)
)

// Cache status label values recorded against toolserver_catalog_cache_status.
const (
	CacheStatusFresh = "fresh"
	CacheStatusStale = "stale"
	CacheStatusMiss  = "miss"
)

var cacheStatuses = []string{CacheStatusFresh, CacheStatusStale, CacheStatusMiss}

// RecordAdmission records the outcome of one rate-limiter admission check.
func RecordAdmission(class, result string) {
	admissionsTotal.WithLabelValues(class, result).Inc()
}

// RecordAdmissionDenial records a denial and the reason the limiter gave.
func RecordAdmissionDenial(class, reason string) {
	admissionDenialsTotal.WithLabelValues(class, reason).Inc()
}

// ObserveProbeDuration records how long a probe backend call took for tool.
func ObserveProbeDuration(tool string, seconds float64) {
	probeDuration.WithLabelValues(tool).Observe(seconds)
}

// SetCacheStatus records the catalog's current cache status, zeroing every
// other known status so exactly one series reads 1 at a time.
func SetCacheStatus(status string) {
	for _, s := range cacheStatuses {
		if s == status {
			catalogCacheStatus.WithLabelValues(s).Set(1)
		} else {
			catalogCacheStatus.WithLabelValues(s).Set(0)
		}
	}
}
