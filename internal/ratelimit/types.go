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

// Package ratelimit implements the per-operation-class admission control
// that sits between incoming tool invocations and outbound probe runs: a
// token bucket augmented with a daily cap, a concurrent-invocation cap, and
// exponential backoff-with-jitter on repeated denial.
package ratelimit

import "time"

// OperationClass identifies a rate-limit bucket. Each tool binds statically
// to exactly one class.
type OperationClass string

// The recognized operation classes. Ping and Traceroute are reserved for
// future tools and carry no bucket configuration until one is registered.
const (
	ClassSpeedTest      OperationClass = "speed_test"
	ClassLatencyTest     OperationClass = "latency_test"
	ClassDownloadTest    OperationClass = "download_test"
	ClassUploadTest      OperationClass = "upload_test"
	ClassPacketLossTest  OperationClass = "packet_loss_test"
	ClassConnectionInfo  OperationClass = "connection_info"
	ClassPing            OperationClass = "ping"
	ClassTraceroute      OperationClass = "traceroute"
)

// EnvName derives the SCREAMING_SNAKE_CASE form used in
// RATE_LIMIT_<CLASS>_* environment variables. This is the single
// deterministic rule resolving spec.md §9's open question: uppercase the
// already-lowercase-underscore class tag, nothing more.
func (c OperationClass) EnvName() string {
	upper := make([]byte, len(c))
	for i := 0; i < len(c); i++ {
		b := c[i]
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		upper[i] = b
	}
	return string(upper)
}

// DenialReason identifies which gate denied an admission.
type DenialReason string

const (
	ReasonTokenBucket    DenialReason = "token_bucket"
	ReasonDailyLimit     DenialReason = "daily_limit"
	ReasonConcurrentLimit DenialReason = "concurrent_limit"
)

// BucketConfig is immutable for the life of the process once loaded.
type BucketConfig struct {
	TokensPerInterval     int64
	IntervalMs            int64
	MaxBucketSize         int64
	MaxDailyRequests      int64
	MaxConcurrentRequests int64
	ConcurrentLimitWaitMs int64
}

// bucketState is the mutable per-class state. Access is always serialized
// through bucket.mu; nothing in this struct is safe for concurrent use on
// its own.
type bucketState struct {
	tokens              float64
	lastRefill          time.Time
	dailyRequestCount   int64
	dailyResetTime      time.Time
	concurrentRequests  int64
	consecutiveFailures int
	lastFailureTime     time.Time
}

// AdmissionResult is the outcome of a single checkAndConsume call.
type AdmissionResult struct {
	Allowed                bool
	RemainingTokens        int64
	WaitTimeMs             int64
	DailyRequestsRemaining int64
	Reason                 DenialReason
}

// Status is a non-mutating snapshot of one bucket's state.
type Status struct {
	TokensRemaining        int64
	DailyRequestsRemaining int64
	ConcurrentRequests     int64
	NextTokenRefillMs      int64
	DailyResetTimeMs       int64
}
