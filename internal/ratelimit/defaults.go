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

package ratelimit

// DefaultBucketConfigs returns the authoritative compiled-in defaults for
// every registered operation class. Ping and Traceroute are reserved and
// have no default bucket until a tool binds to them.
func DefaultBucketConfigs() map[OperationClass]BucketConfig {
	return map[OperationClass]BucketConfig{
		ClassSpeedTest: {
			TokensPerInterval:     1,
			IntervalMs:            180_000,
			MaxBucketSize:         2,
			MaxDailyRequests:      50,
			MaxConcurrentRequests: 1,
			ConcurrentLimitWaitMs: 1000,
		},
		ClassLatencyTest: {
			TokensPerInterval:     10,
			IntervalMs:            60_000,
			MaxBucketSize:         15,
			MaxDailyRequests:      500,
			MaxConcurrentRequests: 3,
			ConcurrentLimitWaitMs: 1000,
		},
		ClassDownloadTest: {
			TokensPerInterval:     2,
			IntervalMs:            120_000,
			MaxBucketSize:         3,
			MaxDailyRequests:      100,
			MaxConcurrentRequests: 2,
			ConcurrentLimitWaitMs: 1000,
		},
		ClassUploadTest: {
			TokensPerInterval:     2,
			IntervalMs:            120_000,
			MaxBucketSize:         3,
			MaxDailyRequests:      100,
			MaxConcurrentRequests: 2,
			ConcurrentLimitWaitMs: 1000,
		},
		ClassPacketLossTest: {
			TokensPerInterval:     5,
			IntervalMs:            90_000,
			MaxBucketSize:         8,
			MaxDailyRequests:      200,
			MaxConcurrentRequests: 2,
			ConcurrentLimitWaitMs: 1000,
		},
		ClassConnectionInfo: {
			TokensPerInterval:     20,
			IntervalMs:            60_000,
			MaxBucketSize:         30,
			MaxDailyRequests:      1000,
			MaxConcurrentRequests: 5,
			ConcurrentLimitWaitMs: 1000,
		},
	}
}
