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

import "fmt"

// ExceededError is returned by Acquire when admission is denied. It carries
// enough context for the caller to build the RATE_LIMIT_ERROR envelope
// (spec.md §7) without re-deriving anything from the limiter's internals.
type ExceededError struct {
	Op         OperationClass
	WaitTimeMs int64
	Reason     DenialReason
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: %s (retry after %dms)", e.Op, e.Reason, e.WaitTimeMs)
}

// InvalidOperationError is returned for any OperationClass that has no
// registered bucket. Distinct from ExceededError so callers can tell a
// configuration bug from ordinary backpressure.
type InvalidOperationError struct {
	Op OperationClass
}

// Error implements the error interface.
func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("unknown operation class: %s", e.Op)
}
