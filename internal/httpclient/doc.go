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

// Package httpclient provides the HTTP client factory used by the probe
// adapter to reach the third-party edge network: consistent timeout, retry,
// and observability behavior layered as http.RoundTrippers.
//
// The package creates HTTP clients with:
//   - Automatic retry with exponential backoff and jitter, matching a fixed
//     retryable-substring set
//   - Request logging with sanitized URLs (sensitive parameters redacted)
//   - Correlation ID propagation
//   - TLS 1.2 minimum (TLS 1.3 preferred)
//   - Connection pooling
//
// # Usage
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	resp, err := client.Get("https://api.example.com/resource")
//
// # Retry behavior
//
//   - Retries HTTP 5xx, 429, and 408; a Retry-After header can only shorten
//     the computed backoff, never lengthen it
//   - Retries network errors matching the retryable substring set
//     (ECONNRESET, ETIMEDOUT, ENOTFOUND, ECONNREFUSED, NETWORK_ERROR,
//     TIMEOUT_ERROR) or the net.Error timeout/temporary interface
//   - Only retries idempotent methods (GET, HEAD, OPTIONS) by default
package httpclient
