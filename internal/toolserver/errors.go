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

package toolserver

import (
	"errors"
	"strings"

	"github.com/tombee/netdiag-toolserver/internal/catalog"
	"github.com/tombee/netdiag-toolserver/internal/probe"
	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

// classify derives a stable envelope error code from err, in the priority
// order spec.md §4.4 specifies: (a) a known typed error already carries its
// code; (b) a substring match against error.message; (c) EXECUTION_ERROR.
func classify(err error) (code, message string, details map[string]interface{}) {
	if err == nil {
		return "EXECUTION_ERROR", "", nil
	}

	var validationErr *toolerrors.ValidationError
	if errors.As(err, &validationErr) {
		return "VALIDATION_ERROR", err.Error(), nil
	}

	var notFoundErr *toolerrors.ToolNotFoundError
	if errors.As(err, &notFoundErr) {
		return "VALIDATION_ERROR", err.Error(), nil
	}

	var exceededErr *ratelimit.ExceededError
	if errors.As(err, &exceededErr) {
		return "RATE_LIMIT_ERROR", err.Error(), map[string]interface{}{
			"waitTimeMs": exceededErr.WaitTimeMs,
			"reason":     string(exceededErr.Reason),
		}
	}

	var invalidOpErr *ratelimit.InvalidOperationError
	if errors.As(err, &invalidOpErr) {
		return "EXECUTION_ERROR", err.Error(), nil
	}

	var timeoutErr *probe.TimeoutExceeded
	if errors.As(err, &timeoutErr) {
		return "TIMEOUT_ERROR", err.Error(), nil
	}

	var discoveryErr *catalog.DiscoveryError
	if errors.As(err, &discoveryErr) {
		return classify(discoveryErr.Unwrap())
	}

	var probeErr *toolerrors.ProbeExecutionError
	if errors.As(err, &probeErr) {
		if code := classifyMessage(probeErr.Message); code != "" {
			return code, err.Error(), nil
		}
		if probeErr.Retryable {
			return "NETWORK_ERROR", err.Error(), nil
		}
		return "EXECUTION_ERROR", err.Error(), nil
	}

	if code := classifyMessage(err.Error()); code != "" {
		return code, err.Error(), nil
	}

	return "EXECUTION_ERROR", err.Error(), nil
}

// classifyMessage applies spec.md §4.4's substring rule. It returns "" when
// nothing matches, letting the caller fall through to its own default.
func classifyMessage(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "timeout"):
		return "TIMEOUT_ERROR"
	case strings.Contains(lower, "rate limit"):
		return "RATE_LIMIT_ERROR"
	case strings.Contains(lower, "validation"), strings.Contains(lower, "invalid"):
		return "VALIDATION_ERROR"
	case strings.Contains(lower, "network"), strings.Contains(lower, "connection"):
		return "NETWORK_ERROR"
	default:
		return ""
	}
}
