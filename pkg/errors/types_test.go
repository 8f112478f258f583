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

package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *toolerrors.ValidationError
		wantMsg string
	}{
		{
			name: "with field",
			err: &toolerrors.ValidationError{
				Field:      "packetCount",
				Message:    "must be between 1 and 100",
				Suggestion: "pass a value in range",
			},
			wantMsg: "validation failed on packetCount: must be between 1 and 100",
		},
		{
			name: "without field",
			err: &toolerrors.ValidationError{
				Message:    "invalid format",
				Suggestion: "check the input format",
			},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestToolNotFoundError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *toolerrors.ToolNotFoundError
		wantMsg string
	}{
		{
			name:    "known-shaped name",
			err:     &toolerrors.ToolNotFoundError{Name: "test_latency_v2"},
			wantMsg: "tool not found: test_latency_v2",
		},
		{
			name:    "empty name",
			err:     &toolerrors.ToolNotFoundError{},
			wantMsg: "tool not found: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ToolNotFoundError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestRateLimitError_Error(t *testing.T) {
	err := &toolerrors.RateLimitError{
		Op:         "speed_test",
		WaitTimeMs: 180_000,
		Reason:     "token_bucket",
	}

	got := err.Error()
	for _, want := range []string{"speed_test", "token_bucket", "180000"} {
		if !strings.Contains(got, want) {
			t.Errorf("RateLimitError.Error() = %q, want to contain %q", got, want)
		}
	}
}

func TestProbeExecutionError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *toolerrors.ProbeExecutionError
		wantMsg string
	}{
		{
			name:    "retryable",
			err:     &toolerrors.ProbeExecutionError{Message: "upstream reset the connection", Retryable: true},
			wantMsg: "probe execution failed: upstream reset the connection",
		},
		{
			name:    "not retryable",
			err:     &toolerrors.ProbeExecutionError{Message: "malformed response body", Retryable: false},
			wantMsg: "probe execution failed: malformed response body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ProbeExecutionError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestProbeExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("network error")
	err := &toolerrors.ProbeExecutionError{
		Message: "request failed",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("ProbeExecutionError.Unwrap() = %v, want %v", got, cause)
	}
}

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *toolerrors.ConfigError
		wantMsg string
	}{
		{
			name: "with key",
			err: &toolerrors.ConfigError{
				Key:    "RATE_LIMIT_SPEED_TEST_TOKENS_PER_INTERVAL",
				Reason: "value exceeds upper bound",
			},
			wantMsg: "config error at RATE_LIMIT_SPEED_TEST_TOKENS_PER_INTERVAL: value exceeds upper bound",
		},
		{
			name: "without key",
			err: &toolerrors.ConfigError{
				Reason: "file not found",
			},
			wantMsg: "config error: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ConfigError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("file read error")
	err := &toolerrors.ConfigError{
		Key:    "config",
		Reason: "failed to load",
		Cause:  cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("ConfigError.Unwrap() = %v, want %v", got, cause)
	}
}

func TestTimeoutError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *toolerrors.TimeoutError
		want    []string
		notWant []string
	}{
		{
			name: "probe timeout",
			err: &toolerrors.TimeoutError{
				Operation: "latency probe",
				Duration:  30 * time.Second,
			},
			want:    []string{"latency probe", "30s"},
			notWant: []string{},
		},
		{
			name: "speed test timeout",
			err: &toolerrors.TimeoutError{
				Operation: "comprehensive speed test",
				Duration:  2 * time.Minute,
			},
			want:    []string{"comprehensive speed test", "2m0s"},
			notWant: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("TimeoutError.Error() = %q, want to contain %q", got, want)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(got, notWant) {
					t.Errorf("TimeoutError.Error() = %q, should not contain %q", got, notWant)
				}
			}
		})
	}
}

func TestTimeoutError_Unwrap(t *testing.T) {
	cause := errors.New("context deadline exceeded")
	err := &toolerrors.TimeoutError{
		Operation: "test",
		Duration:  5 * time.Second,
		Cause:     cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("TimeoutError.Unwrap() = %v, want %v", got, cause)
	}
}

func TestErrorWrapping(t *testing.T) {
	t.Run("ValidationError can be wrapped", func(t *testing.T) {
		original := &toolerrors.ValidationError{
			Field:   "packetCount",
			Message: "invalid format",
		}
		wrapped := fmt.Errorf("argument validation: %w", original)

		var target *toolerrors.ValidationError
		if !errors.As(wrapped, &target) {
			t.Error("errors.As should find ValidationError in wrapped error")
		}
		if target.Field != "packetCount" {
			t.Errorf("unwrapped error Field = %q, want %q", target.Field, "packetCount")
		}
	})

	t.Run("ToolNotFoundError can be wrapped", func(t *testing.T) {
		original := &toolerrors.ToolNotFoundError{Name: "unknown_tool"}
		wrapped := fmt.Errorf("locating tool: %w", original)

		var target *toolerrors.ToolNotFoundError
		if !errors.As(wrapped, &target) {
			t.Error("errors.As should find ToolNotFoundError in wrapped error")
		}
		if target.Name != "unknown_tool" {
			t.Errorf("unwrapped error Name = %q, want %q", target.Name, "unknown_tool")
		}
	})

	t.Run("ProbeExecutionError preserves cause through wrapping", func(t *testing.T) {
		rootCause := errors.New("network timeout")
		probeErr := &toolerrors.ProbeExecutionError{
			Message: "request failed",
			Cause:   rootCause,
		}
		wrapped := fmt.Errorf("running probe: %w", probeErr)

		var target *toolerrors.ProbeExecutionError
		if !errors.As(wrapped, &target) {
			t.Error("errors.As should find ProbeExecutionError in wrapped error")
		}

		if target.Unwrap() != rootCause {
			t.Error("ProbeExecutionError.Unwrap() should return root cause")
		}
	})

	t.Run("ConfigError preserves cause through wrapping", func(t *testing.T) {
		rootCause := errors.New("file not found")
		configErr := &toolerrors.ConfigError{
			Key:    "RATE_LIMIT_BACKOFF_BASE_DELAY_MS",
			Reason: "missing required field",
			Cause:  rootCause,
		}
		wrapped := fmt.Errorf("loading config: %w", configErr)

		var target *toolerrors.ConfigError
		if !errors.As(wrapped, &target) {
			t.Error("errors.As should find ConfigError in wrapped error")
		}

		if target.Unwrap() != rootCause {
			t.Error("ConfigError.Unwrap() should return root cause")
		}
	})

	t.Run("TimeoutError preserves cause through wrapping", func(t *testing.T) {
		rootCause := errors.New("context deadline exceeded")
		timeoutErr := &toolerrors.TimeoutError{
			Operation: "test",
			Duration:  5 * time.Second,
			Cause:     rootCause,
		}
		wrapped := fmt.Errorf("operation timeout: %w", timeoutErr)

		var target *toolerrors.TimeoutError
		if !errors.As(wrapped, &target) {
			t.Error("errors.As should find TimeoutError in wrapped error")
		}

		if target.Unwrap() != rootCause {
			t.Error("TimeoutError.Unwrap() should return root cause")
		}
	})
}

func TestErrorsIs(t *testing.T) {
	t.Run("errors.Is works with wrapped ValidationError", func(t *testing.T) {
		original := &toolerrors.ValidationError{Field: "test"}
		wrapped := fmt.Errorf("wrapper: %w", original)

		if !errors.Is(wrapped, original) {
			t.Error("errors.Is should find original error in chain")
		}
	})

	t.Run("errors.Is works with wrapped ToolNotFoundError", func(t *testing.T) {
		original := &toolerrors.ToolNotFoundError{Name: "test"}
		wrapped := fmt.Errorf("wrapper: %w", original)

		if !errors.Is(wrapped, original) {
			t.Error("errors.Is should find original error in chain")
		}
	})
}
