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
	"fmt"

	"github.com/tombee/netdiag-toolserver/internal/util"
	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

// CommonArgs is the subset of every tool's argument object shared across
// the seven tools (spec.md §4.4 "All tools accept a common {timeout,
// serverLocation}").
type CommonArgs struct {
	TimeoutSeconds int
	ServerLocation string
}

// Timeout returns the caller-supplied timeout in seconds, or 0 if the
// caller didn't set one.
func (c CommonArgs) Timeout() int { return c.TimeoutSeconds }

// ValidatedArgs is implemented by every tool's parsed argument struct.
type ValidatedArgs interface {
	Timeout() int
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func toStringSlice(v interface{}) ([]string, bool) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// parseCommonArgs extracts and validates the shared timeout/serverLocation
// fields present in every tool's argument object.
func parseCommonArgs(args map[string]interface{}) (CommonArgs, error) {
	var c CommonArgs

	if v, present := args["timeout"]; present {
		f, ok := toFloat64(v)
		if !ok {
			return c, &toolerrors.ValidationError{Field: "timeout", Message: "must be a number"}
		}
		if f < 1 || f > 300 {
			return c, &toolerrors.ValidationError{Field: "timeout", Message: "must be between 1 and 300 seconds"}
		}
		c.TimeoutSeconds = int(f)
	}

	if v, present := args["serverLocation"]; present {
		s, ok := v.(string)
		if !ok || s == "" {
			return c, &toolerrors.ValidationError{Field: "serverLocation", Message: "must be a non-empty string"}
		}
		c.ServerLocation = s
	}

	return c, nil
}

// intInRange parses an optional integer field, applying def when absent and
// failing validation when present but outside [min, max].
func intInRange(args map[string]interface{}, field string, def, min, max int) (int, error) {
	v, present := args[field]
	if !present {
		return def, nil
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, &toolerrors.ValidationError{Field: field, Message: "must be a number"}
	}
	n := int(f)
	if n < min || n > max {
		return 0, &toolerrors.ValidationError{Field: field, Message: rangeMessage(min, max)}
	}
	return n, nil
}

func rangeMessage(min, max int) string {
	return fmt.Sprintf("must be between %d and %d", min, max)
}

func argTypeError(field, wantType string) error {
	return &toolerrors.ValidationError{Field: field, Message: fmt.Sprintf("must be a %s", wantType)}
}

// uniqueTestTypes validates the run_speed_test testTypes field: a nonempty,
// unique subset of {latency, download, upload, packetLoss}.
func uniqueTestTypes(args map[string]interface{}) ([]string, error) {
	allowed := []string{"latency", "download", "upload", "packetLoss"}

	v, present := args["testTypes"]
	if !present {
		return allowed, nil
	}

	types, ok := toStringSlice(v)
	if !ok {
		return nil, &toolerrors.ValidationError{Field: "testTypes", Message: "must be an array of strings"}
	}
	if len(types) == 0 {
		return nil, &toolerrors.ValidationError{Field: "testTypes", Message: "must not be empty"}
	}
	if !util.Unique(types) {
		return nil, &toolerrors.ValidationError{Field: "testTypes", Message: "must not contain duplicates"}
	}
	if !util.SubsetOf(types, allowed) {
		return nil, &toolerrors.ValidationError{Field: "testTypes", Message: "must be a subset of latency, download, upload, packetLoss"}
	}
	return types, nil
}
