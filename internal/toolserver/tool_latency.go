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
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/netdiag-toolserver/internal/probe"
	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

// LatencyArgs is the validated argument set for test_latency.
type LatencyArgs struct {
	CommonArgs
	PacketCount     int
	MeasurementType string
}

// LatencyResult is the data shape test_latency emits.
type LatencyResult struct {
	Latency         *float64 `json:"latency"`
	Jitter          *float64 `json:"jitter"`
	PacketsSent     int64    `json:"packetsSent"`
	PacketsReceived int64    `json:"packetsReceived"`
	PacketLoss      float64  `json:"packetLoss"`
}

func validateLatencyArgs(args map[string]interface{}) (ValidatedArgs, error) {
	common, err := parseCommonArgs(args)
	if err != nil {
		return nil, err
	}

	packetCount, err := intInRange(args, "packetCount", 10, 1, 100)
	if err != nil {
		return nil, err
	}

	measurementType := "unloaded"
	if v, present := args["measurementType"]; present {
		s, ok := v.(string)
		if !ok || (s != "unloaded" && s != "loaded") {
			return nil, &toolerrors.ValidationError{Field: "measurementType", Message: "must be 'unloaded' or 'loaded'"}
		}
		measurementType = s
	}

	return &LatencyArgs{CommonArgs: common, PacketCount: packetCount, MeasurementType: measurementType}, nil
}

func runLatency(ctx context.Context, deps *Deps, rawArgs ValidatedArgs, deadlineMs int64) (interface{}, error) {
	args := rawArgs.(*LatencyArgs)

	results, err := deps.Probe.RunProbe(ctx, probe.ShapeLatency, deadlineMs)
	if err != nil {
		return nil, err
	}

	packetsSent := int64(args.PacketCount)
	packetsReceived := packetsSent
	if results.PacketsSent != nil {
		packetsSent = *results.PacketsSent
	}
	if results.PacketsReceived != nil {
		packetsReceived = *results.PacketsReceived
	}

	return &LatencyResult{
		Latency:         results.UnloadedLatencyMs,
		Jitter:          results.Jitter,
		PacketsSent:     packetsSent,
		PacketsReceived: packetsReceived,
		PacketLoss:      0,
	}, nil
}

var latencyToolDef = &ToolDef{
	Name:              "test_latency",
	Description:       "Measure round-trip latency and jitter against the nearest edge server.",
	OperationClass:    ratelimit.ClassLatencyTest,
	DefaultDeadlineMs: 30_000,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"timeout":         map[string]interface{}{"type": "number", "description": "Overall deadline in seconds (1-300)"},
			"serverLocation":  map[string]interface{}{"type": "string", "description": "Preferred edge server code"},
			"packetCount":     map[string]interface{}{"type": "integer", "description": "Number of probe packets (1-100, default 10)"},
			"measurementType": map[string]interface{}{"type": "string", "enum": []string{"unloaded", "loaded"}, "description": "unloaded (default) or loaded latency"},
		},
	},
	Validate: validateLatencyArgs,
	Run:      runLatency,
}
