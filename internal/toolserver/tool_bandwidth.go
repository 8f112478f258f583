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

// BandwidthArgs is the validated argument set shared by test_download_speed
// and test_upload_speed (spec.md §4.4 — identical input shape).
type BandwidthArgs struct {
	CommonArgs
	DurationSeconds  int
	MeasurementBytes int64
}

// BandwidthResult is the data shape both bandwidth tools emit.
type BandwidthResult struct {
	Bandwidth  *float64 `json:"bandwidth"`
	Bytes      int64    `json:"bytes"`
	Duration   int      `json:"duration"`
	Throughput *float64 `json:"throughput"`
}

func validateBandwidthArgs(args map[string]interface{}) (ValidatedArgs, error) {
	common, err := parseCommonArgs(args)
	if err != nil {
		return nil, err
	}

	duration, err := intInRange(args, "duration", 15, 5, 60)
	if err != nil {
		return nil, err
	}

	measurementBytes := int64(10 * 1024 * 1024)
	if v, present := args["measurementBytes"]; present {
		f, ok := toFloat64(v)
		if !ok {
			return nil, &toolerrors.ValidationError{Field: "measurementBytes", Message: "must be a number"}
		}
		n := int64(f)
		if n < 1024 || n > (1<<30) {
			return nil, &toolerrors.ValidationError{Field: "measurementBytes", Message: "must be between 1024 and 1073741824"}
		}
		measurementBytes = n
	}

	return &BandwidthArgs{CommonArgs: common, DurationSeconds: duration, MeasurementBytes: measurementBytes}, nil
}

func bandwidthResult(bps *float64, bytes int64, duration int) *BandwidthResult {
	var throughput *float64
	if bps != nil {
		t := *bps / 8
		throughput = &t
	}
	return &BandwidthResult{Bandwidth: bps, Bytes: bytes, Duration: duration, Throughput: throughput}
}

func runDownload(ctx context.Context, deps *Deps, rawArgs ValidatedArgs, deadlineMs int64) (interface{}, error) {
	args := rawArgs.(*BandwidthArgs)
	results, err := deps.Probe.RunProbe(ctx, probe.ShapeDownload, deadlineMs)
	if err != nil {
		return nil, err
	}
	return bandwidthResult(results.DownloadBandwidthBps, args.MeasurementBytes, args.DurationSeconds), nil
}

func runUpload(ctx context.Context, deps *Deps, rawArgs ValidatedArgs, deadlineMs int64) (interface{}, error) {
	args := rawArgs.(*BandwidthArgs)
	results, err := deps.Probe.RunProbe(ctx, probe.ShapeUpload, deadlineMs)
	if err != nil {
		return nil, err
	}
	return bandwidthResult(results.UploadBandwidthBps, args.MeasurementBytes, args.DurationSeconds), nil
}

func bandwidthSchema() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"timeout":          map[string]interface{}{"type": "number", "description": "Overall deadline in seconds (1-300)"},
			"serverLocation":   map[string]interface{}{"type": "string", "description": "Preferred edge server code"},
			"duration":         map[string]interface{}{"type": "integer", "description": "Measurement duration in seconds (5-60, default 15)"},
			"measurementBytes": map[string]interface{}{"type": "integer", "description": "Bytes to transfer (1024-1073741824, default 10MiB)"},
		},
	}
}

var downloadToolDef = &ToolDef{
	Name:              "test_download_speed",
	Description:       "Measure download bandwidth against the nearest edge server.",
	OperationClass:    ratelimit.ClassDownloadTest,
	DefaultDeadlineMs: 30_000,
	InputSchema:       bandwidthSchema(),
	Validate:          validateBandwidthArgs,
	Run:               runDownload,
}

var uploadToolDef = &ToolDef{
	Name:              "test_upload_speed",
	Description:       "Measure upload bandwidth against the nearest edge server.",
	OperationClass:    ratelimit.ClassUploadTest,
	DefaultDeadlineMs: 30_000,
	InputSchema:       bandwidthSchema(),
	Validate:          validateBandwidthArgs,
	Run:               runUpload,
}
