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
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
)

// SpeedTestArgs is the validated argument set for run_speed_test.
type SpeedTestArgs struct {
	CommonArgs
	TestTypes         []string
	LatencyOptions    map[string]interface{}
	DownloadOptions   map[string]interface{}
	UploadOptions     map[string]interface{}
	PacketLossOptions map[string]interface{}
}

// SpeedTestSummary is the "summary" field of SpeedTestResult.
type SpeedTestSummary struct {
	OverallScore    int      `json:"overallScore"`
	Classification  string   `json:"classification"`
	Recommendations []string `json:"recommendations"`
}

// SpeedTestResult is the data shape run_speed_test emits.
type SpeedTestResult struct {
	Download   *BandwidthResult  `json:"download,omitempty"`
	Upload     *BandwidthResult  `json:"upload,omitempty"`
	Latency    *LatencyResult    `json:"latency,omitempty"`
	PacketLoss *PacketLossResult `json:"packetLoss,omitempty"`
	Summary    SpeedTestSummary  `json:"summary"`
}

func subArgs(args map[string]interface{}, key string) map[string]interface{} {
	if v, ok := args[key].(map[string]interface{}); ok {
		return v
	}
	return map[string]interface{}{}
}

func validateSpeedTestArgs(args map[string]interface{}) (ValidatedArgs, error) {
	common, err := parseCommonArgs(args)
	if err != nil {
		return nil, err
	}

	testTypes, err := uniqueTestTypes(args)
	if err != nil {
		return nil, err
	}

	return &SpeedTestArgs{
		CommonArgs:        common,
		TestTypes:         testTypes,
		LatencyOptions:    subArgs(args, "latencyOptions"),
		DownloadOptions:   subArgs(args, "downloadOptions"),
		UploadOptions:     subArgs(args, "uploadOptions"),
		PacketLossOptions: subArgs(args, "packetLossOptions"),
	}, nil
}

func hasTestType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// latencyScore, downloadScore, uploadScore, and packetLossScore implement
// spec.md §4.4's comprehensive-test scoring formulas.
func latencyScore(latencyMs float64) (score float64, recommend bool) {
	score = math.Max(0, 100-latencyMs/10)
	return score, latencyMs > 100
}

func downloadScore(bps float64) (score float64, recommend bool) {
	mbps := bps / 1e6
	score = math.Min(100, (mbps/100)*100)
	return score, mbps < 25
}

func uploadScore(bps float64) (score float64, recommend bool) {
	mbps := bps / 1e6
	score = math.Min(100, (mbps/25)*100)
	return score, mbps < 10
}

func packetLossScore(lossPct float64) (score float64, recommend bool) {
	score = math.Max(0, 100-lossPct*10)
	return score, lossPct > 1
}

func classificationFor(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	default:
		return "poor"
	}
}

func runSpeedTest(ctx context.Context, deps *Deps, rawArgs ValidatedArgs, deadlineMs int64) (interface{}, error) {
	args := rawArgs.(*SpeedTestArgs)

	result := &SpeedTestResult{}
	var scores []float64
	var recommendations []string

	if hasTestType(args.TestTypes, "latency") {
		latencyArgs, err := validateLatencyArgs(args.LatencyOptions)
		if err != nil {
			return nil, err
		}
		data, err := runLatency(ctx, deps, latencyArgs, deadlineMs)
		if err != nil {
			return nil, err
		}
		latencyResult := data.(*LatencyResult)
		result.Latency = latencyResult
		if latencyResult.Latency != nil {
			score, recommend := latencyScore(*latencyResult.Latency)
			scores = append(scores, score)
			if recommend {
				recommendations = append(recommendations, "High latency detected; consider a closer server location.")
			}
		}
	}

	if hasTestType(args.TestTypes, "download") {
		downloadArgs, err := validateBandwidthArgs(args.DownloadOptions)
		if err != nil {
			return nil, err
		}
		data, err := runDownload(ctx, deps, downloadArgs, deadlineMs)
		if err != nil {
			return nil, err
		}
		downloadResult := data.(*BandwidthResult)
		result.Download = downloadResult
		if downloadResult.Bandwidth != nil {
			score, recommend := downloadScore(*downloadResult.Bandwidth)
			scores = append(scores, score)
			if recommend {
				recommendations = append(recommendations, "Download bandwidth is below 25 Mbps.")
			}
		}
	}

	if hasTestType(args.TestTypes, "upload") {
		uploadArgs, err := validateBandwidthArgs(args.UploadOptions)
		if err != nil {
			return nil, err
		}
		data, err := runUpload(ctx, deps, uploadArgs, deadlineMs)
		if err != nil {
			return nil, err
		}
		uploadResult := data.(*BandwidthResult)
		result.Upload = uploadResult
		if uploadResult.Bandwidth != nil {
			score, recommend := uploadScore(*uploadResult.Bandwidth)
			scores = append(scores, score)
			if recommend {
				recommendations = append(recommendations, "Upload bandwidth is below 10 Mbps.")
			}
		}
	}

	if hasTestType(args.TestTypes, "packetLoss") {
		packetLossArgs, err := validatePacketLossArgs(args.PacketLossOptions)
		if err != nil {
			return nil, err
		}
		data, err := runPacketLoss(ctx, deps, packetLossArgs, deadlineMs)
		if err != nil {
			return nil, err
		}
		packetLossResult := data.(*PacketLossResult)
		result.PacketLoss = packetLossResult
		score, recommend := packetLossScore(packetLossResult.PacketLoss)
		scores = append(scores, score)
		if recommend {
			recommendations = append(recommendations, "Packet loss exceeds 1%.")
		}
	}

	overall := 0.0
	for _, s := range scores {
		overall += s
	}
	if len(scores) > 0 {
		overall /= float64(len(scores))
	}
	overallScore := int(math.Round(overall))

	result.Summary = SpeedTestSummary{
		OverallScore:    overallScore,
		Classification:  classificationFor(overallScore),
		Recommendations: recommendations,
	}

	return result, nil
}

var speedTestToolDef = &ToolDef{
	Name:              "run_speed_test",
	Description:       "Run a composite speed test across latency, download, upload, and packet loss, with an overall classification.",
	OperationClass:    ratelimit.ClassSpeedTest,
	DefaultDeadlineMs: 120_000,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"timeout":           map[string]interface{}{"type": "number", "description": "Overall deadline in seconds (1-300)"},
			"serverLocation":    map[string]interface{}{"type": "string", "description": "Preferred edge server code"},
			"testTypes":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string", "enum": []string{"latency", "download", "upload", "packetLoss"}}, "description": "Subset of tests to run (default: all four)"},
			"latencyOptions":    map[string]interface{}{"type": "object", "description": "Options forwarded to the latency component"},
			"downloadOptions":   map[string]interface{}{"type": "object", "description": "Options forwarded to the download component"},
			"uploadOptions":     map[string]interface{}{"type": "object", "description": "Options forwarded to the upload component"},
			"packetLossOptions": map[string]interface{}{"type": "object", "description": "Options forwarded to the packet-loss component"},
		},
	},
	Validate: validateSpeedTestArgs,
	Run:      runSpeedTest,
}
