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

	"github.com/tombee/netdiag-toolserver/internal/probe"
	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

// PacketLossArgs is the validated argument set for test_packet_loss.
type PacketLossArgs struct {
	CommonArgs
	PacketCount   int
	BatchSize     int
	BatchWaitTime int
}

// BatchResult is one entry of test_packet_loss's batchResults array.
type BatchResult struct {
	Sent     int64   `json:"sent"`
	Received int64   `json:"received"`
	Loss     float64 `json:"loss"`
}

// PacketLossResult is the data shape test_packet_loss emits.
type PacketLossResult struct {
	PacketLoss   float64       `json:"packetLoss"`
	TotalPackets int64         `json:"totalPackets"`
	LostPackets  int64         `json:"lostPackets"`
	BatchResults []BatchResult `json:"batchResults"`
}

func validatePacketLossArgs(args map[string]interface{}) (ValidatedArgs, error) {
	common, err := parseCommonArgs(args)
	if err != nil {
		return nil, err
	}

	packetCount, err := intInRange(args, "packetCount", 100, 10, 1000)
	if err != nil {
		return nil, err
	}

	batchSize, err := intInRange(args, "batchSize", 10, 1, 50)
	if err != nil {
		return nil, err
	}

	batchWaitTime, err := intInRange(args, "batchWaitTime", 1000, 100, 5000)
	if err != nil {
		return nil, err
	}

	if batchSize > packetCount {
		return nil, &toolerrors.ValidationError{Field: "batchSize", Message: "must not exceed packetCount"}
	}

	return &PacketLossArgs{CommonArgs: common, PacketCount: packetCount, BatchSize: batchSize, BatchWaitTime: batchWaitTime}, nil
}

func runPacketLoss(ctx context.Context, deps *Deps, rawArgs ValidatedArgs, deadlineMs int64) (interface{}, error) {
	args := rawArgs.(*PacketLossArgs)

	results, err := deps.Probe.RunProbe(ctx, probe.ShapePacketLoss, deadlineMs)
	if err != nil {
		return nil, err
	}

	totalPackets := int64(args.PacketCount)
	lossFraction := 0.0
	if results.PacketLossFraction != nil {
		lossFraction = *results.PacketLossFraction
	}
	lostPackets := int64(math.Round(lossFraction * float64(totalPackets)))

	numBatches := (args.PacketCount + args.BatchSize - 1) / args.BatchSize
	batches := make([]BatchResult, 0, numBatches)
	remainingLost := lostPackets
	remaining := totalPackets
	for i := 0; i < numBatches; i++ {
		batchSent := int64(args.BatchSize)
		if remaining < batchSent {
			batchSent = remaining
		}
		batchLost := int64(math.Round(lossFraction * float64(batchSent)))
		if batchLost > remainingLost {
			batchLost = remainingLost
		}
		remainingLost -= batchLost
		remaining -= batchSent
		batchReceived := batchSent - batchLost
		batchLossPct := 0.0
		if batchSent > 0 {
			batchLossPct = float64(batchLost) / float64(batchSent) * 100
		}
		batches = append(batches, BatchResult{Sent: batchSent, Received: batchReceived, Loss: batchLossPct})
	}

	return &PacketLossResult{
		PacketLoss:   lossFraction * 100,
		TotalPackets: totalPackets,
		LostPackets:  lostPackets,
		BatchResults: batches,
	}, nil
}

var packetLossToolDef = &ToolDef{
	Name:              "test_packet_loss",
	Description:       "Measure packet loss against the nearest edge server using batched probes.",
	OperationClass:    ratelimit.ClassPacketLossTest,
	DefaultDeadlineMs: 60_000,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"timeout":        map[string]interface{}{"type": "number", "description": "Overall deadline in seconds (1-300)"},
			"serverLocation": map[string]interface{}{"type": "string", "description": "Preferred edge server code"},
			"packetCount":    map[string]interface{}{"type": "integer", "description": "Total packets to send (10-1000, default 100)"},
			"batchSize":      map[string]interface{}{"type": "integer", "description": "Packets per batch (1-50, default 10)"},
			"batchWaitTime":  map[string]interface{}{"type": "integer", "description": "Milliseconds between batches (100-5000, default 1000)"},
		},
	},
	Validate: validatePacketLossArgs,
	Run:      runPacketLoss,
}
