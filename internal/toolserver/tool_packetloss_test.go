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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/netdiag-toolserver/internal/probe"
)

func TestValidatePacketLossArgs_Defaults(t *testing.T) {
	validated, err := validatePacketLossArgs(map[string]interface{}{})
	require.NoError(t, err)

	args := validated.(*PacketLossArgs)
	assert.Equal(t, 100, args.PacketCount)
	assert.Equal(t, 10, args.BatchSize)
	assert.Equal(t, 1000, args.BatchWaitTime)
}

func TestValidatePacketLossArgs_BatchSizeExceedingPacketCountRejected(t *testing.T) {
	_, err := validatePacketLossArgs(map[string]interface{}{"packetCount": 10, "batchSize": 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batchSize")
}

func TestValidatePacketLossArgs_PacketCountOutOfRange(t *testing.T) {
	_, err := validatePacketLossArgs(map[string]interface{}{"packetCount": 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "packetCount")
}

func TestRunPacketLoss_SplitsIntoEvenBatches(t *testing.T) {
	fake := &fakeProbeClient{results: probe.Results{PacketLossFraction: floatPtr(0.1)}}
	args := &PacketLossArgs{PacketCount: 100, BatchSize: 10, BatchWaitTime: 1000}

	data, err := runPacketLoss(context.Background(), &Deps{Probe: fake}, args, 60_000)
	require.NoError(t, err)

	result := data.(*PacketLossResult)
	assert.Equal(t, int64(100), result.TotalPackets)
	assert.Equal(t, int64(10), result.LostPackets)
	assert.InDelta(t, 10.0, result.PacketLoss, 0.001)
	assert.Len(t, result.BatchResults, 10)

	var totalSent, totalReceived int64
	for _, b := range result.BatchResults {
		totalSent += b.Sent
		totalReceived += b.Received
	}
	assert.Equal(t, int64(100), totalSent)
	assert.Equal(t, int64(90), totalReceived)
}

func TestRunPacketLoss_UnevenLastBatch(t *testing.T) {
	fake := &fakeProbeClient{results: probe.Results{PacketLossFraction: floatPtr(0)}}
	args := &PacketLossArgs{PacketCount: 25, BatchSize: 10, BatchWaitTime: 1000}

	data, err := runPacketLoss(context.Background(), &Deps{Probe: fake}, args, 60_000)
	require.NoError(t, err)

	result := data.(*PacketLossResult)
	require.Len(t, result.BatchResults, 3)
	assert.Equal(t, int64(10), result.BatchResults[0].Sent)
	assert.Equal(t, int64(10), result.BatchResults[1].Sent)
	assert.Equal(t, int64(5), result.BatchResults[2].Sent)
}

func TestRunPacketLoss_NilLossFractionDefaultsToZero(t *testing.T) {
	fake := &fakeProbeClient{results: probe.Results{}}
	args := &PacketLossArgs{PacketCount: 10, BatchSize: 10, BatchWaitTime: 1000}

	data, err := runPacketLoss(context.Background(), &Deps{Probe: fake}, args, 60_000)
	require.NoError(t, err)

	result := data.(*PacketLossResult)
	assert.Equal(t, 0.0, result.PacketLoss)
	assert.Equal(t, int64(0), result.LostPackets)
}
