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

func TestValidateConnectionInfoArgs_DefaultsBothTrue(t *testing.T) {
	validated, err := validateConnectionInfoArgs(map[string]interface{}{})
	require.NoError(t, err)

	args := validated.(*ConnectionInfoArgs)
	assert.True(t, args.IncludeLocation)
	assert.True(t, args.IncludeISP)
}

func TestValidateConnectionInfoArgs_RejectsNonBoolean(t *testing.T) {
	_, err := validateConnectionInfoArgs(map[string]interface{}{"includeISP": "yes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "includeISP")
}

func TestRunConnectionInfo_HidesISPWhenDisabled(t *testing.T) {
	fake := &fakeProbeClient{trace: probe.Trace{IP: "203.0.113.5", ISP: "Acme Broadband", Country: "GB"}}
	args := &ConnectionInfoArgs{IncludeLocation: true, IncludeISP: false}

	data, err := runConnectionInfo(context.Background(), &Deps{Probe: fake}, args, 30_000)
	require.NoError(t, err)

	result := data.(*ConnectionInfoResult)
	assert.Equal(t, "203.0.113.5", result.IP)
	assert.Equal(t, "Hidden", result.ISP)
	assert.NotNil(t, result.Location)
}

func TestRunConnectionInfo_OmitsLocationWhenDisabled(t *testing.T) {
	fake := &fakeProbeClient{trace: probe.Trace{IP: "203.0.113.5", ISP: "Acme Broadband", Country: "GB"}}
	args := &ConnectionInfoArgs{IncludeLocation: false, IncludeISP: true}

	data, err := runConnectionInfo(context.Background(), &Deps{Probe: fake}, args, 30_000)
	require.NoError(t, err)

	result := data.(*ConnectionInfoResult)
	assert.Equal(t, "Acme Broadband", result.ISP)
	assert.Nil(t, result.Location)
}

func TestRunConnectionInfo_ConnectionDetailAlwaysUnknown(t *testing.T) {
	fake := &fakeProbeClient{trace: probe.Trace{IP: "203.0.113.5"}}
	args := &ConnectionInfoArgs{IncludeLocation: true, IncludeISP: true}

	data, err := runConnectionInfo(context.Background(), &Deps{Probe: fake}, args, 30_000)
	require.NoError(t, err)

	result := data.(*ConnectionInfoResult)
	assert.Equal(t, "unknown", result.Connection.Type)
	assert.Equal(t, "unknown", result.Connection.ASN)
	assert.Equal(t, "unknown", result.Connection.Organization)
}

func TestRunConnectionInfo_PropagatesTraceError(t *testing.T) {
	fake := &fakeProbeClient{traceErr: newTestError("trace endpoint unreachable")}
	args := &ConnectionInfoArgs{IncludeLocation: true, IncludeISP: true}

	_, err := runConnectionInfo(context.Background(), &Deps{Probe: fake}, args, 30_000)
	require.Error(t, err)
}
