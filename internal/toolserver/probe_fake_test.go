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

	"github.com/tombee/netdiag-toolserver/internal/probe"
)

// fakeProbeClient is a deterministic stand-in for internal/probe.Client in
// pipeline and per-tool tests.
type fakeProbeClient struct {
	results        probe.Results
	resultsErr     error
	trace          probe.Trace
	traceErr       error
	healthy        bool
	runProbeCalled int
	getTraceCalled int
}

func (f *fakeProbeClient) RunProbe(ctx context.Context, shape probe.Shape, deadlineMs int64) (probe.Results, error) {
	f.runProbeCalled++
	if f.resultsErr != nil {
		return probe.Results{}, f.resultsErr
	}
	return f.results, nil
}

func (f *fakeProbeClient) GetTrace(ctx context.Context, deadlineMs int64) (probe.Trace, error) {
	f.getTraceCalled++
	if f.traceErr != nil {
		return probe.Trace{}, f.traceErr
	}
	return f.trace, nil
}

func (f *fakeProbeClient) HealthCheck(ctx context.Context, deadlineMs int64) bool {
	return f.healthy
}

func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }
