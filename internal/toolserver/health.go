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
	"time"
)

// HealthReport summarizes a single startup health pass over this process's
// collaborators.
type HealthReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []HealthCheck `json:"checks"`
}

// HealthCheck is one named pass/warn/fail result.
type HealthCheck struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // "pass", "warn", "fail"
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

const healthCheckTimeout = 10 * time.Second

// RunStartupHealthChecks probes the upstream backend and confirms the rate
// limiter recognizes every operation class this server binds a tool to,
// so a misconfiguration surfaces at startup instead of on the first tool
// call (spec.md §9 "fail fast on startup, not on first invocation").
func RunStartupHealthChecks(ctx context.Context, deps *Deps) HealthReport {
	report := HealthReport{Healthy: true}

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	upstream := HealthCheck{Name: "probe_backend"}
	if deps.Probe.HealthCheck(checkCtx, healthCheckTimeout.Milliseconds()) {
		upstream.Status = "pass"
		upstream.Message = "probe backend reachable"
	} else {
		upstream.Status = "warn"
		upstream.Message = "probe backend unreachable at startup"
		upstream.Remediation = "verify PROBE_URL/TRACE_URL/LOCATION_URL point at a live backend; tools will fail until it recovers"
		report.Healthy = false
	}
	report.Checks = append(report.Checks, upstream)

	for _, tool := range NewRegistry().List() {
		_, err := deps.Limiter.Status(tool.OperationClass)
		check := HealthCheck{Name: "rate_limit_class:" + string(tool.OperationClass)}
		if err != nil {
			check.Status = "fail"
			check.Message = "operation class has no configured bucket"
			check.Remediation = "check RATE_LIMIT_" + tool.OperationClass.EnvName() + "_* env vars or the config file"
			report.Healthy = false
		} else {
			check.Status = "pass"
			check.Message = "bucket configured"
		}
		report.Checks = append(report.Checks, check)
	}

	return report
}
