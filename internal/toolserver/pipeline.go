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

// Package toolserver implements the tool pipeline and the seven concrete
// network-diagnostic tools: a single validate -> admit -> run -> shape ->
// emit lifecycle applied identically to every invocation (spec.md §4.4),
// plus their MCP registration.
package toolserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/netdiag-toolserver/internal/catalog"
	"github.com/tombee/netdiag-toolserver/internal/clock"
	"github.com/tombee/netdiag-toolserver/internal/metrics"
	"github.com/tombee/netdiag-toolserver/internal/probe"
	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
	"github.com/tombee/netdiag-toolserver/internal/tracing"
	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

// ProbeClient is the subset of internal/probe.Client the pipeline depends
// on, narrowed to an interface so tools are testable against a fake.
type ProbeClient interface {
	RunProbe(ctx context.Context, shape probe.Shape, deadlineMs int64) (probe.Results, error)
	GetTrace(ctx context.Context, deadlineMs int64) (probe.Trace, error)
	HealthCheck(ctx context.Context, deadlineMs int64) bool
}

// Deps bundles the process-wide collaborators every tool run needs. Wired
// once at startup and threaded through explicitly (spec.md §9 "Global
// state... avoid implicit module-level singletons").
type Deps struct {
	Limiter *ratelimit.Limiter
	Catalog *catalog.Catalog
	Probe   ProbeClient
	Clock   clock.Clock
	Logger  *slog.Logger
}

// ToolDef is one entry in the tool registry: schema, operation-class
// binding, and the validate/run pair the pipeline invokes (spec.md §9
// "Polymorphism over tools... a tagged record plus a shared execution
// function").
type ToolDef struct {
	Name              string
	Description       string
	OperationClass    ratelimit.OperationClass
	InputSchema       mcp.ToolInputSchema
	DefaultDeadlineMs int64
	Validate          func(args map[string]interface{}) (ValidatedArgs, error)
	Run               func(ctx context.Context, deps *Deps, args ValidatedArgs, deadlineMs int64) (interface{}, error)
}

// Pipeline runs the shared lifecycle for every registered tool.
type Pipeline struct {
	deps *Deps
}

// NewPipeline constructs a Pipeline over deps.
func NewPipeline(deps *Deps) *Pipeline {
	return &Pipeline{deps: deps}
}

// Execute runs validate -> admit -> run -> shape -> emit for one
// invocation. Release always runs on every exit path via defer, satisfying
// the scoped-release contract (spec.md §8 property 3) regardless of which
// phase fails.
func (p *Pipeline) Execute(ctx context.Context, tool *ToolDef, rawArgs map[string]interface{}) *mcp.CallToolResult {
	if tracing.FromContextOrEmpty(ctx) == "" {
		ctx = tracing.ToContext(ctx, tracing.NewCorrelationID())
	}
	corrID := tracing.FromContext(ctx)
	logger := p.deps.Logger.With("correlation_id", corrID.String(), "tool", tool.Name)

	start := p.deps.Clock.Now()

	validated, err := tool.Validate(rawArgs)
	if err != nil {
		logger.Warn("validation failed", "error", err)
		return emit(tool.Name, nil, err, start, p.deps.Clock)
	}

	class := string(tool.OperationClass)
	if err := p.deps.Limiter.Acquire(tool.OperationClass); err != nil {
		metrics.RecordAdmission(class, "denied")
		var exceeded *ratelimit.ExceededError
		if errors.As(err, &exceeded) {
			metrics.RecordAdmissionDenial(class, string(exceeded.Reason))
		}
		logger.Warn("admission denied", "error", err)
		return emit(tool.Name, nil, err, start, p.deps.Clock)
	}
	metrics.RecordAdmission(class, "admitted")
	defer p.deps.Limiter.Release(tool.OperationClass)

	deadlineMs := tool.DefaultDeadlineMs
	if seconds := validated.Timeout(); seconds > 0 {
		deadlineMs = int64(seconds) * 1000
	}

	runStart := p.deps.Clock.Now()
	data, err := tool.Run(ctx, p.deps, validated, deadlineMs)
	metrics.ObserveProbeDuration(tool.Name, p.deps.Clock.Now().Sub(runStart).Seconds())
	if err != nil {
		logger.Warn("tool run failed", "error", err)
		return emit(tool.Name, nil, err, start, p.deps.Clock)
	}

	logger.Debug("tool run succeeded")
	return emit(tool.Name, data, nil, start, p.deps.Clock)
}

// argsFromRequest converts an MCP call's arguments to the plain map every
// tool's Validate function expects.
func argsFromRequest(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, &toolerrors.ValidationError{Message: "arguments must be a JSON object"}
	}
	return args, nil
}
