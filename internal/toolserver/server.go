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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	toollog "github.com/tombee/netdiag-toolserver/internal/log"
	"github.com/tombee/netdiag-toolserver/internal/tracing"
	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

// Server wraps the MCP server and exposes the seven network-diagnostic
// tools over stdio.
type Server struct {
	mcpServer *server.MCPServer
	name      string
	version   string
	pipeline  *Pipeline
	registry  *Registry
	logger    *slog.Logger
	rpcLog    *toollog.RPCMiddleware

	inFlight     sync.WaitGroup
	shuttingDown atomic.Bool
}

// Config configures the tool server.
type Config struct {
	// Name is the server name reported to the MCP client.
	Name string

	// Version is the server's version string.
	Version string

	// Deps bundles the rate limiter, catalog, probe client, clock, and
	// logger every tool run depends on.
	Deps *Deps
}

// NewServer wires the tool registry, pipeline, and MCP transport together.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		cfg.Name = "netdiag-toolserver"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Deps == nil {
		return nil, fmt.Errorf("toolserver: Deps must not be nil")
	}
	if cfg.Deps.Logger == nil {
		cfg.Deps.Logger = toollog.New(toollog.DefaultConfig())
	}

	s := &Server{
		mcpServer: server.NewMCPServer(cfg.Name, cfg.Version),
		name:      cfg.Name,
		version:   cfg.Version,
		pipeline:  NewPipeline(cfg.Deps),
		registry:  NewRegistry(),
		logger:    cfg.Deps.Logger,
		rpcLog:    toollog.NewRPCMiddleware(cfg.Deps.Logger),
	}

	s.registerTools()

	return s, nil
}

// registerTools binds every entry in the registry to the underlying MCP
// server, each routed through the shared pipeline (spec.md §9 "a tagged
// record plus a shared execution function"). Every handler dispatches
// through registry.Lookup rather than closing directly over its ToolDef, so
// the pipeline's own ToolNotFoundError/VALIDATION_ERROR envelope (spec.md
// §4.5 "execute(name, args) fails with ToolNotFound for unknown names") is
// the tool server's contract regardless of what mcp-go's own router does
// with a name it never registered.
func (s *Server) registerTools() {
	for _, tool := range s.registry.List() {
		s.mcpServer.AddTool(mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, s.handlerFor(tool.Name))
	}
}

func (s *Server) handlerFor(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lookupName := name
		if request.Params.Name != "" {
			lookupName = request.Params.Name
		}

		if s.shuttingDown.Load() {
			err := &toolerrors.ValidationError{Message: "server is shutting down, not accepting new tool invocations"}
			return emit(lookupName, nil, err, s.pipeline.deps.Clock.Now(), s.pipeline.deps.Clock), nil
		}
		s.inFlight.Add(1)
		defer s.inFlight.Done()

		tool, err := s.registry.Lookup(lookupName)
		if err != nil {
			return emit(lookupName, nil, err, s.pipeline.deps.Clock.Now(), s.pipeline.deps.Clock), nil
		}

		args, err := argsFromRequest(request)
		if err != nil {
			return emit(tool.Name, nil, err, s.pipeline.deps.Clock.Now(), s.pipeline.deps.Clock), nil
		}

		if tracing.FromContextOrEmpty(ctx) == "" {
			ctx = tracing.ToContext(ctx, tracing.NewCorrelationID())
		}

		rpcReq := &toollog.RPCRequest{
			MessageType:   "execute_tool",
			CorrelationID: tracing.FromContext(ctx).String(),
			Metadata: map[string]interface{}{
				"tool":            tool.Name,
				"operation_class": string(tool.OperationClass),
			},
		}

		var result *mcp.CallToolResult
		_ = s.rpcLog.Handler(rpcReq, func() error {
			result = s.pipeline.Execute(ctx, tool, args)
			if result.IsError {
				return errors.New("tool invocation returned an error envelope")
			}
			return nil
		})

		return result, nil
	}
}

// Run starts the MCP server using stdio transport. Cancelling ctx does not
// interrupt the blocking stdio read loop (mcp-go's ServeStdio exposes no
// hook for that in the version this server vendors), but it does flip the
// same shuttingDown flag Shutdown uses, so any invocation that reaches a
// handler after cancellation is rejected before it does any work rather
// than admitted and raced against process exit.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting network diagnostic tool server", "version", s.version)

	go func() {
		<-ctx.Done()
		s.shuttingDown.Store(true)
	}()

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

// Shutdown stops the server from admitting new tool invocations and waits
// for in-flight ones to finish, bounded by ctx (spec.md §5 "Shutdown": stop
// accepting new work, drain in-flight work, then release resources). It
// returns once every invocation counted in inFlight has called Done, or
// once ctx is done, whichever comes first. Invocations still running past
// the drain window are abandoned, not killed, since this server has no way
// to cancel a tool already inside a probe call.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down network diagnostic tool server")
	s.shuttingDown.Store(true)

	drained := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.Info("all in-flight tool invocations drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown drain window exceeded with invocations still in flight: %w", ctx.Err())
	}
}
