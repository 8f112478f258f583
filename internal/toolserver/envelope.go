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
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/netdiag-toolserver/internal/clock"
)

// ToolEnvelope is the single JSON payload emitted for every invocation
// outcome (spec.md §3 "ToolEnvelope").
type ToolEnvelope struct {
	Success       bool           `json:"success"`
	Data          interface{}    `json:"data,omitempty"`
	Error         *EnvelopeError `json:"error,omitempty"`
	ExecutionTime int64          `json:"executionTime"`
	Timestamp     string         `json:"timestamp"`
	ToolName      string         `json:"toolName,omitempty"`
}

// EnvelopeError is the shape of ToolEnvelope.Error.
type EnvelopeError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// emit builds the MCP tool result for one invocation outcome: a single
// text block of canonical JSON, with isError set at the envelope level on
// failure (spec.md §6 "Message envelope").
func emit(toolName string, data interface{}, err error, start time.Time, clk clock.Clock) *mcp.CallToolResult {
	execMs := clk.Now().Sub(start).Milliseconds()
	if execMs < 1 {
		execMs = 1
	}
	timestamp := clk.Now().UTC().Format(time.RFC3339)

	var env ToolEnvelope
	if err != nil {
		code, message, details := classify(err)
		env = ToolEnvelope{
			Success:       false,
			Error:         &EnvelopeError{Code: code, Message: message, Details: details},
			ExecutionTime: execMs,
			Timestamp:     timestamp,
			ToolName:      toolName,
		}
	} else {
		env = ToolEnvelope{
			Success:       true,
			Data:          data,
			ExecutionTime: execMs,
			Timestamp:     timestamp,
		}
	}

	body, marshalErr := json.Marshal(env)
	if marshalErr != nil {
		return mcp.NewToolResultError("failed to encode tool envelope: " + marshalErr.Error())
	}

	return &mcp.CallToolResult{
		IsError: err != nil,
		Content: []mcp.Content{mcp.NewTextContent(string(body))},
	}
}
