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

	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
)

// ConnectionInfoArgs is the validated argument set for get_connection_info.
type ConnectionInfoArgs struct {
	CommonArgs
	IncludeLocation bool
	IncludeISP      bool
}

// ConnectionDetail is the nested "connection" field of ConnectionInfoResult.
// The trace endpoint the probe adapter consumes carries none of these
// fields (spec.md §4.3's upstream contract is ip/isp/loc/region/city/tz
// only), so type/asn/organization are always reported unknown.
type ConnectionDetail struct {
	Type         string `json:"type"`
	ASN          string `json:"asn"`
	Organization string `json:"organization"`
}

// LocationDetail is the optional "location" field of ConnectionInfoResult.
type LocationDetail struct {
	Country     string   `json:"country"`
	Region      string   `json:"region"`
	City        string   `json:"city"`
	Timezone    string   `json:"timezone"`
	Coordinates *LatLon  `json:"coordinates,omitempty"`
}

// LatLon is an optional coordinate pair. The trace endpoint carries none,
// so this is always nil in practice; the field exists for shape parity
// with get_server_info's coordinate reporting.
type LatLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ConnectionInfoResult is the data shape get_connection_info emits.
type ConnectionInfoResult struct {
	IP         string          `json:"ip"`
	ISP        string          `json:"isp"`
	Connection ConnectionDetail `json:"connection"`
	Location   *LocationDetail  `json:"location,omitempty"`
}

func validateConnectionInfoArgs(args map[string]interface{}) (ValidatedArgs, error) {
	common, err := parseCommonArgs(args)
	if err != nil {
		return nil, err
	}

	includeLocation := true
	if v, present := args["includeLocation"]; present {
		b, ok := toBool(v)
		if !ok {
			return nil, argTypeError("includeLocation", "boolean")
		}
		includeLocation = b
	}

	includeISP := true
	if v, present := args["includeISP"]; present {
		b, ok := toBool(v)
		if !ok {
			return nil, argTypeError("includeISP", "boolean")
		}
		includeISP = b
	}

	return &ConnectionInfoArgs{CommonArgs: common, IncludeLocation: includeLocation, IncludeISP: includeISP}, nil
}

func runConnectionInfo(ctx context.Context, deps *Deps, rawArgs ValidatedArgs, deadlineMs int64) (interface{}, error) {
	args := rawArgs.(*ConnectionInfoArgs)

	trace, err := deps.Probe.GetTrace(ctx, deadlineMs)
	if err != nil {
		return nil, err
	}

	isp := trace.ISP
	if !args.IncludeISP {
		isp = "Hidden"
	}

	result := &ConnectionInfoResult{
		IP:  trace.IP,
		ISP: isp,
		Connection: ConnectionDetail{
			Type:         "unknown",
			ASN:          "unknown",
			Organization: "unknown",
		},
	}

	if args.IncludeLocation {
		result.Location = &LocationDetail{
			Country:  trace.Country,
			Region:   trace.Region,
			City:     trace.City,
			Timezone: trace.Timezone,
		}
	}

	return result, nil
}

var connectionInfoToolDef = &ToolDef{
	Name:              "get_connection_info",
	Description:       "Fetch the caller's connection trace: IP, ISP, and approximate location.",
	OperationClass:    ratelimit.ClassConnectionInfo,
	DefaultDeadlineMs: 30_000,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"timeout":         map[string]interface{}{"type": "number", "description": "Overall deadline in seconds (1-300)"},
			"serverLocation":  map[string]interface{}{"type": "string", "description": "Preferred edge server code"},
			"includeLocation": map[string]interface{}{"type": "boolean", "description": "Include location fields (default true)"},
			"includeISP":      map[string]interface{}{"type": "boolean", "description": "Report the real ISP name (default true)"},
		},
	},
	Validate: validateConnectionInfoArgs,
	Run:      runConnectionInfo,
}
