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
	"regexp"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/netdiag-toolserver/internal/catalog"
	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

var validContinents = map[string]bool{
	"north-america": true,
	"south-america": true,
	"europe":        true,
	"asia":          true,
	"africa":        true,
	"oceania":       true,
}

// ServerInfoArgs is the validated argument set for get_server_info.
type ServerInfoArgs struct {
	CommonArgs
	Continent       string
	Country         string
	Region          string
	MaxDistance     *float64
	IncludeDistance bool
	Limit           int
}

// ServerInfoEntry is one entry of get_server_info's servers array.
type ServerInfoEntry struct {
	Name       string   `json:"name"`
	City       string   `json:"city"`
	Region     string   `json:"region"`
	Country    string   `json:"country"`
	Continent  string   `json:"continent,omitempty"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
	Status     string   `json:"status"`
}

// ServerInfoResult is the data shape get_server_info emits.
type ServerInfoResult struct {
	Servers       []ServerInfoEntry `json:"servers"`
	TotalServers  int               `json:"totalServers"`
	FilterApplied catalog.Filter    `json:"filterApplied"`
	Stats         *catalog.Stats    `json:"stats,omitempty"`
}

func validateServerInfoArgs(args map[string]interface{}) (ValidatedArgs, error) {
	common, err := parseCommonArgs(args)
	if err != nil {
		return nil, err
	}

	continent := ""
	if v, present := args["continent"]; present {
		s, ok := v.(string)
		if !ok || !validContinents[s] {
			return nil, &toolerrors.ValidationError{Field: "continent", Message: "must be one of north-america, south-america, europe, asia, africa, oceania"}
		}
		continent = s
	}

	country := ""
	if v, present := args["country"]; present {
		s, ok := v.(string)
		if !ok || !countryCodePattern.MatchString(s) {
			return nil, &toolerrors.ValidationError{Field: "country", Message: "must be a two-letter uppercase ISO country code"}
		}
		country = s
	}

	region := ""
	if v, present := args["region"]; present {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, argTypeError("region", "non-empty string")
		}
		region = s
	}

	var maxDistance *float64
	if v, present := args["maxDistance"]; present {
		f, ok := toFloat64(v)
		if !ok || f < 0 {
			return nil, &toolerrors.ValidationError{Field: "maxDistance", Message: "must be a number >= 0"}
		}
		maxDistance = &f
	}

	includeDistance := false
	if v, present := args["includeDistance"]; present {
		b, ok := toBool(v)
		if !ok {
			return nil, argTypeError("includeDistance", "boolean")
		}
		includeDistance = b
	}

	limit, err := intInRange(args, "limit", 20, 1, 100)
	if err != nil {
		return nil, err
	}

	return &ServerInfoArgs{
		CommonArgs:      common,
		Continent:       continent,
		Country:         country,
		Region:          region,
		MaxDistance:     maxDistance,
		IncludeDistance: includeDistance,
		Limit:           limit,
	}, nil
}

func runServerInfo(ctx context.Context, deps *Deps, rawArgs ValidatedArgs, deadlineMs int64) (interface{}, error) {
	args := rawArgs.(*ServerInfoArgs)

	filter := catalog.Filter{
		Continent:   args.Continent,
		Country:     args.Country,
		Region:      args.Region,
		MaxDistance: args.MaxDistance,
	}

	// The probe adapter's trace endpoint carries no coordinates (spec.md
	// §4.3's upstream contract is ip/isp/loc/region/city/tz), so there is
	// no user location to enrich distances against. distanceKm is copied
	// through only when includeDistance is set and the catalog entry already
	// carries one.
	entries, err := deps.Catalog.List(ctx, filter, nil)
	if err != nil {
		return nil, err
	}

	if len(entries) > args.Limit {
		entries = entries[:args.Limit]
	}

	servers := make([]ServerInfoEntry, 0, len(entries))
	for _, e := range entries {
		entry := ServerInfoEntry{
			Name:      e.Name,
			City:      e.City,
			Region:    e.Region,
			Country:   e.Country,
			Continent: e.Continent,
			Status:    e.Status,
		}
		if args.IncludeDistance {
			entry.DistanceKm = e.DistanceKm
		}
		servers = append(servers, entry)
	}

	stats := deps.Catalog.Stats()

	return &ServerInfoResult{
		Servers:       servers,
		TotalServers:  len(servers),
		FilterApplied: filter,
		Stats:         &stats,
	}, nil
}

var serverInfoToolDef = &ToolDef{
	Name:              "get_server_info",
	Description:       "List and filter the cached edge-server catalog.",
	OperationClass:    ratelimit.ClassConnectionInfo,
	DefaultDeadlineMs: 10_000,
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"timeout":         map[string]interface{}{"type": "number", "description": "Overall deadline in seconds (1-300)"},
			"serverLocation":  map[string]interface{}{"type": "string", "description": "Preferred edge server code"},
			"continent":       map[string]interface{}{"type": "string", "description": "Filter by continent"},
			"country":         map[string]interface{}{"type": "string", "description": "Filter by ISO country code"},
			"region":          map[string]interface{}{"type": "string", "description": "Filter by region"},
			"maxDistance":     map[string]interface{}{"type": "number", "description": "Filter by maximum distance in km"},
			"includeDistance": map[string]interface{}{"type": "boolean", "description": "Include distanceKm in each entry (default false)"},
			"limit":           map[string]interface{}{"type": "integer", "description": "Maximum entries to return (1-100, default 20)"},
		},
	},
	Validate: validateServerInfoArgs,
	Run:      runServerInfo,
}
