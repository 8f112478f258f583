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

import toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"

// allTools is the stable registry of the seven network-diagnostic tools
// (spec.md §4.5 "Tool Catalog"). Names are unique and never reused.
var allTools = []*ToolDef{
	latencyToolDef,
	downloadToolDef,
	uploadToolDef,
	packetLossToolDef,
	speedTestToolDef,
	connectionInfoToolDef,
	serverInfoToolDef,
}

// Registry is the enumerable, executable set of tools this server exposes.
type Registry struct {
	byName map[string]*ToolDef
}

// NewRegistry builds a Registry over the fixed tool set.
func NewRegistry() *Registry {
	byName := make(map[string]*ToolDef, len(allTools))
	for _, t := range allTools {
		byName[t.Name] = t
	}
	return &Registry{byName: byName}
}

// List returns every registered tool definition, for transport-level
// discovery.
func (r *Registry) List() []*ToolDef {
	out := make([]*ToolDef, 0, len(r.byName))
	for _, t := range allTools {
		out = append(out, t)
	}
	return out
}

// Lookup returns the tool named name, failing with ToolNotFoundError when
// unregistered (spec.md §4.5).
func (r *Registry) Lookup(name string) (*ToolDef, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, &toolerrors.ToolNotFoundError{Name: name}
	}
	return t, nil
}
