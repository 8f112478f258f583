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

// Package catalog implements the cached, filterable edge-server directory:
// fetch-once-then-cache, distance and continent enrichment, and
// region/distance pruning.
package catalog

import "time"

// ServerEntry describes one edge server in the catalog.
type ServerEntry struct {
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Location  string  `json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Continent   string    `json:"continent,omitempty"`
	DistanceKm  *float64  `json:"distanceKm,omitempty"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"lastChecked"`
}

// UserLocation is the caller-supplied point used for distance enrichment.
type UserLocation struct {
	Latitude  float64
	Longitude float64
}

// HasCoordinates reports whether a location was supplied (u is non-nil); a
// UserLocation always carries both latitude and longitude.
func (u *UserLocation) HasCoordinates() bool {
	return u != nil
}

// Filter narrows a List call. All provided fields are conjunctive.
type Filter struct {
	Name        string
	Continent   string
	Country     string
	Region      string
	MaxDistance *float64
}

// CacheStatus summarizes catalog freshness for Stats and diagnostics.
type CacheStatus string

const (
	CacheStatusValid CacheStatus = "valid"
	CacheStatusStale CacheStatus = "stale"
	CacheStatusEmpty CacheStatus = "empty"
)

// Stats aggregates the current catalog contents.
type Stats struct {
	Total       int
	ByContinent map[string]int
	ByCountry   map[string]int
	CacheStatus CacheStatus
}

// CacheTTL is the maximum age at which a cached catalog is served without a
// refetch attempt.
const CacheTTL = 5 * time.Minute
