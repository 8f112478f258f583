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

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tombee/netdiag-toolserver/internal/clock"
	"github.com/tombee/netdiag-toolserver/internal/metrics"
	"github.com/tombee/netdiag-toolserver/internal/ratelimit"
)

// Fetcher retrieves the current edge-server list from the probe backend.
// Implemented by internal/probe.Client.
type Fetcher interface {
	ListServers(ctx context.Context) ([]ServerEntry, error)
}

// DiscoveryError wraps a catalog refresh failure — either an upstream fetch
// error or a rate-limit denial on the connection_info class that gates it
// (spec.md §4.2 "catalog fetch consumes a connection_info token").
type DiscoveryError struct {
	Op  string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("catalog discovery failed during %s: %v", e.Op, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Catalog is the cached, filterable edge-server directory. A single
// in-flight fetch is shared by every concurrent caller; a fetch failure
// falls back to serving the last good snapshot, however stale, and only
// returns an error when no snapshot exists yet (spec.md §4.2).
type Catalog struct {
	fetchMu sync.Mutex // serializes upstream fetches; held for the whole refresh

	mu        sync.RWMutex
	entries   []ServerEntry
	fetchedAt time.Time

	fetcher Fetcher
	limiter *ratelimit.Limiter
	clock   clock.Clock
	logger  *slog.Logger
}

// New constructs a Catalog. limiter may be nil only in tests that never call
// a method touching the network.
func New(fetcher Fetcher, limiter *ratelimit.Limiter, clk clock.Clock, logger *slog.Logger) *Catalog {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		fetcher: fetcher,
		limiter: limiter,
		clock:   clk,
		logger:  logger,
	}
}

func (c *Catalog) isFresh(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries) > 0 && now.Sub(c.fetchedAt) < CacheTTL
}

func (c *Catalog) snapshot() []ServerEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ServerEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// ensureFresh refreshes the cache if it is stale or empty. Concurrent
// callers serialize on fetchMu; the second caller through the door observes
// whatever the first caller left behind and never issues a duplicate fetch.
func (c *Catalog) ensureFresh(ctx context.Context) error {
	now := c.clock.Now()
	if c.isFresh(now) {
		metrics.SetCacheStatus(metrics.CacheStatusFresh)
		return nil
	}

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	// Re-check: another goroutine may have refreshed while we waited.
	now = c.clock.Now()
	if c.isFresh(now) {
		metrics.SetCacheStatus(metrics.CacheStatusFresh)
		return nil
	}

	if c.limiter != nil {
		if err := c.limiter.Acquire(ratelimit.ClassConnectionInfo); err != nil {
			return &DiscoveryError{Op: "admission", Err: err}
		}
		defer c.limiter.Release(ratelimit.ClassConnectionInfo)
	}

	fetched, err := c.fetcher.ListServers(ctx)
	if err != nil {
		c.mu.RLock()
		hasStale := len(c.entries) > 0
		c.mu.RUnlock()
		if hasStale {
			c.logger.Warn("catalog refresh failed, serving stale snapshot", "error", err)
			metrics.SetCacheStatus(metrics.CacheStatusStale)
			return nil
		}
		metrics.SetCacheStatus(metrics.CacheStatusMiss)
		return &DiscoveryError{Op: "fetch", Err: err}
	}

	enriched := make([]ServerEntry, len(fetched))
	for i, e := range fetched {
		e.Continent = continentOf(e.Country)
		e.LastChecked = now
		enriched[i] = e
	}

	c.mu.Lock()
	c.entries = enriched
	c.fetchedAt = now
	c.mu.Unlock()

	metrics.SetCacheStatus(metrics.CacheStatusFresh)
	return nil
}

// List returns catalog entries matching filter, sorted by ascending
// distance from userLocation when supplied. Entries without a resolvable
// distance sort after all entries that have one (spec.md §4.2).
func (c *Catalog) List(ctx context.Context, filter Filter, userLocation *UserLocation) ([]ServerEntry, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return nil, err
	}

	entries := c.snapshot()

	if userLocation.HasCoordinates() {
		for i := range entries {
			entries[i].DistanceKm = distanceTo(entries[i], userLocation)
		}
	}

	filtered := entries[:0:0]
	for _, e := range entries {
		if matches(e, filter) {
			filtered = append(filtered, e)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		di, dj := filtered[i].DistanceKm, filtered[j].DistanceKm
		if di == nil && dj == nil {
			return filtered[i].Name < filtered[j].Name
		}
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return *di < *dj
	})

	return filtered, nil
}

func distanceTo(e ServerEntry, loc *UserLocation) *float64 {
	if e.Latitude == nil || e.Longitude == nil {
		return nil
	}
	km, ok := clock.HaversineKm(loc.Latitude, loc.Longitude, *e.Latitude, *e.Longitude)
	if !ok {
		return nil
	}
	return &km
}

func matches(e ServerEntry, f Filter) bool {
	if f.Name != "" && e.Name != f.Name {
		return false
	}
	if f.Continent != "" && e.Continent != f.Continent {
		return false
	}
	if f.Country != "" && e.Country != f.Country {
		return false
	}
	if f.Region != "" && e.Region != f.Region {
		return false
	}
	// maxDistance only prunes entries with a known distance that exceeds it;
	// entries with no resolvable coordinates (DistanceKm == nil) are kept.
	if f.MaxDistance != nil && e.DistanceKm != nil && *e.DistanceKm > *f.MaxDistance {
		return false
	}
	return true
}

// Get returns the single entry with an exact name match.
func (c *Catalog) Get(ctx context.Context, name string) (ServerEntry, bool, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return ServerEntry{}, false, err
	}
	for _, e := range c.snapshot() {
		if e.Name == name {
			return e, true, nil
		}
	}
	return ServerEntry{}, false, nil
}

// ByLocation filters on the conjunction of whichever of city/region/country
// is non-empty.
func (c *Catalog) ByLocation(ctx context.Context, city, region, country string) ([]ServerEntry, error) {
	if err := c.ensureFresh(ctx); err != nil {
		return nil, err
	}
	var out []ServerEntry
	for _, e := range c.snapshot() {
		if city != "" && e.City != city {
			continue
		}
		if region != "" && e.Region != region {
			continue
		}
		if country != "" && e.Country != country {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Stats summarizes the current cache contents without triggering a refresh.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := CacheStatusEmpty
	if len(c.entries) > 0 {
		if c.clock.Now().Sub(c.fetchedAt) < CacheTTL {
			status = CacheStatusValid
		} else {
			status = CacheStatusStale
		}
	}

	byContinent := make(map[string]int)
	byCountry := make(map[string]int)
	for _, e := range c.entries {
		if e.Continent != "" {
			byContinent[e.Continent]++
		}
		if e.Country != "" {
			byCountry[e.Country]++
		}
	}

	return Stats{
		Total:       len(c.entries),
		ByContinent: byContinent,
		ByCountry:   byCountry,
		CacheStatus: status,
	}
}

// Clear invalidates the cache; the next call to List/Get/ByLocation will
// trigger a fresh fetch.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.fetchedAt = time.Time{}
}
