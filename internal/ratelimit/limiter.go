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

package ratelimit

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tombee/netdiag-toolserver/internal/clock"
)

// bucket holds one operation class's admission state behind a single mutex.
// Per-object work is O(1), so a coarse lock is sufficient even under the
// worst-case contention of sum(maxConcurrentRequests) ~= 20 (spec.md §5).
type bucket struct {
	mu    sync.Mutex
	cfg   BucketConfig
	state bucketState
}

// Limiter is the process-wide rate limiter: one bucket per OperationClass.
// It never blocks, never schedules, and never performs I/O — admission
// decisions are pure state transitions (spec.md §9 "Admission is
// non-blocking").
type Limiter struct {
	mu      sync.RWMutex
	buckets map[OperationClass]*bucket
	backoff clock.BackoffConfig
	clock   clock.Clock
	logger  *slog.Logger
	randFn  func() float64
}

// New constructs a Limiter with the given per-class configuration and
// backoff shape. configs entries with non-positive fields fall back to the
// compiled-in defaults for that class (or are dropped if the class has no
// default), each logged once at construction time.
func New(configs map[OperationClass]BucketConfig, backoff clock.BackoffConfig, clk clock.Clock, logger *slog.Logger) *Limiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Limiter{
		buckets: make(map[OperationClass]*bucket, len(configs)),
		backoff: backoff,
		clock:   clk,
		logger:  logger,
		randFn:  rand.Float64,
	}

	defaults := DefaultBucketConfigs()
	for op, cfg := range configs {
		fallback, hasDefault := defaults[op]
		cfg = sanitizeConfig(op, cfg, fallback, logger)
		if !hasDefault && (cfg.TokensPerInterval <= 0 || cfg.IntervalMs <= 0 ||
			cfg.MaxDailyRequests <= 0 || cfg.MaxConcurrentRequests <= 0) {
			logger.Warn("rate limit config dropped: non-positive fields and no compiled-in default",
				"operation_class", string(op))
			continue
		}
		l.buckets[op] = newBucket(cfg, clk.Now())
	}

	return l
}

// sanitizeConfig replaces non-positive or internally inconsistent fields
// with the class's compiled-in default, logging a one-line diagnostic the
// first time each class is loaded (spec.md §4.1 "Failure model").
func sanitizeConfig(op OperationClass, cfg, fallback BucketConfig, logger *slog.Logger) BucketConfig {
	dirty := false

	fix := func(field *int64, def int64) {
		if *field <= 0 {
			*field = def
			dirty = true
		}
	}

	fix(&cfg.TokensPerInterval, fallback.TokensPerInterval)
	fix(&cfg.IntervalMs, fallback.IntervalMs)
	fix(&cfg.MaxBucketSize, fallback.MaxBucketSize)
	fix(&cfg.MaxDailyRequests, fallback.MaxDailyRequests)
	fix(&cfg.MaxConcurrentRequests, fallback.MaxConcurrentRequests)
	if cfg.ConcurrentLimitWaitMs <= 0 {
		cfg.ConcurrentLimitWaitMs = 1000
		dirty = true
	}

	if cfg.MaxBucketSize < cfg.TokensPerInterval {
		cfg.MaxBucketSize = cfg.TokensPerInterval
		dirty = true
	}

	if dirty {
		logger.Warn("rate limit config fell back to defaults for one or more fields",
			"operation_class", string(op))
	}

	return cfg
}

// newBucket creates a bucket that starts FULL, per spec.md §4.1.
func newBucket(cfg BucketConfig, now time.Time) *bucket {
	return &bucket{
		cfg: cfg,
		state: bucketState{
			tokens:            float64(cfg.MaxBucketSize),
			lastRefill:        now,
			dailyRequestCount: 0,
			dailyResetTime:    clock.StartOfNextLocalDay(now),
		},
	}
}

func (l *Limiter) bucketFor(op OperationClass) (*bucket, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.buckets[op]
	return b, ok
}

// touch applies pending refill and daily-boundary resets. Caller must hold
// b.mu.
func (b *bucket) touch(now time.Time) {
	if now.Sub(b.state.lastRefill) >= time.Duration(b.cfg.IntervalMs)*time.Millisecond {
		elapsedMs := now.Sub(b.state.lastRefill).Milliseconds()
		ticks := elapsedMs / b.cfg.IntervalMs
		if ticks > 0 {
			added := math.Min(float64(ticks*b.cfg.TokensPerInterval), float64(b.cfg.MaxBucketSize)-b.state.tokens)
			if added > 0 {
				b.state.tokens += added
			}
			b.state.lastRefill = b.state.lastRefill.Add(time.Duration(ticks*b.cfg.IntervalMs) * time.Millisecond)
		}
	}

	if !now.Before(b.state.dailyResetTime) {
		b.state.dailyRequestCount = 0
		b.state.dailyResetTime = clock.StartOfNextLocalDay(now)
	}
}

// CheckAndConsume evaluates the three admission gates in order — concurrent,
// daily, token — and, on success, consumes one token, increments the daily
// counter, and clears the backoff streak, all inside the same critical
// section as the gate checks. It does not reserve a concurrency slot.
func (l *Limiter) CheckAndConsume(op OperationClass) (AdmissionResult, error) {
	return l.admit(op, false)
}

// admit is the shared body of CheckAndConsume and Acquire. With reserve set
// it also increments concurrentRequests on success, inside the same critical
// section as the gate checks, so admit-and-increment is atomic: two callers
// racing on a bucket at maxConcurrentRequests can never both observe headroom
// (spec.md §5 "individually linearizable", §8 "concurrentRequests <= maxConcurrentRequests").
func (l *Limiter) admit(op OperationClass, reserve bool) (AdmissionResult, error) {
	b, ok := l.bucketFor(op)
	if !ok {
		return AdmissionResult{}, &InvalidOperationError{Op: op}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.clock.Now()
	b.touch(now)

	if b.state.concurrentRequests >= b.cfg.MaxConcurrentRequests {
		return AdmissionResult{
			Allowed:                false,
			RemainingTokens:        int64(b.state.tokens),
			WaitTimeMs:             b.cfg.ConcurrentLimitWaitMs,
			DailyRequestsRemaining: b.cfg.MaxDailyRequests - b.state.dailyRequestCount,
			Reason:                 ReasonConcurrentLimit,
		}, nil
	}

	if b.state.dailyRequestCount >= b.cfg.MaxDailyRequests {
		return AdmissionResult{
			Allowed:                false,
			RemainingTokens:        int64(b.state.tokens),
			WaitTimeMs:             b.state.dailyResetTime.Sub(now).Milliseconds(),
			DailyRequestsRemaining: 0,
			Reason:                 ReasonDailyLimit,
		}, nil
	}

	if b.state.tokens < 1 {
		elapsedSinceRefill := now.Sub(b.state.lastRefill).Milliseconds()
		waitMs := b.cfg.IntervalMs - (elapsedSinceRefill % b.cfg.IntervalMs)
		return AdmissionResult{
			Allowed:                false,
			RemainingTokens:        0,
			WaitTimeMs:             waitMs,
			DailyRequestsRemaining: b.cfg.MaxDailyRequests - b.state.dailyRequestCount,
			Reason:                 ReasonTokenBucket,
		}, nil
	}

	b.state.tokens--
	b.state.dailyRequestCount++
	b.state.consecutiveFailures = 0
	if reserve {
		b.state.concurrentRequests++
	}

	return AdmissionResult{
		Allowed:                true,
		RemainingTokens:        int64(b.state.tokens),
		DailyRequestsRemaining: b.cfg.MaxDailyRequests - b.state.dailyRequestCount,
	}, nil
}

// Acquire admits one invocation on op, incrementing concurrentRequests
// atomically with the gate checks inside admit; the caller MUST
// call Release exactly once on every exit path (spec.md §9 "Scoped
// release"). On denial it advances the bucket's backoff streak and returns
// *ExceededError with the larger of the gate's own wait hint and the current
// backoff delay.
func (l *Limiter) Acquire(op OperationClass) error {
	b, ok := l.bucketFor(op)
	if !ok {
		return &InvalidOperationError{Op: op}
	}

	result, err := l.admit(op, true)
	if err != nil {
		return err
	}

	if result.Allowed {
		return nil
	}

	b.mu.Lock()
	b.state.consecutiveFailures++
	b.state.lastFailureTime = l.clock.Now()
	failures := b.state.consecutiveFailures - 1 // pre-increment count, per spec.md §4.1
	b.mu.Unlock()

	backoffMs := clock.BackoffDelayMs(l.backoff, failures, l.randFn)
	waitMs := result.WaitTimeMs
	if backoffMs > waitMs {
		waitMs = backoffMs
	}

	return &ExceededError{Op: op, WaitTimeMs: waitMs, Reason: result.Reason}
}

// Release decrements concurrentRequests, clamped at 0. Must be invoked
// exactly once for every successful Acquire.
func (l *Limiter) Release(op OperationClass) {
	b, ok := l.bucketFor(op)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.concurrentRequests > 0 {
		b.state.concurrentRequests--
	}
}

// Status returns a non-mutating snapshot of one bucket.
func (l *Limiter) Status(op OperationClass) (Status, error) {
	b, ok := l.bucketFor(op)
	if !ok {
		return Status{}, &InvalidOperationError{Op: op}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.clock.Now()
	b.touch(now)

	nextRefillMs := int64(0)
	if b.state.tokens < float64(b.cfg.MaxBucketSize) {
		elapsed := now.Sub(b.state.lastRefill).Milliseconds()
		nextRefillMs = b.cfg.IntervalMs - (elapsed % b.cfg.IntervalMs)
	}

	return Status{
		TokensRemaining:        int64(b.state.tokens),
		DailyRequestsRemaining: b.cfg.MaxDailyRequests - b.state.dailyRequestCount,
		ConcurrentRequests:     b.state.concurrentRequests,
		NextTokenRefillMs:      nextRefillMs,
		DailyResetTimeMs:       b.state.dailyResetTime.UnixMilli(),
	}, nil
}

// Reset reinitializes one bucket, or every bucket if no class is given, to
// its starting (full) state.
func (l *Limiter) Reset(ops ...OperationClass) {
	l.mu.RLock()
	targets := ops
	if len(targets) == 0 {
		targets = make([]OperationClass, 0, len(l.buckets))
		for op := range l.buckets {
			targets = append(targets, op)
		}
	}
	l.mu.RUnlock()

	now := l.clock.Now()
	for _, op := range targets {
		b, ok := l.bucketFor(op)
		if !ok {
			continue
		}
		b.mu.Lock()
		b.state = bucketState{
			tokens:         float64(b.cfg.MaxBucketSize),
			lastRefill:     now,
			dailyResetTime: clock.StartOfNextLocalDay(now),
		}
		b.mu.Unlock()
	}
}
