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

// Package probe implements the narrow client adapter the tool pipeline
// depends on: running a shaped probe against the upstream edge network,
// fetching the caller's connection trace, listing edge servers, and a
// non-throwing health check. Retries and TLS live one layer down in
// internal/httpclient; this package only adds deadline discipline and
// response parsing.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tombee/netdiag-toolserver/internal/catalog"
	toolerrors "github.com/tombee/netdiag-toolserver/pkg/errors"
)

// Shape identifies which probe measurement to run.
type Shape string

const (
	ShapeLatency    Shape = "latency"
	ShapeDownload   Shape = "download"
	ShapeUpload     Shape = "upload"
	ShapePacketLoss Shape = "packet_loss"
	ShapeFull       Shape = "full"
)

// Results carries whatever the upstream probe engine returned for the
// requested shape. Fields the shape didn't measure are left nil/zero; the
// tool shapers are responsible for turning that into the spec's null/0
// sentinel convention.
type Results struct {
	DownloadBandwidthBps *float64
	UploadBandwidthBps   *float64
	UnloadedLatencyMs    *float64
	PacketLossFraction   *float64
	Jitter               *float64
	PacketsSent          *int64
	PacketsReceived      *int64
}

// Trace is the caller's connection trace, as returned by getTrace. Absent
// upstream fields are populated with the literal string "unknown".
type Trace struct {
	IP       string
	ISP      string
	Country  string
	Region   string
	City     string
	Timezone string
}

// TimeoutExceeded is returned when a call's deadline fires before the probe
// completes. It is distinct from ProbeExecutionError so the pipeline can
// classify it as TIMEOUT_ERROR without a message-substring match.
type TimeoutExceeded struct {
	Op         string
	DeadlineMs int64
}

// Error implements the error interface.
func (e *TimeoutExceeded) Error() string {
	return fmt.Sprintf("%s exceeded its %dms deadline", e.Op, e.DeadlineMs)
}

// Client is the HTTP-backed implementation of the probe adapter contract:
// runProbe, getTrace, listServers, healthCheck.
type Client struct {
	httpClient  *http.Client
	probeURL    string
	traceURL    string
	locationURL string
}

// Config points the client at the upstream probe engine's endpoints.
type Config struct {
	ProbeURL    string
	TraceURL    string
	LocationURL string
}

// New constructs a Client. httpClient is expected to already carry the
// retry/backoff/logging transport stack from internal/httpclient.
func New(httpClient *http.Client, cfg Config) *Client {
	return &Client{
		httpClient:  httpClient,
		probeURL:    cfg.ProbeURL,
		traceURL:    cfg.TraceURL,
		locationURL: cfg.LocationURL,
	}
}

// race runs fn on its own goroutine and returns whichever of fn's result or
// the deadline fires first. The probe engine runs cooperatively on a single
// task upstream; racing a timer is how the caller enforces the deadline
// without the callee's cooperation.
func race[T any](ctx context.Context, deadlineMs int64, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	deadline := time.Duration(deadlineMs) * time.Millisecond
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		v, err := fn(callCtx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		return o.val, o.err
	case <-callCtx.Done():
		return zero, &TimeoutExceeded{Op: op, DeadlineMs: deadlineMs}
	}
}

// RunProbe runs a shaped measurement against the upstream probe engine.
func (c *Client) RunProbe(ctx context.Context, shape Shape, deadlineMs int64) (Results, error) {
	return race(ctx, deadlineMs, "runProbe", func(ctx context.Context) (Results, error) {
		return c.doRunProbe(ctx, shape)
	})
}

type probeResponse struct {
	DownloadBandwidthBps *float64 `json:"downloadBandwidthBps"`
	UploadBandwidthBps   *float64 `json:"uploadBandwidthBps"`
	UnloadedLatencyMs    *float64 `json:"unloadedLatencyMs"`
	PacketLossFraction   *float64 `json:"packetLossFraction"`
	PacketsSent          *int64   `json:"packetsSent"`
	PacketsReceived      *int64   `json:"packetsReceived"`
	Summary              struct {
		Jitter *float64 `json:"jitter"`
	} `json:"summary"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) doRunProbe(ctx context.Context, shape Shape) (Results, error) {
	url := fmt.Sprintf("%s?shape=%s", c.probeURL, shape)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Results{}, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: false, Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Results{}, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Results{}, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: true, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return Results{}, &toolerrors.ProbeExecutionError{
			Message:   fmt.Sprintf("probe engine returned status %d: %s", resp.StatusCode, string(body)),
			Retryable: resp.StatusCode >= 500,
		}
	}

	var pr probeResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return Results{}, &toolerrors.ProbeExecutionError{Message: "malformed probe response: " + err.Error(), Retryable: false, Cause: err}
	}

	if pr.Error != nil {
		return Results{}, &toolerrors.ProbeExecutionError{
			Message:   pr.Error.Message,
			Retryable: isRetryableCode(pr.Error.Code),
		}
	}

	return Results{
		DownloadBandwidthBps: pr.DownloadBandwidthBps,
		UploadBandwidthBps:   pr.UploadBandwidthBps,
		UnloadedLatencyMs:    pr.UnloadedLatencyMs,
		PacketLossFraction:   pr.PacketLossFraction,
		Jitter:               pr.Summary.Jitter,
		PacketsSent:          pr.PacketsSent,
		PacketsReceived:      pr.PacketsReceived,
	}, nil
}

func isRetryableCode(code string) bool {
	switch strings.ToUpper(code) {
	case "NETWORK_ERROR", "TIMEOUT_ERROR", "ECONNRESET", "ETIMEDOUT", "ENOTFOUND", "ECONNREFUSED":
		return true
	default:
		return false
	}
}

// GetTrace fetches and parses the caller's connection trace.
func (c *Client) GetTrace(ctx context.Context, deadlineMs int64) (Trace, error) {
	return race(ctx, deadlineMs, "getTrace", func(ctx context.Context) (Trace, error) {
		return c.doGetTrace(ctx)
	})
}

func (c *Client) doGetTrace(ctx context.Context) (Trace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.traceURL, nil)
	if err != nil {
		return Trace{}, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: false, Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Trace{}, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Trace{}, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: true, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return Trace{}, &toolerrors.ProbeExecutionError{
			Message:   fmt.Sprintf("trace endpoint returned status %d", resp.StatusCode),
			Retryable: resp.StatusCode >= 500,
		}
	}

	return ParseTrace(string(body)), nil
}

// ParseTrace parses the plaintext key=value trace body used by getTrace.
// loc maps to Country. Any field absent from the body defaults to
// "unknown", never the empty string.
func ParseTrace(body string) Trace {
	fields := map[string]string{
		"ip":       "unknown",
		"isp":      "unknown",
		"loc":      "unknown",
		"region":   "unknown",
		"city":     "unknown",
		"timezone": "unknown",
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.ToLower(key))
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		if _, known := fields[key]; known {
			fields[key] = val
		}
	}

	return Trace{
		IP:       fields["ip"],
		ISP:      fields["isp"],
		Country:  fields["loc"],
		Region:   fields["region"],
		City:     fields["city"],
		Timezone: fields["timezone"],
	}
}

// ListServers fetches the raw, pre-enrichment server list. It satisfies
// catalog.Fetcher.
func (c *Client) ListServers(ctx context.Context) ([]catalog.ServerEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.locationURL, nil)
	if err != nil {
		return nil, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: false, Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &toolerrors.ProbeExecutionError{Message: err.Error(), Retryable: true, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &toolerrors.ProbeExecutionError{
			Message:   fmt.Sprintf("locations endpoint returned status %d", resp.StatusCode),
			Retryable: resp.StatusCode >= 500,
		}
	}

	return ParseLocations(body)
}

type locationEntry struct {
	IATA     string   `json:"iata"`
	City     string   `json:"city"`
	Region   string   `json:"region"`
	Country  string   `json:"country"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Distance *float64 `json:"distance"`
}

// ParseLocations decodes the upstream locations JSON array into raw
// (pre-enrichment) ServerEntry values.
func ParseLocations(body []byte) ([]catalog.ServerEntry, error) {
	var raw []locationEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &toolerrors.ProbeExecutionError{Message: "malformed locations response: " + err.Error(), Retryable: false, Cause: err}
	}

	entries := make([]catalog.ServerEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, catalog.ServerEntry{
			Name:      r.IATA,
			City:      r.City,
			Region:    r.Region,
			Country:   r.Country,
			Latitude:  r.Lat,
			Longitude: r.Lon,
			Status:    "unknown",
		})
	}
	return entries, nil
}

// HealthCheck never returns an error: any failure, including a timeout,
// simply reports false.
func (c *Client) HealthCheck(ctx context.Context, deadlineMs int64) bool {
	ok, err := race(ctx, deadlineMs, "healthCheck", func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.traceURL, nil)
		if err != nil {
			return false, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode < 500, nil
	})
	if err != nil {
		return false
	}
	return ok
}
