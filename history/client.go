package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// State sentinels the history store reports for entities without a usable value
const (
	stateUnknown     = "unknown"
	stateUnavailable = "unavailable"
)

// stateEntry is a single recorded state from the Home Assistant history API
type stateEntry struct {
	EntityID    string    `json:"entity_id"`
	State       string    `json:"state"`
	LastUpdated time.Time `json:"last_updated"`
}

// Client fetches recorded temperature states from the Home Assistant history API
type Client struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *zap.Logger
}

// NewClient creates a history API client with an instrumented HTTP transport
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(
				http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
					return "homeassistant.history"
				}),
			),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
	}
}

// FetchSeries returns the temperature samples recorded for entityID in [start, end).
// It fails soft: any transport error, non-2xx response, parse failure, absent
// entity, or fully-invalid data yields an empty series, never an error.
func (c *Client) FetchSeries(ctx context.Context, entityID string, start, end time.Time) Series {
	ctx, span := otel.Tracer("history").Start(ctx, "history.FetchSeries")
	defer span.End()

	span.SetAttributes(
		attribute.String("history.entity_id", entityID),
		attribute.String("history.start", start.Format(time.RFC3339)),
		attribute.String("history.end", end.Format(time.RFC3339)),
	)

	entries, err := c.fetchStates(ctx, entityID, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history fetch failed")
		c.logger.Warn("history fetch failed, treating window as empty",
			zap.String("entity_id", entityID),
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err),
		)
		return nil
	}

	series, dropped := filterSamples(entries)
	if dropped > 0 {
		c.logger.Debug("dropped invalid history states",
			zap.String("entity_id", entityID),
			zap.Int("dropped", dropped),
			zap.Int("accepted", len(series)),
		)
	}

	span.SetAttributes(
		attribute.Int("history.sample_count", len(series)),
		attribute.Int("history.dropped_count", dropped),
	)
	span.SetStatus(codes.Ok, "history fetched")

	return series
}

// ValidateEntity probes the state registry for entityID. It returns an error
// when the entity does not exist, so a misconfigured sensor is rejected before
// the first update cycle runs.
func (c *Client) ValidateEntity(ctx context.Context, entityID string) error {
	if !strings.Contains(entityID, ".") {
		return fmt.Errorf("invalid entity id %q: expected <domain>.<object_id>", entityID)
	}

	reqURL := fmt.Sprintf("%s/api/states/%s", c.baseURL, url.PathEscape(entityID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("state lookup failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("entity %s not found in state registry", entityID)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("state lookup returned status %d", resp.StatusCode)
	}

	return nil
}

// fetchStates performs a single history API request
func (c *Client) fetchStates(ctx context.Context, entityID string, start, end time.Time) ([]stateEntry, error) {
	reqURL := fmt.Sprintf("%s/api/history/period/%s?end_time=%s&filter_entity_id=%s&minimal_response=false",
		c.baseURL,
		url.PathEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
		url.QueryEscape(entityID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// The history API wraps each requested entity's states in its own array
	var periods [][]stateEntry
	if err := json.Unmarshal(body, &periods); err != nil {
		sample := string(body)
		if len(sample) > 200 {
			sample = sample[:200] + "..."
		}
		c.logger.Error("failed to parse history response",
			zap.String("sample", sample),
			zap.Error(err))
		return nil, fmt.Errorf("failed to parse history response: %w", err)
	}

	var entries []stateEntry
	for _, period := range periods {
		for _, entry := range period {
			if entry.EntityID == "" || entry.EntityID == entityID {
				entries = append(entries, entry)
			}
		}
	}

	return entries, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
}

// filterSamples keeps entries whose state is a parseable non-negative decimal
// number and returns the dropped count for diagnostics
func filterSamples(entries []stateEntry) (Series, int) {
	var series Series
	dropped := 0

	for _, entry := range entries {
		if !isNumericState(entry.State) {
			dropped++
			continue
		}
		value, err := strconv.ParseFloat(entry.State, 64)
		if err != nil {
			dropped++
			continue
		}
		series = append(series, Sample{
			Timestamp:   entry.LastUpdated,
			Temperature: value,
		})
	}

	return series, dropped
}

// isNumericState accepts integer or single-decimal-point numeric strings.
// Sentinel markers and anything signed, exponent-formatted or otherwise
// non-decimal is rejected.
func isNumericState(state string) bool {
	if state == "" || state == stateUnknown || state == stateUnavailable {
		return false
	}

	digits := 0
	dots := 0
	for _, r := range state {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}

	return digits > 0
}
