package mcp

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

	"github.com/hvault/hvault/internal/models"
)

// HTTPClient implements DataSource by calling the hvault REST API. Used for
// remote MCP mode where the binary runs locally (stdio) but data lives on
// the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: *HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) LatestMetrics(ctx context.Context) ([]models.MetricRow, error) {
	body, err := c.get(ctx, "/api/v1/metrics/latest", nil)
	if err != nil {
		return nil, err
	}

	var rows []models.MetricRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode latest metrics: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) QueryMetrics(ctx context.Context, metric string, start, end time.Time) ([]models.MetricRow, error) {
	params := timeParams(start, end)
	params.Set("name", metric)

	body, err := c.get(ctx, "/api/v1/metrics", params)
	if err != nil {
		return nil, err
	}

	var rows []models.MetricRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode metrics: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) QuerySleep(ctx context.Context, startDay, endDay string) ([]models.SleepRow, error) {
	v := url.Values{}
	v.Set("start", startDay)
	v.Set("end", endDay)

	body, err := c.get(ctx, "/api/v1/sleep", v)
	if err != nil {
		return nil, err
	}

	var rows []models.SleepRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode sleep: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.WorkoutRow, error) {
	body, err := c.get(ctx, "/api/v1/workouts", timeParams(start, end))
	if err != nil {
		return nil, err
	}

	var rows []models.WorkoutRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) QuerySyncEvents(ctx context.Context, limit int) ([]models.SyncEvent, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/api/v1/sync-log", v)
	if err != nil {
		return nil, err
	}

	var events []models.SyncEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("httpclient: decode sync log: %w", err)
	}
	return events, nil
}
