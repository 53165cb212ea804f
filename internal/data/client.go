package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"evm-report/internal/model"
)

const (
	reportEndpoint  = "GetErnMgmtRep"
	projectEndpoint = "GetProject"

	// activeProjectStatus is the iStatus value the project search filters on.
	activeProjectStatus = "3"

	// DateLayout is the Date parameter format of GetErnMgmtRep.
	DateLayout = "2006-01-02"
)

// APIError is a non-success answer from the report service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client fetches report periods and projects from the report service.
// Responses are never retried.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	timeout time.Duration
	log     *zap.Logger
	reports *ResponseCache[[]model.RawPeriodRecord]
	group   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithLogger sets the logger used for request and error logs.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCache stores decoded report periods in cache.
func WithCache(cache *ResponseCache[[]model.RawPeriodRecord]) Option {
	return func(c *Client) { c.reports = cache }
}

// NewClient creates a client for baseURL. Every request is bounded by
// timeout in addition to the caller's context.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReportQuery selects one report: a project as of a date.
type ReportQuery struct {
	ProjectID int
	Date      time.Time
}

func (q ReportQuery) params() map[string]string {
	return map[string]string{
		"Project": strconv.Itoa(q.ProjectID),
		"Date":    q.Date.Format(DateLayout),
	}
}

// ParseDate parses a yyyy-mm-dd date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FetchReport returns the period records of a project in upstream order.
//
// A ResultData that is not an array is logged and yields an empty slice.
// Concurrent calls for the same query share one upstream request. It keeps
// the values of the first caller's context but not its cancellation, and is
// bounded by the client timeout; a caller whose ctx ends stops waiting
// without affecting the others.
func (c *Client) FetchReport(ctx context.Context, q ReportQuery) ([]model.RawPeriodRecord, error) {
	if q.ProjectID <= 0 {
		return nil, fmt.Errorf("project id is required")
	}
	if q.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}

	params := q.params()
	key := CacheKey(reportEndpoint, params)
	if cached, ok := c.reports.Get(key); ok {
		c.log.Debug("report cache hit",
			zap.Int("project", q.ProjectID),
			zap.String("date", params["Date"]),
			zap.Int("periods", len(cached)))
		return cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared request must outlive any one caller: each caller stops
	// waiting on its own ctx, the request stops on the client timeout.
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		body, err := c.get(fetchCtx, reportEndpoint, params)
		if err != nil {
			return nil, err
		}
		recs, err := DecodeEnvelope[model.RawPeriodRecord](body)
		if errors.Is(err, ErrNotArray) {
			c.log.Warn("report payload is not an array, treating as empty",
				zap.Int("project", q.ProjectID), zap.String("date", params["Date"]))
			return []model.RawPeriodRecord{}, nil
		}
		if err != nil {
			c.log.Error("decode report payload", zap.Int("project", q.ProjectID), zap.Error(err))
			return nil, err
		}
		c.reports.Set(key, recs)
		return recs, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	v, shared := res.Val, res.Shared
	recs := v.([]model.RawPeriodRecord)
	c.log.Info("report fetched",
		zap.Int("project", q.ProjectID),
		zap.String("date", params["Date"]),
		zap.Int("periods", len(recs)),
		zap.Bool("shared", shared))
	return recs, nil
}

// SearchProjects returns active projects whose name or code matches term.
func (c *Client) SearchProjects(ctx context.Context, term string) ([]model.Project, error) {
	body, err := c.get(ctx, projectEndpoint, map[string]string{
		"iStatus": activeProjectStatus,
		"sSearch": term,
	})
	if err != nil {
		return nil, err
	}
	projects, err := DecodeEnvelope[model.Project](body)
	if errors.Is(err, ErrNotArray) {
		c.log.Warn("project payload is not an array, treating as empty", zap.String("search", term))
		return []model.Project{}, nil
	}
	if err != nil {
		c.log.Error("decode project payload", zap.String("search", term), zap.Error(err))
		return nil, err
	}
	return projects, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if c.BaseURL == "" {
		return nil, &APIError{Code: "MISSING_BASE_URL", Message: "report service base URL is not configured"}
	}
	u, err := url.Parse(c.BaseURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug("upstream request", zap.String("endpoint", endpoint), zap.String("query", u.RawQuery))

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Error("upstream request failed",
			zap.String("endpoint", endpoint), zap.Duration("duration", elapsed), zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{
			Code:    "UPSTREAM_UNAVAILABLE",
			Message: fmt.Sprintf("report service unreachable: %v", err),
		}
	}
	defer resp.Body.Close()

	c.log.Debug("upstream response",
		zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode), zap.Duration("duration", elapsed))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, &APIError{StatusCode: resp.StatusCode, Code: "NOT_FOUND", Message: endpoint + " not found"}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, &APIError{StatusCode: resp.StatusCode, Code: "UNAUTHORIZED", Message: "report service refused the request"}
	default:
		c.log.Error("upstream error status", zap.String("endpoint", endpoint), zap.String("status", resp.Status))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("report service returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
