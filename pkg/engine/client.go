// Copyright 2021-present ZenBPM Contributors
// (based on git commit history).
//
// ZenBPM project is available under two licenses:
//  - SPDX-License-Identifier: AGPL-3.0-or-later (See LICENSE-AGPL.md)
//  - Enterprise License (See LICENSE-ENTERPRISE.md)

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pbinitiative/zenbpm-history/internal/appcontext"
	otelpkg "github.com/pbinitiative/zenbpm-history/pkg/otel"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const CorrelationHeader = "X-Correlation-Id"

// Client performs authenticated GET requests against the engine REST API.
type Client struct {
	baseUrl    string
	username   string
	password   string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     hclog.Logger
	metrics    *otelpkg.HistoryMetrics
}

type ClientOption = func(*Client)

// NewClient creates a client for the engine REST API rooted at baseUrl
// (e.g. http://localhost:8080/engine-rest).
func NewClient(baseUrl string, options ...ClientOption) *Client {
	client := Client{
		baseUrl: strings.TrimSuffix(baseUrl, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: hclog.Default().Named("engine-client"),
	}
	for _, option := range options {
		option(&client)
	}
	if client.timeout > 0 {
		client.httpClient.Timeout = client.timeout
	}
	if client.metrics == nil {
		metrics, err := otelpkg.NewMetrics(otel.Meter("engine-client"))
		if err != nil {
			client.logger.Warn("failed to create engine client metrics", "err", err)
		} else {
			client.metrics = metrics
		}
	}
	return &client
}

// WithBasicAuth authenticates every request with username and password.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken authenticates every request with a bearer token. It takes
// precedence over basic auth.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds the whole exchange of a single request. It applies to the
// client set by WithHTTPClient as well, whatever the option order.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

// WithHTTPClient replaces the underlying client, keeping its transport as is.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLogger(logger hclog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(metrics *otelpkg.HistoryMetrics) ClientOption {
	return func(c *Client) { c.metrics = metrics }
}

// Get requests path with the optional query and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() { c.record(ctx, path, status, start, err) }()

	target := c.baseUrl + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("error during request build: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if id, ok := appcontext.CorrelationIdFromContext(ctx); ok {
		req.Header.Set(CorrelationHeader, id)
	}
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error during request %s: %w", path, err)
	}
	defer res.Body.Close()
	status = res.StatusCode

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("could not read response body of %s: %w", path, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return newResponseError(path, res.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("could not decode response of %s: %w", path, err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, path string, status int, start time.Time, err error) {
	if err != nil {
		c.logger.Debug("engine request failed", "path", path, "status", status, "err", err)
	}
	if c.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(otelpkg.AttributeEnginePath, routeOf(path)),
		attribute.Int(otelpkg.AttributeEngineStatus, status),
	)
	c.metrics.EngineRequests.Add(ctx, 1, attrs)
	if err != nil {
		c.metrics.EngineRequestsFailed.Add(ctx, 1, attrs)
	}
	c.metrics.EngineRequestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
}

// routeOf drops identifiers from a path to keep metric cardinality low.
func routeOf(path string) string {
	switch {
	case strings.HasPrefix(path, "/history/process-instance/"):
		return "/history/process-instance/{id}"
	case strings.HasPrefix(path, "/process-definition/") && strings.HasSuffix(path, "/xml"):
		return "/process-definition/{id}/xml"
	}
	return path
}
