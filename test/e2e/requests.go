package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

type Application struct {
	httpAddr string
	engine   *FakeEngine
}

type request struct {
	t         testing.TB
	ctx       context.Context
	path      string
	addr      string
	headers   http.Header
	transport http.RoundTripper
}

func (app *Application) NewRequest(t testing.TB) *request {
	return &request{
		t:         t,
		ctx:       nil,
		path:      "",
		addr:      app.httpAddr,
		headers:   map[string][]string{},
		transport: &http.Transport{},
	}
}

func (r *request) WithContext(ctx context.Context) *request {
	r.ctx = ctx
	return r
}

func (r *request) WithHeader(key string, value string) *request {
	r.headers.Set(key, value)
	return r
}

func (r *request) WithPath(path string) *request {
	r.path = path
	return r
}

func (r *request) Do() ([]byte, int, *http.Response, error) {
	c := http.Client{
		Transport: r.transport,
	}
	reqCtx := context.Background()
	if r.t != nil {
		reqCtx = r.t.Context()
	}
	if r.ctx != nil {
		reqCtx = r.ctx
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fmt.Sprintf("http://%s%s", r.addr, r.path), nil)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("error during request build: %w", err)
	}
	if r.headers != nil {
		req.Header = r.headers
	}
	res, err := c.Do(req)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("error during request: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("could not read response body: %w", err)
	}
	return body, res.StatusCode, res, nil
}

// DoOk performs the request and expects a 2XX response of contentType.
func (r *request) DoOk(contentType string) ([]byte, error) {
	respBody, _, resp, err := r.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	err = AssertCommon(resp, contentType)
	if err != nil {
		return nil, fmt.Errorf("error during response %s validation: %w", string(respBody), err)
	}
	return respBody, nil
}

// AssertCommon will check if status code is 2XX and that the content-type header starts with contentType
func AssertCommon(resp *http.Response, contentType string) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("expected status code 2XX, got %v", resp.StatusCode)
	}

	val, ok := resp.Header["Content-Type"]

	// Assert that the "content-type" header is actually set
	if !ok {
		return fmt.Errorf("expected Content-Type header to be set")
	}

	// Assert that it was set as expected
	if !strings.HasPrefix(val[0], contentType) {
		return fmt.Errorf("expected %q, got %s", contentType, val[0])
	}
	return nil
}
