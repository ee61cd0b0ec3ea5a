package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pbinitiative/zenbpm-history/internal/cockpit"
	"github.com/pbinitiative/zenbpm-history/internal/config"
	apierror "github.com/pbinitiative/zenbpm-history/internal/rest/error"
	"github.com/pbinitiative/zenbpm-history/internal/rest/middleware"
	"github.com/pbinitiative/zenbpm-history/pkg/engine"
	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/history/historytest"
	"github.com/pbinitiative/zenbpm-history/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, fetcher *historytest.Fetcher, context string) http.Handler {
	t.Helper()
	aggregator := history.NewAggregator(fetcher, history.WithClock(func() time.Time { return now }))
	registry := plugin.NewRegistry()
	require.NoError(t, cockpit.New(aggregator).Register(registry))
	conf := config.Config{Name: "zenbpm-history-test", Server: config.Server{Context: context, Addr: ":0"}}
	return NewServer(conf, registry, aggregator).Handler()
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeApiError(t *testing.T, rec *httptest.ResponseRecorder) apierror.ApiError {
	t.Helper()
	var apiErr apierror.ApiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	return apiErr
}

func TestGetPlugins(t *testing.T) {
	handler := newTestServer(t, historytest.NewOrderFetcher(now), "/cockpit")

	rec := get(t, handler, "/cockpit/plugins")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeJson, rec.Header().Get("Content-Type"))
	var extensions []plugin.Extension
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &extensions))
	require.Len(t, extensions, 3)
	assert.Equal(t, cockpit.ExtensionDefinitionTab, extensions[0].Id)
	assert.Equal(t, cockpit.ExtensionDiagramToggle, extensions[1].Id)
	assert.Equal(t, cockpit.ExtensionInstanceRoute, extensions[2].Id)
	assert.Equal(t, plugin.PointRoute, extensions[2].PluginPoint)

	rec = get(t, handler, "/cockpit/plugins?format=yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeYaml, rec.Header().Get("Content-Type"))
	extensions = nil
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &extensions))
	require.Len(t, extensions, 3)
	assert.Equal(t, "/history/process-instance/:id", extensions[2].Properties["path"])

	rec = get(t, handler, "/cockpit/plugins?format=xml")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierror.TypeBadRequest, decodeApiError(t, rec).Type)

	assert.Equal(t, http.StatusNotFound, get(t, handler, "/plugins").Code)
}

func TestGetInstanceRoute(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(now)
	handler := newTestServer(t, fetcher, "/")

	rec := get(t, handler, "/history/process-instance/42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeHtml, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `data-engine-version="7.21.0"`)
	assert.NotEmpty(t, rec.Header().Get(middleware.CorrelationHeader))
}

func TestGetInstanceRouteWithoutIdIsBlank(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(now)
	handler := newTestServer(t, fetcher, "/")

	rec := get(t, handler, "/history/process-instance/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Zero(t, fetcher.CallCount(historytest.ResourceInstance))
}

func TestGetInstanceRouteFailureIsBlank(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(now)
	fetcher.Errors = map[string]error{historytest.ResourceDecisions: errors.New("engine down")}
	handler := newTestServer(t, fetcher, "/")

	rec := get(t, handler, "/history/process-instance/42")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGetInstanceHistory(t *testing.T) {
	handler := newTestServer(t, historytest.NewOrderFetcher(now), "/")

	rec := get(t, handler, "/api/history/process-instance/42")
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Version     string `json:"version"`
		RuntimeHref string `json:"runtimeHref"`
		AuditLog    []struct {
			ActivityInstanceId string `json:"activityInstanceId"`
			DecisionInstanceId string `json:"decisionInstanceId"`
		} `json:"auditLog"`
		Variables []struct {
			Name string `json:"name"`
		} `json:"variables"`
		Annotation struct {
			Markers []struct {
				ElementId string `json:"elementId"`
			} `json:"markers"`
		} `json:"annotation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "7.21.0", view.Version)
	assert.Equal(t, "#/process-instance/42", view.RuntimeHref)
	require.Len(t, view.AuditLog, 3)
	assert.Equal(t, "approve:3", view.AuditLog[0].ActivityInstanceId)
	assert.Equal(t, "d1", view.AuditLog[1].DecisionInstanceId)
	require.Len(t, view.Variables, 2)
	assert.Equal(t, "amount", view.Variables[0].Name)
	assert.Len(t, view.Annotation.Markers, 3)
}

func TestGetInstanceHistoryErrors(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(now)
	fetcher.Errors = map[string]error{historytest.ResourceVersion: errors.New("engine down")}
	handler := newTestServer(t, fetcher, "/")

	rec := get(t, handler, "/api/history/process-instance/42")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, apierror.TypeBadGateway, decodeApiError(t, rec).Type)

	fetcher.Errors = map[string]error{
		historytest.ResourceInstance: &engine.ResponseError{Path: "/history/process-instance/13", StatusCode: http.StatusNotFound},
	}
	rec = get(t, handler, "/api/history/process-instance/13")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierror.TypeNotFound, decodeApiError(t, rec).Type)
}

func TestGetDefinitionTabAndInstances(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(now)
	handler := newTestServer(t, fetcher, "/")

	rec := get(t, handler, "/process-definition/order:1:100/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<a href="#/history/process-instance/42">42</a>`)
	assert.Equal(t, "order:1:100", fetcher.LastQuery.ProcessDefinitionId)

	rec = get(t, handler, "/api/process-definition/order:1:100/history-instances")
	require.Equal(t, http.StatusOK, rec.Code)
	var instances []history.ProcessInstance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &instances))
	require.Len(t, instances, 1)
	assert.Equal(t, "42", instances[0].Id)

	fetcher.Errors = map[string]error{historytest.ResourceList: errors.New("engine down")}
	assert.Equal(t, http.StatusBadGateway, get(t, handler, "/api/process-definition/order:1:100/history-instances").Code)
	assert.Equal(t, http.StatusBadGateway, get(t, handler, "/process-definition/order:1:100/history").Code)
}

func TestGetDiagramToggle(t *testing.T) {
	handler := newTestServer(t, historytest.NewOrderFetcher(now), "/")

	rec := get(t, handler, "/process-instance/42/toggle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="#/history/process-instance/42"`)

	rec = get(t, handler, "/process-instance/42/toggle?location=%23%2Fprocess-instance%2F42%2Fruntime")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="#/history/process-instance/42/"`)
}

func TestSystemEndpoints(t *testing.T) {
	handler := newTestServer(t, historytest.NewOrderFetcher(now), "/cockpit")

	rec := get(t, handler, "/system/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "zenbpm-history-test", status.Name)
	assert.Equal(t, "UP", status.Status)
	assert.Equal(t, 3, status.Extensions)

	assert.Equal(t, http.StatusOK, get(t, handler, "/system/metrics").Code)
}
