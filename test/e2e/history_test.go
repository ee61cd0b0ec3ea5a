package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/pbinitiative/zenbpm-history/internal/cockpit"
	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestApiPlugins(t *testing.T) {
	body, err := app.NewRequest(t).WithPath("/plugins").DoOk("application/json")
	require.NoError(t, err)
	var extensions []plugin.Extension
	require.NoError(t, json.Unmarshal(body, &extensions))
	ids := []string{}
	for _, ext := range extensions {
		ids = append(ids, ext.Id)
	}
	assert.Equal(t, []string{cockpit.ExtensionDefinitionTab, cockpit.ExtensionDiagramToggle, cockpit.ExtensionInstanceRoute}, ids)
}

func TestRestApiInstanceHistory(t *testing.T) {
	var view cockpit.InstanceView
	t.Run("aggregate instance", func(t *testing.T) {
		body, err := app.NewRequest(t).
			WithPath("/api/history/process-instance/inst-1").
			WithHeader("X-Correlation-Id", "e2e-history").
			DoOk("application/json")
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &view))
		assert.Contains(t, app.engine.Correlations(), "e2e-history")
		assert.Equal(t, "processInstanceId=inst-1", app.engine.Query("/history/activity-instance"))
	})

	t.Run("empty engine version falls back", func(t *testing.T) {
		assert.Equal(t, history.DefaultVersion, view.Version)
	})

	t.Run("audit log is ordered by end time", func(t *testing.T) {
		ids := []string{}
		for _, entry := range view.AuditLog {
			ids = append(ids, entry.ActivityInstanceId)
		}
		assert.Equal(t, []string{"gw:1", "end:1", "decide:1", "assign:1", "start:1"}, ids)
		assert.Equal(t, "dec-1", view.AuditLog[2].DecisionInstanceId)
		assert.Equal(t, "john", view.AuditLog[3].Assignee)
	})

	t.Run("variables are ordered by name", func(t *testing.T) {
		names := []string{}
		scopes := []string{}
		for _, variable := range view.Variables {
			names = append(names, variable.Name)
			scopes = append(scopes, variable.Scope)
		}
		assert.Equal(t, []string{"Approver", "approved", "total"}, names)
		assert.Equal(t, []string{"Assign approver", "Decide", "Invoice"}, scopes)
		assert.Equal(t, "99.5", view.Variables[2].Value)
	})

	t.Run("diagram is annotated", func(t *testing.T) {
		require.NotNil(t, view.Annotation)
		assert.False(t, view.Annotation.ShowRuntimeToggle)
		assert.Empty(t, view.RuntimeHref)
		taken := []string{}
		for _, flow := range view.Annotation.TakenFlows {
			taken = append(taken, flow.Id)
		}
		assert.Equal(t, []string{"f1", "f2", "f3", "f4"}, taken)
		marker, ok := view.Annotation.Marker("assign")
		require.True(t, ok)
		require.NotNil(t, marker.Bounds)
		assert.Equal(t, float64(200), marker.Bounds.X)
	})

	t.Run("unknown instance", func(t *testing.T) {
		_, status, _, err := app.NewRequest(t).WithPath("/api/history/process-instance/missing").Do()
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestRestApiInstanceRoute(t *testing.T) {
	body, err := app.NewRequest(t).WithPath("/history/process-instance/inst-1").DoOk("text/html")
	require.NoError(t, err)
	page := string(body)
	assert.Contains(t, page, `data-engine-version="7.15.0"`)
	assert.Contains(t, page, `<a href="#/history/process-instance/parent-9">parent-9</a>`)
	assert.Contains(t, page, "<dd>null</dd>")
	assert.NotContains(t, page, "runtime-toggle")
	assert.Less(t, strings.Index(page, `data-variable-id="var-1"`), strings.Index(page, `data-variable-id="var-3"`))

	body, status, _, err := app.NewRequest(t).WithPath("/history/process-instance/missing").Do()
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Empty(t, body)
}

func TestRestApiDefinitionHistory(t *testing.T) {
	body, err := app.NewRequest(t).WithPath("/api/process-definition/invoice:2:7/history-instances").DoOk("application/json")
	require.NoError(t, err)
	var instances []history.ProcessInstance
	require.NoError(t, json.Unmarshal(body, &instances))
	require.Len(t, instances, 2)
	assert.Equal(t, "inst-1", instances[0].Id)
	assert.Contains(t, app.engine.Query("/history/process-instance"), "sortBy=endTime")
	assert.Contains(t, app.engine.Query("/history/process-instance"), "maxResults=1000")

	body, err = app.NewRequest(t).WithPath("/process-definition/invoice:2:7/history").DoOk("text/html")
	require.NoError(t, err)
	assert.Contains(t, string(body), "<td>INV-1</td>")
	assert.Contains(t, string(body), `<a href="#/history/process-instance/inst-0">inst-0</a>`)
}
