package cockpit

import (
	"encoding/json"
	"html/template"
	"net/url"
	"time"

	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/navigation"
	"github.com/pbinitiative/zenbpm-history/pkg/ptr"
)

const displayTimeFormat = "2006-01-02 15:04:05"

var funcMap = template.FuncMap{
	"fmtTime": func(t *history.Time) string {
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format(displayTimeFormat)
	},
	"fmtDuration": func(ms *int64) string {
		if ms == nil {
			return ""
		}
		return (time.Duration(*ms) * time.Millisecond).String()
	},
	"orNull":      func(s *string) string { return ptr.StringOr(s, nullPlaceholder) },
	"historyHref": navigation.HistoryLocation,
	"definitionHref": func(processDefinitionId string) string {
		return "#/process-definition/" + url.PathEscape(processDefinitionId) + "/runtime"
	},
	"decisionHref": func(decisionInstanceId string) string {
		return "#/decision-instance/" + url.PathEscape(decisionInstanceId)
	},
	"toJson": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

const tmplInstance = `{{define "instance"}}<div class="history-page" data-engine-version="{{.Version}}">
<ol class="breadcrumb">
  <li><a href="#/processes">Processes</a></li>
  <li><a href="{{definitionHref .Instance.ProcessDefinitionId}}">{{.Instance.ProcessDefinitionName}}</a></li>
  <li class="active">{{.Instance.Id}}</li>
</ol>
<div class="ctn-main">
  <div class="ctn-column">
    <dl class="process-information">
    {{- range .Info}}
      <dt>{{.Label}}</dt>
      <dd>{{if .Href}}<a href="{{.Href}}">{{.Value}}</a>{{else}}{{.Value}}{{end}}</dd>
    {{- end}}
    </dl>
  </div>
  <div class="ctn-content">
    <div class="diagram" data-process-definition-id="{{.Instance.ProcessDefinitionId}}"{{if .Annotation}} data-annotation="{{toJson .Annotation}}"{{end}}>
      {{- if .RuntimeHref}}
      <a class="btn btn-default runtime-toggle" href="{{.RuntimeHref}}">Runtime</a>
      {{- end}}
      <template class="bpmn-xml">{{.DiagramXml}}</template>
    </div>
    <ul class="nav nav-tabs">
      <li class="active"><a href="#audit-log">Audit Log</a></li>
      <li><a href="#variables">Variables</a></li>
    </ul>
    <div id="audit-log" class="ctn-tabbed-content">
      <table class="cam-table audit-log">
        <thead><tr><th>Activity</th><th>Type</th><th>Assignee</th><th>Start Time</th><th>End Time</th><th>Duration</th><th>Decision</th></tr></thead>
        <tbody>
        {{- range .AuditLog}}
          <tr data-activity-instance-id="{{.ActivityInstanceId}}"{{if .Running}} class="running"{{else if .Canceled}} class="canceled"{{end}}>
            <td>{{.Name}}</td>
            <td>{{.Type}}</td>
            <td>{{.Assignee}}</td>
            <td>{{fmtTime .StartTime}}</td>
            <td>{{fmtTime .EndTime}}</td>
            <td>{{fmtDuration .DurationInMillis}}</td>
            <td>{{if .DecisionInstanceId}}<a href="{{decisionHref .DecisionInstanceId}}">{{.DecisionInstanceId}}</a>{{end}}</td>
          </tr>
        {{- end}}
        </tbody>
      </table>
    </div>
    <div id="variables" class="ctn-tabbed-content">
      <table class="cam-table variables">
        <thead><tr><th>Name</th><th>Type</th><th>Value</th><th>Scope</th><th>State</th><th>Created</th></tr></thead>
        <tbody>
        {{- range .Variables}}
          <tr data-variable-id="{{.Id}}">
            <td>{{.Name}}</td>
            <td>{{.Type}}</td>
            <td>{{.Value}}</td>
            <td>{{.Scope}}</td>
            <td>{{.State}}</td>
            <td>{{fmtTime .CreateTime}}</td>
          </tr>
        {{- end}}
        </tbody>
      </table>
    </div>
  </div>
</div>
</div>
{{end}}`

const tmplHistoryTable = `{{define "history-table"}}<table class="cam-table history-instances">
  <thead><tr><th>State</th><th>ID</th><th>Business Key</th><th>Start Time</th><th>End Time</th></tr></thead>
  <tbody>
  {{- range .}}
    <tr>
      <td>{{.State}}</td>
      <td><a href="{{historyHref .Id}}">{{.Id}}</a></td>
      <td>{{orNull .BusinessKey}}</td>
      <td>{{fmtTime .StartTime}}</td>
      <td>{{fmtTime .EndTime}}</td>
    </tr>
  {{- end}}
  </tbody>
</table>
{{end}}`

const tmplToggle = `{{define "toggle"}}<div class="history-toggle"><a class="btn btn-default" href="{{.Href}}" title="Show history">{{.Label}}</a></div>
{{end}}`

var templates = template.Must(template.New("cockpit").Funcs(funcMap).Parse(tmplInstance + tmplHistoryTable + tmplToggle))
