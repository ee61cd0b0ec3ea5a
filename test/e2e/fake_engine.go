package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
)

const (
	engineUsername = "demo"
	enginePassword = "demo"
)

const invoiceDiagram = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:bpmndi="http://www.omg.org/spec/BPMN/20100524/DI" xmlns:dc="http://www.omg.org/spec/DD/20100524/DC" id="invoice-defs">
  <bpmn:process id="invoice" name="Invoice" isExecutable="true">
    <bpmn:startEvent id="start"><bpmn:outgoing>f1</bpmn:outgoing></bpmn:startEvent>
    <bpmn:userTask id="assign" name="Assign approver"><bpmn:incoming>f1</bpmn:incoming><bpmn:outgoing>f2</bpmn:outgoing></bpmn:userTask>
    <bpmn:businessRuleTask id="decide" name="Decide"><bpmn:incoming>f2</bpmn:incoming><bpmn:outgoing>f3</bpmn:outgoing></bpmn:businessRuleTask>
    <bpmn:exclusiveGateway id="gw"><bpmn:incoming>f3</bpmn:incoming><bpmn:outgoing>f4</bpmn:outgoing><bpmn:outgoing>f5</bpmn:outgoing></bpmn:exclusiveGateway>
    <bpmn:endEvent id="end"><bpmn:incoming>f4</bpmn:incoming></bpmn:endEvent>
    <bpmn:endEvent id="rejected"><bpmn:incoming>f5</bpmn:incoming></bpmn:endEvent>
    <bpmn:sequenceFlow id="f1" sourceRef="start" targetRef="assign" />
    <bpmn:sequenceFlow id="f2" sourceRef="assign" targetRef="decide" />
    <bpmn:sequenceFlow id="f3" sourceRef="decide" targetRef="gw" />
    <bpmn:sequenceFlow id="f4" sourceRef="gw" targetRef="end" />
    <bpmn:sequenceFlow id="f5" sourceRef="gw" targetRef="rejected" />
  </bpmn:process>
  <bpmndi:BPMNDiagram id="invoice-di">
    <bpmndi:BPMNPlane id="invoice-plane" bpmnElement="invoice">
      <bpmndi:BPMNShape id="assign_di" bpmnElement="assign"><dc:Bounds x="200" y="80" width="100" height="80" /></bpmndi:BPMNShape>
    </bpmndi:BPMNPlane>
  </bpmndi:BPMNDiagram>
</bpmn:definitions>`

var engineResponses = map[string]string{
	"/version": `{"version":""}`,
	"/history/process-instance/inst-1": `{"id":"inst-1","businessKey":null,"processDefinitionId":"invoice:2:7","processDefinitionKey":"invoice",
		"processDefinitionName":"Invoice","processDefinitionVersion":2,"tenantId":"","superProcessInstanceId":"parent-9",
		"state":"COMPLETED","startTime":"2024-03-01T10:00:00.000+0000","endTime":"2024-03-01T10:06:30.000+0000","durationInMillis":390000}`,
	"/history/activity-instance": `[
		{"id":"start:1","activityId":"start","activityType":"startEvent","processInstanceId":"inst-1","startTime":"2024-03-01T10:00:00.000+0000","endTime":"2024-03-01T10:00:00.000+0000"},
		{"id":"assign:1","activityId":"assign","activityName":"Assign approver","activityType":"userTask","processInstanceId":"inst-1","assignee":"john","startTime":"2024-03-01T10:00:00.000+0000","endTime":"2024-03-01T10:05:00.000+0000","durationInMillis":300000},
		{"id":"gw:1","activityId":"gw","activityType":"exclusiveGateway","processInstanceId":"inst-1","startTime":"2024-03-01T10:06:00.000+0000","endTime":"2024-03-01T10:06:30.000+0000"},
		{"id":"decide:1","activityId":"decide","activityName":"Decide","activityType":"businessRuleTask","processInstanceId":"inst-1","startTime":"2024-03-01T10:05:00.000+0000","endTime":"2024-03-01T10:06:00.000+0000"},
		{"id":"end:1","activityId":"end","activityType":"noneEndEvent","processInstanceId":"inst-1","startTime":"2024-03-01T10:06:30.000+0000","endTime":"2024-03-01T10:06:30.000+0000"}
	]`,
	"/history/variable-instance": `[
		{"id":"var-3","name":"total","type":"Double","value":99.5,"processInstanceId":"inst-1","activityInstanceId":"inst-1"},
		{"id":"var-2","name":"approved","type":"Boolean","value":true,"processInstanceId":"inst-1","activityInstanceId":"decide:1"},
		{"id":"var-1","name":"Approver","type":"String","value":"john","processInstanceId":"inst-1","activityInstanceId":"assign:1"}
	]`,
	"/history/decision-instance": `[
		{"id":"dec-0","decisionDefinitionKey":"approval","processInstanceId":"inst-1","activityId":"decide","activityInstanceId":null},
		{"id":"dec-1","decisionDefinitionKey":"approval","processInstanceId":"inst-1","activityId":"decide","activityInstanceId":"decide:1"}
	]`,
	"/process-definition/invoice:2:7/xml": "",
	"/history/process-instance": `[
		{"id":"inst-1","businessKey":null,"processDefinitionId":"invoice:2:7","state":"COMPLETED","startTime":"2024-03-01T10:00:00.000+0000","endTime":"2024-03-01T10:06:30.000+0000"},
		{"id":"inst-0","businessKey":"INV-1","processDefinitionId":"invoice:2:7","state":"EXTERNALLY_TERMINATED","startTime":"2024-02-01T10:00:00.000+0000","endTime":"2024-02-01T11:00:00.000+0000"}
	]`,
}

// FakeEngine serves a fixed history over the engine REST API.
type FakeEngine struct {
	*httptest.Server

	mu           sync.Mutex
	correlations []string
	queries      map[string]string
}

func NewFakeEngine() *FakeEngine {
	engine := &FakeEngine{queries: map[string]string{}}
	r := chi.NewRouter()
	r.Route("/engine-rest", func(r chi.Router) {
		r.Use(engine.authenticate)
		r.Get("/*", engine.serve)
	})
	engine.Server = httptest.NewServer(r)
	return engine
}

func (e *FakeEngine) Url() string {
	return e.Server.URL + "/engine-rest"
}

// Correlations returns the correlation ids the engine received so far.
func (e *FakeEngine) Correlations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.correlations...)
}

// Query returns the raw query of the last request to path.
func (e *FakeEngine) Query(path string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queries[path]
}

func (e *FakeEngine) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != engineUsername || password != enginePassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (e *FakeEngine) serve(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	e.mu.Lock()
	e.correlations = append(e.correlations, r.Header.Get("X-Correlation-Id"))
	e.queries[path] = r.URL.RawQuery
	e.mu.Unlock()

	body, ok := engineResponses[path]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"type":    "InvalidRequestException",
			"message": "No resource found for " + path,
		})
		return
	}
	if path == "/process-definition/invoice:2:7/xml" {
		resp, _ := json.Marshal(map[string]string{"id": "invoice:2:7", "bpmn20Xml": invoiceDiagram})
		body = string(resp)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}
