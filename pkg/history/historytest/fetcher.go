// Package historytest provides an in-memory engine for history tests.
package historytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/ptr"
)

// Fetcher serves fixed collections. Errors keyed by resource name make the
// matching retrieval fail.
type Fetcher struct {
	mu sync.Mutex

	Instances  map[string]history.ProcessInstance
	Version    string
	Diagrams   map[string]history.Diagram
	Activities []history.ActivityInstance
	Variables  []history.VariableInstance
	Decisions  []history.DecisionInstance
	Listed     []history.ProcessInstance

	Errors    map[string]error
	Calls     map[string]int
	LastQuery history.InstanceListQuery
}

const (
	ResourceInstance   = "instance"
	ResourceVersion    = "version"
	ResourceDiagram    = "diagram"
	ResourceActivities = "activities"
	ResourceVariables  = "variables"
	ResourceDecisions  = "decisions"
	ResourceList       = "list"
)

var _ history.Fetcher = (*Fetcher)(nil)

func (f *Fetcher) call(resource string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Calls == nil {
		f.Calls = map[string]int{}
	}
	f.Calls[resource]++
	return f.Errors[resource]
}

// CallCount returns how often resource was retrieved.
func (f *Fetcher) CallCount(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[resource]
}

func (f *Fetcher) GetHistoricProcessInstance(ctx context.Context, processInstanceId string) (history.ProcessInstance, error) {
	if err := f.call(ResourceInstance); err != nil {
		return history.ProcessInstance{}, err
	}
	instance, ok := f.Instances[processInstanceId]
	if !ok {
		return history.ProcessInstance{}, fmt.Errorf("process instance %s not found", processInstanceId)
	}
	return instance, nil
}

func (f *Fetcher) GetVersion(ctx context.Context) (string, error) {
	if err := f.call(ResourceVersion); err != nil {
		return "", err
	}
	return f.Version, nil
}

func (f *Fetcher) GetProcessDefinitionXml(ctx context.Context, processDefinitionId string) (history.Diagram, error) {
	if err := f.call(ResourceDiagram); err != nil {
		return history.Diagram{}, err
	}
	return f.Diagrams[processDefinitionId], nil
}

func (f *Fetcher) GetHistoricActivityInstances(ctx context.Context, processInstanceId string) ([]history.ActivityInstance, error) {
	if err := f.call(ResourceActivities); err != nil {
		return nil, err
	}
	return f.Activities, nil
}

func (f *Fetcher) GetHistoricVariableInstances(ctx context.Context, processInstanceId string) ([]history.VariableInstance, error) {
	if err := f.call(ResourceVariables); err != nil {
		return nil, err
	}
	return f.Variables, nil
}

func (f *Fetcher) GetHistoricDecisionInstances(ctx context.Context, processInstanceId string) ([]history.DecisionInstance, error) {
	if err := f.call(ResourceDecisions); err != nil {
		return nil, err
	}
	return f.Decisions, nil
}

func (f *Fetcher) GetHistoricProcessInstances(ctx context.Context, query history.InstanceListQuery) ([]history.ProcessInstance, error) {
	if err := f.call(ResourceList); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.LastQuery = query
	f.mu.Unlock()
	return f.Listed, nil
}

// OrderDiagram is a minimal two task process used across tests.
const OrderDiagram = `<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" xmlns:bpmndi="http://www.omg.org/spec/BPMN/20100524/DI" xmlns:dc="http://www.omg.org/spec/DD/20100524/DC" xmlns:di="http://www.omg.org/spec/DD/20100524/DI" id="Definitions_1" targetNamespace="http://bpmn.io/schema/bpmn">
  <bpmn:process id="order" name="Order" isExecutable="true">
    <bpmn:startEvent id="start" name="Start">
      <bpmn:outgoing>flow_1</bpmn:outgoing>
    </bpmn:startEvent>
    <bpmn:businessRuleTask id="rate" name="Rate order">
      <bpmn:incoming>flow_1</bpmn:incoming>
      <bpmn:outgoing>flow_2</bpmn:outgoing>
    </bpmn:businessRuleTask>
    <bpmn:userTask id="approve" name="Approve order">
      <bpmn:incoming>flow_2</bpmn:incoming>
      <bpmn:outgoing>flow_3</bpmn:outgoing>
    </bpmn:userTask>
    <bpmn:endEvent id="end" name="End">
      <bpmn:incoming>flow_3</bpmn:incoming>
    </bpmn:endEvent>
    <bpmn:sequenceFlow id="flow_1" sourceRef="start" targetRef="rate" />
    <bpmn:sequenceFlow id="flow_2" sourceRef="rate" targetRef="approve" />
    <bpmn:sequenceFlow id="flow_3" sourceRef="approve" targetRef="end" />
  </bpmn:process>
  <bpmndi:BPMNDiagram id="BPMNDiagram_1">
    <bpmndi:BPMNPlane id="BPMNPlane_1" bpmnElement="order">
      <bpmndi:BPMNShape id="start_di" bpmnElement="start">
        <dc:Bounds x="152" y="102" width="36" height="36" />
      </bpmndi:BPMNShape>
      <bpmndi:BPMNShape id="rate_di" bpmnElement="rate">
        <dc:Bounds x="240" y="80" width="100" height="80" />
      </bpmndi:BPMNShape>
      <bpmndi:BPMNShape id="approve_di" bpmnElement="approve">
        <dc:Bounds x="400" y="80" width="100" height="80" />
      </bpmndi:BPMNShape>
      <bpmndi:BPMNShape id="end_di" bpmnElement="end">
        <dc:Bounds x="562" y="102" width="36" height="36" />
      </bpmndi:BPMNShape>
      <bpmndi:BPMNEdge id="flow_1_di" bpmnElement="flow_1">
        <di:waypoint x="188" y="120" />
        <di:waypoint x="240" y="120" />
      </bpmndi:BPMNEdge>
      <bpmndi:BPMNEdge id="flow_2_di" bpmnElement="flow_2">
        <di:waypoint x="340" y="120" />
        <di:waypoint x="400" y="120" />
      </bpmndi:BPMNEdge>
      <bpmndi:BPMNEdge id="flow_3_di" bpmnElement="flow_3">
        <di:waypoint x="500" y="120" />
        <di:waypoint x="562" y="120" />
      </bpmndi:BPMNEdge>
    </bpmndi:BPMNPlane>
  </bpmndi:BPMNDiagram>
</bpmn:definitions>`

// NewOrderFetcher returns a fetcher holding one active order instance "42"
// whose approval task is still running.
func NewOrderFetcher(now time.Time) *Fetcher {
	at := func(offset time.Duration) *history.Time { return history.NewTime(now.Add(offset)) }
	instance := history.ProcessInstance{
		Id:                       "42",
		BusinessKey:              ptr.To("order-7"),
		ProcessDefinitionId:      "order:1:100",
		ProcessDefinitionKey:     "order",
		ProcessDefinitionName:    "Order",
		ProcessDefinitionVersion: 1,
		State:                    history.InstanceStateActive,
		StartTime:                at(-time.Minute),
	}
	return &Fetcher{
		Instances: map[string]history.ProcessInstance{"42": instance},
		Version:   "7.21.0",
		Diagrams: map[string]history.Diagram{
			"order:1:100": {Id: "order:1:100", Bpmn20Xml: OrderDiagram},
		},
		Activities: []history.ActivityInstance{
			{Id: "start:1", ActivityId: "start", ActivityName: "Start", ActivityType: "startEvent", ProcessInstanceId: "42", StartTime: at(-time.Minute), EndTime: at(-time.Minute)},
			{Id: "approve:3", ActivityId: "approve", ActivityName: "Approve order", ActivityType: "userTask", ProcessInstanceId: "42", StartTime: at(-30 * time.Second), Assignee: ptr.To("demo")},
			{Id: "rate:2", ActivityId: "rate", ActivityName: "Rate order", ActivityType: "businessRuleTask", ProcessInstanceId: "42", StartTime: at(-50 * time.Second), EndTime: at(-30 * time.Second)},
		},
		Variables: []history.VariableInstance{
			{Id: "v2", Name: "rating", Type: "String", Value: []byte(`"A"`), ProcessInstanceId: "42", ActivityInstanceId: ptr.To("rate:2")},
			{Id: "v1", Name: "amount", Type: "Integer", Value: []byte(`125`), ProcessInstanceId: "42", ActivityInstanceId: ptr.To("42")},
		},
		Decisions: []history.DecisionInstance{
			{Id: "d1", DecisionDefinitionKey: "rating", ProcessInstanceId: "42", ActivityId: "rate", ActivityInstanceId: ptr.To("rate:2")},
		},
		Listed: []history.ProcessInstance{instance},
	}
}
