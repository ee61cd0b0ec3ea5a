// Copyright 2021-present ZenBPM Contributors
// (based on git commit history).
//
// ZenBPM project is available under two licenses:
//  - SPDX-License-Identifier: AGPL-3.0-or-later (See LICENSE-AGPL.md)
//  - Enterprise License (See LICENSE-ENTERPRISE.md)

package history

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// EngineTimeFormat is the date format used by the engine REST API.
const EngineTimeFormat = "2006-01-02T15:04:05.000-0700"

// Time decodes engine timestamps. A null timestamp is represented by a nil *Time.
type Time struct {
	time.Time
}

func NewTime(t time.Time) *Time {
	return &Time{Time: t}
}

func (t *Time) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		return nil
	}
	s, err := strconv.Unquote(raw)
	if err != nil {
		return &TimeFormatError{Value: raw, Err: err}
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(EngineTimeFormat, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return &TimeFormatError{Value: s, Err: err}
		}
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.Time.Format(EngineTimeFormat))), nil
}

type InstanceState string

const (
	InstanceStateActive               InstanceState = "ACTIVE"
	InstanceStateSuspended            InstanceState = "SUSPENDED"
	InstanceStateCompleted            InstanceState = "COMPLETED"
	InstanceStateExternallyTerminated InstanceState = "EXTERNALLY_TERMINATED"
	InstanceStateInternallyTerminated InstanceState = "INTERNALLY_TERMINATED"
)

type ProcessInstance struct {
	Id                       string        `json:"id"`
	BusinessKey              *string       `json:"businessKey"`
	ProcessDefinitionId      string        `json:"processDefinitionId"`
	ProcessDefinitionKey     string        `json:"processDefinitionKey"`
	ProcessDefinitionName    string        `json:"processDefinitionName"`
	ProcessDefinitionVersion int           `json:"processDefinitionVersion"`
	TenantId                 *string       `json:"tenantId"`
	SuperProcessInstanceId   *string       `json:"superProcessInstanceId"`
	RootProcessInstanceId    string        `json:"rootProcessInstanceId,omitempty"`
	State                    InstanceState `json:"state"`
	StartTime                *Time         `json:"startTime"`
	EndTime                  *Time         `json:"endTime"`
	DurationInMillis         *int64        `json:"durationInMillis"`
	DeleteReason             *string       `json:"deleteReason"`
}

// IsActive reports whether the instance can still be shown in the runtime view.
func (pi ProcessInstance) IsActive() bool {
	return pi.State == InstanceStateActive
}

type ActivityInstance struct {
	Id                       string  `json:"id"`
	ParentActivityInstanceId string  `json:"parentActivityInstanceId"`
	ActivityId               string  `json:"activityId"`
	ActivityName             string  `json:"activityName"`
	ActivityType             string  `json:"activityType"`
	ProcessInstanceId        string  `json:"processInstanceId"`
	ProcessDefinitionId      string  `json:"processDefinitionId"`
	CalledProcessInstanceId  *string `json:"calledProcessInstanceId"`
	TaskId                   *string `json:"taskId"`
	Assignee                 *string `json:"assignee"`
	StartTime                *Time   `json:"startTime"`
	EndTime                  *Time   `json:"endTime"`
	DurationInMillis         *int64  `json:"durationInMillis"`
	Canceled                 bool    `json:"canceled"`
	CompleteScope            bool    `json:"completeScope"`
}

// IsRunning reports whether the activity has not ended yet.
func (a ActivityInstance) IsRunning() bool {
	return a.EndTime == nil || a.EndTime.IsZero()
}

// EffectiveEndTime returns the end time or now for a running activity.
func (a ActivityInstance) EffectiveEndTime(now time.Time) time.Time {
	if a.IsRunning() {
		return now
	}
	return a.EndTime.Time
}

// DisplayName falls back to the diagram node id for unnamed activities.
func (a ActivityInstance) DisplayName() string {
	if a.ActivityName != "" {
		return a.ActivityName
	}
	return a.ActivityId
}

type VariableInstance struct {
	Id                 string          `json:"id"`
	Name               string          `json:"name"`
	Type               string          `json:"type"`
	Value              json.RawMessage `json:"value"`
	ProcessInstanceId  string          `json:"processInstanceId"`
	ActivityInstanceId *string         `json:"activityInstanceId"`
	State              string          `json:"state"`
	CreateTime         *Time           `json:"createTime"`
	ErrorMessage       *string         `json:"errorMessage"`
}

// DisplayValue renders the raw value the way the variables table shows it.
func (v VariableInstance) DisplayValue() string {
	raw := strings.TrimSpace(string(v.Value))
	if raw == "" || raw == "null" {
		return "null"
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s
	}
	return raw
}

type DecisionInstance struct {
	Id                     string  `json:"id"`
	DecisionDefinitionId   string  `json:"decisionDefinitionId"`
	DecisionDefinitionKey  string  `json:"decisionDefinitionKey"`
	DecisionDefinitionName string  `json:"decisionDefinitionName"`
	ProcessInstanceId      string  `json:"processInstanceId"`
	ActivityId             string  `json:"activityId"`
	ActivityInstanceId     *string `json:"activityInstanceId"`
	EvaluationTime         *Time   `json:"evaluationTime"`
}

// Diagram is the BPMN xml of a process definition.
type Diagram struct {
	Id        string `json:"id"`
	Bpmn20Xml string `json:"bpmn20Xml"`
}

// InstanceListQuery selects the instances of the definition history tab.
type InstanceListQuery struct {
	ProcessDefinitionId string
	SortBy              string
	SortOrder           string
	MaxResults          int
}

// DefaultInstanceListQuery lists the most recently ended instances first.
func DefaultInstanceListQuery(processDefinitionId string) InstanceListQuery {
	return InstanceListQuery{
		ProcessDefinitionId: processDefinitionId,
		SortBy:              "endTime",
		SortOrder:           "desc",
		MaxResults:          1000,
	}
}
