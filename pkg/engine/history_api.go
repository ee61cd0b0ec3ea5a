package engine

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pbinitiative/zenbpm-history/pkg/history"
)

var _ history.Fetcher = (*Client)(nil)

func (c *Client) GetHistoricProcessInstance(ctx context.Context, processInstanceId string) (history.ProcessInstance, error) {
	var instance history.ProcessInstance
	err := c.Get(ctx, fmt.Sprintf("/history/process-instance/%s", url.PathEscape(processInstanceId)), nil, &instance)
	return instance, err
}

func (c *Client) GetVersion(ctx context.Context) (string, error) {
	var version struct {
		Version string `json:"version"`
	}
	err := c.Get(ctx, "/version", nil, &version)
	return version.Version, err
}

func (c *Client) GetProcessDefinitionXml(ctx context.Context, processDefinitionId string) (history.Diagram, error) {
	var diagram history.Diagram
	err := c.Get(ctx, fmt.Sprintf("/process-definition/%s/xml", url.PathEscape(processDefinitionId)), nil, &diagram)
	return diagram, err
}

func (c *Client) GetHistoricActivityInstances(ctx context.Context, processInstanceId string) ([]history.ActivityInstance, error) {
	activities := []history.ActivityInstance{}
	err := c.Get(ctx, "/history/activity-instance", byProcessInstance(processInstanceId), &activities)
	return activities, err
}

func (c *Client) GetHistoricVariableInstances(ctx context.Context, processInstanceId string) ([]history.VariableInstance, error) {
	variables := []history.VariableInstance{}
	err := c.Get(ctx, "/history/variable-instance", byProcessInstance(processInstanceId), &variables)
	return variables, err
}

func (c *Client) GetHistoricDecisionInstances(ctx context.Context, processInstanceId string) ([]history.DecisionInstance, error) {
	decisions := []history.DecisionInstance{}
	err := c.Get(ctx, "/history/decision-instance", byProcessInstance(processInstanceId), &decisions)
	return decisions, err
}

func (c *Client) GetHistoricProcessInstances(ctx context.Context, query history.InstanceListQuery) ([]history.ProcessInstance, error) {
	params := url.Values{}
	params.Set("processDefinitionId", query.ProcessDefinitionId)
	if query.SortBy != "" {
		params.Set("sortBy", query.SortBy)
		params.Set("sortOrder", query.SortOrder)
	}
	if query.MaxResults > 0 {
		params.Set("maxResults", strconv.Itoa(query.MaxResults))
	}
	instances := []history.ProcessInstance{}
	err := c.Get(ctx, "/history/process-instance", params, &instances)
	return instances, err
}

func byProcessInstance(processInstanceId string) url.Values {
	return url.Values{"processInstanceId": []string{processInstanceId}}
}
