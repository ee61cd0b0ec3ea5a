package history

import (
	"context"
	"fmt"
)

// InstanceFetcher retrieves a single historic process instance.
type InstanceFetcher interface {
	GetHistoricProcessInstance(ctx context.Context, processInstanceId string) (ProcessInstance, error)
}

// Fetcher is the read-only engine API the aggregator depends on.
type Fetcher interface {
	InstanceFetcher
	GetVersion(ctx context.Context) (string, error)
	GetProcessDefinitionXml(ctx context.Context, processDefinitionId string) (Diagram, error)
	GetHistoricActivityInstances(ctx context.Context, processInstanceId string) ([]ActivityInstance, error)
	GetHistoricVariableInstances(ctx context.Context, processInstanceId string) ([]VariableInstance, error)
	GetHistoricDecisionInstances(ctx context.Context, processInstanceId string) ([]DecisionInstance, error)
	GetHistoricProcessInstances(ctx context.Context, query InstanceListQuery) ([]ProcessInstance, error)
}

// Loader resolves the metadata record of one process instance.
type Loader struct {
	fetcher InstanceFetcher
}

func NewLoader(fetcher InstanceFetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// LoadInstance issues exactly one retrieval for the instance record.
func (l *Loader) LoadInstance(ctx context.Context, processInstanceId string) (ProcessInstance, error) {
	if processInstanceId == "" {
		return ProcessInstance{}, ErrMissingInstanceId
	}
	instance, err := l.fetcher.GetHistoricProcessInstance(ctx, processInstanceId)
	if err != nil {
		return ProcessInstance{}, fmt.Errorf("failed to load process instance %s: %w", processInstanceId, err)
	}
	return instance, nil
}
