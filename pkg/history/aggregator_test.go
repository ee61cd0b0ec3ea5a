package history_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/history/historytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newAggregator(f history.Fetcher) *history.Aggregator {
	return history.NewAggregator(f, history.WithClock(func() time.Time { return fixedNow }))
}

func TestAggregate(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(fixedNow)

	result, err := newAggregator(fetcher).Aggregate(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", result.Instance.Id)
	assert.Equal(t, "7.21.0", result.Version)
	assert.Equal(t, "order:1:100", result.Diagram.Id)
	assert.Equal(t, []string{"approve:3", "rate:2", "start:1"}, ids(result.Activities, activityId))
	assert.Equal(t, []string{"v1", "v2"}, ids(result.Variables, variableId))
	assert.Equal(t, map[string]string{"rate:2": "d1"}, result.DecisionByActivity)
	assert.Len(t, result.ActivityById, 3)
	assert.Equal(t, "Rate order", result.ActivityById["rate:2"].ActivityName)

	for _, resource := range []string{
		historytest.ResourceInstance,
		historytest.ResourceVersion,
		historytest.ResourceDiagram,
		historytest.ResourceActivities,
		historytest.ResourceVariables,
		historytest.ResourceDecisions,
	} {
		assert.Equal(t, 1, fetcher.CallCount(resource), resource)
	}
	// source collections stay in engine order
	assert.Equal(t, "start:1", fetcher.Activities[0].Id)
}

func TestAggregateVersionFallback(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(fixedNow)
	fetcher.Version = ""

	result, err := newAggregator(fetcher).Aggregate(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, history.DefaultVersion, result.Version)

	result, err = history.NewAggregator(fetcher, history.WithDefaultVersion("7.20.0")).Aggregate(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "7.20.0", result.Version)
}

// barrierFetcher holds every concurrent retrieval until all five have started.
type barrierFetcher struct {
	*historytest.Fetcher
	started sync.WaitGroup
}

func newBarrierFetcher() *barrierFetcher {
	f := &barrierFetcher{Fetcher: historytest.NewOrderFetcher(fixedNow)}
	f.started.Add(5)
	return f
}

func (f *barrierFetcher) arrive() {
	f.started.Done()
	f.started.Wait()
}

func (f *barrierFetcher) GetVersion(ctx context.Context) (string, error) {
	f.arrive()
	return f.Fetcher.GetVersion(ctx)
}

func (f *barrierFetcher) GetProcessDefinitionXml(ctx context.Context, processDefinitionId string) (history.Diagram, error) {
	f.arrive()
	return f.Fetcher.GetProcessDefinitionXml(ctx, processDefinitionId)
}

func (f *barrierFetcher) GetHistoricActivityInstances(ctx context.Context, processInstanceId string) ([]history.ActivityInstance, error) {
	f.arrive()
	return f.Fetcher.GetHistoricActivityInstances(ctx, processInstanceId)
}

func (f *barrierFetcher) GetHistoricVariableInstances(ctx context.Context, processInstanceId string) ([]history.VariableInstance, error) {
	f.arrive()
	return f.Fetcher.GetHistoricVariableInstances(ctx, processInstanceId)
}

func (f *barrierFetcher) GetHistoricDecisionInstances(ctx context.Context, processInstanceId string) ([]history.DecisionInstance, error) {
	f.arrive()
	return f.Fetcher.GetHistoricDecisionInstances(ctx, processInstanceId)
}

func TestAggregateRetrievesConcurrently(t *testing.T) {
	// given
	fetcher := newBarrierFetcher()
	type result struct {
		history *history.InstanceHistory
		err     error
	}
	done := make(chan result, 1)

	// when
	go func() {
		h, err := newAggregator(fetcher).Aggregate(context.Background(), "42")
		done <- result{history: h, err: err}
	}()

	// then
	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Len(t, res.history.Activities, 3)
		assert.Equal(t, 1, fetcher.CallCount(historytest.ResourceInstance))
	case <-time.After(5 * time.Second):
		t.Fatal("retrievals were not in flight at the same time")
	}
}

func TestAggregateFailsWhenAnyRetrievalFails(t *testing.T) {
	for _, resource := range []string{
		historytest.ResourceVersion,
		historytest.ResourceDiagram,
		historytest.ResourceActivities,
		historytest.ResourceVariables,
		historytest.ResourceDecisions,
	} {
		t.Run(resource, func(t *testing.T) {
			fetcher := historytest.NewOrderFetcher(fixedNow)
			cause := errors.New("connection reset")
			fetcher.Errors = map[string]error{resource: cause}

			result, err := newAggregator(fetcher).Aggregate(context.Background(), "42")

			assert.Nil(t, result)
			assert.ErrorIs(t, err, cause)
			var retrievalErr *history.RetrievalError
			assert.ErrorAs(t, err, &retrievalErr)
			// all five retrievals were issued and awaited
			assert.Equal(t, 1, fetcher.CallCount(historytest.ResourceVersion))
			assert.Equal(t, 1, fetcher.CallCount(historytest.ResourceDiagram))
			assert.Equal(t, 1, fetcher.CallCount(historytest.ResourceActivities))
			assert.Equal(t, 1, fetcher.CallCount(historytest.ResourceVariables))
			assert.Equal(t, 1, fetcher.CallCount(historytest.ResourceDecisions))
		})
	}
}

func TestAggregateInstanceFailureSkipsConcurrentPhase(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(fixedNow)
	cause := errors.New("401 unauthorized")
	fetcher.Errors = map[string]error{historytest.ResourceInstance: cause}

	result, err := newAggregator(fetcher).Aggregate(context.Background(), "42")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, fetcher.CallCount(historytest.ResourceVersion))
	assert.Equal(t, 0, fetcher.CallCount(historytest.ResourceActivities))
}

func TestAggregateMissingIds(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(fixedNow)

	_, err := newAggregator(fetcher).Aggregate(context.Background(), "")
	assert.ErrorIs(t, err, history.ErrMissingInstanceId)
	assert.Equal(t, 0, fetcher.CallCount(historytest.ResourceInstance))

	instance := fetcher.Instances["42"]
	instance.ProcessDefinitionId = ""
	fetcher.Instances["42"] = instance
	_, err = newAggregator(fetcher).Aggregate(context.Background(), "42")
	assert.ErrorIs(t, err, history.ErrMissingDefinitionId)
}

func TestAggregateIsDeterministic(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(fixedNow)
	aggregator := newAggregator(fetcher)

	first, err := aggregator.Aggregate(context.Background(), "42")
	require.NoError(t, err)
	second, err := aggregator.Aggregate(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolve(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(fixedNow)
	aggregator := newAggregator(fetcher)

	outcome := aggregator.Resolve(context.Background(), "")
	assert.Equal(t, history.OutcomeEmpty, outcome.Status)
	assert.Nil(t, outcome.History)

	outcome = aggregator.Resolve(context.Background(), "42")
	assert.Equal(t, history.OutcomeRendered, outcome.Status)
	assert.NotNil(t, outcome.History)

	fetcher.Errors = map[string]error{historytest.ResourceDecisions: errors.New("boom")}
	outcome = aggregator.Resolve(context.Background(), "42")
	assert.Equal(t, history.OutcomeFailed, outcome.Status)
	assert.Nil(t, outcome.History)
	assert.Error(t, outcome.Err)
	assert.Equal(t, "failed", outcome.Status.String())
}

func TestListDefinitionInstances(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(fixedNow)
	aggregator := history.NewAggregator(fetcher, history.WithInstanceListLimit(50))

	instances, err := aggregator.ListDefinitionInstances(context.Background(), "order:1:100")
	require.NoError(t, err)
	assert.Len(t, instances, 1)
	assert.Equal(t, history.InstanceListQuery{
		ProcessDefinitionId: "order:1:100",
		SortBy:              "endTime",
		SortOrder:           "desc",
		MaxResults:          50,
	}, fetcher.LastQuery)

	_, err = aggregator.ListDefinitionInstances(context.Background(), "")
	assert.ErrorIs(t, err, history.ErrMissingDefinitionId)
}

func TestLoader(t *testing.T) {
	fetcher := historytest.NewOrderFetcher(fixedNow)
	loader := history.NewLoader(fetcher)

	instance, err := loader.LoadInstance(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "order-7", *instance.BusinessKey)
	assert.True(t, instance.IsActive())

	_, err = loader.LoadInstance(context.Background(), "43")
	assert.Error(t, err)
}
