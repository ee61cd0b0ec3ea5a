package history_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pbinitiative/zenbpm-history/pkg/history"
	"github.com/pbinitiative/zenbpm-history/pkg/ptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids[T any](items []T, id func(T) string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		result = append(result, id(item))
	}
	return result
}

func activityId(a history.ActivityInstance) string { return a.Id }
func variableId(v history.VariableInstance) string { return v.Id }

func TestSortActivitiesRunningFirst(t *testing.T) {
	// given
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	activities := []history.ActivityInstance{
		{Id: "A", EndTime: history.NewTime(now.Add(-10 * time.Second))},
		{Id: "B"},
		{Id: "C", EndTime: history.NewTime(now.Add(-5 * time.Second))},
	}
	// when
	sorted := history.SortActivitiesByEndTime(activities, now)
	// then
	assert.Equal(t, []string{"B", "C", "A"}, ids(sorted, activityId))
	assert.Equal(t, []string{"A", "B", "C"}, ids(activities, activityId), "input must not be reordered")
}

func TestSortActivitiesIsStable(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	same := now.Add(-time.Minute)
	activities := []history.ActivityInstance{
		{Id: "ended-1", EndTime: history.NewTime(same)},
		{Id: "running-1"},
		{Id: "ended-2", EndTime: history.NewTime(same)},
		{Id: "running-2"},
		{Id: "zero-end", EndTime: &history.Time{}},
	}

	sorted := history.SortActivitiesByEndTime(activities, now)

	assert.Equal(t, []string{"running-1", "running-2", "zero-end", "ended-1", "ended-2"}, ids(sorted, activityId))
}

func TestSortActivitiesEmpty(t *testing.T) {
	sorted := history.SortActivitiesByEndTime(nil, time.Now())
	assert.NotNil(t, sorted)
	assert.Empty(t, sorted)
}

func TestSortVariablesByName(t *testing.T) {
	variables := []history.VariableInstance{
		{Id: "b", Name: "b"},
		{Id: "a-first", Name: "a"},
		{Id: "a-second", Name: "a"},
		{Id: "upper", Name: "B"},
	}

	sorted := history.SortVariablesByName(variables)

	// ordinal comparison puts upper case before lower case
	assert.Equal(t, []string{"upper", "a-first", "a-second", "b"}, ids(sorted, variableId))
	assert.Equal(t, "b", variables[0].Id)
}

func TestIndexDecisionsByActivityLastWriteWins(t *testing.T) {
	decisions := []history.DecisionInstance{
		{Id: "d1", ActivityInstanceId: ptr.To("x")},
		{Id: "unlinked"},
		{Id: "d2", ActivityInstanceId: ptr.To("x")},
		{Id: "d3", ActivityInstanceId: ptr.To("y")},
	}

	index := history.IndexDecisionsByActivity(decisions)

	assert.Equal(t, map[string]string{"x": "d2", "y": "d3"}, index)
}

func TestIndexActivitiesById(t *testing.T) {
	activities := []history.ActivityInstance{
		{Id: "a1", ActivityId: "start"},
		{Id: "a2", ActivityId: "task"},
	}

	index := history.IndexActivitiesById(activities)

	require.Len(t, index, 2)
	assert.Equal(t, "task", index["a2"].ActivityId)
}

func TestDecodeEngineRecords(t *testing.T) {
	payload := `[
		{"id":"a1","activityId":"task","activityName":null,"startTime":"2024-03-01T12:00:00.000+0100","endTime":null},
		{"id":"a2","activityId":"end","startTime":"2024-03-01T11:00:00Z","endTime":"2024-03-01T11:00:01.500Z","canceled":true}
	]`
	var activities []history.ActivityInstance
	require.NoError(t, json.Unmarshal([]byte(payload), &activities))

	require.Len(t, activities, 2)
	assert.True(t, activities[0].IsRunning())
	assert.Equal(t, "task", activities[0].DisplayName())
	assert.Equal(t, 11, activities[0].StartTime.UTC().Hour())
	assert.False(t, activities[1].IsRunning())
	assert.True(t, activities[1].Canceled)
	assert.Equal(t, 500*time.Millisecond, activities[1].EndTime.Sub(activities[1].StartTime.Time)-time.Second)

	var broken history.ActivityInstance
	err := json.Unmarshal([]byte(`{"endTime":"yesterday"}`), &broken)
	var timeErr *history.TimeFormatError
	assert.ErrorAs(t, err, &timeErr)
}

func TestVariableDisplayValue(t *testing.T) {
	assert.Equal(t, "A", history.VariableInstance{Value: json.RawMessage(`"A"`)}.DisplayValue())
	assert.Equal(t, "125", history.VariableInstance{Value: json.RawMessage(`125`)}.DisplayValue())
	assert.Equal(t, "null", history.VariableInstance{}.DisplayValue())
	assert.Equal(t, `{"a":1}`, history.VariableInstance{Value: json.RawMessage(`{"a":1}`)}.DisplayValue())
}
