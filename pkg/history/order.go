package history

import (
	"sort"
	"time"
)

// IndexDecisionsByActivity maps activity instance ids to the id of the decision
// evaluated there. Decisions without an activity reference are skipped; a later
// decision for the same activity replaces an earlier one.
func IndexDecisionsByActivity(decisions []DecisionInstance) map[string]string {
	index := make(map[string]string, len(decisions))
	for _, decision := range decisions {
		if decision.ActivityInstanceId == nil {
			continue
		}
		index[*decision.ActivityInstanceId] = decision.Id
	}
	return index
}

// IndexActivitiesById maps activity instance ids to their records.
func IndexActivitiesById(activities []ActivityInstance) map[string]ActivityInstance {
	index := make(map[string]ActivityInstance, len(activities))
	for _, activity := range activities {
		index[activity.Id] = activity
	}
	return index
}

// SortActivitiesByEndTime returns a copy of activities ordered by end time, most
// recent first. Running activities end at now and therefore lead the sequence.
// Equal end times keep their input order.
func SortActivitiesByEndTime(activities []ActivityInstance, now time.Time) []ActivityInstance {
	sorted := make([]ActivityInstance, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveEndTime(now).After(sorted[j].EffectiveEndTime(now))
	})
	return sorted
}

// SortVariablesByName returns a copy of variables ordered by name using byte-wise
// comparison. Variables sharing a name keep their input order.
func SortVariablesByName(variables []VariableInstance) []VariableInstance {
	sorted := make([]VariableInstance, len(variables))
	copy(sorted, variables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}
