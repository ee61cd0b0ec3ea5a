package history

import (
	"context"
	"errors"
)

type OutcomeStatus int

const (
	// OutcomeRendered carries a complete history
	OutcomeRendered OutcomeStatus = iota
	// OutcomeEmpty means there was nothing to show, the view stays blank
	OutcomeEmpty
	// OutcomeFailed means a retrieval failed, the view stays blank
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeRendered:
		return "rendered"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is handed to the host renderer instead of silently dropping failures.
type Outcome struct {
	Status  OutcomeStatus
	History *InstanceHistory
	Err     error
}

// Resolve aggregates the history of processInstanceId. A missing id yields
// OutcomeEmpty, any retrieval failure OutcomeFailed.
func (a *Aggregator) Resolve(ctx context.Context, processInstanceId string) Outcome {
	if processInstanceId == "" {
		return Outcome{Status: OutcomeEmpty}
	}
	result, err := a.Aggregate(ctx, processInstanceId)
	if err != nil {
		if errors.Is(err, ErrMissingInstanceId) {
			return Outcome{Status: OutcomeEmpty}
		}
		return Outcome{Status: OutcomeFailed, Err: err}
	}
	return Outcome{Status: OutcomeRendered, History: result}
}
