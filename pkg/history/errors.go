package history

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInstanceId is returned when no process instance id could be resolved.
	ErrMissingInstanceId = errors.New("missing process instance id")

	// ErrMissingDefinitionId is returned when the loaded instance does not reference its definition.
	ErrMissingDefinitionId = errors.New("process instance has no process definition id")
)

type TimeFormatError struct {
	Value string
	Err   error
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("invalid engine timestamp %s: %s", e.Value, e.Err)
}

func (e *TimeFormatError) Unwrap() error { return e.Err }

// RetrievalError names the collection whose retrieval failed the aggregation.
type RetrievalError struct {
	Resource string
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to retrieve %s: %s", e.Resource, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
