package requests

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when an operation targets an unknown request id.
var ErrNotFound = errors.New("service request not found")

// ValidationError reports malformed or out-of-enum input with field detail.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

// Add records a field-level problem.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// Any reports whether any problem was recorded.
func (e *ValidationError) Any() bool { return len(e.Fields) > 0 }

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid submission: " + strings.Join(fields, ", ")
}

// InvalidTransitionError reports a status change that violates the state
// graph, carrying both the attempted target and the current state.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition request from %s to %s", e.From, e.To)
}

// TransientStoreError wraps a persistence failure the caller may retry. The
// core itself never retries; retry policy belongs to the caller.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }
