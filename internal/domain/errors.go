package domain

import (
	"fmt"
	"strings"
)

// DataError means the input was missing or unrepairable. Stages that hit one
// return an empty result so the run can continue in degraded mode.
type DataError struct {
	Stage  string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error in %s: %s", e.Stage, e.Reason)
}

// ModelError means fitting or inference failed and the stage must abort.
// MissingFeatures is populated when inference was called without the columns
// the model was trained with.
type ModelError struct {
	Reason          string
	MissingFeatures []string
}

func (e *ModelError) Error() string {
	if len(e.MissingFeatures) > 0 {
		return fmt.Sprintf("model error: missing features: %s", strings.Join(e.MissingFeatures, ", "))
	}
	return "model error: " + e.Reason
}

// TransportError is a network-level dispatch failure, retried per policy
// before escalating to the UI fallback.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError is terminal: bad credentials are never retried.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Authentication failed: %d", e.StatusCode)
}
