package capability

import (
	"context"
	"errors"
	"fmt"

	"go-leadflow/internal/features/rule"
)

// Dispatcher is the boundary that actually performs an action's side effect.
// The engine treats it as an opaque, possibly-remote call.
type Dispatcher interface {
	Invoke(ctx context.Context, actionType rule.ActionType, config map[string]interface{}, subjectID string) error
}

// CapabilityError wraps a failed invocation. Transient failures (timeouts,
// unavailable targets) are eligible for the engine's single automatic retry;
// permanent ones are terminal immediately.
type CapabilityError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *CapabilityError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("capability %s failed (%s): %v", e.Op, kind, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Transient builds a retryable capability error.
func Transient(op string, err error) error {
	return &CapabilityError{Op: op, Transient: true, Err: err}
}

// Permanent builds a terminal capability error.
func Permanent(op string, err error) error {
	return &CapabilityError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err should be retried once. Context deadline
// expiry counts as transient: the invocation timed out.
func IsTransient(err error) bool {
	var ce *CapabilityError
	if errors.As(err, &ce) {
		return ce.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}
