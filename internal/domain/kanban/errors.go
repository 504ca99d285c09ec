package kanban

import (
	"errors"
	"fmt"
)

var (
	// ErrRoutingUnavailable is returned when a task cannot be placed on a departmental board.
	// It never blocks task creation.
	ErrRoutingUnavailable = errors.New("board routing unavailable")

	// ErrInvalidDrop is returned when a drop has no valid target
	ErrInvalidDrop = errors.New("invalid drop")

	// ErrNoop is returned when a drop resolves to the task's current position
	ErrNoop = errors.New("drop does not change position")

	// ErrColumnNotEmpty is returned when deleting a column that still holds active tasks
	ErrColumnNotEmpty = errors.New("column still has active tasks")

	// ErrStaleWrite is returned when a write carries an outdated task version
	ErrStaleWrite = errors.New("task was modified concurrently")

	// ErrTaskNotFound is returned when no task has the given id
	ErrTaskNotFound = errors.New("task not found")

	// ErrBoardNotFound is returned when no board has the given id
	ErrBoardNotFound = errors.New("board not found")

	// ErrColumnNotFound is returned when no column has the given id
	ErrColumnNotFound = errors.New("column not found")

	// ErrCompanyNotFound is returned when no company has the given id
	ErrCompanyNotFound = errors.New("company not found")

	// ErrInvalidInput is returned when a request field is missing or malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a lifecycle trigger is not allowed in the current state
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)

// PersistenceError wraps a failed store write. Callers recover by re-reading
// the authoritative lane instead of trusting local state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsSilent reports whether err is a drop outcome the UI ignores rather than reports.
func IsSilent(err error) bool {
	return errors.Is(err, ErrNoop) || errors.Is(err, ErrInvalidDrop)
}
