package kanban

import (
	"fmt"

	"github.com/garyjia/deptboard/internal/domain/entity"
)

// State is a task's state as far as sequencing is concerned
type State string

const (
	StateUnpositioned State = "UNPOSITIONED"
	StatePositioned   State = "POSITIONED"
	StateArchived     State = "ARCHIVED"
)

// IsTerminal returns true when no further transitions are allowed
func (s State) IsTerminal() bool {
	return s == StateArchived
}

// Trigger is an operation that changes a task's sequencing state
type Trigger string

const (
	TriggerPlace   Trigger = "PLACE"
	TriggerMove    Trigger = "MOVE"
	TriggerArchive Trigger = "ARCHIVE"
)

var transitions = map[State]map[Trigger]State{
	StateUnpositioned: {
		TriggerPlace: StatePositioned,
	},
	StatePositioned: {
		TriggerMove:    StatePositioned,
		TriggerArchive: StateArchived,
	},
}

// StateOf derives the sequencing state from a stored task.
func StateOf(t *entity.Task) State {
	switch {
	case t.Archived:
		return StateArchived
	case t.OnBoard() || t.Status.IsValid():
		return StatePositioned
	default:
		return StateUnpositioned
	}
}

// Fire returns the state reached by applying trigger in from.
func Fire(from State, trigger Trigger) (State, error) {
	to, ok := transitions[from][trigger]
	if !ok {
		return from, fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, from)
	}
	return to, nil
}
