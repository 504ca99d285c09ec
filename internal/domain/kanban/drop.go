// Package kanban holds the pure ordering rules of the kanban boards: where a
// dragged card lands, how a lane is re-ranked, and the task lifecycle.
// Nothing here touches storage.
package kanban

import (
	"fmt"

	"github.com/garyjia/deptboard/internal/domain/entity"
)

// Indicator is a drop marker rendered above a card. TaskID names the card that
// ends up right after the marker; an empty TaskID is the column's trailing sentinel.
type Indicator struct {
	TaskID   string  `json:"task_id"`
	Position float64 `json:"position"`
}

// IsSentinel reports whether the indicator is the end-of-column marker.
func (i Indicator) IsSentinel() bool {
	return i.TaskID == ""
}

// DropTarget is where a drop resolved to: before a given task, or the end of the lane.
type DropTarget struct {
	BeforeTaskID string
	Append       bool
}

// ResolveDrop picks the indicator the pointer is dropping on.
//
// Every indicator's threshold is Position+offset. The winner is the indicator
// with the smallest non-negative threshold-pointerY; equal distances go to the
// later indicator. When the pointer is below every threshold the drop appends.
func ResolveDrop(indicators []Indicator, pointerY, offset float64) (DropTarget, error) {
	if len(indicators) == 0 {
		return DropTarget{}, fmt.Errorf("%w: no drop indicators", ErrInvalidDrop)
	}

	best := -1
	var bestDistance float64
	for i, ind := range indicators {
		distance := ind.Position + offset - pointerY
		if distance < 0 {
			continue
		}
		if best == -1 || distance <= bestDistance {
			best = i
			bestDistance = distance
		}
	}

	if best == -1 || indicators[best].IsSentinel() {
		return DropTarget{Append: true}, nil
	}
	return DropTarget{BeforeTaskID: indicators[best].TaskID}, nil
}

// ComputeDropPosition returns the order the dragged task takes in the target lane.
//
// siblings must be the active tasks of the target lane sorted by order, without
// the dragged task. The order is a rank among siblings, not an increment.
func ComputeDropPosition(draggedID, sourceColumnID, targetColumnID string, target DropTarget, siblings []*entity.Task) (int, error) {
	if target.Append {
		return len(siblings), nil
	}
	if target.BeforeTaskID == draggedID {
		if sourceColumnID == targetColumnID {
			return 0, ErrNoop
		}
		return 0, fmt.Errorf("%w: task %s cannot drop before itself in another column", ErrInvalidDrop, draggedID)
	}
	for i, t := range siblings {
		if t.ID == target.BeforeTaskID {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: task %s is not in column %s", ErrInvalidDrop, target.BeforeTaskID, targetColumnID)
}
