package kanban

import (
	"sort"

	"github.com/garyjia/deptboard/internal/domain/entity"
)

// Assignment is an order value to write for one task
type Assignment struct {
	TaskID string
	Order  int
}

// SortLane sorts tasks by order, then creation time, then id. The sort is stable
// so callers get the same lane on every read of the same rows.
func SortLane(tasks []*entity.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// ActiveOnly drops archived tasks. The input slice is not modified.
func ActiveOnly(tasks []*entity.Task) []*entity.Task {
	active := make([]*entity.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Archived {
			active = append(active, t)
		}
	}
	return active
}

// Without returns tasks minus the one with the given id.
func Without(tasks []*entity.Task, id string) []*entity.Task {
	out := make([]*entity.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// IndexOf returns the position of the task in the lane, or -1.
func IndexOf(tasks []*entity.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Rerank inserts the dragged task at order within siblings and returns the
// writes that make the lane dense again. The dragged task is always included;
// siblings are only included when their order changes.
func Rerank(siblings []*entity.Task, draggedID string, order int) []Assignment {
	if order < 0 {
		order = 0
	}
	if order > len(siblings) {
		order = len(siblings)
	}

	out := []Assignment{{TaskID: draggedID, Order: order}}
	for i, t := range siblings {
		want := i
		if i >= order {
			want = i + 1
		}
		if t.Order != want {
			out = append(out, Assignment{TaskID: t.ID, Order: want})
		}
	}
	return out
}

// Renormalize rewrites the active tasks of a lane to orders 0..N-1, keeping the
// current relative order. Archived tasks are ignored. Only tasks whose order
// changes are returned.
func Renormalize(tasks []*entity.Task) []Assignment {
	active := ActiveOnly(tasks)
	SortLane(active)

	var out []Assignment
	for i, t := range active {
		if t.Order != i {
			out = append(out, Assignment{TaskID: t.ID, Order: i})
		}
	}
	return out
}
