package entity

import "time"

// Task is a unit of work filed on a kanban lane.
//
// A task sits either on a departmental board (BoardID and ColumnID set) or on the
// legacy status board, where Status doubles as the column. Order is the manual
// top-to-bottom rank inside that lane.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ModuleTag   ModuleTag `json:"module_tag"`

	CompanyID string `json:"company_id,omitempty"`
	BoardID   string `json:"board_id,omitempty"`
	ColumnID  string `json:"column_id,omitempty"`

	Order    int        `json:"order"`
	Status   TaskStatus `json:"status"`
	Archived bool       `json:"archived"`

	AssigneeID string     `json:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Priority   Priority   `json:"priority"`

	Checklist []ChecklistItem `json:"checklist"`
	Comments  []Comment       `json:"comments"`

	// Version is bumped on every write and lets callers opt into stale-write detection.
	Version int64 `json:"version"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChecklistItem is one line of a task checklist
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Comment is a note left on a task
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// OnBoard reports whether the task is filed on a departmental board.
func (t *Task) OnBoard() bool {
	return t.BoardID != "" && t.ColumnID != ""
}

// Lane returns the lane the task is currently sequenced in.
func (t *Task) Lane() Lane {
	if t.OnBoard() {
		return BoardLane(t.BoardID, t.ColumnID)
	}
	return LegacyLane(t.CompanyID, t.Status)
}

// Lane identifies one ordered bucket of tasks: a board column, or a status of
// the legacy board scoped to a company.
type Lane struct {
	BoardID   string     `json:"board_id,omitempty"`
	ColumnID  string     `json:"column_id,omitempty"`
	CompanyID string     `json:"company_id,omitempty"`
	Status    TaskStatus `json:"status,omitempty"`
}

// BoardLane builds the lane of a board column
func BoardLane(boardID, columnID string) Lane {
	return Lane{BoardID: boardID, ColumnID: columnID}
}

// LegacyLane builds the lane of a legacy status column
func LegacyLane(companyID string, status TaskStatus) Lane {
	return Lane{CompanyID: companyID, Status: status}
}

// IsLegacy reports whether the lane belongs to the status-only board.
func (l Lane) IsLegacy() bool {
	return l.ColumnID == ""
}

// Key is the lane's column identifier as seen by drag-and-drop callers.
func (l Lane) Key() string {
	if l.IsLegacy() {
		return string(l.Status)
	}
	return l.ColumnID
}
