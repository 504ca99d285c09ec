package event

// Type identifies the type of domain event
type Type string

const (
	TypeTaskCreated       Type = "task.created"
	TypeTaskMoved         Type = "task.moved"
	TypeTaskArchived      Type = "task.archived"
	TypeTaskDeleted       Type = "task.deleted"
	TypeBoardsProvisioned Type = "boards.provisioned"
	TypeColumnReindexed   Type = "column.reindexed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTaskCreated,
		TypeTaskMoved,
		TypeTaskArchived,
		TypeTaskDeleted,
		TypeBoardsProvisioned,
		TypeColumnReindexed:
		return true
	default:
		return false
	}
}

// IsTaskEvent reports whether the event describes a change to a single task.
func (t Type) IsTaskEvent() bool {
	switch t {
	case TypeTaskCreated, TypeTaskMoved, TypeTaskArchived, TypeTaskDeleted:
		return true
	default:
		return false
	}
}
