package entity

// ModuleTag is the business domain a task belongs to
type ModuleTag string

const (
	ModuleGeneral     ModuleTag = "general"
	ModuleOmbudsman   ModuleTag = "ombudsman"
	ModuleCompliance  ModuleTag = "compliance"
	ModuleCollections ModuleTag = "collections"
	ModuleSales       ModuleTag = "sales"
	ModuleLegal       ModuleTag = "legal"
)

// IsValid checks if the module tag is one of the defined constants
func (m ModuleTag) IsValid() bool {
	switch m {
	case ModuleGeneral,
		ModuleOmbudsman,
		ModuleCompliance,
		ModuleCollections,
		ModuleSales,
		ModuleLegal:
		return true
	default:
		return false
	}
}

// TaskStatus is the status of a task on the legacy board
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusInReview   TaskStatus = "in_review"
	StatusDone       TaskStatus = "done"
)

// IsValid checks if the status is one of the defined constants
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return true
	default:
		return false
	}
}

// Priority constants
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is one of the defined constants
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// PermissionLevel is a user's access level on a board
type PermissionLevel string

const (
	PermissionAdmin  PermissionLevel = "admin"
	PermissionEditor PermissionLevel = "editor"
	PermissionViewer PermissionLevel = "viewer"
)

// Activity kind constants
const (
	ActivityCreated  = "CREATED"
	ActivityMoved    = "MOVED"
	ActivityArchived = "ARCHIVED"
	ActivityDeleted  = "DELETED"
)
