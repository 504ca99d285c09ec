package port

import (
	"context"

	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

// TaskFilter narrows a task listing. Zero values mean "any".
type TaskFilter struct {
	BoardID   string
	ColumnID  string
	CompanyID string
	Status    entity.TaskStatus
	ModuleTag entity.ModuleTag

	// Unboarded keeps only tasks that are not on a departmental board
	Unboarded bool

	// CompanyScoped applies CompanyID even when it is empty, selecting tasks without a company
	CompanyScoped bool

	IncludeArchived bool

	Limit  int
	Offset int
}

// LaneFilter returns the filter selecting the active tasks of a lane.
func LaneFilter(lane entity.Lane) TaskFilter {
	if lane.IsLegacy() {
		return TaskFilter{
			CompanyID:     lane.CompanyID,
			CompanyScoped: true,
			Status:        lane.Status,
			Unboarded:     true,
		}
	}
	return TaskFilter{
		BoardID:  lane.BoardID,
		ColumnID: lane.ColumnID,
	}
}

// Position is everything a move changes on a task, written together
type Position struct {
	BoardID  string
	ColumnID string
	Status   entity.TaskStatus
	Order    int
}

// TaskRepository defines persistence operations for Task.
// List results are sorted by order, then created_at, then id.
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id string) (*entity.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*entity.Task, error)

	// UpdatePosition sets board, column, status and order in a single statement.
	// A positive expectedVersion must match the stored version or ErrStaleWrite is returned.
	UpdatePosition(ctx context.Context, id string, pos Position, expectedVersion int64) error

	// UpdateDetails writes the descriptive fields and sub-documents of a task
	UpdateDetails(ctx context.Context, task *entity.Task, expectedVersion int64) error

	SetOrders(ctx context.Context, assignments []kanban.Assignment) error
	SetArchived(ctx context.Context, id string, archived bool) error
	Delete(ctx context.Context, id string) error

	// CountActive counts non-archived tasks in a column
	CountActive(ctx context.Context, columnID string) (int, error)

	// ReassignColumn moves every task of a column to another column of the same board.
	// An empty toColumnID detaches the tasks from their board.
	ReassignColumn(ctx context.Context, fromColumnID, toColumnID string) (int, error)
}

// BoardRepository defines persistence operations for Board
type BoardRepository interface {
	Create(ctx context.Context, board *entity.Board) error
	GetByID(ctx context.Context, id string) (*entity.Board, error)

	// GetByName returns the active board of a company with the given name
	GetByName(ctx context.Context, companyID, name string) (*entity.Board, error)

	// List returns boards of a company, or every board when companyID is empty
	List(ctx context.Context, companyID string) ([]*entity.Board, error)
}

// ColumnRepository defines persistence operations for Column
type ColumnRepository interface {
	Create(ctx context.Context, column *entity.Column) error
	GetByID(ctx context.Context, id string) (*entity.Column, error)

	// ListByBoard returns the columns of a board sorted by position
	ListByBoard(ctx context.Context, boardID string) ([]*entity.Column, error)

	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error

	// MaxPosition returns the highest column position of a board, or -1 for none
	MaxPosition(ctx context.Context, boardID string) (int, error)
}

// PermissionRepository defines persistence operations for BoardPermission
type PermissionRepository interface {
	Grant(ctx context.Context, boardID, userID string, level entity.PermissionLevel) error
	ListByBoard(ctx context.Context, boardID string) ([]*entity.BoardPermission, error)
}

// CompanyRepository is the company registry
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	List(ctx context.Context) ([]*entity.Company, error)
}

// BoardProvisioner creates the standard departmental board set of a company.
// Implementations must be idempotent and atomic: every board it creates comes
// with its default columns and the creator's admin permission, or nothing is written.
type BoardProvisioner interface {
	EnsureDepartmentalBoards(ctx context.Context, companyID, actingUserID string) ([]*entity.Board, error)
}

// ActivityRepository defines persistence operations for Activity
type ActivityRepository interface {
	Create(ctx context.Context, activity *entity.Activity) error
	ListByTask(ctx context.Context, taskID string) ([]*entity.Activity, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
