package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
	"github.com/garyjia/deptboard/internal/infrastructure/persistence/sqlite"
)

const taskColumns = `id, title, description, module_tag, company_id, board_id, column_id,
	sort_order, status, archived, assignee_id, due_date, priority, checklist, comments,
	version, created_by, created_at, updated_at`

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a task. Version starts at 1.
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	checklist, comments, err := encodeSubdocs(task)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	task.Version = 1

	query := `INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.ModuleTag,
		nullString(task.CompanyID),
		nullString(task.BoardID),
		nullString(task.ColumnID),
		task.Order,
		task.Status,
		task.Archived,
		nullString(task.AssigneeID),
		nullTime(task.DueDate),
		task.Priority,
		checklist,
		comments,
		task.Version,
		nullString(task.CreatedBy),
		task.CreatedAt.UTC(),
		task.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create task",
			zap.String("task_id", task.ID),
			zap.String("column_id", task.ColumnID),
			zap.Error(err))
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetByID returns the task, or nil when it does not exist
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	task, err := scanTask(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task", zap.String("task_id", id), zap.Error(err))
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// List returns tasks matching the filter in lane order
func (r *TaskRepository) List(ctx context.Context, filter port.TaskFilter) ([]*entity.Task, error) {
	var where []string
	var args []interface{}

	if filter.BoardID != "" {
		where = append(where, "board_id = ?")
		args = append(args, filter.BoardID)
	}
	if filter.ColumnID != "" {
		where = append(where, "column_id = ?")
		args = append(args, filter.ColumnID)
	}
	switch {
	case filter.CompanyID != "":
		where = append(where, "company_id = ?")
		args = append(args, filter.CompanyID)
	case filter.CompanyScoped:
		where = append(where, "company_id IS NULL")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.ModuleTag != "" {
		where = append(where, "module_tag = ?")
		args = append(args, filter.ModuleTag)
	}
	if filter.Unboarded {
		where = append(where, "board_id IS NULL")
	}
	if !filter.IncludeArchived {
		where = append(where, "archived = 0")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY sort_order, created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Any("filter", filter), zap.Error(err))
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdatePosition writes board, column, status and order in one statement
func (r *TaskRepository) UpdatePosition(ctx context.Context, id string, pos port.Position, expectedVersion int64) error {
	query := `
		UPDATE tasks
		SET board_id = ?, column_id = ?, status = ?, sort_order = ?,
			version = version + 1, updated_at = ?
		WHERE id = ?`
	args := []interface{}{
		nullString(pos.BoardID),
		nullString(pos.ColumnID),
		pos.Status,
		pos.Order,
		time.Now().UTC(),
		id,
	}
	if expectedVersion > 0 {
		query += ` AND version = ?`
		args = append(args, expectedVersion)
	}

	res, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update task position",
			zap.String("task_id", id),
			zap.String("column_id", pos.ColumnID),
			zap.Int("order", pos.Order),
			zap.Error(err))
		return fmt.Errorf("update task position: %w", err)
	}
	return r.checkUpdated(ctx, res, id, expectedVersion)
}

// UpdateDetails writes the descriptive fields and sub-documents
func (r *TaskRepository) UpdateDetails(ctx context.Context, task *entity.Task, expectedVersion int64) error {
	checklist, comments, err := encodeSubdocs(task)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = ?, description = ?, assignee_id = ?, due_date = ?, priority = ?,
			checklist = ?, comments = ?, version = version + 1, updated_at = ?
		WHERE id = ?`
	args := []interface{}{
		task.Title,
		task.Description,
		nullString(task.AssigneeID),
		nullTime(task.DueDate),
		task.Priority,
		checklist,
		comments,
		time.Now().UTC(),
		task.ID,
	}
	if expectedVersion > 0 {
		query += ` AND version = ?`
		args = append(args, expectedVersion)
	}

	res, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update task", zap.String("task_id", task.ID), zap.Error(err))
		return fmt.Errorf("update task: %w", err)
	}
	return r.checkUpdated(ctx, res, task.ID, expectedVersion)
}

// checkUpdated tells a missing task from a stale version when nothing was updated
func (r *TaskRepository) checkUpdated(ctx context.Context, res sql.Result, id string, expectedVersion int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if expectedVersion > 0 {
		var exists int
		err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: task %s", kanban.ErrStaleWrite, id)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check task: %w", err)
		}
	}
	return fmt.Errorf("%w: %s", kanban.ErrTaskNotFound, id)
}

// SetOrders writes a batch of orders
func (r *TaskRepository) SetOrders(ctx context.Context, assignments []kanban.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}

	exec := sqlite.Executor(ctx, r.db)
	now := time.Now().UTC()
	for _, a := range assignments {
		_, err := exec.ExecContext(ctx,
			`UPDATE tasks SET sort_order = ?, version = version + 1, updated_at = ? WHERE id = ?`,
			a.Order, now, a.TaskID)
		if err != nil {
			r.logger.Error("Failed to set task order",
				zap.String("task_id", a.TaskID),
				zap.Int("order", a.Order),
				zap.Error(err))
			return fmt.Errorf("set task order: %w", err)
		}
	}
	return nil
}

// SetArchived flips the archived flag
func (r *TaskRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	res, err := sqlite.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE tasks SET archived = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		archived, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to archive task", zap.String("task_id", id), zap.Error(err))
		return fmt.Errorf("archive task: %w", err)
	}
	return r.checkUpdated(ctx, res, id, 0)
}

// Delete removes a task row
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.String("task_id", id), zap.Error(err))
		return fmt.Errorf("delete task: %w", err)
	}
	return r.checkUpdated(ctx, res, id, 0)
}

// CountActive counts non-archived tasks in a column
func (r *TaskRepository) CountActive(ctx context.Context, columnID string) (int, error) {
	var n int
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE column_id = ? AND archived = 0`, columnID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// ReassignColumn moves every task of a column, or detaches them when toColumnID is empty
func (r *TaskRepository) ReassignColumn(ctx context.Context, fromColumnID, toColumnID string) (int, error) {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	if toColumnID == "" {
		res, err = sqlite.Executor(ctx, r.db).ExecContext(ctx,
			`UPDATE tasks SET board_id = NULL, column_id = NULL, version = version + 1, updated_at = ? WHERE column_id = ?`,
			now, fromColumnID)
	} else {
		res, err = sqlite.Executor(ctx, r.db).ExecContext(ctx,
			`UPDATE tasks SET column_id = ?, version = version + 1, updated_at = ? WHERE column_id = ?`,
			toColumnID, now, fromColumnID)
	}
	if err != nil {
		r.logger.Error("Failed to reassign column tasks",
			zap.String("from_column", fromColumnID),
			zap.String("to_column", toColumnID),
			zap.Error(err))
		return 0, fmt.Errorf("reassign column: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func encodeSubdocs(task *entity.Task) (string, string, error) {
	checklist := task.Checklist
	if checklist == nil {
		checklist = []entity.ChecklistItem{}
	}
	comments := task.Comments
	if comments == nil {
		comments = []entity.Comment{}
	}

	cl, err := json.Marshal(checklist)
	if err != nil {
		return "", "", fmt.Errorf("encode checklist: %w", err)
	}
	cm, err := json.Marshal(comments)
	if err != nil {
		return "", "", fmt.Errorf("encode comments: %w", err)
	}
	return string(cl), string(cm), nil
}

func scanTask(row rowScanner) (*entity.Task, error) {
	var t entity.Task
	var companyID, boardID, columnID, assigneeID, createdBy sql.NullString
	var dueDate sql.NullTime
	var checklist, comments string

	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.ModuleTag,
		&companyID,
		&boardID,
		&columnID,
		&t.Order,
		&t.Status,
		&t.Archived,
		&assigneeID,
		&dueDate,
		&t.Priority,
		&checklist,
		&comments,
		&t.Version,
		&createdBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CompanyID = companyID.String
	t.BoardID = boardID.String
	t.ColumnID = columnID.String
	t.AssigneeID = assigneeID.String
	t.CreatedBy = createdBy.String
	t.DueDate = timePtr(dueDate)

	if err := json.Unmarshal([]byte(checklist), &t.Checklist); err != nil {
		return nil, fmt.Errorf("decode checklist of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(comments), &t.Comments); err != nil {
		return nil, fmt.Errorf("decode comments of %s: %w", t.ID, err)
	}
	return &t, nil
}

var _ port.TaskRepository = (*TaskRepository)(nil)
