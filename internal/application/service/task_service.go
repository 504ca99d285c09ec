package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/event"
	"github.com/garyjia/deptboard/internal/domain/kanban"
	"github.com/garyjia/deptboard/pkg/utils"
)

// CreateTaskInput holds the fields of a new task
type CreateTaskInput struct {
	Title       string
	Description string
	ModuleTag   entity.ModuleTag
	CompanyID   string
	AssigneeID  string
	DueDate     *time.Time
	Priority    entity.Priority
	ActorID     string
}

// UpdateTaskInput holds the descriptive fields to change. Nil fields are left alone.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	AssigneeID  *string
	DueDate     *time.Time
	ClearDue    bool
	Priority    *entity.Priority
}

// TaskService manages the task lifecycle around the sequencer
type TaskService interface {
	// CreateTask routes the task to its departmental board and appends it to the
	// entry column. When routing is unavailable the task lands at the end of the
	// legacy todo lane instead.
	CreateTask(ctx context.Context, in CreateTaskInput) (*entity.Task, error)

	GetTask(ctx context.Context, id string) (*entity.Task, error)
	ListTasks(ctx context.Context, filter port.TaskFilter) ([]*entity.Task, error)
	UpdateDetails(ctx context.Context, id string, in UpdateTaskInput, expectedVersion int64) (*entity.Task, error)

	// ArchiveTask removes the task from sequencing. The row is kept.
	ArchiveTask(ctx context.Context, id, actorID string) (*entity.Task, error)

	// DeleteTask physically removes the task
	DeleteTask(ctx context.Context, id, actorID string) error

	AddChecklistItem(ctx context.Context, id, text string) (*entity.Task, error)
	ToggleChecklistItem(ctx context.Context, id, itemID string) (*entity.Task, error)
	AddComment(ctx context.Context, id, authorID, body string) (*entity.Task, error)
}

type taskServiceImpl struct {
	tasks     port.TaskRepository
	router    BoardRouter
	sequencer ColumnSequencer
	txManager port.TransactionManager
	publisher Publisher
	logger    Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(
	tasks port.TaskRepository,
	router BoardRouter,
	sequencer ColumnSequencer,
	txManager port.TransactionManager,
	publisher Publisher,
	logger Logger,
) TaskService {
	return &taskServiceImpl{
		tasks:     tasks,
		router:    router,
		sequencer: sequencer,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateTask persists a task at the end of its resolved lane
func (s *taskServiceImpl) CreateTask(ctx context.Context, in CreateTaskInput) (*entity.Task, error) {
	title := utils.CleanText(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", kanban.ErrInvalidInput)
	}
	if in.ModuleTag == "" {
		in.ModuleTag = entity.ModuleGeneral
	}
	if !in.ModuleTag.IsValid() {
		return nil, fmt.Errorf("%w: unknown module %q", kanban.ErrInvalidInput, in.ModuleTag)
	}
	if in.Priority == "" {
		in.Priority = entity.PriorityMedium
	}
	if !in.Priority.IsValid() {
		return nil, fmt.Errorf("%w: unknown priority %q", kanban.ErrInvalidInput, in.Priority)
	}

	now := time.Now()
	task := &entity.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: in.Description,
		ModuleTag:   in.ModuleTag,
		CompanyID:   in.CompanyID,
		Status:      entity.StatusTodo,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
		Priority:    in.Priority,
		Checklist:   []entity.ChecklistItem{},
		Comments:    []entity.Comment{},
		CreatedBy:   in.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	placement, err := s.router.ResolveBoard(ctx, in.ModuleTag, in.CompanyID, in.ActorID)
	if err != nil {
		s.logger.Info("Filing task without a board",
			"module", in.ModuleTag,
			"company_id", in.CompanyID,
			"reason", err,
		)
	} else {
		task.BoardID = placement.BoardID
		task.ColumnID = placement.ColumnID
		if status, ok := entity.StatusForColumn(placement.ColumnName); ok {
			task.Status = status
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		order, err := s.sequencer.NextOrder(txCtx, task.Lane())
		if err != nil {
			return err
		}
		task.Order = order
		return s.tasks.Create(txCtx, task)
	})
	if err != nil {
		s.logger.Error("Failed to create task", "title", title, "error", err)
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("Task created",
		"task_id", task.ID,
		"module", task.ModuleTag,
		"board_id", task.BoardID,
		"column", task.Lane().Key(),
		"order", task.Order,
	)

	publish(ctx, s.publisher, s.logger, event.NewEvent(event.TypeTaskCreated, task.ID, task.CompanyID, in.ActorID,
		map[string]interface{}{
			event.KeyBoardID:  task.BoardID,
			event.KeyToColumn: task.Lane().Key(),
			event.KeyOrder:    task.Order,
		}))

	return task, nil
}

// GetTask retrieves a task by ID
func (s *taskServiceImpl) GetTask(ctx context.Context, id string) (*entity.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", kanban.ErrTaskNotFound, id)
	}
	return task, nil
}

// ListTasks returns tasks matching the filter
func (s *taskServiceImpl) ListTasks(ctx context.Context, filter port.TaskFilter) ([]*entity.Task, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateDetails changes the descriptive fields of a task
func (s *taskServiceImpl) UpdateDetails(ctx context.Context, id string, in UpdateTaskInput, expectedVersion int64) (*entity.Task, error) {
	return s.mutate(ctx, id, expectedVersion, func(task *entity.Task) error {
		if in.Title != nil {
			title := utils.CleanText(*in.Title)
			if title == "" {
				return fmt.Errorf("%w: title is required", kanban.ErrInvalidInput)
			}
			task.Title = title
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.AssigneeID != nil {
			task.AssigneeID = *in.AssigneeID
		}
		if in.ClearDue {
			task.DueDate = nil
		} else if in.DueDate != nil {
			task.DueDate = in.DueDate
		}
		if in.Priority != nil {
			if !in.Priority.IsValid() {
				return fmt.Errorf("%w: unknown priority %q", kanban.ErrInvalidInput, *in.Priority)
			}
			task.Priority = *in.Priority
		}
		return nil
	})
}

// AddChecklistItem appends an unchecked item to a task's checklist
func (s *taskServiceImpl) AddChecklistItem(ctx context.Context, id, text string) (*entity.Task, error) {
	text = utils.CleanText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: checklist text is required", kanban.ErrInvalidInput)
	}
	return s.mutate(ctx, id, 0, func(task *entity.Task) error {
		task.Checklist = append(task.Checklist, entity.ChecklistItem{
			ID:   uuid.NewString(),
			Text: text,
		})
		return nil
	})
}

// ToggleChecklistItem flips the done flag of a checklist item
func (s *taskServiceImpl) ToggleChecklistItem(ctx context.Context, id, itemID string) (*entity.Task, error) {
	return s.mutate(ctx, id, 0, func(task *entity.Task) error {
		for i := range task.Checklist {
			if task.Checklist[i].ID == itemID {
				task.Checklist[i].Done = !task.Checklist[i].Done
				return nil
			}
		}
		return fmt.Errorf("%w: checklist item %s not found", kanban.ErrInvalidInput, itemID)
	})
}

// AddComment appends a comment to a task
func (s *taskServiceImpl) AddComment(ctx context.Context, id, authorID, body string) (*entity.Task, error) {
	body = utils.CleanText(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is required", kanban.ErrInvalidInput)
	}
	return s.mutate(ctx, id, 0, func(task *entity.Task) error {
		task.Comments = append(task.Comments, entity.Comment{
			ID:        uuid.NewString(),
			AuthorID:  authorID,
			Body:      body,
			CreatedAt: time.Now(),
		})
		return nil
	})
}

// mutate loads a task, applies fn and writes the descriptive fields back
func (s *taskServiceImpl) mutate(ctx context.Context, id string, expectedVersion int64, fn func(*entity.Task) error) (*entity.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && expectedVersion != task.Version {
		return nil, fmt.Errorf("%w: task %s is at version %d", kanban.ErrStaleWrite, id, task.Version)
	}

	if err := fn(task); err != nil {
		return nil, err
	}

	if err := s.tasks.UpdateDetails(ctx, task, expectedVersion); err != nil {
		if errors.Is(err, kanban.ErrStaleWrite) || errors.Is(err, kanban.ErrTaskNotFound) {
			return nil, err
		}
		s.logger.Error("Failed to update task", "task_id", id, "error", err)
		return nil, fmt.Errorf("update task: %w", err)
	}

	return s.GetTask(ctx, id)
}

// ArchiveTask sets the archived flag. Archiving an archived task is a no-op.
func (s *taskServiceImpl) ArchiveTask(ctx context.Context, id, actorID string) (*entity.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	state := kanban.StateOf(task)
	if state == kanban.StateArchived {
		return task, nil
	}
	if _, err := kanban.Fire(state, kanban.TriggerArchive); err != nil {
		return nil, err
	}

	if err := s.tasks.SetArchived(ctx, id, true); err != nil {
		s.logger.Error("Failed to archive task", "task_id", id, "error", err)
		return nil, fmt.Errorf("archive task: %w", err)
	}
	task.Archived = true

	s.logger.Info("Task archived", "task_id", id, "column", task.Lane().Key())
	publish(ctx, s.publisher, s.logger, event.NewEvent(event.TypeTaskArchived, id, task.CompanyID, actorID,
		map[string]interface{}{
			event.KeyBoardID:    task.BoardID,
			event.KeyFromColumn: task.Lane().Key(),
		}))

	return task, nil
}

// DeleteTask removes a task row
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id, actorID string) error {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete task", "task_id", id, "error", err)
		return fmt.Errorf("delete task: %w", err)
	}

	s.logger.Info("Task deleted", "task_id", id)
	publish(ctx, s.publisher, s.logger, event.NewEvent(event.TypeTaskDeleted, id, task.CompanyID, actorID,
		map[string]interface{}{
			event.KeyBoardID:    task.BoardID,
			event.KeyFromColumn: task.Lane().Key(),
		}))

	return nil
}
