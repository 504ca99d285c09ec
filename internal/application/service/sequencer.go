package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/event"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

// MoveRequest is one completed drag.
//
// TargetColumnID is either a board column id or, for the legacy board, a
// status string. Offset overrides the configured drop offset when set.
type MoveRequest struct {
	TaskID          string
	SourceColumnID  string
	TargetColumnID  string
	PointerY        float64
	Indicators      []kanban.Indicator
	Offset          *float64
	ExpectedVersion int64
	ActorID         string
}

// MoveResult reports what a drag did.
type MoveResult struct {
	Moved bool         `json:"moved"`
	Task  *entity.Task `json:"task,omitempty"`
	Order int          `json:"order"`
	Lane  entity.Lane  `json:"lane"`

	// Refreshed is the target lane re-read after a failed write
	Refreshed []*entity.Task `json:"refreshed,omitempty"`
}

// ColumnSequencer owns the manual order of tasks inside a lane
type ColumnSequencer interface {
	// MoveTask applies a drag. Self-drops return kanban.ErrNoop and drops
	// without a target return kanban.ErrInvalidDrop; neither writes anything.
	MoveTask(ctx context.Context, req MoveRequest) (*MoveResult, error)

	// ColumnTasks returns the active tasks of a lane in display order
	ColumnTasks(ctx context.Context, lane entity.Lane) ([]*entity.Task, error)

	// ReindexColumn rewrites the active orders of a lane to 0..N-1 and returns
	// how many tasks changed
	ReindexColumn(ctx context.Context, lane entity.Lane) (int, error)

	// NextOrder is the order that appends to the end of a lane
	NextOrder(ctx context.Context, lane entity.Lane) (int, error)

	// ResolveLane maps a drag target column id to a lane. Status strings
	// address the legacy board of the given company.
	ResolveLane(ctx context.Context, columnKey, companyID string) (entity.Lane, *entity.Column, error)
}

// SequencerConfig holds sequencer tunables
type SequencerConfig struct {
	// DropOffset is added to every indicator position before comparing it with the pointer
	DropOffset float64
}

type columnSequencerImpl struct {
	tasks     port.TaskRepository
	columns   port.ColumnRepository
	boards    port.BoardRepository
	txManager port.TransactionManager
	publisher Publisher
	config    SequencerConfig
	logger    Logger
}

// NewColumnSequencer creates a new ColumnSequencer
func NewColumnSequencer(
	tasks port.TaskRepository,
	columns port.ColumnRepository,
	boards port.BoardRepository,
	txManager port.TransactionManager,
	publisher Publisher,
	config SequencerConfig,
	logger Logger,
) ColumnSequencer {
	return &columnSequencerImpl{
		tasks:     tasks,
		columns:   columns,
		boards:    boards,
		txManager: txManager,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// ResolveLane maps a column id or legacy status to its lane
func (s *columnSequencerImpl) ResolveLane(ctx context.Context, columnKey, companyID string) (entity.Lane, *entity.Column, error) {
	if columnKey == "" {
		return entity.Lane{}, nil, fmt.Errorf("%w: empty column", kanban.ErrInvalidDrop)
	}
	if status := entity.TaskStatus(columnKey); status.IsValid() {
		return entity.LegacyLane(companyID, status), nil, nil
	}

	col, err := s.columns.GetByID(ctx, columnKey)
	if err != nil {
		return entity.Lane{}, nil, fmt.Errorf("get column: %w", err)
	}
	if col == nil {
		return entity.Lane{}, nil, fmt.Errorf("%w: column %s", kanban.ErrColumnNotFound, columnKey)
	}
	return entity.BoardLane(col.BoardID, col.ID), col, nil
}

// ColumnTasks returns the active tasks of a lane sorted by order
func (s *columnSequencerImpl) ColumnTasks(ctx context.Context, lane entity.Lane) ([]*entity.Task, error) {
	tasks, err := s.tasks.List(ctx, port.LaneFilter(lane))
	if err != nil {
		return nil, fmt.Errorf("list lane: %w", err)
	}
	tasks = kanban.ActiveOnly(tasks)
	kanban.SortLane(tasks)
	return tasks, nil
}

// NextOrder returns the lane size, or one past the highest order when the
// lane has gaps, so a new task always lands last.
func (s *columnSequencerImpl) NextOrder(ctx context.Context, lane entity.Lane) (int, error) {
	tasks, err := s.ColumnTasks(ctx, lane)
	if err != nil {
		return 0, err
	}
	next := len(tasks)
	if n := len(tasks); n > 0 && tasks[n-1].Order >= next {
		next = tasks[n-1].Order + 1
	}
	return next, nil
}

// MoveTask resolves a drag against the current lane and writes it in one transaction
func (s *columnSequencerImpl) MoveTask(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	offset := s.config.DropOffset
	if req.Offset != nil {
		offset = *req.Offset
	}
	target, err := kanban.ResolveDrop(req.Indicators, req.PointerY, offset)
	if err != nil {
		return &MoveResult{}, err
	}
	// dropping a card back onto itself is settled before touching the store
	if !target.Append && target.BeforeTaskID == req.TaskID && req.SourceColumnID == req.TargetColumnID {
		return &MoveResult{}, kanban.ErrNoop
	}

	task, err := s.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", kanban.ErrTaskNotFound, req.TaskID)
	}

	result := &MoveResult{Task: task, Order: task.Order, Lane: task.Lane()}

	trigger := kanban.TriggerMove
	if kanban.StateOf(task) == kanban.StateUnpositioned {
		trigger = kanban.TriggerPlace
	}
	if _, err := kanban.Fire(kanban.StateOf(task), trigger); err != nil {
		return result, fmt.Errorf("%w: %v", kanban.ErrInvalidDrop, err)
	}

	if req.ExpectedVersion > 0 && req.ExpectedVersion != task.Version {
		return result, fmt.Errorf("%w: task %s is at version %d", kanban.ErrStaleWrite, task.ID, task.Version)
	}

	targetLane, targetCol, err := s.ResolveLane(ctx, req.TargetColumnID, task.CompanyID)
	if err != nil {
		if errors.Is(err, kanban.ErrColumnNotFound) {
			return result, fmt.Errorf("%w: %v", kanban.ErrInvalidDrop, err)
		}
		return result, err
	}

	if targetCol != nil {
		if err := s.checkBoardCompany(ctx, targetCol.BoardID, task.CompanyID); err != nil {
			return result, err
		}
	}

	sourceLane := task.Lane()
	sameLane := sourceLane == targetLane

	pos := port.Position{
		BoardID:  targetLane.BoardID,
		ColumnID: targetLane.ColumnID,
		Status:   task.Status,
	}
	if targetLane.IsLegacy() {
		pos.Status = targetLane.Status
	} else if status, ok := entity.StatusForColumn(targetCol.Name); ok {
		pos.Status = status
	}

	// lane read and re-rank share one transaction
	var reranked int
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		laneTasks, err := s.ColumnTasks(txCtx, targetLane)
		if err != nil {
			return err
		}
		siblings := kanban.Without(laneTasks, task.ID)

		order, err := kanban.ComputeDropPosition(task.ID, sourceLane.Key(), targetLane.Key(), target, siblings)
		if err != nil {
			return err
		}
		if sameLane && kanban.IndexOf(laneTasks, task.ID) == order {
			return kanban.ErrNoop
		}
		pos.Order = order

		if err := s.tasks.UpdatePosition(txCtx, task.ID, pos, req.ExpectedVersion); err != nil {
			return err
		}
		assignments := kanban.Rerank(siblings, task.ID, order)
		if len(assignments) > 1 {
			if err := s.tasks.SetOrders(txCtx, assignments[1:]); err != nil {
				return err
			}
		}
		reranked = len(assignments) - 1
		return nil
	})
	order := pos.Order
	if err != nil {
		if kanban.IsSilent(err) || errors.Is(err, kanban.ErrStaleWrite) || errors.Is(err, kanban.ErrTaskNotFound) {
			return result, err
		}

		s.logger.Error("Failed to persist move",
			"task_id", task.ID,
			"target_column", targetLane.Key(),
			"order", order,
			"error", err,
		)
		if refreshed, rerr := s.ColumnTasks(ctx, targetLane); rerr == nil {
			result.Refreshed = refreshed
		} else {
			s.logger.Error("Failed to refresh lane after failed move", "target_column", targetLane.Key(), "error", rerr)
		}
		return result, &kanban.PersistenceError{Op: "move task", Err: err}
	}

	moved, err := s.tasks.GetByID(ctx, task.ID)
	if err != nil || moved == nil {
		// the write committed; fall back to the values we wrote
		moved = task
		moved.BoardID, moved.ColumnID, moved.Status, moved.Order = pos.BoardID, pos.ColumnID, pos.Status, pos.Order
	}

	s.logger.Info("Task moved",
		"task_id", task.ID,
		"from_column", sourceLane.Key(),
		"to_column", targetLane.Key(),
		"order", order,
		"reranked", reranked,
	)

	publish(ctx, s.publisher, s.logger, event.NewEvent(event.TypeTaskMoved, task.ID, task.CompanyID, req.ActorID,
		map[string]interface{}{
			event.KeyFromBoard:  sourceLane.BoardID,
			event.KeyFromColumn: sourceLane.Key(),
			event.KeyBoardID:    targetLane.BoardID,
			event.KeyToColumn:   targetLane.Key(),
			event.KeyOrder:      order,
		}))

	return &MoveResult{
		Moved: true,
		Task:  moved,
		Order: order,
		Lane:  targetLane,
	}, nil
}

// checkBoardCompany rejects drops onto a board of another company. A task
// without a company can only move between legacy lanes.
func (s *columnSequencerImpl) checkBoardCompany(ctx context.Context, boardID, companyID string) error {
	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return fmt.Errorf("%w: board %s", kanban.ErrInvalidDrop, boardID)
	}
	if board.CompanyID != companyID {
		return fmt.Errorf("%w: board %s belongs to another company", kanban.ErrInvalidDrop, boardID)
	}
	return nil
}

// ReindexColumn makes a lane's active orders dense
func (s *columnSequencerImpl) ReindexColumn(ctx context.Context, lane entity.Lane) (int, error) {
	var changed int
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		tasks, err := s.tasks.List(txCtx, port.LaneFilter(lane))
		if err != nil {
			return err
		}

		assignments := kanban.Renormalize(tasks)
		if len(assignments) == 0 {
			return nil
		}
		if err := s.tasks.SetOrders(txCtx, assignments); err != nil {
			return err
		}
		changed = len(assignments)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to reindex column", "column", lane.Key(), "error", err)
		return 0, &kanban.PersistenceError{Op: "reindex column", Err: err}
	}

	s.logger.Info("Column reindexed", "column", lane.Key(), "changed", changed)
	if changed > 0 {
		publish(ctx, s.publisher, s.logger, event.NewEvent(event.TypeColumnReindexed, "", lane.CompanyID, "",
			map[string]interface{}{
				event.KeyBoardID:   lane.BoardID,
				event.KeyColumnKey: lane.Key(),
				event.KeyChanged:   changed,
			}))
	}

	return changed, nil
}
