package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
	"github.com/garyjia/deptboard/pkg/utils"
)

// ColumnService manages the columns of a board
type ColumnService interface {
	// CreateColumn appends a column to the right end of a board
	CreateColumn(ctx context.Context, boardID, name string) (*entity.Column, error)

	RenameColumn(ctx context.Context, id, name string) (*entity.Column, error)

	// DeleteColumn refuses columns that still hold active tasks. Archived
	// tasks are moved to the board's entry column first.
	DeleteColumn(ctx context.Context, id string) error
}

type columnServiceImpl struct {
	boards    port.BoardRepository
	columns   port.ColumnRepository
	tasks     port.TaskRepository
	txManager port.TransactionManager
	logger    Logger
}

// NewColumnService creates a new ColumnService
func NewColumnService(
	boards port.BoardRepository,
	columns port.ColumnRepository,
	tasks port.TaskRepository,
	txManager port.TransactionManager,
	logger Logger,
) ColumnService {
	return &columnServiceImpl{
		boards:    boards,
		columns:   columns,
		tasks:     tasks,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *columnServiceImpl) CreateColumn(ctx context.Context, boardID, name string) (*entity.Column, error) {
	name = utils.CleanText(name)
	if name == "" {
		return nil, fmt.Errorf("%w: column name is required", kanban.ErrInvalidInput)
	}

	board, err := s.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return nil, kanban.ErrBoardNotFound
	}

	col := &entity.Column{
		ID:        uuid.NewString(),
		BoardID:   boardID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		maxPos, err := s.columns.MaxPosition(txCtx, boardID)
		if err != nil {
			return err
		}
		col.Position = maxPos + 1
		return s.columns.Create(txCtx, col)
	})
	if err != nil {
		s.logger.Error("Failed to create column", "board_id", boardID, "name", name, "error", err)
		return nil, fmt.Errorf("create column: %w", err)
	}

	s.logger.Info("Column created", "board_id", boardID, "column_id", col.ID, "position", col.Position)
	return col, nil
}

func (s *columnServiceImpl) RenameColumn(ctx context.Context, id, name string) (*entity.Column, error) {
	name = utils.CleanText(name)
	if name == "" {
		return nil, fmt.Errorf("%w: column name is required", kanban.ErrInvalidInput)
	}

	col, err := s.columns.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get column: %w", err)
	}
	if col == nil {
		return nil, kanban.ErrColumnNotFound
	}

	if err := s.columns.Rename(ctx, id, name); err != nil {
		s.logger.Error("Failed to rename column", "column_id", id, "error", err)
		return nil, fmt.Errorf("rename column: %w", err)
	}

	col.Name = name
	return col, nil
}

func (s *columnServiceImpl) DeleteColumn(ctx context.Context, id string) error {
	col, err := s.columns.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get column: %w", err)
	}
	if col == nil {
		return kanban.ErrColumnNotFound
	}

	active, err := s.tasks.CountActive(ctx, id)
	if err != nil {
		return fmt.Errorf("count tasks: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("%w: %d active tasks in %s", kanban.ErrColumnNotEmpty, active, col.Name)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// re-check under the transaction
		active, err := s.tasks.CountActive(txCtx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: %d active tasks in %s", kanban.ErrColumnNotEmpty, active, col.Name)
		}

		cols, err := s.columns.ListByBoard(txCtx, col.BoardID)
		if err != nil {
			return err
		}
		entry := ""
		for _, c := range cols {
			if c.ID != id {
				entry = c.ID
				break
			}
		}

		moved, err := s.tasks.ReassignColumn(txCtx, id, entry)
		if err != nil {
			return err
		}
		if moved > 0 {
			s.logger.Info("Archived tasks reassigned", "from_column", id, "to_column", entry, "count", moved)
		}

		return s.columns.Delete(txCtx, id)
	})
	if err != nil {
		s.logger.Error("Failed to delete column", "column_id", id, "error", err)
		return fmt.Errorf("delete column: %w", err)
	}

	s.logger.Info("Column deleted", "board_id", col.BoardID, "column_id", id)
	return nil
}
