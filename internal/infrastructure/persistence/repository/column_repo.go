package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
	"github.com/garyjia/deptboard/internal/infrastructure/persistence/sqlite"
)

// ColumnRepository implements port.ColumnRepository
type ColumnRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewColumnRepository creates a new column repository
func NewColumnRepository(db *sql.DB, logger *zap.Logger) port.ColumnRepository {
	return &ColumnRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a column
func (r *ColumnRepository) Create(ctx context.Context, column *entity.Column) error {
	if column.CreatedAt.IsZero() {
		column.CreatedAt = time.Now().UTC()
	}

	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO board_columns (id, board_id, name, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		column.ID, column.BoardID, column.Name, column.Position, column.CreatedAt.UTC())
	if err != nil {
		r.logger.Error("Failed to create column",
			zap.String("column_id", column.ID),
			zap.String("board_id", column.BoardID),
			zap.Error(err))
		return fmt.Errorf("create column: %w", err)
	}
	return nil
}

// GetByID returns the column, or nil when it does not exist
func (r *ColumnRepository) GetByID(ctx context.Context, id string) (*entity.Column, error) {
	var c entity.Column
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, board_id, name, position, created_at FROM board_columns WHERE id = ?`, id).
		Scan(&c.ID, &c.BoardID, &c.Name, &c.Position, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get column", zap.String("column_id", id), zap.Error(err))
		return nil, fmt.Errorf("get column: %w", err)
	}
	return &c, nil
}

// ListByBoard returns the columns of a board left to right
func (r *ColumnRepository) ListByBoard(ctx context.Context, boardID string) ([]*entity.Column, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx,
		`SELECT id, board_id, name, position, created_at FROM board_columns
		WHERE board_id = ? ORDER BY position, created_at, id`, boardID)
	if err != nil {
		r.logger.Error("Failed to list columns", zap.String("board_id", boardID), zap.Error(err))
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var columns []*entity.Column
	for rows.Next() {
		var c entity.Column
		if err := rows.Scan(&c.ID, &c.BoardID, &c.Name, &c.Position, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, &c)
	}
	return columns, rows.Err()
}

// Rename changes the display name of a column
func (r *ColumnRepository) Rename(ctx context.Context, id, name string) error {
	res, err := sqlite.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE board_columns SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		r.logger.Error("Failed to rename column", zap.String("column_id", id), zap.Error(err))
		return fmt.Errorf("rename column: %w", err)
	}
	return requireRow(res, kanban.ErrColumnNotFound, id)
}

// Delete removes a column row
func (r *ColumnRepository) Delete(ctx context.Context, id string) error {
	res, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM board_columns WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete column", zap.String("column_id", id), zap.Error(err))
		return fmt.Errorf("delete column: %w", err)
	}
	return requireRow(res, kanban.ErrColumnNotFound, id)
}

// MaxPosition returns the rightmost column position of a board, -1 when it has none
func (r *ColumnRepository) MaxPosition(ctx context.Context, boardID string) (int, error) {
	var pos int
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) FROM board_columns WHERE board_id = ?`, boardID).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("max column position: %w", err)
	}
	return pos, nil
}

func requireRow(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

var _ port.ColumnRepository = (*ColumnRepository)(nil)
