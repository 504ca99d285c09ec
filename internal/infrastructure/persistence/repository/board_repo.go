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
	"github.com/garyjia/deptboard/internal/infrastructure/persistence/sqlite"
)

const boardColumns = `id, name, company_id, department, is_active, created_by, created_at`

// ErrDuplicateBoard is returned when a company already has an active board with the same name
var ErrDuplicateBoard = errors.New("duplicate active board name")

// BoardRepository implements port.BoardRepository
type BoardRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBoardRepository creates a new board repository
func NewBoardRepository(db *sql.DB, logger *zap.Logger) port.BoardRepository {
	return &BoardRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a board
func (r *BoardRepository) Create(ctx context.Context, board *entity.Board) error {
	if board.CreatedAt.IsZero() {
		board.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO boards (` + boardColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		board.ID,
		board.Name,
		nullString(board.CompanyID),
		nullString(board.Department),
		board.IsActive,
		nullString(board.CreatedBy),
		board.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateBoard, board.CompanyID, board.Name)
		}
		r.logger.Error("Failed to create board",
			zap.String("board_id", board.ID),
			zap.String("company_id", board.CompanyID),
			zap.Error(err))
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

// GetByID returns the board, or nil when it does not exist
func (r *BoardRepository) GetByID(ctx context.Context, id string) (*entity.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE id = ?`
	board, err := scanBoard(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get board", zap.String("board_id", id), zap.Error(err))
		return nil, fmt.Errorf("get board: %w", err)
	}
	return board, nil
}

// GetByName returns the active board of a company with the given name, or nil
func (r *BoardRepository) GetByName(ctx context.Context, companyID, name string) (*entity.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE company_id = ? AND name = ? AND is_active = 1`
	board, err := scanBoard(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, companyID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get board by name",
			zap.String("company_id", companyID),
			zap.String("name", name),
			zap.Error(err))
		return nil, fmt.Errorf("get board by name: %w", err)
	}
	return board, nil
}

// List returns the boards of a company in creation order, or every board when companyID is empty
func (r *BoardRepository) List(ctx context.Context, companyID string) ([]*entity.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards`
	var args []interface{}
	if companyID != "" {
		query += ` WHERE company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list boards", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []*entity.Board
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, board)
	}
	return boards, rows.Err()
}

func scanBoard(row rowScanner) (*entity.Board, error) {
	var b entity.Board
	var companyID, department, createdBy sql.NullString
	if err := row.Scan(&b.ID, &b.Name, &companyID, &department, &b.IsActive, &createdBy, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.CompanyID = companyID.String
	b.Department = department.String
	b.CreatedBy = createdBy.String
	return &b, nil
}

var _ port.BoardRepository = (*BoardRepository)(nil)
