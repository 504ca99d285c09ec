package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/infrastructure/persistence/sqlite"
)

// PermissionRepository implements port.PermissionRepository
type PermissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *sql.DB, logger *zap.Logger) port.PermissionRepository {
	return &PermissionRepository{
		db:     db,
		logger: logger,
	}
}

// Grant sets the user's level on a board, replacing any previous grant
func (r *PermissionRepository) Grant(ctx context.Context, boardID, userID string, level entity.PermissionLevel) error {
	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO board_permissions (board_id, user_id, level, granted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (board_id, user_id) DO UPDATE SET level = excluded.level, granted_at = excluded.granted_at`,
		boardID, userID, level, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to grant board permission",
			zap.String("board_id", boardID),
			zap.String("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}

// ListByBoard returns the grants of a board
func (r *PermissionRepository) ListByBoard(ctx context.Context, boardID string) ([]*entity.BoardPermission, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx,
		`SELECT board_id, user_id, level, granted_at FROM board_permissions WHERE board_id = ? ORDER BY user_id`,
		boardID)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var perms []*entity.BoardPermission
	for rows.Next() {
		var p entity.BoardPermission
		if err := rows.Scan(&p.BoardID, &p.UserID, &p.Level, &p.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, &p)
	}
	return perms, rows.Err()
}

var _ port.PermissionRepository = (*PermissionRepository)(nil)
