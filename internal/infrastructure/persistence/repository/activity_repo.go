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

// ActivityRepository implements port.ActivityRepository
type ActivityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sql.DB, logger *zap.Logger) port.ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an activity entry and sets its ID
func (r *ActivityRepository) Create(ctx context.Context, activity *entity.Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	res, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO task_activity (task_id, kind, actor_id, from_column, to_column, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		activity.TaskID,
		activity.Kind,
		nullString(activity.ActorID),
		nullString(activity.FromColumn),
		nullString(activity.ToColumn),
		activity.Order,
		activity.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to record task activity",
			zap.String("task_id", activity.TaskID),
			zap.String("kind", activity.Kind),
			zap.Error(err))
		return fmt.Errorf("create activity: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("activity id: %w", err)
	}
	activity.ID = id
	return nil
}

// ListByTask returns a task's history, oldest first
func (r *ActivityRepository) ListByTask(ctx context.Context, taskID string) ([]*entity.Activity, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, `
		SELECT id, task_id, kind, actor_id, from_column, to_column, sort_order, created_at
		FROM task_activity WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var activities []*entity.Activity
	for rows.Next() {
		var a entity.Activity
		var actorID, from, to sql.NullString
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Kind, &actorID, &from, &to, &a.Order, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.ActorID = actorID.String
		a.FromColumn = from.String
		a.ToColumn = to.String
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
