package service

import (
	"context"
	"fmt"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/event"
)

// ActivityService keeps the per-task history built from domain events
type ActivityService interface {
	// HandleEvent records a task event. It is registered on the dispatcher.
	HandleEvent(ctx context.Context, evt *event.Event) error

	ForTask(ctx context.Context, taskID string) ([]*entity.Activity, error)
}

var activityKinds = map[event.Type]string{
	event.TypeTaskCreated:  entity.ActivityCreated,
	event.TypeTaskMoved:    entity.ActivityMoved,
	event.TypeTaskArchived: entity.ActivityArchived,
	event.TypeTaskDeleted:  entity.ActivityDeleted,
}

// ActivityEventTypes are the events HandleEvent records
var ActivityEventTypes = []event.Type{
	event.TypeTaskCreated,
	event.TypeTaskMoved,
	event.TypeTaskArchived,
	event.TypeTaskDeleted,
}

type activityServiceImpl struct {
	activities port.ActivityRepository
	logger     Logger
}

// NewActivityService creates a new ActivityService
func NewActivityService(activities port.ActivityRepository, logger Logger) ActivityService {
	return &activityServiceImpl{
		activities: activities,
		logger:     logger,
	}
}

func (s *activityServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	kind, ok := activityKinds[evt.Type]
	if !ok || evt.TaskID == "" {
		return nil
	}

	activity := &entity.Activity{
		TaskID:     evt.TaskID,
		Kind:       kind,
		ActorID:    evt.ActorID,
		FromColumn: evt.GetPayloadString(event.KeyFromColumn),
		ToColumn:   evt.GetPayloadString(event.KeyToColumn),
		Order:      evt.GetPayloadInt(event.KeyOrder),
		CreatedAt:  evt.Timestamp,
	}

	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Error("Failed to record activity",
			"task_id", evt.TaskID,
			"kind", kind,
			"event_id", evt.ID,
			"error", err,
		)
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

func (s *activityServiceImpl) ForTask(ctx context.Context, taskID string) ([]*entity.Activity, error) {
	activities, err := s.activities.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return activities, nil
}
