// Package service holds the kanban use cases: board routing, column
// sequencing, and the task, column, activity and export operations around them.
package service

import (
	"context"

	"github.com/garyjia/deptboard/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Publisher receives domain events after the write they describe has committed.
// dispatcher.Dispatcher satisfies it.
type Publisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// publish hands the event to the publisher. Handler failures are logged only:
// the write is already committed.
func publish(ctx context.Context, pub Publisher, logger Logger, evt *event.Event) {
	if pub == nil {
		return
	}
	if err := pub.Dispatch(ctx, evt); err != nil {
		logger.Error("Event handlers failed",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"task_id", evt.TaskID,
			"error", err,
		)
	}
}
