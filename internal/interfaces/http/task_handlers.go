package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/application/service"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

type createTaskRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description"`
	ModuleTag   entity.ModuleTag `json:"module_tag"`
	CompanyID   string           `json:"company_id"`
	AssigneeID  string           `json:"assignee_id"`
	DueDate     *time.Time       `json:"due_date"`
	Priority    entity.Priority  `json:"priority"`
}

// CreateTask handles POST /api/tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	task, err := h.services.Tasks.CreateTask(c.Request.Context(), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		ModuleTag:   req.ModuleTag,
		CompanyID:   req.CompanyID,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		ActorID:     actorID(c),
	})
	if err != nil {
		h.fail(c, "create task", err)
		return
	}
	created(c, task)
}

// ListTasksRequest represents query parameters for listing tasks
type ListTasksRequest struct {
	BoardID         string `form:"board_id"`
	ColumnID        string `form:"column_id"`
	CompanyID       string `form:"company_id"`
	Status          string `form:"status"`
	ModuleTag       string `form:"module"`
	Unboarded       bool   `form:"unboarded"`
	IncludeArchived bool   `form:"include_archived"`
	Limit           int    `form:"limit"`
	Offset          int    `form:"offset"`
}

// ListTasks handles GET /api/tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	var req ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		badRequest(c, "invalid query parameters")
		return
	}

	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	tasks, err := h.services.Tasks.ListTasks(c.Request.Context(), port.TaskFilter{
		BoardID:         req.BoardID,
		ColumnID:        req.ColumnID,
		CompanyID:       req.CompanyID,
		Status:          entity.TaskStatus(req.Status),
		ModuleTag:       entity.ModuleTag(req.ModuleTag),
		Unboarded:       req.Unboarded,
		IncludeArchived: req.IncludeArchived,
		Limit:           req.Limit,
		Offset:          req.Offset,
	})
	if err != nil {
		h.fail(c, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*entity.Task{}
	}
	ok(c, tasks)
}

// GetTask handles GET /api/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	task, err := h.services.Tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get task", err)
		return
	}
	ok(c, task)
}

type updateTaskRequest struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	AssigneeID      *string          `json:"assignee_id"`
	DueDate         *time.Time       `json:"due_date"`
	ClearDue        bool             `json:"clear_due"`
	Priority        *entity.Priority `json:"priority"`
	ExpectedVersion int64            `json:"expected_version"`
}

// UpdateTask handles PATCH /api/tasks/:id
func (h *Handlers) UpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	task, err := h.services.Tasks.UpdateDetails(c.Request.Context(), c.Param("id"), service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
		Priority:    req.Priority,
	}, req.ExpectedVersion)
	if err != nil {
		h.fail(c, "update task", err)
		return
	}
	ok(c, task)
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *Handlers) DeleteTask(c *gin.Context) {
	if err := h.services.Tasks.DeleteTask(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		h.fail(c, "delete task", err)
		return
	}
	ok(c, gin.H{"deleted": c.Param("id")})
}

// ArchiveTask handles POST /api/tasks/:id/archive
func (h *Handlers) ArchiveTask(c *gin.Context) {
	task, err := h.services.Tasks.ArchiveTask(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		h.fail(c, "archive task", err)
		return
	}
	ok(c, task)
}

type moveTaskRequest struct {
	SourceColumnID  string             `json:"source_column_id"`
	TargetColumnID  string             `json:"target_column_id"`
	PointerY        float64            `json:"pointer_y"`
	Indicators      []kanban.Indicator `json:"indicators"`
	Offset          *float64           `json:"offset"`
	ExpectedVersion int64              `json:"expected_version"`
}

// MoveTask handles POST /api/tasks/:id/move.
// Drops that change nothing answer 200 with moved=false.
func (h *Handlers) MoveTask(c *gin.Context) {
	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.services.Sequencer.MoveTask(c.Request.Context(), service.MoveRequest{
		TaskID:          c.Param("id"),
		SourceColumnID:  req.SourceColumnID,
		TargetColumnID:  req.TargetColumnID,
		PointerY:        req.PointerY,
		Indicators:      req.Indicators,
		Offset:          req.Offset,
		ExpectedVersion: req.ExpectedVersion,
		ActorID:         actorID(c),
	})

	var persistErr *kanban.PersistenceError
	switch {
	case err == nil:
		ok(c, result)
	case kanban.IsSilent(err):
		if result == nil {
			result = &service.MoveResult{}
		}
		result.Moved = false
		ok(c, result)
	case errors.As(err, &persistErr):
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: result, Error: err.Error()})
	default:
		h.fail(c, "move task", err)
	}
}

type checklistRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddChecklistItem handles POST /api/tasks/:id/checklist
func (h *Handlers) AddChecklistItem(c *gin.Context) {
	var req checklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	task, err := h.services.Tasks.AddChecklistItem(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		h.fail(c, "add checklist item", err)
		return
	}
	ok(c, task)
}

// ToggleChecklistItem handles POST /api/tasks/:id/checklist/:itemId/toggle
func (h *Handlers) ToggleChecklistItem(c *gin.Context) {
	task, err := h.services.Tasks.ToggleChecklistItem(c.Request.Context(), c.Param("id"), c.Param("itemId"))
	if err != nil {
		h.fail(c, "toggle checklist item", err)
		return
	}
	ok(c, task)
}

type commentRequest struct {
	Body string `json:"body" binding:"required"`
}

// AddComment handles POST /api/tasks/:id/comments
func (h *Handlers) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	task, err := h.services.Tasks.AddComment(c.Request.Context(), c.Param("id"), actorID(c), req.Body)
	if err != nil {
		h.fail(c, "add comment", err)
		return
	}
	ok(c, task)
}

// TaskActivity handles GET /api/tasks/:id/activity
func (h *Handlers) TaskActivity(c *gin.Context) {
	activities, err := h.services.Activity.ForTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "task activity", err)
		return
	}
	if activities == nil {
		activities = []*entity.Activity{}
	}
	ok(c, activities)
}
