package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/deptboard/internal/domain/kanban"
)

// HeaderUserID carries the acting user. Authentication happens upstream.
const HeaderUserID = "X-User-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Database  string `json:"database"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
		Database:  "ok",
	}

	status := http.StatusOK
	if h.services.Health != nil {
		if err := h.services.Health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			response.Status = "degraded"
			response.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

func actorID(c *gin.Context) string {
	return c.GetHeader(HeaderUserID)
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// statusFor maps the kanban error taxonomy to HTTP status codes
func statusFor(err error) int {
	var persistErr *kanban.PersistenceError
	switch {
	case errors.Is(err, kanban.ErrInvalidInput), errors.Is(err, kanban.ErrInvalidDrop):
		return http.StatusBadRequest
	case errors.Is(err, kanban.ErrTaskNotFound),
		errors.Is(err, kanban.ErrBoardNotFound),
		errors.Is(err, kanban.ErrColumnNotFound),
		errors.Is(err, kanban.ErrCompanyNotFound):
		return http.StatusNotFound
	case errors.Is(err, kanban.ErrColumnNotEmpty),
		errors.Is(err, kanban.ErrStaleWrite),
		errors.Is(err, kanban.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &persistErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server-side failures are logged and
// their details withheld.
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", c.Request.URL.Path, "error", err)
		msg = "internal error"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}
