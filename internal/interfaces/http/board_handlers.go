package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/deptboard/internal/domain/entity"
)

type registerCompanyRequest struct {
	Name      string `json:"name" binding:"required"`
	Provision *bool  `json:"provision"`
}

type companyResponse struct {
	Company *entity.Company `json:"company"`
	Boards  []*entity.Board `json:"boards"`
}

// RegisterCompany handles POST /api/companies
func (h *Handlers) RegisterCompany(c *gin.Context) {
	var req registerCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	provision := req.Provision == nil || *req.Provision

	company, boards, err := h.services.Companies.RegisterCompany(c.Request.Context(), req.Name, actorID(c), provision)
	if err != nil {
		h.fail(c, "register company", err)
		return
	}
	created(c, companyResponse{Company: company, Boards: boards})
}

// ListCompanies handles GET /api/companies
func (h *Handlers) ListCompanies(c *gin.Context) {
	companies, err := h.services.Companies.ListCompanies(c.Request.Context())
	if err != nil {
		h.fail(c, "list companies", err)
		return
	}
	ok(c, companies)
}

// ListBoards handles GET /api/companies/:id/boards
func (h *Handlers) ListBoards(c *gin.Context) {
	boards, err := h.services.Router.ListBoards(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "list boards", err)
		return
	}
	ok(c, boards)
}

// ProvisionBoards handles POST /api/companies/:id/boards/provision
func (h *Handlers) ProvisionBoards(c *gin.Context) {
	boards, err := h.services.Router.EnsureDepartmentalBoards(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		h.fail(c, "provision boards", err)
		return
	}
	if boards == nil {
		boards = []*entity.Board{}
	}
	ok(c, gin.H{"created": boards})
}

// ListColumns handles GET /api/boards/:id/columns
func (h *Handlers) ListColumns(c *gin.Context) {
	cols, err := h.services.Router.ListColumns(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "list columns", err)
		return
	}
	ok(c, cols)
}

type columnNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateColumn handles POST /api/boards/:id/columns
func (h *Handlers) CreateColumn(c *gin.Context) {
	var req columnNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	col, err := h.services.Columns.CreateColumn(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.fail(c, "create column", err)
		return
	}
	created(c, col)
}

// RenameColumn handles PATCH /api/columns/:id
func (h *Handlers) RenameColumn(c *gin.Context) {
	var req columnNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	col, err := h.services.Columns.RenameColumn(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.fail(c, "rename column", err)
		return
	}
	ok(c, col)
}

// DeleteColumn handles DELETE /api/columns/:id
func (h *Handlers) DeleteColumn(c *gin.Context) {
	if err := h.services.Columns.DeleteColumn(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete column", err)
		return
	}
	ok(c, gin.H{"deleted": c.Param("id")})
}

// ColumnTasks handles GET /api/columns/:id/tasks
func (h *Handlers) ColumnTasks(c *gin.Context) {
	lane, _, err := h.services.Sequencer.ResolveLane(c.Request.Context(), c.Param("id"), c.Query("company_id"))
	if err != nil {
		h.fail(c, "resolve column", err)
		return
	}
	h.laneTasks(c, lane)
}

// ReindexColumn handles POST /api/columns/:id/reindex
func (h *Handlers) ReindexColumn(c *gin.Context) {
	lane, _, err := h.services.Sequencer.ResolveLane(c.Request.Context(), c.Param("id"), c.Query("company_id"))
	if err != nil {
		h.fail(c, "resolve column", err)
		return
	}
	h.reindex(c, lane)
}

// legacyLane reads the legacy lane addressed by the :status param and company_id query
func legacyLane(c *gin.Context) (entity.Lane, bool) {
	status := entity.TaskStatus(c.Param("status"))
	if !status.IsValid() {
		badRequest(c, fmt.Sprintf("unknown status %q", status))
		return entity.Lane{}, false
	}
	return entity.LegacyLane(c.Query("company_id"), status), true
}

// LegacyLaneTasks handles GET /api/lanes/legacy/:status/tasks
func (h *Handlers) LegacyLaneTasks(c *gin.Context) {
	if lane, valid := legacyLane(c); valid {
		h.laneTasks(c, lane)
	}
}

// ReindexLegacyLane handles POST /api/lanes/legacy/:status/reindex
func (h *Handlers) ReindexLegacyLane(c *gin.Context) {
	if lane, valid := legacyLane(c); valid {
		h.reindex(c, lane)
	}
}

func (h *Handlers) laneTasks(c *gin.Context, lane entity.Lane) {
	tasks, err := h.services.Sequencer.ColumnTasks(c.Request.Context(), lane)
	if err != nil {
		h.fail(c, "column tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*entity.Task{}
	}
	ok(c, gin.H{"lane": lane, "tasks": tasks})
}

func (h *Handlers) reindex(c *gin.Context, lane entity.Lane) {
	changed, err := h.services.Sequencer.ReindexColumn(c.Request.Context(), lane)
	if err != nil {
		h.fail(c, "reindex column", err)
		return
	}
	ok(c, gin.H{"lane": lane, "changed": changed})
}

// ExportBoard handles GET /api/boards/:id/export
func (h *Handlers) ExportBoard(c *gin.Context) {
	doc, err := h.services.Export.ExportBoard(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "export board", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// StreamBoard handles GET /api/boards/:id/stream
func (h *Handlers) StreamBoard(c *gin.Context) {
	if h.services.Feed == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "live feed disabled"})
		return
	}

	boardID := c.Param("id")
	if _, err := h.services.Router.ListColumns(c.Request.Context(), boardID); err != nil {
		h.fail(c, "stream board", err)
		return
	}

	if err := h.services.Feed.ServeBoard(c.Writer, c.Request, boardID); err != nil {
		h.logger.Error("Board stream failed", "board_id", boardID, "error", err)
	}
}
