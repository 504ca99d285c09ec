package service

import (
	"context"
	"fmt"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/event"
	"github.com/garyjia/deptboard/internal/domain/kanban"
)

// Placement is where a new task of a module lands: a departmental board and
// its entry column.
type Placement struct {
	BoardID    string
	ColumnID   string
	ColumnName string
}

// Lane returns the lane of the entry column
func (p *Placement) Lane() entity.Lane {
	return entity.BoardLane(p.BoardID, p.ColumnID)
}

// BoardRouter maps a module tag and company to a departmental board,
// provisioning the company's board set on first use.
type BoardRouter interface {
	// ResolveBoard never fails task creation: every failure is reported as
	// kanban.ErrRoutingUnavailable and the caller files the task unboarded.
	ResolveBoard(ctx context.Context, module entity.ModuleTag, companyID, actingUserID string) (*Placement, error)

	// EnsureDepartmentalBoards creates the missing canonical boards of a company
	// and returns the ones it created. A second call creates nothing.
	EnsureDepartmentalBoards(ctx context.Context, companyID, actingUserID string) ([]*entity.Board, error)

	ListBoards(ctx context.Context, companyID string) ([]*entity.Board, error)
	ListColumns(ctx context.Context, boardID string) ([]*entity.Column, error)
}

type boardRouterImpl struct {
	companies   port.CompanyRepository
	boards      port.BoardRepository
	columns     port.ColumnRepository
	provisioner port.BoardProvisioner
	publisher   Publisher
	logger      Logger
}

// NewBoardRouter creates a new BoardRouter
func NewBoardRouter(
	companies port.CompanyRepository,
	boards port.BoardRepository,
	columns port.ColumnRepository,
	provisioner port.BoardProvisioner,
	publisher Publisher,
	logger Logger,
) BoardRouter {
	return &boardRouterImpl{
		companies:   companies,
		boards:      boards,
		columns:     columns,
		provisioner: provisioner,
		publisher:   publisher,
		logger:      logger,
	}
}

func routingUnavailable(reason string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kanban.ErrRoutingUnavailable, fmt.Sprintf(reason, args...))
}

// ResolveBoard returns the departmental board and entry column for a module
func (r *boardRouterImpl) ResolveBoard(ctx context.Context, module entity.ModuleTag, companyID, actingUserID string) (*Placement, error) {
	if companyID == "" {
		return nil, routingUnavailable("no company")
	}

	department, ok := entity.DepartmentFor(module)
	if !ok {
		return nil, routingUnavailable("module %q has no department", module)
	}

	company, err := r.companies.GetByID(ctx, companyID)
	if err != nil {
		r.logger.Error("Failed to look up company", "company_id", companyID, "error", err)
		return nil, routingUnavailable("company lookup failed")
	}
	if company == nil || !company.IsActive {
		return nil, routingUnavailable("company %s is unknown or inactive", companyID)
	}

	board, err := r.boards.GetByName(ctx, companyID, department)
	if err != nil {
		r.logger.Error("Failed to look up board", "company_id", companyID, "department", department, "error", err)
		return nil, routingUnavailable("board lookup failed")
	}

	if board == nil {
		if _, err := r.provision(ctx, companyID, actingUserID); err != nil {
			r.logger.Error("Failed to provision departmental boards",
				"company_id", companyID,
				"department", department,
				"error", err,
			)
			return nil, routingUnavailable("provisioning failed")
		}

		board, err = r.boards.GetByName(ctx, companyID, department)
		if err != nil {
			r.logger.Error("Failed to look up board after provisioning", "company_id", companyID, "department", department, "error", err)
			return nil, routingUnavailable("board lookup failed")
		}
		if board == nil {
			r.logger.Error("Board still missing after provisioning", "company_id", companyID, "department", department)
			return nil, routingUnavailable("board %s missing after provisioning", department)
		}
	}

	cols, err := r.columns.ListByBoard(ctx, board.ID)
	if err != nil {
		r.logger.Error("Failed to list columns", "board_id", board.ID, "error", err)
		return nil, routingUnavailable("column lookup failed")
	}
	if len(cols) == 0 {
		return nil, routingUnavailable("board %s has no columns", board.ID)
	}

	entry := cols[0]
	return &Placement{
		BoardID:    board.ID,
		ColumnID:   entry.ID,
		ColumnName: entry.Name,
	}, nil
}

// EnsureDepartmentalBoards provisions the standard board set of an active company
func (r *boardRouterImpl) EnsureDepartmentalBoards(ctx context.Context, companyID, actingUserID string) ([]*entity.Board, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", kanban.ErrInvalidInput)
	}

	company, err := r.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if company == nil || !company.IsActive {
		return nil, fmt.Errorf("%w: company %s is unknown or inactive", kanban.ErrInvalidInput, companyID)
	}

	return r.provision(ctx, companyID, actingUserID)
}

func (r *boardRouterImpl) provision(ctx context.Context, companyID, actingUserID string) ([]*entity.Board, error) {
	created, err := r.provisioner.EnsureDepartmentalBoards(ctx, companyID, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("provision boards: %w", err)
	}

	if len(created) > 0 {
		r.logger.Info("Departmental boards provisioned",
			"company_id", companyID,
			"acting_user_id", actingUserID,
			"created", len(created),
		)
		publish(ctx, r.publisher, r.logger, event.NewEvent(event.TypeBoardsProvisioned, "", companyID, actingUserID,
			map[string]interface{}{event.KeyBoardCount: len(created)}))
	}

	return created, nil
}

// ListBoards returns the boards of a company
func (r *boardRouterImpl) ListBoards(ctx context.Context, companyID string) ([]*entity.Board, error) {
	boards, err := r.boards.List(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

// ListColumns returns the columns of a board, left to right
func (r *boardRouterImpl) ListColumns(ctx context.Context, boardID string) ([]*entity.Column, error) {
	board, err := r.boards.GetByID(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	if board == nil {
		return nil, kanban.ErrBoardNotFound
	}

	cols, err := r.columns.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return cols, nil
}
