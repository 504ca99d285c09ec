package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
)

// BoardProvisioner creates the canonical departmental boards of a company.
// Each board is written with its default columns and the creator's admin
// grant in one transaction.
type BoardProvisioner struct {
	boards      port.BoardRepository
	columns     port.ColumnRepository
	permissions port.PermissionRepository
	txManager   port.TransactionManager
	logger      *zap.Logger
}

// NewBoardProvisioner creates a new provisioner
func NewBoardProvisioner(
	boards port.BoardRepository,
	columns port.ColumnRepository,
	permissions port.PermissionRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
) port.BoardProvisioner {
	return &BoardProvisioner{
		boards:      boards,
		columns:     columns,
		permissions: permissions,
		txManager:   txManager,
		logger:      logger,
	}
}

// EnsureDepartmentalBoards creates every missing department board and returns
// the ones it created. A board created concurrently by another caller is skipped.
func (p *BoardProvisioner) EnsureDepartmentalBoards(ctx context.Context, companyID, actingUserID string) ([]*entity.Board, error) {
	var created []*entity.Board

	for _, department := range entity.Departments {
		existing, err := p.boards.GetByName(ctx, companyID, department)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		board, err := p.createBoard(ctx, companyID, department, actingUserID)
		if errors.Is(err, ErrDuplicateBoard) {
			p.logger.Info("Board created concurrently, skipping",
				zap.String("company_id", companyID),
				zap.String("department", department))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("provision %s board: %w", department, err)
		}
		created = append(created, board)
	}

	return created, nil
}

func (p *BoardProvisioner) createBoard(ctx context.Context, companyID, department, actingUserID string) (*entity.Board, error) {
	now := time.Now().UTC()
	board := &entity.Board{
		ID:         uuid.NewString(),
		Name:       department,
		CompanyID:  companyID,
		Department: department,
		IsActive:   true,
		CreatedBy:  actingUserID,
		CreatedAt:  now,
	}

	err := p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := p.boards.Create(txCtx, board); err != nil {
			return err
		}

		for i, dc := range entity.DefaultColumns {
			col := &entity.Column{
				ID:        uuid.NewString(),
				BoardID:   board.ID,
				Name:      dc.Name,
				Position:  i,
				CreatedAt: now,
			}
			if err := p.columns.Create(txCtx, col); err != nil {
				return err
			}
		}

		if actingUserID != "" {
			if err := p.permissions.Grant(txCtx, board.ID, actingUserID, entity.PermissionAdmin); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Departmental board created",
		zap.String("board_id", board.ID),
		zap.String("company_id", companyID),
		zap.String("department", department))
	return board, nil
}

var _ port.BoardProvisioner = (*BoardProvisioner)(nil)
