package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/domain/kanban"
	"github.com/garyjia/deptboard/pkg/utils"
)

// CompanyService maintains the company registry
type CompanyService interface {
	// RegisterCompany adds an active company. With provision set its
	// departmental boards are created right away instead of on first use.
	RegisterCompany(ctx context.Context, name, actorID string, provision bool) (*entity.Company, []*entity.Board, error)

	GetCompany(ctx context.Context, id string) (*entity.Company, error)
	ListCompanies(ctx context.Context) ([]*entity.Company, error)
}

type companyServiceImpl struct {
	companies port.CompanyRepository
	router    BoardRouter
	logger    Logger
}

// NewCompanyService creates a new CompanyService
func NewCompanyService(companies port.CompanyRepository, router BoardRouter, logger Logger) CompanyService {
	return &companyServiceImpl{
		companies: companies,
		router:    router,
		logger:    logger,
	}
}

func (s *companyServiceImpl) RegisterCompany(ctx context.Context, name, actorID string, provision bool) (*entity.Company, []*entity.Board, error) {
	name = utils.CleanText(name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: company name is required", kanban.ErrInvalidInput)
	}

	company := &entity.Company{
		ID:       uuid.NewString(),
		Name:     name,
		IsActive: true,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, nil, fmt.Errorf("create company: %w", err)
	}

	s.logger.Info("Company registered", "company_id", company.ID, "name", name, "actor_id", actorID)

	if !provision {
		return company, nil, nil
	}

	boards, err := s.router.EnsureDepartmentalBoards(ctx, company.ID, actorID)
	if err != nil {
		// boards are provisioned again on the first routed task
		s.logger.Error("Failed to provision boards for new company", "company_id", company.ID, "error", err)
		return company, nil, nil
	}
	return company, boards, nil
}

func (s *companyServiceImpl) GetCompany(ctx context.Context, id string) (*entity.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("%w: %s", kanban.ErrCompanyNotFound, id)
	}
	return company, nil
}

func (s *companyServiceImpl) ListCompanies(ctx context.Context) ([]*entity.Company, error) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	return companies, nil
}
