package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/port"
	"github.com/garyjia/deptboard/internal/domain/entity"
	"github.com/garyjia/deptboard/internal/infrastructure/persistence/sqlite"
)

// CompanyRepository implements port.CompanyRepository
type CompanyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB, logger *zap.Logger) port.CompanyRepository {
	return &CompanyRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a company
func (r *CompanyRepository) Create(ctx context.Context, company *entity.Company) error {
	if company.CreatedAt.IsZero() {
		company.CreatedAt = time.Now().UTC()
	}
	_, err := sqlite.Executor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO companies (id, name, is_active, created_at) VALUES (?, ?, ?, ?)`,
		company.ID, company.Name, company.IsActive, company.CreatedAt.UTC())
	if err != nil {
		r.logger.Error("Failed to create company", zap.String("company_id", company.ID), zap.Error(err))
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// GetByID returns the company, or nil when it does not exist
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	var c entity.Company
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, is_active, created_at FROM companies WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get company", zap.String("company_id", id), zap.Error(err))
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// List returns every company by name
func (r *CompanyRepository) List(ctx context.Context) ([]*entity.Company, error) {
	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, is_active, created_at FROM companies ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []*entity.Company
	for rows.Next() {
		var c entity.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, &c)
	}
	return companies, rows.Err()
}

var _ port.CompanyRepository = (*CompanyRepository)(nil)
