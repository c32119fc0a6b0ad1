package repository

import (
	"context"
	"time"

	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayRateRepository is append-only: a rate is superseded by inserting a newer
// effective row, never edited in place.
type PayRateRepository interface {
	Create(ctx context.Context, rate *model.PayRate) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.PayRate, error)
	FindEffective(ctx context.Context, projectID, employeeTypeID uuid.UUID, category string, asOf time.Time) (*model.PayRate, error)
}

type payRateRepository struct {
	db *gorm.DB
}

func NewPayRateRepository(db *gorm.DB) PayRateRepository {
	return &payRateRepository{db: db}
}

func (r *payRateRepository) Create(ctx context.Context, rate *model.PayRate) error {
	return GetDB(ctx, r.db).Create(rate).Error
}

func (r *payRateRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.PayRate, error) {
	var rates []model.PayRate
	if err := GetDB(ctx, r.db).
		Where("project_id = ?", projectID).
		Order("category ASC, effective_date DESC").
		Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

// FindEffective selects the rate in force on asOf: the latest effective_date
// not after asOf, ties broken by the most recently created row.
func (r *payRateRepository) FindEffective(ctx context.Context, projectID, employeeTypeID uuid.UUID, category string, asOf time.Time) (*model.PayRate, error) {
	var rate model.PayRate
	if err := GetDB(ctx, r.db).
		Where("project_id = ? AND employee_type_id = ? AND category = ? AND effective_date <= ?",
			projectID, employeeTypeID, category, model.Day(asOf)).
		Order("effective_date DESC, created_at DESC").
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}
