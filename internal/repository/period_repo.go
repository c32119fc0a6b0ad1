package repository

import (
	"context"
	"time"

	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PeriodFilter struct {
	ProjectID *uuid.UUID
	Status    string
	Page      int
	Limit     int
}

type PeriodRepository interface {
	Create(ctx context.Context, period *model.PaymentPeriod) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentPeriod, error)
	// FindByIDForUpdate row-locks the period so aggregation and submits
	// cannot interleave. Must run inside a transaction context.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PaymentPeriod, error)
	List(ctx context.Context, filter PeriodFilter) ([]model.PaymentPeriod, int64, error)
	CountOverlapping(ctx context.Context, projectID uuid.UUID, start, end time.Time) (int64, error)
	// TransitionStatus applies updates only while the period is still in
	// fromStatus. A zero row count means another writer got there first.
	TransitionStatus(ctx context.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}) (int64, error)
	// UpdateFields writes arbitrary columns without a status guard. Used by
	// the correction workflow, which does its own state checks.
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	ReplaceEntries(ctx context.Context, periodID uuid.UUID, entries []model.PaymentPeriodEntry) error
	ListEntries(ctx context.Context, periodID uuid.UUID) ([]model.PaymentPeriodEntry, error)
	HasNonOpenEntryForLabourer(ctx context.Context, labourerID uuid.UUID) (bool, error)
}

type periodRepository struct {
	db *gorm.DB
}

func NewPeriodRepository(db *gorm.DB) PeriodRepository {
	return &periodRepository{db: db}
}

func (r *periodRepository) Create(ctx context.Context, period *model.PaymentPeriod) error {
	return GetDB(ctx, r.db).Create(period).Error
}

func (r *periodRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentPeriod, error) {
	var period model.PaymentPeriod
	if err := GetDB(ctx, r.db).First(&period, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PaymentPeriod, error) {
	var period model.PaymentPeriod
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&period, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepository) List(ctx context.Context, filter PeriodFilter) ([]model.PaymentPeriod, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.PaymentPeriod{})
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	var periods []model.PaymentPeriod
	if err := query.
		Order("start_date DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&periods).Error; err != nil {
		return nil, 0, err
	}
	return periods, total, nil
}

func (r *periodRepository) CountOverlapping(ctx context.Context, projectID uuid.UUID, start, end time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PaymentPeriod{}).
		Where("project_id = ? AND start_date <= ? AND end_date >= ?", projectID, model.Day(end), model.Day(start)).
		Count(&count).Error
	return count, err
}

func (r *periodRepository) TransitionStatus(ctx context.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}) (int64, error) {
	result := GetDB(ctx, r.db).Model(&model.PaymentPeriod{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *periodRepository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.PaymentPeriod{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ReplaceEntries swaps the full entry set in one delete+insert. Callers run
// it inside the same transaction that re-checks the period status.
func (r *periodRepository) ReplaceEntries(ctx context.Context, periodID uuid.UUID, entries []model.PaymentPeriodEntry) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("period_id = ?", periodID).Delete(&model.PaymentPeriodEntry{}).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return db.Create(&entries).Error
}

func (r *periodRepository) ListEntries(ctx context.Context, periodID uuid.UUID) ([]model.PaymentPeriodEntry, error) {
	var entries []model.PaymentPeriodEntry
	if err := GetDB(ctx, r.db).
		Preload("Labourer").
		Where("period_id = ?", periodID).
		Order("labourer_id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// HasNonOpenEntryForLabourer reports whether the labourer appears in any
// payment period that already left draft state. That is the point at which
// banking and identity fields freeze.
func (r *periodRepository) HasNonOpenEntryForLabourer(ctx context.Context, labourerID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PaymentPeriodEntry{}).
		Joins("JOIN payment_periods ON payment_periods.id = payment_period_entries.period_id").
		Where("payment_period_entries.labourer_id = ? AND payment_periods.status <> ?", labourerID, model.PeriodOpen).
		Count(&count).Error
	return count > 0, err
}
