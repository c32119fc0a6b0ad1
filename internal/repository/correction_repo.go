package repository

import (
	"context"

	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CorrectionFilter struct {
	EntityType string
	Status     string
	Page       int
	Limit      int
}

type CorrectionRepository interface {
	Create(ctx context.Context, req *model.CorrectionRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CorrectionRequest, error)
	List(ctx context.Context, filter CorrectionFilter) ([]model.CorrectionRequest, int64, error)
	// MarkReviewed applies review fields only while the request is still
	// pending. A zero row count means it was already reviewed (or reviewed
	// concurrently).
	MarkReviewed(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (int64, error)
}

type correctionRepository struct {
	db *gorm.DB
}

func NewCorrectionRepository(db *gorm.DB) CorrectionRepository {
	return &correctionRepository{db: db}
}

func (r *correctionRepository) Create(ctx context.Context, req *model.CorrectionRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *correctionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CorrectionRequest, error) {
	var req model.CorrectionRequest
	if err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Reviewer").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *correctionRepository) List(ctx context.Context, filter CorrectionFilter) ([]model.CorrectionRequest, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.CorrectionRequest{})
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
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

	var reqs []model.CorrectionRequest
	if err := query.
		Preload("Requester").
		Preload("Reviewer").
		Order("requested_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

func (r *correctionRepository) MarkReviewed(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (int64, error) {
	result := GetDB(ctx, r.db).Model(&model.CorrectionRequest{}).
		Where("id = ? AND status = ?", id, model.CorrectionPending).
		Updates(updates)
	return result.RowsAffected, result.Error
}
