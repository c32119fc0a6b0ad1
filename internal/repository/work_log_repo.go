package repository

import (
	"context"
	"time"

	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkLogRepository interface {
	Create(ctx context.Context, entry *model.WorkLogEntry) error
	Update(ctx context.Context, entry *model.WorkLogEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WorkLogEntry, error)
	FindByLabourerAndDate(ctx context.Context, labourerID uuid.UUID, workDate time.Time) (*model.WorkLogEntry, error)
	ListByProjectAndRange(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]model.WorkLogEntry, error)
	ListByLabourer(ctx context.Context, labourerID uuid.UUID, page, limit int) ([]model.WorkLogEntry, int64, error)
	CountByLabourerAndProject(ctx context.Context, labourerID, projectID uuid.UUID) (int64, error)
}

type workLogRepository struct {
	db *gorm.DB
}

func NewWorkLogRepository(db *gorm.DB) WorkLogRepository {
	return &workLogRepository{db: db}
}

func (r *workLogRepository) Create(ctx context.Context, entry *model.WorkLogEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *workLogRepository) Update(ctx context.Context, entry *model.WorkLogEntry) error {
	return GetDB(ctx, r.db).Save(entry).Error
}

func (r *workLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkLogEntry, error) {
	var entry model.WorkLogEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *workLogRepository) FindByLabourerAndDate(ctx context.Context, labourerID uuid.UUID, workDate time.Time) (*model.WorkLogEntry, error) {
	var entry model.WorkLogEntry
	if err := GetDB(ctx, r.db).
		Where("labourer_id = ? AND work_date = ?", labourerID, model.Day(workDate)).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *workLogRepository) ListByProjectAndRange(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]model.WorkLogEntry, error) {
	var entries []model.WorkLogEntry
	if err := GetDB(ctx, r.db).
		Where("project_id = ? AND work_date >= ? AND work_date <= ?", projectID, model.Day(from), model.Day(to)).
		Order("work_date ASC, labourer_id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *workLogRepository) ListByLabourer(ctx context.Context, labourerID uuid.UUID, page, limit int) ([]model.WorkLogEntry, int64, error) {
	var entries []model.WorkLogEntry
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WorkLogEntry{}).Where("labourer_id = ?", labourerID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).
		Where("labourer_id = ?", labourerID).
		Order("work_date DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *workLogRepository) CountByLabourerAndProject(ctx context.Context, labourerID, projectID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.WorkLogEntry{}).
		Where("labourer_id = ? AND project_id = ?", labourerID, projectID).
		Count(&count).Error
	return count, err
}
