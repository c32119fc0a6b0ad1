package repository

import (
	"context"

	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LabourerRepository interface {
	Create(ctx context.Context, labourer *model.Labourer) error
	Update(ctx context.Context, labourer *model.Labourer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Labourer, error)
	List(ctx context.Context, projectID *uuid.UUID, page, limit int) ([]model.Labourer, int64, error)
}

type labourerRepository struct {
	db *gorm.DB
}

func NewLabourerRepository(db *gorm.DB) LabourerRepository {
	return &labourerRepository{db: db}
}

func (r *labourerRepository) Create(ctx context.Context, labourer *model.Labourer) error {
	return GetDB(ctx, r.db).Create(labourer).Error
}

func (r *labourerRepository) Update(ctx context.Context, labourer *model.Labourer) error {
	return GetDB(ctx, r.db).Save(labourer).Error
}

func (r *labourerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Labourer, error) {
	var labourer model.Labourer
	if err := GetDB(ctx, r.db).
		Preload("EmployeeType").
		Preload("Project").
		First(&labourer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &labourer, nil
}

func (r *labourerRepository) List(ctx context.Context, projectID *uuid.UUID, page, limit int) ([]model.Labourer, int64, error) {
	query := GetDB(ctx, r.db).Model(&model.Labourer{})
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var labourers []model.Labourer
	if err := query.
		Preload("EmployeeType").
		Order("full_name ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&labourers).Error; err != nil {
		return nil, 0, err
	}
	return labourers, total, nil
}

// --- Employee types ---

type EmployeeTypeRepository interface {
	Create(ctx context.Context, et *model.EmployeeType) error
	Update(ctx context.Context, et *model.EmployeeType) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.EmployeeType, error)
	List(ctx context.Context, activeOnly bool) ([]model.EmployeeType, error)
}

type employeeTypeRepository struct {
	db *gorm.DB
}

func NewEmployeeTypeRepository(db *gorm.DB) EmployeeTypeRepository {
	return &employeeTypeRepository{db: db}
}

func (r *employeeTypeRepository) Create(ctx context.Context, et *model.EmployeeType) error {
	return GetDB(ctx, r.db).Create(et).Error
}

func (r *employeeTypeRepository) Update(ctx context.Context, et *model.EmployeeType) error {
	return GetDB(ctx, r.db).Save(et).Error
}

func (r *employeeTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.EmployeeType, error) {
	var et model.EmployeeType
	if err := GetDB(ctx, r.db).First(&et, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &et, nil
}

func (r *employeeTypeRepository) List(ctx context.Context, activeOnly bool) ([]model.EmployeeType, error) {
	query := GetDB(ctx, r.db).Model(&model.EmployeeType{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var types []model.EmployeeType
	if err := query.Order("name ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}
