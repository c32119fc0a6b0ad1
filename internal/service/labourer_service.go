package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/model"
	"github.com/J3ZZ3/empcare/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateLabourerRequest struct {
	FullName       string `json:"full_name" binding:"required"`
	EmployeeTypeID string `json:"employee_type_id" binding:"required"`
	ProjectID      string `json:"project_id"`
	UserID         string `json:"user_id"`
	IDNumber       string `json:"id_number"`
	Phone          string `json:"phone"`
	BankName       string `json:"bank_name"`
	AccountNo      string `json:"account_no"`
	BranchCode     string `json:"branch_code"`
}

// UpdateLabourerRequest uses pointers so omitted fields stay untouched.
type UpdateLabourerRequest struct {
	FullName         *string `json:"full_name"`
	EmployeeTypeID   *string `json:"employee_type_id"`
	ProjectID        *string `json:"project_id"` // Empty string unassigns
	IDNumber         *string `json:"id_number"`
	Phone            *string `json:"phone"`
	BankName         *string `json:"bank_name"`
	AccountNo        *string `json:"account_no"`
	BranchCode       *string `json:"branch_code"`
	ProfilePhotoPath *string `json:"profile_photo_path"`
	IDDocumentPath   *string `json:"id_document_path"`
}

type LabourerResponse struct {
	ID               string  `json:"id"`
	FullName         string  `json:"full_name"`
	EmployeeTypeID   string  `json:"employee_type_id"`
	EmployeeTypeName string  `json:"employee_type_name,omitempty"`
	ProjectID        *string `json:"project_id"`
	ProjectName      string  `json:"project_name,omitempty"`
	UserID           *string `json:"user_id"`
	IDNumber         string  `json:"id_number"`
	Phone            string  `json:"phone"`
	BankName         string  `json:"bank_name"`
	AccountNo        string  `json:"account_no"`
	BranchCode       string  `json:"branch_code"`
	ProfilePhotoPath string  `json:"profile_photo_path,omitempty"`
	IDDocumentPath   string  `json:"id_document_path,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

type EmployeeTypeRequest struct {
	Name string `json:"name" binding:"required"`
}

type EmployeeTypeResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// --- Interface ---

type LabourerService interface {
	CreateLabourer(ctx context.Context, actor Actor, req CreateLabourerRequest) (LabourerResponse, error)
	// UpdateLabourer edits a labourer directly. Banking and identity fields,
	// and the project assignment, freeze once the labourer has payment
	// history; from then on those changes must go through a correction
	// request.
	UpdateLabourer(ctx context.Context, actor Actor, labourerID string, req UpdateLabourerRequest) (LabourerResponse, error)
	GetLabourer(ctx context.Context, labourerID string) (LabourerResponse, error)
	ListLabourers(ctx context.Context, projectID string, page, limit int) ([]LabourerResponse, int64, error)

	CreateEmployeeType(ctx context.Context, actor Actor, req EmployeeTypeRequest) (EmployeeTypeResponse, error)
	// DeactivateEmployeeType soft-deletes: existing labourers and rates keep
	// the reference, but new assignments are refused.
	DeactivateEmployeeType(ctx context.Context, actor Actor, employeeTypeID string) (EmployeeTypeResponse, error)
	ListEmployeeTypes(ctx context.Context, activeOnly bool) ([]EmployeeTypeResponse, error)
}

type labourerService struct {
	labourerRepo     repository.LabourerRepository
	employeeTypeRepo repository.EmployeeTypeRepository
	projectRepo      repository.ProjectRepository
	workLogRepo      repository.WorkLogRepository
	periodRepo       repository.PeriodRepository
	auditRepo        repository.AuditRepository
	txManager        repository.TransactionManager
}

func NewLabourerService(
	labourerRepo repository.LabourerRepository,
	employeeTypeRepo repository.EmployeeTypeRepository,
	projectRepo repository.ProjectRepository,
	workLogRepo repository.WorkLogRepository,
	periodRepo repository.PeriodRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) LabourerService {
	return &labourerService{
		labourerRepo:     labourerRepo,
		employeeTypeRepo: employeeTypeRepo,
		projectRepo:      projectRepo,
		workLogRepo:      workLogRepo,
		periodRepo:       periodRepo,
		auditRepo:        auditRepo,
		txManager:        txManager,
	}
}

// --- Implementation ---

func (s *labourerService) CreateLabourer(ctx context.Context, actor Actor, req CreateLabourerRequest) (LabourerResponse, error) {
	if err := authz.Require(actor.Role, authz.ResLabourer, authz.ActManage); err != nil {
		return LabourerResponse{}, err
	}

	employeeTypeID, err := uuid.Parse(req.EmployeeTypeID)
	if err != nil {
		return LabourerResponse{}, apperr.Validationf("invalid employee_type_id")
	}

	et, err := s.employeeTypeRepo.FindByID(ctx, employeeTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LabourerResponse{}, fmt.Errorf("%w: employee type %s", apperr.ErrNotFound, employeeTypeID)
		}
		return LabourerResponse{}, fmt.Errorf("failed to fetch employee type: %w", err)
	}
	if !et.Active {
		return LabourerResponse{}, apperr.Validationf("employee type %q is inactive", et.Name)
	}

	labourer := model.Labourer{
		FullName:       req.FullName,
		EmployeeTypeID: employeeTypeID,
		IDNumber:       req.IDNumber,
		Phone:          req.Phone,
		BankName:       req.BankName,
		AccountNo:      req.AccountNo,
		BranchCode:     req.BranchCode,
	}

	if req.ProjectID != "" {
		projectID, parseErr := uuid.Parse(req.ProjectID)
		if parseErr != nil {
			return LabourerResponse{}, apperr.Validationf("invalid project_id")
		}
		project, findErr := s.projectRepo.FindByID(ctx, projectID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return LabourerResponse{}, fmt.Errorf("%w: project %s", apperr.ErrNotFound, projectID)
			}
			return LabourerResponse{}, fmt.Errorf("failed to fetch project: %w", findErr)
		}
		if project.Status != model.ProjectActive {
			return LabourerResponse{}, apperr.Validationf("project %q is closed", project.Name)
		}
		labourer.ProjectID = &projectID
	}

	if req.UserID != "" {
		userID, parseErr := uuid.Parse(req.UserID)
		if parseErr != nil {
			return LabourerResponse{}, apperr.Validationf("invalid user_id")
		}
		labourer.UserID = &userID
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.labourerRepo.Create(txCtx, &labourer); createErr != nil {
			return fmt.Errorf("failed to create labourer: %w", createErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionCreateLabourer, labourer.ID.String(), labourer.FullName, map[string]interface{}{
			"employee_type_id": req.EmployeeTypeID,
			"project_id":       req.ProjectID,
		}))
	})
	if err != nil {
		return LabourerResponse{}, err
	}

	labourer.EmployeeType = et
	return toLabourerResponse(labourer), nil
}

func (s *labourerService) UpdateLabourer(ctx context.Context, actor Actor, labourerID string, req UpdateLabourerRequest) (LabourerResponse, error) {
	if err := authz.Require(actor.Role, authz.ResLabourer, authz.ActManage); err != nil {
		return LabourerResponse{}, err
	}

	id, err := uuid.Parse(labourerID)
	if err != nil {
		return LabourerResponse{}, apperr.Validationf("invalid labourer id")
	}

	labourer, err := s.labourerRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LabourerResponse{}, fmt.Errorf("%w: labourer %s", apperr.ErrNotFound, id)
		}
		return LabourerResponse{}, fmt.Errorf("failed to fetch labourer: %w", err)
	}

	changed := map[string]interface{}{}

	if touchesFrozenFields(req) {
		hasHistory, histErr := s.periodRepo.HasNonOpenEntryForLabourer(ctx, id)
		if histErr != nil {
			return LabourerResponse{}, fmt.Errorf("failed to check payment history: %w", histErr)
		}
		if hasHistory {
			return LabourerResponse{}, fmt.Errorf("%w: labourer has payment history; banking and identity fields require a correction request", apperr.ErrCorrectionRequired)
		}
	}

	if req.ProjectID != nil {
		// Reassignment would orphan the recorded output under the old
		// project's periods, so it is blocked once any work log exists there.
		if labourer.ProjectID != nil {
			count, countErr := s.workLogRepo.CountByLabourerAndProject(ctx, id, *labourer.ProjectID)
			if countErr != nil {
				return LabourerResponse{}, fmt.Errorf("failed to count work logs: %w", countErr)
			}
			if count > 0 {
				return LabourerResponse{}, fmt.Errorf("%w: labourer has work logs under the current project; reassignment requires a correction request", apperr.ErrCorrectionRequired)
			}
		}
		if *req.ProjectID == "" {
			labourer.ProjectID = nil
			changed["project_id"] = ""
		} else {
			projectID, parseErr := uuid.Parse(*req.ProjectID)
			if parseErr != nil {
				return LabourerResponse{}, apperr.Validationf("invalid project_id")
			}
			project, findErr := s.projectRepo.FindByID(ctx, projectID)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return LabourerResponse{}, fmt.Errorf("%w: project %s", apperr.ErrNotFound, projectID)
				}
				return LabourerResponse{}, fmt.Errorf("failed to fetch project: %w", findErr)
			}
			if project.Status != model.ProjectActive {
				return LabourerResponse{}, apperr.Validationf("project %q is closed", project.Name)
			}
			labourer.ProjectID = &projectID
			changed["project_id"] = *req.ProjectID
		}
	}

	if req.FullName != nil {
		if *req.FullName == "" {
			return LabourerResponse{}, apperr.Validationf("full_name must not be empty")
		}
		labourer.FullName = *req.FullName
		changed["full_name"] = *req.FullName
	}
	if req.EmployeeTypeID != nil {
		employeeTypeID, parseErr := uuid.Parse(*req.EmployeeTypeID)
		if parseErr != nil {
			return LabourerResponse{}, apperr.Validationf("invalid employee_type_id")
		}
		et, findErr := s.employeeTypeRepo.FindByID(ctx, employeeTypeID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return LabourerResponse{}, fmt.Errorf("%w: employee type %s", apperr.ErrNotFound, employeeTypeID)
			}
			return LabourerResponse{}, fmt.Errorf("failed to fetch employee type: %w", findErr)
		}
		if !et.Active {
			return LabourerResponse{}, apperr.Validationf("employee type %q is inactive", et.Name)
		}
		labourer.EmployeeTypeID = employeeTypeID
		labourer.EmployeeType = et
		changed["employee_type_id"] = *req.EmployeeTypeID
	}
	if req.IDNumber != nil {
		labourer.IDNumber = *req.IDNumber
		changed["id_number"] = *req.IDNumber
	}
	if req.Phone != nil {
		labourer.Phone = *req.Phone
		changed["phone"] = *req.Phone
	}
	if req.BankName != nil {
		labourer.BankName = *req.BankName
		changed["bank_name"] = *req.BankName
	}
	if req.AccountNo != nil {
		labourer.AccountNo = *req.AccountNo
		changed["account_no"] = *req.AccountNo
	}
	if req.BranchCode != nil {
		labourer.BranchCode = *req.BranchCode
		changed["branch_code"] = *req.BranchCode
	}
	if req.ProfilePhotoPath != nil {
		labourer.ProfilePhotoPath = *req.ProfilePhotoPath
		changed["profile_photo_path"] = *req.ProfilePhotoPath
	}
	if req.IDDocumentPath != nil {
		labourer.IDDocumentPath = *req.IDDocumentPath
		changed["id_document_path"] = *req.IDDocumentPath
	}

	if len(changed) == 0 {
		return toLabourerResponse(*labourer), nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.labourerRepo.Update(txCtx, labourer); updateErr != nil {
			return fmt.Errorf("failed to update labourer: %w", updateErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionUpdateLabourer, labourer.ID.String(), labourer.FullName, changed))
	})
	if err != nil {
		return LabourerResponse{}, err
	}

	return toLabourerResponse(*labourer), nil
}

// touchesFrozenFields reports whether the update changes a field that becomes
// correction-only once payment history exists.
func touchesFrozenFields(req UpdateLabourerRequest) bool {
	return req.IDNumber != nil || req.BankName != nil || req.AccountNo != nil || req.BranchCode != nil || req.FullName != nil
}

func (s *labourerService) GetLabourer(ctx context.Context, labourerID string) (LabourerResponse, error) {
	id, err := uuid.Parse(labourerID)
	if err != nil {
		return LabourerResponse{}, apperr.Validationf("invalid labourer id")
	}

	labourer, err := s.labourerRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LabourerResponse{}, fmt.Errorf("%w: labourer %s", apperr.ErrNotFound, id)
		}
		return LabourerResponse{}, fmt.Errorf("failed to fetch labourer: %w", err)
	}
	return toLabourerResponse(*labourer), nil
}

func (s *labourerService) ListLabourers(ctx context.Context, projectID string, page, limit int) ([]LabourerResponse, int64, error) {
	var filter *uuid.UUID
	if projectID != "" {
		id, err := uuid.Parse(projectID)
		if err != nil {
			return nil, 0, apperr.Validationf("invalid project id")
		}
		filter = &id
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	labourers, total, err := s.labourerRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch labourers: %w", err)
	}

	res := make([]LabourerResponse, 0, len(labourers))
	for _, l := range labourers {
		res = append(res, toLabourerResponse(l))
	}
	return res, total, nil
}

func (s *labourerService) CreateEmployeeType(ctx context.Context, actor Actor, req EmployeeTypeRequest) (EmployeeTypeResponse, error) {
	if err := authz.Require(actor.Role, authz.ResLabourer, authz.ActManage); err != nil {
		return EmployeeTypeResponse{}, err
	}
	if req.Name == "" {
		return EmployeeTypeResponse{}, apperr.Validationf("name must not be empty")
	}

	et := model.EmployeeType{Name: req.Name, Active: true}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.employeeTypeRepo.Create(txCtx, &et); createErr != nil {
			return fmt.Errorf("failed to create employee type: %w", createErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionCreateEmployeeType, et.ID.String(), et.Name, nil))
	})
	if err != nil {
		return EmployeeTypeResponse{}, err
	}
	return toEmployeeTypeResponse(et), nil
}

func (s *labourerService) DeactivateEmployeeType(ctx context.Context, actor Actor, employeeTypeID string) (EmployeeTypeResponse, error) {
	if err := authz.Require(actor.Role, authz.ResLabourer, authz.ActManage); err != nil {
		return EmployeeTypeResponse{}, err
	}

	id, err := uuid.Parse(employeeTypeID)
	if err != nil {
		return EmployeeTypeResponse{}, apperr.Validationf("invalid employee type id")
	}

	et, err := s.employeeTypeRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmployeeTypeResponse{}, fmt.Errorf("%w: employee type %s", apperr.ErrNotFound, id)
		}
		return EmployeeTypeResponse{}, fmt.Errorf("failed to fetch employee type: %w", err)
	}

	et.Active = false
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.employeeTypeRepo.Update(txCtx, et); updateErr != nil {
			return fmt.Errorf("failed to deactivate employee type: %w", updateErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionDeactivateEmployeeType, et.ID.String(), et.Name, nil))
	})
	if err != nil {
		return EmployeeTypeResponse{}, err
	}
	return toEmployeeTypeResponse(*et), nil
}

func (s *labourerService) ListEmployeeTypes(ctx context.Context, activeOnly bool) ([]EmployeeTypeResponse, error) {
	types, err := s.employeeTypeRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch employee types: %w", err)
	}

	res := make([]EmployeeTypeResponse, 0, len(types))
	for _, et := range types {
		res = append(res, toEmployeeTypeResponse(et))
	}
	return res, nil
}

// --- Helpers ---

func toLabourerResponse(l model.Labourer) LabourerResponse {
	resp := LabourerResponse{
		ID:               l.ID.String(),
		FullName:         l.FullName,
		EmployeeTypeID:   l.EmployeeTypeID.String(),
		IDNumber:         l.IDNumber,
		Phone:            l.Phone,
		BankName:         l.BankName,
		AccountNo:        l.AccountNo,
		BranchCode:       l.BranchCode,
		ProfilePhotoPath: l.ProfilePhotoPath,
		IDDocumentPath:   l.IDDocumentPath,
		CreatedAt:        l.CreatedAt.Format(time.RFC3339),
	}
	if l.EmployeeType != nil {
		resp.EmployeeTypeName = l.EmployeeType.Name
	}
	if l.ProjectID != nil {
		v := l.ProjectID.String()
		resp.ProjectID = &v
	}
	if l.Project != nil {
		resp.ProjectName = l.Project.Name
	}
	if l.UserID != nil {
		v := l.UserID.String()
		resp.UserID = &v
	}
	return resp
}

func toEmployeeTypeResponse(et model.EmployeeType) EmployeeTypeResponse {
	return EmployeeTypeResponse{
		ID:     et.ID.String(),
		Name:   et.Name,
		Active: et.Active,
	}
}
