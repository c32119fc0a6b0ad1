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

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Location    string `json:"location"`
	ClientName  string `json:"client_name"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Location    *string `json:"location"`
	ClientName  *string `json:"client_name"`
	Description *string `json:"description"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	ClientName  string `json:"client_name"`
	Status      string `json:"status"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// --- Interface ---

type ProjectService interface {
	CreateProject(ctx context.Context, actor Actor, req CreateProjectRequest) (ProjectResponse, error)
	// UpdateProject edits an active project. Closed projects only change
	// through approved correction requests.
	UpdateProject(ctx context.Context, actor Actor, projectID string, req UpdateProjectRequest) (ProjectResponse, error)
	CloseProject(ctx context.Context, actor Actor, projectID string) (ProjectResponse, error)
	GetProject(ctx context.Context, projectID string) (ProjectResponse, error)
	ListProjects(ctx context.Context, page, limit int) ([]ProjectResponse, int64, error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Implementation ---

func (s *projectService) CreateProject(ctx context.Context, actor Actor, req CreateProjectRequest) (ProjectResponse, error) {
	if err := authz.Require(actor.Role, authz.ResProject, authz.ActManage); err != nil {
		return ProjectResponse{}, err
	}

	project := model.Project{
		Name:        req.Name,
		Location:    req.Location,
		ClientName:  req.ClientName,
		Status:      model.ProjectActive,
		Description: req.Description,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.projectRepo.Create(txCtx, &project); createErr != nil {
			return fmt.Errorf("failed to create project: %w", createErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionCreateProject, project.ID.String(), project.Name, map[string]interface{}{
			"location":    req.Location,
			"client_name": req.ClientName,
		}))
	})
	if err != nil {
		return ProjectResponse{}, err
	}

	return toProjectResponse(project), nil
}

func (s *projectService) UpdateProject(ctx context.Context, actor Actor, projectID string, req UpdateProjectRequest) (ProjectResponse, error) {
	if err := authz.Require(actor.Role, authz.ResProject, authz.ActManage); err != nil {
		return ProjectResponse{}, err
	}

	id, err := uuid.Parse(projectID)
	if err != nil {
		return ProjectResponse{}, apperr.Validationf("invalid project id")
	}

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProjectResponse{}, fmt.Errorf("%w: project %s", apperr.ErrNotFound, id)
		}
		return ProjectResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}
	if project.Status == model.ProjectClosed {
		return ProjectResponse{}, fmt.Errorf("%w: project is closed; changes require a correction request", apperr.ErrCorrectionRequired)
	}

	changed := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return ProjectResponse{}, apperr.Validationf("name must not be empty")
		}
		project.Name = *req.Name
		changed["name"] = *req.Name
	}
	if req.Location != nil {
		project.Location = *req.Location
		changed["location"] = *req.Location
	}
	if req.ClientName != nil {
		project.ClientName = *req.ClientName
		changed["client_name"] = *req.ClientName
	}
	if req.Description != nil {
		project.Description = *req.Description
		changed["description"] = *req.Description
	}

	if len(changed) == 0 {
		return toProjectResponse(*project), nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.projectRepo.Update(txCtx, project); updateErr != nil {
			return fmt.Errorf("failed to update project: %w", updateErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionUpdateProject, project.ID.String(), project.Name, changed))
	})
	if err != nil {
		return ProjectResponse{}, err
	}

	return toProjectResponse(*project), nil
}

func (s *projectService) CloseProject(ctx context.Context, actor Actor, projectID string) (ProjectResponse, error) {
	if err := authz.Require(actor.Role, authz.ResProject, authz.ActManage); err != nil {
		return ProjectResponse{}, err
	}

	id, err := uuid.Parse(projectID)
	if err != nil {
		return ProjectResponse{}, apperr.Validationf("invalid project id")
	}

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProjectResponse{}, fmt.Errorf("%w: project %s", apperr.ErrNotFound, id)
		}
		return ProjectResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}
	if project.Status == model.ProjectClosed {
		return ProjectResponse{}, apperr.Validationf("project %q is already closed", project.Name)
	}

	project.Status = model.ProjectClosed
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.projectRepo.Update(txCtx, project); updateErr != nil {
			return fmt.Errorf("failed to close project: %w", updateErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionCloseProject, project.ID.String(), project.Name, nil))
	})
	if err != nil {
		return ProjectResponse{}, err
	}

	return toProjectResponse(*project), nil
}

func (s *projectService) GetProject(ctx context.Context, projectID string) (ProjectResponse, error) {
	id, err := uuid.Parse(projectID)
	if err != nil {
		return ProjectResponse{}, apperr.Validationf("invalid project id")
	}

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProjectResponse{}, fmt.Errorf("%w: project %s", apperr.ErrNotFound, id)
		}
		return ProjectResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}
	return toProjectResponse(*project), nil
}

func (s *projectService) ListProjects(ctx context.Context, page, limit int) ([]ProjectResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	projects, total, err := s.projectRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch projects: %w", err)
	}

	res := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		res = append(res, toProjectResponse(p))
	}
	return res, total, nil
}

// --- Helpers ---

func toProjectResponse(p model.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Location:    p.Location,
		ClientName:  p.ClientName,
		Status:      p.Status,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}
