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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor identifies the authenticated caller for every mutating operation.
// The API layer builds it from the JWT claims.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// --- DTOs ---

type CreatePayRateRequest struct {
	ProjectID      string `json:"project_id" binding:"required"`
	EmployeeTypeID string `json:"employee_type_id" binding:"required"`
	Category       string `json:"category" binding:"required,oneof=open_trenching close_trenching custom"`
	Amount         string `json:"amount" binding:"required"` // Decimal string, e.g. "25.00"
	Unit           string `json:"unit" binding:"required,oneof=per_meter per_day fixed"`
	EffectiveDate  string `json:"effective_date" binding:"required"` // YYYY-MM-DD
}

type PayRateResponse struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	EmployeeTypeID string `json:"employee_type_id"`
	Category       string `json:"category"`
	Amount         string `json:"amount"`
	Unit           string `json:"unit"`
	EffectiveDate  string `json:"effective_date"`
	CreatedAt      string `json:"created_at"`
}

type ResolvedRateResponse struct {
	RateID        string `json:"rate_id"`
	Category      string `json:"category"`
	Amount        string `json:"amount"`
	Unit          string `json:"unit"`
	EffectiveDate string `json:"effective_date"`
}

// --- Interface ---

type RateService interface {
	CreatePayRate(ctx context.Context, actor Actor, req CreatePayRateRequest) (PayRateResponse, error)
	ListProjectRates(ctx context.Context, projectID string) ([]PayRateResponse, error)
	// ResolveRate returns the rate effective on asOf for the given lookup
	// key, or ErrRateNotFound. Used for UI previews and by the work-log
	// store at write time.
	ResolveRate(ctx context.Context, projectID, employeeTypeID uuid.UUID, category string, asOf time.Time) (*model.PayRate, error)
}

type rateService struct {
	rateRepo         repository.PayRateRepository
	projectRepo      repository.ProjectRepository
	employeeTypeRepo repository.EmployeeTypeRepository
	auditRepo        repository.AuditRepository
	txManager        repository.TransactionManager
}

func NewRateService(
	rateRepo repository.PayRateRepository,
	projectRepo repository.ProjectRepository,
	employeeTypeRepo repository.EmployeeTypeRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) RateService {
	return &rateService{
		rateRepo:         rateRepo,
		projectRepo:      projectRepo,
		employeeTypeRepo: employeeTypeRepo,
		auditRepo:        auditRepo,
		txManager:        txManager,
	}
}

// --- Implementation ---

func (s *rateService) CreatePayRate(ctx context.Context, actor Actor, req CreatePayRateRequest) (PayRateResponse, error) {
	if err := authz.Require(actor.Role, authz.ResRate, authz.ActManage); err != nil {
		return PayRateResponse{}, err
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return PayRateResponse{}, apperr.Validationf("invalid project_id")
	}
	employeeTypeID, err := uuid.Parse(req.EmployeeTypeID)
	if err != nil {
		return PayRateResponse{}, apperr.Validationf("invalid employee_type_id")
	}
	if !model.ValidRateCategory(req.Category) {
		return PayRateResponse{}, apperr.Validationf("unknown rate category %q", req.Category)
	}
	if !model.ValidRateUnit(req.Unit) {
		return PayRateResponse{}, apperr.Validationf("unknown rate unit %q", req.Unit)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return PayRateResponse{}, apperr.Validationf("invalid amount %q", req.Amount)
	}
	if amount.IsNegative() {
		return PayRateResponse{}, apperr.Validationf("amount must not be negative")
	}

	effectiveDate, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		return PayRateResponse{}, apperr.Validationf("invalid effective_date (expected YYYY-MM-DD)")
	}

	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PayRateResponse{}, fmt.Errorf("%w: project %s", apperr.ErrNotFound, projectID)
		}
		return PayRateResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}

	et, err := s.employeeTypeRepo.FindByID(ctx, employeeTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PayRateResponse{}, fmt.Errorf("%w: employee type %s", apperr.ErrNotFound, employeeTypeID)
		}
		return PayRateResponse{}, fmt.Errorf("failed to fetch employee type: %w", err)
	}
	if !et.Active {
		return PayRateResponse{}, apperr.Validationf("employee type %q is inactive", et.Name)
	}

	rate := model.PayRate{
		ProjectID:      projectID,
		EmployeeTypeID: employeeTypeID,
		Category:       req.Category,
		Amount:         amount.Round(2),
		Unit:           req.Unit,
		EffectiveDate:  model.Day(effectiveDate),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.rateRepo.Create(txCtx, &rate); createErr != nil {
			return fmt.Errorf("failed to create pay rate: %w", createErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionCreatePayRate, rate.ID.String(), req.Category, map[string]interface{}{
			"project_id":     req.ProjectID,
			"category":       req.Category,
			"amount":         rate.Amount.StringFixed(2),
			"unit":           req.Unit,
			"effective_date": req.EffectiveDate,
		}))
	})
	if err != nil {
		return PayRateResponse{}, err
	}

	return toPayRateResponse(rate), nil
}

func (s *rateService) ListProjectRates(ctx context.Context, projectID string) ([]PayRateResponse, error) {
	id, err := uuid.Parse(projectID)
	if err != nil {
		return nil, apperr.Validationf("invalid project id")
	}

	rates, err := s.rateRepo.ListByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pay rates: %w", err)
	}

	res := make([]PayRateResponse, 0, len(rates))
	for _, r := range rates {
		res = append(res, toPayRateResponse(r))
	}
	return res, nil
}

func (s *rateService) ResolveRate(ctx context.Context, projectID, employeeTypeID uuid.UUID, category string, asOf time.Time) (*model.PayRate, error) {
	if !model.ValidRateCategory(category) {
		return nil, apperr.Validationf("unknown rate category %q", category)
	}

	rate, err := s.rateRepo.FindEffective(ctx, projectID, employeeTypeID, category, asOf)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no %s rate for project %s effective on %s",
				apperr.ErrRateNotFound, category, projectID, model.Day(asOf).Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to resolve rate: %w", err)
	}
	return rate, nil
}

// --- Helpers ---

func toPayRateResponse(r model.PayRate) PayRateResponse {
	return PayRateResponse{
		ID:             r.ID.String(),
		ProjectID:      r.ProjectID.String(),
		EmployeeTypeID: r.EmployeeTypeID.String(),
		Category:       r.Category,
		Amount:         r.Amount.StringFixed(2),
		Unit:           r.Unit,
		EffectiveDate:  r.EffectiveDate.Format("2006-01-02"),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}
