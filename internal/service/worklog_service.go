package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/model"
	"github.com/J3ZZ3/empcare/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- DTOs ---

type AdditionalItemDTO struct {
	Description string `json:"description" binding:"required"`
	Amount      string `json:"amount" binding:"required"` // Decimal string
}

type RecordWorkLogRequest struct {
	ProjectID       string              `json:"project_id" binding:"required"`
	LabourerID      string              `json:"labourer_id" binding:"required"`
	WorkDate        string              `json:"work_date" binding:"required"` // YYYY-MM-DD
	OpenMeters      string              `json:"open_meters"`
	CloseMeters     string              `json:"close_meters"`
	AdditionalItems []AdditionalItemDTO `json:"additional_items"`
}

type WorkLogResponse struct {
	ID              string                 `json:"id"`
	ProjectID       string                 `json:"project_id"`
	LabourerID      string                 `json:"labourer_id"`
	WorkDate        string                 `json:"work_date"`
	OpenMeters      string                 `json:"open_meters"`
	CloseMeters     string                 `json:"close_meters"`
	AdditionalItems []model.AdditionalItem `json:"additional_items"`
	TotalEarnings   string                 `json:"total_earnings"`
	RecordedBy      string                 `json:"recorded_by"`
	RecordedAt      string                 `json:"recorded_at"`
	Warnings        []string               `json:"warnings,omitempty"`
}

// --- Interface ---

type WorkLogService interface {
	// RecordWorkLog writes today's output for a labourer. Field roles may
	// only write entries dated today; elevated roles may also correct prior
	// dates. A second write for the same (labourer, work date) overwrites
	// the first: last write wins.
	RecordWorkLog(ctx context.Context, actor Actor, req RecordWorkLogRequest) (WorkLogResponse, error)
	ListWorkLogs(ctx context.Context, projectID, from, to string) ([]WorkLogResponse, error)
	// ListMyWorkLogs returns one labourer's history. Labourer-role callers
	// may only read the record linked to their own account.
	ListMyWorkLogs(ctx context.Context, actor Actor, labourerID string, page, limit int) ([]WorkLogResponse, int64, error)
}

type workLogService struct {
	workLogRepo  repository.WorkLogRepository
	labourerRepo repository.LabourerRepository
	projectRepo  repository.ProjectRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	rates        RateService

	now func() time.Time // injectable for tests
}

func NewWorkLogService(
	workLogRepo repository.WorkLogRepository,
	labourerRepo repository.LabourerRepository,
	projectRepo repository.ProjectRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	rates RateService,
) WorkLogService {
	return &workLogService{
		workLogRepo:  workLogRepo,
		labourerRepo: labourerRepo,
		projectRepo:  projectRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		rates:        rates,
		now:          time.Now,
	}
}

// --- Implementation ---

func (s *workLogService) RecordWorkLog(ctx context.Context, actor Actor, req RecordWorkLogRequest) (WorkLogResponse, error) {
	if err := authz.Require(actor.Role, authz.ResWorkLog, authz.ActRecord); err != nil {
		return WorkLogResponse{}, err
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return WorkLogResponse{}, apperr.Validationf("invalid project_id")
	}
	labourerID, err := uuid.Parse(req.LabourerID)
	if err != nil {
		return WorkLogResponse{}, apperr.Validationf("invalid labourer_id")
	}

	workDate, err := time.Parse("2006-01-02", req.WorkDate)
	if err != nil {
		return WorkLogResponse{}, apperr.Validationf("invalid work_date (expected YYYY-MM-DD)")
	}
	workDate = model.Day(workDate)

	openMeters, err := parseMeters(req.OpenMeters, "open_meters")
	if err != nil {
		return WorkLogResponse{}, err
	}
	closeMeters, err := parseMeters(req.CloseMeters, "close_meters")
	if err != nil {
		return WorkLogResponse{}, err
	}

	items, err := parseAdditionalItems(req.AdditionalItems)
	if err != nil {
		return WorkLogResponse{}, err
	}

	// Today-only rule: field roles write the current day; elevated roles
	// may touch history.
	today := model.Day(s.now())
	historical := !workDate.Equal(today)
	if historical && !authz.CanEditHistorical(actor.Role) {
		return WorkLogResponse{}, &apperr.HistoricalEditError{Role: actor.Role, WorkDate: req.WorkDate}
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WorkLogResponse{}, fmt.Errorf("%w: project %s", apperr.ErrNotFound, projectID)
		}
		return WorkLogResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}
	if project.Status != model.ProjectActive {
		return WorkLogResponse{}, apperr.Validationf("project %q is closed", project.Name)
	}

	labourer, err := s.labourerRepo.FindByID(ctx, labourerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WorkLogResponse{}, fmt.Errorf("%w: labourer %s", apperr.ErrNotFound, labourerID)
		}
		return WorkLogResponse{}, fmt.Errorf("failed to fetch labourer: %w", err)
	}
	if labourer.ProjectID == nil || *labourer.ProjectID != projectID {
		return WorkLogResponse{}, apperr.Validationf("labourer %s is not assigned to this project", labourer.FullName)
	}

	// Rates are captured at write time, as of the work date. A missing rate
	// zero-rates that category and surfaces a warning. No silent defaults,
	// and later rate changes never touch recorded totals.
	var warnings []string
	openRate := decimal.Zero
	closeRate := decimal.Zero

	if rate, resolveErr := s.rates.ResolveRate(ctx, projectID, labourer.EmployeeTypeID, model.RateOpenTrenching, workDate); resolveErr != nil {
		if !errors.Is(resolveErr, apperr.ErrRateNotFound) {
			return WorkLogResponse{}, resolveErr
		}
		warnings = append(warnings, fmt.Sprintf("no open_trenching rate effective on %s; meters zero-rated", req.WorkDate))
	} else {
		openRate = rate.Amount
	}

	if rate, resolveErr := s.rates.ResolveRate(ctx, projectID, labourer.EmployeeTypeID, model.RateCloseTrenching, workDate); resolveErr != nil {
		if !errors.Is(resolveErr, apperr.ErrRateNotFound) {
			return WorkLogResponse{}, resolveErr
		}
		warnings = append(warnings, fmt.Sprintf("no close_trenching rate effective on %s; meters zero-rated", req.WorkDate))
	} else {
		closeRate = rate.Amount
	}

	total, err := ComputeEarnings(openMeters, closeMeters, openRate, closeRate, items)
	if err != nil {
		return WorkLogResponse{}, err
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return WorkLogResponse{}, fmt.Errorf("failed to encode additional items: %w", err)
	}

	var entry *model.WorkLogEntry
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, findErr := s.workLogRepo.FindByLabourerAndDate(txCtx, labourerID, workDate)
		switch {
		case findErr == nil:
			// Overwrite, not merge. Project managers may only rewrite
			// history they recorded themselves.
			if historical && actor.Role == model.RoleProjectManager && existing.RecordedBy != actor.ID {
				return fmt.Errorf("%w: entry for %s was recorded by another user", apperr.ErrHistoricalEditDenied, req.WorkDate)
			}
			existing.ProjectID = projectID
			existing.OpenMeters = openMeters
			existing.CloseMeters = closeMeters
			existing.AdditionalItems = datatypes.JSON(itemsJSON)
			existing.TotalEarnings = total
			existing.RecordedBy = actor.ID
			if updateErr := s.workLogRepo.Update(txCtx, existing); updateErr != nil {
				return fmt.Errorf("failed to update work log: %w", updateErr)
			}
			entry = existing
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			entry = &model.WorkLogEntry{
				ProjectID:       projectID,
				LabourerID:      labourerID,
				WorkDate:        workDate,
				OpenMeters:      openMeters,
				CloseMeters:     closeMeters,
				AdditionalItems: datatypes.JSON(itemsJSON),
				TotalEarnings:   total,
				RecordedBy:      actor.ID,
			}
			if createErr := s.workLogRepo.Create(txCtx, entry); createErr != nil {
				return fmt.Errorf("failed to create work log: %w", createErr)
			}
		default:
			return fmt.Errorf("failed to look up work log: %w", findErr)
		}

		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionRecordWorkLog, entry.ID.String(), labourer.FullName, map[string]interface{}{
			"project_id":     req.ProjectID,
			"labourer_id":    req.LabourerID,
			"work_date":      req.WorkDate,
			"open_meters":    openMeters.StringFixed(2),
			"close_meters":   closeMeters.StringFixed(2),
			"total_earnings": total.StringFixed(2),
		}))
	})
	if err != nil {
		return WorkLogResponse{}, err
	}

	resp := toWorkLogResponse(*entry)
	resp.Warnings = warnings
	return resp, nil
}

func (s *workLogService) ListWorkLogs(ctx context.Context, projectID, from, to string) ([]WorkLogResponse, error) {
	id, err := uuid.Parse(projectID)
	if err != nil {
		return nil, apperr.Validationf("invalid project id")
	}

	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, apperr.Validationf("invalid from date (expected YYYY-MM-DD)")
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, apperr.Validationf("invalid to date (expected YYYY-MM-DD)")
	}
	if toDate.Before(fromDate) {
		return nil, apperr.Validationf("to date is before from date")
	}

	entries, err := s.workLogRepo.ListByProjectAndRange(ctx, id, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch work logs: %w", err)
	}

	res := make([]WorkLogResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toWorkLogResponse(e))
	}
	return res, nil
}

func (s *workLogService) ListMyWorkLogs(ctx context.Context, actor Actor, labourerID string, page, limit int) ([]WorkLogResponse, int64, error) {
	id, err := uuid.Parse(labourerID)
	if err != nil {
		return nil, 0, apperr.Validationf("invalid labourer id")
	}

	if actor.Role == model.RoleLabourer {
		labourer, findErr := s.labourerRepo.FindByID(ctx, id)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return nil, 0, fmt.Errorf("%w: labourer %s", apperr.ErrNotFound, id)
			}
			return nil, 0, fmt.Errorf("failed to fetch labourer: %w", findErr)
		}
		if labourer.UserID == nil || *labourer.UserID != actor.ID {
			return nil, 0, fmt.Errorf("%w: labourers may only view their own work logs", apperr.ErrAuthorization)
		}
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	entries, total, err := s.workLogRepo.ListByLabourer(ctx, id, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch work logs: %w", err)
	}

	res := make([]WorkLogResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toWorkLogResponse(e))
	}
	return res, total, nil
}

// --- Helpers ---

func parseMeters(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Validationf("invalid %s %q", field, raw)
	}
	if val.IsNegative() {
		return decimal.Zero, apperr.Validationf("%s must not be negative", field)
	}
	return val, nil
}

func parseAdditionalItems(dtos []AdditionalItemDTO) ([]model.AdditionalItem, error) {
	if len(dtos) == 0 {
		return nil, nil
	}
	items := make([]model.AdditionalItem, 0, len(dtos))
	for _, dto := range dtos {
		amount, err := decimal.NewFromString(dto.Amount)
		if err != nil {
			return nil, apperr.Validationf("invalid amount %q for item %q", dto.Amount, dto.Description)
		}
		if amount.IsNegative() {
			return nil, apperr.Validationf("additional item %q must not have a negative amount", dto.Description)
		}
		if dto.Description == "" {
			return nil, apperr.Validationf("additional items require a description")
		}
		items = append(items, model.AdditionalItem{Description: dto.Description, Amount: amount})
	}
	return items, nil
}

func decodeAdditionalItems(raw datatypes.JSON) []model.AdditionalItem {
	if len(raw) == 0 {
		return nil
	}
	var items []model.AdditionalItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

func toWorkLogResponse(e model.WorkLogEntry) WorkLogResponse {
	return WorkLogResponse{
		ID:              e.ID.String(),
		ProjectID:       e.ProjectID.String(),
		LabourerID:      e.LabourerID.String(),
		WorkDate:        e.WorkDate.Format("2006-01-02"),
		OpenMeters:      e.OpenMeters.StringFixed(2),
		CloseMeters:     e.CloseMeters.StringFixed(2),
		AdditionalItems: decodeAdditionalItems(e.AdditionalItems),
		TotalEarnings:   e.TotalEarnings.StringFixed(2),
		RecordedBy:      e.RecordedBy.String(),
		RecordedAt:      e.RecordedAt.Format(time.RFC3339),
	}
}
