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
	"gorm.io/gorm"
)

// --- DTOs ---

type RequestCorrectionRequest struct {
	EntityType string `json:"entity_type" binding:"required,oneof=work_log labourer project payment_period"`
	EntityID   string `json:"entity_id" binding:"required"`
	FieldName  string `json:"field_name" binding:"required"`
	NewValue   string `json:"new_value" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

type ReviewCorrectionRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

type CorrectionResponse struct {
	ID            string  `json:"id"`
	EntityType    string  `json:"entity_type"`
	EntityID      string  `json:"entity_id"`
	FieldName     string  `json:"field_name"`
	OldValue      string  `json:"old_value"`
	NewValue      string  `json:"new_value"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	RequestedBy   string  `json:"requested_by"`
	RequesterName string  `json:"requester_name,omitempty"`
	RequestedAt   string  `json:"requested_at"`
	ReviewedBy    *string `json:"reviewed_by"`
	ReviewerName  string  `json:"reviewer_name,omitempty"`
	ReviewedAt    *string `json:"reviewed_at"`
	ReviewNotes   string  `json:"review_notes,omitempty"`
}

// fieldApplier knows how to read, validate, and write one entity type's
// correctable fields. The registry below is the full set of fields the
// correction workflow can touch; anything else is rejected when the request
// is filed.
type fieldApplier interface {
	// CurrentValue snapshots the field as a string at request time, so the
	// audit trail shows what the value was before review.
	CurrentValue(ctx context.Context, entityID uuid.UUID, field string) (string, error)
	ValidateNewValue(field, value string) error
	// ApplyField writes the approved value. Runs inside the review
	// transaction.
	ApplyField(ctx context.Context, entityID uuid.UUID, field, value string) error
}

// --- Interface ---

type CorrectionService interface {
	// RequestCorrection files a pending request. The target entity is not
	// touched; the old value is snapshotted server side.
	RequestCorrection(ctx context.Context, actor Actor, req RequestCorrectionRequest) (CorrectionResponse, error)
	// ReviewCorrection approves or rejects a pending request. Approval
	// applies the new value to the target in the same transaction. A request
	// is reviewable exactly once.
	ReviewCorrection(ctx context.Context, actor Actor, correctionID string, req ReviewCorrectionRequest) (CorrectionResponse, error)
	GetCorrection(ctx context.Context, correctionID string) (CorrectionResponse, error)
	ListCorrections(ctx context.Context, filter repository.CorrectionFilter) ([]CorrectionResponse, int64, error)
}

type correctionService struct {
	correctionRepo repository.CorrectionRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	appliers       map[string]fieldApplier
	hub            Broadcaster

	now func() time.Time
}

func NewCorrectionService(
	correctionRepo repository.CorrectionRepository,
	workLogRepo repository.WorkLogRepository,
	labourerRepo repository.LabourerRepository,
	projectRepo repository.ProjectRepository,
	periodRepo repository.PeriodRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	rates RateService,
	hub Broadcaster,
) CorrectionService {
	return &correctionService{
		correctionRepo: correctionRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		appliers: map[string]fieldApplier{
			model.EntityWorkLog:       &workLogApplier{workLogRepo: workLogRepo, labourerRepo: labourerRepo, rates: rates},
			model.EntityLabourer:      &labourerApplier{labourerRepo: labourerRepo},
			model.EntityProject:       &projectApplier{projectRepo: projectRepo},
			model.EntityPaymentPeriod: &periodApplier{periodRepo: periodRepo},
		},
		hub: hub,
		now: time.Now,
	}
}

// --- Implementation ---

func (s *correctionService) RequestCorrection(ctx context.Context, actor Actor, req RequestCorrectionRequest) (CorrectionResponse, error) {
	if err := authz.Require(actor.Role, authz.ResCorrection, authz.ActRequest); err != nil {
		return CorrectionResponse{}, err
	}

	if !model.ValidCorrectionEntityType(req.EntityType) {
		return CorrectionResponse{}, apperr.Validationf("unknown entity type %q", req.EntityType)
	}
	entityID, err := uuid.Parse(req.EntityID)
	if err != nil {
		return CorrectionResponse{}, apperr.Validationf("invalid entity_id")
	}
	if len(req.Reason) < model.MinCorrectionReasonLen {
		return CorrectionResponse{}, apperr.Validationf("reason must be at least %d characters", model.MinCorrectionReasonLen)
	}

	applier := s.appliers[req.EntityType]
	if err := applier.ValidateNewValue(req.FieldName, req.NewValue); err != nil {
		return CorrectionResponse{}, err
	}

	oldValue, err := applier.CurrentValue(ctx, entityID, req.FieldName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CorrectionResponse{}, fmt.Errorf("%w: %s %s", apperr.ErrNotFound, req.EntityType, entityID)
		}
		return CorrectionResponse{}, err
	}

	correction := model.CorrectionRequest{
		EntityType:  req.EntityType,
		EntityID:    entityID,
		FieldName:   req.FieldName,
		OldValue:    oldValue,
		NewValue:    req.NewValue,
		Reason:      req.Reason,
		Status:      model.CorrectionPending,
		RequestedBy: actor.ID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.correctionRepo.Create(txCtx, &correction); createErr != nil {
			return fmt.Errorf("failed to create correction request: %w", createErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionRequestCorrection, correction.ID.String(), req.EntityType+"."+req.FieldName, map[string]interface{}{
			"entity_type": req.EntityType,
			"entity_id":   req.EntityID,
			"field_name":  req.FieldName,
			"old_value":   oldValue,
			"new_value":   req.NewValue,
		}))
	})
	if err != nil {
		return CorrectionResponse{}, err
	}

	s.publish("correction.requested", map[string]interface{}{
		"correction_id": correction.ID.String(),
		"entity_type":   req.EntityType,
	})

	return toCorrectionResponse(correction), nil
}

func (s *correctionService) ReviewCorrection(ctx context.Context, actor Actor, correctionID string, req ReviewCorrectionRequest) (CorrectionResponse, error) {
	if err := authz.Require(actor.Role, authz.ResCorrection, authz.ActReview); err != nil {
		return CorrectionResponse{}, err
	}

	id, err := uuid.Parse(correctionID)
	if err != nil {
		return CorrectionResponse{}, apperr.Validationf("invalid correction id")
	}

	status := model.CorrectionRejected
	auditAction := model.ActionRejectCorrection
	if req.Approve {
		status = model.CorrectionApproved
		auditAction = model.ActionApproveCorrection
	}
	now := s.now()

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		correction, findErr := s.correctionRepo.FindByID(txCtx, id)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: correction request %s", apperr.ErrNotFound, id)
			}
			return fmt.Errorf("failed to fetch correction request: %w", findErr)
		}
		if correction.Status != model.CorrectionPending {
			return fmt.Errorf("%w: correction request is %s", apperr.ErrAlreadyReviewed, correction.Status)
		}

		// The CAS on status=pending is what makes a double review lose even
		// when two reviewers read the request at the same moment.
		rows, markErr := s.correctionRepo.MarkReviewed(txCtx, id, map[string]interface{}{
			"status":       status,
			"reviewed_by":  actor.ID,
			"reviewed_at":  now,
			"review_notes": req.Notes,
		})
		if markErr != nil {
			return fmt.Errorf("failed to mark correction reviewed: %w", markErr)
		}
		if rows == 0 {
			return fmt.Errorf("%w: correction request %s", apperr.ErrAlreadyReviewed, id)
		}

		if req.Approve {
			applier := s.appliers[correction.EntityType]
			if applyErr := applier.ApplyField(txCtx, correction.EntityID, correction.FieldName, correction.NewValue); applyErr != nil {
				return fmt.Errorf("failed to apply correction: %w", applyErr)
			}
		}

		return s.auditRepo.Log(txCtx, auditEntry(actor, auditAction, correction.ID.String(), correction.EntityType+"."+correction.FieldName, map[string]interface{}{
			"entity_type": correction.EntityType,
			"entity_id":   correction.EntityID.String(),
			"field_name":  correction.FieldName,
			"old_value":   correction.OldValue,
			"new_value":   correction.NewValue,
			"approved":    req.Approve,
		}))
	})
	if err != nil {
		return CorrectionResponse{}, err
	}

	updated, err := s.correctionRepo.FindByID(ctx, id)
	if err != nil {
		return CorrectionResponse{}, fmt.Errorf("failed to reload correction request: %w", err)
	}

	s.publish("correction.reviewed", map[string]interface{}{
		"correction_id": id.String(),
		"status":        status,
	})

	return toCorrectionResponse(*updated), nil
}

func (s *correctionService) GetCorrection(ctx context.Context, correctionID string) (CorrectionResponse, error) {
	id, err := uuid.Parse(correctionID)
	if err != nil {
		return CorrectionResponse{}, apperr.Validationf("invalid correction id")
	}

	correction, err := s.correctionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CorrectionResponse{}, fmt.Errorf("%w: correction request %s", apperr.ErrNotFound, id)
		}
		return CorrectionResponse{}, fmt.Errorf("failed to fetch correction request: %w", err)
	}
	return toCorrectionResponse(*correction), nil
}

func (s *correctionService) ListCorrections(ctx context.Context, filter repository.CorrectionFilter) ([]CorrectionResponse, int64, error) {
	corrections, total, err := s.correctionRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch correction requests: %w", err)
	}

	res := make([]CorrectionResponse, 0, len(corrections))
	for _, c := range corrections {
		res = append(res, toCorrectionResponse(c))
	}
	return res, total, nil
}

func (s *correctionService) publish(event string, fields map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": fields})
	if err != nil {
		return
	}
	select {
	case s.hub.GetBroadcast() <- payload:
	default:
	}
}

// --- Work log applier ---

type workLogApplier struct {
	workLogRepo  repository.WorkLogRepository
	labourerRepo repository.LabourerRepository
	rates        RateService
}

func (a *workLogApplier) CurrentValue(ctx context.Context, entityID uuid.UUID, field string) (string, error) {
	entry, err := a.workLogRepo.FindByID(ctx, entityID)
	if err != nil {
		return "", err
	}
	switch field {
	case "open_meters":
		return entry.OpenMeters.StringFixed(2), nil
	case "close_meters":
		return entry.CloseMeters.StringFixed(2), nil
	default:
		return "", apperr.Validationf("field %q of a work log cannot be corrected", field)
	}
}

func (a *workLogApplier) ValidateNewValue(field, value string) error {
	switch field {
	case "open_meters", "close_meters":
		val, err := decimal.NewFromString(value)
		if err != nil {
			return apperr.Validationf("invalid %s %q", field, value)
		}
		if val.IsNegative() {
			return apperr.Validationf("%s must not be negative", field)
		}
		return nil
	default:
		return apperr.Validationf("field %q of a work log cannot be corrected", field)
	}
}

// ApplyField rewrites the meters and recomputes the stored total against the
// rates that were effective on the entry's work date. The correction changes
// output, never the rate snapshot.
func (a *workLogApplier) ApplyField(ctx context.Context, entityID uuid.UUID, field, value string) error {
	entry, err := a.workLogRepo.FindByID(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to fetch work log: %w", err)
	}

	val, err := decimal.NewFromString(value)
	if err != nil {
		return apperr.Validationf("invalid %s %q", field, value)
	}
	switch field {
	case "open_meters":
		entry.OpenMeters = val
	case "close_meters":
		entry.CloseMeters = val
	default:
		return apperr.Validationf("field %q of a work log cannot be corrected", field)
	}

	labourer, err := a.labourerRepo.FindByID(ctx, entry.LabourerID)
	if err != nil {
		return fmt.Errorf("failed to fetch labourer: %w", err)
	}

	openRate, err := a.resolveOrZero(ctx, entry.ProjectID, labourer.EmployeeTypeID, model.RateOpenTrenching, entry.WorkDate)
	if err != nil {
		return err
	}
	closeRate, err := a.resolveOrZero(ctx, entry.ProjectID, labourer.EmployeeTypeID, model.RateCloseTrenching, entry.WorkDate)
	if err != nil {
		return err
	}

	total, err := ComputeEarnings(entry.OpenMeters, entry.CloseMeters, openRate, closeRate, decodeAdditionalItems(entry.AdditionalItems))
	if err != nil {
		return err
	}
	entry.TotalEarnings = total

	if err := a.workLogRepo.Update(ctx, entry); err != nil {
		return fmt.Errorf("failed to update work log: %w", err)
	}
	return nil
}

func (a *workLogApplier) resolveOrZero(ctx context.Context, projectID, employeeTypeID uuid.UUID, category string, asOf time.Time) (decimal.Decimal, error) {
	rate, err := a.rates.ResolveRate(ctx, projectID, employeeTypeID, category, asOf)
	if err != nil {
		if errors.Is(err, apperr.ErrRateNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return rate.Amount, nil
}

// --- Labourer applier ---

type labourerApplier struct {
	labourerRepo repository.LabourerRepository
}

func (a *labourerApplier) CurrentValue(ctx context.Context, entityID uuid.UUID, field string) (string, error) {
	labourer, err := a.labourerRepo.FindByID(ctx, entityID)
	if err != nil {
		return "", err
	}
	switch field {
	case "full_name":
		return labourer.FullName, nil
	case "id_number":
		return labourer.IDNumber, nil
	case "phone":
		return labourer.Phone, nil
	case "bank_name":
		return labourer.BankName, nil
	case "account_no":
		return labourer.AccountNo, nil
	case "branch_code":
		return labourer.BranchCode, nil
	case "project_id":
		if labourer.ProjectID == nil {
			return "", nil
		}
		return labourer.ProjectID.String(), nil
	default:
		return "", apperr.Validationf("field %q of a labourer cannot be corrected", field)
	}
}

func (a *labourerApplier) ValidateNewValue(field, value string) error {
	switch field {
	case "full_name":
		if value == "" {
			return apperr.Validationf("full_name must not be empty")
		}
		return nil
	case "id_number", "phone", "bank_name", "account_no", "branch_code":
		return nil
	case "project_id":
		if value == "" {
			return nil // Unassign
		}
		if _, err := uuid.Parse(value); err != nil {
			return apperr.Validationf("invalid project_id %q", value)
		}
		return nil
	default:
		return apperr.Validationf("field %q of a labourer cannot be corrected", field)
	}
}

func (a *labourerApplier) ApplyField(ctx context.Context, entityID uuid.UUID, field, value string) error {
	labourer, err := a.labourerRepo.FindByID(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to fetch labourer: %w", err)
	}

	switch field {
	case "full_name":
		labourer.FullName = value
	case "id_number":
		labourer.IDNumber = value
	case "phone":
		labourer.Phone = value
	case "bank_name":
		labourer.BankName = value
	case "account_no":
		labourer.AccountNo = value
	case "branch_code":
		labourer.BranchCode = value
	case "project_id":
		if value == "" {
			labourer.ProjectID = nil
		} else {
			id, parseErr := uuid.Parse(value)
			if parseErr != nil {
				return apperr.Validationf("invalid project_id %q", value)
			}
			labourer.ProjectID = &id
		}
	default:
		return apperr.Validationf("field %q of a labourer cannot be corrected", field)
	}

	if err := a.labourerRepo.Update(ctx, labourer); err != nil {
		return fmt.Errorf("failed to update labourer: %w", err)
	}
	return nil
}

// --- Project applier ---

type projectApplier struct {
	projectRepo repository.ProjectRepository
}

func (a *projectApplier) CurrentValue(ctx context.Context, entityID uuid.UUID, field string) (string, error) {
	project, err := a.projectRepo.FindByID(ctx, entityID)
	if err != nil {
		return "", err
	}
	switch field {
	case "name":
		return project.Name, nil
	case "location":
		return project.Location, nil
	case "client_name":
		return project.ClientName, nil
	case "description":
		return project.Description, nil
	default:
		return "", apperr.Validationf("field %q of a project cannot be corrected", field)
	}
}

func (a *projectApplier) ValidateNewValue(field, value string) error {
	switch field {
	case "name":
		if value == "" {
			return apperr.Validationf("name must not be empty")
		}
		return nil
	case "location", "client_name", "description":
		return nil
	default:
		return apperr.Validationf("field %q of a project cannot be corrected", field)
	}
}

func (a *projectApplier) ApplyField(ctx context.Context, entityID uuid.UUID, field, value string) error {
	project, err := a.projectRepo.FindByID(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to fetch project: %w", err)
	}

	switch field {
	case "name":
		project.Name = value
	case "location":
		project.Location = value
	case "client_name":
		project.ClientName = value
	case "description":
		project.Description = value
	default:
		return apperr.Validationf("field %q of a project cannot be corrected", field)
	}

	if err := a.projectRepo.Update(ctx, project); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// --- Payment period applier ---

type periodApplier struct {
	periodRepo repository.PeriodRepository
}

func (a *periodApplier) CurrentValue(ctx context.Context, entityID uuid.UUID, field string) (string, error) {
	period, err := a.periodRepo.FindByID(ctx, entityID)
	if err != nil {
		return "", err
	}
	switch field {
	case "start_date":
		return period.StartDate.Format("2006-01-02"), nil
	case "end_date":
		return period.EndDate.Format("2006-01-02"), nil
	default:
		return "", apperr.Validationf("field %q of a payment period cannot be corrected", field)
	}
}

func (a *periodApplier) ValidateNewValue(field, value string) error {
	switch field {
	case "start_date", "end_date":
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return apperr.Validationf("invalid %s (expected YYYY-MM-DD)", field)
		}
		return nil
	default:
		return apperr.Validationf("field %q of a payment period cannot be corrected", field)
	}
}

func (a *periodApplier) ApplyField(ctx context.Context, entityID uuid.UUID, field, value string) error {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return apperr.Validationf("invalid %s (expected YYYY-MM-DD)", field)
	}

	period, err := a.periodRepo.FindByID(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to fetch payment period: %w", err)
	}

	switch field {
	case "start_date":
		if model.Day(date).After(period.EndDate) {
			return apperr.Validationf("start_date would fall after end_date")
		}
	case "end_date":
		if model.Day(date).Before(period.StartDate) {
			return apperr.Validationf("end_date would fall before start_date")
		}
	default:
		return apperr.Validationf("field %q of a payment period cannot be corrected", field)
	}

	if err := a.periodRepo.UpdateFields(ctx, entityID, map[string]interface{}{field: model.Day(date)}); err != nil {
		return fmt.Errorf("failed to update payment period: %w", err)
	}
	return nil
}

// --- Helpers ---

func toCorrectionResponse(c model.CorrectionRequest) CorrectionResponse {
	resp := CorrectionResponse{
		ID:          c.ID.String(),
		EntityType:  c.EntityType,
		EntityID:    c.EntityID.String(),
		FieldName:   c.FieldName,
		OldValue:    c.OldValue,
		NewValue:    c.NewValue,
		Reason:      c.Reason,
		Status:      c.Status,
		RequestedBy: c.RequestedBy.String(),
		RequestedAt: c.RequestedAt.Format(time.RFC3339),
		ReviewNotes: c.ReviewNotes,
	}
	if c.Requester != nil {
		resp.RequesterName = c.Requester.FullName
	}
	if c.ReviewedBy != nil {
		v := c.ReviewedBy.String()
		resp.ReviewedBy = &v
	}
	if c.Reviewer != nil {
		resp.ReviewerName = c.Reviewer.FullName
	}
	if c.ReviewedAt != nil {
		v := c.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &v
	}
	return resp
}
