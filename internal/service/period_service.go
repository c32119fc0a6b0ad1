package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/authz"
	"github.com/J3ZZ3/empcare/internal/model"
	"github.com/J3ZZ3/empcare/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Broadcaster pushes lifecycle events to connected clients. A nil
// broadcaster disables notifications; tests run without one.
type Broadcaster interface {
	GetBroadcast() chan []byte
}

// --- DTOs ---

type CreatePeriodRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate   string `json:"end_date" binding:"required"`   // YYYY-MM-DD
}

type PeriodResponse struct {
	ID           string  `json:"id"`
	ProjectID    string  `json:"project_id"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Status       string  `json:"status"`
	TotalAmount  string  `json:"total_amount"`
	SubmittedBy  *string `json:"submitted_by"`
	SubmittedAt  *string `json:"submitted_at"`
	ApprovedBy   *string `json:"approved_by"`
	ApprovedAt   *string `json:"approved_at"`
	RejectReason string  `json:"reject_reason,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type PeriodEntryResponse struct {
	ID            string `json:"id"`
	PeriodID      string `json:"period_id"`
	LabourerID    string `json:"labourer_id"`
	LabourerName  string `json:"labourer_name,omitempty"`
	DaysWorked    int    `json:"days_worked"`
	OpenMeters    string `json:"open_meters"`
	CloseMeters   string `json:"close_meters"`
	TotalMeters   string `json:"total_meters"`
	TotalEarnings string `json:"total_earnings"`
}

// --- Interface ---

type PeriodService interface {
	CreatePeriod(ctx context.Context, actor Actor, req CreatePeriodRequest) (PeriodResponse, error)
	// Aggregate re-derives the period's per-labourer entries from the work
	// logs in range. Only valid while the period is open; it fully replaces
	// the previous entry set and is idempotent.
	Aggregate(ctx context.Context, actor Actor, periodID string) ([]PeriodEntryResponse, error)
	Submit(ctx context.Context, actor Actor, periodID string) (PeriodResponse, error)
	Approve(ctx context.Context, actor Actor, periodID string) (PeriodResponse, error)
	Reject(ctx context.Context, actor Actor, periodID, reason string) (PeriodResponse, error)
	Reopen(ctx context.Context, actor Actor, periodID string) (PeriodResponse, error)
	MarkPaid(ctx context.Context, actor Actor, periodID string) (PeriodResponse, error)
	GetPeriod(ctx context.Context, periodID string) (PeriodResponse, error)
	ListPeriods(ctx context.Context, filter repository.PeriodFilter) ([]PeriodResponse, int64, error)
	GetPeriodEntries(ctx context.Context, periodID string) ([]PeriodEntryResponse, error)
}

type periodService struct {
	periodRepo  repository.PeriodRepository
	workLogRepo repository.WorkLogRepository
	projectRepo repository.ProjectRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	hub         Broadcaster

	now func() time.Time
}

func NewPeriodService(
	periodRepo repository.PeriodRepository,
	workLogRepo repository.WorkLogRepository,
	projectRepo repository.ProjectRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub Broadcaster,
) PeriodService {
	return &periodService{
		periodRepo:  periodRepo,
		workLogRepo: workLogRepo,
		projectRepo: projectRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		hub:         hub,
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *periodService) CreatePeriod(ctx context.Context, actor Actor, req CreatePeriodRequest) (PeriodResponse, error) {
	if err := authz.Require(actor.Role, authz.ResPeriod, authz.ActCreate); err != nil {
		return PeriodResponse{}, err
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return PeriodResponse{}, apperr.Validationf("invalid project_id")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return PeriodResponse{}, apperr.Validationf("invalid start_date (expected YYYY-MM-DD)")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return PeriodResponse{}, apperr.Validationf("invalid end_date (expected YYYY-MM-DD)")
	}
	if endDate.Before(startDate) {
		return PeriodResponse{}, apperr.Validationf("end_date is before start_date")
	}

	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PeriodResponse{}, fmt.Errorf("%w: project %s", apperr.ErrNotFound, projectID)
		}
		return PeriodResponse{}, fmt.Errorf("failed to fetch project: %w", err)
	}

	overlapping, err := s.periodRepo.CountOverlapping(ctx, projectID, startDate, endDate)
	if err != nil {
		return PeriodResponse{}, fmt.Errorf("failed to check for overlapping periods: %w", err)
	}
	if overlapping > 0 {
		return PeriodResponse{}, apperr.Validationf("a payment period overlapping %s..%s already exists for this project", req.StartDate, req.EndDate)
	}

	period := model.PaymentPeriod{
		ProjectID:   projectID,
		StartDate:   model.Day(startDate),
		EndDate:     model.Day(endDate),
		Status:      model.PeriodOpen,
		TotalAmount: decimal.Zero,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.periodRepo.Create(txCtx, &period); createErr != nil {
			return fmt.Errorf("failed to create payment period: %w", createErr)
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionCreatePeriod, period.ID.String(), req.StartDate+".."+req.EndDate, map[string]interface{}{
			"project_id": req.ProjectID,
			"start_date": req.StartDate,
			"end_date":   req.EndDate,
		}))
	})
	if err != nil {
		return PeriodResponse{}, err
	}

	return toPeriodResponse(period), nil
}

func (s *periodService) Aggregate(ctx context.Context, actor Actor, periodID string) ([]PeriodEntryResponse, error) {
	if err := authz.Require(actor.Role, authz.ResPeriod, authz.ActAggregate); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(periodID)
	if err != nil {
		return nil, apperr.Validationf("invalid period id")
	}

	var entries []model.PaymentPeriodEntry
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Row lock keeps a concurrent submit (or second aggregation) from
		// interleaving with the delete+insert below.
		period, findErr := s.periodRepo.FindByIDForUpdate(txCtx, id)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment period %s", apperr.ErrNotFound, id)
			}
			return fmt.Errorf("failed to fetch payment period: %w", findErr)
		}
		if period.Status != model.PeriodOpen {
			return fmt.Errorf("%w: status is %q", apperr.ErrPeriodLocked, period.Status)
		}

		logs, logsErr := s.workLogRepo.ListByProjectAndRange(txCtx, period.ProjectID, period.StartDate, period.EndDate)
		if logsErr != nil {
			return fmt.Errorf("failed to fetch work logs: %w", logsErr)
		}

		entries = buildPeriodEntries(period.ID, logs)

		total := decimal.Zero
		for _, e := range entries {
			total = total.Add(e.TotalEarnings)
		}

		if replaceErr := s.periodRepo.ReplaceEntries(txCtx, period.ID, entries); replaceErr != nil {
			return fmt.Errorf("failed to replace period entries: %w", replaceErr)
		}

		rows, updateErr := s.periodRepo.TransitionStatus(txCtx, period.ID, model.PeriodOpen, map[string]interface{}{
			"total_amount": total,
		})
		if updateErr != nil {
			return fmt.Errorf("failed to update period total: %w", updateErr)
		}
		if rows == 0 {
			return fmt.Errorf("%w: payment period %s", apperr.ErrConcurrentModification, id)
		}

		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionAggregatePeriod, period.ID.String(), "", map[string]interface{}{
			"entries":      len(entries),
			"total_amount": total.StringFixed(2),
		}))
	})
	if err != nil {
		return nil, err
	}

	res := make([]PeriodEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toPeriodEntryResponse(e))
	}
	return res, nil
}

// buildPeriodEntries groups work logs by labourer and derives the period
// entry set: days worked counts distinct dates with non-zero output, meters
// are summed, and earnings are the sum of the stored per-day totals, never
// re-resolved against current rates. Output is ordered by labourer id so
// repeat runs produce identical sets.
func buildPeriodEntries(periodID uuid.UUID, logs []model.WorkLogEntry) []model.PaymentPeriodEntry {
	byLabourer := make(map[uuid.UUID]*model.PaymentPeriodEntry)
	for _, entry := range logs {
		agg, ok := byLabourer[entry.LabourerID]
		if !ok {
			agg = &model.PaymentPeriodEntry{
				PeriodID:      periodID,
				LabourerID:    entry.LabourerID,
				OpenMeters:    decimal.Zero,
				CloseMeters:   decimal.Zero,
				TotalMeters:   decimal.Zero,
				TotalEarnings: decimal.Zero,
			}
			byLabourer[entry.LabourerID] = agg
		}

		if entry.OpenMeters.IsPositive() || entry.CloseMeters.IsPositive() {
			agg.DaysWorked++
		}
		agg.OpenMeters = agg.OpenMeters.Add(entry.OpenMeters)
		agg.CloseMeters = agg.CloseMeters.Add(entry.CloseMeters)
		agg.TotalEarnings = agg.TotalEarnings.Add(entry.TotalEarnings)
	}

	entries := make([]model.PaymentPeriodEntry, 0, len(byLabourer))
	for _, agg := range byLabourer {
		agg.TotalMeters = agg.OpenMeters.Add(agg.CloseMeters)
		entries = append(entries, *agg)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LabourerID.String() < entries[j].LabourerID.String()
	})
	return entries
}

func (s *periodService) Submit(ctx context.Context, actor Actor, periodID string) (PeriodResponse, error) {
	if err := authz.Require(actor.Role, authz.ResPeriod, authz.ActSubmit); err != nil {
		return PeriodResponse{}, err
	}

	now := s.now()
	return s.transition(ctx, actor, periodID, "submit", model.PeriodOpen, model.ActionSubmitPeriod,
		func(period *model.PaymentPeriod) (map[string]interface{}, error) {
			if !period.TotalAmount.IsPositive() {
				return nil, apperr.Validationf("cannot submit an empty payment period")
			}
			return map[string]interface{}{
				"status":       model.PeriodSubmitted,
				"submitted_by": actor.ID,
				"submitted_at": now,
			}, nil
		})
}

func (s *periodService) Approve(ctx context.Context, actor Actor, periodID string) (PeriodResponse, error) {
	if err := authz.Require(actor.Role, authz.ResPeriod, authz.ActApprove); err != nil {
		return PeriodResponse{}, err
	}

	now := s.now()
	return s.transition(ctx, actor, periodID, "approve", model.PeriodSubmitted, model.ActionApprovePeriod,
		func(period *model.PaymentPeriod) (map[string]interface{}, error) {
			return map[string]interface{}{
				"status":      model.PeriodApproved,
				"approved_by": actor.ID,
				"approved_at": now,
			}, nil
		})
}

func (s *periodService) Reject(ctx context.Context, actor Actor, periodID, reason string) (PeriodResponse, error) {
	if err := authz.Require(actor.Role, authz.ResPeriod, authz.ActReject); err != nil {
		return PeriodResponse{}, err
	}
	if reason == "" {
		return PeriodResponse{}, apperr.Validationf("a rejection reason is required")
	}

	// The approve columns stay nil on reject; the reviewer is on record in
	// the audit row.
	return s.transition(ctx, actor, periodID, "reject", model.PeriodSubmitted, model.ActionRejectPeriod,
		func(period *model.PaymentPeriod) (map[string]interface{}, error) {
			return map[string]interface{}{
				"status":        model.PeriodRejected,
				"reject_reason": reason,
			}, nil
		})
}

// Reopen is the only back-edge in the lifecycle: a rejected period returns
// to open for re-aggregation. Rejection itself never re-opens implicitly.
func (s *periodService) Reopen(ctx context.Context, actor Actor, periodID string) (PeriodResponse, error) {
	if err := authz.Require(actor.Role, authz.ResPeriod, authz.ActReopen); err != nil {
		return PeriodResponse{}, err
	}

	return s.transition(ctx, actor, periodID, "reopen", model.PeriodRejected, model.ActionReopenPeriod,
		func(period *model.PaymentPeriod) (map[string]interface{}, error) {
			// Project managers may only re-open periods they submitted.
			if actor.Role == model.RoleProjectManager &&
				(period.SubmittedBy == nil || *period.SubmittedBy != actor.ID) {
				return nil, fmt.Errorf("%w: only the submitter may reopen this period", apperr.ErrAuthorization)
			}
			return map[string]interface{}{
				"status":        model.PeriodOpen,
				"submitted_by":  nil,
				"submitted_at":  nil,
				"approved_by":   nil,
				"approved_at":   nil,
				"reject_reason": "",
			}, nil
		})
}

func (s *periodService) MarkPaid(ctx context.Context, actor Actor, periodID string) (PeriodResponse, error) {
	if err := authz.Require(actor.Role, authz.ResPeriod, authz.ActMarkPaid); err != nil {
		return PeriodResponse{}, err
	}

	return s.transition(ctx, actor, periodID, "mark_paid", model.PeriodApproved, model.ActionMarkPeriodPaid,
		func(period *model.PaymentPeriod) (map[string]interface{}, error) {
			return map[string]interface{}{"status": model.PeriodPaid}, nil
		})
}

// transition runs one state-machine step as a single atomic unit: lock the
// row, check the guard against the locked values, and compare-and-swap the
// status. The lock keeps a concurrent aggregation from changing the guard's
// inputs (total amount in particular) between read and write; a writer that
// loses the status race gets ErrConcurrentModification and may retry after
// re-reading.
func (s *periodService) transition(
	ctx context.Context,
	actor Actor,
	periodID string,
	action string,
	fromStatus string,
	auditAction string,
	guard func(*model.PaymentPeriod) (map[string]interface{}, error),
) (PeriodResponse, error) {
	id, err := uuid.Parse(periodID)
	if err != nil {
		return PeriodResponse{}, apperr.Validationf("invalid period id")
	}

	var period *model.PaymentPeriod
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		period, findErr = s.periodRepo.FindByIDForUpdate(txCtx, id)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment period %s", apperr.ErrNotFound, id)
			}
			return fmt.Errorf("failed to fetch payment period: %w", findErr)
		}

		if period.Status != fromStatus {
			return &apperr.InvalidTransitionError{Current: period.Status, Action: action}
		}

		updates, guardErr := guard(period)
		if guardErr != nil {
			return guardErr
		}

		rows, updateErr := s.periodRepo.TransitionStatus(txCtx, id, fromStatus, updates)
		if updateErr != nil {
			return fmt.Errorf("failed to %s payment period: %w", action, updateErr)
		}
		if rows == 0 {
			return fmt.Errorf("%w: payment period %s", apperr.ErrConcurrentModification, id)
		}

		return s.auditRepo.Log(txCtx, auditEntry(actor, auditAction, period.ID.String(), "", map[string]interface{}{
			"from":   fromStatus,
			"action": action,
		}))
	})
	if err != nil {
		return PeriodResponse{}, err
	}

	// Reload to reflect the applied updates.
	updated, err := s.periodRepo.FindByID(ctx, id)
	if err != nil {
		return PeriodResponse{}, fmt.Errorf("failed to reload payment period: %w", err)
	}

	s.publish("period."+action, map[string]interface{}{
		"period_id": updated.ID.String(),
		"status":    updated.Status,
		"actor_id":  actor.ID.String(),
	})

	return toPeriodResponse(*updated), nil
}

func (s *periodService) GetPeriod(ctx context.Context, periodID string) (PeriodResponse, error) {
	id, err := uuid.Parse(periodID)
	if err != nil {
		return PeriodResponse{}, apperr.Validationf("invalid period id")
	}

	period, err := s.periodRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PeriodResponse{}, fmt.Errorf("%w: payment period %s", apperr.ErrNotFound, id)
		}
		return PeriodResponse{}, fmt.Errorf("failed to fetch payment period: %w", err)
	}
	return toPeriodResponse(*period), nil
}

func (s *periodService) ListPeriods(ctx context.Context, filter repository.PeriodFilter) ([]PeriodResponse, int64, error) {
	periods, total, err := s.periodRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payment periods: %w", err)
	}

	res := make([]PeriodResponse, 0, len(periods))
	for _, p := range periods {
		res = append(res, toPeriodResponse(p))
	}
	return res, total, nil
}

func (s *periodService) GetPeriodEntries(ctx context.Context, periodID string) ([]PeriodEntryResponse, error) {
	id, err := uuid.Parse(periodID)
	if err != nil {
		return nil, apperr.Validationf("invalid period id")
	}

	entries, err := s.periodRepo.ListEntries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch period entries: %w", err)
	}

	res := make([]PeriodEntryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toPeriodEntryResponse(e))
	}
	return res, nil
}

func (s *periodService) publish(event string, fields map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": fields})
	if err != nil {
		return
	}
	select {
	case s.hub.GetBroadcast() <- payload:
	default: // nobody listening, drop rather than block the request
	}
}

// --- Helpers ---

func toPeriodResponse(p model.PaymentPeriod) PeriodResponse {
	resp := PeriodResponse{
		ID:           p.ID.String(),
		ProjectID:    p.ProjectID.String(),
		StartDate:    p.StartDate.Format("2006-01-02"),
		EndDate:      p.EndDate.Format("2006-01-02"),
		Status:       p.Status,
		TotalAmount:  p.TotalAmount.StringFixed(2),
		RejectReason: p.RejectReason,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
	if p.SubmittedBy != nil {
		v := p.SubmittedBy.String()
		resp.SubmittedBy = &v
	}
	if p.SubmittedAt != nil {
		v := p.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &v
	}
	if p.ApprovedBy != nil {
		v := p.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	if p.ApprovedAt != nil {
		v := p.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	return resp
}

func toPeriodEntryResponse(e model.PaymentPeriodEntry) PeriodEntryResponse {
	resp := PeriodEntryResponse{
		ID:            e.ID.String(),
		PeriodID:      e.PeriodID.String(),
		LabourerID:    e.LabourerID.String(),
		DaysWorked:    e.DaysWorked,
		OpenMeters:    e.OpenMeters.StringFixed(2),
		CloseMeters:   e.CloseMeters.StringFixed(2),
		TotalMeters:   e.TotalMeters.StringFixed(2),
		TotalEarnings: e.TotalEarnings.StringFixed(2),
	}
	if e.Labourer != nil {
		resp.LabourerName = e.Labourer.FullName
	}
	return resp
}
