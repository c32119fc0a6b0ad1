package service

// In-memory repository fakes shared by the service tests. They mimic the
// gorm-backed implementations closely enough for the business rules under
// test: gorm.ErrRecordNotFound on misses, CAS semantics on guarded updates.

import (
	"context"
	"sort"
	"time"

	"github.com/J3ZZ3/empcare/internal/model"
	"github.com/J3ZZ3/empcare/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- Audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _ repository.AuditFilter) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

// --- Projects ---

type fakeProjectRepo struct {
	projects map[uuid.UUID]*model.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[uuid.UUID]*model.Project)}
}

func (f *fakeProjectRepo) Create(_ context.Context, project *model.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	f.projects[project.ID] = project
	return nil
}

func (f *fakeProjectRepo) Update(_ context.Context, project *model.Project) error {
	f.projects[project.ID] = project
	return nil
}

func (f *fakeProjectRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjectRepo) List(_ context.Context, _, _ int) ([]model.Project, int64, error) {
	var out []model.Project
	for _, p := range f.projects {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

// --- Employee types ---

type fakeEmployeeTypeRepo struct {
	types map[uuid.UUID]*model.EmployeeType
}

func newFakeEmployeeTypeRepo() *fakeEmployeeTypeRepo {
	return &fakeEmployeeTypeRepo{types: make(map[uuid.UUID]*model.EmployeeType)}
}

func (f *fakeEmployeeTypeRepo) Create(_ context.Context, et *model.EmployeeType) error {
	if et.ID == uuid.Nil {
		et.ID = uuid.New()
	}
	f.types[et.ID] = et
	return nil
}

func (f *fakeEmployeeTypeRepo) Update(_ context.Context, et *model.EmployeeType) error {
	f.types[et.ID] = et
	return nil
}

func (f *fakeEmployeeTypeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.EmployeeType, error) {
	et, ok := f.types[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *et
	return &cp, nil
}

func (f *fakeEmployeeTypeRepo) List(_ context.Context, activeOnly bool) ([]model.EmployeeType, error) {
	var out []model.EmployeeType
	for _, et := range f.types {
		if activeOnly && !et.Active {
			continue
		}
		out = append(out, *et)
	}
	return out, nil
}

// --- Labourers ---

type fakeLabourerRepo struct {
	labourers map[uuid.UUID]*model.Labourer
}

func newFakeLabourerRepo() *fakeLabourerRepo {
	return &fakeLabourerRepo{labourers: make(map[uuid.UUID]*model.Labourer)}
}

func (f *fakeLabourerRepo) Create(_ context.Context, l *model.Labourer) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	f.labourers[l.ID] = l
	return nil
}

func (f *fakeLabourerRepo) Update(_ context.Context, l *model.Labourer) error {
	f.labourers[l.ID] = l
	return nil
}

func (f *fakeLabourerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Labourer, error) {
	l, ok := f.labourers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLabourerRepo) List(_ context.Context, projectID *uuid.UUID, _, _ int) ([]model.Labourer, int64, error) {
	var out []model.Labourer
	for _, l := range f.labourers {
		if projectID != nil && (l.ProjectID == nil || *l.ProjectID != *projectID) {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

// --- Pay rates ---

type fakePayRateRepo struct {
	rates []*model.PayRate
}

func (f *fakePayRateRepo) Create(_ context.Context, rate *model.PayRate) error {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	if rate.CreatedAt.IsZero() {
		rate.CreatedAt = time.Now()
	}
	f.rates = append(f.rates, rate)
	return nil
}

func (f *fakePayRateRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]model.PayRate, error) {
	var out []model.PayRate
	for _, r := range f.rates {
		if r.ProjectID == projectID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakePayRateRepo) FindEffective(_ context.Context, projectID, employeeTypeID uuid.UUID, category string, asOf time.Time) (*model.PayRate, error) {
	var candidates []*model.PayRate
	for _, r := range f.rates {
		if r.ProjectID == projectID && r.EmployeeTypeID == employeeTypeID && r.Category == category &&
			!r.EffectiveDate.After(model.Day(asOf)) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].EffectiveDate.Equal(candidates[j].EffectiveDate) {
			return candidates[i].EffectiveDate.After(candidates[j].EffectiveDate)
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

// --- Work logs ---

type fakeWorkLogRepo struct {
	entries map[uuid.UUID]*model.WorkLogEntry
}

func newFakeWorkLogRepo() *fakeWorkLogRepo {
	return &fakeWorkLogRepo{entries: make(map[uuid.UUID]*model.WorkLogEntry)}
}

func (f *fakeWorkLogRepo) Create(_ context.Context, entry *model.WorkLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakeWorkLogRepo) Update(_ context.Context, entry *model.WorkLogEntry) error {
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakeWorkLogRepo) FindByID(_ context.Context, id uuid.UUID) (*model.WorkLogEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeWorkLogRepo) FindByLabourerAndDate(_ context.Context, labourerID uuid.UUID, workDate time.Time) (*model.WorkLogEntry, error) {
	for _, e := range f.entries {
		if e.LabourerID == labourerID && e.WorkDate.Equal(model.Day(workDate)) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeWorkLogRepo) ListByProjectAndRange(_ context.Context, projectID uuid.UUID, from, to time.Time) ([]model.WorkLogEntry, error) {
	var out []model.WorkLogEntry
	for _, e := range f.entries {
		if e.ProjectID == projectID && !e.WorkDate.Before(model.Day(from)) && !e.WorkDate.After(model.Day(to)) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, nil
}

func (f *fakeWorkLogRepo) ListByLabourer(_ context.Context, labourerID uuid.UUID, _, _ int) ([]model.WorkLogEntry, int64, error) {
	var out []model.WorkLogEntry
	for _, e := range f.entries {
		if e.LabourerID == labourerID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeWorkLogRepo) CountByLabourerAndProject(_ context.Context, labourerID, projectID uuid.UUID) (int64, error) {
	var count int64
	for _, e := range f.entries {
		if e.LabourerID == labourerID && e.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

// --- Payment periods ---

type fakePeriodRepo struct {
	periods    map[uuid.UUID]*model.PaymentPeriod
	entries    map[uuid.UUID][]model.PaymentPeriodEntry
	nonOpenFor map[uuid.UUID]bool // labourer id -> has payment history

	// flipOnTransition simulates a concurrent writer sneaking in between the
	// guard read and the compare-and-swap.
	flipOnTransition func()

	// onLockedFind runs before FindByIDForUpdate reads the row, standing in
	// for a concurrent writer that commits while this transaction waits on
	// the row lock.
	onLockedFind func()
}

func newFakePeriodRepo() *fakePeriodRepo {
	return &fakePeriodRepo{
		periods:    make(map[uuid.UUID]*model.PaymentPeriod),
		entries:    make(map[uuid.UUID][]model.PaymentPeriodEntry),
		nonOpenFor: make(map[uuid.UUID]bool),
	}
}

func (f *fakePeriodRepo) Create(_ context.Context, period *model.PaymentPeriod) error {
	if period.ID == uuid.Nil {
		period.ID = uuid.New()
	}
	f.periods[period.ID] = period
	return nil
}

func (f *fakePeriodRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PaymentPeriod, error) {
	p, ok := f.periods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePeriodRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PaymentPeriod, error) {
	if f.onLockedFind != nil {
		f.onLockedFind()
		f.onLockedFind = nil
	}
	return f.FindByID(ctx, id)
}

func (f *fakePeriodRepo) List(_ context.Context, filter repository.PeriodFilter) ([]model.PaymentPeriod, int64, error) {
	var out []model.PaymentPeriod
	for _, p := range f.periods {
		if filter.ProjectID != nil && p.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakePeriodRepo) CountOverlapping(_ context.Context, projectID uuid.UUID, start, end time.Time) (int64, error) {
	var count int64
	for _, p := range f.periods {
		if p.ProjectID == projectID && !p.StartDate.After(model.Day(end)) && !p.EndDate.Before(model.Day(start)) {
			count++
		}
	}
	return count, nil
}

func (f *fakePeriodRepo) TransitionStatus(_ context.Context, id uuid.UUID, fromStatus string, updates map[string]interface{}) (int64, error) {
	if f.flipOnTransition != nil {
		f.flipOnTransition()
		f.flipOnTransition = nil
	}
	p, ok := f.periods[id]
	if !ok || p.Status != fromStatus {
		return 0, nil
	}
	applyPeriodUpdates(p, updates)
	return 1, nil
}

func (f *fakePeriodRepo) UpdateFields(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	p, ok := f.periods[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyPeriodUpdates(p, updates)
	return nil
}

func applyPeriodUpdates(p *model.PaymentPeriod, updates map[string]interface{}) {
	for col, v := range updates {
		switch col {
		case "status":
			p.Status = v.(string)
		case "total_amount":
			p.TotalAmount = v.(decimal.Decimal)
		case "submitted_by":
			p.SubmittedBy = uuidPtr(v)
		case "submitted_at":
			p.SubmittedAt = timePtr(v)
		case "approved_by":
			p.ApprovedBy = uuidPtr(v)
		case "approved_at":
			p.ApprovedAt = timePtr(v)
		case "reject_reason":
			p.RejectReason = v.(string)
		case "start_date":
			p.StartDate = v.(time.Time)
		case "end_date":
			p.EndDate = v.(time.Time)
		}
	}
}

func uuidPtr(v interface{}) *uuid.UUID {
	switch t := v.(type) {
	case uuid.UUID:
		return &t
	case *uuid.UUID:
		return t
	default:
		return nil
	}
}

func timePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	default:
		return nil
	}
}

func (f *fakePeriodRepo) ReplaceEntries(_ context.Context, periodID uuid.UUID, entries []model.PaymentPeriodEntry) error {
	f.entries[periodID] = append([]model.PaymentPeriodEntry(nil), entries...)
	return nil
}

func (f *fakePeriodRepo) ListEntries(_ context.Context, periodID uuid.UUID) ([]model.PaymentPeriodEntry, error) {
	return f.entries[periodID], nil
}

func (f *fakePeriodRepo) HasNonOpenEntryForLabourer(_ context.Context, labourerID uuid.UUID) (bool, error) {
	return f.nonOpenFor[labourerID], nil
}

// --- Corrections ---

type fakeCorrectionRepo struct {
	requests map[uuid.UUID]*model.CorrectionRequest
}

func newFakeCorrectionRepo() *fakeCorrectionRepo {
	return &fakeCorrectionRepo{requests: make(map[uuid.UUID]*model.CorrectionRequest)}
}

func (f *fakeCorrectionRepo) Create(_ context.Context, req *model.CorrectionRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	f.requests[req.ID] = req
	return nil
}

func (f *fakeCorrectionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CorrectionRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeCorrectionRepo) List(_ context.Context, filter repository.CorrectionFilter) ([]model.CorrectionRequest, int64, error) {
	var out []model.CorrectionRequest
	for _, r := range f.requests {
		if filter.EntityType != "" && r.EntityType != filter.EntityType {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCorrectionRepo) MarkReviewed(_ context.Context, id uuid.UUID, updates map[string]interface{}) (int64, error) {
	r, ok := f.requests[id]
	if !ok || r.Status != model.CorrectionPending {
		return 0, nil
	}
	for col, v := range updates {
		switch col {
		case "status":
			r.Status = v.(string)
		case "reviewed_by":
			r.ReviewedBy = uuidPtr(v)
		case "reviewed_at":
			r.ReviewedAt = timePtr(v)
		case "review_notes":
			r.ReviewNotes = v.(string)
		}
	}
	return 1, nil
}
