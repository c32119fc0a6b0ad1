package service

import (
	"context"
	"testing"
	"time"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type periodFixture struct {
	periodRepo  *fakePeriodRepo
	workLogRepo *fakeWorkLogRepo
	projectRepo *fakeProjectRepo
	auditRepo   *fakeAuditRepo
	svc         *periodService

	project *model.Project
	manager Actor
	admin   Actor
}

func newPeriodFixture(t *testing.T) *periodFixture {
	t.Helper()
	f := &periodFixture{
		periodRepo:  newFakePeriodRepo(),
		workLogRepo: newFakeWorkLogRepo(),
		projectRepo: newFakeProjectRepo(),
		auditRepo:   &fakeAuditRepo{},
		manager:     Actor{ID: uuid.New(), Role: model.RoleProjectManager},
		admin:       Actor{ID: uuid.New(), Role: model.RoleAdmin},
	}

	f.project = &model.Project{Name: "Tembisa Ring", Status: model.ProjectActive}
	require.NoError(t, f.projectRepo.Create(context.Background(), f.project))

	f.svc = NewPeriodService(f.periodRepo, f.workLogRepo, f.projectRepo, f.auditRepo, fakeTxManager{}, nil).(*periodService)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *periodFixture) openPeriod(t *testing.T, start, end string) *model.PaymentPeriod {
	t.Helper()
	resp, err := f.svc.CreatePeriod(context.Background(), f.manager, CreatePeriodRequest{
		ProjectID: f.project.ID.String(),
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	id, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	return f.periodRepo.periods[id]
}

func (f *periodFixture) addWorkLog(t *testing.T, labourerID uuid.UUID, workDate, open, closeM, earnings string) {
	t.Helper()
	date, err := time.Parse("2006-01-02", workDate)
	require.NoError(t, err)
	require.NoError(t, f.workLogRepo.Create(context.Background(), &model.WorkLogEntry{
		ProjectID:     f.project.ID,
		LabourerID:    labourerID,
		WorkDate:      model.Day(date),
		OpenMeters:    dec(open),
		CloseMeters:   dec(closeM),
		TotalEarnings: dec(earnings),
		RecordedBy:    f.manager.ID,
	}))
}

func TestCreatePeriod(t *testing.T) {
	f := newPeriodFixture(t)

	period := f.openPeriod(t, "2026-03-01", "2026-03-15")
	assert.Equal(t, model.PeriodOpen, period.Status)
	assert.True(t, period.TotalAmount.IsZero())

	// Overlapping ranges on the same project are refused.
	_, err := f.svc.CreatePeriod(context.Background(), f.manager, CreatePeriodRequest{
		ProjectID: f.project.ID.String(),
		StartDate: "2026-03-10",
		EndDate:   "2026-03-20",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.CreatePeriod(context.Background(), f.manager, CreatePeriodRequest{
		ProjectID: f.project.ID.String(),
		StartDate: "2026-03-20",
		EndDate:   "2026-03-16",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.CreatePeriod(context.Background(), Actor{ID: uuid.New(), Role: model.RoleSupervisor}, CreatePeriodRequest{
		ProjectID: f.project.ID.String(),
		StartDate: "2026-04-01",
		EndDate:   "2026-04-15",
	})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestAggregate(t *testing.T) {
	f := newPeriodFixture(t)
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")

	labourerA := uuid.New()
	labourerB := uuid.New()
	f.addWorkLog(t, labourerA, "2026-03-02", "10", "5", "350.00")
	f.addWorkLog(t, labourerA, "2026-03-03", "8", "0", "200.00")
	f.addWorkLog(t, labourerA, "2026-03-04", "0", "0", "0.00") // rained out, counts no day
	f.addWorkLog(t, labourerB, "2026-03-02", "12", "12", "540.00")
	// Outside the period bounds, must be ignored.
	f.addWorkLog(t, labourerB, "2026-03-20", "50", "50", "2250.00")

	entries, err := f.svc.Aggregate(context.Background(), f.manager, period.ID.String())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byLabourer := map[string]PeriodEntryResponse{}
	for _, e := range entries {
		byLabourer[e.LabourerID] = e
	}

	a := byLabourer[labourerA.String()]
	assert.Equal(t, 2, a.DaysWorked)
	assert.Equal(t, "18.00", a.OpenMeters)
	assert.Equal(t, "5.00", a.CloseMeters)
	assert.Equal(t, "23.00", a.TotalMeters)
	assert.Equal(t, "550.00", a.TotalEarnings) // sum of stored totals, not recomputed

	b := byLabourer[labourerB.String()]
	assert.Equal(t, 1, b.DaysWorked)
	assert.Equal(t, "540.00", b.TotalEarnings)

	assert.Equal(t, "1090.00", f.periodRepo.periods[period.ID].TotalAmount.StringFixed(2))
}

func TestAggregate_IsIdempotent(t *testing.T) {
	f := newPeriodFixture(t)
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")
	labourer := uuid.New()
	f.addWorkLog(t, labourer, "2026-03-02", "10", "5", "350.00")

	first, err := f.svc.Aggregate(context.Background(), f.manager, period.ID.String())
	require.NoError(t, err)
	second, err := f.svc.Aggregate(context.Background(), f.manager, period.ID.String())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	assert.Equal(t, first[0].TotalEarnings, second[0].TotalEarnings)
	assert.Equal(t, "350.00", f.periodRepo.periods[period.ID].TotalAmount.StringFixed(2))
	// The entry set is replaced wholesale, never appended.
	assert.Len(t, f.periodRepo.entries[period.ID], 1)
}

func TestAggregate_LockedPeriod(t *testing.T) {
	f := newPeriodFixture(t)
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")
	period.Status = model.PeriodSubmitted

	_, err := f.svc.Aggregate(context.Background(), f.manager, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrPeriodLocked)
}

func TestSubmit_EmptyPeriod(t *testing.T) {
	f := newPeriodFixture(t)
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")

	_, err := f.svc.Submit(context.Background(), f.manager, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, model.PeriodOpen, f.periodRepo.periods[period.ID].Status)
}

func TestSubmit_GuardSeesTotalZeroedByConcurrentAggregation(t *testing.T) {
	f := newPeriodFixture(t)
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")
	period.TotalAmount = decimal.RequireFromString("500.00")

	// An aggregation with no work logs commits while submit waits on the
	// row lock and zeroes the total. The empty-period guard must evaluate
	// the value read under the lock, not a stale one.
	f.periodRepo.onLockedFind = func() {
		period.TotalAmount = decimal.Zero
	}

	_, err := f.svc.Submit(context.Background(), f.manager, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, model.PeriodOpen, f.periodRepo.periods[period.ID].Status)
	assert.Nil(t, f.periodRepo.periods[period.ID].SubmittedBy)
}

func TestPeriodLifecycle(t *testing.T) {
	f := newPeriodFixture(t)
	ctx := context.Background()
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")
	period.TotalAmount = decimal.RequireFromString("1090.00")

	resp, err := f.svc.Submit(ctx, f.manager, period.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.PeriodSubmitted, resp.Status)
	require.NotNil(t, resp.SubmittedBy)
	assert.Equal(t, f.manager.ID.String(), *resp.SubmittedBy)

	// Only submitted periods can be approved; approval records the reviewer.
	resp, err = f.svc.Approve(ctx, f.admin, period.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.PeriodApproved, resp.Status)
	require.NotNil(t, resp.ApprovedBy)

	resp, err = f.svc.MarkPaid(ctx, f.admin, period.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.PeriodPaid, resp.Status)

	// Paid is terminal.
	_, err = f.svc.Approve(ctx, f.admin, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestApprove_FromOpenIsInvalid(t *testing.T) {
	f := newPeriodFixture(t)
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")

	_, err := f.svc.Approve(context.Background(), f.admin, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	var transition *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, model.PeriodOpen, transition.Current)
}

func TestReject(t *testing.T) {
	f := newPeriodFixture(t)
	ctx := context.Background()
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")
	period.TotalAmount = decimal.RequireFromString("500.00")

	_, err := f.svc.Submit(ctx, f.manager, period.ID.String())
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.admin, period.ID.String(), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	resp, err := f.svc.Reject(ctx, f.admin, period.ID.String(), "labourer B missing two days")
	require.NoError(t, err)
	assert.Equal(t, model.PeriodRejected, resp.Status)
	assert.Equal(t, "labourer B missing two days", resp.RejectReason)

	// Rejecting never fills the approve columns; the reviewer is carried in
	// the audit row instead.
	assert.Nil(t, resp.ApprovedBy)
	assert.Nil(t, resp.ApprovedAt)
	rejectAudit := f.auditRepo.entries[len(f.auditRepo.entries)-1]
	assert.Equal(t, model.ActionRejectPeriod, rejectAudit.Action)
	require.NotNil(t, rejectAudit.UserID)
	assert.Equal(t, f.admin.ID, *rejectAudit.UserID)
}

func TestReopen(t *testing.T) {
	f := newPeriodFixture(t)
	ctx := context.Background()
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")
	period.TotalAmount = decimal.RequireFromString("500.00")

	_, err := f.svc.Submit(ctx, f.manager, period.ID.String())
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.admin, period.ID.String(), "missing entries")
	require.NoError(t, err)

	// A manager who did not submit the period may not reopen it.
	_, err = f.svc.Reopen(ctx, Actor{ID: uuid.New(), Role: model.RoleProjectManager}, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	resp, err := f.svc.Reopen(ctx, f.manager, period.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.PeriodOpen, resp.Status)
	assert.Nil(t, resp.SubmittedBy)
	assert.Nil(t, resp.ApprovedBy)
	assert.Empty(t, resp.RejectReason)
}

func TestReopen_OnlyFromRejected(t *testing.T) {
	f := newPeriodFixture(t)
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")

	_, err := f.svc.Reopen(context.Background(), f.admin, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestTransition_ConcurrentModification(t *testing.T) {
	f := newPeriodFixture(t)
	period := f.openPeriod(t, "2026-03-01", "2026-03-15")
	period.TotalAmount = decimal.RequireFromString("500.00")

	// Another writer flips the status between the guard read and the CAS.
	f.periodRepo.flipOnTransition = func() {
		period.Status = model.PeriodSubmitted
	}

	_, err := f.svc.Submit(context.Background(), f.manager, period.ID.String())
	assert.ErrorIs(t, err, apperr.ErrConcurrentModification)
}
