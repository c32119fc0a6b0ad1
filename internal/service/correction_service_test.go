package service

import (
	"context"
	"testing"
	"time"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type correctionFixture struct {
	correctionRepo *fakeCorrectionRepo
	workLogRepo    *fakeWorkLogRepo
	labourerRepo   *fakeLabourerRepo
	projectRepo    *fakeProjectRepo
	periodRepo     *fakePeriodRepo
	auditRepo      *fakeAuditRepo
	svc            CorrectionService

	project      *model.Project
	employeeType *model.EmployeeType
	labourer     *model.Labourer
	entry        *model.WorkLogEntry

	supervisor Actor
	admin      Actor
}

func newCorrectionFixture(t *testing.T) *correctionFixture {
	t.Helper()
	ctx := context.Background()
	f := &correctionFixture{
		correctionRepo: newFakeCorrectionRepo(),
		workLogRepo:    newFakeWorkLogRepo(),
		labourerRepo:   newFakeLabourerRepo(),
		projectRepo:    newFakeProjectRepo(),
		periodRepo:     newFakePeriodRepo(),
		auditRepo:      &fakeAuditRepo{},
		supervisor:     Actor{ID: uuid.New(), Role: model.RoleSupervisor},
		admin:          Actor{ID: uuid.New(), Role: model.RoleAdmin},
	}

	f.project = &model.Project{Name: "Katlehong Feeder", Status: model.ProjectActive}
	require.NoError(t, f.projectRepo.Create(ctx, f.project))

	etRepo := newFakeEmployeeTypeRepo()
	f.employeeType = &model.EmployeeType{Name: "Trencher", Active: true}
	require.NoError(t, etRepo.Create(ctx, f.employeeType))

	f.labourer = &model.Labourer{
		FullName:       "Thabo Nkosi",
		BankName:       "Capitec",
		AccountNo:      "1122334455",
		ProjectID:      &f.project.ID,
		EmployeeTypeID: f.employeeType.ID,
	}
	require.NoError(t, f.labourerRepo.Create(ctx, f.labourer))

	rateRepo := &fakePayRateRepo{}
	for category, amount := range map[string]string{
		model.RateOpenTrenching:  "25.00",
		model.RateCloseTrenching: "20.00",
	} {
		require.NoError(t, rateRepo.Create(ctx, &model.PayRate{
			ProjectID:      f.project.ID,
			EmployeeTypeID: f.employeeType.ID,
			Category:       category,
			Amount:         dec(amount),
			Unit:           model.UnitPerMeter,
			EffectiveDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}))
	}
	rates := NewRateService(rateRepo, f.projectRepo, etRepo, f.auditRepo, fakeTxManager{})

	// A historical entry worth 10*25 + 5*20 = 350.00.
	f.entry = &model.WorkLogEntry{
		ProjectID:     f.project.ID,
		LabourerID:    f.labourer.ID,
		WorkDate:      time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		OpenMeters:    dec("10"),
		CloseMeters:   dec("5"),
		TotalEarnings: dec("350.00"),
		RecordedBy:    f.supervisor.ID,
	}
	require.NoError(t, f.workLogRepo.Create(ctx, f.entry))

	f.svc = NewCorrectionService(
		f.correctionRepo, f.workLogRepo, f.labourerRepo, f.projectRepo, f.periodRepo,
		f.auditRepo, fakeTxManager{}, rates, nil,
	)
	return f
}

func (f *correctionFixture) fileWorkLogCorrection(t *testing.T, field, newValue string) CorrectionResponse {
	t.Helper()
	resp, err := f.svc.RequestCorrection(context.Background(), f.supervisor, RequestCorrectionRequest{
		EntityType: model.EntityWorkLog,
		EntityID:   f.entry.ID.String(),
		FieldName:  field,
		NewValue:   newValue,
		Reason:     "meters were misread off the site sheet",
	})
	require.NoError(t, err)
	return resp
}

func TestRequestCorrection_SnapshotsOldValue(t *testing.T) {
	f := newCorrectionFixture(t)

	resp := f.fileWorkLogCorrection(t, "open_meters", "12.00")
	assert.Equal(t, model.CorrectionPending, resp.Status)
	assert.Equal(t, "10.00", resp.OldValue)
	assert.Equal(t, "12.00", resp.NewValue)

	// Filing alone never touches the target.
	assert.Equal(t, "10.00", f.workLogRepo.entries[f.entry.ID].OpenMeters.StringFixed(2))
	require.Len(t, f.auditRepo.entries, 1)
	assert.Equal(t, model.ActionRequestCorrection, f.auditRepo.entries[0].Action)
}

func TestRequestCorrection_Rejections(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	req := RequestCorrectionRequest{
		EntityType: model.EntityWorkLog,
		EntityID:   f.entry.ID.String(),
		FieldName:  "open_meters",
		NewValue:   "12.00",
		Reason:     "short",
	}
	_, err := f.svc.RequestCorrection(ctx, f.supervisor, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req.Reason = "meters were misread off the site sheet"
	req.FieldName = "total_earnings" // derived, never directly correctable
	_, err = f.svc.RequestCorrection(ctx, f.supervisor, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req.FieldName = "open_meters"
	req.NewValue = "-3"
	_, err = f.svc.RequestCorrection(ctx, f.supervisor, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req.NewValue = "12.00"
	req.EntityID = uuid.NewString()
	_, err = f.svc.RequestCorrection(ctx, f.supervisor, req)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// Labourers have no correction capability at all.
	req.EntityID = f.entry.ID.String()
	_, err = f.svc.RequestCorrection(ctx, Actor{ID: uuid.New(), Role: model.RoleLabourer}, req)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestReviewCorrection_ApproveAppliesAndRecomputes(t *testing.T) {
	f := newCorrectionFixture(t)
	resp := f.fileWorkLogCorrection(t, "open_meters", "12.00")

	reviewed, err := f.svc.ReviewCorrection(context.Background(), f.admin, resp.ID, ReviewCorrectionRequest{
		Approve: true,
		Notes:   "confirmed against the site sheet",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, f.admin.ID.String(), *reviewed.ReviewedBy)

	// Earnings recomputed against the rates effective on the work date:
	// 12*25 + 5*20 = 400.00.
	entry := f.workLogRepo.entries[f.entry.ID]
	assert.Equal(t, "12.00", entry.OpenMeters.StringFixed(2))
	assert.Equal(t, "400.00", entry.TotalEarnings.StringFixed(2))
}

func TestReviewCorrection_RejectLeavesTargetUntouched(t *testing.T) {
	f := newCorrectionFixture(t)
	resp := f.fileWorkLogCorrection(t, "open_meters", "12.00")

	reviewed, err := f.svc.ReviewCorrection(context.Background(), f.admin, resp.ID, ReviewCorrectionRequest{
		Approve: false,
		Notes:   "no evidence for the higher figure",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CorrectionRejected, reviewed.Status)

	entry := f.workLogRepo.entries[f.entry.ID]
	assert.Equal(t, "10.00", entry.OpenMeters.StringFixed(2))
	assert.Equal(t, "350.00", entry.TotalEarnings.StringFixed(2))
}

func TestReviewCorrection_ExactlyOnce(t *testing.T) {
	f := newCorrectionFixture(t)
	resp := f.fileWorkLogCorrection(t, "open_meters", "12.00")
	ctx := context.Background()

	_, err := f.svc.ReviewCorrection(ctx, f.admin, resp.ID, ReviewCorrectionRequest{Approve: false})
	require.NoError(t, err)

	// The decision is final, even if the second reviewer disagrees.
	_, err = f.svc.ReviewCorrection(ctx, f.admin, resp.ID, ReviewCorrectionRequest{Approve: true})
	assert.ErrorIs(t, err, apperr.ErrAlreadyReviewed)

	entry := f.workLogRepo.entries[f.entry.ID]
	assert.Equal(t, "10.00", entry.OpenMeters.StringFixed(2))
}

func TestReviewCorrection_RequiresReviewCapability(t *testing.T) {
	f := newCorrectionFixture(t)
	resp := f.fileWorkLogCorrection(t, "open_meters", "12.00")

	_, err := f.svc.ReviewCorrection(context.Background(), f.supervisor, resp.ID, ReviewCorrectionRequest{Approve: true})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestCorrection_LabourerBankDetails(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	resp, err := f.svc.RequestCorrection(ctx, f.supervisor, RequestCorrectionRequest{
		EntityType: model.EntityLabourer,
		EntityID:   f.labourer.ID.String(),
		FieldName:  "account_no",
		NewValue:   "9988776655",
		Reason:     "labourer switched to a new account",
	})
	require.NoError(t, err)
	assert.Equal(t, "1122334455", resp.OldValue)

	_, err = f.svc.ReviewCorrection(ctx, f.admin, resp.ID, ReviewCorrectionRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, "9988776655", f.labourerRepo.labourers[f.labourer.ID].AccountNo)
}

func TestCorrection_PeriodDates(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	period := &model.PaymentPeriod{
		ProjectID: f.project.ID,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:    model.PeriodOpen,
	}
	require.NoError(t, f.periodRepo.Create(ctx, period))

	resp, err := f.svc.RequestCorrection(ctx, f.supervisor, RequestCorrectionRequest{
		EntityType: model.EntityPaymentPeriod,
		EntityID:   period.ID.String(),
		FieldName:  "end_date",
		NewValue:   "2026-03-14",
		Reason:     "period was cut a day short on site",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", resp.OldValue)

	_, err = f.svc.ReviewCorrection(ctx, f.admin, resp.ID, ReviewCorrectionRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", f.periodRepo.periods[period.ID].EndDate.Format("2006-01-02"))
}

func TestCorrection_PeriodDatesCannotCross(t *testing.T) {
	f := newCorrectionFixture(t)
	ctx := context.Background()

	period := &model.PaymentPeriod{
		ProjectID: f.project.ID,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:    model.PeriodOpen,
	}
	require.NoError(t, f.periodRepo.Create(ctx, period))

	resp, err := f.svc.RequestCorrection(ctx, f.supervisor, RequestCorrectionRequest{
		EntityType: model.EntityPaymentPeriod,
		EntityID:   period.ID.String(),
		FieldName:  "end_date",
		NewValue:   "2026-02-20",
		Reason:     "typo in the original end date",
	})
	require.NoError(t, err)

	// Applying would put end_date before start_date, so the review fails and
	// the period keeps its bounds.
	_, err = f.svc.ReviewCorrection(ctx, f.admin, resp.ID, ReviewCorrectionRequest{Approve: true})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "2026-03-15", f.periodRepo.periods[period.ID].EndDate.Format("2006-01-02"))
}
