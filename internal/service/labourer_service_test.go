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

func strp(s string) *string { return &s }

type labourerFixture struct {
	labourerRepo *fakeLabourerRepo
	etRepo       *fakeEmployeeTypeRepo
	projectRepo  *fakeProjectRepo
	workLogRepo  *fakeWorkLogRepo
	periodRepo   *fakePeriodRepo
	auditRepo    *fakeAuditRepo
	svc          LabourerService

	project      *model.Project
	employeeType *model.EmployeeType
	admin        Actor
}

func newLabourerFixture(t *testing.T) *labourerFixture {
	t.Helper()
	f := &labourerFixture{
		labourerRepo: newFakeLabourerRepo(),
		etRepo:       newFakeEmployeeTypeRepo(),
		projectRepo:  newFakeProjectRepo(),
		workLogRepo:  newFakeWorkLogRepo(),
		periodRepo:   newFakePeriodRepo(),
		auditRepo:    &fakeAuditRepo{},
		admin:        Actor{ID: uuid.New(), Role: model.RoleAdmin},
	}

	ctx := context.Background()
	f.project = &model.Project{Name: "Alexandra North", Status: model.ProjectActive}
	require.NoError(t, f.projectRepo.Create(ctx, f.project))
	f.employeeType = &model.EmployeeType{Name: "Jointer", Active: true}
	require.NoError(t, f.etRepo.Create(ctx, f.employeeType))

	f.svc = NewLabourerService(f.labourerRepo, f.etRepo, f.projectRepo, f.workLogRepo, f.periodRepo, f.auditRepo, fakeTxManager{})
	return f
}

func (f *labourerFixture) createLabourer(t *testing.T) LabourerResponse {
	t.Helper()
	resp, err := f.svc.CreateLabourer(context.Background(), f.admin, CreateLabourerRequest{
		FullName:       "Lindiwe Mokoena",
		EmployeeTypeID: f.employeeType.ID.String(),
		ProjectID:      f.project.ID.String(),
		BankName:       "FNB",
		AccountNo:      "5544332211",
	})
	require.NoError(t, err)
	return resp
}

func TestCreateLabourer(t *testing.T) {
	f := newLabourerFixture(t)

	resp := f.createLabourer(t)
	assert.Equal(t, "Lindiwe Mokoena", resp.FullName)
	assert.Equal(t, "Jointer", resp.EmployeeTypeName)
	require.NotNil(t, resp.ProjectID)
	assert.Equal(t, f.project.ID.String(), *resp.ProjectID)
	require.Len(t, f.auditRepo.entries, 1)
	assert.Equal(t, model.ActionCreateLabourer, f.auditRepo.entries[0].Action)
}

func TestCreateLabourer_Rejections(t *testing.T) {
	f := newLabourerFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateLabourer(ctx, Actor{ID: uuid.New(), Role: model.RoleLabourer}, CreateLabourerRequest{
		FullName:       "X",
		EmployeeTypeID: f.employeeType.ID.String(),
	})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	f.employeeType.Active = false
	_, err = f.svc.CreateLabourer(ctx, f.admin, CreateLabourerRequest{
		FullName:       "X",
		EmployeeTypeID: f.employeeType.ID.String(),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	f.employeeType.Active = true

	f.project.Status = model.ProjectClosed
	_, err = f.svc.CreateLabourer(ctx, f.admin, CreateLabourerRequest{
		FullName:       "X",
		EmployeeTypeID: f.employeeType.ID.String(),
		ProjectID:      f.project.ID.String(),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateLabourer_FrozenFieldsAfterPaymentHistory(t *testing.T) {
	f := newLabourerFixture(t)
	ctx := context.Background()
	resp := f.createLabourer(t)
	id, _ := uuid.Parse(resp.ID)

	// Before any payment history, banking details are freely editable.
	updated, err := f.svc.UpdateLabourer(ctx, f.admin, resp.ID, UpdateLabourerRequest{AccountNo: strp("9999999999")})
	require.NoError(t, err)
	assert.Equal(t, "9999999999", updated.AccountNo)

	// Once the labourer appears in a submitted period, the same edit must go
	// through the correction workflow.
	f.periodRepo.nonOpenFor[id] = true
	_, err = f.svc.UpdateLabourer(ctx, f.admin, resp.ID, UpdateLabourerRequest{AccountNo: strp("1111111111")})
	assert.ErrorIs(t, err, apperr.ErrCorrectionRequired)

	// Non-frozen fields stay editable.
	updated, err = f.svc.UpdateLabourer(ctx, f.admin, resp.ID, UpdateLabourerRequest{Phone: strp("0821234567")})
	require.NoError(t, err)
	assert.Equal(t, "0821234567", updated.Phone)
}

func TestUpdateLabourer_ReassignmentBlockedByWorkLogs(t *testing.T) {
	f := newLabourerFixture(t)
	ctx := context.Background()
	resp := f.createLabourer(t)
	id, _ := uuid.Parse(resp.ID)

	other := &model.Project{Name: "Diepsloot East", Status: model.ProjectActive}
	require.NoError(t, f.projectRepo.Create(ctx, other))

	// No logs yet: reassignment is a plain update.
	updated, err := f.svc.UpdateLabourer(ctx, f.admin, resp.ID, UpdateLabourerRequest{ProjectID: strp(other.ID.String())})
	require.NoError(t, err)
	require.NotNil(t, updated.ProjectID)
	assert.Equal(t, other.ID.String(), *updated.ProjectID)

	// With recorded output under the current project, it is not.
	require.NoError(t, f.workLogRepo.Create(ctx, &model.WorkLogEntry{
		ProjectID:  other.ID,
		LabourerID: id,
		WorkDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		RecordedBy: f.admin.ID,
	}))
	_, err = f.svc.UpdateLabourer(ctx, f.admin, resp.ID, UpdateLabourerRequest{ProjectID: strp(f.project.ID.String())})
	assert.ErrorIs(t, err, apperr.ErrCorrectionRequired)
}

func TestEmployeeTypeLifecycle(t *testing.T) {
	f := newLabourerFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateEmployeeType(ctx, f.admin, EmployeeTypeRequest{Name: "Splicer"})
	require.NoError(t, err)
	assert.True(t, created.Active)

	deactivated, err := f.svc.DeactivateEmployeeType(ctx, f.admin, created.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	// Both writes leave audit rows like every other mutation.
	require.Len(t, f.auditRepo.entries, 2)
	assert.Equal(t, model.ActionCreateEmployeeType, f.auditRepo.entries[0].Action)
	assert.Equal(t, model.ActionDeactivateEmployeeType, f.auditRepo.entries[1].Action)
	assert.Equal(t, "Splicer", f.auditRepo.entries[1].EntityName)

	// Deactivation is soft: the row survives, filtered lists drop it.
	active, err := f.svc.ListEmployeeTypes(ctx, true)
	require.NoError(t, err)
	for _, et := range active {
		assert.NotEqual(t, created.ID, et.ID)
	}
	all, err := f.svc.ListEmployeeTypes(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Inactive types cannot be assigned to new labourers.
	_, err = f.svc.CreateLabourer(ctx, f.admin, CreateLabourerRequest{
		FullName:       "New Hire",
		EmployeeTypeID: created.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
