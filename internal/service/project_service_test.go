package service

import (
	"context"
	"testing"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProjectService(t *testing.T) (ProjectService, *fakeProjectRepo, *fakeAuditRepo) {
	t.Helper()
	projectRepo := newFakeProjectRepo()
	auditRepo := &fakeAuditRepo{}
	return NewProjectService(projectRepo, auditRepo, fakeTxManager{}), projectRepo, auditRepo
}

func TestProjectLifecycle(t *testing.T) {
	svc, _, auditRepo := newProjectService(t)
	ctx := context.Background()
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	created, err := svc.CreateProject(ctx, admin, CreateProjectRequest{
		Name:       "Orlando West Backbone",
		Location:   "Soweto",
		ClientName: "Vumatel",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectActive, created.Status)

	updated, err := svc.UpdateProject(ctx, admin, created.ID, UpdateProjectRequest{Location: strp("Soweto, Zone 4")})
	require.NoError(t, err)
	assert.Equal(t, "Soweto, Zone 4", updated.Location)

	closed, err := svc.CloseProject(ctx, admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectClosed, closed.Status)

	// Closed projects change only through the correction workflow.
	_, err = svc.UpdateProject(ctx, admin, created.ID, UpdateProjectRequest{Name: strp("Renamed")})
	assert.ErrorIs(t, err, apperr.ErrCorrectionRequired)

	_, err = svc.CloseProject(ctx, admin, created.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// create + update + close
	assert.Len(t, auditRepo.entries, 3)
}

func TestProject_ManageIsAdminOnly(t *testing.T) {
	svc, _, _ := newProjectService(t)
	ctx := context.Background()

	for _, role := range []string{model.RoleLabourer, model.RoleSupervisor, model.RoleProjectManager} {
		_, err := svc.CreateProject(ctx, Actor{ID: uuid.New(), Role: role}, CreateProjectRequest{Name: "X"})
		assert.ErrorIs(t, err, apperr.ErrAuthorization, "role %s", role)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	svc, _, _ := newProjectService(t)

	_, err := svc.GetProject(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.GetProject(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
