package authz

import (
	"testing"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role     string
		resource string
		action   string
		want     bool
	}{
		{model.RoleLabourer, ResWorkLog, ActRecord, true},
		{model.RoleLabourer, ResWorkLog, ActRecordHistorical, false},
		{model.RoleLabourer, ResPeriod, ActCreate, false},
		{model.RoleLabourer, ResCorrection, ActRequest, false},

		{model.RoleSupervisor, ResWorkLog, ActRecord, true},
		{model.RoleSupervisor, ResWorkLog, ActRecordHistorical, false},
		{model.RoleSupervisor, ResCorrection, ActRequest, true},
		{model.RoleSupervisor, ResCorrection, ActReview, false},
		{model.RoleSupervisor, ResPeriod, ActSubmit, false},

		{model.RoleProjectManager, ResWorkLog, ActRecordHistorical, true},
		{model.RoleProjectManager, ResPeriod, ActCreate, true},
		{model.RoleProjectManager, ResPeriod, ActSubmit, true},
		{model.RoleProjectManager, ResPeriod, ActReopen, true},
		{model.RoleProjectManager, ResPeriod, ActApprove, false},
		{model.RoleProjectManager, ResPeriod, ActMarkPaid, false},
		{model.RoleProjectManager, ResRate, ActManage, false},
		{model.RoleProjectManager, ResReport, ActExport, true},

		{model.RoleAdmin, ResPeriod, ActApprove, true},
		{model.RoleAdmin, ResPeriod, ActReject, true},
		{model.RoleAdmin, ResPeriod, ActMarkPaid, true},
		{model.RoleAdmin, ResCorrection, ActReview, true},
		{model.RoleAdmin, ResRate, ActManage, true},
		{model.RoleAdmin, ResUser, ActManage, true},

		{"unknown_role", ResWorkLog, ActRecord, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Can(tt.role, tt.resource, tt.action),
			"Can(%s, %s, %s)", tt.role, tt.resource, tt.action)
	}
}

func TestSuperAdminInheritsAdminCapabilities(t *testing.T) {
	assert.True(t, Can(model.RoleSuperAdmin, ResPeriod, ActMarkPaid))
	assert.True(t, Can(model.RoleSuperAdmin, ResCorrection, ActReview))
	assert.True(t, Can(model.RoleSuperAdmin, ResUser, ActManage))
	assert.True(t, Can(model.RoleSuperAdmin, ResRate, ActManage))
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(model.RoleAdmin, ResPeriod, ActApprove))

	err := Require(model.RoleLabourer, ResPeriod, ActApprove)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestCanEditHistorical(t *testing.T) {
	assert.False(t, CanEditHistorical(model.RoleLabourer))
	assert.False(t, CanEditHistorical(model.RoleSupervisor))
	assert.True(t, CanEditHistorical(model.RoleProjectManager))
	assert.True(t, CanEditHistorical(model.RoleAdmin))
	assert.True(t, CanEditHistorical(model.RoleSuperAdmin))
}
