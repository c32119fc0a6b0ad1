// Package authz is the capability gate consulted by every service before a
// mutation. The policy is a closed table of (role, resource, action); there
// is deliberately no runtime editing surface for it.
package authz

import (
	"fmt"

	"github.com/J3ZZ3/empcare/internal/apperr"
	"github.com/J3ZZ3/empcare/internal/model"
)

// Resource tokens
const (
	ResWorkLog    = "worklog"
	ResPeriod     = "period"
	ResCorrection = "correction"
	ResLabourer   = "labourer"
	ResRate       = "rate"
	ResProject    = "project"
	ResReport     = "report"
	ResUser       = "user"
)

// Action tokens
const (
	ActRecord           = "record"
	ActRecordHistorical = "record_historical"
	ActRead             = "read"
	ActCreate           = "create"
	ActAggregate        = "aggregate"
	ActSubmit           = "submit"
	ActApprove          = "approve"
	ActReject           = "reject"
	ActReopen           = "reopen"
	ActMarkPaid         = "mark_paid"
	ActRequest          = "request"
	ActReview           = "review"
	ActManage           = "manage"
	ActExport           = "export"
)

type policyKey struct {
	Role     string
	Resource string
	Action   string
}

// policy is the full allow table. Anything absent is denied.
var policy = map[policyKey]bool{}

func allow(role, resource string, actions ...string) {
	for _, a := range actions {
		policy[policyKey{role, resource, a}] = true
	}
}

func init() {
	// Labourers record their own output for today and read their own logs.
	allow(model.RoleLabourer, ResWorkLog, ActRecord, ActRead)
	allow(model.RoleLabourer, ResRate, ActRead)

	// Supervisors run the crews: today's logs for anyone, corrections, reads.
	allow(model.RoleSupervisor, ResWorkLog, ActRecord, ActRead)
	allow(model.RoleSupervisor, ResLabourer, ActManage, ActRead)
	allow(model.RoleSupervisor, ResCorrection, ActRequest, ActRead)
	allow(model.RoleSupervisor, ResRate, ActRead)
	allow(model.RoleSupervisor, ResPeriod, ActRead)

	// Project managers own the payroll cycle up to submission.
	allow(model.RoleProjectManager, ResWorkLog, ActRecord, ActRecordHistorical, ActRead)
	allow(model.RoleProjectManager, ResLabourer, ActManage, ActRead)
	allow(model.RoleProjectManager, ResCorrection, ActRequest, ActRead)
	allow(model.RoleProjectManager, ResRate, ActRead)
	allow(model.RoleProjectManager, ResPeriod, ActCreate, ActAggregate, ActSubmit, ActReopen, ActRead)
	allow(model.RoleProjectManager, ResReport, ActExport)

	// Admins review: approve/reject/pay periods, review corrections, manage
	// rates, projects and users.
	allow(model.RoleAdmin, ResWorkLog, ActRecord, ActRecordHistorical, ActRead)
	allow(model.RoleAdmin, ResLabourer, ActManage, ActRead)
	allow(model.RoleAdmin, ResCorrection, ActRequest, ActReview, ActRead)
	allow(model.RoleAdmin, ResRate, ActManage, ActRead)
	allow(model.RoleAdmin, ResProject, ActManage, ActRead)
	allow(model.RoleAdmin, ResPeriod, ActCreate, ActAggregate, ActSubmit, ActApprove, ActReject, ActReopen, ActMarkPaid, ActRead)
	allow(model.RoleAdmin, ResReport, ActExport)
	allow(model.RoleAdmin, ResUser, ActManage, ActRead)

	// Super admins hold every admin capability.
	for key, ok := range policy {
		if ok && key.Role == model.RoleAdmin {
			policy[policyKey{model.RoleSuperAdmin, key.Resource, key.Action}] = true
		}
	}
}

// Can reports whether role may perform action on resource.
func Can(role, resource, action string) bool {
	return policy[policyKey{role, resource, action}]
}

// Require returns an authorization error unless role may perform action on
// resource. Services call this before any side effect.
func Require(role, resource, action string) error {
	if !Can(role, resource, action) {
		return fmt.Errorf("%w: role %q may not %s %s", apperr.ErrAuthorization, role, action, resource)
	}
	return nil
}

// CanEditHistorical reports whether role may write work logs for past dates.
func CanEditHistorical(role string) bool {
	return Can(role, ResWorkLog, ActRecordHistorical)
}
