package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionRecordWorkLog          = "RECORD_WORK_LOG"
	ActionCreateLabourer         = "CREATE_LABOURER"
	ActionUpdateLabourer         = "UPDATE_LABOURER"
	ActionCreateEmployeeType     = "CREATE_EMPLOYEE_TYPE"
	ActionDeactivateEmployeeType = "DEACTIVATE_EMPLOYEE_TYPE"
	ActionCreatePayRate          = "CREATE_PAY_RATE"
	ActionCreateProject          = "CREATE_PROJECT"
	ActionUpdateProject          = "UPDATE_PROJECT"
	ActionCloseProject           = "CLOSE_PROJECT"

	// Payment period lifecycle actions
	ActionCreatePeriod    = "CREATE_PAYMENT_PERIOD"
	ActionAggregatePeriod = "AGGREGATE_PAYMENT_PERIOD"
	ActionSubmitPeriod    = "SUBMIT_PAYMENT_PERIOD"
	ActionApprovePeriod   = "APPROVE_PAYMENT_PERIOD"
	ActionRejectPeriod    = "REJECT_PAYMENT_PERIOD"
	ActionReopenPeriod    = "REOPEN_PAYMENT_PERIOD"
	ActionMarkPeriodPaid  = "MARK_PAYMENT_PERIOD_PAID"

	// Correction workflow actions
	ActionRequestCorrection = "REQUEST_CORRECTION"
	ActionApproveCorrection = "APPROVE_CORRECTION"
	ActionRejectCorrection  = "REJECT_CORRECTION"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated
	User       *User          `gorm:"foreignKey:UserID" json:"user"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
