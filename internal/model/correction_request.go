package model

import (
	"time"

	"github.com/google/uuid"
)

// CorrectionStatus enum constants
const (
	CorrectionPending  = "pending"
	CorrectionApproved = "approved"
	CorrectionRejected = "rejected"
)

// Correction target entity types. The request references its target
// generically by (entity type, entity id, field name) so one workflow can
// address heterogeneous entities.
const (
	EntityWorkLog       = "work_log"
	EntityLabourer      = "labourer"
	EntityProject       = "project"
	EntityPaymentPeriod = "payment_period"
)

// MinCorrectionReasonLen is enforced when the request is filed.
const MinCorrectionReasonLen = 10

// CorrectionRequest is the only sanctioned route for changing a historical
// field. Immutable once reviewed; approval applies the new value to the
// target in the same transaction that marks the request reviewed.
type CorrectionRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EntityType string    `gorm:"type:varchar(30);not null;index" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index" json:"entity_id"`
	FieldName  string    `gorm:"type:varchar(100);not null" json:"field_name"`

	OldValue string `gorm:"type:text" json:"old_value"` // Snapshot taken at request time
	NewValue string `gorm:"type:text" json:"new_value"`
	Reason   string `gorm:"type:text;not null" json:"reason"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	RequestedBy uuid.UUID  `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester   *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	RequestedAt time.Time  `gorm:"autoCreateTime" json:"requested_at"`
	ReviewedBy  *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer    *User      `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	ReviewNotes string     `gorm:"type:text" json:"review_notes"`
}

// ValidCorrectionEntityType reports whether t is a known correction target.
func ValidCorrectionEntityType(t string) bool {
	switch t {
	case EntityWorkLog, EntityLabourer, EntityProject, EntityPaymentPeriod:
		return true
	}
	return false
}
