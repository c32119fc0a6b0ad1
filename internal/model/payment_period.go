package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentPeriod status enum constants
const (
	PeriodOpen      = "open"
	PeriodSubmitted = "submitted"
	PeriodApproved  = "approved"
	PeriodRejected  = "rejected"
	PeriodPaid      = "paid"
)

// PaymentPeriod is a date-bounded payroll batch for one project. Created in
// open state; figures freeze once it leaves open (aggregation is refused).
type PaymentPeriod struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`

	Status      string          `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`

	SubmittedBy  *uuid.UUID `gorm:"type:uuid" json:"submitted_by"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	ApprovedBy   *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt   *time.Time `json:"approved_at"`
	RejectReason string     `gorm:"type:text" json:"reject_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentPeriodEntry is the derived per-labourer total for a period. The
// aggregator replaces the full entry set on every run; rows are never
// patched incrementally.
type PaymentPeriodEntry struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PeriodID uuid.UUID `gorm:"type:uuid;not null;index" json:"period_id"`

	LabourerID uuid.UUID `gorm:"type:uuid;not null;index" json:"labourer_id"`
	Labourer   *Labourer `gorm:"foreignKey:LabourerID" json:"labourer,omitempty"`

	DaysWorked    int             `gorm:"not null;default:0" json:"days_worked"`
	OpenMeters    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"open_meters"`
	CloseMeters   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"close_meters"`
	TotalMeters   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_meters"`
	TotalEarnings decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_earnings"`

	CreatedAt time.Time `json:"created_at"`
}
