package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateCategory enum constants
const (
	RateOpenTrenching  = "open_trenching"
	RateCloseTrenching = "close_trenching"
	RateCustom         = "custom"
)

// RateUnit enum constants
const (
	UnitPerMeter = "per_meter"
	UnitPerDay   = "per_day"
	UnitFixed    = "fixed"
)

// PayRate stores a monetary rate with temporal validity. Several rates may
// exist per (project, employee type, category); resolution picks the latest
// one with effective_date <= the target date.
type PayRate struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_rate_lookup" json:"project_id"`
	EmployeeTypeID uuid.UUID       `gorm:"type:uuid;not null;index:idx_rate_lookup" json:"employee_type_id"`
	Category       string          `gorm:"type:varchar(20);not null;index:idx_rate_lookup" json:"category"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Unit           string          `gorm:"type:varchar(20);not null;default:'per_meter'" json:"unit"`
	EffectiveDate  time.Time       `gorm:"type:date;not null;index" json:"effective_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ValidRateCategory reports whether c is a known rate category token.
func ValidRateCategory(c string) bool {
	return c == RateOpenTrenching || c == RateCloseTrenching || c == RateCustom
}

// ValidRateUnit reports whether u is a known rate unit token.
func ValidRateUnit(u string) bool {
	return u == UnitPerMeter || u == UnitPerDay || u == UnitFixed
}
