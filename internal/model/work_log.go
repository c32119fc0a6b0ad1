package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AdditionalItem is a free-form payable line on a work log (e.g. rock
// breaking allowance). Serialized into the additional_items jsonb column.
type AdditionalItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// WorkLogEntry is one labourer/day record of trenching output. One row per
// (labourer, work date); a later write for the same pair overwrites meters
// and recomputes earnings (last-write-wins).
//
// TotalEarnings is computed from the rates effective on WorkDate and stored
// at write time. Recomputing from the stored meters and the same rates must
// reproduce it exactly; later rate changes never alter recorded totals.
type WorkLogEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_worklog_project_date" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	LabourerID uuid.UUID `gorm:"type:uuid;not null;index:idx_worklog_labourer_date,unique" json:"labourer_id"`
	Labourer   *Labourer `gorm:"foreignKey:LabourerID" json:"labourer,omitempty"`

	WorkDate time.Time `gorm:"type:date;not null;index:idx_worklog_project_date;index:idx_worklog_labourer_date,unique" json:"work_date"`

	OpenMeters      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"open_meters"`
	CloseMeters     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"close_meters"`
	AdditionalItems datatypes.JSON  `gorm:"type:jsonb" json:"additional_items"`
	TotalEarnings   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_earnings"`

	RecordedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"recorded_by"`
	Recorder   *User     `gorm:"foreignKey:RecordedBy" json:"recorder,omitempty"`
	RecordedAt time.Time `gorm:"autoCreateTime" json:"recorded_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Day truncates t to its calendar date at UTC midnight. Work dates and
// period bounds are compared at day precision only.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
