package model

import (
	"time"

	"github.com/google/uuid"
)

// EmployeeType classifies labourers for rate resolution (e.g. trencher,
// jointer). Soft-deleted via the active flag once referenced by pay rates.
type EmployeeType struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Labourer is a field worker. Banking and identity fields become
// correction-request-only once the labourer has payment history.
// Document fields hold opaque storage paths; the backend never reads them.
type Labourer struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         *uuid.UUID    `gorm:"type:uuid;index" json:"user_id"` // Optional linked account
	User           *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProjectID      *uuid.UUID    `gorm:"type:uuid;index" json:"project_id"` // Nullable, unassigned labourers exist
	Project        *Project      `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	EmployeeTypeID uuid.UUID     `gorm:"type:uuid;not null;index" json:"employee_type_id"`
	EmployeeType   *EmployeeType `gorm:"foreignKey:EmployeeTypeID" json:"employee_type,omitempty"`

	FullName   string `gorm:"type:varchar(255);not null" json:"full_name"`
	IDNumber   string `gorm:"type:varchar(50)" json:"id_number"`
	Phone      string `gorm:"type:varchar(20)" json:"phone"`
	BankName   string `gorm:"type:varchar(100)" json:"bank_name"`
	AccountNo  string `gorm:"type:varchar(50)" json:"account_no"`
	BranchCode string `gorm:"type:varchar(20)" json:"branch_code"`

	ProfilePhotoPath string `gorm:"type:varchar(500)" json:"profile_photo_path"`
	IDDocumentPath   string `gorm:"type:varchar(500)" json:"id_document_path"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
