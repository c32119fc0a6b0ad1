package model

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus enum constants
const (
	ProjectActive = "active"
	ProjectClosed = "closed"
)

// Project is a fibre-deployment site. Once closed, its fields may only be
// changed through an approved correction request.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Location    string    `gorm:"type:varchar(255)" json:"location"`
	ClientName  string    `gorm:"type:varchar(255)" json:"client_name"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
