package companies

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company owns emission records. Sector and head count feed the benchmark
// engine; the rest of the profile is managed elsewhere.
type Company struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Sector        string         `gorm:"size:128;index" json:"sector"`
	SectorCode    string         `gorm:"size:16" json:"sector_code"`
	EmployeeCount int            `json:"employee_count"`
	Country       string         `gorm:"size:64;default:France" json:"country"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns an ID when none was provided.
func (c *Company) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
