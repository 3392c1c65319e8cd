package models

import (
	"time"

	"gorm.io/gorm"
)

// Service is a marketplace listing. Only the fields the workflow subsystem
// touches are modeled here; the full listing schema lives with the catalog
// subsystem.
type Service struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OwnerID     uint    `gorm:"not null;index" json:"owner_id"`
	Title       string  `gorm:"not null" json:"title"`
	Description *string `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Workflows []WorkflowAITemplate `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"-"`
}
