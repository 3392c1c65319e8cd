package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a marketplace account. The n8n fields link the account to
// its identity in the external workflow engine; N8nApiKey is stored encrypted
// and must be decrypted through the user service before use.
type User struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"not null" json:"name"`
	Email     string  `gorm:"not null;uniqueIndex" json:"email"`
	Password  *string `json:"-"`
	AvatarURL *string `json:"avatar_url,omitempty"`

	N8nUserID  *string `gorm:"column:n8n_user_id" json:"n8n_user_id,omitempty"`
	N8nApiKey  *string `gorm:"column:n8n_api_key;type:text" json:"-"`
	N8nEnabled bool    `gorm:"not null;default:false" json:"n8n_enabled"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Workflows []WorkflowAITemplate `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
