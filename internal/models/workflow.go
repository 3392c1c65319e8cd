package models

import (
	"time"

	"gorm.io/gorm"
)

// WorkflowAITemplate is one provisioned automation: a local record mirroring
// a workflow that lives in the external n8n engine. IsActive always reflects
// the activation state last confirmed by the engine. TelegramToken is stored
// encrypted; N8nCredentialsID is set only when a bot credential was
// provisioned remotely.
type WorkflowAITemplate struct {
	ID           uint  `gorm:"primaryKey" json:"id"`
	UserID       uint  `gorm:"not null;index" json:"user_id"`
	ServiceID    *uint `gorm:"index" json:"service_id,omitempty"`
	AITemplateID *uint `gorm:"column:ai_template_id;index" json:"ai_template_id,omitempty"`

	Name         string `gorm:"not null" json:"name"`
	SystemPrompt string `gorm:"type:text;not null" json:"system_prompt"`

	N8nWorkflowID *string `gorm:"column:n8n_workflow_id;index" json:"n8n_workflow_id,omitempty"`
	WebhookURL    *string `json:"webhook_url,omitempty"`
	IsActive      bool    `gorm:"not null;default:true" json:"is_active"`

	TelegramToken       *string `gorm:"type:text" json:"-"`
	TelegramBotUsername *string `json:"telegram_bot_username,omitempty"`
	N8nCredentialsID    *string `gorm:"column:n8n_credentials_id" json:"n8n_credentials_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	AITemplate *AITemplate `gorm:"foreignKey:AITemplateID;constraint:OnDelete:SET NULL" json:"ai_template,omitempty"`
}

// TableName keeps the table name used by the original schema.
func (WorkflowAITemplate) TableName() string {
	return "workflow_ai_templates"
}
