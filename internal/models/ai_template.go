package models

import (
	"time"

	"gorm.io/gorm"
)

// TemplateCategory marks what kind of assistant a template provisions.
// Telegram templates additionally require a bot token and username on
// instance creation.
type TemplateCategory string

const (
	TemplateCategoryChat        TemplateCategory = "chat"
	TemplateCategoryTelegramBot TemplateCategory = "telegram_bot"
)

// AITemplate is a reusable n8n workflow blueprint. Template holds the raw
// workflow JSON (nodes + connections) with {{systemPrompt}} and, for telegram
// templates, {{telegramToken}} placeholders. FormConfig describes the fields
// the client must collect to instantiate it.
type AITemplate struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	Name       string           `gorm:"not null;uniqueIndex" json:"name"`
	Category   TemplateCategory `gorm:"not null;default:chat" json:"category"`
	Template   JSON             `gorm:"type:text;not null" json:"template,omitempty"`
	FormConfig JSON             `gorm:"type:text;not null" json:"form_config"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RequiresTelegramBot reports whether instances of this template need a bot
// token and username.
func (t *AITemplate) RequiresTelegramBot() bool {
	return t.Category == TemplateCategoryTelegramBot
}
