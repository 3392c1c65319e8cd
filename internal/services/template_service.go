package services

import (
	"errors"

	"github.com/ArturMykhailiuk/sello-api/internal/models"
	"github.com/ArturMykhailiuk/sello-api/internal/workflow"
	"gorm.io/gorm"
)

// TemplateService handles AI template blueprints
type TemplateService interface {
	CreateTemplate(template *models.AITemplate) error
	GetTemplateByID(id uint) (*models.AITemplate, error)
	ListTemplates() ([]models.AITemplate, error)
	DeleteTemplate(id uint) error
	SeedDefaults() error
}

type templateService struct {
	db *gorm.DB
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(db *gorm.DB) TemplateService {
	return &templateService{db: db}
}

// CreateTemplate creates a new template
func (s *templateService) CreateTemplate(template *models.AITemplate) error {
	return s.db.Create(template).Error
}

// GetTemplateByID returns a template by its ID, nil when absent
func (s *templateService) GetTemplateByID(id uint) (*models.AITemplate, error) {
	var template models.AITemplate
	err := s.db.First(&template, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// ListTemplates returns all templates without their workflow bodies. The
// full document is large and only needed on instantiation, where
// GetTemplateByID provides it; formConfig stays so clients can render the
// creation form.
func (s *templateService) ListTemplates() ([]models.AITemplate, error) {
	var templates []models.AITemplate
	err := s.db.
		Select("id", "name", "category", "form_config", "created_at", "updated_at").
		Order("id").Find(&templates).Error
	return templates, err
}

// DeleteTemplate deletes a template by its ID. Instances created from it keep
// running, their ai_template_id becomes null.
func (s *templateService) DeleteTemplate(id uint) error {
	return s.db.Delete(&models.AITemplate{}, id).Error
}

// SeedDefaults installs the built-in chat and telegram templates when the
// table is empty.
func (s *templateService) SeedDefaults() error {
	var count int64
	if err := s.db.Model(&models.AITemplate{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, template := range defaultTemplates() {
		if err := s.db.Create(&template).Error; err != nil {
			return err
		}
	}
	return nil
}

func defaultTemplates() []models.AITemplate {
	nameField := map[string]interface{}{
		"id":          "name",
		"type":        "text",
		"label":       "Assistant name",
		"placeholder": "e.g. Customer Support Assistant",
		"required":    true,
		"validation": map[string]interface{}{
			"minLength": 3, "maxLength": 100,
		},
	}
	promptField := map[string]interface{}{
		"id":          "systemPrompt",
		"type":        "textarea",
		"label":       "System prompt",
		"placeholder": "Define the role and behavior of the assistant",
		"required":    true,
		"rows":        6,
		"validation": map[string]interface{}{
			"minLength": 10, "maxLength": 2000,
		},
	}
	tokenField := map[string]interface{}{
		"id":       "telegramToken",
		"type":     "password",
		"label":    "Telegram bot token",
		"required": true,
	}
	usernameField := map[string]interface{}{
		"id":       "telegramBotUsername",
		"type":     "text",
		"label":    "Telegram bot username",
		"required": true,
	}

	return []models.AITemplate{
		{
			Name:     "AI Chat Assistant",
			Category: models.TemplateCategoryChat,
			Template: models.JSON{
				"nodes": []interface{}{
					map[string]interface{}{
						"name": "Chat Trigger",
						"type": workflow.NodeTypeChatTrigger,
						"parameters": map[string]interface{}{
							"public": true,
						},
					},
					map[string]interface{}{
						"name": "AI Agent",
						"type": "@n8n/n8n-nodes-langchain.agent",
						"parameters": map[string]interface{}{
							"options": map[string]interface{}{
								"systemMessage": workflow.PlaceholderSystemPrompt,
							},
						},
					},
				},
				"connections": map[string]interface{}{
					"Chat Trigger": map[string]interface{}{
						"main": []interface{}{
							[]interface{}{
								map[string]interface{}{"node": "AI Agent", "type": "main", "index": 0},
							},
						},
					},
				},
				"settings": map[string]interface{}{"executionOrder": "v1"},
			},
			FormConfig: models.JSON{
				"fields": []interface{}{nameField, promptField},
			},
		},
		{
			Name:     "Telegram AI Bot",
			Category: models.TemplateCategoryTelegramBot,
			Template: models.JSON{
				"nodes": []interface{}{
					map[string]interface{}{
						"name": "Telegram Trigger",
						"type": workflow.NodeTypeTelegramTrigger,
						"parameters": map[string]interface{}{
							"updates": []interface{}{"message"},
						},
					},
					map[string]interface{}{
						"name": "AI Agent",
						"type": "@n8n/n8n-nodes-langchain.agent",
						"parameters": map[string]interface{}{
							"options": map[string]interface{}{
								"systemMessage": workflow.PlaceholderSystemPrompt,
							},
						},
					},
					map[string]interface{}{
						"name": "Send Reply",
						"type": workflow.NodeTypeTelegram,
						"parameters": map[string]interface{}{
							"chatId": "={{ $json.message.chat.id }}",
							"text":   "={{ $json.output }}",
						},
					},
				},
				"connections": map[string]interface{}{
					"Telegram Trigger": map[string]interface{}{
						"main": []interface{}{
							[]interface{}{
								map[string]interface{}{"node": "AI Agent", "type": "main", "index": 0},
							},
						},
					},
					"AI Agent": map[string]interface{}{
						"main": []interface{}{
							[]interface{}{
								map[string]interface{}{"node": "Send Reply", "type": "main", "index": 0},
							},
						},
					},
				},
				"settings": map[string]interface{}{"executionOrder": "v1"},
			},
			FormConfig: models.JSON{
				"fields": []interface{}{nameField, promptField, tokenField, usernameField},
			},
		},
	}
}
