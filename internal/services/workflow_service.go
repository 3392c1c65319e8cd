package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ArturMykhailiuk/sello-api/internal/models"
	"github.com/ArturMykhailiuk/sello-api/internal/n8n"
	"github.com/ArturMykhailiuk/sello-api/internal/utils"
	"github.com/ArturMykhailiuk/sello-api/internal/workflow"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateWorkflowInput are the user-supplied fields for provisioning a new
// automation from a template.
type CreateWorkflowInput struct {
	AITemplateID        uint   `json:"aiTemplateId" validate:"required"`
	Name                string `json:"name" validate:"required,min=3,max=100"`
	SystemPrompt        string `json:"systemPrompt" validate:"required,min=10"`
	TelegramToken       string `json:"telegramToken"`
	TelegramBotUsername string `json:"telegramBotUsername"`
}

// UpdateWorkflowInput carries a partial update. Nil fields stay unchanged.
type UpdateWorkflowInput struct {
	Name         *string `json:"name" validate:"omitempty,min=3,max=100"`
	SystemPrompt *string `json:"systemPrompt" validate:"omitempty,min=10"`
}

// WorkflowService provisions and operates per-service AI automations in the
// external engine, keeping the local workflow_ai_templates rows in sync with
// the remote lifecycle.
type WorkflowService interface {
	ListByService(serviceID uint) ([]models.WorkflowAITemplate, error)
	Create(userID, serviceID uint, input CreateWorkflowInput) (*models.WorkflowAITemplate, error)
	Update(userID, workflowID uint, input UpdateWorkflowInput) (*models.WorkflowAITemplate, error)
	Toggle(workflowID uint) (*models.WorkflowAITemplate, error)
	Delete(workflowID uint) ([]string, error)
	GeneratePrompt(assistantType string, serviceID uint) (string, error)

	ListUserWorkflows(user *models.User) ([]n8n.WorkflowSummary, error)
	GetUserWorkflow(user *models.User, remoteID string) (*workflow.Document, error)
	Execute(user *models.User, remoteID string, payload map[string]interface{}) (map[string]interface{}, error)
	ListExecutions(user *models.User, remoteID string, opts n8n.ExecutionListOptions) ([]n8n.ExecutionSummary, error)
	GetExecution(user *models.User, executionID string) (map[string]interface{}, error)
}

type workflowService struct {
	db               *gorm.DB
	engine           WorkflowEngine
	bot              BotWebhookAPI
	templates        TemplateService
	listings         ServiceStore
	users            UserService
	encryptionKey    []byte
	promptWebhookURL string
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	db *gorm.DB,
	engine WorkflowEngine,
	bot BotWebhookAPI,
	templates TemplateService,
	listings ServiceStore,
	users UserService,
	encryptionKey []byte,
	promptWebhookURL string,
) WorkflowService {
	return &workflowService{
		db:               db,
		engine:           engine,
		bot:              bot,
		templates:        templates,
		listings:         listings,
		users:            users,
		encryptionKey:    encryptionKey,
		promptWebhookURL: promptWebhookURL,
	}
}

// ListByService returns the automations attached to one listing.
func (s *workflowService) ListByService(serviceID uint) ([]models.WorkflowAITemplate, error) {
	exists, err := s.listings.Exists(serviceID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Resource: "Service"}
	}

	var workflows []models.WorkflowAITemplate
	err = s.db.Preload("AITemplate", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "category")
	}).Where("service_id = ?", serviceID).Order("created_at DESC").Find(&workflows).Error
	return workflows, err
}

// Create provisions a workflow in the engine from the template and records it
// locally. The local row is written only after the engine confirmed creation
// and activation; a telegram webhook registration failure does not abort, the
// user retries it via toggle.
func (s *workflowService) Create(userID, serviceID uint, input CreateWorkflowInput) (*models.WorkflowAITemplate, error) {
	exists, err := s.listings.Exists(serviceID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Resource: "Service"}
	}

	template, err := s.templates.GetTemplateByID(input.AITemplateID)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, &NotFoundError{Resource: "AI template"}
	}

	isTelegram := template.RequiresTelegramBot()
	if isTelegram && (input.TelegramToken == "" || input.TelegramBotUsername == "") {
		return nil, &ValidationError{Message: "telegramToken and telegramBotUsername are required for this template"}
	}

	doc, err := workflow.ParseDocument(template.Template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %d: %w", template.ID, err)
	}

	webhookID := uuid.New().String()
	webhookPath := fmt.Sprintf("service-%d-%s", serviceID, webhookID)
	doc = workflow.BindTrigger(doc, webhookID, webhookPath)

	adminKey := s.engine.AdminKey()

	var credentialID string
	if isTelegram {
		credentialName := fmt.Sprintf("%s_%d_%d", input.TelegramBotUsername, serviceID, time.Now().Unix())
		credentialID, err = s.engine.CreateTelegramCredential(adminKey, input.TelegramToken, credentialName)
		if err != nil {
			return nil, err
		}
		doc = workflow.BindTelegramCredential(doc, credentialID, credentialName)
	}

	doc = workflow.SubstitutePlaceholders(doc, workflow.Values{
		SystemPrompt:  input.SystemPrompt,
		TelegramToken: input.TelegramToken,
	})

	created, err := s.engine.CreateWorkflow(adminKey, workflow.CleanSubmission(doc, input.Name))
	if err != nil {
		s.discardCredential(adminKey, credentialID)
		return nil, err
	}

	if err := s.engine.SetActive(adminKey, created.ID, true); err != nil {
		s.discardCredential(adminKey, credentialID)
		return nil, err
	}

	if isTelegram && created.WebhookURL != "" {
		if err := s.bot.RegisterWebhook(input.TelegramToken, created.WebhookURL); err != nil {
			log.Printf("Telegram webhook registration failed for workflow %s, toggle retries it: %v", created.ID, err)
		}
	}

	record := models.WorkflowAITemplate{
		UserID:        userID,
		ServiceID:     &serviceID,
		AITemplateID:  &template.ID,
		Name:          input.Name,
		SystemPrompt:  input.SystemPrompt,
		N8nWorkflowID: &created.ID,
		IsActive:      true,
	}
	if created.WebhookURL != "" {
		record.WebhookURL = &created.WebhookURL
	}
	if isTelegram {
		encrypted, err := utils.Encrypt(s.encryptionKey, input.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt bot token: %w", err)
		}
		record.TelegramToken = &encrypted
		record.TelegramBotUsername = &input.TelegramBotUsername
		record.N8nCredentialsID = &credentialID
	}

	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}
	return s.getWithTemplate(record.ID)
}

// Update edits an automation's name and prompt. The remote workflow is only
// touched when one of them actually changed; any remote failure aborts before
// the local row is written.
func (s *workflowService) Update(userID, workflowID uint, input UpdateWorkflowInput) (*models.WorkflowAITemplate, error) {
	record, err := s.getByID(workflowID)
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, &ForbiddenError{Message: "You don't have permission to update this workflow"}
	}

	newName := record.Name
	if input.Name != nil {
		newName = *input.Name
	}
	newPrompt := record.SystemPrompt
	if input.SystemPrompt != nil {
		newPrompt = *input.SystemPrompt
	}

	nameChanged := newName != record.Name
	promptChanged := newPrompt != record.SystemPrompt

	if (nameChanged || promptChanged) && record.N8nWorkflowID != nil {
		adminKey := s.engine.AdminKey()

		doc, err := s.engine.GetWorkflow(adminKey, *record.N8nWorkflowID)
		if err != nil {
			return nil, err
		}
		if promptChanged {
			doc = workflow.ReplaceLiteral(doc, record.SystemPrompt, newPrompt)
		}
		if err := s.engine.UpdateWorkflow(adminKey, *record.N8nWorkflowID, workflow.CleanSubmission(doc, newName)); err != nil {
			return nil, err
		}

		// The engine does not hot-reload active definitions; bounce it.
		if record.IsActive {
			if err := s.engine.SetActive(adminKey, *record.N8nWorkflowID, false); err != nil {
				return nil, err
			}
			if err := s.engine.SetActive(adminKey, *record.N8nWorkflowID, true); err != nil {
				return nil, err
			}
		}
	}

	updates := map[string]interface{}{
		"name":          newName,
		"system_prompt": newPrompt,
	}
	if err := s.db.Model(&models.WorkflowAITemplate{}).Where("id = ?", workflowID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.getWithTemplate(workflowID)
}

// Toggle flips the automation between active and inactive. The local flag
// follows the engine's confirmed state; webhook management failures are
// logged but never block the flip.
func (s *workflowService) Toggle(workflowID uint) (*models.WorkflowAITemplate, error) {
	record, err := s.getByID(workflowID)
	if err != nil {
		return nil, err
	}

	newActive := !record.IsActive
	if record.N8nWorkflowID != nil {
		if err := s.engine.SetActive(s.engine.AdminKey(), *record.N8nWorkflowID, newActive); err != nil {
			return nil, err
		}
	}

	if token := s.botToken(record); token != "" {
		if newActive {
			if record.WebhookURL != nil {
				if err := s.bot.RegisterWebhook(token, *record.WebhookURL); err != nil {
					log.Printf("Telegram webhook registration failed for workflow %d: %v", workflowID, err)
				}
			}
		} else {
			if err := s.bot.DeleteWebhook(token); err != nil {
				log.Printf("Telegram webhook removal failed for workflow %d: %v", workflowID, err)
			}
		}
	}

	if err := s.db.Model(&models.WorkflowAITemplate{}).Where("id = ?", workflowID).
		Update("is_active", newActive).Error; err != nil {
		return nil, err
	}
	return s.getWithTemplate(workflowID)
}

// Delete tears the automation down. Every remote step is best-effort and its
// failure is collected rather than propagated: an orphaned remote resource is
// preferable to a local row the user cannot delete. The local row always
// goes.
func (s *workflowService) Delete(workflowID uint) ([]string, error) {
	record, err := s.getByID(workflowID)
	if err != nil {
		return nil, err
	}

	var diagnostics []string
	fail := func(step string, err error) {
		message := fmt.Sprintf("%s: %v", step, err)
		log.Printf("Workflow %d teardown: %s", workflowID, message)
		diagnostics = append(diagnostics, message)
	}

	if token := s.botToken(record); token != "" {
		if err := s.bot.DeleteWebhook(token); err != nil {
			fail("delete telegram webhook", err)
		}
	}

	adminKey := s.engine.AdminKey()
	if record.N8nWorkflowID != nil {
		if err := s.engine.DeleteWorkflow(adminKey, *record.N8nWorkflowID); err != nil {
			fail("delete engine workflow", err)
		}
	}
	if record.N8nCredentialsID != nil {
		if err := s.engine.DeleteCredential(adminKey, *record.N8nCredentialsID); err != nil {
			fail("delete engine credential", err)
		}
	}

	if err := s.db.Delete(&models.WorkflowAITemplate{}, workflowID).Error; err != nil {
		return diagnostics, err
	}
	return diagnostics, nil
}

// GeneratePrompt asks the configured generation workflow for a system prompt.
func (s *workflowService) GeneratePrompt(assistantType string, serviceID uint) (string, error) {
	exists, err := s.listings.Exists(serviceID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", &NotFoundError{Resource: "Service"}
	}
	if s.promptWebhookURL == "" {
		return "", fmt.Errorf("prompt generation workflow is not configured")
	}
	return s.engine.GeneratePrompt(s.promptWebhookURL, assistantType, serviceID)
}

// ListUserWorkflows proxies the engine's workflow listing, intersected with
// the caller's local records. The engine has no notion of marketplace
// ownership, so the local rows are the source of truth for visibility.
func (s *workflowService) ListUserWorkflows(user *models.User) ([]n8n.WorkflowSummary, error) {
	apiKey, err := s.requireConnection(user)
	if err != nil {
		return nil, err
	}

	all, err := s.engine.ListWorkflows(apiKey)
	if err != nil {
		return nil, err
	}

	owned, err := s.ownedRemoteIDs(user.ID)
	if err != nil {
		return nil, err
	}

	workflows := make([]n8n.WorkflowSummary, 0, len(all))
	for _, summary := range all {
		if owned[summary.ID] {
			workflows = append(workflows, summary)
		}
	}
	return workflows, nil
}

// GetUserWorkflow fetches one remote workflow document. A remote id without a
// matching local row for this user is a permission error, not a missing
// resource: existence is not disclosed to non-owners.
func (s *workflowService) GetUserWorkflow(user *models.User, remoteID string) (*workflow.Document, error) {
	apiKey, err := s.authorizeRemote(user, remoteID)
	if err != nil {
		return nil, err
	}
	return s.engine.GetWorkflow(apiKey, remoteID)
}

// Execute starts a run of one of the caller's workflows.
func (s *workflowService) Execute(user *models.User, remoteID string, payload map[string]interface{}) (map[string]interface{}, error) {
	apiKey, err := s.authorizeRemote(user, remoteID)
	if err != nil {
		return nil, err
	}
	return s.engine.ExecuteWorkflow(apiKey, remoteID, payload)
}

// ListExecutions returns execution history for one of the caller's workflows.
func (s *workflowService) ListExecutions(user *models.User, remoteID string, opts n8n.ExecutionListOptions) ([]n8n.ExecutionSummary, error) {
	apiKey, err := s.authorizeRemote(user, remoteID)
	if err != nil {
		return nil, err
	}
	return s.engine.ListExecutions(apiKey, remoteID, opts)
}

// GetExecution fetches one execution's detail.
func (s *workflowService) GetExecution(user *models.User, executionID string) (map[string]interface{}, error) {
	apiKey, err := s.requireConnection(user)
	if err != nil {
		return nil, err
	}
	return s.engine.GetExecution(apiKey, executionID)
}

func (s *workflowService) getByID(workflowID uint) (*models.WorkflowAITemplate, error) {
	var record models.WorkflowAITemplate
	err := s.db.First(&record, workflowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "AI workflow"}
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *workflowService) getWithTemplate(workflowID uint) (*models.WorkflowAITemplate, error) {
	var record models.WorkflowAITemplate
	err := s.db.Preload("AITemplate", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "category")
	}).First(&record, workflowID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *workflowService) ownedRemoteIDs(userID uint) (map[string]bool, error) {
	var ids []string
	err := s.db.Model(&models.WorkflowAITemplate{}).
		Where("user_id = ? AND n8n_workflow_id IS NOT NULL", userID).
		Pluck("n8n_workflow_id", &ids).Error
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

func (s *workflowService) requireConnection(user *models.User) (string, error) {
	if user == nil || !user.N8nEnabled {
		return "", ErrAccountNotConnected
	}
	apiKey := s.users.APIKey(user)
	if apiKey == "" {
		return "", ErrAccountNotConnected
	}
	return apiKey, nil
}

func (s *workflowService) authorizeRemote(user *models.User, remoteID string) (string, error) {
	apiKey, err := s.requireConnection(user)
	if err != nil {
		return "", err
	}

	var count int64
	err = s.db.Model(&models.WorkflowAITemplate{}).
		Where("n8n_workflow_id = ? AND user_id = ?", remoteID, user.ID).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", &ForbiddenError{Message: "You don't have access to this workflow"}
	}
	return apiKey, nil
}

// discardCredential removes a bot credential provisioned by an aborted
// create. Best-effort: the abort error is what the caller sees.
func (s *workflowService) discardCredential(adminKey, credentialID string) {
	if credentialID == "" {
		return
	}
	if err := s.engine.DeleteCredential(adminKey, credentialID); err != nil {
		log.Printf("Failed to remove orphaned bot credential %s: %v", credentialID, err)
	}
}

// botToken decrypts the stored bot token for side calls. A broken ciphertext
// degrades to "no token": webhook management is skipped rather than failed.
func (s *workflowService) botToken(record *models.WorkflowAITemplate) string {
	if record.TelegramToken == nil || *record.TelegramToken == "" {
		return ""
	}
	return utils.DecryptOrEmpty(s.encryptionKey, *record.TelegramToken)
}
