package services

import (
	"github.com/ArturMykhailiuk/sello-api/internal/n8n"
	"github.com/ArturMykhailiuk/sello-api/internal/workflow"
)

// WorkflowEngine is the surface of the external automation engine the
// services depend on. *n8n.Client implements it; tests substitute a double.
type WorkflowEngine interface {
	AdminKey() string
	FindUserByEmail(email string) (*n8n.EngineUser, error)
	FindOrCreateUser(email, firstName, lastName string) (*n8n.UserProvision, error)
	ListWorkflows(apiKey string) ([]n8n.WorkflowSummary, error)
	GetWorkflow(apiKey, workflowID string) (*workflow.Document, error)
	CreateWorkflow(apiKey string, submission workflow.Submission) (*n8n.CreatedWorkflow, error)
	UpdateWorkflow(apiKey, workflowID string, submission workflow.Submission) error
	SetActive(apiKey, workflowID string, active bool) error
	DeleteWorkflow(apiKey, workflowID string) error
	ExecuteWorkflow(apiKey, workflowID string, payload map[string]interface{}) (map[string]interface{}, error)
	ListExecutions(apiKey, workflowID string, opts n8n.ExecutionListOptions) ([]n8n.ExecutionSummary, error)
	GetExecution(apiKey, executionID string) (map[string]interface{}, error)
	CreateTelegramCredential(apiKey, token, name string) (string, error)
	DeleteCredential(apiKey, credentialID string) error
	GeneratePrompt(webhookURL, assistantType string, serviceID uint) (string, error)
}

// BotWebhookAPI manages telegram bot webhook bindings.
type BotWebhookAPI interface {
	RegisterWebhook(token, webhookURL string) error
	DeleteWebhook(token string) error
}

var (
	_ WorkflowEngine = (*n8n.Client)(nil)
	_ BotWebhookAPI  = (*n8n.BotAPI)(nil)
)
