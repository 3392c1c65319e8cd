package n8n

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ArturMykhailiuk/sello-api/internal/workflow"
)

const apiKeyHeader = "X-N8N-API-KEY"

// Client is a typed client for the n8n REST API. The administrative key is
// fixed at construction; per-user operations take the caller's key
// explicitly.
type Client struct {
	baseURL  string
	adminKey string
	http     *http.Client
}

// NewClient creates a Client for the engine at baseURL.
func NewClient(baseURL, adminKey string) *Client {
	return &Client{
		baseURL:  baseURL,
		adminKey: adminKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// AdminKey returns the administrative credential used for provisioning.
func (c *Client) AdminKey() string {
	return c.adminKey
}

// FindUserByEmail looks up an engine user by email using the administrative
// key. A missing user returns (nil, nil).
func (c *Client) FindUserByEmail(email string) (*EngineUser, error) {
	var response struct {
		Data []EngineUser `json:"data"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/users", c.adminKey, nil, &response); err != nil {
		return nil, err
	}
	for i := range response.Data {
		if response.Data[i].Email == email {
			return &response.Data[i], nil
		}
	}
	return nil, nil
}

// FindOrCreateUser provisions an engine identity for the given email:
// an existing user is reused as-is, otherwise one is created with a random
// throwaway password. The engine cannot mint a personal API key for another
// user administratively, so existing users get the administrative key; for
// freshly created users a login attempt tries to obtain a personal key and
// falls back to the administrative one.
func (c *Client) FindOrCreateUser(email, firstName, lastName string) (*UserProvision, error) {
	existing, err := c.FindUserByEmail(email)
	if err != nil {
		log.Printf("Engine user lookup failed, will attempt to create: %v", err)
	}
	if existing != nil {
		return &UserProvision{UserID: existing.ID, APIKey: c.adminKey}, nil
	}

	password, err := randomPassword()
	if err != nil {
		return nil, err
	}

	// The users endpoint accepts a batch and answers with one entry per
	// requested user.
	body := []map[string]string{{
		"email":     email,
		"firstName": firstName,
		"lastName":  lastName,
		"password":  password,
		"role":      "global:member",
	}}
	var created []struct {
		User  *EngineUser `json:"user"`
		Error string      `json:"error"`
	}
	if err := c.doJSON(http.MethodPost, "/api/v1/users", c.adminKey, body, &created); err != nil {
		return nil, fmt.Errorf("failed to provision engine user: %w", err)
	}
	if len(created) == 0 || created[0].User == nil || created[0].User.ID == "" {
		return nil, fmt.Errorf("engine returned no user for %s", email)
	}
	userID := created[0].User.ID

	if apiKey := c.loginForAPIKey(email, password); apiKey != "" {
		return &UserProvision{UserID: userID, APIKey: apiKey}, nil
	}
	log.Printf("Could not obtain personal API key for engine user %s, falling back to admin key", userID)
	return &UserProvision{UserID: userID, APIKey: c.adminKey}, nil
}

func (c *Client) loginForAPIKey(email, password string) string {
	var response struct {
		APIKey string `json:"apiKey"`
		Data   struct {
			APIKey string `json:"apiKey"`
		} `json:"data"`
	}
	err := c.doJSON(http.MethodPost, "/api/v1/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &response)
	if err != nil {
		log.Printf("Engine login for new user failed: %v", err)
		return ""
	}
	if response.Data.APIKey != "" {
		return response.Data.APIKey
	}
	return response.APIKey
}

// ListWorkflows returns all workflows visible to the given key.
func (c *Client) ListWorkflows(apiKey string) ([]WorkflowSummary, error) {
	var response struct {
		Data []WorkflowSummary `json:"data"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/workflows", apiKey, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetWorkflow fetches the full workflow document.
func (c *Client) GetWorkflow(apiKey, workflowID string) (*workflow.Document, error) {
	var doc workflow.Document
	path := "/api/v1/workflows/" + url.PathEscape(workflowID)
	if err := c.doJSON(http.MethodGet, path, apiKey, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateWorkflow submits a new workflow and derives its webhook URL from the
// created document's trigger node. A document without a trigger yields an
// empty webhook URL, not an error.
func (c *Client) CreateWorkflow(apiKey string, submission workflow.Submission) (*CreatedWorkflow, error) {
	var doc workflow.Document
	if err := c.doJSON(http.MethodPost, "/api/v1/workflows", apiKey, submission, &doc); err != nil {
		return nil, err
	}
	return &CreatedWorkflow{ID: doc.ID, WebhookURL: c.webhookURL(&doc)}, nil
}

func (c *Client) webhookURL(doc *workflow.Document) string {
	node := doc.TriggerNode()
	if node == nil {
		return ""
	}
	switch node.Type {
	case workflow.NodeTypeChatTrigger:
		if node.WebhookID == "" {
			return ""
		}
		return fmt.Sprintf("%s/webhook/%s/chat", c.baseURL, node.WebhookID)
	case workflow.NodeTypeTelegramTrigger:
		if node.WebhookID == "" {
			return ""
		}
		return fmt.Sprintf("%s/webhook/%s/webhook", c.baseURL, node.WebhookID)
	case workflow.NodeTypeWebhook:
		path := node.WebhookID
		if p, ok := node.Parameters["path"].(string); ok && p != "" {
			path = p
		}
		if path == "" {
			return ""
		}
		return fmt.Sprintf("%s/webhook/%s", c.baseURL, path)
	default:
		return ""
	}
}

// UpdateWorkflow replaces the workflow's definition.
func (c *Client) UpdateWorkflow(apiKey, workflowID string, submission workflow.Submission) error {
	path := "/api/v1/workflows/" + url.PathEscape(workflowID)
	return c.doJSON(http.MethodPut, path, apiKey, submission, nil)
}

// SetActive activates or deactivates a workflow.
func (c *Client) SetActive(apiKey, workflowID string, active bool) error {
	action := "deactivate"
	if active {
		action = "activate"
	}
	path := fmt.Sprintf("/api/v1/workflows/%s/%s", url.PathEscape(workflowID), action)
	return c.doJSON(http.MethodPost, path, apiKey, struct{}{}, nil)
}

// DeleteWorkflow removes a workflow from the engine.
func (c *Client) DeleteWorkflow(apiKey, workflowID string) error {
	path := "/api/v1/workflows/" + url.PathEscape(workflowID)
	return c.doJSON(http.MethodDelete, path, apiKey, nil, nil)
}

// ExecuteWorkflow starts a workflow run with the given payload.
func (c *Client) ExecuteWorkflow(apiKey, workflowID string, payload map[string]interface{}) (map[string]interface{}, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	var result map[string]interface{}
	path := fmt.Sprintf("/api/v1/workflows/%s/execute", url.PathEscape(workflowID))
	if err := c.doJSON(http.MethodPost, path, apiKey, payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListExecutions returns execution history for a workflow.
func (c *Client) ListExecutions(apiKey, workflowID string, opts ExecutionListOptions) ([]ExecutionSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	query := url.Values{}
	query.Set("workflowId", workflowID)
	query.Set("limit", strconv.Itoa(limit))
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}

	var response struct {
		Data []ExecutionSummary `json:"data"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/executions?"+query.Encode(), apiKey, nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetExecution fetches one execution's detail.
func (c *Client) GetExecution(apiKey, executionID string) (map[string]interface{}, error) {
	var result map[string]interface{}
	path := "/api/v1/executions/" + url.PathEscape(executionID)
	if err := c.doJSON(http.MethodGet, path, apiKey, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateTelegramCredential stores a telegram bot token as an engine
// credential and returns its id.
func (c *Client) CreateTelegramCredential(apiKey, token, name string) (string, error) {
	body := map[string]interface{}{
		"name": name,
		"type": "telegramApi",
		"data": map[string]string{"accessToken": token},
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(http.MethodPost, "/api/v1/credentials", apiKey, body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// DeleteCredential removes a stored credential.
func (c *Client) DeleteCredential(apiKey, credentialID string) error {
	path := "/api/v1/credentials/" + url.PathEscape(credentialID)
	return c.doJSON(http.MethodDelete, path, apiKey, nil, nil)
}

// GeneratePrompt calls the prompt-generation workflow webhook and returns the
// generated system prompt.
func (c *Client) GeneratePrompt(webhookURL, assistantType string, serviceID uint) (string, error) {
	body := map[string]interface{}{
		"assistantType": assistantType,
		"serviceId":     serviceID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Post(webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to call prompt generation webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &EngineCallError{StatusCode: resp.StatusCode, Message: engineMessage(raw)}
	}

	var response struct {
		SystemPrompt string `json:"systemPrompt"`
		Output       string `json:"output"`
	}
	if err := json.Unmarshal(raw, &response); err == nil {
		if response.SystemPrompt != "" {
			return response.SystemPrompt, nil
		}
		if response.Output != "" {
			return response.Output, nil
		}
	}
	return string(raw), nil
}

// doJSON performs one engine call. A non-2xx status becomes an
// *EngineCallError carrying the engine's message when one is decodable.
func (c *Client) doJSON(method, path, apiKey string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read engine response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &EngineCallError{StatusCode: resp.StatusCode, Message: engineMessage(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode engine response: %w", err)
	}
	return nil
}

func engineMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(raw)
}

func randomPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
