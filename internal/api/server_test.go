package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/ArturMykhailiuk/sello-api/internal/models"
	"github.com/ArturMykhailiuk/sello-api/internal/n8n"
	"github.com/ArturMykhailiuk/sello-api/internal/services"
	"github.com/ArturMykhailiuk/sello-api/internal/workflow"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testTokenSecret = "server-test-secret"

// stubWorkflowService lets handler tests drive the HTTP layer without a
// workflow engine. Each field preloads the next response or error.
type stubWorkflowService struct {
	workflows   []models.WorkflowAITemplate
	record      *models.WorkflowAITemplate
	diagnostics []string
	summaries   []n8n.WorkflowSummary
	document    *workflow.Document
	prompt      string
	err         error

	lastUserID    uint
	lastServiceID uint
	lastInput     services.CreateWorkflowInput
}

func (s *stubWorkflowService) ListByService(serviceID uint) ([]models.WorkflowAITemplate, error) {
	s.lastServiceID = serviceID
	return s.workflows, s.err
}

func (s *stubWorkflowService) Create(userID, serviceID uint, input services.CreateWorkflowInput) (*models.WorkflowAITemplate, error) {
	s.lastUserID = userID
	s.lastServiceID = serviceID
	s.lastInput = input
	return s.record, s.err
}

func (s *stubWorkflowService) Update(userID, workflowID uint, input services.UpdateWorkflowInput) (*models.WorkflowAITemplate, error) {
	s.lastUserID = userID
	return s.record, s.err
}

func (s *stubWorkflowService) Toggle(workflowID uint) (*models.WorkflowAITemplate, error) {
	return s.record, s.err
}

func (s *stubWorkflowService) Delete(workflowID uint) ([]string, error) {
	return s.diagnostics, s.err
}

func (s *stubWorkflowService) GeneratePrompt(assistantType string, serviceID uint) (string, error) {
	return s.prompt, s.err
}

func (s *stubWorkflowService) ListUserWorkflows(user *models.User) ([]n8n.WorkflowSummary, error) {
	return s.summaries, s.err
}

func (s *stubWorkflowService) GetUserWorkflow(user *models.User, remoteID string) (*workflow.Document, error) {
	return s.document, s.err
}

func (s *stubWorkflowService) Execute(user *models.User, remoteID string, payload map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{"status": "running"}, s.err
}

func (s *stubWorkflowService) ListExecutions(user *models.User, remoteID string, opts n8n.ExecutionListOptions) ([]n8n.ExecutionSummary, error) {
	return nil, s.err
}

func (s *stubWorkflowService) GetExecution(user *models.User, executionID string) (map[string]interface{}, error) {
	return nil, s.err
}

type ServerTestSuite struct {
	suite.Suite
	db        *gorm.DB
	server    *APIServer
	workflows *stubWorkflowService
	user      *models.User
}

func (suite *ServerTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Service{},
		&models.AITemplate{},
		&models.WorkflowAITemplate{},
	))
	suite.db = db

	templates := services.NewTemplateService(db)
	suite.Require().NoError(templates.SeedDefaults())

	key := []byte("0123456789abcdef0123456789abcdef")
	users := services.NewUserService(db, nil, key)
	suite.workflows = &stubWorkflowService{}

	suite.user = &models.User{Name: "Olena Kovalenko", Email: "olena@example.com"}
	suite.Require().NoError(db.Create(suite.user).Error)

	suite.server = NewAPIServer(templates, suite.workflows, users, testTokenSecret)
}

func (suite *ServerTestSuite) token(userID uint) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": float64(userID)})
	signed, err := token.SignedString([]byte(testTokenSecret))
	suite.Require().NoError(err)
	return signed
}

func (suite *ServerTestSuite) request(method, path, token string, body interface{}) *http.Response {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, path, reader)
	suite.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := suite.server.App().Test(req, -1)
	suite.Require().NoError(err)
	return resp
}

func (suite *ServerTestSuite) decode(resp *http.Response) map[string]interface{} {
	defer resp.Body.Close()
	var payload map[string]interface{}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func (suite *ServerTestSuite) TestListTemplates() {
	resp := suite.request(http.MethodGet, "/api/ai-templates", "", nil)
	suite.Equal(http.StatusOK, resp.StatusCode)

	payload := suite.decode(resp)
	templates, ok := payload["templates"].([]interface{})
	suite.Require().True(ok)
	suite.Len(templates, 2)

	first := templates[0].(map[string]interface{})
	suite.NotNil(first["form_config"])
	suite.NotContains(first, "template")
}

func (suite *ServerTestSuite) TestGetTemplateNotFound() {
	resp := suite.request(http.MethodGet, "/api/ai-templates/999", "", nil)
	suite.Equal(http.StatusNotFound, resp.StatusCode)

	payload := suite.decode(resp)
	suite.Equal("AI template not found", payload["message"])
}

func (suite *ServerTestSuite) TestCreateWorkflowRequiresAuth() {
	resp := suite.request(http.MethodPost, "/api/services/1/ai-workflows", "", map[string]interface{}{})
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (suite *ServerTestSuite) TestCreateWorkflow() {
	remoteID := "wf-remote-1"
	suite.workflows.record = &models.WorkflowAITemplate{
		ID:            1,
		UserID:        suite.user.ID,
		Name:          "Tour Assistant",
		N8nWorkflowID: &remoteID,
		IsActive:      true,
	}

	resp := suite.request(http.MethodPost, "/api/services/7/ai-workflows", suite.token(suite.user.ID), map[string]interface{}{
		"aiTemplateId": 1,
		"name":         "Tour Assistant",
		"systemPrompt": "You answer questions about guided city tours.",
	})
	suite.Equal(http.StatusCreated, resp.StatusCode)

	payload := suite.decode(resp)
	created := payload["workflow"].(map[string]interface{})
	suite.Equal("Tour Assistant", created["name"])

	suite.Equal(suite.user.ID, suite.workflows.lastUserID)
	suite.Equal(uint(7), suite.workflows.lastServiceID)
	suite.Equal("Tour Assistant", suite.workflows.lastInput.Name)
}

func (suite *ServerTestSuite) TestCreateWorkflowValidatesBody() {
	resp := suite.request(http.MethodPost, "/api/services/7/ai-workflows", suite.token(suite.user.ID), map[string]interface{}{
		"name": "no template or prompt",
	})
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Zero(suite.workflows.lastServiceID)
}

func (suite *ServerTestSuite) TestErrorMapping() {
	token := suite.token(suite.user.ID)

	cases := []struct {
		err    error
		status int
	}{
		{&services.ValidationError{Message: "bad input"}, http.StatusBadRequest},
		{&services.NotFoundError{Resource: "AI workflow"}, http.StatusNotFound},
		{&services.ForbiddenError{Message: "not yours"}, http.StatusForbidden},
		{services.ErrAccountNotConnected, http.StatusForbidden},
		{&n8n.EngineCallError{StatusCode: 502, Message: "upstream broke"}, http.StatusInternalServerError},
		{fmt.Errorf("something unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		suite.workflows.err = tc.err
		resp := suite.request(http.MethodPatch, "/api/ai-workflows/1/toggle", token, nil)
		suite.Equal(tc.status, resp.StatusCode, "error %v", tc.err)
	}
	suite.workflows.err = nil
}

func (suite *ServerTestSuite) TestEngineErrorKeepsMessage() {
	suite.workflows.err = &n8n.EngineCallError{StatusCode: 502, Message: "upstream broke"}

	resp := suite.request(http.MethodPatch, "/api/ai-workflows/1/toggle", suite.token(suite.user.ID), nil)
	suite.Equal(http.StatusInternalServerError, resp.StatusCode)

	payload := suite.decode(resp)
	suite.Contains(payload["message"], "upstream broke")
}

func (suite *ServerTestSuite) TestDeleteSurfacesWarnings() {
	suite.workflows.diagnostics = []string{"delete engine workflow: engine down"}

	resp := suite.request(http.MethodDelete, "/api/ai-workflows/1", suite.token(suite.user.ID), nil)
	suite.Equal(http.StatusOK, resp.StatusCode)

	payload := suite.decode(resp)
	suite.Equal("Workflow deleted successfully", payload["message"])
	warnings := payload["warnings"].([]interface{})
	suite.Len(warnings, 1)
}

func (suite *ServerTestSuite) TestInvalidTokenRejected() {
	resp := suite.request(http.MethodGet, "/api/workflows", "not-a-jwt", nil)
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (suite *ServerTestSuite) TestTokenForDeletedUserRejected() {
	token := suite.token(9999)
	resp := suite.request(http.MethodGet, "/api/workflows", token, nil)
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (suite *ServerTestSuite) TestListUserWorkflows() {
	suite.workflows.summaries = []n8n.WorkflowSummary{{ID: "wf-remote-1", Name: "Tour Assistant", Active: true}}

	resp := suite.request(http.MethodGet, "/api/workflows", suite.token(suite.user.ID), nil)
	suite.Equal(http.StatusOK, resp.StatusCode)

	payload := suite.decode(resp)
	workflows := payload["workflows"].([]interface{})
	suite.Len(workflows, 1)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
