package api

import (
	"errors"
	"fmt"

	"github.com/ArturMykhailiuk/sello-api/internal/api/middleware"
	"github.com/ArturMykhailiuk/sello-api/internal/n8n"
	"github.com/ArturMykhailiuk/sello-api/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

var validate = validator.New()

type APIServer struct {
	app         *fiber.App
	templates   services.TemplateService
	workflows   services.WorkflowService
	users       services.UserService
	tokenSecret string
}

func NewAPIServer(
	templates services.TemplateService,
	workflows services.WorkflowService,
	users services.UserService,
	tokenSecret string,
) *APIServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Add middleware
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	server := &APIServer{
		app:         app,
		templates:   templates,
		workflows:   workflows,
		users:       users,
		tokenSecret: tokenSecret,
	}
	server.setupRoutes()
	return server
}

func (s *APIServer) setupRoutes() {
	auth := middleware.RequireAuth(middleware.AuthConfig{
		TokenSecret: s.tokenSecret,
		Users:       s.users,
	})

	api := s.app.Group("/api")

	// Template catalog
	api.Get("/ai-templates", s.handleListTemplates)
	api.Get("/ai-templates/:id", s.handleGetTemplate)

	// Per-listing automations
	api.Get("/services/:serviceId/ai-workflows", s.handleListServiceWorkflows)
	api.Post("/services/:serviceId/ai-workflows", auth, s.handleCreateWorkflow)

	// Instance lifecycle
	api.Patch("/ai-workflows/:id", auth, s.handleUpdateWorkflow)
	api.Patch("/ai-workflows/:id/toggle", auth, s.handleToggleWorkflow)
	api.Delete("/ai-workflows/:id", auth, s.handleDeleteWorkflow)
	api.Post("/ai-workflows/generate-prompt", auth, s.handleGeneratePrompt)

	// Engine account link and read-side proxy
	api.Post("/workflows/connect", auth, s.handleConnect)
	api.Get("/workflows/status", auth, s.handleConnectionStatus)
	api.Get("/workflows", auth, s.handleListUserWorkflows)
	api.Get("/workflows/:id", auth, s.handleGetUserWorkflow)
	api.Post("/workflows/:id/execute", auth, s.handleExecuteWorkflow)
	api.Get("/workflows/:id/executions", auth, s.handleListExecutions)
	api.Get("/executions/:executionId", auth, s.handleGetExecution)

	// Health check
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})
}

// errorHandler maps service errors onto HTTP responses. Engine failures keep
// the engine's message so callers can tell a platform problem from their own.
func errorHandler(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		forbiddenErr  *services.ForbiddenError
		engineErr     *n8n.EngineCallError
		fiberErr      *fiber.Error
	)

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": validationErr.Message})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": notFoundErr.Error()})
	case errors.As(err, &forbiddenErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": forbiddenErr.Message})
	case errors.Is(err, services.ErrAccountNotConnected):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "n8n account is not connected"})
	case errors.As(err, &engineErr):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": fmt.Sprintf("Workflow engine error: %s", engineErr.Message),
		})
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
}

func (s *APIServer) Start(port string) error {
	return s.app.Listen(":" + port)
}

func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying Fiber app for tests.
func (s *APIServer) App() *fiber.App {
	return s.app
}
