package api

import (
	"github.com/ArturMykhailiuk/sello-api/internal/api/middleware"
	"github.com/ArturMykhailiuk/sello-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

func (s *APIServer) handleListServiceWorkflows(c *fiber.Ctx) error {
	serviceID, err := c.ParamsInt("serviceId")
	if err != nil || serviceID < 1 {
		return &services.ValidationError{Message: "Invalid service id"}
	}

	workflows, err := s.workflows.ListByService(uint(serviceID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"workflows": workflows})
}

func (s *APIServer) handleCreateWorkflow(c *fiber.Ctx) error {
	serviceID, err := c.ParamsInt("serviceId")
	if err != nil || serviceID < 1 {
		return &services.ValidationError{Message: "Invalid service id"}
	}

	var input services.CreateWorkflowInput
	if err := c.BodyParser(&input); err != nil {
		return &services.ValidationError{Message: "Invalid request body"}
	}
	if err := validate.Struct(input); err != nil {
		return &services.ValidationError{Message: err.Error()}
	}

	user := middleware.AuthenticatedUser(c)
	workflow, err := s.workflows.Create(user.ID, uint(serviceID), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"workflow": workflow})
}

func (s *APIServer) handleUpdateWorkflow(c *fiber.Ctx) error {
	workflowID, err := c.ParamsInt("id")
	if err != nil || workflowID < 1 {
		return &services.ValidationError{Message: "Invalid workflow id"}
	}

	var input services.UpdateWorkflowInput
	if err := c.BodyParser(&input); err != nil {
		return &services.ValidationError{Message: "Invalid request body"}
	}
	if err := validate.Struct(input); err != nil {
		return &services.ValidationError{Message: err.Error()}
	}

	user := middleware.AuthenticatedUser(c)
	workflow, err := s.workflows.Update(user.ID, uint(workflowID), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"workflow": workflow})
}

func (s *APIServer) handleToggleWorkflow(c *fiber.Ctx) error {
	workflowID, err := c.ParamsInt("id")
	if err != nil || workflowID < 1 {
		return &services.ValidationError{Message: "Invalid workflow id"}
	}

	workflow, err := s.workflows.Toggle(uint(workflowID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"workflow": workflow})
}

func (s *APIServer) handleDeleteWorkflow(c *fiber.Ctx) error {
	workflowID, err := c.ParamsInt("id")
	if err != nil || workflowID < 1 {
		return &services.ValidationError{Message: "Invalid workflow id"}
	}

	diagnostics, err := s.workflows.Delete(uint(workflowID))
	if err != nil {
		return err
	}

	response := fiber.Map{"message": "Workflow deleted successfully"}
	if len(diagnostics) > 0 {
		response["warnings"] = diagnostics
	}
	return c.JSON(response)
}

type generatePromptRequest struct {
	AssistantType string `json:"assistantType" validate:"required"`
	ServiceID     uint   `json:"serviceId" validate:"required"`
}

func (s *APIServer) handleGeneratePrompt(c *fiber.Ctx) error {
	var req generatePromptRequest
	if err := c.BodyParser(&req); err != nil {
		return &services.ValidationError{Message: "Invalid request body"}
	}
	if err := validate.Struct(req); err != nil {
		return &services.ValidationError{Message: err.Error()}
	}

	prompt, err := s.workflows.GeneratePrompt(req.AssistantType, req.ServiceID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"systemPrompt": prompt})
}
