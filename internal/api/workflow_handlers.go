package api

import (
	"github.com/ArturMykhailiuk/sello-api/internal/api/middleware"
	"github.com/ArturMykhailiuk/sello-api/internal/n8n"
	"github.com/ArturMykhailiuk/sello-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

func (s *APIServer) handleConnect(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	status, err := s.users.Connect(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (s *APIServer) handleConnectionStatus(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	status, err := s.users.CheckStatus(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (s *APIServer) handleListUserWorkflows(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	workflows, err := s.workflows.ListUserWorkflows(user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"workflows": workflows})
}

func (s *APIServer) handleGetUserWorkflow(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	workflow, err := s.workflows.GetUserWorkflow(user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"workflow": workflow})
}

func (s *APIServer) handleExecuteWorkflow(c *fiber.Ctx) error {
	payload := map[string]interface{}{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return &services.ValidationError{Message: "Invalid request body"}
		}
	}

	user := middleware.AuthenticatedUser(c)
	result, err := s.workflows.Execute(user, c.Params("id"), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"execution": result})
}

func (s *APIServer) handleListExecutions(c *fiber.Ctx) error {
	opts := n8n.ExecutionListOptions{
		Limit:  c.QueryInt("limit"),
		Status: c.Query("status"),
	}

	user := middleware.AuthenticatedUser(c)
	executions, err := s.workflows.ListExecutions(user, c.Params("id"), opts)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"executions": executions})
}

func (s *APIServer) handleGetExecution(c *fiber.Ctx) error {
	user := middleware.AuthenticatedUser(c)
	execution, err := s.workflows.GetExecution(user, c.Params("executionId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"execution": execution})
}
