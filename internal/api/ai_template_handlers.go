package api

import (
	"github.com/ArturMykhailiuk/sello-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

// handleListTemplates returns the template catalog including each template's
// formConfig so clients can render the creation form.
func (s *APIServer) handleListTemplates(c *fiber.Ctx) error {
	templates, err := s.templates.ListTemplates()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"templates": templates})
}

func (s *APIServer) handleGetTemplate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return &services.ValidationError{Message: "Invalid template id"}
	}

	template, err := s.templates.GetTemplateByID(uint(id))
	if err != nil {
		return err
	}
	if template == nil {
		return &services.NotFoundError{Resource: "AI template"}
	}
	return c.JSON(fiber.Map{"template": template})
}
