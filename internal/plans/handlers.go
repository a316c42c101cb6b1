package plans

import (
	"errors"

	"vaultyield-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *Service
}

// ListPlans GET /api/v1/plans
func (h *Handlers) ListPlans(c *fiber.Ctx) error {
	catalog, err := h.Service.List(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Plans retrieved", catalog, nil)
}

// CreatePlan POST /api/v1/plans (admin only, enforced by route middleware)
func (h *Handlers) CreatePlan(c *fiber.Ctx) error {
	var body CreateInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	plan, err := h.Service.Create(c.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPlan):
			return response.Error(c, "Invalid plan definition", 400, nil)
		case errors.Is(err, ErrDuplicateLevel):
			return response.Error(c, "A plan with this level already exists", 409, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.SuccessCreated(c, "Plan created", plan, nil)
}
