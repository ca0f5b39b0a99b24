package settings

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/stephencoan8/vestx/internal/middleware"
	"github.com/stephencoan8/vestx/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

// GetPreference GET /api/v1/settings/tax-preference
func (h *Handlers) GetPreference(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	pref, err := h.Service.GetPreference(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrPreferenceNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Tax preference fetched successfully", pref, nil)
}

// UpdatePreference PUT /api/v1/settings/tax-preference
func (h *Handlers) UpdatePreference(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req PreferenceInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	pref, err := h.Service.UpdatePreference(c.Context(), userID, req)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Success(c, "Tax preference updated successfully", pref, nil)
}
