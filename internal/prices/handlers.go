package prices

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stephencoan8/vestx/internal/middleware"
	"github.com/stephencoan8/vestx/internal/pkg/response"
)

type Handlers struct {
	Service *Service
}

type addPriceRequest struct {
	EffectiveDate string          `json:"effective_date"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
}

// AddPrice POST /api/v1/prices/add-price — upserts the price for the day.
func (h *Handlers) AddPrice(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req addPriceRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	date, err := time.ParseInLocation("2006-01-02", req.EffectiveDate, time.UTC)
	if err != nil {
		return response.Error(c, "effective_date must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}
	point, err := h.Service.AddPrice(c.Context(), userID, date, req.PricePerUnit)
	if err != nil {
		if errors.Is(err, ErrInvalidPrice) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Price saved successfully", point, nil)
}

// ListPrices GET /api/v1/prices/get-prices
func (h *Handlers) ListPrices(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	points, err := h.Service.ListPrices(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Prices fetched successfully", points, nil)
}

// DeletePrice DELETE /api/v1/prices/delete-price/:price_id
func (h *Handlers) DeletePrice(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	priceID, err := uuid.Parse(c.Params("price_id"))
	if err != nil {
		return response.Error(c, "Invalid price ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeletePrice(c.Context(), userID, priceID); err != nil {
		if errors.Is(err, ErrPriceNotFound) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Price deleted successfully", nil, nil)
}
