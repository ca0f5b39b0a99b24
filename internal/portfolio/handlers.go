package portfolio

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stephencoan8/vestx/internal/grants"
	"github.com/stephencoan8/vestx/internal/middleware"
	"github.com/stephencoan8/vestx/internal/pkg/response"
	"github.com/stephencoan8/vestx/internal/settings"
	"github.com/stephencoan8/vestx/internal/valuation"
)

type Handlers struct {
	Service *Service
}

// asOfDate reads an optional ?as_of=YYYY-MM-DD, defaulting to today (UTC).
func asOfDate(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("as_of")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.UTC)
}

// Summary GET /api/v1/portfolio/summary
func (h *Handlers) Summary(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	asOf, err := asOfDate(c)
	if err != nil {
		return response.Error(c, "as_of must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}
	summary, err := h.Service.Summary(c.Context(), userID, asOf)
	if err != nil {
		return portfolioError(c, err)
	}
	return response.Success(c, "Portfolio summary fetched successfully", summary, fiber.Map{
		"indeterminate_count": summary.IndeterminateCount,
	})
}

// VestDetail GET /api/v1/portfolio/vest-detail/:vest_id
func (h *Handlers) VestDetail(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	vestID, err := uuid.Parse(c.Params("vest_id"))
	if err != nil {
		return response.Error(c, "Invalid vest ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	asOf, err := asOfDate(c)
	if err != nil {
		return response.Error(c, "as_of must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}
	row, err := h.Service.VestDetail(c.Context(), userID, vestID, asOf)
	if err != nil {
		return portfolioError(c, err)
	}
	return response.Success(c, "Vest detail fetched successfully", row, nil)
}

func portfolioError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, grants.ErrVestEventNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, settings.ErrPreferenceNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, valuation.ErrPriceUnavailable):
		return response.Error(c, "No price available for the requested date", fiber.StatusUnprocessableEntity, nil)
	default:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
