package grants

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stephencoan8/vestx/internal/middleware"
	"github.com/stephencoan8/vestx/internal/pkg/response"
	"github.com/stephencoan8/vestx/internal/vesting"
)

// Handlers bundles grant and vest-event endpoints.
type Handlers struct {
	Service *Service
}

const dateLayout = "2006-01-02"

type grantRequest struct {
	Kind         string          `json:"kind"`
	Instrument   string          `json:"instrument"`
	TotalUnits   decimal.Decimal `json:"total_units"`
	GrantDate    string          `json:"grant_date"`
	PriceAtGrant decimal.Decimal `json:"price_at_grant"`
	ESPPDiscount decimal.Decimal `json:"espp_discount"`
	VestMonths   int             `json:"vest_months"`
	CliffMonths  int             `json:"cliff_months"`
	Notes        string          `json:"notes"`
}

func (r grantRequest) toInput() (GrantInput, error) {
	grantDate, err := time.ParseInLocation(dateLayout, r.GrantDate, time.UTC)
	if err != nil {
		return GrantInput{}, err
	}
	return GrantInput{
		Kind:         r.Kind,
		Instrument:   r.Instrument,
		TotalUnits:   r.TotalUnits,
		GrantDate:    grantDate,
		PriceAtGrant: r.PriceAtGrant,
		ESPPDiscount: r.ESPPDiscount,
		VestMonths:   r.VestMonths,
		CliffMonths:  r.CliffMonths,
		Notes:        r.Notes,
	}, nil
}

// CreateGrant POST /api/v1/grants/create-grant
func (h *Handlers) CreateGrant(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	in, err := req.toInput()
	if err != nil {
		return response.Error(c, "grant_date must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}

	grant, err := h.Service.CreateGrant(c.Context(), userID, in)
	if err != nil {
		return grantError(c, err)
	}
	return response.SuccessCreated(c, "Grant created successfully", grant, nil)
}

// ListGrants GET /api/v1/grants/get-grants
func (h *Handlers) ListGrants(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	out, err := h.Service.ListGrants(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Grants fetched successfully", out, nil)
}

// GetGrant GET /api/v1/grants/get-grant/:grant_id — includes the schedule.
func (h *Handlers) GetGrant(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	grantID, err := uuid.Parse(c.Params("grant_id"))
	if err != nil {
		return response.Error(c, "Invalid grant ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	grant, err := h.Service.GetGrant(c.Context(), userID, grantID)
	if err != nil {
		return grantError(c, err)
	}
	return response.Success(c, "Grant fetched successfully", grant, nil)
}

// EditGrant PUT /api/v1/grants/edit-grant/:grant_id — regenerates the whole
// schedule atomically.
func (h *Handlers) EditGrant(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	grantID, err := uuid.Parse(c.Params("grant_id"))
	if err != nil {
		return response.Error(c, "Invalid grant ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	in, err := req.toInput()
	if err != nil {
		return response.Error(c, "grant_date must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}

	grant, err := h.Service.EditGrant(c.Context(), userID, grantID, in)
	if err != nil {
		return grantError(c, err)
	}
	return response.Success(c, "Grant updated successfully", grant, nil)
}

// DeleteGrant DELETE /api/v1/grants/delete-grant/:grant_id
func (h *Handlers) DeleteGrant(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	grantID, err := uuid.Parse(c.Params("grant_id"))
	if err != nil {
		return response.Error(c, "Invalid grant ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeleteGrant(c.Context(), userID, grantID); err != nil {
		return grantError(c, err)
	}
	return response.Success(c, "Grant deleted successfully", nil, nil)
}

type withholdingRequest struct {
	UnitsWithheld decimal.Decimal `json:"units_withheld"`
	CashForTaxes  decimal.Decimal `json:"cash_for_taxes"`
}

// RecordWithholding PATCH /api/v1/grants/record-withholding/:vest_id
func (h *Handlers) RecordWithholding(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	vestID, err := uuid.Parse(c.Params("vest_id"))
	if err != nil {
		return response.Error(c, "Invalid vest ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req withholdingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	ev, err := h.Service.RecordWithholding(c.Context(), userID, vestID, req.UnitsWithheld, req.CashForTaxes)
	if err != nil {
		return grantError(c, err)
	}
	return response.Success(c, "Withholding recorded successfully", ev, nil)
}

type saleRequest struct {
	Units        decimal.Decimal `json:"units"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	SaleDate     string          `json:"sale_date"`
}

// RecordSale POST /api/v1/grants/record-sale/:vest_id
func (h *Handlers) RecordSale(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	vestID, err := uuid.Parse(c.Params("vest_id"))
	if err != nil {
		return response.Error(c, "Invalid vest ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req saleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	saleDate, err := time.ParseInLocation(dateLayout, req.SaleDate, time.UTC)
	if err != nil {
		return response.Error(c, "sale_date must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
	}
	sale, err := h.Service.RecordSale(c.Context(), userID, vestID, req.Units, req.PricePerUnit, saleDate)
	if err != nil {
		return grantError(c, err)
	}
	return response.SuccessCreated(c, "Sale recorded successfully", sale, nil)
}

// ListSales GET /api/v1/grants/get-sales
func (h *Handlers) ListSales(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	sales, err := h.Service.ListSales(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Sales fetched successfully", sales, nil)
}

type exerciseRequest struct {
	Units decimal.Decimal `json:"units"`
}

// RecordExercise POST /api/v1/grants/record-exercise/:vest_id
func (h *Handlers) RecordExercise(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	vestID, err := uuid.Parse(c.Params("vest_id"))
	if err != nil {
		return response.Error(c, "Invalid vest ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req exerciseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	ev, err := h.Service.RecordExercise(c.Context(), userID, vestID, req.Units)
	if err != nil {
		return grantError(c, err)
	}
	return response.Success(c, "Exercise recorded successfully", ev, nil)
}

type noteRequest struct {
	Note string `json:"note"`
}

// UpdateNote PATCH /api/v1/grants/update-note/:vest_id
func (h *Handlers) UpdateNote(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	vestID, err := uuid.Parse(c.Params("vest_id"))
	if err != nil {
		return response.Error(c, "Invalid vest ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req noteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	ev, err := h.Service.UpdateNote(c.Context(), userID, vestID, req.Note)
	if err != nil {
		return grantError(c, err)
	}
	return response.Success(c, "Note updated successfully", ev, nil)
}

// grantError maps service errors to HTTP codes.
func grantError(c *fiber.Ctx, err error) error {
	var verr *vesting.ValidationError
	if errors.As(err, &verr) {
		return response.Error(c, verr.Error(), fiber.StatusBadRequest, fiber.Map{"field": verr.Field})
	}
	switch {
	case errors.Is(err, ErrGrantNotFound), errors.Is(err, ErrVestEventNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, ErrWithheldExceeds), errors.Is(err, ErrUnitsExceedHeld),
		errors.Is(err, ErrInvalidUnits), errors.Is(err, ErrInvalidSalePrice),
		errors.Is(err, ErrNotISOGrant):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	default:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
