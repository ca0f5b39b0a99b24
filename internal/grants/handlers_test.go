package grants

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/models"
)

func setupGrantsApp(t *testing.T) (*fiber.App, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Grant{}, &models.VestEvent{},
		&models.GrantEvent{}, &models.StockSale{},
	))
	user := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	h := &Handlers{Service: &Service{DB: db}}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id":  user.UserID.String(),
			"username": user.Username,
			"email":    user.Email,
		})
		return c.Next()
	})
	app.Post("/api/v1/grants/create-grant", h.CreateGrant)
	app.Get("/api/v1/grants/get-grants", h.ListGrants)
	app.Get("/api/v1/grants/get-grant/:grant_id", h.GetGrant)
	app.Delete("/api/v1/grants/delete-grant/:grant_id", h.DeleteGrant)
	app.Patch("/api/v1/grants/record-withholding/:vest_id", h.RecordWithholding)
	app.Post("/api/v1/grants/record-sale/:vest_id", h.RecordSale)
	app.Get("/api/v1/grants/get-sales", h.ListSales)
	return app, user.UserID
}

func postJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (map[string]interface{}, int) {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	return parsed, resp.StatusCode
}

func TestCreateGrantHandler(t *testing.T) {
	app, _ := setupGrantsApp(t)

	parsed, status := postJSON(t, app, "POST", "/api/v1/grants/create-grant", map[string]interface{}{
		"kind":           "new_hire",
		"instrument":     "iso_6y",
		"total_units":    "1000",
		"grant_date":     "2024-01-01",
		"price_at_grant": "2.5",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "success", parsed["status"])

	data := parsed["data"].(map[string]interface{})
	events := data["vest_events"].([]interface{})
	assert.Len(t, events, 43)
}

func TestCreateGrantHandler_ValidationFieldInDetails(t *testing.T) {
	app, _ := setupGrantsApp(t)

	parsed, status := postJSON(t, app, "POST", "/api/v1/grants/create-grant", map[string]interface{}{
		"kind":        "new_hire",
		"instrument":  "iso_6y",
		"total_units": "0",
		"grant_date":  "2024-01-01",
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	errObj := parsed["error"].(map[string]interface{})
	details := errObj["details"].(map[string]interface{})
	assert.Equal(t, "total_units", details["field"])
}

func TestCreateGrantHandler_BadDate(t *testing.T) {
	app, _ := setupGrantsApp(t)
	_, status := postJSON(t, app, "POST", "/api/v1/grants/create-grant", map[string]interface{}{
		"kind":        "new_hire",
		"instrument":  "iso_6y",
		"total_units": "1000",
		"grant_date":  "01/01/2024",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetGrantHandler_NotFoundAndBadID(t *testing.T) {
	app, _ := setupGrantsApp(t)

	req := httptest.NewRequest("GET", "/api/v1/grants/get-grant/not-a-uuid", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/grants/get-grant/"+uuid.New().String(), nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRecordWithholdingHandler_InvariantIs400(t *testing.T) {
	app, _ := setupGrantsApp(t)

	parsed, status := postJSON(t, app, "POST", "/api/v1/grants/create-grant", map[string]interface{}{
		"kind":           "new_hire",
		"instrument":     "iso_6y",
		"total_units":    "1000",
		"grant_date":     "2024-01-01",
		"price_at_grant": "2.5",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := parsed["data"].(map[string]interface{})
	events := data["vest_events"].([]interface{})
	vestID := events[0].(map[string]interface{})["vest_id"].(string)

	// Cliff carries 125 units; withholding more must be rejected.
	_, status = postJSON(t, app, "PATCH", "/api/v1/grants/record-withholding/"+vestID, map[string]interface{}{
		"units_withheld": "126",
		"cash_for_taxes": "0",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	_, status = postJSON(t, app, "PATCH", "/api/v1/grants/record-withholding/"+vestID, map[string]interface{}{
		"units_withheld": "25",
		"cash_for_taxes": "100",
	})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestListSalesHandler(t *testing.T) {
	app, _ := setupGrantsApp(t)

	parsed, status := postJSON(t, app, "POST", "/api/v1/grants/create-grant", map[string]interface{}{
		"kind":           "new_hire",
		"instrument":     "iso_6y",
		"total_units":    "1000",
		"grant_date":     "2024-01-01",
		"price_at_grant": "2.5",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data := parsed["data"].(map[string]interface{})
	events := data["vest_events"].([]interface{})
	vestID := events[0].(map[string]interface{})["vest_id"].(string)

	_, status = postJSON(t, app, "POST", "/api/v1/grants/record-sale/"+vestID, map[string]interface{}{
		"units":          "10",
		"price_per_unit": "7.25",
		"sale_date":      "2026-08-01",
	})
	require.Equal(t, fiber.StatusCreated, status)

	req := httptest.NewRequest("GET", "/api/v1/grants/get-sales", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var listed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &listed))
	sales := listed["data"].([]interface{})
	require.Len(t, sales, 1)
	sale := sales[0].(map[string]interface{})
	assert.Equal(t, vestID, sale["vest_id"])
	assert.Equal(t, "7.25", sale["price_per_unit"])
}

func TestGrantHandlers_Unauthenticated(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Grant{}, &models.VestEvent{}))

	h := &Handlers{Service: &Service{DB: db}}
	app := fiber.New()
	app.Get("/api/v1/grants/get-grants", h.ListGrants)

	req := httptest.NewRequest("GET", "/api/v1/grants/get-grants", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
