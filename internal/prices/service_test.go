package prices

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/models"
)

func setupPricesTest(t *testing.T) (*Service, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.PricePoint{}))
	user := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return &Service{DB: db}, user.UserID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddPrice_UpsertsPerDay(t *testing.T) {
	svc, userID := setupPricesTest(t)
	ctx := context.Background()

	first, err := svc.AddPrice(ctx, userID, day(2025, 3, 10), decimal.NewFromFloat(12.50))
	require.NoError(t, err)

	second, err := svc.AddPrice(ctx, userID, day(2025, 3, 10), decimal.NewFromFloat(13.00))
	require.NoError(t, err)
	assert.Equal(t, first.PriceID, second.PriceID, "same day must correct, not duplicate")
	assert.True(t, second.PricePerUnit.Equal(decimal.NewFromFloat(13.00)))

	points, err := svc.ListPrices(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestAddPrice_RejectsNegative(t *testing.T) {
	svc, userID := setupPricesTest(t)
	_, err := svc.AddPrice(context.Background(), userID, day(2025, 3, 10), decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestAddPrice_ZeroIsAllowed(t *testing.T) {
	svc, userID := setupPricesTest(t)
	point, err := svc.AddPrice(context.Background(), userID, day(2025, 3, 10), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, point.PricePerUnit.IsZero())
}

func TestAsOf_LatestOnOrBefore(t *testing.T) {
	svc, userID := setupPricesTest(t)
	ctx := context.Background()

	_, err := svc.AddPrice(ctx, userID, day(2025, 1, 1), decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = svc.AddPrice(ctx, userID, day(2025, 6, 1), decimal.NewFromInt(20))
	require.NoError(t, err)

	q, err := svc.AsOf(ctx, userID, day(2025, 3, 15))
	require.NoError(t, err)
	require.True(t, q.Found)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, day(2025, 1, 1), q.Date.UTC())

	// Exact date match counts.
	q, err = svc.AsOf(ctx, userID, day(2025, 6, 1))
	require.NoError(t, err)
	require.True(t, q.Found)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(20)))
}

func TestAsOf_MissingIsNotZero(t *testing.T) {
	svc, userID := setupPricesTest(t)
	ctx := context.Background()

	q, err := svc.AsOf(ctx, userID, day(2025, 3, 15))
	require.NoError(t, err)
	assert.False(t, q.Found)

	// A price after the requested date does not count.
	_, err = svc.AddPrice(ctx, userID, day(2025, 6, 1), decimal.NewFromInt(20))
	require.NoError(t, err)
	q, err = svc.AsOf(ctx, userID, day(2025, 3, 15))
	require.NoError(t, err)
	assert.False(t, q.Found)
}

func TestDeletePrice(t *testing.T) {
	svc, userID := setupPricesTest(t)
	ctx := context.Background()

	point, err := svc.AddPrice(ctx, userID, day(2025, 1, 1), decimal.NewFromInt(10))
	require.NoError(t, err)

	other := models.User{Username: "mallory", Email: "mallory@example.com", PasswordHash: "x"}
	require.NoError(t, svc.DB.Create(&other).Error)
	assert.ErrorIs(t, svc.DeletePrice(ctx, other.UserID, point.PriceID), ErrPriceNotFound)

	require.NoError(t, svc.DeletePrice(ctx, userID, point.PriceID))
	assert.ErrorIs(t, svc.DeletePrice(ctx, userID, point.PriceID), ErrPriceNotFound)
}

func TestQuoteAsOf_InMemory(t *testing.T) {
	points := []models.PricePoint{
		{EffectiveDate: day(2025, 1, 1), PricePerUnit: decimal.NewFromInt(10)},
		{EffectiveDate: day(2025, 6, 1), PricePerUnit: decimal.NewFromInt(20)},
		{EffectiveDate: day(2025, 3, 1), PricePerUnit: decimal.NewFromInt(15)},
	}

	q := QuoteAsOf(points, day(2025, 4, 1))
	require.True(t, q.Found)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(15)))

	q = QuoteAsOf(points, day(2024, 12, 31))
	assert.False(t, q.Found)
}
