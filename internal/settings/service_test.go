package settings

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/models"
)

func setupSettingsTest(t *testing.T) (*Service, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.TaxPreference{}))
	user := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return &Service{DB: db}, user.UserID
}

func TestGetPreference_AbsenceIsReportedNotDefaulted(t *testing.T) {
	svc, userID := setupSettingsTest(t)
	_, err := svc.GetPreference(context.Background(), userID)
	assert.ErrorIs(t, err, ErrPreferenceNotFound)
}

func TestUpdatePreference_Upserts(t *testing.T) {
	svc, userID := setupSettingsTest(t)
	ctx := context.Background()

	in := PreferenceInput{
		FederalRate:    decimal.NewFromFloat(0.24),
		StateRate:      decimal.NewFromFloat(0.093),
		PayrollRate:    decimal.NewFromFloat(0.0765),
		IncludePayroll: true,
		LongTermRate:   decimal.NewFromFloat(0.15),
	}
	_, err := svc.UpdatePreference(ctx, userID, in)
	require.NoError(t, err)

	in.IncludePayroll = false
	_, err = svc.UpdatePreference(ctx, userID, in)
	require.NoError(t, err)

	pref, err := svc.GetPreference(ctx, userID)
	require.NoError(t, err)
	assert.False(t, pref.IncludePayroll)
	assert.True(t, pref.StateRate.Equal(decimal.NewFromFloat(0.093)))

	var count int64
	require.NoError(t, svc.DB.Model(&models.TaxPreference{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdatePreference_RejectsOutOfRangeRates(t *testing.T) {
	svc, userID := setupSettingsTest(t)
	ctx := context.Background()

	in := PreferenceInput{FederalRate: decimal.NewFromFloat(1.5)}
	_, err := svc.UpdatePreference(ctx, userID, in)
	assert.Error(t, err)

	in = PreferenceInput{StateRate: decimal.NewFromFloat(-0.1)}
	_, err = svc.UpdatePreference(ctx, userID, in)
	assert.Error(t, err)
}
