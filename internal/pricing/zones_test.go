package pricing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phlebcare-backend/internal/models"
)

func newPricingDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "pricing.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.LabTest{}, &models.ClinicService{}, &models.ShippingType{},
		&models.PostcodeZone{}, &models.ZoneRate{},
	))
	return db
}

func TestResolveZoneLondonPrefix(t *testing.T) {
	catalog := NewCatalog(newPricingDB(t))

	for _, postcode := range []string{"SW1A 1AA", "ec1a 4hd", "N1 9GU", "TW9 1DN"} {
		result, err := catalog.ResolveZone(context.Background(), postcode, "")
		require.NoError(t, err)
		require.Equal(t, ZoneLondon, result.Zone, postcode)
		require.Empty(t, result.Message)
	}
}

func TestResolveZoneStandardPostcode(t *testing.T) {
	catalog := NewCatalog(newPricingDB(t))

	for _, postcode := range []string{"M1 1AE", "LS1 4DY", "B33 8TH"} {
		result, err := catalog.ResolveZone(context.Background(), postcode, "")
		require.NoError(t, err)
		require.Equal(t, ZoneStandard, result.Zone, postcode)
	}
}

func TestResolveZoneConfirmedMappingWins(t *testing.T) {
	db := newPricingDB(t)
	catalog := NewCatalog(db)

	// SW would heuristically be london; the confirmed row says otherwise.
	require.NoError(t, db.Create(&models.PostcodeZone{
		Postcode: "SW999XX", Town: "Faraway", Zone: ZoneOutOfArea,
	}).Error)

	result, err := catalog.ResolveZone(context.Background(), "SW99 9XX", "")
	require.NoError(t, err)
	require.Equal(t, ZoneOutOfArea, result.Zone)
	require.Equal(t, OutOfAreaMessage, result.Message)
	require.Empty(t, result.Rates)
}

func TestResolveZoneByTown(t *testing.T) {
	catalog := NewCatalog(newPricingDB(t))

	result, err := catalog.ResolveZone(context.Background(), "", "Greater London")
	require.NoError(t, err)
	require.Equal(t, ZoneLondon, result.Zone)

	result, err = catalog.ResolveZone(context.Background(), "", "Manchester")
	require.NoError(t, err)
	require.Equal(t, ZoneStandard, result.Zone)
}

func TestResolveZoneNothingToGoOn(t *testing.T) {
	catalog := NewCatalog(newPricingDB(t))

	result, err := catalog.ResolveZone(context.Background(), "", "")
	require.NoError(t, err)
	require.Equal(t, ZoneOutOfArea, result.Zone)
	require.Equal(t, OutOfAreaMessage, result.Message)
}

func TestResolveZoneServesLatestRateVersion(t *testing.T) {
	db := newPricingDB(t)
	catalog := NewCatalog(db)

	require.NoError(t, db.Create(&[]models.ZoneRate{
		{Zone: ZoneLondon, ShiftType: "morning", Price: 40, Version: 1},
		{Zone: ZoneLondon, ShiftType: "morning", Price: 45, Version: 2},
		{Zone: ZoneLondon, ShiftType: "evening", Price: 55, WeekendSurcharge: 10, Version: 2},
		{Zone: ZoneStandard, ShiftType: "morning", Price: 30, Version: 1},
	}).Error)

	result, err := catalog.ResolveZone(context.Background(), "SW1A 1AA", "")
	require.NoError(t, err)
	require.Len(t, result.Rates, 2)
	for _, rate := range result.Rates {
		require.Equal(t, 2, rate.Version)
	}
}

func TestCatalogRejectsUnknownItems(t *testing.T) {
	db := newPricingDB(t)
	catalog := NewCatalog(db)

	require.NoError(t, db.Create(&models.LabTest{Code: "FBC", Name: "Full Blood Count", Price: 80, IsActive: true}).Error)
	require.NoError(t, db.Create(&models.LabTest{Code: "OLD", Name: "Retired Panel", Price: 60, IsActive: false}).Error)

	items, total, err := catalog.TestItems(context.Background(), []uint{1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 80.0, total)

	_, _, err = catalog.TestItems(context.Background(), []uint{1, 999})
	require.Error(t, err)

	// Inactive items read as missing.
	_, _, err = catalog.TestItems(context.Background(), []uint{2})
	require.Error(t, err)

	// Duplicate ids collapse instead of double charging.
	items, total, err = catalog.TestItems(context.Background(), []uint{1, 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 80.0, total)
}

func TestShippingCharge(t *testing.T) {
	db := newPricingDB(t)
	catalog := NewCatalog(db)
	require.NoError(t, db.Create(&models.ShippingType{Name: "Courier", Price: 5}).Error)

	charge, err := catalog.ShippingCharge(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 5.0, charge)

	// Zero means no shipping selected.
	charge, err = catalog.ShippingCharge(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, charge)

	_, err = catalog.ShippingCharge(context.Background(), 42)
	require.Error(t, err)
}
