package availability

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/apperr"
)

func newAvailabilityDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "availability.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.PlebProfile{},
		&models.AvailabilitySlot{},
		&models.ServiceRange{},
	))
	return db
}

func milesRange(distance float64) models.RangeInput {
	return models.RangeInput{MaxDistance: distance, Unit: models.RangeUnitMiles}
}

func TestReplaceAndGetRoundTrip(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)
	ctx := context.Background()

	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsAvailable: true},
			{DayOfWeek: 1, StartTime: "14:00", EndTime: "17:00", IsAvailable: true},
			{DayOfWeek: 3, StartTime: "08:00:00", EndTime: "16:30:00", IsAvailable: true},
			{DayOfWeek: 5, StartTime: "09:00", EndTime: "12:00", IsAvailable: false},
		},
		Range: milesRange(10),
	}
	require.NoError(t, store.Replace(ctx, 1, input))

	week, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, week.Week["monday"], 2)
	require.Len(t, week.Week["wednesday"], 1)
	require.Equal(t, "09:00", week.Week["monday"][0].StartTime)
	require.NotNil(t, week.Range)
	require.Equal(t, 10.0, week.Range.MaxDistance)

	// A blocked-out window must come back blocked, not open.
	require.Len(t, week.Week["friday"], 1)
	require.False(t, week.Week["friday"][0].IsAvailable)
}

func TestReplaceWipesPreviousWeek(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)
	ctx := context.Background()

	first := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{{DayOfWeek: 2, StartTime: "09:00", EndTime: "17:00", IsAvailable: true}},
		Range: milesRange(5),
	}
	require.NoError(t, store.Replace(ctx, 1, first))

	second := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{{DayOfWeek: 5, StartTime: "10:00", EndTime: "13:00", IsAvailable: true}},
		Range: milesRange(20),
	}
	require.NoError(t, store.Replace(ctx, 1, second))

	week, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, week.Week["tuesday"])
	require.Len(t, week.Week["friday"], 1)
	require.Equal(t, 20.0, week.Range.MaxDistance)
}

func TestReplaceRejectsOverlap(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)

	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsAvailable: true},
			{DayOfWeek: 1, StartTime: "11:00", EndTime: "14:00", IsAvailable: true},
		},
		Range: milesRange(10),
	}
	err := store.Replace(context.Background(), 1, input)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	// Nothing persisted.
	var count int64
	require.NoError(t, db.Model(&models.AvailabilitySlot{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestReplaceAllowsTouchingSlots(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)

	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsAvailable: true},
			{DayOfWeek: 1, StartTime: "12:00", EndTime: "14:00", IsAvailable: true},
		},
		Range: milesRange(10),
	}
	require.NoError(t, store.Replace(context.Background(), 1, input))
}

func TestReplaceIgnoresUnavailableOverlap(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)

	// A blocked-out window overlapping an available one is fine; only
	// available slots contend with each other.
	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", IsAvailable: true},
			{DayOfWeek: 1, StartTime: "12:00", EndTime: "13:00", IsAvailable: false},
		},
		Range: milesRange(10),
	}
	require.NoError(t, store.Replace(context.Background(), 1, input))
}

func TestReplaceRejectsBadClock(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)

	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{{DayOfWeek: 1, StartTime: "9am", EndTime: "12:00", IsAvailable: true}},
		Range: milesRange(10),
	}
	err := store.Replace(context.Background(), 1, input)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestReplaceRejectsInvertedSlot(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)

	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{{DayOfWeek: 1, StartTime: "12:00", EndTime: "12:00", IsAvailable: true}},
		Range: milesRange(10),
	}
	err := store.Replace(context.Background(), 1, input)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestReplaceRejectsBadDay(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)

	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{{DayOfWeek: 7, StartTime: "09:00", EndTime: "12:00", IsAvailable: true}},
		Range: milesRange(10),
	}
	err := store.Replace(context.Background(), 1, input)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestReplaceNormalizesKilometres(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)
	ctx := context.Background()

	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsAvailable: true}},
		Range: models.RangeInput{MaxDistance: 10, Unit: models.RangeUnitKM},
	}
	require.NoError(t, store.Replace(ctx, 1, input))

	week, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.InDelta(t, 6.21371, week.Range.MaxDistance, 0.0001)
	require.Equal(t, models.RangeUnitKM, week.Range.Unit)
}

func TestReplaceRejectsUnknownUnit(t *testing.T) {
	db := newAvailabilityDB(t)
	store := NewStore(db)

	input := models.ReplaceAvailabilityInput{
		Slots: []models.SlotInput{},
		Range: models.RangeInput{MaxDistance: 10, Unit: "furlongs"},
	}
	err := store.Replace(context.Background(), 1, input)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	require.Equal(t, 570, minutes)

	minutes, err = ParseClock("09:30:45")
	require.NoError(t, err)
	require.Equal(t, 570, minutes)

	_, err = ParseClock("25:00")
	require.Error(t, err)
}
