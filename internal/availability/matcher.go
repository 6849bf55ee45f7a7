package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"phlebcare-backend/internal/geo"
	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/apperr"
)

// BookingQuery is one requested home visit: when and where.
type BookingQuery struct {
	Date    string // YYYY-MM-DD
	Time    string // HH:mm
	Address string
}

// Matcher combines the schedule store and the distance resolver to decide
// which plebs can take a booking. Assignment always re-runs the predicate
// against current data; an earlier search result is never trusted.
type Matcher struct {
	db       *gorm.DB
	resolver geo.Resolver
	log      *slog.Logger
}

func NewMatcher(db *gorm.DB, resolver geo.Resolver, log *slog.Logger) *Matcher {
	return &Matcher{db: db, resolver: resolver, log: log}
}

// FindEligible returns the active plebs whose weekly schedule covers the
// booking time and whose driving distance to the address is within their
// configured range.
func (m *Matcher) FindEligible(ctx context.Context, q BookingQuery) ([]models.PlebProfile, error) {
	day, minutes, err := m.parseBooking(q)
	if err != nil {
		return nil, err
	}

	var plebs []models.PlebProfile
	if err := m.db.WithContext(ctx).
		Preload("User").
		Preload("Range").
		Preload("Slots", "day_of_week = ? AND is_available = ?", day, true).
		Where("is_active = ?", true).
		Find(&plebs).Error; err != nil {
		return nil, err
	}

	eligible := make([]models.PlebProfile, 0, len(plebs))
	for _, pleb := range plebs {
		ok, err := m.eligible(ctx, &pleb, minutes, q.Address)
		if err != nil {
			// A failed distance lookup excludes the pleb from this search
			// rather than failing the whole request.
			m.log.Warn("distance lookup failed during search",
				slog.Uint64("pleb_id", pleb.ID),
				slog.String("error", err.Error()))
			continue
		}
		if ok {
			eligible = append(eligible, pleb)
		}
	}
	return eligible, nil
}

// ValidateAssignment re-runs the eligibility predicate for exactly one pleb
// at assignment time, closing the race between search and checkout.
func (m *Matcher) ValidateAssignment(ctx context.Context, plebID uint64, q BookingQuery) error {
	day, minutes, err := m.parseBooking(q)
	if err != nil {
		return err
	}

	var pleb models.PlebProfile
	dbErr := m.db.WithContext(ctx).
		Preload("Range").
		Preload("Slots", "day_of_week = ? AND is_available = ?", day, true).
		Where("id = ? AND is_active = ?", plebID, true).
		First(&pleb).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		return apperr.Availability("Selected phlebotomist is no longer available")
	}
	if dbErr != nil {
		return dbErr
	}

	ok, err := m.eligible(ctx, &pleb, minutes, q.Address)
	if err != nil {
		return apperr.Wrap(apperr.KindAvailability, "Could not verify travel distance for the selected phlebotomist", err)
	}
	if !ok {
		return apperr.Availability("Selected phlebotomist is not available for this slot")
	}
	return nil
}

func (m *Matcher) eligible(ctx context.Context, pleb *models.PlebProfile, minutes int, address string) (bool, error) {
	if !coversTime(pleb.Slots, minutes) {
		return false, nil
	}
	if pleb.Range == nil || pleb.Range.MaxDistance <= 0 {
		return false, nil
	}

	leg, err := m.resolver.Driving(ctx, geo.Point{Lat: pleb.Lat, Lng: pleb.Lng}, address)
	if err != nil {
		return false, err
	}
	return leg.DistanceMiles <= pleb.Range.MaxDistance, nil
}

// coversTime checks half-open window containment: a 09:00-12:00 slot covers
// 09:00 but not 12:00.
func coversTime(slots []models.AvailabilitySlot, minutes int) bool {
	for _, slot := range slots {
		start, err := ParseClock(slot.StartTime)
		if err != nil {
			continue
		}
		end, err := ParseClock(slot.EndTime)
		if err != nil {
			continue
		}
		if start <= minutes && minutes < end {
			return true
		}
	}
	return false
}

func (m *Matcher) parseBooking(q BookingQuery) (day int, minutes int, err error) {
	date, err := time.Parse("2006-01-02", q.Date)
	if err != nil {
		return 0, 0, apperr.Validationf("Invalid booking date %q", q.Date)
	}
	minutes, err = ParseClock(q.Time)
	if err != nil {
		return 0, 0, apperr.Validationf("Invalid booking time %q", q.Time)
	}
	if q.Address == "" {
		return 0, 0, apperr.New(apperr.KindValidation, "Customer address is required")
	}
	return int(date.Weekday()), minutes, nil
}
