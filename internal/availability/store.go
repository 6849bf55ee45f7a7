package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/apperr"
)

const kmToMiles = 0.621371

// Store owns the weekly recurring schedule and travel range of a pleb.
// Updates replace the whole week in one transaction: validation happens
// before any write, and a failure persists nothing.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var dayNames = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Get returns the full week keyed by day name, each day ordered by start
// time, plus the normalized service range.
func (s *Store) Get(ctx context.Context, plebID uint64) (*models.WeeklyAvailability, error) {
	var slots []models.AvailabilitySlot
	if err := s.db.WithContext(ctx).
		Where("pleb_id = ?", plebID).
		Order("day_of_week asc, start_time asc").
		Find(&slots).Error; err != nil {
		return nil, err
	}

	week := make(map[string][]models.AvailabilitySlot, len(dayNames))
	for _, name := range dayNames {
		week[name] = []models.AvailabilitySlot{}
	}
	for _, slot := range slots {
		name := dayNames[slot.DayOfWeek]
		week[name] = append(week[name], slot)
	}

	out := &models.WeeklyAvailability{Week: week}

	var rng models.ServiceRange
	err := s.db.WithContext(ctx).Where("pleb_id = ?", plebID).First(&rng).Error
	if err == nil {
		out.Range = &rng
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return out, nil
}

// Replace validates the submitted week and range, then swaps them in as
// delete-all + insert inside one transaction.
func (s *Store) Replace(ctx context.Context, plebID uint64, input models.ReplaceAvailabilityInput) error {
	slots, err := validateSlots(input.Slots)
	if err != nil {
		return err
	}
	rng, err := normalizeRange(input.Range)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pleb_id = ?", plebID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pleb_id = ?", plebID).Delete(&models.ServiceRange{}).Error; err != nil {
			return err
		}

		for i := range slots {
			slots[i].PlebID = plebID
		}
		if len(slots) > 0 {
			if err := tx.Create(&slots).Error; err != nil {
				return err
			}
		}

		rng.PlebID = plebID
		return tx.Create(rng).Error
	})
}

func validateSlots(inputs []models.SlotInput) ([]models.AvailabilitySlot, error) {
	slots := make([]models.AvailabilitySlot, 0, len(inputs))
	for _, in := range inputs {
		if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
			return nil, apperr.Validationf("Invalid day of week %d", in.DayOfWeek)
		}
		start, err := ParseClock(in.StartTime)
		if err != nil {
			return nil, apperr.Validationf("Invalid start time %q", in.StartTime)
		}
		end, err := ParseClock(in.EndTime)
		if err != nil {
			return nil, apperr.Validationf("Invalid end time %q", in.EndTime)
		}
		if start >= end {
			return nil, apperr.Validationf("Slot %s-%s must start before it ends", in.StartTime, in.EndTime)
		}
		slots = append(slots, models.AvailabilitySlot{
			DayOfWeek:   in.DayOfWeek,
			StartTime:   in.StartTime,
			EndTime:     in.EndTime,
			IsAvailable: in.IsAvailable,
		})
	}

	// No two available slots on the same day may overlap. Intervals are
	// half-open, so 09:00-12:00 and 12:00-14:00 is fine.
	byDay := make(map[int][]models.AvailabilitySlot)
	for _, slot := range slots {
		if slot.IsAvailable {
			byDay[slot.DayOfWeek] = append(byDay[slot.DayOfWeek], slot)
		}
	}
	for day, daySlots := range byDay {
		sort.Slice(daySlots, func(i, j int) bool {
			si, _ := ParseClock(daySlots[i].StartTime)
			sj, _ := ParseClock(daySlots[j].StartTime)
			return si < sj
		})
		for i := 1; i < len(daySlots); i++ {
			prevEnd, _ := ParseClock(daySlots[i-1].EndTime)
			curStart, _ := ParseClock(daySlots[i].StartTime)
			if curStart < prevEnd {
				return nil, apperr.Validationf(
					"Overlapping slots on %s: %s-%s and %s-%s",
					dayNames[day],
					daySlots[i-1].StartTime, daySlots[i-1].EndTime,
					daySlots[i].StartTime, daySlots[i].EndTime,
				)
			}
		}
	}
	return slots, nil
}

// normalizeRange converts the submitted range to miles for uniform
// comparison against resolved driving distances.
func normalizeRange(in models.RangeInput) (*models.ServiceRange, error) {
	if in.MaxDistance <= 0 {
		return nil, apperr.New(apperr.KindValidation, "Service range must be greater than zero")
	}
	distance := in.MaxDistance
	switch in.Unit {
	case models.RangeUnitMiles:
	case models.RangeUnitKM:
		distance = in.MaxDistance * kmToMiles
	default:
		return nil, apperr.Validationf("Unknown range unit %q", in.Unit)
	}
	return &models.ServiceRange{MaxDistance: distance, Unit: in.Unit}, nil
}

// ParseClock parses HH:mm or HH:mm:ss into minutes since midnight.
func ParseClock(value string) (int, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("unparseable clock value %q", value)
}
