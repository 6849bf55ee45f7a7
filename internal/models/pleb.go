package models

import "time"

// PlebProfile is a mobile phlebotomist: a fixed base location plus an
// active flag. Their weekly schedule and travel range hang off this row and
// are always replaced wholesale, never patched.
type PlebProfile struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"uniqueIndex;not null" json:"user_id"`
	Lat       float64   `gorm:"type:decimal(11,8)" json:"lat"`
	Lng       float64   `gorm:"type:decimal(11,8)" json:"lng"`
	IsActive  bool      `gorm:"default:false" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User  User               `gorm:"foreignKey:UserID" json:"user_data,omitempty"`
	Slots []AvailabilitySlot `gorm:"foreignKey:PlebID" json:"slots,omitempty"`
	Range *ServiceRange      `gorm:"foreignKey:PlebID" json:"service_range,omitempty"`
}

// AvailabilitySlot is one recurring weekly window. DayOfWeek follows
// time.Weekday (0 = Sunday). Times are stored as HH:mm:ss strings.
// IsAvailable carries no column default: gorm skips zero-valued fields
// that have one, which would turn a blocked-out slot into an open one.
type AvailabilitySlot struct {
	ID          uint64 `gorm:"primaryKey" json:"id"`
	PlebID      uint64 `gorm:"index;not null" json:"pleb_id"`
	DayOfWeek   int    `gorm:"not null" json:"day_of_week"`
	StartTime   string `gorm:"size:8;not null" json:"start_time"`
	EndTime     string `gorm:"size:8;not null" json:"end_time"`
	IsAvailable bool   `gorm:"not null" json:"is_available"`
}

const (
	RangeUnitMiles = "miles"
	RangeUnitKM    = "km"
)

// ServiceRange holds the travel radius. MaxDistance is always persisted in
// miles; Unit records what the pleb originally entered.
type ServiceRange struct {
	ID          uint64  `gorm:"primaryKey" json:"id"`
	PlebID      uint64  `gorm:"uniqueIndex;not null" json:"pleb_id"`
	MaxDistance float64 `gorm:"not null" json:"max_distance"`
	Unit        string  `gorm:"size:10;not null" json:"unit"`
}

const (
	JobStatusAssigned  = "Assigned"
	JobStatusEnRoute   = "EnRoute"
	JobStatusCollected = "Collected"
	JobStatusCompleted = "Completed"
	JobStatusCancelled = "Cancelled"
)

// PlebJob ties one pleb to one order. Created only after the availability
// and range check passed at assignment time.
type PlebJob struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	PlebID         uint64    `gorm:"index;not null" json:"pleb_id"`
	OrderID        uint64    `gorm:"uniqueIndex;not null" json:"order_id"`
	JobStatus      string    `gorm:"size:20;not null" json:"job_status"`
	TrackingNumber string    `gorm:"size:50" json:"tracking_number"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Pleb  *PlebProfile `gorm:"foreignKey:PlebID" json:"pleb,omitempty"`
	Order *Order       `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

type SlotInput struct {
	DayOfWeek   int    `json:"day_of_week" binding:"min=0,max=6"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	IsAvailable bool   `json:"is_available"`
}

type RangeInput struct {
	MaxDistance float64 `json:"max_distance" binding:"required"`
	Unit        string  `json:"unit" binding:"required"`
}

type ReplaceAvailabilityInput struct {
	Slots []SlotInput `json:"slots" binding:"required"`
	Range RangeInput  `json:"service_range" binding:"required"`
}

// WeeklyAvailability is what GET availability returns: the week keyed by
// day name, each day ordered by start time, plus the normalized range.
type WeeklyAvailability struct {
	Week  map[string][]AvailabilitySlot `json:"week"`
	Range *ServiceRange                 `json:"service_range,omitempty"`
}

type JobStatusInput struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}
