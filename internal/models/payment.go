package models

import "time"

// PaymentToken is one reusable card reference per (user, token). Metadata
// is for display only; the raw card never touches this table.
type PaymentToken struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"uniqueIndex:idx_user_token;not null" json:"user_id"`
	Provider  string    `gorm:"size:20;not null" json:"provider"`
	Token     string    `gorm:"uniqueIndex:idx_user_token;size:100;not null" json:"-"`
	Brand     string    `gorm:"size:30" json:"brand"`
	Last4     string    `gorm:"size:4" json:"last4"`
	ExpMonth  int       `json:"exp_month"`
	ExpYear   int       `json:"exp_year"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostcodeZone is a previously confirmed postcode/town → zone mapping.
// These rows win over the format heuristics.
type PostcodeZone struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Postcode string `gorm:"uniqueIndex;size:10" json:"postcode"`
	Town     string `gorm:"index;size:100" json:"town"`
	Zone     string `gorm:"size:20;not null" json:"zone"`
}

// ZoneRate is one bookable home-visit slot price for a zone. Rates are
// versioned; only the latest version is served.
type ZoneRate struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	Zone             string  `gorm:"index;size:20;not null" json:"zone"`
	ShiftType        string  `gorm:"size:30;not null" json:"shift_type"`
	SlotTimes        string  `gorm:"size:255" json:"slot_times"`
	Price            float64 `json:"price"`
	WeekendSurcharge float64 `json:"weekend_surcharge"`
	Version          int     `gorm:"default:1" json:"version"`
}
