package models

import "time"

type LabTest struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Code     string  `gorm:"uniqueIndex;size:30" json:"code"`
	Name     string  `gorm:"size:150;not null" json:"name"`
	Price    float64 `json:"price"`
	IsActive bool    `gorm:"not null" json:"is_active"`
}

type ClinicService struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `gorm:"size:150;not null" json:"name"`
	Price    float64 `json:"price"`
	IsActive bool    `gorm:"not null" json:"is_active"`
}

type ShippingType struct {
	ID    uint    `gorm:"primaryKey" json:"id"`
	Name  string  `gorm:"size:100;not null" json:"name"`
	Price float64 `json:"price"`
}

const (
	DiscountTypePercent = "percent"
	DiscountTypeFixed   = "fixed"
)

type Coupon struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"uniqueIndex;size:50;not null" json:"code"`
	DiscountType string    `gorm:"size:20;not null" json:"discount_type"`
	Value        float64   `json:"value"`
	ExpiryDate   time.Time `json:"expiry_date"`
	MaxUsers     int       `json:"max_users"`
	Used         int       `gorm:"default:0" json:"used"`
	CreatedAt    time.Time `json:"created_at"`
}

// CouponUsage is the per-user redemption ledger. Anonymous redemptions bump
// Coupon.Used without a ledger row.
type CouponUsage struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	CouponID  uint      `gorm:"index;not null" json:"coupon_id"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	Code      string    `gorm:"size:50" json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
