package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CheckoutTypeCredit   = "Credit"
	CheckoutTypeTelr     = "Telr"
	CheckoutTypeMidtrans = "Midtrans"
)

const (
	PaymentStatusPending    = "Pending"
	PaymentStatusAuthorized = "Authorized"
	PaymentStatusPaid       = "Paid"
	PaymentStatusReleased   = "Released"
	PaymentStatusVoided     = "Voided"
)

const (
	OrderStatusPlaced    = "Placed"
	OrderStatusAssigned  = "Assigned"
	OrderStatusCollected = "Collected"
	OrderStatusCompleted = "Completed"
	OrderStatusCancelled = "Cancelled"
)

type Order struct {
	ID                uint64    `gorm:"primaryKey" json:"id"`
	OrderNo           string    `gorm:"uniqueIndex;size:50" json:"order_no"`
	CustomerID        uint64    `gorm:"index;not null" json:"customer_id"`
	PractitionerID    uint64    `gorm:"index;not null" json:"practitioner_id"`
	ShippingTypeID    *uint     `json:"shipping_type_id"`
	Subtotal          float64   `json:"subtotal"`
	Discount          float64   `json:"discount"`
	ShippingCharges   float64   `json:"shipping_charges"`
	OtherChargesTotal float64   `json:"other_charges_total"`
	TotalVal          float64   `json:"total_val"`
	CheckoutType      string    `gorm:"size:20;not null" json:"checkout_type"`
	PaymentStatus     string    `gorm:"size:20;not null" json:"payment_status"`
	Status            string    `gorm:"size:20;not null" json:"status"`
	TransactionID     string    `gorm:"size:100" json:"transaction_id"`
	CouponCode        string    `gorm:"size:50" json:"coupon_code,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Customer   *User            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items      []OrderItem      `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Booking    *PhlebBooking    `gorm:"foreignKey:OrderID" json:"booking,omitempty"`
	Job        *PlebJob         `gorm:"foreignKey:OrderID" json:"job,omitempty"`
	StatusLogs []OrderStatusLog `gorm:"foreignKey:OrderID" json:"status_logs,omitempty"`
}

const (
	ItemTypeTest    = "test"
	ItemTypeService = "service"
)

// OrderItem snapshots the price of a test or service at checkout time.
type OrderItem struct {
	ID       uint64  `gorm:"primaryKey" json:"id"`
	OrderID  uint64  `gorm:"index;not null" json:"order_id"`
	ItemType string  `gorm:"size:10;not null" json:"item_type"`
	RefID    uint    `gorm:"not null" json:"ref_id"`
	Name     string  `gorm:"size:150" json:"name"`
	Price    float64 `json:"price"`
}

// OrderStatusLog is the append-only fulfillment trail.
type OrderStatusLog struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	OrderID   uint64    `gorm:"index;not null" json:"order_id"`
	Status    string    `gorm:"size:20;not null" json:"status"`
	Note      string    `gorm:"size:255" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// PhlebBooking is the customer-chosen home-visit slot, 1:1 with its order.
type PhlebBooking struct {
	ID               uint64         `gorm:"primaryKey" json:"id"`
	OrderID          uint64         `gorm:"uniqueIndex;not null" json:"order_id"`
	Zone             string         `gorm:"size:20" json:"zone"`
	ShiftType        string         `gorm:"size:30" json:"shift_type"`
	SlotTimes        datatypes.JSON `json:"slot_times"`
	Price            float64        `json:"price"`
	WeekendSurcharge float64        `json:"weekend_surcharge"`
	BookingDate      string         `gorm:"size:10" json:"booking_date"`
	BookingTime      string         `gorm:"size:8" json:"booking_time"`
	CreatedAt        time.Time      `json:"created_at"`
}

type CardInput struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVV      string `json:"cvv"`
	Token    string `json:"token"`
}

type BookingInput struct {
	BookingDate string `json:"booking_date" binding:"required"` // YYYY-MM-DD
	BookingTime string `json:"booking_time" binding:"required"` // HH:mm
}

type PhlebBookingInput struct {
	Zone             string   `json:"zone"`
	ShiftType        string   `json:"shift_type"`
	SlotTimes        []string `json:"slot_times"`
	Price            float64  `json:"price"`
	WeekendSurcharge float64  `json:"weekend_surcharge"`
}

type CheckoutInput struct {
	CustomerID     uint64             `json:"customer_id" binding:"required"`
	TestIDs        []uint             `json:"test_ids"`
	ServiceIDs     []uint             `json:"service_ids"`
	ShippingTypeID uint               `json:"shipping_type"`
	Discount       float64            `json:"discount"`
	CouponCode     string             `json:"coupon_code"`
	CheckoutType   string             `json:"checkout_type" binding:"required,oneof=Credit Telr Midtrans"`
	PlebID         *uint64            `json:"pleb_id"`
	Booking        *BookingInput      `json:"booking"`
	PhlebBooking   *PhlebBookingInput `json:"phleb_booking"`
	PaymentTokenID *uint64            `json:"payment_token_id"`
	PaymentMethod  *CardInput         `json:"payment_method"`
	SaveCard       bool               `json:"save_card"`
	Address        string             `json:"address"`
}

type CaptureInput struct {
	Amount float64 `json:"amount"`
}
