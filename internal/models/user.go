package models

import (
	"time"

	"gorm.io/gorm"
)

// Role ids: 1=Admin, 2=Practitioner, 3=Phlebotomist, 4=Customer
const (
	RoleAdmin        uint = 1
	RolePractitioner uint = 2
	RolePleb         uint = 3
	RoleCustomer     uint = 4
)

type User struct {
	ID           uint64         `gorm:"primaryKey" json:"id"`
	RoleID       uint           `gorm:"not null" json:"role_id"`
	FullName     string         `gorm:"size:100;not null" json:"full_name"`
	Email        string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Phone        string         `gorm:"column:phone_number;size:20" json:"phone"`
	FCMToken     string         `gorm:"size:255" json:"-"`
	IsVerified   bool           `gorm:"default:false" json:"is_verified"`
	AddressLine  string         `gorm:"size:255" json:"address_line"`
	Postcode     string         `gorm:"size:10" json:"postcode"`
	Town         string         `gorm:"size:100" json:"town"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Practitioner commission ledger. CreditBalance is what the
	// practitioner owes from credit checkouts, TotalCreditBalance the
	// remaining credit line.
	CreditBalance      float64 `gorm:"default:0" json:"credit_balance"`
	TotalCreditBalance float64 `gorm:"default:0" json:"total_credit_balance"`
}

// CommissionEntry is one row of the practitioner commission ledger, written
// in the same transaction as the order it belongs to.
type CommissionEntry struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	PractitionerID uint64    `gorm:"index;not null" json:"practitioner_id"`
	OrderID        uint64    `gorm:"not null" json:"order_id"`
	Amount         float64   `json:"amount"`
	CreatedAt      time.Time `json:"created_at"`
}

type RegisterInput struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	RoleID   uint   `json:"role_id" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FCMToken string `json:"fcm_token"`
}
