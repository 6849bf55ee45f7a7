package coupon

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/apperr"
)

// Ledger owns coupon redemption. The usage counter is claimed with a
// conditional UPDATE as the first statement of the transaction, so
// concurrent redemptions of the same code serialize on the row write lock
// and the max_users cap can never be exceeded.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Redemption is what a successful redeem returns, and what a compensating
// Refund needs to undo it.
type Redemption struct {
	CouponID uint    `json:"coupon_id"`
	Code     string  `json:"code"`
	Type     string  `json:"type"`
	Value    float64 `json:"value"`
	UserID   *uint64 `json:"user_id,omitempty"`
}

// Redeem consumes one use of the code. With a user id it also writes a
// usage-ledger row in the same transaction; anonymous redemptions only bump
// the counter.
func (l *Ledger) Redeem(ctx context.Context, code string, userID *uint64) (*Redemption, error) {
	var redemption *Redemption

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claim first: the guarded increment takes the row lock and is the
		// only place the counter moves, so used <= max_users always holds.
		claim := tx.Model(&models.Coupon{}).
			Where("code = ? AND used < max_users AND expiry_date >= ?", code, time.Now()).
			UpdateColumn("used", gorm.Expr("used + 1"))
		if claim.Error != nil {
			return claim.Error
		}

		if claim.RowsAffected == 0 {
			return l.classifyFailure(tx, code)
		}

		var cpn models.Coupon
		if err := tx.Where("code = ?", code).First(&cpn).Error; err != nil {
			return err
		}

		if userID != nil {
			usage := models.CouponUsage{CouponID: cpn.ID, UserID: *userID, Code: cpn.Code}
			if err := tx.Create(&usage).Error; err != nil {
				return err
			}
		}

		redemption = &Redemption{
			CouponID: cpn.ID,
			Code:     cpn.Code,
			Type:     cpn.DiscountType,
			Value:    cpn.Value,
			UserID:   userID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redemption, nil
}

// classifyFailure runs after a failed claim to tell the caller why.
func (l *Ledger) classifyFailure(tx *gorm.DB, code string) error {
	var cpn models.Coupon
	if err := tx.Where("code = ?", code).First(&cpn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Coupon not found")
		}
		return err
	}
	if cpn.ExpiryDate.Before(time.Now()) {
		return apperr.Conflict("Coupon Expired")
	}
	return apperr.Conflict("Code Usage Limit Reached")
}

// Refund is the compensating action for a redemption consumed by a
// checkout that later failed: it decrements the counter and removes the
// user's ledger row.
func (l *Ledger) Refund(ctx context.Context, r *Redemption) error {
	if r == nil {
		return nil
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Coupon{}).
			Where("id = ? AND used > 0", r.CouponID).
			UpdateColumn("used", gorm.Expr("used - 1"))
		if res.Error != nil {
			return res.Error
		}

		if r.UserID != nil {
			var usage models.CouponUsage
			err := tx.Where("coupon_id = ? AND user_id = ?", r.CouponID, *r.UserID).
				Order("id desc").
				First(&usage).Error
			if err == nil {
				return tx.Delete(&usage).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return nil
	})
}
