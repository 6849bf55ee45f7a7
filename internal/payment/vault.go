package payment

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"phlebcare-backend/internal/models"
	"phlebcare-backend/pkg/apperr"
)

// TokenVault stores one reusable card token per (user, token). Every read
// is ownership-scoped: a token that exists but belongs to someone else is
// reported as not found, never as anything the caller could distinguish.
type TokenVault struct {
	db *gorm.DB
}

func NewTokenVault(db *gorm.DB) *TokenVault {
	return &TokenVault{db: db}
}

// SaveOrUpdate upserts on (user_id, token); saving the same token twice
// refreshes the display metadata instead of duplicating the row.
func (v *TokenVault) SaveOrUpdate(ctx context.Context, userID uint64, provider, token, brand, last4 string, expMonth, expYear int) (*models.PaymentToken, error) {
	record := models.PaymentToken{
		UserID:   userID,
		Provider: provider,
		Token:    token,
		Brand:    brand,
		Last4:    last4,
		ExpMonth: expMonth,
		ExpYear:  expYear,
	}

	err := v.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider", "brand", "last4", "exp_month", "exp_year", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return nil, err
	}

	// The upsert path does not fill the id on conflict; re-read the row.
	var stored models.PaymentToken
	if err := v.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (v *TokenVault) GetForUser(ctx context.Context, userID, id uint64) (*models.PaymentToken, error) {
	var record models.PaymentToken
	err := v.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Saved card not found")
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (v *TokenVault) ListForUser(ctx context.Context, userID uint64) ([]models.PaymentToken, error) {
	var records []models.PaymentToken
	err := v.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&records).Error
	return records, err
}

func (v *TokenVault) Delete(ctx context.Context, userID, id uint64) error {
	res := v.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.PaymentToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Saved card not found")
	}
	return nil
}
