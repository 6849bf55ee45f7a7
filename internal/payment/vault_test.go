package payment

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

func newVaultDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "vault.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PaymentToken{}))
	return db
}

func TestSaveOrUpdateUpserts(t *testing.T) {
	vault := NewTokenVault(newVaultDB(t))
	ctx := context.Background()

	first, err := vault.SaveOrUpdate(ctx, 1, "Telr", "tok_abc", "visa", "4242", 12, 2028)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	// Saving the same token refreshes metadata, no second row.
	second, err := vault.SaveOrUpdate(ctx, 1, "Telr", "tok_abc", "visa", "4242", 1, 2030)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2030, second.ExpYear)

	tokens, err := vault.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
}

func TestSameTokenDifferentUsers(t *testing.T) {
	vault := NewTokenVault(newVaultDB(t))
	ctx := context.Background()

	mine, err := vault.SaveOrUpdate(ctx, 1, "Telr", "tok_shared", "visa", "4242", 12, 2028)
	require.NoError(t, err)
	theirs, err := vault.SaveOrUpdate(ctx, 2, "Telr", "tok_shared", "visa", "4242", 12, 2028)
	require.NoError(t, err)
	require.NotEqual(t, mine.ID, theirs.ID)
}

func TestGetForUserScopesOwnership(t *testing.T) {
	vault := NewTokenVault(newVaultDB(t))
	ctx := context.Background()

	stored, err := vault.SaveOrUpdate(ctx, 1, "Midtrans", "tok_xyz", "mastercard", "4444", 6, 2027)
	require.NoError(t, err)

	got, err := vault.GetForUser(ctx, 1, stored.ID)
	require.NoError(t, err)
	require.Equal(t, "tok_xyz", got.Token)

	// Someone else's card reads as not found.
	_, err = vault.GetForUser(ctx, 2, stored.ID)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteScopesOwnership(t *testing.T) {
	vault := NewTokenVault(newVaultDB(t))
	ctx := context.Background()

	stored, err := vault.SaveOrUpdate(ctx, 1, "Telr", "tok_del", "visa", "1111", 3, 2029)
	require.NoError(t, err)

	err = vault.Delete(ctx, 2, stored.ID)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, vault.Delete(ctx, 1, stored.ID))

	tokens, err := vault.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, tokens)
}
