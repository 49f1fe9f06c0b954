package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral-backend/internal/features/payment/models"
	"referral-backend/internal/features/payment/repository"
)

func pendingPayment(id string, userID int64, createdAt time.Time) *models.Payment {
	return &models.Payment{
		ID:        id,
		UserID:    userID,
		PackageID: "pkg",
		Amount:    decimal.NewFromInt(100),
		Status:    models.PaymentStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// The lookback uses a strict comparison: a pending payment created exactly
// one window ago no longer blocks a new intent.
func TestCreateIntentWindowBoundaryIsStrict(t *testing.T) {
	repo := New()
	ctx := context.Background()
	window := time.Hour
	now := time.Now()

	require.NoError(t, repo.CreateIntent(ctx, pendingPayment("old", 1, now.Add(-window)), window))

	err := repo.CreateIntent(ctx, pendingPayment("new", 1, now), window)
	require.NoError(t, err)
}

func TestCreateIntentInsideWindowBlocks(t *testing.T) {
	repo := New()
	ctx := context.Background()
	window := time.Hour
	now := time.Now()

	require.NoError(t, repo.CreateIntent(ctx, pendingPayment("recent", 1, now.Add(-10*time.Minute)), window))

	err := repo.CreateIntent(ctx, pendingPayment("second", 1, now), window)
	assert.ErrorIs(t, err, repository.ErrDuplicatePending)
}

func TestCreateIntentOtherUserUnaffected(t *testing.T) {
	repo := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.CreateIntent(ctx, pendingPayment("a", 1, now), time.Hour))
	require.NoError(t, repo.CreateIntent(ctx, pendingPayment("b", 2, now), time.Hour))
}
