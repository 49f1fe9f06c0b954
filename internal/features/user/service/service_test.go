package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "referral-backend/internal/common/errors"
	"referral-backend/internal/features/tier"
	"referral-backend/internal/features/user/models"
	"referral-backend/internal/features/user/repository/memory"
)

func newTestService(adminIDs ...int64) (UserService, *memory.Repository) {
	repo := memory.New()
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	svc := NewUserService(repo, tier.NewCatalog(), func(id int64) bool { return admins[id] })
	return svc, repo
}

func ensure(t *testing.T, svc UserService, id int64, username string) *models.User {
	t.Helper()
	user, err := svc.EnsureUser(context.Background(), &Profile{ID: id, Username: username})
	require.NoError(t, err)
	return user
}

func TestEnsureUserCreatesWithDefaults(t *testing.T) {
	svc, _ := newTestService()

	user := ensure(t, svc, 1, "alice")
	assert.Equal(t, tier.TierBronze, user.Tier)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, models.KYCStatusNone, user.KYCStatus)
	assert.False(t, user.Verified)
}

func TestEnsureUserPreservesTierOnLogin(t *testing.T) {
	svc, _ := newTestService(99)
	operator := ensure(t, svc, 99, "op")

	user := ensure(t, svc, 1, "alice")
	_, err := svc.SetTier(context.Background(), operator, user.ID, tier.TierGold)
	require.NoError(t, err)

	again := ensure(t, svc, 1, "alice-renamed")
	assert.Equal(t, tier.TierGold, again.Tier)
	assert.Equal(t, "alice-renamed", again.Username)
}

func TestEnsureUserAssignsOperatorRoleFromConfig(t *testing.T) {
	svc, _ := newTestService(99)

	user := ensure(t, svc, 99, "op")
	assert.Equal(t, models.RoleOperator, user.Role)
}

func TestKYCSubmitAndApprove(t *testing.T) {
	svc, _ := newTestService(99)
	operator := ensure(t, svc, 99, "op")
	user := ensure(t, svc, 1, "alice")
	ctx := context.Background()

	submitted, err := svc.SubmitKYC(ctx, user, &models.KYCSubmission{DocumentURLs: []string{"https://docs/passport.png"}})
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusPending, submitted.KYCStatus)

	decided, err := svc.DecideKYC(ctx, operator, user.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusApproved, decided.KYCStatus)
	assert.True(t, decided.Verified)
}

func TestKYCSubmitWhilePendingRefused(t *testing.T) {
	svc, _ := newTestService()
	user := ensure(t, svc, 1, "alice")
	ctx := context.Background()

	_, err := svc.SubmitKYC(ctx, user, &models.KYCSubmission{DocumentURLs: []string{"a"}})
	require.NoError(t, err)

	_, err = svc.SubmitKYC(ctx, user, &models.KYCSubmission{DocumentURLs: []string{"b"}})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidTransition, apperrors.CodeOf(err))
}

func TestKYCResubmitAfterRejection(t *testing.T) {
	svc, _ := newTestService(99)
	operator := ensure(t, svc, 99, "op")
	user := ensure(t, svc, 1, "alice")
	ctx := context.Background()

	_, err := svc.SubmitKYC(ctx, user, &models.KYCSubmission{DocumentURLs: []string{"a"}})
	require.NoError(t, err)
	rejected, err := svc.DecideKYC(ctx, operator, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.KYCStatusRejected, rejected.KYCStatus)
	assert.False(t, rejected.Verified)

	_, err = svc.SubmitKYC(ctx, rejected, &models.KYCSubmission{DocumentURLs: []string{"b"}})
	require.NoError(t, err)
}

func TestDecideKYCWithoutPendingReview(t *testing.T) {
	svc, _ := newTestService(99)
	operator := ensure(t, svc, 99, "op")
	user := ensure(t, svc, 1, "alice")

	_, err := svc.DecideKYC(context.Background(), operator, user.ID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidTransition, apperrors.CodeOf(err))
}

func TestDecideKYCRequiresCapability(t *testing.T) {
	svc, _ := newTestService()
	user := ensure(t, svc, 1, "alice")
	other := ensure(t, svc, 2, "bob")

	_, err := svc.DecideKYC(context.Background(), other, user.ID, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))
}

func TestSetTierUnknownRefused(t *testing.T) {
	svc, _ := newTestService(99)
	operator := ensure(t, svc, 99, "op")
	user := ensure(t, svc, 1, "alice")

	_, err := svc.SetTier(context.Background(), operator, user.ID, tier.Tier("platinum"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestRecordAndListSecurityEvents(t *testing.T) {
	svc, _ := newTestService(99)
	operator := ensure(t, svc, 99, "op")
	user := ensure(t, svc, 1, "alice")
	ctx := context.Background()

	svc.Record(ctx, user.ID, models.EventKindLogin, nil)
	svc.Record(ctx, user.ID, models.EventKindTierChanged, map[string]interface{}{"to": "gold"})

	events, err := svc.ListSecurityEvents(ctx, user, user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// Operators can read anyone's trail, other users cannot.
	_, err = svc.ListSecurityEvents(ctx, operator, user.ID, 10)
	require.NoError(t, err)

	other := ensure(t, svc, 2, "bob")
	_, err = svc.ListSecurityEvents(ctx, other, user.ID, 10)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))
}
