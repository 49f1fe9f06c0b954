package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "referral-backend/internal/common/errors"
	"referral-backend/internal/events"
	"referral-backend/internal/features/balance/models"
	"referral-backend/internal/features/balance/repository/memory"
	usermodels "referral-backend/internal/features/user/models"
)

const testWallet = "EQDKbjIcfM6ezt8KjKJJLshZJJSqX7XOA4ff-W72r5gqPrHF"

type recordedEvent struct {
	userID int64
	kind   usermodels.SecurityEventKind
}

type auditStub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (a *auditStub) Record(ctx context.Context, userID int64, kind usermodels.SecurityEventKind, metadata map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{userID: userID, kind: kind})
}

func newTestService() (BalanceService, *memory.Repository, *auditStub) {
	repo := memory.New()
	audit := &auditStub{}
	svc := NewBalanceService(repo, events.NewBus(64), audit)
	return svc, repo, audit
}

func testUser(id int64) *usermodels.User {
	return &usermodels.User{ID: id, Username: "alice", Role: usermodels.RoleUser}
}

func testOperator() *usermodels.User {
	return &usermodels.User{ID: 999, Username: "op", Role: usermodels.RoleOperator}
}

func TestSubmitDepositBelowMinimum(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.SubmitDeposit(context.Background(), testUser(1), &models.SubmitDepositRequest{
		Amount: decimal.NewFromFloat(9.99),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBelowMinimum, apperrors.CodeOf(err))
}

func TestSubmitDepositExactMinimumAccepted(t *testing.T) {
	svc, _, _ := newTestService()

	notice, err := svc.SubmitDeposit(context.Background(), testUser(1), &models.SubmitDepositRequest{
		Amount: models.MinDepositAmount,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusPending, notice.Status)
}

func TestConfirmDepositCreditsBalance(t *testing.T) {
	svc, _, audit := newTestService()
	ctx := context.Background()

	notice, err := svc.SubmitDeposit(ctx, testUser(1), &models.SubmitDepositRequest{
		Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveDeposit(ctx, testOperator(), notice.ID, models.DepositOutcomeConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.DepositStatusConfirmed, resolved.Status)
	require.NotNil(t, resolved.ConfirmedAt)

	summary, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, summary.Settled.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.Available.Equal(decimal.NewFromInt(100)))

	require.Len(t, audit.events, 1)
	assert.Equal(t, usermodels.EventKindDepositResolved, audit.events[0].kind)
}

func TestRejectDepositLeavesBalanceUntouched(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	notice, err := svc.SubmitDeposit(ctx, testUser(1), &models.SubmitDepositRequest{
		Amount: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	_, err = svc.ResolveDeposit(ctx, testOperator(), notice.ID, models.DepositOutcomeRejected)
	require.NoError(t, err)

	summary, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, summary.Settled.IsZero())
}

func TestResolveDepositTwice(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	notice, err := svc.SubmitDeposit(ctx, testUser(1), &models.SubmitDepositRequest{
		Amount: decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	_, err = svc.ResolveDeposit(ctx, testOperator(), notice.ID, models.DepositOutcomeConfirmed)
	require.NoError(t, err)

	_, err = svc.ResolveDeposit(ctx, testOperator(), notice.ID, models.DepositOutcomeRejected)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAlreadyResolved, apperrors.CodeOf(err))

	summary, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, summary.Settled.Equal(decimal.NewFromInt(20)))
}

func TestResolveDepositRequiresCapability(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	notice, err := svc.SubmitDeposit(ctx, testUser(1), &models.SubmitDepositRequest{
		Amount: decimal.NewFromInt(20),
	})
	require.NoError(t, err)

	_, err = svc.ResolveDeposit(ctx, testUser(1), notice.ID, models.DepositOutcomeConfirmed)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))
}

func confirmDeposit(t *testing.T, svc BalanceService, user *usermodels.User, amount int64) {
	t.Helper()
	notice, err := svc.SubmitDeposit(context.Background(), user, &models.SubmitDepositRequest{
		Amount: decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
	_, err = svc.ResolveDeposit(context.Background(), testOperator(), notice.ID, models.DepositOutcomeConfirmed)
	require.NoError(t, err)
}

func TestSubmitWithdrawalInsufficientBalance(t *testing.T) {
	svc, _, _ := newTestService()
	confirmDeposit(t, svc, testUser(1), 100)

	_, err := svc.SubmitWithdrawal(context.Background(), testUser(1), &models.SubmitWithdrawalRequest{
		Amount: decimal.NewFromInt(150),
		Wallet: testWallet,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInsufficientBalance, apperrors.CodeOf(err))
}

func TestOpenWithdrawalHoldsFunds(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	confirmDeposit(t, svc, testUser(1), 100)

	_, err := svc.SubmitWithdrawal(ctx, testUser(1), &models.SubmitWithdrawalRequest{
		Amount: decimal.NewFromInt(70),
		Wallet: testWallet,
	})
	require.NoError(t, err)

	// The first request is still open, so only 30 remains available.
	_, err = svc.SubmitWithdrawal(ctx, testUser(1), &models.SubmitWithdrawalRequest{
		Amount: decimal.NewFromInt(40),
		Wallet: testWallet,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInsufficientBalance, apperrors.CodeOf(err))

	summary, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, summary.Settled.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.Held.Equal(decimal.NewFromInt(70)))
	assert.True(t, summary.Available.Equal(decimal.NewFromInt(30)))
}

func TestWithdrawalLifecycleToPaid(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	confirmDeposit(t, svc, testUser(1), 100)

	req, err := svc.SubmitWithdrawal(ctx, testUser(1), &models.SubmitWithdrawalRequest{
		Amount: decimal.NewFromInt(60),
		Wallet: testWallet,
	})
	require.NoError(t, err)

	approved, err := svc.ResolveWithdrawal(ctx, testOperator(), req.ID, models.WithdrawalStatusApproved)
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedAt)

	paid, err := svc.ResolveWithdrawal(ctx, testOperator(), req.ID, models.WithdrawalStatusPaid)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	summary, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, summary.Settled.Equal(decimal.NewFromInt(40)))
	assert.True(t, summary.Held.IsZero())
	assert.True(t, summary.Available.Equal(decimal.NewFromInt(40)))
}

func TestWithdrawalRejectReleasesHold(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	confirmDeposit(t, svc, testUser(1), 100)

	req, err := svc.SubmitWithdrawal(ctx, testUser(1), &models.SubmitWithdrawalRequest{
		Amount: decimal.NewFromInt(60),
		Wallet: testWallet,
	})
	require.NoError(t, err)

	_, err = svc.ResolveWithdrawal(ctx, testOperator(), req.ID, models.WithdrawalStatusRejected)
	require.NoError(t, err)

	summary, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, summary.Settled.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.Available.Equal(decimal.NewFromInt(100)))
}

func TestWithdrawalCannotSkipApproval(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	confirmDeposit(t, svc, testUser(1), 100)

	req, err := svc.SubmitWithdrawal(ctx, testUser(1), &models.SubmitWithdrawalRequest{
		Amount: decimal.NewFromInt(60),
		Wallet: testWallet,
	})
	require.NoError(t, err)

	_, err = svc.ResolveWithdrawal(ctx, testOperator(), req.ID, models.WithdrawalStatusPaid)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidTransition, apperrors.CodeOf(err))
}

func TestResolveWithdrawalAfterTerminal(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	confirmDeposit(t, svc, testUser(1), 100)

	req, err := svc.SubmitWithdrawal(ctx, testUser(1), &models.SubmitWithdrawalRequest{
		Amount: decimal.NewFromInt(60),
		Wallet: testWallet,
	})
	require.NoError(t, err)

	_, err = svc.ResolveWithdrawal(ctx, testOperator(), req.ID, models.WithdrawalStatusRejected)
	require.NoError(t, err)

	_, err = svc.ResolveWithdrawal(ctx, testOperator(), req.ID, models.WithdrawalStatusApproved)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAlreadyResolved, apperrors.CodeOf(err))
}

func TestCreditCommissionAddsToBalance(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.CreditCommission(ctx, 1, decimal.NewFromInt(25), "payment-1"))

	summary, err := svc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, summary.Settled.Equal(decimal.NewFromInt(25)))
}

func TestBalanceIsolatedPerUser(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	confirmDeposit(t, svc, testUser(1), 100)

	other := testUser(2)
	other.Username = "bob"
	summary, err := svc.Balance(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, summary.Settled.IsZero())

	_, err = svc.SubmitWithdrawal(ctx, other, &models.SubmitWithdrawalRequest{
		Amount: decimal.NewFromInt(10),
		Wallet: testWallet,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInsufficientBalance, apperrors.CodeOf(err))
}
