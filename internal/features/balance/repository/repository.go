package repository

import (
	"context"
	"errors"
	"time"

	"referral-backend/internal/features/balance/models"
)

var (
	ErrDepositNotFound     = errors.New("deposit notice not found")
	ErrWithdrawalNotFound  = errors.New("withdrawal request not found")
	ErrAlreadyResolved     = errors.New("record already resolved")
	ErrInvalidTransition   = errors.New("transition not permitted from current status")
	ErrInsufficientBalance = errors.New("requested amount exceeds available balance")
)

// DepositFilter selects deposit notices.
type DepositFilter struct {
	Status *models.DepositStatus
	UserID *int64
}

// WithdrawalFilter selects withdrawal requests.
type WithdrawalFilter struct {
	Status *models.WithdrawalStatus
	UserID *int64
}

// BalanceRepository owns deposit notices, withdrawal requests and the
// balance ledger. Multi-step operations run in one storage transaction:
// the withdrawal balance check is serialized per user via a row lock, and
// resolutions are compare-and-swap updates.
type BalanceRepository interface {
	CreateDeposit(ctx context.Context, notice *models.DepositNotice) error
	GetDeposit(ctx context.Context, id string) (*models.DepositNotice, error)
	// ResolveDeposit moves a pending notice to a terminal status; confirming
	// also writes the credit ledger entry in the same transaction.
	ResolveDeposit(ctx context.Context, id string, status models.DepositStatus, now time.Time) (*models.DepositNotice, error)
	ListDeposits(ctx context.Context, filter DepositFilter) ([]*models.DepositNotice, error)

	// CreateWithdrawal inserts a pending request after validating the amount
	// against the user's available balance inside the transaction.
	CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error
	GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	// ResolveWithdrawal applies one state machine step; marking paid also
	// writes the debit ledger entry in the same transaction.
	ResolveWithdrawal(ctx context.Context, id string, next models.WithdrawalStatus, now time.Time) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, filter WithdrawalFilter) ([]*models.WithdrawalRequest, error)

	// InsertEntry appends a ledger entry outside the flows above, e.g. a
	// commission credit after a completed payment.
	InsertEntry(ctx context.Context, entry *models.BalanceEntry) error
	// Balance computes the summary as a pure function of ledger state.
	Balance(ctx context.Context, userID int64) (*models.BalanceSummary, error)
}
