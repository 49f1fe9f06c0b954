package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "referral-backend/internal/common/errors"
	"referral-backend/internal/common/validation"
	"referral-backend/internal/events"
	"referral-backend/internal/features/balance/models"
	"referral-backend/internal/features/balance/repository"
	usermodels "referral-backend/internal/features/user/models"
)

// AuditLog records account security events without failing the operation.
type AuditLog interface {
	Record(ctx context.Context, userID int64, kind usermodels.SecurityEventKind, metadata map[string]interface{})
}

type BalanceService interface {
	SubmitDeposit(ctx context.Context, user *usermodels.User, input *models.SubmitDepositRequest) (*models.DepositNotice, error)
	ResolveDeposit(ctx context.Context, actor *usermodels.User, id string, outcome models.DepositOutcome) (*models.DepositNotice, error)
	ListDeposits(ctx context.Context, filter repository.DepositFilter) ([]*models.DepositNotice, error)

	SubmitWithdrawal(ctx context.Context, user *usermodels.User, input *models.SubmitWithdrawalRequest) (*models.WithdrawalRequest, error)
	ResolveWithdrawal(ctx context.Context, actor *usermodels.User, id string, next models.WithdrawalStatus) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, filter repository.WithdrawalFilter) ([]*models.WithdrawalRequest, error)

	// CreditCommission appends a commission entry for a completed payment.
	CreditCommission(ctx context.Context, userID int64, amount decimal.Decimal, paymentID string) error
	Balance(ctx context.Context, userID int64) (*models.BalanceSummary, error)
}

type balanceService struct {
	repo  repository.BalanceRepository
	bus   *events.Bus
	audit AuditLog
}

func NewBalanceService(repo repository.BalanceRepository, bus *events.Bus, audit AuditLog) BalanceService {
	return &balanceService{repo: repo, bus: bus, audit: audit}
}

// SubmitDeposit records a pending notice. Amounts exactly at the minimum are
// accepted; only amounts strictly below it are refused.
func (s *balanceService) SubmitDeposit(ctx context.Context, user *usermodels.User, input *models.SubmitDepositRequest) (*models.DepositNotice, error) {
	if user == nil {
		return nil, apperrors.NewUnauthenticatedError("caller not resolved")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "must be positive")
	}
	if input.Amount.LessThan(models.MinDepositAmount) {
		return nil, apperrors.New(apperrors.ErrCodeBelowMinimum, "amount is below the minimum deposit")
	}

	now := time.Now()
	notice := &models.DepositNotice{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		Amount:      input.Amount,
		TxReference: input.TxReference,
		Status:      models.DepositStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDeposit(ctx, notice); err != nil {
		return nil, apperrors.NewDatabaseError("create deposit notice", err)
	}

	s.bus.Publish(events.Event{
		Kind:      events.KindDepositSubmitted,
		UserID:    user.ID,
		UserLabel: user.DisplayName(),
		Amount:    notice.Amount,
		Reference: notice.ID,
	})
	return notice, nil
}

func (s *balanceService) ResolveDeposit(ctx context.Context, actor *usermodels.User, id string, outcome models.DepositOutcome) (*models.DepositNotice, error) {
	if actor == nil || !usermodels.HasCapability(actor.Role, usermodels.CapResolveNotices) {
		return nil, apperrors.NewForbiddenError()
	}
	status, ok := outcome.Status()
	if !ok {
		return nil, apperrors.NewValidationError("outcome", "must be confirmed or rejected")
	}

	notice, err := s.repo.ResolveDeposit(ctx, id, status, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDepositNotFound):
			return nil, apperrors.New(apperrors.ErrCodeNoticeNotFound, "deposit notice not found")
		case errors.Is(err, repository.ErrAlreadyResolved):
			return nil, apperrors.New(apperrors.ErrCodeAlreadyResolved, "this action was already processed")
		default:
			return nil, apperrors.NewDatabaseError("resolve deposit notice", err)
		}
	}

	if s.audit != nil {
		s.audit.Record(ctx, notice.UserID, usermodels.EventKindDepositResolved, map[string]interface{}{
			"notice_id": notice.ID,
			"outcome":   string(outcome),
			"actor_id":  actor.ID,
		})
	}
	s.bus.Publish(events.Event{
		Kind:      events.KindDepositResolved,
		UserID:    notice.UserID,
		Amount:    notice.Amount,
		Reference: notice.ID,
		Detail:    string(outcome),
	})
	return notice, nil
}

func (s *balanceService) ListDeposits(ctx context.Context, filter repository.DepositFilter) ([]*models.DepositNotice, error) {
	notices, err := s.repo.ListDeposits(ctx, filter)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list deposit notices", err)
	}
	return notices, nil
}

// SubmitWithdrawal records a pending request. The balance check runs inside
// the repository transaction, so concurrent requests cannot jointly exceed
// the available balance.
func (s *balanceService) SubmitWithdrawal(ctx context.Context, user *usermodels.User, input *models.SubmitWithdrawalRequest) (*models.WithdrawalRequest, error) {
	if user == nil {
		return nil, apperrors.NewUnauthenticatedError("caller not resolved")
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "must be positive")
	}
	if err := validation.ValidateWallet(input.Wallet); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidWallet, "invalid payout wallet")
	}

	now := time.Now()
	req := &models.WithdrawalRequest{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Amount:    input.Amount,
		Wallet:    input.Wallet,
		Status:    models.WithdrawalStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateWithdrawal(ctx, req); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, apperrors.New(apperrors.ErrCodeInsufficientBalance, "amount exceeds available balance")
		}
		return nil, apperrors.NewDatabaseError("create withdrawal request", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, user.ID, usermodels.EventKindWithdrawalCreated, map[string]interface{}{
			"withdrawal_id": req.ID,
			"amount":        req.Amount.String(),
		})
	}
	s.bus.Publish(events.Event{
		Kind:      events.KindWithdrawalSubmitted,
		UserID:    user.ID,
		UserLabel: user.DisplayName(),
		Amount:    req.Amount,
		Reference: req.ID,
	})
	return req, nil
}

func (s *balanceService) ResolveWithdrawal(ctx context.Context, actor *usermodels.User, id string, next models.WithdrawalStatus) (*models.WithdrawalRequest, error) {
	if actor == nil || !usermodels.HasCapability(actor.Role, usermodels.CapResolveNotices) {
		return nil, apperrors.NewForbiddenError()
	}
	switch next {
	case models.WithdrawalStatusApproved, models.WithdrawalStatusRejected, models.WithdrawalStatusPaid:
	default:
		return nil, apperrors.NewValidationError("status", "must be approved, rejected or paid")
	}

	req, err := s.repo.ResolveWithdrawal(ctx, id, next, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWithdrawalNotFound):
			return nil, apperrors.New(apperrors.ErrCodeNoticeNotFound, "withdrawal request not found")
		case errors.Is(err, repository.ErrAlreadyResolved):
			return nil, apperrors.New(apperrors.ErrCodeAlreadyResolved, "this action was already processed")
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, apperrors.New(apperrors.ErrCodeInvalidTransition, "transition not permitted from current status")
		default:
			return nil, apperrors.NewDatabaseError("resolve withdrawal request", err)
		}
	}

	if s.audit != nil {
		s.audit.Record(ctx, req.UserID, usermodels.EventKindWithdrawalResolved, map[string]interface{}{
			"withdrawal_id": req.ID,
			"status":        string(next),
			"actor_id":      actor.ID,
		})
	}
	s.bus.Publish(events.Event{
		Kind:      events.KindWithdrawalResolved,
		UserID:    req.UserID,
		Amount:    req.Amount,
		Reference: req.ID,
		Detail:    string(next),
	})
	return req, nil
}

func (s *balanceService) ListWithdrawals(ctx context.Context, filter repository.WithdrawalFilter) ([]*models.WithdrawalRequest, error) {
	requests, err := s.repo.ListWithdrawals(ctx, filter)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list withdrawal requests", err)
	}
	return requests, nil
}

func (s *balanceService) CreditCommission(ctx context.Context, userID int64, amount decimal.Decimal, paymentID string) error {
	if !amount.IsPositive() {
		return nil
	}
	entry := &models.BalanceEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      models.EntryKindCommission,
		Amount:    amount,
		Reference: paymentID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.InsertEntry(ctx, entry); err != nil {
		return apperrors.NewDatabaseError("credit commission", err)
	}
	return nil
}

func (s *balanceService) Balance(ctx context.Context, userID int64) (*models.BalanceSummary, error) {
	summary, err := s.repo.Balance(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("compute balance", err)
	}
	return summary, nil
}
