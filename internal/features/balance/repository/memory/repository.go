package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"referral-backend/internal/features/balance/models"
	"referral-backend/internal/features/balance/repository"
)

// Repository is an in-memory BalanceRepository used in tests. A single mutex
// stands in for the postgres implementation's transactions and row locks.
type Repository struct {
	mu          sync.Mutex
	deposits    map[string]*models.DepositNotice
	withdrawals map[string]*models.WithdrawalRequest
	entries     []*models.BalanceEntry
}

func New() *Repository {
	return &Repository{
		deposits:    make(map[string]*models.DepositNotice),
		withdrawals: make(map[string]*models.WithdrawalRequest),
	}
}

func (r *Repository) CreateDeposit(ctx context.Context, notice *models.DepositNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *notice
	r.deposits[notice.ID] = &cp
	return nil
}

func (r *Repository) GetDeposit(ctx context.Context, id string) (*models.DepositNotice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.deposits[id]
	if !ok {
		return nil, repository.ErrDepositNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *Repository) ResolveDeposit(ctx context.Context, id string, status models.DepositStatus, now time.Time) (*models.DepositNotice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.deposits[id]
	if !ok {
		return nil, repository.ErrDepositNotFound
	}
	if n.Status != models.DepositStatusPending {
		return nil, repository.ErrAlreadyResolved
	}

	n.Status = status
	n.UpdatedAt = now
	if status == models.DepositStatusConfirmed {
		n.ConfirmedAt = &now
		r.entries = append(r.entries, &models.BalanceEntry{
			ID:        uuid.New().String(),
			UserID:    n.UserID,
			Kind:      models.EntryKindDeposit,
			Amount:    n.Amount,
			Reference: n.ID,
			CreatedAt: now,
		})
	}
	cp := *n
	return &cp, nil
}

func (r *Repository) ListDeposits(ctx context.Context, filter repository.DepositFilter) ([]*models.DepositNotice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.DepositNotice
	for _, n := range r.deposits {
		if filter.Status != nil && n.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && n.UserID != *filter.UserID {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	available := r.settledLocked(req.UserID).Sub(r.heldLocked(req.UserID))
	if req.Amount.GreaterThan(available) {
		return repository.ErrInsufficientBalance
	}

	cp := *req
	r.withdrawals[req.ID] = &cp
	return nil
}

func (r *Repository) GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.withdrawals[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *Repository) ResolveWithdrawal(ctx context.Context, id string, next models.WithdrawalStatus, now time.Time) (*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.withdrawals[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	if w.Status.Terminal() {
		return nil, repository.ErrAlreadyResolved
	}
	if !w.Status.CanTransitionTo(next) {
		return nil, repository.ErrInvalidTransition
	}

	w.Status = next
	w.UpdatedAt = now
	switch next {
	case models.WithdrawalStatusApproved:
		w.ApprovedAt = &now
	case models.WithdrawalStatusPaid:
		w.PaidAt = &now
		r.entries = append(r.entries, &models.BalanceEntry{
			ID:        uuid.New().String(),
			UserID:    w.UserID,
			Kind:      models.EntryKindWithdrawal,
			Amount:    w.Amount.Neg(),
			Reference: w.ID,
			CreatedAt: now,
		})
	}
	cp := *w
	return &cp, nil
}

func (r *Repository) ListWithdrawals(ctx context.Context, filter repository.WithdrawalFilter) ([]*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.WithdrawalRequest
	for _, w := range r.withdrawals {
		if filter.Status != nil && w.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && w.UserID != *filter.UserID {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) InsertEntry(ctx context.Context, entry *models.BalanceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *Repository) Balance(ctx context.Context, userID int64) (*models.BalanceSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	settled := r.settledLocked(userID)
	held := r.heldLocked(userID)
	return &models.BalanceSummary{
		Settled:   settled,
		Held:      held,
		Available: settled.Sub(held),
	}, nil
}

func (r *Repository) settledLocked(userID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.UserID == userID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

func (r *Repository) heldLocked(userID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, w := range r.withdrawals {
		if w.UserID == userID && w.Status.Open() {
			sum = sum.Add(w.Amount)
		}
	}
	return sum
}
