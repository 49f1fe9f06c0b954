package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"referral-backend/internal/features/payment/models"
	"referral-backend/internal/features/payment/repository"
)

// Repository is an in-memory PaymentRepository used in tests. It mirrors the
// postgres implementation's transactional guarantees with a single mutex.
type Repository struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func New() *Repository {
	return &Repository{payments: make(map[string]*models.Payment)}
}

func (r *Repository) CreateIntent(ctx context.Context, p *models.Payment, window time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := p.CreatedAt.Add(-window)
	for _, existing := range r.payments {
		if existing.UserID == p.UserID &&
			existing.Status == models.PaymentStatusPending &&
			existing.CreatedAt.After(cutoff) {
			return repository.ErrDuplicatePending
		}
	}

	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *Repository) Resolve(ctx context.Context, id string, status models.PaymentStatus, now time.Time) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Status != models.PaymentStatusPending {
		return nil, repository.ErrAlreadyResolved
	}

	p.Status = status
	p.UpdatedAt = now
	cp := *p
	return &cp, nil
}

func matches(p *models.Payment, filter models.Filter) bool {
	if filter.Status != nil && p.Status != *filter.Status {
		return false
	}
	if filter.UserID != nil && p.UserID != *filter.UserID {
		return false
	}
	if filter.From != nil && p.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && p.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

func (r *Repository) List(ctx context.Context, filter models.Filter) ([]*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Payment
	for _, p := range r.payments {
		if matches(p, filter) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) Aggregate(ctx context.Context, filter models.Filter) (*models.Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg := &models.Aggregate{SumAmount: decimal.Zero, SumCommission: decimal.Zero}
	for _, p := range r.payments {
		if matches(p, filter) {
			agg.Count++
			agg.SumAmount = agg.SumAmount.Add(p.Amount)
			agg.SumCommission = agg.SumCommission.Add(p.Commission)
		}
	}
	return agg, nil
}

func (r *Repository) ExistsForPackage(ctx context.Context, packageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.PackageID == packageID {
			return true, nil
		}
	}
	return false, nil
}
