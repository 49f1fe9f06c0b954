package repository

import (
	"context"
	"errors"
	"time"

	"referral-backend/internal/features/payment/models"
)

var (
	ErrNotFound         = errors.New("payment not found")
	ErrDuplicatePending = errors.New("user already has a pending payment")
	ErrAlreadyResolved  = errors.New("payment already resolved")
)

// PaymentRepository owns payment rows and their state transitions. The dedup
// check and the insert happen in one storage transaction; Resolve is a
// compare-and-swap so concurrent resolutions cannot both win.
type PaymentRepository interface {
	// CreateIntent inserts p as pending unless the user already has a
	// pending payment created strictly within the lookback window
	// (created_at > now - window), in which case ErrDuplicatePending.
	CreateIntent(ctx context.Context, p *models.Payment, window time.Duration) error

	GetByID(ctx context.Context, id string) (*models.Payment, error)

	// Resolve moves a pending payment to the given terminal status.
	// ErrNotFound when no such payment, ErrAlreadyResolved when its status
	// is already terminal. Returns the updated record.
	Resolve(ctx context.Context, id string, status models.PaymentStatus, now time.Time) (*models.Payment, error)

	// List returns matching payments newest first.
	List(ctx context.Context, filter models.Filter) ([]*models.Payment, error)

	// Aggregate summarizes the same set List would return.
	Aggregate(ctx context.Context, filter models.Filter) (*models.Aggregate, error)

	// ExistsForPackage reports whether any payment references the package.
	ExistsForPackage(ctx context.Context, packageID string) (bool, error)
}
