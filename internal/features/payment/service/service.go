package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "referral-backend/internal/common/errors"
	"referral-backend/internal/common/validation"
	"referral-backend/internal/events"
	catalogmodels "referral-backend/internal/features/catalog/models"
	catalogrepo "referral-backend/internal/features/catalog/repository"
	"referral-backend/internal/features/payment/models"
	"referral-backend/internal/features/payment/repository"
	"referral-backend/internal/features/tier"
	usermodels "referral-backend/internal/features/user/models"
)

// DefaultDedupWindow is the lookback during which a second pending intent
// from the same user is rejected.
const DefaultDedupWindow = time.Hour

// PackageSource resolves package ids for intent creation.
type PackageSource interface {
	GetByID(ctx context.Context, id string) (*catalogmodels.Package, error)
}

// AuditLog records account security events. Failures are the implementation's
// concern; recording must not fail ledger operations.
type AuditLog interface {
	Record(ctx context.Context, userID int64, kind usermodels.SecurityEventKind, metadata map[string]interface{})
}

type PaymentService interface {
	CreateIntent(ctx context.Context, user *usermodels.User, input *models.CreateIntentRequest) (*models.Payment, error)
	Resolve(ctx context.Context, actor *usermodels.User, paymentID string, outcome models.Outcome) (*models.Payment, error)
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Payment, error)
	Aggregate(ctx context.Context, filter models.Filter) (*models.Aggregate, error)
}

type paymentService struct {
	repo     repository.PaymentRepository
	packages PackageSource
	tiers    *tier.Catalog
	bus      *events.Bus
	audit    AuditLog
	window   time.Duration
}

func NewPaymentService(
	repo repository.PaymentRepository,
	packages PackageSource,
	tiers *tier.Catalog,
	bus *events.Bus,
	audit AuditLog,
	window time.Duration,
) PaymentService {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &paymentService{
		repo:     repo,
		packages: packages,
		tiers:    tiers,
		bus:      bus,
		audit:    audit,
		window:   window,
	}
}

// CreateIntent records a pending purchase. Amount is copied from the
// package's canonical price and commission is frozen from the user's tier
// rate at this moment; neither changes afterwards.
func (s *paymentService) CreateIntent(ctx context.Context, user *usermodels.User, input *models.CreateIntentRequest) (*models.Payment, error) {
	if user == nil {
		return nil, apperrors.NewUnauthenticatedError("caller not resolved")
	}
	if err := validation.ValidateWallet(input.BuyerWallet); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidWallet, "invalid buyer wallet")
	}

	pkg, err := s.packages.GetByID(ctx, input.PackageID)
	if err != nil {
		if errors.Is(err, catalogrepo.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "package not found")
		}
		return nil, apperrors.NewDatabaseError("get package", err)
	}

	now := time.Now()
	amount := pkg.PriceUSD
	rate := s.tiers.RateFor(user.Tier)
	payment := &models.Payment{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		PackageID:   pkg.ID,
		Amount:      amount,
		Commission:  amount.Mul(rate),
		BuyerWallet: input.BuyerWallet,
		Status:      models.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateIntent(ctx, payment, s.window); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, apperrors.New(apperrors.ErrCodeDuplicatePending, "a pending payment already exists")
		}
		return nil, apperrors.NewDatabaseError("create payment", err)
	}

	// Best effort: the payment is committed regardless of notification fate.
	s.bus.Publish(events.Event{
		Kind:      events.KindPaymentCreated,
		UserID:    user.ID,
		UserLabel: user.DisplayName(),
		Amount:    payment.Amount,
		Reference: payment.ID,
		Detail:    pkg.Name,
	})

	return payment, nil
}

// Resolve settles a pending payment. Commission is never recomputed, and
// crediting the owner's balance is the caller's follow-up on observing a
// completed result, not a hidden side effect here.
func (s *paymentService) Resolve(ctx context.Context, actor *usermodels.User, paymentID string, outcome models.Outcome) (*models.Payment, error) {
	if actor == nil || !usermodels.HasCapability(actor.Role, usermodels.CapResolvePayments) {
		return nil, apperrors.NewForbiddenError()
	}

	status, ok := outcome.Status()
	if !ok {
		return nil, apperrors.NewValidationError("outcome", "must be completed or failed")
	}

	payment, err := s.repo.Resolve(ctx, paymentID, status, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.New(apperrors.ErrCodePaymentNotFound, "payment not found")
		case errors.Is(err, repository.ErrAlreadyResolved):
			return nil, apperrors.New(apperrors.ErrCodeAlreadyResolved, "this action was already processed")
		default:
			return nil, apperrors.NewDatabaseError("resolve payment", err)
		}
	}

	if s.audit != nil {
		s.audit.Record(ctx, payment.UserID, usermodels.EventKindPaymentResolved, map[string]interface{}{
			"payment_id": payment.ID,
			"outcome":    string(outcome),
			"actor_id":   actor.ID,
		})
	}

	s.bus.Publish(events.Event{
		Kind:      events.KindPaymentResolved,
		UserID:    payment.UserID,
		Amount:    payment.Amount,
		Reference: payment.ID,
		Detail:    string(outcome),
	})

	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrCodePaymentNotFound, "payment not found")
		}
		return nil, apperrors.NewDatabaseError("get payment", err)
	}
	return payment, nil
}

func (s *paymentService) List(ctx context.Context, filter models.Filter) ([]*models.Payment, error) {
	payments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list payments", err)
	}
	return payments, nil
}

func (s *paymentService) Aggregate(ctx context.Context, filter models.Filter) (*models.Aggregate, error) {
	agg, err := s.repo.Aggregate(ctx, filter)
	if err != nil {
		return nil, apperrors.NewDatabaseError("aggregate payments", err)
	}
	return agg, nil
}
