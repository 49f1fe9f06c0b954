package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"referral-backend/internal/common/cache"
	apperrors "referral-backend/internal/common/errors"
	"referral-backend/internal/common/logger"
	"referral-backend/internal/features/catalog/models"
	"referral-backend/internal/features/catalog/repository"
	usermodels "referral-backend/internal/features/user/models"
)

const packageCacheTTL = 5 * time.Minute

// PaymentReferenceChecker reports whether any payment references a package.
// Deletion is refused while references exist, so historical payments always
// resolve their package.
type PaymentReferenceChecker interface {
	ExistsForPackage(ctx context.Context, packageID string) (bool, error)
}

type PackageService interface {
	Create(ctx context.Context, actor *usermodels.User, input *models.PackageCreate) (*models.Package, error)
	Update(ctx context.Context, actor *usermodels.User, id string, input *models.PackageUpdate) (*models.Package, error)
	Delete(ctx context.Context, actor *usermodels.User, id string) error
	GetByID(ctx context.Context, id string) (*models.Package, error)
	List(ctx context.Context, includeInactive bool) ([]*models.Package, error)
}

type packageService struct {
	repo     repository.PackageRepository
	payments PaymentReferenceChecker
	cache    *cache.CacheService
}

func NewPackageService(repo repository.PackageRepository, payments PaymentReferenceChecker, cacheService *cache.CacheService) PackageService {
	return &packageService{
		repo:     repo,
		payments: payments,
		cache:    cacheService,
	}
}

func (s *packageService) requireManage(actor *usermodels.User) error {
	if actor == nil || !usermodels.HasCapability(actor.Role, usermodels.CapManageCatalog) {
		return apperrors.NewForbiddenError()
	}
	return nil
}

func (s *packageService) Create(ctx context.Context, actor *usermodels.User, input *models.PackageCreate) (*models.Package, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	if !input.PriceUSD.IsPositive() {
		return nil, apperrors.NewValidationError("price_usd", "must be positive")
	}

	now := time.Now()
	pkg := &models.Package{
		ID:            uuid.New().String(),
		Name:          input.Name,
		PriceUSD:      input.PriceUSD,
		UsdtDisplay:   input.UsdtDisplay,
		BtcDisplay:    input.BtcDisplay,
		DurationDays:  input.DurationDays,
		TransferCount: input.TransferCount,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, pkg); err != nil {
		return nil, apperrors.NewDatabaseError("create package", err)
	}

	s.invalidate(ctx)
	return pkg, nil
}

func (s *packageService) Update(ctx context.Context, actor *usermodels.User, id string, input *models.PackageUpdate) (*models.Package, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}

	pkg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "package not found")
		}
		return nil, apperrors.NewDatabaseError("get package", err)
	}

	if input.Name != nil {
		pkg.Name = *input.Name
	}
	if input.PriceUSD != nil {
		if !input.PriceUSD.IsPositive() {
			return nil, apperrors.NewValidationError("price_usd", "must be positive")
		}
		// Price edits apply to future payments only; historical payments
		// carry the amount copied at creation.
		pkg.PriceUSD = *input.PriceUSD
	}
	if input.UsdtDisplay != nil {
		pkg.UsdtDisplay = *input.UsdtDisplay
	}
	if input.BtcDisplay != nil {
		pkg.BtcDisplay = *input.BtcDisplay
	}
	if input.DurationDays != nil {
		pkg.DurationDays = *input.DurationDays
	}
	if input.TransferCount != nil {
		pkg.TransferCount = *input.TransferCount
	}
	if input.Active != nil {
		pkg.Active = *input.Active
	}
	pkg.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, pkg); err != nil {
		return nil, apperrors.NewDatabaseError("update package", err)
	}

	s.invalidate(ctx)
	return pkg, nil
}

func (s *packageService) Delete(ctx context.Context, actor *usermodels.User, id string) error {
	if err := s.requireManage(actor); err != nil {
		return err
	}

	referenced, err := s.payments.ExistsForPackage(ctx, id)
	if err != nil {
		return apperrors.NewDatabaseError("check package references", err)
	}
	if referenced {
		return apperrors.New(apperrors.ErrCodePackageReferenced, "package is referenced by payments")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.New(apperrors.ErrCodePackageNotFound, "package not found")
		}
		return apperrors.NewDatabaseError("delete package", err)
	}

	s.invalidate(ctx)
	return nil
}

func (s *packageService) GetByID(ctx context.Context, id string) (*models.Package, error) {
	pkg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrCodePackageNotFound, "package not found")
		}
		return nil, apperrors.NewDatabaseError("get package", err)
	}
	return pkg, nil
}

func (s *packageService) List(ctx context.Context, includeInactive bool) ([]*models.Package, error) {
	if s.cache != nil && !includeInactive {
		var cached []*models.Package
		err := s.cache.GetOrSet(ctx, "packages:active", &cached, packageCacheTTL, func() (interface{}, error) {
			return s.repo.List(ctx, false)
		})
		if err == nil {
			return cached, nil
		}
		logger.Warn().Err(err).Msg("package cache read failed, falling back to repository")
	}

	packages, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list packages", err)
	}
	return packages, nil
}

func (s *packageService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePackageCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate package cache")
	}
}
