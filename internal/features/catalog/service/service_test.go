package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "referral-backend/internal/common/errors"
	"referral-backend/internal/features/catalog/models"
	"referral-backend/internal/features/catalog/repository/memory"
	usermodels "referral-backend/internal/features/user/models"
)

type referenceStub struct {
	referenced map[string]bool
}

func (r *referenceStub) ExistsForPackage(ctx context.Context, packageID string) (bool, error) {
	return r.referenced[packageID], nil
}

func newTestService() (PackageService, *referenceStub) {
	refs := &referenceStub{referenced: make(map[string]bool)}
	svc := NewPackageService(memory.New(), refs, nil)
	return svc, refs
}

func operator() *usermodels.User {
	return &usermodels.User{ID: 999, Role: usermodels.RoleOperator}
}

func regular() *usermodels.User {
	return &usermodels.User{ID: 1, Role: usermodels.RoleUser}
}

func TestCreateAndGetPackage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pkg, err := svc.Create(ctx, operator(), &models.PackageCreate{
		Name:          "Starter",
		PriceUSD:      decimal.NewFromInt(1000),
		UsdtDisplay:   "1000 USDT",
		DurationDays:  30,
		TransferCount: 5,
	})
	require.NoError(t, err)
	assert.True(t, pkg.Active)

	got, err := svc.GetByID(ctx, pkg.ID)
	require.NoError(t, err)
	assert.True(t, got.PriceUSD.Equal(decimal.NewFromInt(1000)))
}

func TestCreateRequiresCapability(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), regular(), &models.PackageCreate{
		Name:     "Starter",
		PriceUSD: decimal.NewFromInt(1000),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))
}

func TestCreateNonPositivePriceRefused(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), operator(), &models.PackageCreate{
		Name:     "Free",
		PriceUSD: decimal.Zero,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(err))
}

func TestDeleteReferencedPackageRefused(t *testing.T) {
	svc, refs := newTestService()
	ctx := context.Background()

	pkg, err := svc.Create(ctx, operator(), &models.PackageCreate{
		Name:     "Starter",
		PriceUSD: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	refs.referenced[pkg.ID] = true

	err = svc.Delete(ctx, operator(), pkg.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePackageReferenced, apperrors.CodeOf(err))

	// Still retrievable afterwards.
	_, err = svc.GetByID(ctx, pkg.ID)
	require.NoError(t, err)
}

func TestDeleteUnreferencedPackage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pkg, err := svc.Create(ctx, operator(), &models.PackageCreate{
		Name:     "Starter",
		PriceUSD: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, operator(), pkg.ID))

	_, err = svc.GetByID(ctx, pkg.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePackageNotFound, apperrors.CodeOf(err))
}

func TestUpdatePriceAppliesForward(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pkg, err := svc.Create(ctx, operator(), &models.PackageCreate{
		Name:     "Starter",
		PriceUSD: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	newPrice := decimal.NewFromInt(1500)
	updated, err := svc.Update(ctx, operator(), pkg.ID, &models.PackageUpdate{PriceUSD: &newPrice})
	require.NoError(t, err)
	assert.True(t, updated.PriceUSD.Equal(newPrice))
}

func TestListExcludesInactiveByDefault(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pkg, err := svc.Create(ctx, operator(), &models.PackageCreate{
		Name:     "Starter",
		PriceUSD: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, operator(), pkg.ID, &models.PackageUpdate{Active: &inactive})
	require.NoError(t, err)

	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
