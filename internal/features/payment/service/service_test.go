package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "referral-backend/internal/common/errors"
	"referral-backend/internal/events"
	catalogmodels "referral-backend/internal/features/catalog/models"
	catalogmemory "referral-backend/internal/features/catalog/repository/memory"
	"referral-backend/internal/features/payment/models"
	"referral-backend/internal/features/payment/repository/memory"
	"referral-backend/internal/features/tier"
	usermodels "referral-backend/internal/features/user/models"
)

const testWallet = "EQDKbjIcfM6ezt8KjKJJLshZJJSqX7XOA4ff-W72r5gqPrHF"

type auditStub struct {
	mu    sync.Mutex
	kinds []usermodels.SecurityEventKind
}

func (a *auditStub) Record(ctx context.Context, userID int64, kind usermodels.SecurityEventKind, metadata map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kinds = append(a.kinds, kind)
}

type fixture struct {
	svc  PaymentService
	repo *memory.Repository
	pkg  *catalogmodels.Package
	bus  *events.Bus
}

func newFixture(t *testing.T, price int64) *fixture {
	t.Helper()
	repo := memory.New()
	packages := catalogmemory.New()
	pkg := &catalogmodels.Package{
		ID:       "pkg-1",
		Name:     "Starter",
		PriceUSD: decimal.NewFromInt(price),
		Active:   true,
	}
	require.NoError(t, packages.Create(context.Background(), pkg))
	bus := events.NewBus(64)
	svc := NewPaymentService(repo, packages, tier.NewCatalog(), bus, &auditStub{}, time.Hour)
	return &fixture{svc: svc, repo: repo, pkg: pkg, bus: bus}
}

func buyer(id int64, t tier.Tier) *usermodels.User {
	return &usermodels.User{ID: id, Username: "alice", Tier: t, Role: usermodels.RoleUser}
}

func operator() *usermodels.User {
	return &usermodels.User{ID: 999, Username: "op", Role: usermodels.RoleOperator}
}

func TestCreateIntentFreezesCommission(t *testing.T) {
	f := newFixture(t, 250000)
	ctx := context.Background()

	payment, err := f.svc.CreateIntent(ctx, buyer(1, tier.TierGold), &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(250000)))
	assert.True(t, payment.Commission.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
}

func TestCommissionSurvivesTierChange(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	user := buyer(1, tier.TierBronze)
	payment, err := f.svc.CreateIntent(ctx, user, &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)
	assert.True(t, payment.Commission.Equal(decimal.NewFromInt(50)))

	// A later tier change must not touch the frozen commission.
	user.Tier = tier.TierGold
	resolved, err := f.svc.Resolve(ctx, operator(), payment.ID, models.OutcomeCompleted)
	require.NoError(t, err)
	assert.True(t, resolved.Commission.Equal(decimal.NewFromInt(50)))
}

func TestUnknownTierFallsBackToLowestRate(t *testing.T) {
	f := newFixture(t, 1000)

	payment, err := f.svc.CreateIntent(context.Background(), buyer(1, tier.Tier("mystery")), &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)
	assert.True(t, payment.Commission.Equal(decimal.NewFromInt(50)))
}

func TestAmountCopiedFromCanonicalPrice(t *testing.T) {
	repo := memory.New()
	packages := catalogmemory.New()
	// The display strings deliberately disagree with the numeric price;
	// only price_usd may feed arithmetic.
	pkg := &catalogmodels.Package{
		ID:          "pkg-display",
		Name:        "Mismatch",
		PriceUSD:    decimal.NewFromInt(2000),
		UsdtDisplay: "1,500 USDT",
		BtcDisplay:  "0.05 BTC",
		Active:      true,
	}
	require.NoError(t, packages.Create(context.Background(), pkg))
	svc := NewPaymentService(repo, packages, tier.NewCatalog(), events.NewBus(8), &auditStub{}, time.Hour)

	payment, err := svc.CreateIntent(context.Background(), buyer(1, tier.TierBronze), &models.CreateIntentRequest{
		PackageID:   pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(2000)))
}

func TestSecondPendingIntentRefused(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	user := buyer(1, tier.TierBronze)

	_, err := f.svc.CreateIntent(ctx, user, &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateIntent(ctx, user, &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDuplicatePending, apperrors.CodeOf(err))
}

func TestIntentAllowedAfterResolution(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	user := buyer(1, tier.TierBronze)

	first, err := f.svc.CreateIntent(ctx, user, &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, operator(), first.ID, models.OutcomeFailed)
	require.NoError(t, err)

	// The window only counts pending intents; a resolved one does not block.
	_, err = f.svc.CreateIntent(ctx, user, &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)
}

func TestConcurrentIntentsOneWinner(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	user := buyer(1, tier.TierBronze)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateIntent(ctx, user, &models.CreateIntentRequest{
				PackageID:   f.pkg.ID,
				BuyerWallet: testWallet,
			})
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.Equal(t, apperrors.ErrCodeDuplicatePending, apperrors.CodeOf(err))
		}
	}
	assert.Equal(t, 1, ok)
}

func TestResolveTwiceRefused(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	payment, err := f.svc.CreateIntent(ctx, buyer(1, tier.TierBronze), &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, operator(), payment.ID, models.OutcomeCompleted)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, operator(), payment.ID, models.OutcomeFailed)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAlreadyResolved, apperrors.CodeOf(err))

	got, err := f.svc.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, got.Status)
}

func TestResolveRequiresCapability(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	user := buyer(1, tier.TierBronze)

	payment, err := f.svc.CreateIntent(ctx, user, &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: testWallet,
	})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, user, payment.ID, models.OutcomeCompleted)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))
}

func TestCreateIntentUnknownPackage(t *testing.T) {
	f := newFixture(t, 1000)

	_, err := f.svc.CreateIntent(context.Background(), buyer(1, tier.TierBronze), &models.CreateIntentRequest{
		PackageID:   "missing",
		BuyerWallet: testWallet,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePackageNotFound, apperrors.CodeOf(err))
}

func TestCreateIntentInvalidWallet(t *testing.T) {
	f := newFixture(t, 1000)

	_, err := f.svc.CreateIntent(context.Background(), buyer(1, tier.TierBronze), &models.CreateIntentRequest{
		PackageID:   f.pkg.ID,
		BuyerWallet: "not-a-wallet",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidWallet, apperrors.CodeOf(err))
}

func TestAggregateAgreesWithList(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		u := buyer(i, tier.TierSilver)
		p, err := f.svc.CreateIntent(ctx, u, &models.CreateIntentRequest{
			PackageID:   f.pkg.ID,
			BuyerWallet: testWallet,
		})
		require.NoError(t, err)
		if i == 1 {
			_, err = f.svc.Resolve(ctx, operator(), p.ID, models.OutcomeCompleted)
			require.NoError(t, err)
		}
	}

	pending := models.PaymentStatusPending
	filter := models.Filter{Status: &pending}

	list, err := f.svc.List(ctx, filter)
	require.NoError(t, err)
	agg, err := f.svc.Aggregate(ctx, filter)
	require.NoError(t, err)

	assert.Equal(t, int64(len(list)), agg.Count)
	sum := decimal.Zero
	for _, p := range list {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, agg.SumAmount.Equal(sum))
}
