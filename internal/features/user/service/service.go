package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "referral-backend/internal/common/errors"
	"referral-backend/internal/common/logger"
	"referral-backend/internal/common/validation"
	"referral-backend/internal/features/tier"
	"referral-backend/internal/features/user/models"
	"referral-backend/internal/features/user/repository"
)

// Profile is the identity extracted from the authentication layer.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

type UserService interface {
	// EnsureUser upserts the caller on login and returns the stored user.
	EnsureUser(ctx context.Context, profile *Profile) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, actor *models.User) ([]*models.User, error)

	SubmitKYC(ctx context.Context, user *models.User, submission *models.KYCSubmission) (*models.User, error)
	DecideKYC(ctx context.Context, actor *models.User, userID int64, approved bool) (*models.User, error)
	SetTier(ctx context.Context, actor *models.User, userID int64, t tier.Tier) (*models.User, error)
	SetWallets(ctx context.Context, user *models.User, payout, commission string) (*models.User, error)

	// Record appends an audit event; failures are logged, never returned.
	Record(ctx context.Context, userID int64, kind models.SecurityEventKind, metadata map[string]interface{})
	ListSecurityEvents(ctx context.Context, actor *models.User, userID int64, limit int) ([]*models.SecurityEvent, error)
}

type userService struct {
	repo    repository.UserRepository
	tiers   *tier.Catalog
	isAdmin func(int64) bool
}

func NewUserService(repo repository.UserRepository, tiers *tier.Catalog, isAdmin func(int64) bool) UserService {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &userService{repo: repo, tiers: tiers, isAdmin: isAdmin}
}

func (s *userService) EnsureUser(ctx context.Context, profile *Profile) (*models.User, error) {
	now := time.Now()
	role := models.RoleUser
	if s.isAdmin(profile.ID) {
		role = models.RoleOperator
	}

	user, err := s.repo.Upsert(ctx, &models.User{
		ID:        profile.ID,
		Username:  profile.Username,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Tier:      tier.TierBronze,
		Role:      role,
		KYCStatus: models.KYCStatusNone,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("upsert user", err)
	}

	// Role comes from config, not storage, so promotions apply on restart.
	if user.Role != role {
		user.Role = role
		user.UpdatedAt = now
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, apperrors.NewDatabaseError("update user role", err)
		}
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrCodeUserNotFound, "user not found")
		}
		return nil, apperrors.NewDatabaseError("get user", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, actor *models.User) ([]*models.User, error) {
	if actor == nil || !models.HasCapability(actor.Role, models.CapManageUsers) {
		return nil, apperrors.NewForbiddenError()
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list users", err)
	}
	return users, nil
}

// SubmitKYC moves the user into the pending review state. Re-submission is
// allowed from any decided state but not while a review is open.
func (s *userService) SubmitKYC(ctx context.Context, user *models.User, submission *models.KYCSubmission) (*models.User, error) {
	if user == nil {
		return nil, apperrors.NewUnauthenticatedError("caller not resolved")
	}
	if len(submission.DocumentURLs) == 0 {
		return nil, apperrors.NewValidationError("document_urls", "at least one document is required")
	}
	if !user.CanSubmitKYC() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidTransition, "a review is already in progress")
	}

	user.KYCStatus = models.KYCStatusPending
	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError("update user kyc", err)
	}

	s.Record(ctx, user.ID, models.EventKindKYCSubmitted, map[string]interface{}{
		"documents": len(submission.DocumentURLs),
	})
	return user, nil
}

func (s *userService) DecideKYC(ctx context.Context, actor *models.User, userID int64, approved bool) (*models.User, error) {
	if actor == nil || !models.HasCapability(actor.Role, models.CapManageUsers) {
		return nil, apperrors.NewForbiddenError()
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.KYCStatus != models.KYCStatusPending {
		return nil, apperrors.New(apperrors.ErrCodeInvalidTransition, "no review in progress")
	}

	if approved {
		user.KYCStatus = models.KYCStatusApproved
		user.Verified = true
	} else {
		user.KYCStatus = models.KYCStatusRejected
	}
	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError("update user kyc", err)
	}

	s.Record(ctx, user.ID, models.EventKindKYCDecided, map[string]interface{}{
		"approved": approved,
		"actor_id": actor.ID,
	})
	return user, nil
}

func (s *userService) SetTier(ctx context.Context, actor *models.User, userID int64, t tier.Tier) (*models.User, error) {
	if actor == nil || !models.HasCapability(actor.Role, models.CapManageUsers) {
		return nil, apperrors.NewForbiddenError()
	}
	if !s.tiers.Known(t) {
		return nil, apperrors.NewValidationError("tier", "unknown tier")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.Tier
	user.Tier = t
	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError("update user tier", err)
	}

	s.Record(ctx, user.ID, models.EventKindTierChanged, map[string]interface{}{
		"from":     string(previous),
		"to":       string(t),
		"actor_id": actor.ID,
	})
	return user, nil
}

func (s *userService) SetWallets(ctx context.Context, user *models.User, payout, commission string) (*models.User, error) {
	if user == nil {
		return nil, apperrors.NewUnauthenticatedError("caller not resolved")
	}
	if payout != "" {
		if err := validation.ValidateWallet(payout); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidWallet, "invalid payout wallet")
		}
		user.PayoutWallet = payout
	}
	if commission != "" {
		if err := validation.ValidateWallet(commission); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidWallet, "invalid commission wallet")
		}
		user.CommissionWallet = commission
	}
	user.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperrors.NewDatabaseError("update user wallets", err)
	}
	return user, nil
}

func (s *userService) Record(ctx context.Context, userID int64, kind models.SecurityEventKind, metadata map[string]interface{}) {
	var raw json.RawMessage
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			logger.Warn().Err(err).Str("kind", string(kind)).Msg("failed to encode audit metadata")
		} else {
			raw = b
		}
	}
	event := &models.SecurityEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		Metadata:  raw,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AddSecurityEvent(ctx, event); err != nil {
		logger.Error().Err(err).
			Int64("user_id", userID).
			Str("kind", string(kind)).
			Msg("failed to record security event")
	}
}

func (s *userService) ListSecurityEvents(ctx context.Context, actor *models.User, userID int64, limit int) ([]*models.SecurityEvent, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticatedError("caller not resolved")
	}
	if actor.ID != userID && !models.HasCapability(actor.Role, models.CapManageUsers) {
		return nil, apperrors.NewForbiddenError()
	}
	events, err := s.repo.ListSecurityEvents(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list security events", err)
	}
	return events, nil
}
