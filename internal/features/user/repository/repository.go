package repository

import (
	"context"
	"errors"

	"referral-backend/internal/features/user/models"
)

var ErrNotFound = errors.New("user not found")

// UserRepository owns users and their append-only security event trail.
type UserRepository interface {
	// Upsert creates the user on first contact and refreshes the profile
	// fields on subsequent logins. Tier, role, KYC status and wallets are
	// preserved on update.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)

	AddSecurityEvent(ctx context.Context, event *models.SecurityEvent) error
	ListSecurityEvents(ctx context.Context, userID int64, limit int) ([]*models.SecurityEvent, error)
}
