package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"referral-backend/internal/features/user/models"
	"referral-backend/internal/features/user/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.UserRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, first_name, last_name, tier, role, verified, kyc_status,
			payout_wallet, commission_wallet, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = EXCLUDED.updated_at
		RETURNING id, username, first_name, last_name, tier, role, verified, kyc_status,
			payout_wallet, commission_wallet, created_at, updated_at
	`
	var u models.User
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.FirstName, user.LastName,
		user.Tier, user.Role, user.Verified, user.KYCStatus,
		user.PayoutWallet, user.CommissionWallet, user.CreatedAt, user.UpdatedAt,
	).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Tier, &u.Role,
		&u.Verified, &u.KYCStatus, &u.PayoutWallet, &u.CommissionWallet,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &u, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, first_name, last_name, tier, role, verified, kyc_status,
			payout_wallet, commission_wallet, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Tier, &u.Role,
		&u.Verified, &u.KYCStatus, &u.PayoutWallet, &u.CommissionWallet,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *postgresRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = $1, first_name = $2, last_name = $3, tier = $4, role = $5,
			verified = $6, kyc_status = $7, payout_wallet = $8, commission_wallet = $9,
			updated_at = $10
		WHERE id = $11
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Username, user.FirstName, user.LastName, user.Tier, user.Role,
		user.Verified, user.KYCStatus, user.PayoutWallet, user.CommissionWallet,
		user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, username, first_name, last_name, tier, role, verified, kyc_status,
			payout_wallet, commission_wallet, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Tier, &u.Role,
			&u.Verified, &u.KYCStatus, &u.PayoutWallet, &u.CommissionWallet,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (r *postgresRepository) AddSecurityEvent(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, user_id, kind, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.UserID, event.Kind, event.Metadata, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add security event: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListSecurityEvents(ctx context.Context, userID int64, limit int) ([]*models.SecurityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, kind, metadata, created_at
		FROM security_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	defer rows.Close()

	var out []*models.SecurityEvent
	for rows.Next() {
		var e models.SecurityEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
