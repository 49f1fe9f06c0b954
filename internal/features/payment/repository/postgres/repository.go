package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"referral-backend/internal/features/payment/models"
	"referral-backend/internal/features/payment/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.PaymentRepository {
	return &postgresRepository{db: db}
}

// CreateIntent runs the dedup check and the insert in a single transaction.
// The row lock on the user's pending payments closes the race where two
// concurrent intents both pass the check; a partial unique index on
// (user_id) WHERE status = 'pending' backs this up at the schema level.
func (r *postgresRepository) CreateIntent(ctx context.Context, p *models.Payment, window time.Duration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := p.CreatedAt.Add(-window)

	// Strict '>' on the window start: a payment created exactly at the
	// boundary no longer blocks.
	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM payments
		WHERE user_id = $1 AND status = 'pending' AND created_at > $2
		LIMIT 1
		FOR UPDATE
	`, p.UserID, cutoff).Scan(&existing)
	if err == nil {
		return repository.ErrDuplicatePending
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check pending payments: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, user_id, package_id, amount, commission, buyer_wallet, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.UserID, p.PackageID, p.Amount, p.Commission, p.BuyerWallet, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "payments_one_pending_per_user") {
			return repository.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `
		SELECT id, user_id, package_id, amount, commission, buyer_wallet, status, created_at, updated_at
		FROM payments
		WHERE id = $1
	`

	var p models.Payment
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.PackageID, &p.Amount, &p.Commission,
		&p.BuyerWallet, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &p, nil
}

// Resolve updates only when the row is still pending, so exactly one of two
// concurrent resolutions succeeds.
func (r *postgresRepository) Resolve(ctx context.Context, id string, status models.PaymentStatus, now time.Time) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = 'pending'
		RETURNING id, user_id, package_id, amount, commission, buyer_wallet, status, created_at, updated_at
	`

	var p models.Payment
	err := r.db.QueryRowContext(ctx, query, status, now, id).Scan(
		&p.ID, &p.UserID, &p.PackageID, &p.Amount, &p.Commission,
		&p.BuyerWallet, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == nil {
		return &p, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to resolve payment: %w", err)
	}

	// Zero rows: either the payment does not exist or it is already terminal.
	var existing models.PaymentStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = $1`, id).Scan(&existing)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check payment status: %w", err)
	}
	return nil, repository.ErrAlreadyResolved
}

func buildFilter(filter models.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *postgresRepository) List(ctx context.Context, filter models.Filter) ([]*models.Payment, error) {
	where, args := buildFilter(filter)
	query := `
		SELECT id, user_id, package_id, amount, commission, buyer_wallet, status, created_at, updated_at
		FROM payments` + where + `
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.PackageID, &p.Amount, &p.Commission,
			&p.BuyerWallet, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

func (r *postgresRepository) Aggregate(ctx context.Context, filter models.Filter) (*models.Aggregate, error) {
	where, args := buildFilter(filter)
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0), COALESCE(SUM(commission), 0)
		FROM payments` + where

	var agg models.Aggregate
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&agg.Count, &agg.SumAmount, &agg.SumCommission)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payments: %w", err)
	}
	return &agg, nil
}

func (r *postgresRepository) ExistsForPackage(ctx context.Context, packageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE package_id = $1)`, packageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check package references: %w", err)
	}
	return exists, nil
}
