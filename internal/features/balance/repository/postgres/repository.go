package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"referral-backend/internal/features/balance/models"
	"referral-backend/internal/features/balance/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.BalanceRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDeposit(ctx context.Context, notice *models.DepositNotice) error {
	query := `
		INSERT INTO deposit_notices (id, user_id, amount, tx_reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		notice.ID, notice.UserID, notice.Amount, notice.TxReference,
		notice.Status, notice.CreatedAt, notice.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deposit notice: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetDeposit(ctx context.Context, id string) (*models.DepositNotice, error) {
	query := `
		SELECT id, user_id, amount, tx_reference, status, confirmed_at, created_at, updated_at
		FROM deposit_notices
		WHERE id = $1
	`
	var n models.DepositNotice
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.Amount, &n.TxReference, &n.Status,
		&n.ConfirmedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to get deposit notice: %w", err)
	}
	return &n, nil
}

func (r *postgresRepository) ResolveDeposit(ctx context.Context, id string, status models.DepositStatus, now time.Time) (*models.DepositNotice, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var confirmedAt *time.Time
	if status == models.DepositStatusConfirmed {
		confirmedAt = &now
	}

	query := `
		UPDATE deposit_notices
		SET status = $1, confirmed_at = $2, updated_at = $3
		WHERE id = $4 AND status = 'pending'
		RETURNING id, user_id, amount, tx_reference, status, confirmed_at, created_at, updated_at
	`
	var n models.DepositNotice
	err = tx.QueryRowContext(ctx, query, status, confirmedAt, now, id).Scan(
		&n.ID, &n.UserID, &n.Amount, &n.TxReference, &n.Status,
		&n.ConfirmedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to resolve deposit notice: %w", err)
		}
		var existing models.DepositStatus
		err = r.db.QueryRowContext(ctx, `SELECT status FROM deposit_notices WHERE id = $1`, id).Scan(&existing)
		if err == sql.ErrNoRows {
			return nil, repository.ErrDepositNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check deposit status: %w", err)
		}
		return nil, repository.ErrAlreadyResolved
	}

	if status == models.DepositStatusConfirmed {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO balance_entries (id, user_id, kind, amount, reference, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), n.UserID, models.EntryKindDeposit, n.Amount, n.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to credit deposit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deposit resolution: %w", err)
	}
	return &n, nil
}

func (r *postgresRepository) ListDeposits(ctx context.Context, filter repository.DepositFilter) ([]*models.DepositNotice, error) {
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

	query := `
		SELECT id, user_id, amount, tx_reference, status, confirmed_at, created_at, updated_at
		FROM deposit_notices`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposit notices: %w", err)
	}
	defer rows.Close()

	var notices []*models.DepositNotice
	for rows.Next() {
		var n models.DepositNotice
		if err := rows.Scan(&n.ID, &n.UserID, &n.Amount, &n.TxReference, &n.Status,
			&n.ConfirmedAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit notice: %w", err)
		}
		notices = append(notices, &n)
	}
	return notices, rows.Err()
}

// CreateWithdrawal validates the requested amount against the user's
// available balance inside one transaction. The row lock on the user
// serializes concurrent balance operations for that user.
func (r *postgresRepository) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, req.UserID).Scan(&lockedID); err != nil {
		return fmt.Errorf("failed to lock user row: %w", err)
	}

	var settled, held decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM balance_entries WHERE user_id = $1
	`, req.UserID).Scan(&settled)
	if err != nil {
		return fmt.Errorf("failed to sum balance entries: %w", err)
	}
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests
		WHERE user_id = $1 AND status IN ('pending', 'approved')
	`, req.UserID).Scan(&held)
	if err != nil {
		return fmt.Errorf("failed to sum withdrawal holds: %w", err)
	}

	if req.Amount.GreaterThan(settled.Sub(held)) {
		return repository.ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO withdrawal_requests (id, user_id, amount, wallet, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, req.UserID, req.Amount, req.Wallet, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepository) GetWithdrawal(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	query := `
		SELECT id, user_id, amount, wallet, status, approved_at, paid_at, created_at, updated_at
		FROM withdrawal_requests
		WHERE id = $1
	`
	var w models.WithdrawalRequest
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.UserID, &w.Amount, &w.Wallet, &w.Status,
		&w.ApprovedAt, &w.PaidAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return &w, nil
}

func (r *postgresRepository) ResolveWithdrawal(ctx context.Context, id string, next models.WithdrawalStatus, now time.Time) (*models.WithdrawalRequest, error) {
	var from models.WithdrawalStatus
	switch next {
	case models.WithdrawalStatusApproved, models.WithdrawalStatusRejected:
		from = models.WithdrawalStatusPending
	case models.WithdrawalStatusPaid:
		from = models.WithdrawalStatusApproved
	default:
		return nil, repository.ErrInvalidTransition
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	setClause := `status = $1, updated_at = $2`
	args := []interface{}{next, now}
	switch next {
	case models.WithdrawalStatusApproved:
		setClause += `, approved_at = $3`
		args = append(args, now)
	case models.WithdrawalStatusPaid:
		setClause += `, paid_at = $3`
		args = append(args, now)
	}
	args = append(args, id, from)

	query := fmt.Sprintf(`
		UPDATE withdrawal_requests
		SET %s
		WHERE id = $%d AND status = $%d
		RETURNING id, user_id, amount, wallet, status, approved_at, paid_at, created_at, updated_at
	`, setClause, len(args)-1, len(args))

	var w models.WithdrawalRequest
	err = tx.QueryRowContext(ctx, query, args...).Scan(
		&w.ID, &w.UserID, &w.Amount, &w.Wallet, &w.Status,
		&w.ApprovedAt, &w.PaidAt, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to resolve withdrawal: %w", err)
		}
		var existing models.WithdrawalStatus
		err = r.db.QueryRowContext(ctx, `SELECT status FROM withdrawal_requests WHERE id = $1`, id).Scan(&existing)
		if err == sql.ErrNoRows {
			return nil, repository.ErrWithdrawalNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check withdrawal status: %w", err)
		}
		if existing.Terminal() {
			return nil, repository.ErrAlreadyResolved
		}
		return nil, repository.ErrInvalidTransition
	}

	if next == models.WithdrawalStatusPaid {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO balance_entries (id, user_id, kind, amount, reference, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), w.UserID, models.EntryKindWithdrawal, w.Amount.Neg(), w.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to debit withdrawal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal resolution: %w", err)
	}
	return &w, nil
}

func (r *postgresRepository) ListWithdrawals(ctx context.Context, filter repository.WithdrawalFilter) ([]*models.WithdrawalRequest, error) {
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

	query := `
		SELECT id, user_id, amount, wallet, status, approved_at, paid_at, created_at, updated_at
		FROM withdrawal_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.WithdrawalRequest
	for rows.Next() {
		var w models.WithdrawalRequest
		if err := rows.Scan(&w.ID, &w.UserID, &w.Amount, &w.Wallet, &w.Status,
			&w.ApprovedAt, &w.PaidAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, &w)
	}
	return requests, rows.Err()
}

func (r *postgresRepository) InsertEntry(ctx context.Context, entry *models.BalanceEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO balance_entries (id, user_id, kind, amount, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.Kind, entry.Amount, entry.Reference, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert balance entry: %w", err)
	}
	return nil
}

func (r *postgresRepository) Balance(ctx context.Context, userID int64) (*models.BalanceSummary, error) {
	var settled, held decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM balance_entries WHERE user_id = $1
	`, userID).Scan(&settled)
	if err != nil {
		return nil, fmt.Errorf("failed to sum balance entries: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests
		WHERE user_id = $1 AND status IN ('pending', 'approved')
	`, userID).Scan(&held)
	if err != nil {
		return nil, fmt.Errorf("failed to sum withdrawal holds: %w", err)
	}

	return &models.BalanceSummary{
		Settled:   settled,
		Held:      held,
		Available: settled.Sub(held),
	}, nil
}
