package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"referral-backend/internal/features/catalog/models"
	"referral-backend/internal/features/catalog/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.PackageRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, pkg *models.Package) error {
	query := `
		INSERT INTO packages (id, name, price_usd, usdt_display, btc_display, duration_days, transfer_count, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		pkg.ID, pkg.Name, pkg.PriceUSD, pkg.UsdtDisplay, pkg.BtcDisplay,
		pkg.DurationDays, pkg.TransferCount, pkg.Active, pkg.CreatedAt, pkg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.Package, error) {
	query := `
		SELECT id, name, price_usd, usdt_display, btc_display, duration_days, transfer_count, active, created_at, updated_at
		FROM packages
		WHERE id = $1
	`

	var pkg models.Package
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pkg.ID, &pkg.Name, &pkg.PriceUSD, &pkg.UsdtDisplay, &pkg.BtcDisplay,
		&pkg.DurationDays, &pkg.TransferCount, &pkg.Active, &pkg.CreatedAt, &pkg.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get package: %w", err)
	}
	return &pkg, nil
}

func (r *postgresRepository) Update(ctx context.Context, pkg *models.Package) error {
	query := `
		UPDATE packages
		SET name = $1, price_usd = $2, usdt_display = $3, btc_display = $4,
			duration_days = $5, transfer_count = $6, active = $7, updated_at = $8
		WHERE id = $9
	`
	res, err := r.db.ExecContext(ctx, query,
		pkg.Name, pkg.PriceUSD, pkg.UsdtDisplay, pkg.BtcDisplay,
		pkg.DurationDays, pkg.TransferCount, pkg.Active, pkg.UpdatedAt, pkg.ID)
	if err != nil {
		return fmt.Errorf("failed to update package: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, includeInactive bool) ([]*models.Package, error) {
	query := `
		SELECT id, name, price_usd, usdt_display, btc_display, duration_days, transfer_count, active, created_at, updated_at
		FROM packages
	`
	if !includeInactive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []*models.Package
	for rows.Next() {
		var pkg models.Package
		if err := rows.Scan(&pkg.ID, &pkg.Name, &pkg.PriceUSD, &pkg.UsdtDisplay, &pkg.BtcDisplay,
			&pkg.DurationDays, &pkg.TransferCount, &pkg.Active, &pkg.CreatedAt, &pkg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, &pkg)
	}
	return packages, rows.Err()
}
