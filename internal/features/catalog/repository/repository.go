package repository

import (
	"context"
	"errors"

	"referral-backend/internal/features/catalog/models"
)

var ErrNotFound = errors.New("package not found")

// PackageRepository owns the read-mostly package catalog.
type PackageRepository interface {
	Create(ctx context.Context, pkg *models.Package) error
	GetByID(ctx context.Context, id string) (*models.Package, error)
	Update(ctx context.Context, pkg *models.Package) error
	Delete(ctx context.Context, id string) error
	// List returns packages newest first; inactive ones only when asked.
	List(ctx context.Context, includeInactive bool) ([]*models.Package, error)
}
