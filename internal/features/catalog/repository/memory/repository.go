package memory

import (
	"context"
	"sort"
	"sync"

	"referral-backend/internal/features/catalog/models"
	"referral-backend/internal/features/catalog/repository"
)

// Repository is an in-memory PackageRepository used in tests.
type Repository struct {
	mu       sync.Mutex
	packages map[string]*models.Package
}

func New() *Repository {
	return &Repository{packages: make(map[string]*models.Package)}
}

func (r *Repository) Create(ctx context.Context, pkg *models.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *pkg
	r.packages[pkg.ID] = &cp
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pkg, ok := r.packages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *pkg
	return &cp, nil
}

func (r *Repository) Update(ctx context.Context, pkg *models.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packages[pkg.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *pkg
	r.packages[pkg.ID] = &cp
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.packages, id)
	return nil
}

func (r *Repository) List(ctx context.Context, includeInactive bool) ([]*models.Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Package
	for _, pkg := range r.packages {
		if !includeInactive && !pkg.Active {
			continue
		}
		cp := *pkg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
