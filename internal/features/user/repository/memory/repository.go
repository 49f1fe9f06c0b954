package memory

import (
	"context"
	"sort"
	"sync"

	"referral-backend/internal/features/user/models"
	"referral-backend/internal/features/user/repository"
)

// Repository is an in-memory UserRepository used in tests.
type Repository struct {
	mu     sync.Mutex
	users  map[int64]*models.User
	events []*models.SecurityEvent
}

func New() *Repository {
	return &Repository{users: make(map[int64]*models.User)}
}

func (r *Repository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		cp := *user
		r.users[user.ID] = &cp
		out := cp
		return &out, nil
	}

	existing.Username = user.Username
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.UpdatedAt = user.UpdatedAt
	cp := *existing
	return &cp, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Repository) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *Repository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.User
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) AddSecurityEvent(ctx context.Context, event *models.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *Repository) ListSecurityEvents(ctx context.Context, userID int64, limit int) ([]*models.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*models.SecurityEvent
	for _, e := range r.events {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
