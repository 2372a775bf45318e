package users

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests and the load generator.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*User
	names map[string]string
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  map[string]*User{},
		names: map[string]string{},
	}
}

func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[u.Username]; ok {
		return fmt.Errorf("users/memory.Create: %w", ErrUsernameTaken)
	}
	if _, ok := r.byID[u.ID]; ok {
		return fmt.Errorf("users/memory.Create: duplicate id %q", u.ID)
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.names[u.Username] = u.ID
	return nil
}

func (r *MemoryRepository) ByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok || u.Deleted() {
		return nil, fmt.Errorf("users/memory.ByID: %w", ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) ByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.RLock()
	id, ok := r.names[username]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("users/memory.ByUsername: %w", ErrNotFound)
	}
	return r.ByID(ctx, id)
}

func (r *MemoryRepository) UpdateProfile(_ context.Context, id, username, email string, now time.Time) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.Deleted() {
		return nil, fmt.Errorf("users/memory.UpdateProfile: %w", ErrNotFound)
	}
	if owner, taken := r.names[username]; taken && owner != id {
		return nil, fmt.Errorf("users/memory.UpdateProfile: %w", ErrUsernameTaken)
	}
	delete(r.names, u.Username)
	u.Username = username
	u.Email = email
	u.UpdatedAt = now
	r.names[username] = id

	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id, hash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.Deleted() {
		return fmt.Errorf("users/memory.UpdatePassword: %w", ErrNotFound)
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	return nil
}

func (r *MemoryRepository) SoftDelete(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.Deleted() {
		return fmt.Errorf("users/memory.SoftDelete: %w", ErrNotFound)
	}
	delete(r.names, u.Username)
	u.Username = deletedUsername(u.Username, id)
	u.DeletedAt = &now
	u.UpdatedAt = now
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
