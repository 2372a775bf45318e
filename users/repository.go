package users

import (
	"context"
	"time"
)

// Repository persists users. Lookups never return soft-deleted users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	ByID(ctx context.Context, id string) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, id, username, email string, now time.Time) (*User, error)
	UpdatePassword(ctx context.Context, id, hash string, now time.Time) error
	SoftDelete(ctx context.Context, id string, now time.Time) error
	Ping(ctx context.Context) error
}
