package tokenstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an entry is absent or past its expiry.
	ErrNotFound = errors.New("token entry not found")
	// ErrTokenReuseDetected is returned by Rotate when the old entry is no longer active.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
	// ErrDuplicateTokenID is returned when an entry with the same token id already exists.
	ErrDuplicateTokenID = errors.New("duplicate token id")
	// ErrInvalidEntry is returned for inputs that cannot form a valid entry.
	ErrInvalidEntry = errors.New("invalid token entry")
	// ErrCorruptEntry is returned when a stored value cannot be decoded.
	ErrCorruptEntry = errors.New("corrupt token entry")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// Store is the authoritative registry of refresh-token validity.
//
// Every mutating method is a single atomic operation on the backend. Implementations must
// never move a rotated or revoked entry back to active.
type Store interface {
	// Register creates an active entry for tokenID.
	Register(ctx context.Context, tokenID, subjectID string, expiresAt time.Time) error
	// RegisterExclusive creates an active entry and revokes every other active entry of the
	// subject in the same atomic step. It returns how many entries were revoked.
	RegisterExclusive(ctx context.Context, tokenID, subjectID string, expiresAt time.Time) (int, error)
	// Lookup returns the current entry or ErrNotFound.
	Lookup(ctx context.Context, tokenID string) (*Entry, error)
	// Rotate marks oldID rotated and creates newID as active for the same subject.
	Rotate(ctx context.Context, oldID, newID string, newExpiresAt time.Time) (*Entry, error)
	// Revoke marks tokenID revoked. Absent or already terminal entries are a no-op.
	Revoke(ctx context.Context, tokenID string) error
	// RevokeAll revokes every active entry of subjectID and returns the count.
	RevokeAll(ctx context.Context, subjectID string) (int, error)
	// ActiveSessions lists the subject's active, unexpired entries.
	ActiveSessions(ctx context.Context, subjectID string) ([]Entry, error)
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}
