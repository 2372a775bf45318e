package goExpense

import (
	"context"
	"time"
)

// User is the view of an account the session engine needs. It is owned by the user collaborator;
// the engine reads it and never mutates it.
type User struct {
	ID       string
	Username string
	Email    string
	Role     string
}

// UserProvider is the user collaborator consumed by the engine.
//
// VerifyCredentials must spend the same time for unknown identifiers as for wrong secrets and
// must report both as ok=false with a nil error. GetUser returns (nil, nil) for missing or
// deleted users. Errors are reserved for backend failures.
type UserProvider interface {
	VerifyCredentials(ctx context.Context, identifier, secret string) (subjectID string, ok bool, err error)
	GetUser(ctx context.Context, subjectID string) (*User, error)
}

// TokenPair is the result of Login and Refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	// SessionID is the id of the refresh token in the pair. Access tokens carry it as "sid".
	SessionID string
	SubjectID string
}

// AuthResult is returned by [Engine.Authenticate] and [Engine.Validate].
type AuthResult struct {
	SubjectID string
	SessionID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session describes one active refresh-token entry of a subject.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}
