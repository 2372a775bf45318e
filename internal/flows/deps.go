package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goExpense/jwt"
	"github.com/MrEthical07/goExpense/tokenstore"
)

// TokenCodec signs and verifies tokens. *jwt.Manager satisfies it.
type TokenCodec interface {
	Issue(c jwt.Claims) (string, error)
	Decode(tokenStr string) (*jwt.Claims, error)
}

// TokenDeps is shared by every flow that issues or checks tokens.
type TokenDeps struct {
	Codec      TokenCodec
	Store      tokenstore.Store
	NewTokenID func() (string, error)
	Now        func() time.Time
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// CredentialVerifier checks a login secret. ok=false with a nil error means the
// credentials did not match.
type CredentialVerifier func(ctx context.Context, identifier, secret string) (subjectID string, ok bool, err error)

// UserActiveFunc reports whether subjectID still names a live user.
type UserActiveFunc func(ctx context.Context, subjectID string) (bool, error)

type LoginLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

type RefreshLimiter interface {
	CheckRefresh(ctx context.Context, tokenID string) error
}

// Deps groups flow dependency sets. The root engine builds this once and delegates request
// methods to the matching flow.
type Deps struct {
	Login    LoginDeps
	Validate ValidateDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
}
