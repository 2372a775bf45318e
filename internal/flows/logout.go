package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goExpense/jwt"
	"github.com/MrEthical07/goExpense/tokenstore"
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Tokens TokenDeps
}

// LogoutResult reports what a logout revoked. Ignored is set when the token could not be
// decoded or was not a refresh token.
type LogoutResult struct {
	Ignored   bool
	SubjectID string
	TokenID   string
	Err       error
}

// RunLogout revokes the entry named by a refresh token. Undecodable or wrong-type tokens are
// ignored so logout is always idempotent from the caller's side.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.Tokens.Codec.Decode(refreshToken)
	if err != nil || claims.Type != jwt.TypeRefresh {
		return LogoutResult{Ignored: true}
	}

	return LogoutResult{
		SubjectID: claims.Subject,
		TokenID:   claims.TokenID,
		Err:       deps.Tokens.Store.Revoke(ctx, claims.TokenID),
	}
}

func RunLogoutAll(ctx context.Context, subjectID string, deps LogoutDeps) (int, error) {
	return deps.Tokens.Store.RevokeAll(ctx, subjectID)
}

func RunActiveSessions(ctx context.Context, subjectID string, deps LogoutDeps) ([]tokenstore.Entry, error) {
	entries, err := deps.Tokens.Store.ActiveSessions(ctx, subjectID)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil, nil
	}
	return entries, err
}
