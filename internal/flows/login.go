package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goExpense/tokenstore"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureLimiter
	LoginFailureProvider
	LoginFailureIssue
	LoginFailureDuplicateTokenID
	LoginFailureStore
)

// LoginResult carries either the issued pair or failure metadata.
type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	SubjectID string
	Pair      *IssuedPair
	// Superseded is the number of sessions revoked by a single-session login.
	Superseded int
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Tokens            TokenDeps
	VerifyCredentials CredentialVerifier
	Limiter           LoginLimiter
	ClientIP          func(context.Context) string
	IsRateLimited     func(error) bool
	SingleSession     bool
	Warn              func(string, ...any)
}

// RunLogin checks the limiter, verifies credentials, issues a pair and registers its refresh
// entry.
func RunLogin(ctx context.Context, identifier, secret string, deps LoginDeps) LoginResult {
	ip := ""
	if deps.ClientIP != nil {
		ip = deps.ClientIP(ctx)
	}

	if deps.Limiter != nil {
		if err := deps.Limiter.CheckLogin(ctx, identifier, ip); err != nil {
			if deps.IsRateLimited != nil && deps.IsRateLimited(err) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			return LoginResult{Failure: LoginFailureLimiter, Err: err}
		}
	}

	subjectID, ok, err := deps.VerifyCredentials(ctx, identifier, secret)
	if err != nil {
		return LoginResult{Failure: LoginFailureProvider, Err: err}
	}
	if !ok || subjectID == "" {
		if deps.Limiter != nil {
			if incErr := deps.Limiter.IncrementLogin(ctx, identifier, ip); incErr != nil {
				if deps.IsRateLimited != nil && deps.IsRateLimited(incErr) {
					return LoginResult{Failure: LoginFailureRateLimited, Err: incErr}
				}
				if deps.Warn != nil {
					deps.Warn("login attempt counter update failed", "error", incErr)
				}
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials}
	}

	pair, err := issuePair(deps.Tokens, subjectID)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, SubjectID: subjectID}
	}

	superseded := 0
	if deps.SingleSession {
		superseded, err = deps.Tokens.Store.RegisterExclusive(ctx, pair.RefreshID, subjectID, pair.RefreshExpiresAt)
	} else {
		err = deps.Tokens.Store.Register(ctx, pair.RefreshID, subjectID, pair.RefreshExpiresAt)
	}
	if err != nil {
		if errors.Is(err, tokenstore.ErrDuplicateTokenID) {
			return LoginResult{Failure: LoginFailureDuplicateTokenID, Err: err, SubjectID: subjectID}
		}
		return LoginResult{Failure: LoginFailureStore, Err: err, SubjectID: subjectID}
	}

	if deps.Limiter != nil {
		if err := deps.Limiter.ResetLogin(ctx, identifier, ip); err != nil && deps.Warn != nil {
			deps.Warn("login attempt counter reset failed", "error", err)
		}
	}

	return LoginResult{SubjectID: subjectID, Pair: pair, Superseded: superseded}
}
