package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goExpense/jwt"
	"github.com/MrEthical07/goExpense/tokenstore"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureWrongType
	RefreshFailureRateLimited
	RefreshFailureLimiter
	RefreshFailureNotFound
	RefreshFailureSubjectMismatch
	RefreshFailureReplay
	RefreshFailureUserMissing
	RefreshFailureProvider
	RefreshFailureIssue
	RefreshFailureDuplicateTokenID
	RefreshFailureStore
)

// RefreshResult carries either the issued pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	SubjectID string
	// TokenID is the presented refresh token id, set once decoding succeeded.
	TokenID string
	Pair    *IssuedPair
	// Revoked counts entries revoked by replay handling.
	Revoked int
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Tokens        TokenDeps
	Limiter       RefreshLimiter
	IsRateLimited func(error) bool
	UserActive    UserActiveFunc
	Warn          func(string, ...any)
}

// RunRefresh exchanges an active refresh token for a new pair. Presenting a rotated or revoked
// token is treated as replay and revokes every session of the subject.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.Tokens.Codec.Decode(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	if claims.Type != jwt.TypeRefresh {
		return RefreshResult{Failure: RefreshFailureWrongType, SubjectID: claims.Subject}
	}

	base := RefreshResult{SubjectID: claims.Subject, TokenID: claims.TokenID}
	fail := func(kind RefreshFailureKind, err error) RefreshResult {
		r := base
		r.Failure = kind
		r.Err = err
		return r
	}

	if deps.Limiter != nil {
		if err := deps.Limiter.CheckRefresh(ctx, claims.TokenID); err != nil {
			if deps.IsRateLimited != nil && deps.IsRateLimited(err) {
				return fail(RefreshFailureRateLimited, err)
			}
			return fail(RefreshFailureLimiter, err)
		}
	}

	entry, err := deps.Tokens.Store.Lookup(ctx, claims.TokenID)
	switch {
	case errors.Is(err, tokenstore.ErrNotFound):
		return fail(RefreshFailureNotFound, err)
	case err != nil:
		return fail(RefreshFailureStore, err)
	}
	if entry.SubjectID != claims.Subject {
		return fail(RefreshFailureSubjectMismatch, nil)
	}
	if !entry.Active(deps.Tokens.Now()) {
		return replay(ctx, deps, base, tokenstore.ErrTokenReuseDetected)
	}

	if deps.UserActive != nil {
		active, err := deps.UserActive(ctx, claims.Subject)
		if err != nil {
			return fail(RefreshFailureProvider, err)
		}
		if !active {
			if revErr := deps.Tokens.Store.Revoke(ctx, claims.TokenID); revErr != nil && deps.Warn != nil {
				deps.Warn("revoke of orphaned refresh entry failed", "error", revErr)
			}
			return fail(RefreshFailureUserMissing, nil)
		}
	}

	pair, err := issuePair(deps.Tokens, claims.Subject)
	if err != nil {
		return fail(RefreshFailureIssue, err)
	}

	if _, err := deps.Tokens.Store.Rotate(ctx, claims.TokenID, pair.RefreshID, pair.RefreshExpiresAt); err != nil {
		switch {
		case errors.Is(err, tokenstore.ErrTokenReuseDetected):
			return replay(ctx, deps, base, err)
		case errors.Is(err, tokenstore.ErrNotFound):
			return fail(RefreshFailureNotFound, err)
		case errors.Is(err, tokenstore.ErrDuplicateTokenID):
			return fail(RefreshFailureDuplicateTokenID, err)
		default:
			return fail(RefreshFailureStore, err)
		}
	}

	base.Pair = pair
	return base
}

func replay(ctx context.Context, deps RefreshDeps, base RefreshResult, cause error) RefreshResult {
	base.Failure = RefreshFailureReplay
	base.Err = cause

	n, err := deps.Tokens.Store.RevokeAll(ctx, base.SubjectID)
	if err != nil && deps.Warn != nil {
		deps.Warn("revoke-all after refresh replay failed", "subject_id", base.SubjectID, "error", err)
	}
	base.Revoked = n
	return base
}
