package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goExpense/jwt"
	"github.com/MrEthical07/goExpense/tokenstore"
)

// ModeResolverConfig lets the root package pass its validation-mode enum values without this
// package importing them.
type ModeResolverConfig struct {
	ModeInherit int
	ModeJWTOnly int
	ModeStrict  int
}

// ResolveRouteMode resolves a route mode override against the engine default mode.
func ResolveRouteMode(routeMode, engineMode int, cfg ModeResolverConfig) (int, bool) {
	switch routeMode {
	case cfg.ModeInherit:
		switch engineMode {
		case cfg.ModeJWTOnly, cfg.ModeStrict:
			return engineMode, true
		default:
			return 0, false
		}
	case cfg.ModeJWTOnly:
		return cfg.ModeJWTOnly, true
	case cfg.ModeStrict:
		return cfg.ModeStrict, true
	default:
		return 0, false
	}
}

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureDecode
	ValidateFailureWrongType
	ValidateFailureInvalidRouteMode
	ValidateFailureSessionInactive
	ValidateFailureStore
	ValidateFailureUserMissing
	ValidateFailureProvider
)

// ValidateResult returns either the verified claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	Tokens           TokenDeps
	ResolveRouteMode func(int) (int, bool)
	ModeStrict       int
	UserActive       UserActiveFunc
}

// RunValidate verifies an access token. In strict mode the refresh entry named by the sid
// claim must be active and belong to the same subject.
func RunValidate(ctx context.Context, tokenStr string, routeMode int, deps ValidateDeps) ValidateResult {
	claims, err := deps.Tokens.Codec.Decode(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureDecode, Err: err}
	}
	if claims.Type != jwt.TypeAccess {
		return ValidateResult{Failure: ValidateFailureWrongType}
	}

	mode, ok := deps.ResolveRouteMode(routeMode)
	if !ok {
		return ValidateResult{Failure: ValidateFailureInvalidRouteMode}
	}

	if mode == deps.ModeStrict {
		if claims.SessionID == "" {
			return ValidateResult{Failure: ValidateFailureSessionInactive, Claims: claims}
		}
		entry, err := deps.Tokens.Store.Lookup(ctx, claims.SessionID)
		switch {
		case errors.Is(err, tokenstore.ErrNotFound):
			return ValidateResult{Failure: ValidateFailureSessionInactive, Claims: claims}
		case err != nil:
			return ValidateResult{Failure: ValidateFailureStore, Err: err, Claims: claims}
		}
		if entry.SubjectID != claims.Subject || !entry.Active(deps.Tokens.Now()) {
			return ValidateResult{Failure: ValidateFailureSessionInactive, Claims: claims}
		}
	}

	if deps.UserActive != nil {
		active, err := deps.UserActive(ctx, claims.Subject)
		if err != nil {
			return ValidateResult{Failure: ValidateFailureProvider, Err: err, Claims: claims}
		}
		if !active {
			return ValidateResult{Failure: ValidateFailureUserMissing, Claims: claims}
		}
	}

	return ValidateResult{Claims: claims}
}
