package goExpense

import "errors"

var (
	// ErrUnauthenticated is the single client-visible outcome of every failed token check.
	// Malformed, forged, expired, rotated and revoked tokens are indistinguishable through it.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials is returned by Login for an unknown identifier or a wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned when the identifier or client IP exhausted its failed-login budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned when a refresh token is presented too often within the window.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrTokenIntegrity is returned when a freshly generated token id already exists in the store.
	// It indicates broken id uniqueness and is a server fault.
	ErrTokenIntegrity = errors.New("token id integrity fault")
	// ErrStoreUnavailable is returned by Login, Refresh and Logout when the token store or a
	// collaborator backend cannot be reached.
	ErrStoreUnavailable = errors.New("session backend unavailable")
	// ErrInvalidRouteMode is returned by Validate for an unknown route mode.
	ErrInvalidRouteMode = errors.New("invalid route validation mode")
	// ErrEngineNotReady is returned by methods called on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
