package goExpense

import (
	"context"
	"time"

	internalflows "github.com/MrEthical07/goExpense/internal/flows"
)

// Authenticate validates an access token using the engine's default validation mode.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*AuthResult, error) {
	return e.Validate(ctx, accessToken, ModeInherit)
}

// Validate validates an access token under routeMode. [ModeInherit] uses the engine default.
//
// In [ModeStrict] the session named by the token must still be active, so logout and replay
// revocation take effect immediately. [ModeJWTOnly] trusts the signature and expiry.
// Every token failure returns [ErrUnauthenticated]. Backend failures fail closed.
func (e *Engine) Validate(ctx context.Context, accessToken string, routeMode RouteMode) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	res := e.flows.Validate(ctx, accessToken, int(routeMode))
	switch res.Failure {
	case internalflows.ValidateFailureNone:
	case internalflows.ValidateFailureInvalidRouteMode:
		return nil, ErrInvalidRouteMode
	case internalflows.ValidateFailureStore, internalflows.ValidateFailureProvider:
		e.metricInc(MetricAuthenticateFailure)
		_ = e.backendUnavailable(ctx, "authenticate", res.Err)
		return nil, ErrUnauthenticated
	default:
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrUnauthenticated
	}

	e.metricInc(MetricAuthenticateSuccess)
	return &AuthResult{
		SubjectID: res.Claims.Subject,
		SessionID: res.Claims.SessionID,
		TokenID:   res.Claims.TokenID,
		IssuedAt:  res.Claims.IssuedAt,
		ExpiresAt: res.Claims.ExpiresAt,
	}, nil
}
