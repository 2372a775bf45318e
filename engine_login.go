package goExpense

import (
	"context"
	"fmt"
	"strconv"

	internalflows "github.com/MrEthical07/goExpense/internal/flows"
)

// Login verifies credentials and opens a new session.
//
// Unknown identifiers and wrong secrets both return [ErrInvalidCredentials]. An exhausted
// failed-login budget returns [ErrLoginRateLimited] without consulting the user provider.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Login(ctx, identifier, secret)
	switch res.Failure {
	case internalflows.LoginFailureNone:
	case internalflows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, nil)
		return nil, ErrLoginRateLimited
	case internalflows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, reason("invalid_credentials"))
		return nil, ErrInvalidCredentials
	case internalflows.LoginFailureLimiter, internalflows.LoginFailureProvider, internalflows.LoginFailureStore:
		e.metricInc(MetricLoginFailure)
		err := e.backendUnavailable(ctx, "login", res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.SubjectID, "", err, reason("backend_unavailable"))
		return nil, err
	case internalflows.LoginFailureDuplicateTokenID:
		e.metricInc(MetricLoginFailure)
		return nil, e.tokenIntegrityFault(ctx, res.SubjectID, res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.log.ErrorContext(ctx, "login token issuance failed", "subject_id", res.SubjectID, "error", res.Err)
		return nil, fmt.Errorf("login: %w", res.Err)
	}

	pair := res.Pair
	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	if res.Superseded > 0 {
		e.metricAdd(MetricSessionRevoked, res.Superseded)
		e.emitAudit(ctx, auditEventSessionSuperseded, true, res.SubjectID, pair.RefreshID, nil, func() map[string]string {
			return map[string]string{"revoked": strconv.Itoa(res.Superseded)}
		})
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.SubjectID, pair.RefreshID, nil, nil)

	return toTokenPair(pair), nil
}
