package goExpense

import (
	"context"
	"fmt"
	"strconv"

	internalflows "github.com/MrEthical07/goExpense/internal/flows"
)

// Refresh exchanges a refresh token for a new pair and retires the presented one.
//
// Presenting a token that was already rotated or revoked revokes every session of its subject.
// The caller only ever sees [ErrUnauthenticated] for it.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Refresh(ctx, refreshToken)
	switch res.Failure {
	case internalflows.RefreshFailureNone:
	case internalflows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, res.SubjectID, res.TokenID, ErrRefreshRateLimited, nil)
		return nil, ErrRefreshRateLimited
	case internalflows.RefreshFailureReplay:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.metricAdd(MetricSessionRevoked, res.Revoked)
		e.log.WarnContext(ctx, "refresh token replay detected",
			"subject_id", res.SubjectID,
			"token_id", res.TokenID,
			"revoked", res.Revoked,
		)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.SubjectID, res.TokenID, errRefreshReuse, func() map[string]string {
			return map[string]string{"revoked": strconv.Itoa(res.Revoked)}
		})
		return nil, ErrUnauthenticated
	case internalflows.RefreshFailureUserMissing:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricSessionRevoked)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.SubjectID, res.TokenID, ErrUnauthenticated, reason("user_missing"))
		return nil, ErrUnauthenticated
	case internalflows.RefreshFailureLimiter, internalflows.RefreshFailureProvider, internalflows.RefreshFailureStore:
		e.metricInc(MetricRefreshFailure)
		return nil, e.backendUnavailable(ctx, "refresh", res.Err)
	case internalflows.RefreshFailureDuplicateTokenID:
		e.metricInc(MetricRefreshFailure)
		return nil, e.tokenIntegrityFault(ctx, res.SubjectID, res.Err)
	case internalflows.RefreshFailureIssue:
		e.metricInc(MetricRefreshFailure)
		e.log.ErrorContext(ctx, "refresh token issuance failed", "subject_id", res.SubjectID, "error", res.Err)
		return nil, fmt.Errorf("refresh: %w", res.Err)
	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.SubjectID, res.TokenID, ErrUnauthenticated, reason(refreshFailureReason(res.Failure)))
		return nil, ErrUnauthenticated
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.SubjectID, res.Pair.RefreshID, nil, func() map[string]string {
		return map[string]string{"previous_session_id": res.TokenID}
	})
	return toTokenPair(res.Pair), nil
}

func refreshFailureReason(kind internalflows.RefreshFailureKind) string {
	switch kind {
	case internalflows.RefreshFailureDecode:
		return "decode"
	case internalflows.RefreshFailureWrongType:
		return "wrong_type"
	case internalflows.RefreshFailureNotFound:
		return "not_found"
	case internalflows.RefreshFailureSubjectMismatch:
		return "subject_mismatch"
	default:
		return "unknown"
	}
}
