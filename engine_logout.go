package goExpense

import (
	"context"
	"strconv"
	"strings"
)

// Logout revokes the session of refreshToken. Tokens that do not decode, are not refresh
// tokens, or name an already retired session are accepted silently. Only backend failures
// return an error.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, refreshToken)
	if res.Ignored {
		return nil
	}
	if res.Err != nil {
		return e.backendUnavailable(ctx, "logout", res.Err)
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventLogoutSession, true, res.SubjectID, res.TokenID, nil, nil)
	return nil
}

// LogoutAll revokes every active session of subjectID.
func (e *Engine) LogoutAll(ctx context.Context, subjectID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if strings.TrimSpace(subjectID) == "" {
		return ErrUnauthenticated
	}

	n, err := e.flows.LogoutAll(ctx, subjectID)
	if err != nil {
		return e.backendUnavailable(ctx, "logout_all", err)
	}

	e.metricInc(MetricLogoutAll)
	e.metricAdd(MetricSessionRevoked, n)
	e.emitAudit(ctx, auditEventLogoutAll, true, subjectID, "", nil, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(n)}
	})
	return nil
}

// ActiveSessions lists the subject's active sessions, oldest first.
func (e *Engine) ActiveSessions(ctx context.Context, subjectID string) ([]Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	entries, err := e.flows.ActiveSessions(ctx, subjectID)
	if err != nil {
		return nil, e.backendUnavailable(ctx, "active_sessions", err)
	}

	out := make([]Session, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Session{
			ID:        entry.TokenID,
			CreatedAt: entry.CreatedAt,
			ExpiresAt: entry.ExpiresAt,
		})
	}
	return out, nil
}
