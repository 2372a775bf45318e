package goExpense

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	internalflows "github.com/MrEthical07/goExpense/internal/flows"
	"github.com/MrEthical07/goExpense/internal/rate"
	"github.com/MrEthical07/goExpense/jwt"
	"github.com/MrEthical07/goExpense/tokenstore"
)

// Engine issues, validates, rotates and revokes session tokens. Build it with [New]; it is safe
// for concurrent use.
type Engine struct {
	config       Config
	store        tokenstore.Store
	rateLimiter  *rate.Limiter
	jwtManager   *jwt.Manager
	userProvider UserProvider
	audit        *auditDispatcher
	metrics      *Metrics
	log          *slog.Logger
	now          func() time.Time
	flows        internalflows.Service
}

// Close flushes and stops the audit dispatcher. The Redis client is owned by the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Health pings the token store.
func (e *Engine) Health(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Config returns a copy of the engine configuration with key material removed.
func (e *Engine) Config() Config {
	cfg := cloneConfig(e.config)
	cfg.JWT.PrivateKey = nil
	cfg.JWT.VerifyKeys = nil
	return cfg
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) resolveRouteMode(routeMode int) (int, bool) {
	return internalflows.ResolveRouteMode(routeMode, int(e.config.ValidationMode), internalflows.ModeResolverConfig{
		ModeInherit: int(ModeInherit),
		ModeJWTOnly: int(ModeJWTOnly),
		ModeStrict:  int(ModeStrict),
	})
}

func (e *Engine) tokenIntegrityFault(ctx context.Context, subjectID string, err error) error {
	e.metricInc(MetricTokenIntegrityFault)
	e.log.ErrorContext(ctx, "generated token id already registered", "subject_id", subjectID, "error", err)
	e.emitAudit(ctx, auditEventTokenIntegrityFault, false, subjectID, "", ErrTokenIntegrity, nil)
	return ErrTokenIntegrity
}

func (e *Engine) backendUnavailable(ctx context.Context, op string, err error) error {
	e.metricInc(MetricBackendUnavailable)
	e.log.WarnContext(ctx, "session backend unavailable", "op", op, "error", err)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func toTokenPair(p *internalflows.IssuedPair) *TokenPair {
	return &TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
		SessionID:        p.RefreshID,
		SubjectID:        p.SubjectID,
	}
}
