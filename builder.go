package goExpense

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalflows "github.com/MrEthical07/goExpense/internal/flows"
	"github.com/MrEthical07/goExpense/internal/ids"
	"github.com/MrEthical07/goExpense/internal/rate"
	"github.com/MrEthical07/goExpense/jwt"
	"github.com/MrEthical07/goExpense/tokenstore"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization, call Build once, then
// discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  tokenstore.Store

	userProvider UserProvider
	auditSink    AuditSink
	logger       *slog.Logger
	now          func() time.Time
	newTokenID   func() (string, error)

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the default token store and the rate limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenStore replaces the Redis token store. Rate limiting still needs WithRedis.
func (b *Builder) WithTokenStore(store tokenstore.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the audit destination. It only takes effect when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.logger = log
	return b
}

// WithClock overrides the time source of the engine, its token codec and the Redis store.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) withTokenIDSource(fn func() (string, error)) *Builder {
	b.newTokenID = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
//
// Build fails when the builder was already used, the config is invalid, no user provider was set,
// or neither a Redis client nor a token store is available.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if b.redis == nil && b.store == nil {
		return nil, errors.New("redis client or token store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	log := b.logger
	if log == nil {
		log = slog.Default()
	}
	newTokenID := b.newTokenID
	if newTokenID == nil {
		newTokenID = ids.NewTokenID
	}

	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- TOKEN STORE --------
	store := b.store
	if store == nil {
		store = tokenstore.NewRedisStore(b.redis, cfg.Session.RedisPrefix).WithClock(now)
	}

	engine := &Engine{
		config:       cfg,
		store:        store,
		jwtManager:   jm,
		userProvider: b.userProvider,
		log:          log,
		now:          now,
		metrics:      NewMetrics(cfg.Metrics),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
	}

	// -------- RATE LIMITER --------
	if b.redis != nil {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                  cfg.Session.RedisPrefix,
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		})
	}

	engine.flows = internalflows.New(engine.flowDeps(newTokenID))

	b.built = true

	return engine, nil
}

func (e *Engine) flowDeps(newTokenID func() (string, error)) internalflows.Deps {
	tokens := internalflows.TokenDeps{
		Codec:      e.jwtManager,
		Store:      e.store,
		NewTokenID: newTokenID,
		Now:        e.now,
		AccessTTL:  e.config.JWT.AccessTTL,
		RefreshTTL: e.config.JWT.RefreshTTL,
	}
	isRateLimited := func(err error) bool { return errors.Is(err, rate.ErrRateLimited) }

	deps := internalflows.Deps{
		Login: internalflows.LoginDeps{
			Tokens:            tokens,
			VerifyCredentials: e.userProvider.VerifyCredentials,
			ClientIP:          clientIPFromContext,
			IsRateLimited:     isRateLimited,
			SingleSession:     e.config.Session.SingleSession,
			Warn:              e.log.Warn,
		},
		Validate: internalflows.ValidateDeps{
			Tokens:           tokens,
			ResolveRouteMode: e.resolveRouteMode,
			ModeStrict:       int(ModeStrict),
			UserActive:       e.userActive,
		},
		Refresh: internalflows.RefreshDeps{
			Tokens:        tokens,
			IsRateLimited: isRateLimited,
			UserActive:    e.userActive,
			Warn:          e.log.Warn,
		},
		Logout: internalflows.LogoutDeps{
			Tokens: tokens,
		},
	}
	// A nil *rate.Limiter must stay a nil interface.
	if e.rateLimiter != nil {
		deps.Login.Limiter = e.rateLimiter
		deps.Refresh.Limiter = e.rateLimiter
	}
	return deps
}

func (e *Engine) userActive(ctx context.Context, subjectID string) (bool, error) {
	user, err := e.userProvider.GetUser(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}
