// Package httpapi is the HTTP surface of the expense server: auth endpoints backed by the session
// engine, account management, the ledger and operational probes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	goExpense "github.com/MrEthical07/goExpense"
	"github.com/MrEthical07/goExpense/ledger"
	"github.com/MrEthical07/goExpense/middleware"
	"github.com/MrEthical07/goExpense/users"
)

// AuthEngine is the part of *goExpense.Engine the handlers use.
type AuthEngine interface {
	middleware.Validator
	Login(ctx context.Context, identifier, secret string) (*goExpense.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*goExpense.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, subjectID string) error
	ActiveSessions(ctx context.Context, subjectID string) ([]goExpense.Session, error)
}

// UserService is satisfied by *users.Service.
type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.User, error)
	Me(ctx context.Context, subjectID string) (*users.User, error)
	UpdateProfile(ctx context.Context, subjectID string, in users.UpdateProfileInput) (*users.User, error)
	ChangePassword(ctx context.Context, subjectID, current, next string) error
	Delete(ctx context.Context, subjectID string) error
}

// CategoryStore is satisfied by *ledger.Categories.
type CategoryStore interface {
	Create(ctx context.Context, ownerID string, in ledger.CategoryInput) (*ledger.Category, error)
	Update(ctx context.Context, ownerID, categoryID string, in ledger.CategoryInput) (*ledger.Category, error)
	Fetch(ctx context.Context, ownerID string, f ledger.Filters) ([]ledger.Category, error)
}

// TransactionStore is satisfied by *ledger.Transactions.
type TransactionStore interface {
	Create(ctx context.Context, ownerID string, in ledger.TransactionInput) (*ledger.Transaction, error)
	Fetch(ctx context.Context, ownerID string, f ledger.Filters) ([]ledger.Transaction, error)
}

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options wires the router. Users, Categories and Transactions are optional; their routes are
// only mounted when set.
type Options struct {
	Logger            *slog.Logger
	Engine            AuthEngine
	Users             UserService
	Categories        CategoryStore
	Transactions      TransactionStore
	HealthChecks      []HealthCheck
	Metrics           http.Handler
	TrustProxyHeaders bool
	Timeout           time.Duration
}

// NewRouter builds the chi router with middleware and routes.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(requestLogger(opts.Logger))
	r.Use(recoverer)
	r.Use(clientContext)
	if opts.Timeout > 0 {
		r.Use(chimw.Timeout(opts.Timeout))
	}

	h := &handlers{opts: opts}

	r.Get("/livez", h.livez)
	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)

	if opts.Users != nil {
		r.Post("/users/register", h.register)
	}

	// Account-level operations always check the session, even on a jwt_only engine.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStrict(opts.Engine))

		r.Post("/auth/logout-all", h.logoutAll)
		if opts.Users != nil {
			r.Delete("/users/me", h.deleteAccount)
			r.Post("/users/me/password", h.changePassword)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(opts.Engine))

		r.Get("/auth/sessions", h.sessions)

		if opts.Users != nil {
			r.Get("/users/me", h.me)
			r.Put("/users/me", h.updateProfile)
		}

		if opts.Categories != nil {
			r.Route("/categories", func(r chi.Router) {
				r.Post("/", h.createCategory)
				r.Post("/fetch", h.fetchCategories)
				r.Put("/{id}", h.updateCategory)
			})
		}

		if opts.Transactions != nil {
			r.Route("/transactions", func(r chi.Router) {
				r.Post("/", h.createTransaction)
				r.Post("/fetch", h.fetchTransactions)
			})
		}
	})

	return r
}

type handlers struct {
	opts Options
}
