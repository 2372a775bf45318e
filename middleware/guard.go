package middleware

import (
	"context"
	"net/http"
	"strings"

	goExpense "github.com/MrEthical07/goExpense"
)

// Validator is the part of *goExpense.Engine the guards need.
type Validator interface {
	Validate(ctx context.Context, accessToken string, routeMode goExpense.RouteMode) (*goExpense.AuthResult, error)
}

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by a guard.
func AuthResultFromContext(ctx context.Context) (*goExpense.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goExpense.AuthResult)
	return res, ok && res != nil
}

// SubjectID returns the authenticated subject or "".
func SubjectID(ctx context.Context) string {
	if res, ok := AuthResultFromContext(ctx); ok {
		return res.SubjectID
	}
	return ""
}

// WithAuthResult stores res in ctx. Handlers under test use it to skip the guard.
func WithAuthResult(ctx context.Context, res *goExpense.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

func Guard(v Validator, routeMode goExpense.RouteMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			res, err := v.Validate(r.Context(), token, routeMode)
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// RequireAuth guards with the engine's configured validation mode.
func RequireAuth(v Validator) func(http.Handler) http.Handler {
	return Guard(v, goExpense.ModeInherit)
}

// RequireStrict demands an active session whatever the engine default is.
func RequireStrict(v Validator) func(http.Handler) http.Handler {
	return Guard(v, goExpense.ModeStrict)
}

// RequireJWTOnly skips the session lookup. Logged-out sessions pass until their access tokens
// expire.
func RequireJWTOnly(v Validator) func(http.Handler) http.Handler {
	return Guard(v, goExpense.ModeJWTOnly)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="goexpense"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"status":"failure","message":"unauthorized"}` + "\n"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
