package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MrEthical07/goExpense/internal/logger"
	"github.com/MrEthical07/goExpense/ledger"
	"github.com/MrEthical07/goExpense/users"

	goExpense "github.com/MrEthical07/goExpense"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Status: "success", Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, envelope{Status: "failure", Message: message, Error: code})
}

// decodeJSON reads a single JSON object, rejecting unknown fields and trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

func badRequest(w http.ResponseWriter) {
	writeFailure(w, http.StatusBadRequest, "malformed request body", "bad_request")
}

// writeError maps domain sentinels to statuses. Unknown errors are logged and reported as 500
// without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.From(r.Context()).ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="goexpense"`)
	}
	writeFailure(w, status, message, code)
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, goExpense.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials", "invalid_credentials"
	case errors.Is(err, goExpense.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized", "unauthenticated"
	case errors.Is(err, goExpense.ErrLoginRateLimited), errors.Is(err, goExpense.ErrRefreshRateLimited):
		return http.StatusTooManyRequests, "too many attempts, try again later", "rate_limited"
	case errors.Is(err, goExpense.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable", "unavailable"

	case errors.Is(err, users.ErrInvalidInput):
		return http.StatusBadRequest, err.Error(), "invalid_input"
	case errors.Is(err, users.ErrUsernameTaken):
		return http.StatusConflict, "username already taken", "username_taken"
	case errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound, "user not found", "not_found"
	case errors.Is(err, users.ErrWrongPassword):
		return http.StatusForbidden, "current password is incorrect", "wrong_password"

	case errors.Is(err, ledger.ErrInvalidInput), errors.Is(err, ledger.ErrInvalidFilter):
		return http.StatusBadRequest, err.Error(), "invalid_input"
	case errors.Is(err, ledger.ErrCategoryExists):
		return http.StatusConflict, "category already exists", "category_exists"
	case errors.Is(err, ledger.ErrCategoryNotFound):
		return http.StatusNotFound, "invalid category_id", "category_not_found"
	}
	return http.StatusInternalServerError, "internal error", "internal"
}
