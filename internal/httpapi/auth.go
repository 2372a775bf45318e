package httpapi

import (
	"math"
	"net/http"
	"time"

	goExpense "github.com/MrEthical07/goExpense"
	"github.com/MrEthical07/goExpense/internal/logger"
	"github.com/MrEthical07/goExpense/middleware"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

type sessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current"`
}

func newTokenResponse(p *goExpense.TokenPair) tokenResponse {
	now := time.Now()
	return tokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        secondsUntil(now, p.AccessExpiresAt),
		RefreshExpiresIn: secondsUntil(now, p.RefreshExpiresAt),
	}
}

func secondsUntil(now, t time.Time) int64 {
	d := t.Sub(now).Seconds()
	if d <= 0 {
		return 0
	}
	return int64(math.Round(d))
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	pair, err := h.opts.Engine.Login(r.Context(), req.Identifier, req.Secret)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	pair, err := h.opts.Engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

// logout always answers 204 so clients cannot probe token state through it.
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err == nil && req.RefreshToken != "" {
		if err := h.opts.Engine.Logout(r.Context(), req.RefreshToken); err != nil {
			logger.From(r.Context()).WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) sessions(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())

	list, err := h.opts.Engine.ActiveSessions(r.Context(), res.SubjectID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, sessionResponse{
			SessionID: s.ID,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			Current:   s.ID == res.SessionID,
		})
	}
	writeSuccess(w, http.StatusOK, "active sessions", out)
}

func (h *handlers) logoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Engine.LogoutAll(r.Context(), middleware.SubjectID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
