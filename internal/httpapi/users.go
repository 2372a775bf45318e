package httpapi

import (
	"net/http"

	"github.com/MrEthical07/goExpense/middleware"
	"github.com/MrEthical07/goExpense/users"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w)
		return
	}

	u, err := h.opts.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "user registered", u)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.opts.Users.Me(r.Context(), middleware.SubjectID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "success", u)
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in users.UpdateProfileInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w)
		return
	}

	u, err := h.opts.Users.UpdateProfile(r.Context(), middleware.SubjectID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "profile updated", u)
}

func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w)
		return
	}

	err := h.opts.Users.ChangePassword(r.Context(), middleware.SubjectID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Users.Delete(r.Context(), middleware.SubjectID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
