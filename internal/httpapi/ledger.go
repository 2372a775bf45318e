package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/goExpense/ledger"
	"github.com/MrEthical07/goExpense/middleware"
)

func (h *handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var in ledger.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w)
		return
	}

	c, err := h.opts.Categories.Create(r.Context(), middleware.SubjectID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "category created", c)
}

func (h *handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	var in ledger.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w)
		return
	}

	c, err := h.opts.Categories.Update(r.Context(), middleware.SubjectID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "category updated", c)
}

func (h *handlers) fetchCategories(w http.ResponseWriter, r *http.Request) {
	var f ledger.Filters
	if err := decodeJSON(r, &f); err != nil {
		badRequest(w)
		return
	}

	list, err := h.opts.Categories.Fetch(r.Context(), middleware.SubjectID(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "success", list)
}

func (h *handlers) createTransaction(w http.ResponseWriter, r *http.Request) {
	var in ledger.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w)
		return
	}

	t, err := h.opts.Transactions.Create(r.Context(), middleware.SubjectID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "transaction created", t)
}

func (h *handlers) fetchTransactions(w http.ResponseWriter, r *http.Request) {
	var f ledger.Filters
	if err := decodeJSON(r, &f); err != nil {
		badRequest(w)
		return
	}

	list, err := h.opts.Transactions.Fetch(r.Context(), middleware.SubjectID(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "success", list)
}
