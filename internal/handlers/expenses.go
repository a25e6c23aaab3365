package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"depenses/internal/models"
	"depenses/internal/repository"
)

type createExpenseRequest struct {
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Hour     string `json:"hour"`
	Minute   string `json:"minute"`
}

type createExpenseResponse struct {
	ID int64 `json:"id"`
}

// CreateExpense adds an expense for the authenticated user.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user := userFromContext(r)
	id, err := h.repo.Add(r.Context(), user.ID, repository.AddInput{
		Name:     req.Name,
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date,
		Hour:     req.Hour,
		Minute:   req.Minute,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createExpenseResponse{ID: id})
}

// DeleteExpense removes one of the authenticated user's expenses.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	user := userFromContext(r)
	if err := h.repo.Remove(r.Context(), user.ID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type listExpensesResponse struct {
	Expenses []models.Expense `json:"expenses"`
}

// ListExpenses returns the user's expenses filtered by the period and
// category query parameters, in display order.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	expenses, err := h.repo.Query(r.Context(), user.ID, queryPeriod(r), queryCategory(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listExpensesResponse{Expenses: expenses})
}

func queryPeriod(r *http.Request) repository.Period {
	if p := r.URL.Query().Get("period"); p != "" {
		return repository.Period(p)
	}
	return repository.PeriodAll
}

func queryCategory(r *http.Request) string {
	if c := r.URL.Query().Get("category"); c != "" {
		return c
	}
	return repository.AllCategories
}
