package http

import (
	"fmt"
	"net/http"
	"strconv"

	"tally/internal/core"
)

type expenseListResponse struct {
	Expenses []core.Expense `json:"expenses"`
	Filters  core.Filters   `json:"filters"`
	Total    int            `json:"total"`
}

// handleListExpenses returns the filtered view plus the active criteria.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses := s.coordinator.Filtered()
	writeJSON(w, http.StatusOK, expenseListResponse{
		Expenses: expenses,
		Filters:  s.coordinator.Filters(),
		Total:    len(expenses),
	})
}

type validationResponse struct {
	Errors core.FieldErrors `json:"errors"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.Description = sanitizeInput(in.Description)

	expense, errs := s.coordinator.AddExpense(r.Context(), in)
	if errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

type expensePatchRequest struct {
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

// toPatch converts the raw request fields, collecting per-field errors
// the same way creation does.
func (p expensePatchRequest) toPatch() (core.ExpensePatch, core.FieldErrors) {
	var patch core.ExpensePatch
	errs := core.FieldErrors{}

	if p.Amount != nil {
		cents, err := core.ParseAmountToCents(*p.Amount)
		if err != nil {
			errs["amount"] = err.Error()
		} else {
			patch.Amount = &core.Money{Cents: cents}
		}
	}
	if p.Category != nil {
		category, err := core.ParseCategory(*p.Category)
		if err != nil {
			errs["category"] = err.Error()
		} else {
			patch.Category = &category
		}
	}
	if p.Description != nil {
		desc := sanitizeInput(*p.Description)
		patch.Description = &desc
	}
	if p.Date != nil {
		date, err := core.ParseDate(*p.Date)
		if err != nil {
			errs["date"] = err.Error()
		} else {
			patch.Date = &date
		}
	}

	if len(errs) > 0 {
		return core.ExpensePatch{}, errs
	}
	return patch, nil
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req expensePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patch, errs := req.toPatch()
	if errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		return
	}

	if errs := s.coordinator.UpdateExpense(r.Context(), id, patch); errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		return
	}
	// Unknown ids are a silent no-op; the response is the same shape
	// either way.
	writeJSON(w, http.StatusOK, s.coordinator.Expenses())
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	s.coordinator.DeleteExpense(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleSummary serves the derived summary, memoized per revision.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	key := strconv.FormatUint(s.coordinator.Revision(), 10)
	if summary, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, summary)
		return
	}
	summary := s.coordinator.Summary()
	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.Filters())
}

type filterPatchRequest struct {
	Search   *string `json:"search"`
	Category *string `json:"category"`
	DateFrom *string `json:"date_from"`
	DateTo   *string `json:"date_to"`
}

func (p filterPatchRequest) toPatch() (core.FilterPatch, error) {
	var patch core.FilterPatch
	if p.Search != nil {
		patch.Search = p.Search
	}
	if p.Category != nil {
		category := core.Category(*p.Category)
		if category != core.CategoryAll && !category.IsValid() {
			return core.FilterPatch{}, fmt.Errorf("unknown category %q", *p.Category)
		}
		patch.Category = &category
	}
	if p.DateFrom != nil {
		if *p.DateFrom == "" {
			patch.DateFrom = &core.Date{}
		} else {
			date, err := core.ParseDate(*p.DateFrom)
			if err != nil {
				return core.FilterPatch{}, fmt.Errorf("invalid date_from: %w", err)
			}
			patch.DateFrom = &date
		}
	}
	if p.DateTo != nil {
		if *p.DateTo == "" {
			patch.DateTo = &core.Date{}
		} else {
			date, err := core.ParseDate(*p.DateTo)
			if err != nil {
				return core.FilterPatch{}, fmt.Errorf("invalid date_to: %w", err)
			}
			patch.DateTo = &date
		}
	}
	return patch, nil
}

func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	var req filterPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.coordinator.SetFilters(patch)
	writeJSON(w, http.StatusOK, s.coordinator.Filters())
}

func (s *Server) handleResetFilters(w http.ResponseWriter, r *http.Request) {
	s.coordinator.ResetFilters()
	writeJSON(w, http.StatusOK, s.coordinator.Filters())
}
