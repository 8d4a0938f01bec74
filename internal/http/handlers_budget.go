package http

import (
	"net/http"

	"financebro/internal/core"

	"github.com/google/uuid"
)

type categoryRequest struct {
	Name string `json:"name"`
}

type categoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type budgetRequest struct {
	CategoryID string `json:"category_id"`
	Limit      string `json:"limit"`
}

type budgetView struct {
	ID         string  `json:"id"`
	CategoryID string  `json:"category_id"`
	Limit      float64 `json:"limit"`
	LimitCents int64   `json:"limit_cents"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.storage.ListCategories(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, categoryView{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := core.Category{
		ID:      uuid.NewString(),
		OwnerID: userID(r),
		Name:    sanitizeInput(req.Name),
	}
	if err := c.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.storage.CreateCategory(r.Context(), c); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryView{ID: c.ID, Name: c.Name})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteCategory(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.storage.ListBudgets(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, budgetView{
			ID:         b.ID,
			CategoryID: b.CategoryID,
			Limit:      b.Limit.Units(),
			LimitCents: b.Limit.Cents,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	b := core.Budget{
		ID:         uuid.NewString(),
		OwnerID:    userID(r),
		CategoryID: req.CategoryID,
		Limit:      core.Money{Cents: cents},
	}
	if err := b.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.storage.UpsertBudget(r.Context(), b); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetView{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Limit:      b.Limit.Units(),
		LimitCents: b.Limit.Cents,
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.DeleteBudget(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
