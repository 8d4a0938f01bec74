package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"financebro/internal/core"
)

type transactionRequest struct {
	Amount      string           `json:"amount"`
	Direction   string           `json:"direction"`
	Category    core.CategoryRef `json:"category,omitempty"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
	Frequency   string           `json:"frequency,omitempty"`
}

type transactionView struct {
	ID               string  `json:"id"`
	Amount           float64 `json:"amount"`
	AmountCents      int64   `json:"amount_cents"`
	Direction        string  `json:"direction"`
	CategoryID       string  `json:"category_id,omitempty"`
	Description      string  `json:"description"`
	Date             string  `json:"date"`
	IsTemplate       bool    `json:"is_template"`
	Frequency        string  `json:"frequency,omitempty"`
	LastGenerated    string  `json:"last_generated,omitempty"`
	ParentTemplateID string  `json:"parent_template_id,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

func toTransactionView(t core.Transaction) transactionView {
	v := transactionView{
		ID:               t.ID,
		Amount:           t.Amount.Units(),
		AmountCents:      t.Amount.Cents,
		Direction:        string(t.Direction),
		CategoryID:       t.CategoryID,
		Description:      t.Description,
		Date:             t.Date.Format(dateLayout),
		IsTemplate:       t.IsTemplate,
		Frequency:        string(t.Frequency),
		ParentTemplateID: t.ParentTemplateID,
		CreatedAt:        t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !t.LastGenerated.IsZero() {
		v.LastGenerated = t.LastGenerated.Format(dateLayout)
	}
	return v
}

const dateLayout = "2006-01-02"

func parseDateParam(s string) (core.Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: t}, nil
}

// monthQuery reads ?year=&month= falling back to the current month.
func monthQuery(r *http.Request) (int, int) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && v >= 1970 && v <= 9999 {
		year = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && v >= 1 && v <= 12 {
		month = v
	}
	return year, month
}

func (s *Server) transactionFromRequest(r *http.Request, req transactionRequest, isTemplate bool) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDateParam(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		OwnerID:     userID(r),
		Amount:      core.Money{Cents: cents},
		Direction:   core.Direction(req.Direction),
		CategoryID:  req.Category.Normalize(),
		Description: sanitizeInput(req.Description),
		Date:        date,
		IsTemplate:  isTemplate,
		Frequency:   core.Frequency(req.Frequency),
	}
	return t, t.Validate()
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	year, month := monthQuery(r)

	// Opportunistic catch-up: materialize any recurring transactions that
	// have come due since the owner's last visit. Failures here must not
	// block the listing.
	if generated, err := s.recurring.ProcessOwner(r.Context(), owner); err != nil {
		slog.WarnContext(r.Context(), "Recurring catch-up failed", "error", err, "owner_id", owner)
	} else if generated > 0 {
		s.summaryCache.Delete(summaryKey(owner, year, month))
	}

	transactions, err := s.transactions.List(r.Context(), owner, year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]transactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, toTransactionView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.transactionFromRequest(r, req, false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.summaryCache.Delete(summaryKey(t.OwnerID, t.Date.Year(), t.Date.Month()))
	writeJSON(w, http.StatusCreated, toTransactionView(created))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	id := r.PathValue("id")

	t, err := s.storage.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if t.OwnerID != owner {
		writeDomainError(w, r, core.ErrNotOwner)
		return
	}

	if err := s.transactions.Delete(r.Context(), owner, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.summaryCache.Delete(summaryKey(owner, t.Date.Year(), t.Date.Month()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.transactions.ListTemplates(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]transactionView, 0, len(templates))
	for _, t := range templates {
		views = append(views, toTransactionView(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.transactionFromRequest(r, req, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionView(created))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	// Templates share the transactions table; deleting one stops future
	// generation but leaves already-spawned instances untouched.
	s.handleDeleteTransaction(w, r)
}
