package http

import (
	"net/http"
	"time"

	"financebro/internal/core"
)

type goalRequest struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

type depositRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

type goalView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Target       float64 `json:"target"`
	TargetCents  int64   `json:"target_cents"`
	Current      float64 `json:"current"`
	CurrentCents int64   `json:"current_cents"`
	Progress     float64 `json:"progress"`
	CreatedAt    string  `json:"created_at"`
}

type depositView struct {
	ID          string  `json:"id"`
	GoalID      string  `json:"goal_id"`
	Amount      float64 `json:"amount"`
	AmountCents int64   `json:"amount_cents"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"created_at"`
}

type goalDetailView struct {
	goalView
	Deposits []depositView `json:"deposits"`
}

type depositResponse struct {
	Deposit depositView `json:"deposit"`
	Goal    goalView    `json:"goal"`
}

func toGoalView(g core.SavingsGoal) goalView {
	v := goalView{
		ID:           g.ID,
		Name:         g.Name,
		Target:       g.Target.Units(),
		TargetCents:  g.Target.Cents,
		Current:      g.Current.Units(),
		CurrentCents: g.Current.Cents,
		CreatedAt:    g.CreatedAt.UTC().Format(time.RFC3339),
	}
	if g.Target.Cents > 0 {
		v.Progress = float64(g.Current.Cents) / float64(g.Target.Cents)
	}
	return v
}

func toDepositView(d core.SavingsDeposit) depositView {
	return depositView{
		ID:          d.ID,
		GoalID:      d.GoalID,
		Amount:      d.Amount.Units(),
		AmountCents: d.Amount.Cents,
		Date:        d.Date.Format(dateLayout),
		CreatedAt:   d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.goals.ListGoals(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, toGoalView(g))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Target)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	goal, err := s.goals.CreateGoal(r.Context(), userID(r), sanitizeInput(req.Name), core.Money{Cents: cents})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalView(goal))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, deposits, err := s.goals.GetGoal(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	detail := goalDetailView{
		goalView: toGoalView(goal),
		Deposits: make([]depositView, 0, len(deposits)),
	}
	for _, d := range deposits {
		detail.Deposits = append(detail.Deposits, toDepositView(d))
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if _, err := s.goals.DeleteGoal(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	date, err := parseDateParam(req.Date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	dep, goal, err := s.goals.AddDeposit(r.Context(), userID(r), r.PathValue("id"), core.Money{Cents: cents}, date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, depositResponse{
		Deposit: toDepositView(dep),
		Goal:    toGoalView(goal),
	})
}

func (s *Server) handleRemoveDeposit(w http.ResponseWriter, r *http.Request) {
	goal, err := s.goals.RemoveDeposit(r.Context(), userID(r), r.PathValue("id"), r.PathValue("depositID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalView(goal))
}
