package http

import (
	"fmt"
	"net/http"

	"financebro/internal/core"
)

type summaryView struct {
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	Income     float64            `json:"income"`
	Expenses   float64            `json:"expenses"`
	Net        float64            `json:"net"`
	ByCategory map[string]float64 `json:"by_category"`
}

func summaryKey(ownerID string, year, month int) string {
	return fmt.Sprintf("%s:%04d-%02d", ownerID, year, month)
}

func toSummaryView(ms core.MonthSummary) summaryView {
	v := summaryView{
		Year:       ms.Year,
		Month:      ms.Month,
		Income:     ms.Income.Units(),
		Expenses:   ms.Expenses.Units(),
		Net:        ms.Net.Units(),
		ByCategory: make(map[string]float64, len(ms.ByCategory)),
	}
	for categoryID, amount := range ms.ByCategory {
		v.ByCategory[categoryID] = amount.Units()
	}
	return v
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	year, month := monthQuery(r)
	key := summaryKey(owner, year, month)

	if summary, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toSummaryView(summary))
		return
	}

	summary, err := s.storage.MonthSummary(r.Context(), owner, year, month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, toSummaryView(summary))
}
