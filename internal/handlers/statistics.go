package handlers

import (
	"net/http"
	"sort"

	"depenses/internal/models"
	"depenses/internal/stats"

	"github.com/shopspring/decimal"
)

// seriesResponse is the chart-ready parallel label/value shape.
type seriesResponse struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
	Colors []string          `json:"colors,omitempty"`
}

// StatsByCategory returns total spend per category for the period, with
// chart colors. Labels are sorted for a stable response.
func (h *Handlers) StatsByCategory(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	totals, err := h.stats.SumByCategory(r.Context(), user.ID, queryPeriod(r))
	if err != nil {
		writeError(w, err)
		return
	}

	labels := make([]string, 0, len(totals))
	for c := range totals {
		labels = append(labels, c)
	}
	sort.Strings(labels)

	resp := seriesResponse{
		Labels: labels,
		Values: make([]decimal.Decimal, len(labels)),
		Colors: stats.CategoryColors(labels),
	}
	for i, c := range labels {
		resp.Values[i] = totals[c]
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatsByDay returns the per-day spending series for the period.
func (h *Handlers) StatsByDay(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	series, err := h.stats.SumByDay(r.Context(), user.ID, queryPeriod(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{Labels: series.Labels, Values: series.Values})
}

// StatsByMonth returns the trailing 12-month spending series.
func (h *Handlers) StatsByMonth(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	series, err := h.stats.SumByMonth(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{Labels: series.Labels, Values: series.Values})
}

// Categories returns the built-in category set with colors, for the
// form layer's pickers.
func (h *Handlers) Categories(w http.ResponseWriter, r *http.Request) {
	type categoryResponse struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	out := make([]categoryResponse, len(models.Categories))
	for i, c := range models.Categories {
		out[i] = categoryResponse{Name: c.Name, Color: c.Color}
	}
	writeJSON(w, http.StatusOK, out)
}
