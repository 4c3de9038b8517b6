package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/caduceuspress/pulse/pkg/stats"
)

// StatsReader is the read-aggregate behavior the handlers need. The cached
// stats service satisfies this.
type StatsReader interface {
	ByDocumentType(ctx context.Context) ([]stats.TypeStats, error)
	Daily(ctx context.Context, days int) ([]stats.DailyStat, error)
	Overall(ctx context.Context) (*stats.Totals, error)
	ForDocument(ctx context.Context, documentID string) (*stats.DocumentStats, error)
}

// StatsHandlers provides the dashboard endpoints.
type StatsHandlers struct {
	reader StatsReader
}

// NewStatsHandlers creates the dashboard handler group.
func NewStatsHandlers(reader StatsReader) *StatsHandlers {
	return &StatsHandlers{reader: reader}
}

// RegisterRoutes registers the dashboard routes.
func (h *StatsHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/stats/by-type", h.getByType).Methods("GET")
	r.HandleFunc("/api/v1/stats/daily", h.getDaily).Methods("GET")
	r.HandleFunc("/api/v1/stats/overall", h.getOverall).Methods("GET")
	r.HandleFunc("/api/v1/stats/documents/{id}", h.getDocument).Methods("GET")
}

// getByType handles GET /api/v1/stats/by-type
func (h *StatsHandlers) getByType(w http.ResponseWriter, r *http.Request) {
	out, err := h.reader.ByDocumentType(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

// getDaily handles GET /api/v1/stats/daily
// Query params:
//   - days: window length in days (1-365) - default: 30
func (h *StatsHandlers) getDaily(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}

	out, err := h.reader.Daily(r.Context(), days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

// getOverall handles GET /api/v1/stats/overall
func (h *StatsHandlers) getOverall(w http.ResponseWriter, r *http.Request) {
	out, err := h.reader.Overall(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

// getDocument handles GET /api/v1/stats/documents/{id}
func (h *StatsHandlers) getDocument(w http.ResponseWriter, r *http.Request) {
	out, err := h.reader.ForDocument(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
