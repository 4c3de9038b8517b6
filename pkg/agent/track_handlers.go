package agent

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/caduceuspress/pulse/pkg/collector"
	"github.com/caduceuspress/pulse/pkg/event"
	"github.com/caduceuspress/pulse/pkg/observability"
)

// Tracker is the ingestion behavior the handlers need. The collector
// satisfies this.
type Tracker interface {
	Track(ctx context.Context, typ event.Type, documentID, documentType string, payload map[string]any) bool
	TrackDownload(ctx context.Context, documentID, documentType, fileName string, status event.Status) bool
	TrackPerformance(ctx context.Context, rec *event.MetricsRecord)
	GetStats() collector.Stats
}

// TrackHandlers provides the ingestion endpoints.
type TrackHandlers struct {
	tracker Tracker
	logger  *observability.Logger
}

// NewTrackHandlers creates the ingestion handler group.
func NewTrackHandlers(tracker Tracker, logger *observability.Logger) *TrackHandlers {
	return &TrackHandlers{
		tracker: tracker,
		logger:  logger,
	}
}

// RegisterRoutes registers the ingestion routes.
func (h *TrackHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/events", h.postEvent).Methods("POST")
	r.HandleFunc("/api/v1/events/download", h.postDownload).Methods("POST")
	r.HandleFunc("/api/v1/metrics", h.postMetrics).Methods("POST")
	r.HandleFunc("/api/v1/stats/local", h.getLocalStats).Methods("GET")
}

type trackRequest struct {
	EventType    string         `json:"event_type"`
	DocumentID   string         `json:"document_id"`
	DocumentType string         `json:"document_type"`
	Payload      map[string]any `json:"payload"`
}

// postEvent handles POST /api/v1/events
// Accepts a batched-type interaction; 202 means buffered, not delivered.
func (h *TrackHandlers) postEvent(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ok := h.tracker.Track(r.Context(), event.Type(req.EventType), req.DocumentID, req.DocumentType, req.Payload)
	if !ok {
		http.Error(w, "event rejected", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type downloadRequest struct {
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	FileName     string `json:"file_name"`
	Status       string `json:"status"`
}

type downloadResponse struct {
	Acked bool `json:"acked"`
}

// postDownload handles POST /api/v1/events/download
// Downloads are delivered synchronously; the response reports whether any
// delivery tier acknowledged the record, so clients can surface a retry
// affordance on total failure.
func (h *TrackHandlers) postDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	status := event.Status(req.Status)
	if status != event.StatusFailed {
		status = event.StatusSuccess
	}

	acked := h.tracker.TrackDownload(r.Context(), req.DocumentID, req.DocumentType, req.FileName, status)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(downloadResponse{Acked: acked})
}

// postMetrics handles POST /api/v1/metrics
// Performance samples are passive telemetry: the response is 202 no matter
// what happens downstream.
func (h *TrackHandlers) postMetrics(w http.ResponseWriter, r *http.Request) {
	var rec event.MetricsRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.tracker.TrackPerformance(r.Context(), &rec)
	w.WriteHeader(http.StatusAccepted)
}

// getLocalStats handles GET /api/v1/stats/local
// Returns the collector's in-process counters, independent of the backend.
func (h *TrackHandlers) getLocalStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.tracker.GetStats())
}
