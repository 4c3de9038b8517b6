package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caduceuspress/pulse/pkg/clientinfo"
	"github.com/caduceuspress/pulse/pkg/collector"
	"github.com/caduceuspress/pulse/pkg/event"
	"github.com/caduceuspress/pulse/pkg/observability"
	"github.com/caduceuspress/pulse/pkg/stats"
)

type fakeTracker struct {
	mu        sync.Mutex
	tracked   []event.Type
	downloads []string
	perf      []*event.MetricsRecord
	accept    bool
	ack       bool
	lastCtx   context.Context
}

func (f *fakeTracker) Track(ctx context.Context, typ event.Type, documentID, documentType string, payload map[string]any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCtx = ctx
	if !f.accept {
		return false
	}
	f.tracked = append(f.tracked, typ)
	return true
}

func (f *fakeTracker) TrackDownload(ctx context.Context, documentID, documentType, fileName string, status event.Status) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, documentID)
	return f.ack
}

func (f *fakeTracker) TrackPerformance(ctx context.Context, rec *event.MetricsRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perf = append(f.perf, rec)
}

func (f *fakeTracker) GetStats() collector.Stats {
	return collector.Stats{Tracked: map[event.Type]int64{event.TypeView: 3}}
}

type fakeReader struct {
	err error
}

func (f *fakeReader) ByDocumentType(ctx context.Context) ([]stats.TypeStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []stats.TypeStats{{DocumentType: "article", Views: 7}}, nil
}

func (f *fakeReader) Daily(ctx context.Context, days int) ([]stats.DailyStat, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []stats.DailyStat{{Date: "2024-01-01", Events: int64(days)}}, nil
}

func (f *fakeReader) Overall(ctx context.Context) (*stats.Totals, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stats.Totals{TotalEvents: 42}, nil
}

func (f *fakeReader) ForDocument(ctx context.Context, documentID string) (*stats.DocumentStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stats.DocumentStats{DocumentID: documentID}, nil
}

func clientFromTracker(f *fakeTracker) (event.ClientInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastCtx == nil {
		return event.ClientInfo{}, false
	}
	return clientinfo.FromContext(f.lastCtx)
}

func newTestServer(tracker *fakeTracker, reader StatsReader) *Server {
	logger := observability.NewNopLogger()
	return NewServer(NewTrackHandlers(tracker, logger), NewStatsHandlers(reader), nil, nil, logger)
}

func TestMetricsRouteOnlyWithMetrics(t *testing.T) {
	logger := observability.NewNopLogger()
	tracker := &fakeTracker{accept: true}

	disabled := NewServer(NewTrackHandlers(tracker, logger), NewStatsHandlers(&fakeReader{}), nil, nil, logger)
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	m := observability.NewMetrics(prometheus.NewRegistry())
	enabled := NewServer(NewTrackHandlers(tracker, logger), NewStatsHandlers(&fakeReader{}), nil, m, logger)
	rec = httptest.NewRecorder()
	enabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostEventAccepted(t *testing.T) {
	tracker := &fakeTracker{accept: true}
	server := newTestServer(tracker, &fakeReader{})

	body, _ := json.Marshal(trackRequest{
		EventType:    "view",
		DocumentID:   "b3e9a1f0-7c2d-4e5a-9b1c-2d3e4f5a6b7c",
		DocumentType: "article",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []event.Type{event.TypeView}, tracker.tracked)
}

func TestPostEventRejected(t *testing.T) {
	server := newTestServer(&fakeTracker{accept: false}, &fakeReader{})

	body, _ := json.Marshal(trackRequest{EventType: "hover"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostEventBadBody(t *testing.T) {
	server := newTestServer(&fakeTracker{accept: true}, &fakeReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostEventCarriesClientContext(t *testing.T) {
	tracker := &fakeTracker{accept: true}
	server := newTestServer(tracker, &fakeReader{})

	body, _ := json.Marshal(trackRequest{EventType: "page_view"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	req.Header.Set("User-Agent", "pulse-browser/2.1")
	req.Header.Set("X-Pulse-Page-URL", "https://journal.example/articles/42")
	req.Header.Set("X-Pulse-Screen-Size", "1920x1080")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	info, ok := clientFromTracker(tracker)
	require.True(t, ok)
	assert.Equal(t, "pulse-browser/2.1", info.UserAgent)
	assert.Equal(t, "https://journal.example/articles/42", info.PageURL)
	assert.Equal(t, "1920x1080", info.ScreenSize)
}

func TestPostDownloadReportsAck(t *testing.T) {
	tracker := &fakeTracker{ack: true}
	server := newTestServer(tracker, &fakeReader{})

	body, _ := json.Marshal(downloadRequest{
		DocumentID:   "not-a-uuid",
		DocumentType: "rhca",
		FileName:     "x.pdf",
		Status:       "success",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/download", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp downloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Acked)
	assert.Equal(t, []string{"not-a-uuid"}, tracker.downloads)
}

func TestPostDownloadTotalFailure(t *testing.T) {
	server := newTestServer(&fakeTracker{ack: false}, &fakeReader{})

	body, _ := json.Marshal(downloadRequest{DocumentID: "b3e9a1f0-7c2d-4e5a-9b1c-2d3e4f5a6b7c", DocumentType: "article"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/download", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	// Total failure is still a well-formed response, not an HTTP error.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp downloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Acked)
}

func TestPostMetricsAlwaysAccepted(t *testing.T) {
	tracker := &fakeTracker{}
	server := newTestServer(tracker, &fakeReader{})

	body, _ := json.Marshal(event.MetricsRecord{PageURL: "https://journal.example/"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, tracker.perf, 1)
	assert.Equal(t, "https://journal.example/", tracker.perf[0].PageURL)
}

func TestStatsEndpoints(t *testing.T) {
	server := newTestServer(&fakeTracker{accept: true}, &fakeReader{})

	for _, path := range []string{
		"/api/v1/stats/by-type",
		"/api/v1/stats/daily?days=7",
		"/api/v1/stats/overall",
		"/api/v1/stats/documents/b3e9a1f0-7c2d-4e5a-9b1c-2d3e4f5a6b7c",
		"/api/v1/stats/local",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}
}

func TestStatsEndpointBackendError(t *testing.T) {
	server := newTestServer(&fakeTracker{}, &fakeReader{err: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/overall", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
