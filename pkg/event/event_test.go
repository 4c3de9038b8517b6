package event

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDocumentID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantID  string
		wantRef string
	}{
		{
			name:    "valid uuid passes through",
			raw:     "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			wantID:  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			wantRef: "",
		},
		{
			name:    "uppercase uuid is canonicalized",
			raw:     "6BA7B810-9DAD-11D1-80B4-00C04FD430C8",
			wantID:  "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			wantRef: "",
		},
		{
			name:    "literal string maps to sentinel",
			raw:     "test",
			wantID:  SentinelDocumentID,
			wantRef: "test",
		},
		{
			name:    "slug reference is preserved",
			raw:     "rhca-2024-q3-supplement",
			wantID:  SentinelDocumentID,
			wantRef: "rhca-2024-q3-supplement",
		},
		{
			name:    "empty string maps to sentinel",
			raw:     "",
			wantID:  SentinelDocumentID,
			wantRef: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ref := NormalizeDocumentID(tt.raw)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}

func TestSentinelIsNilUUID(t *testing.T) {
	assert.Equal(t, uuid.Nil.String(), SentinelDocumentID)
}

func TestTypeDocumentScoped(t *testing.T) {
	assert.True(t, TypeView.DocumentScoped())
	assert.True(t, TypeDownload.DocumentScoped())
	assert.True(t, TypeShare.DocumentScoped())
	assert.False(t, TypeSearch.DocumentScoped())
	assert.False(t, TypeClick.DocumentScoped())
	assert.False(t, TypePageView.DocumentScoped())
	assert.False(t, TypePerformance.DocumentScoped())
}

func TestTypeValid(t *testing.T) {
	assert.True(t, TypeDownload.Valid())
	assert.False(t, Type("purchase").Valid())
}

func TestTruncateFileName(t *testing.T) {
	short := "report.pdf"
	assert.Equal(t, short, TruncateFileName(short))

	long := strings.Repeat("a", 300) + ".pdf"
	got := TruncateFileName(long)
	assert.Len(t, got, MaxFileNameLen)
	assert.Equal(t, long[:MaxFileNameLen], got)
}

func TestTruncateFileNameMultibyte(t *testing.T) {
	// 204 characters, under the limit despite being over 255 bytes.
	name := strings.Repeat("é", 200) + ".pdf"
	assert.Equal(t, name, TruncateFileName(name))

	long := strings.Repeat("é", 300)
	got := TruncateFileName(long)
	assert.Equal(t, MaxFileNameLen, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", MaxFileNameLen), got)
}

func TestMetricsRecordCapResources(t *testing.T) {
	r := &MetricsRecord{}
	for i := 0; i < 25; i++ {
		r.ResourceMetrics = append(r.ResourceMetrics, ResourceMetric{
			Name:     "res",
			Duration: float64(i),
		})
	}

	r.CapResources()

	require.Len(t, r.ResourceMetrics, MaxResourceMetrics)
	// The most recent entries are kept.
	assert.Equal(t, float64(15), r.ResourceMetrics[0].Duration)
	assert.Equal(t, float64(24), r.ResourceMetrics[9].Duration)
}

func TestMetricsRecordEvent(t *testing.T) {
	fcp := 123.4
	r := &MetricsRecord{
		SessionID: "sess-1",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		PageURL:   "https://journals.example.org/rhca/article/42",
		WebVitals: WebVitals{FCP: &fcp},
		Memory:    MemoryStats{HeapSize: 64 << 20, HeapUsed: 32 << 20},
	}

	ev := r.Event(ClientInfo{UserAgent: "ua"})

	assert.Equal(t, TypePerformance, ev.Type)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Empty(t, ev.DocumentID)
	assert.Equal(t, r.PageURL, ev.Client.PageURL)
	assert.Equal(t, r.Timestamp, ev.OccurredAt)
	assert.NotEmpty(t, ev.ID)
	assert.Contains(t, ev.Payload, "web_vitals")
	assert.Contains(t, ev.Payload, "navigation_metrics")
}

func TestEventFileName(t *testing.T) {
	e := &Event{Payload: map[string]any{"file_name": "x.pdf"}}
	assert.Equal(t, "x.pdf", e.FileName())

	assert.Empty(t, (&Event{}).FileName())
	assert.Empty(t, (&Event{Payload: map[string]any{"file_name": 7}}).FileName())
}
