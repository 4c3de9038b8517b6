package event

import "time"

// MaxResourceMetrics caps resource timing entries per record to bound
// payload size.
const MaxResourceMetrics = 10

// WebVitals holds core web vital measurements, in milliseconds except CLS
// which is unitless. Nil fields were not observed on the page.
type WebVitals struct {
	FCP  *float64 `json:"fcp,omitempty"`
	LCP  *float64 `json:"lcp,omitempty"`
	FID  *float64 `json:"fid,omitempty"`
	TTFB *float64 `json:"ttfb,omitempty"`
	CLS  *float64 `json:"cls,omitempty"`
}

// ResourceMetric is one resource timing entry.
type ResourceMetric struct {
	Name          string  `json:"name"`
	InitiatorType string  `json:"initiator_type,omitempty"`
	Duration      float64 `json:"duration"`
	TransferSize  int64   `json:"transfer_size"`
}

// NavigationTiming holds page navigation timing measurements in
// milliseconds.
type NavigationTiming struct {
	DOMContentLoaded float64 `json:"dom_content_loaded"`
	LoadComplete     float64 `json:"load_complete"`
	DOMInteractive   float64 `json:"dom_interactive"`
	ResponseTime     float64 `json:"response_time"`
}

// MemoryStats holds JS heap usage in bytes.
type MemoryStats struct {
	HeapSize int64 `json:"heap_size"`
	HeapUsed int64 `json:"heap_used"`
}

// MetricsRecord is a batched snapshot of browser performance data for one
// page.
type MetricsRecord struct {
	SessionID       string           `json:"session_id"`
	Timestamp       time.Time        `json:"timestamp"`
	PageURL         string           `json:"page_url"`
	WebVitals       WebVitals        `json:"web_vitals"`
	ResourceMetrics []ResourceMetric `json:"resource_metrics,omitempty"`
	Navigation      NavigationTiming `json:"navigation_metrics"`
	Memory          MemoryStats      `json:"memory"`
}

// CapResources drops all but the MaxResourceMetrics most recent resource
// entries, keeping the tail of the slice.
func (r *MetricsRecord) CapResources() {
	if len(r.ResourceMetrics) > MaxResourceMetrics {
		r.ResourceMetrics = r.ResourceMetrics[len(r.ResourceMetrics)-MaxResourceMetrics:]
	}
}

// Event normalizes the metrics record into the uniform Event shape carried
// by the queue and delivery tiers. Performance records are never
// document-scoped.
func (r *MetricsRecord) Event(client ClientInfo) *Event {
	r.CapResources()

	client.PageURL = r.PageURL

	return &Event{
		ID:        NewID(),
		Type:      TypePerformance,
		SessionID: r.SessionID,
		Client:    client,
		Payload: map[string]any{
			"web_vitals":         r.WebVitals,
			"resource_metrics":   r.ResourceMetrics,
			"navigation_metrics": r.Navigation,
			"memory":             r.Memory,
		},
		OccurredAt: r.Timestamp,
	}
}
