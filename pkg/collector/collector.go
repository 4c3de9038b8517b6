package collector

import (
	"context"
	"sync"
	"time"

	"github.com/caduceuspress/pulse/pkg/async"
	"github.com/caduceuspress/pulse/pkg/clientinfo"
	"github.com/caduceuspress/pulse/pkg/clock"
	"github.com/caduceuspress/pulse/pkg/event"
	"github.com/caduceuspress/pulse/pkg/observability"
	"github.com/caduceuspress/pulse/pkg/session"
)

// countIncrementTimeout bounds the best-effort download counter update. It
// runs detached from the tracking call and must not hold a goroutine open
// indefinitely against a wedged backend.
const countIncrementTimeout = 5 * time.Second

// Rejection reason labels, as reported in metrics.
const (
	ReasonInvalidType         = "invalid_type"
	ReasonMissingDocumentID   = "missing_document_id"
	ReasonMissingDocumentType = "missing_document_type"
)

// Enqueuer buffers a record for a later flush. The batch queue satisfies
// this.
type Enqueuer interface {
	Enqueue(ctx context.Context, e *event.Event)
}

// Deliverer delivers one record synchronously and maintains the per-document
// download counter. The delivery client satisfies this.
type Deliverer interface {
	Send(ctx context.Context, e *event.Event) bool
	IncrementDownloadCount(ctx context.Context, documentID string) error
}

// Stats are the collector's local counters, independent of backend state.
type Stats struct {
	Tracked   map[event.Type]int64 `json:"tracked"`
	Rejected  int64                `json:"rejected"`
	Downloads struct {
		Acked  int64 `json:"acked"`
		Failed int64 `json:"failed"`
	} `json:"downloads"`
}

// Collector validates, normalizes, and routes tracked interactions.
type Collector struct {
	sessions *session.Manager
	client   clientinfo.Provider
	queue    Enqueuer
	delivery Deliverer
	clock    clock.Clock
	logger   *observability.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	tracked  map[event.Type]int64
	rejected int64
	acked    int64
	failed   int64
}

// Option configures a Collector.
type Option func(*Collector)

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

// WithClock overrides the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Collector) { c.clock = clk }
}

// New creates a collector routing batched types through queue and
// interactive downloads through delivery.
func New(sessions *session.Manager, client clientinfo.Provider, queue Enqueuer, delivery Deliverer, logger *observability.Logger, opts ...Option) *Collector {
	c := &Collector{
		sessions: sessions,
		client:   client,
		queue:    queue,
		delivery: delivery,
		clock:    clock.Real(),
		logger:   logger,
		tracked:  make(map[event.Type]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Track records one interaction. Batched types are buffered and the call
// reports true immediately; downloads are delivered synchronously and the
// result reflects whether any delivery tier acknowledged the record. A
// record failing validation is dropped silently and the call reports false.
func (c *Collector) Track(ctx context.Context, typ event.Type, documentID, documentType string, payload map[string]any) bool {
	defer observability.RecoverPanic(c.logger, "event tracking")

	if reason, ok := c.validate(typ, documentID, documentType); !ok {
		c.reject(typ, reason)
		return false
	}

	e := c.build(ctx, typ, documentID, documentType, payload)

	if typ == event.TypeDownload {
		e.Status = event.StatusSuccess
		if s, ok := payload["status"].(string); ok && event.Status(s) == event.StatusFailed {
			e.Status = event.StatusFailed
		}
		return c.sendDownload(ctx, e)
	}

	c.queue.Enqueue(ctx, e)
	c.counted(typ)
	return true
}

// TrackDownload records a file download with per-call acknowledgement. The
// returned bool reflects delivery of the event record only; the download
// counter update runs independently and its failure does not affect the
// result.
func (c *Collector) TrackDownload(ctx context.Context, documentID, documentType, fileName string, status event.Status) bool {
	payload := map[string]any{
		"file_name": event.TruncateFileName(fileName),
		"status":    string(status),
	}
	defer observability.RecoverPanic(c.logger, "download tracking")

	if reason, ok := c.validate(event.TypeDownload, documentID, documentType); !ok {
		c.reject(event.TypeDownload, reason)
		return false
	}

	e := c.build(ctx, event.TypeDownload, documentID, documentType, payload)
	e.Status = status
	if status != event.StatusSuccess && status != event.StatusFailed {
		e.Status = event.StatusSuccess
	}
	return c.sendDownload(ctx, e)
}

// TrackPageView records a passive page view for the given URL.
func (c *Collector) TrackPageView(ctx context.Context, pageURL string) {
	payload := map[string]any{"page_url": pageURL}
	c.Track(ctx, event.TypePageView, "", "", payload)
}

// TrackSearch records a search with its result count.
func (c *Collector) TrackSearch(ctx context.Context, query string, resultCount int) {
	payload := map[string]any{
		"query":        query,
		"result_count": resultCount,
	}
	c.Track(ctx, event.TypeSearch, "", "", payload)
}

// TrackPerformance records a synthetic performance sample. Oversized
// resource lists are capped before the record enters the pipeline.
func (c *Collector) TrackPerformance(ctx context.Context, rec *event.MetricsRecord) {
	defer observability.RecoverPanic(c.logger, "performance tracking")
	if rec == nil {
		return
	}

	e := rec.Event(c.snapshot(ctx))
	e.SessionID = c.sessions.GetSessionID(ctx)
	if e.OccurredAt.IsZero() {
		e.OccurredAt = c.clock.Now()
	}

	c.queue.Enqueue(ctx, e)
	c.counted(event.TypePerformance)
}

// GetStats returns a snapshot of the collector's local counters.
func (c *Collector) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Tracked:  make(map[event.Type]int64, len(c.tracked)),
		Rejected: c.rejected,
	}
	for typ, n := range c.tracked {
		s.Tracked[typ] = n
	}
	s.Downloads.Acked = c.acked
	s.Downloads.Failed = c.failed
	return s
}

// validate checks type and document scoping. The document identifier format
// is not validated here: a malformed identifier is a normalization concern
// (sentinel substitution), not a rejection.
func (c *Collector) validate(typ event.Type, documentID, documentType string) (string, bool) {
	if !typ.Valid() {
		return ReasonInvalidType, false
	}
	if typ.DocumentScoped() {
		if documentID == "" {
			return ReasonMissingDocumentID, false
		}
		if documentType == "" {
			return ReasonMissingDocumentType, false
		}
	}
	return "", true
}

// build assembles a normalized event: canonical or sentinel document id,
// original reference preserved in the payload, session and client context
// stamped at call time. The caller's payload map is copied, never mutated.
func (c *Collector) build(ctx context.Context, typ event.Type, documentID, documentType string, payload map[string]any) *event.Event {
	e := &event.Event{
		ID:           event.NewID(),
		Type:         typ,
		DocumentType: documentType,
		SessionID:    c.sessions.GetSessionID(ctx),
		Client:       c.snapshot(ctx),
		OccurredAt:   c.clock.Now(),
	}

	if len(payload) > 0 {
		e.Payload = make(map[string]any, len(payload)+1)
		for k, v := range payload {
			e.Payload[k] = v
		}
	}

	if documentID != "" {
		id, reference := event.NormalizeDocumentID(documentID)
		e.DocumentID = id
		if reference != "" {
			if e.Payload == nil {
				e.Payload = make(map[string]any, 1)
			}
			e.Payload[event.PayloadKeyDocumentReference] = reference
		}
	}

	return e
}

// snapshot prefers the request-scoped client context over the collector's
// own provider.
func (c *Collector) snapshot(ctx context.Context) event.ClientInfo {
	if info, ok := clientinfo.FromContext(ctx); ok {
		return info
	}
	return c.client.Snapshot()
}

// sendDownload delivers a download record synchronously and kicks off the
// independent counter update. The two are not transactional: either can
// fail without affecting the other.
func (c *Collector) sendDownload(ctx context.Context, e *event.Event) bool {
	documentID := e.DocumentID
	async.SafeGo(context.WithoutCancel(ctx), c.logger, countIncrementTimeout, "download count increment", func(ctx context.Context) error {
		return c.delivery.IncrementDownloadCount(ctx, documentID)
	})

	acked := c.delivery.Send(ctx, e)

	c.mu.Lock()
	if acked {
		c.tracked[event.TypeDownload]++
		c.acked++
	} else {
		c.failed++
	}
	c.mu.Unlock()

	if c.metrics != nil && acked {
		c.metrics.EventsTrackedTotal.WithLabelValues(string(event.TypeDownload)).Inc()
	}
	return acked
}

func (c *Collector) counted(typ event.Type) {
	c.mu.Lock()
	c.tracked[typ]++
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.EventsTrackedTotal.WithLabelValues(string(typ)).Inc()
	}
}

func (c *Collector) reject(typ event.Type, reason string) {
	c.mu.Lock()
	c.rejected++
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"event_type": string(typ),
		"reason":     reason,
	}).Debug("event rejected")

	if c.metrics != nil {
		c.metrics.EventsRejectedTotal.WithLabelValues(reason).Inc()
	}
}
