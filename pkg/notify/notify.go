package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caduceuspress/pulse/pkg/event"
	"github.com/caduceuspress/pulse/pkg/observability"
)

// Change describes one event row landing in the backend.
type Change struct {
	EventType    event.Type `json:"event_type"`
	DocumentID   string     `json:"document_id,omitempty"`
	DocumentType string     `json:"document_type,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// Handler receives change notifications. Handlers run on dispatch
// goroutines and must not block indefinitely.
type Handler func(ctx context.Context, change Change)

// Notifier is a subscribable change feed.
type Notifier interface {
	// Subscribe registers a handler and returns its cancel function. The
	// cancel function is idempotent.
	Subscribe(handler Handler) (cancel func())
	// Close tears down the feed and drops all subscribers.
	Close() error
}

// Hub fans changes out to subscribers. It is the in-memory core behind the
// Postgres and Redis feeds, and a complete Notifier on its own when changes
// are published locally.
type Hub struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]Handler
	closed   bool

	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *observability.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		handlers: make(map[uuid.UUID]Handler),
		logger:   logger,
		metrics:  metrics,
	}
}

// Subscribe registers a handler. The returned cancel function removes it
// and may be called any number of times.
func (h *Hub) Subscribe(handler Handler) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return func() {}
	}

	id := uuid.New()
	h.handlers[id] = handler
	h.observeSubscribers()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.handlers, id)
			h.observeSubscribers()
		})
	}
}

// Publish dispatches a change to every subscriber. Each handler runs on its
// own goroutine with panic recovery.
func (h *Hub) Publish(ctx context.Context, change Change) {
	h.mu.Lock()
	handlers := make([]Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler)
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.NotificationsTotal.Inc()
	}

	for _, handler := range handlers {
		handler := handler
		go func() {
			defer observability.RecoverPanic(h.logger, "change notification dispatch")
			handler(ctx, change)
		}()
	}
}

// Close drops all subscribers.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.handlers = make(map[uuid.UUID]Handler)
	h.observeSubscribers()
	return nil
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers)
}

// observeSubscribers mirrors the subscriber count into metrics. Callers
// hold h.mu.
func (h *Hub) observeSubscribers() {
	if h.metrics == nil {
		return
	}
	h.metrics.SubscribersActive.Set(float64(len(h.handlers)))
}

// decodeChange parses a feed payload. A malformed payload is reported as an
// empty change with ok false; the feed skips it rather than dying.
func decodeChange(raw []byte, logger *observability.Logger) (Change, bool) {
	var change Change
	if err := json.Unmarshal(raw, &change); err != nil {
		logger.WithError(err).Warn("unparseable change notification, skipping")
		return Change{}, false
	}
	return change, true
}
