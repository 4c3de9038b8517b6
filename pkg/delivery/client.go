package delivery

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/caduceuspress/pulse/pkg/event"
	"github.com/caduceuspress/pulse/pkg/observability"
)

// DefaultTimeout bounds each tier attempt. The source design had no
// per-call timeout; this closes that gap.
const DefaultTimeout = 10 * time.Second

// State is a record's position in the delivery state machine.
type State string

const (
	StatePending State = "pending"
	StateSending State = "sending"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

// tierEntry pairs a tier with a gate deciding whether it runs given the
// previous tier's classified failure. The minimal tier only runs after a
// payload-size rejection.
type tierEntry struct {
	tier Tier
	gate func(prev *Error) bool
}

func always(*Error) bool { return true }

func onPayloadTooLarge(prev *Error) bool {
	return prev != nil && prev.Kind == KindPayloadTooLarge
}

// Client delivers events through the tier chain. Send never throws past its
// boundary: every failure is caught, classified, logged, and folded into a
// boolean.
type Client struct {
	db      *sql.DB
	tiers   []tierEntry
	timeout time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-tier attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTiers replaces the default tier chain. Entries run in order; every
// tier after the first is gated on the previous failure, and a tier named
// TierMinimal keeps its payload-size gate.
func WithTiers(tiers ...Tier) Option {
	return func(c *Client) {
		c.tiers = c.tiers[:0]
		for _, t := range tiers {
			gate := always
			if t.Name() == TierMinimal {
				gate = onPayloadTooLarge
			}
			c.tiers = append(c.tiers, tierEntry{tier: t, gate: gate})
		}
	}
}

// NewClient creates a delivery client with the standard three-tier chain.
func NewClient(db *sql.DB, logger *observability.Logger, opts ...Option) *Client {
	c := &Client{
		db:      db,
		timeout: DefaultTimeout,
		logger:  logger,
		tiers: []tierEntry{
			{tier: &rpcTier{db: db}, gate: always},
			{tier: &insertTier{db: db}, gate: always},
			{tier: &minimalTier{db: db}, gate: onPayloadTooLarge},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send delivers one event through the tier chain, returning true iff some
// tier acknowledged it. The sentinel substitution rule is re-applied here so
// the invariant holds on every tier regardless of how the event was built.
func (c *Client) Send(ctx context.Context, e *event.Event) bool {
	defer observability.RecoverPanic(c.logger, "event delivery")

	c.normalize(e)

	var prev *Error
	for _, entry := range c.tiers {
		if !entry.gate(prev) {
			continue
		}

		err := c.attempt(ctx, entry.tier, e)
		if err == nil {
			if prev != nil {
				c.logger.WithFields(map[string]interface{}{
					"event_type": string(e.Type),
					"tier":       entry.tier.Name(),
				}).Info("event delivered via fallback tier")
			}
			return true
		}

		prev = err
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"event_type": string(e.Type),
			"tier":       entry.tier.Name(),
			"kind":       string(err.Kind),
		}).Warn("delivery tier failed")

		if c.metrics != nil {
			c.metrics.DeliveryFailuresTotal.WithLabelValues(entry.tier.Name(), string(err.Kind)).Inc()
		}
	}

	c.logger.WithField("event_type", string(e.Type)).Error("all delivery tiers exhausted")
	return false
}

// attempt runs one tier under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, tier Tier, e *event.Event) *Error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := tier.Deliver(ctx, e)

	if c.metrics != nil {
		c.metrics.DeliveryAttemptsTotal.WithLabelValues(tier.Name()).Inc()
		c.metrics.DeliveryDuration.WithLabelValues(tier.Name()).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		return newError(tier.Name(), err)
	}
	return nil
}

// normalize re-applies the sentinel substitution rule: a document-scoped
// event whose id is not a valid UUID gets the sentinel, with the original
// reference preserved in the payload.
func (c *Client) normalize(e *event.Event) {
	if e.DocumentID == "" || e.DocumentID == event.SentinelDocumentID {
		return
	}
	if _, err := uuid.Parse(e.DocumentID); err == nil {
		return
	}
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	if _, exists := e.Payload[event.PayloadKeyDocumentReference]; !exists {
		e.Payload[event.PayloadKeyDocumentReference] = e.DocumentID
	}
	e.DocumentID = event.SentinelDocumentID
}

// IncrementDownloadCount bumps the parent document's download counter. It
// is best-effort and independent of event logging: callers launch it
// through async.SafeGo and ignore the outcome.
func (c *Client) IncrementDownloadCount(ctx context.Context, documentID string) error {
	if documentID == "" || documentID == event.SentinelDocumentID {
		// Nothing to increment for unresolvable references.
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx,
		`UPDATE documents SET download_count = download_count + 1 WHERE id = $1`,
		documentID,
	)
	return err
}
