package queue

import (
	"context"
	"sync"
	"time"

	"github.com/caduceuspress/pulse/pkg/clock"
	"github.com/caduceuspress/pulse/pkg/event"
	"github.com/caduceuspress/pulse/pkg/observability"
)

const (
	// DefaultMaxQueueSize triggers an immediate flush when reached.
	DefaultMaxQueueSize = 10
	// DefaultFlushInterval is the timer-driven flush delay.
	DefaultFlushInterval = 10 * time.Second
)

// Flush trigger labels, as reported in metrics and logs.
const (
	TriggerSize   = "size"
	TriggerTimer  = "timer"
	TriggerManual = "manual"
	TriggerForce  = "force"
)

// Sender delivers one record, reporting acknowledgement as a bool. The
// delivery client satisfies this.
type Sender interface {
	Send(ctx context.Context, e *event.Event) bool
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, e *event.Event) bool

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, e *event.Event) bool { return f(ctx, e) }

// BatchQueue owns the in-memory record buffer. All state is guarded by a
// mutex; the snapshot swap in flush is the only point of contention with
// Enqueue.
type BatchQueue struct {
	mu    sync.Mutex
	buf   []*event.QueueItem
	timer clock.Timer

	maxSize  int
	interval time.Duration
	clock    clock.Clock
	sender   Sender
	backup   BackupStore
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// Option configures a BatchQueue.
type Option func(*BatchQueue)

// WithMaxSize overrides the size-trigger threshold.
func WithMaxSize(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.maxSize = n
		}
	}
}

// WithFlushInterval overrides the timer-trigger delay.
func WithFlushInterval(d time.Duration) Option {
	return func(q *BatchQueue) {
		if d > 0 {
			q.interval = d
		}
	}
}

// WithBackup attaches a durable backup mirror.
func WithBackup(b BackupStore) Option {
	return func(q *BatchQueue) { q.backup = b }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(q *BatchQueue) { q.metrics = m }
}

// New creates a batch queue delivering through sender.
func New(sender Sender, clk clock.Clock, logger *observability.Logger, opts ...Option) *BatchQueue {
	if clk == nil {
		clk = clock.Real()
	}
	q := &BatchQueue{
		maxSize:  DefaultMaxQueueSize,
		interval: DefaultFlushInterval,
		clock:    clk,
		sender:   sender,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue mirrors a record to backup, appends it to the buffer, and either
// flushes immediately (buffer full) or ensures a flush timer is scheduled.
// Mirroring happens before the record becomes visible to any flush so that
// delivery can never trim a backup entry that has not landed yet. Enqueue
// never blocks on delivery: size-triggered flushes deliver in a background
// goroutine.
func (q *BatchQueue) Enqueue(ctx context.Context, e *event.Event) {
	item := &event.QueueItem{Event: e, EnqueuedAt: q.clock.Now()}
	q.mirror(ctx, item)

	q.mu.Lock()
	q.buf = append(q.buf, item)
	depth := len(q.buf)

	var snapshot []*event.QueueItem
	if depth >= q.maxSize {
		snapshot = q.swapLocked()
	} else if q.timer == nil {
		q.timer = q.clock.AfterFunc(q.interval, q.timerFlush)
	}
	q.mu.Unlock()

	q.observeDepth()

	if snapshot != nil {
		go func() {
			defer observability.RecoverPanic(q.logger, "size-triggered flush")
			q.deliver(context.WithoutCancel(ctx), snapshot, TriggerSize)
		}()
	}
}

// Flush snapshots the buffer and delivers it synchronously. Safe to call
// concurrently with Enqueue; concurrent flushes operate on disjoint
// snapshots.
func (q *BatchQueue) Flush(ctx context.Context) {
	q.mu.Lock()
	snapshot := q.swapLocked()
	q.mu.Unlock()

	q.observeDepth()
	q.deliver(ctx, snapshot, TriggerManual)
}

// ForceFlush cancels any pending scheduled flush and flushes immediately.
// This is the shutdown path; delivery here is explicitly best-effort.
func (q *BatchQueue) ForceFlush(ctx context.Context) {
	q.mu.Lock()
	snapshot := q.swapLocked()
	q.mu.Unlock()

	q.observeDepth()
	q.deliver(ctx, snapshot, TriggerForce)
}

// Len reports the current buffer depth.
func (q *BatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Restore re-enqueues records that survived in backup from a previous run.
// Called once at startup, before any new records are tracked.
func (q *BatchQueue) Restore(ctx context.Context) int {
	if q.backup == nil {
		return 0
	}
	items, err := q.backup.Load(ctx)
	if err != nil {
		q.logger.WithError(err).Warn("backup restore failed")
		return 0
	}
	for _, item := range items {
		q.Enqueue(ctx, item.Event)
	}
	if len(items) > 0 {
		q.logger.WithField("records", len(items)).Info("restored records from backup")
	}
	return len(items)
}

// swapLocked is the snapshot-then-clear: it takes the buffer, replaces it
// with an empty one, and cancels the pending timer. Callers hold q.mu.
func (q *BatchQueue) swapLocked() []*event.QueueItem {
	snapshot := q.buf
	q.buf = nil
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	return snapshot
}

// timerFlush is the scheduled-flush callback.
func (q *BatchQueue) timerFlush() {
	defer observability.RecoverPanic(q.logger, "timer-triggered flush")

	q.mu.Lock()
	q.timer = nil
	snapshot := q.swapLocked()
	q.mu.Unlock()

	q.observeDepth()
	q.deliver(context.Background(), snapshot, TriggerTimer)
}

// deliver sends a snapshot one record at a time in FIFO order. Per-record
// failures are logged but do not halt the remaining records. The backup
// mirror is trimmed per delivered record and cleared outright when the
// whole snapshot succeeded.
func (q *BatchQueue) deliver(ctx context.Context, snapshot []*event.QueueItem, trigger string) {
	if len(snapshot) == 0 {
		return
	}

	if q.metrics != nil {
		q.metrics.FlushesTotal.WithLabelValues(trigger).Inc()
	}

	allOK := true
	for _, item := range snapshot {
		if q.sender.Send(ctx, item.Event) {
			q.unmirror(ctx, item)
			continue
		}
		allOK = false
		q.logger.WithFields(map[string]interface{}{
			"event_type": string(item.Event.Type),
			"trigger":    trigger,
		}).Warn("record delivery failed, continuing flush")
	}

	if allOK && q.backup != nil {
		if err := q.backup.Clear(ctx); err != nil {
			q.logger.WithError(err).Debug("backup clear failed")
		}
		q.observeBackup(ctx)
	}
}

func (q *BatchQueue) mirror(ctx context.Context, item *event.QueueItem) {
	if q.backup == nil {
		return
	}
	if err := q.backup.Append(ctx, item); err != nil {
		// The backup is a safety net, never the source of truth; a write
		// failure must not affect the tracking path.
		q.logger.WithError(err).Debug("backup append failed")
	}
	q.observeBackup(ctx)
}

func (q *BatchQueue) unmirror(ctx context.Context, item *event.QueueItem) {
	if q.backup == nil {
		return
	}
	if err := q.backup.Remove(ctx, item.Event.ID); err != nil {
		q.logger.WithError(err).Debug("backup remove failed")
	}
}

func (q *BatchQueue) observeDepth() {
	if q.metrics == nil {
		return
	}
	q.metrics.QueueDepth.Set(float64(q.Len()))
}

func (q *BatchQueue) observeBackup(ctx context.Context) {
	if q.metrics == nil || q.backup == nil {
		return
	}
	if n, err := q.backup.Count(ctx); err == nil {
		q.metrics.BackupRecords.Set(float64(n))
	}
}
