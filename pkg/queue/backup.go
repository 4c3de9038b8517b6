package queue

import (
	"context"
	"sync"

	"github.com/caduceuspress/pulse/pkg/event"
)

// DefaultBackupLimit bounds the backup mirror across all time; the oldest
// records are dropped first.
const DefaultBackupLimit = 50

// BackupStore is the durable write-through mirror of the unsent buffer. It
// is never the source of truth while the process is alive; it exists so a
// crash between enqueue and delivery does not lose records.
type BackupStore interface {
	// Append mirrors one record, pruning the oldest beyond the store's
	// limit.
	Append(ctx context.Context, item *event.QueueItem) error
	// Remove drops one record by event id after its confirmed delivery.
	Remove(ctx context.Context, eventID string) error
	// Clear drops all records after a fully delivered snapshot.
	Clear(ctx context.Context) error
	// Load returns surviving records in enqueue order.
	Load(ctx context.Context) ([]*event.QueueItem, error)
	// Count reports the number of mirrored records.
	Count(ctx context.Context) (int, error)
}

// MemoryBackup is an in-process BackupStore for hosts that do not want a
// file on disk, and for tests.
type MemoryBackup struct {
	mu    sync.Mutex
	items []*event.QueueItem
	limit int
}

// NewMemoryBackup creates a memory-backed mirror with the given bound.
func NewMemoryBackup(limit int) *MemoryBackup {
	if limit <= 0 {
		limit = DefaultBackupLimit
	}
	return &MemoryBackup{limit: limit}
}

// Append mirrors a record, dropping the oldest beyond the limit.
func (b *MemoryBackup) Append(ctx context.Context, item *event.QueueItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, item)
	if len(b.items) > b.limit {
		b.items = b.items[len(b.items)-b.limit:]
	}
	return nil
}

// Remove drops the record with the given event id.
func (b *MemoryBackup) Remove(ctx context.Context, eventID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, item := range b.items {
		if item.Event.ID == eventID {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// Clear drops everything.
func (b *MemoryBackup) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
	return nil
}

// Load returns mirrored records in enqueue order.
func (b *MemoryBackup) Load(ctx context.Context) ([]*event.QueueItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*event.QueueItem, len(b.items))
	copy(out, b.items)
	return out, nil
}

// Count reports the number of mirrored records.
func (b *MemoryBackup) Count(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items), nil
}
