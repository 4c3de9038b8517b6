package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caduceuspress/pulse/pkg/clock"
	"github.com/caduceuspress/pulse/pkg/observability"
)

// DefaultTTL is the sliding idle window after which a session is replaced.
const DefaultTTL = 30 * time.Minute

// Session is an opaque identifier with its last-activity timestamp.
type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Manager issues session identifiers with a sliding expiry window. All
// methods are safe for concurrent use and never return errors: storage
// failures degrade to in-memory session tracking.
type Manager struct {
	mu     sync.Mutex
	cached *Session
	ttl    time.Duration
	clock  clock.Clock
	store  Store
	logger *observability.Logger
}

// NewManager creates a session manager backed by the given store.
func NewManager(store Store, ttl time.Duration, clk clock.Clock, logger *observability.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.Real()
	}
	m := &Manager{
		ttl:    ttl,
		clock:  clk,
		store:  store,
		logger: logger,
	}
	return m
}

// GetSessionID returns the active session id, refreshing its sliding window.
// If the cached session expired (or none exists) a new one is generated and
// persisted atomically.
func (m *Manager) GetSessionID(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()

	if m.cached != nil && now.Sub(m.cached.StartedAt) <= m.ttl {
		m.cached.StartedAt = now
		m.persist(ctx, m.cached)
		return m.cached.ID
	}

	// Cache miss: try the persistent copy before minting a new session.
	if m.cached == nil && m.store != nil {
		if stored, err := m.store.Load(ctx); err != nil {
			m.logger.WithError(err).Debug("session store load failed")
		} else if stored != nil && now.Sub(stored.StartedAt) <= m.ttl {
			stored.StartedAt = now
			m.cached = stored
			m.persist(ctx, m.cached)
			return m.cached.ID
		}
	}

	m.cached = &Session{
		ID:        uuid.New().String(),
		StartedAt: now,
	}
	m.persist(ctx, m.cached)
	return m.cached.ID
}

// ClearSession explicitly invalidates the current session, removing both
// the cache and the persisted copy. Used on sign-out.
func (m *Manager) ClearSession(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cached = nil
	if m.store != nil {
		if err := m.store.Clear(ctx); err != nil {
			m.logger.WithError(err).Debug("session store clear failed")
		}
	}
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, s); err != nil {
		m.logger.WithError(err).Debug("session store save failed")
	}
}
