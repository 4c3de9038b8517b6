package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caduceuspress/pulse/pkg/clock"
	"github.com/caduceuspress/pulse/pkg/observability"
)

func newTestManager(t *testing.T) (*Manager, *clock.Mock, *MemoryStore) {
	t.Helper()
	mock := clock.NewMock()
	store := NewMemoryStore()
	mgr := NewManager(store, DefaultTTL, mock, observability.NewNopLogger())
	return mgr, mock, store
}

func TestGetSessionIDStableWithinWindow(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	ctx := context.Background()

	first := mgr.GetSessionID(ctx)
	require.NotEmpty(t, first)
	_, err := uuid.Parse(first)
	require.NoError(t, err)

	mock.Advance(29 * time.Minute)
	assert.Equal(t, first, mgr.GetSessionID(ctx))
}

func TestGetSessionIDExpiresAfterIdleGap(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	ctx := context.Background()

	first := mgr.GetSessionID(ctx)

	mock.Advance(31 * time.Minute)
	second := mgr.GetSessionID(ctx)
	assert.NotEqual(t, first, second)
}

func TestGetSessionIDWindowIsSliding(t *testing.T) {
	mgr, mock, _ := newTestManager(t)
	ctx := context.Background()

	first := mgr.GetSessionID(ctx)

	// Touch the session every 20 minutes for 2 hours: each touch refreshes
	// started_at, so the session never expires.
	for i := 0; i < 6; i++ {
		mock.Advance(20 * time.Minute)
		assert.Equal(t, first, mgr.GetSessionID(ctx))
	}
}

func TestGetSessionIDRecoversFromStore(t *testing.T) {
	mock := clock.NewMock()
	store := NewMemoryStore()
	logger := observability.NewNopLogger()

	first := NewManager(store, DefaultTTL, mock, logger).GetSessionID(context.Background())

	// A fresh manager (new process) picks up the persisted session.
	second := NewManager(store, DefaultTTL, mock, logger).GetSessionID(context.Background())
	assert.Equal(t, first, second)
}

func TestGetSessionIDIgnoresExpiredStoredSession(t *testing.T) {
	mock := clock.NewMock()
	store := NewMemoryStore()
	logger := observability.NewNopLogger()

	first := NewManager(store, DefaultTTL, mock, logger).GetSessionID(context.Background())

	mock.Advance(31 * time.Minute)
	second := NewManager(store, DefaultTTL, mock, logger).GetSessionID(context.Background())
	assert.NotEqual(t, first, second)
}

func TestClearSession(t *testing.T) {
	mgr, _, store := newTestManager(t)
	ctx := context.Background()

	first := mgr.GetSessionID(ctx)
	mgr.ClearSession(ctx)

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	assert.NotEqual(t, first, mgr.GetSessionID(ctx))
}

func TestGetSessionIDConcurrentCallersAgree(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	const callers = 32
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = mgr.GetSessionID(ctx)
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestManagerWorksWithoutStore(t *testing.T) {
	mgr := NewManager(nil, DefaultTTL, clock.NewMock(), observability.NewNopLogger())
	assert.NotEmpty(t, mgr.GetSessionID(context.Background()))
	mgr.ClearSession(context.Background())
}
