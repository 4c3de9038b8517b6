package observability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsRegisteredFuncs(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

	var ran int32
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	require.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
}

func TestShutdownReportsErrors(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return errors.New("flush failed")
	})

	err := sm.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 errors")
}

func TestShutdownTimeout(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sm.Shutdown(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestPanicRecovery(t *testing.T) {
	logger := NewNopLogger()

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "test goroutine")
		panic("boom")
	})
}

func TestPanicRecoveryCallbackAlwaysRuns(t *testing.T) {
	logger := NewNopLogger()

	called := false
	assert.NotPanics(t, func() {
		defer RecoverPanicWithCallback(logger, "worker", func() { called = true })
		panic("boom")
	})
	assert.True(t, called)

	called = false
	func() {
		defer RecoverPanicWithCallback(logger, "worker", func() { called = true })
	}()
	assert.True(t, called)
}
