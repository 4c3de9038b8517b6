package async

import (
	"context"
	"time"

	"github.com/caduceuspress/pulse/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// Use this instead of bare `go func()` for fire-and-forget pipeline work
// (count increments, notifier dispatch) so a telemetry failure can never
// crash or block the host.
//
// Example:
//
//	async.SafeGo(ctx, logger, 5*time.Second, "download count increment", func(ctx context.Context) error {
//	    return client.IncrementDownloadCount(ctx, docID)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			// Log and move on. Fire-and-forget tasks are best-effort.
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// SafeGoNoError is like SafeGo but for functions that don't return errors.
// Still provides panic recovery and context support.
func SafeGoNoError(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, logger, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
