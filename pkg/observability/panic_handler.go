package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured logging
//
// Usage in defer statements:
//
//	func flushWorker() {
//	    defer observability.RecoverPanic(logger, "queue flush")
//	    // ... code that might panic
//	}
//
// After logging, the panic is NOT re-raised. Telemetry must never crash the
// host process, so every background goroutine in this pipeline defers this.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it, and executes a
// callback. The callback runs regardless of whether a panic occurred, which
// makes it suitable for closing channels or releasing state that waiting
// goroutines depend on.
func RecoverPanicWithCallback(logger *Logger, context string, callback func()) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
	if callback != nil {
		callback()
	}
}
