package clientinfo

import (
	"context"

	"github.com/caduceuspress/pulse/pkg/event"
)

type contextKey struct{}

// NewContext returns ctx carrying a request-scoped client snapshot. The
// HTTP surface sets this per request so tracking calls deeper in the stack
// see the originating client, not the agent's static identity.
func NewContext(ctx context.Context, info event.ClientInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// FromContext extracts a request-scoped client snapshot, if one was set.
func FromContext(ctx context.Context) (event.ClientInfo, bool) {
	info, ok := ctx.Value(contextKey{}).(event.ClientInfo)
	return info, ok
}
