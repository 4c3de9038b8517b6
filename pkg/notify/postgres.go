package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/caduceuspress/pulse/pkg/observability"
)

// Channel is the LISTEN/NOTIFY channel the ingestion backend signals after
// each event insert.
const Channel = "pulse_events_inserted"

const (
	listenerMinReconnect = time.Second
	listenerMaxReconnect = time.Minute
)

// PostgresNotifier subscribes to the ingestion database's change feed over
// LISTEN/NOTIFY.
type PostgresNotifier struct {
	hub      *Hub
	listener *pq.Listener
	cancel   context.CancelFunc
	logger   *observability.Logger
}

// NewPostgresNotifier connects a listener to connectURL and starts
// dispatching the feed. The listener reconnects on its own after connection
// loss; subscribers stay registered across reconnects.
func NewPostgresNotifier(ctx context.Context, connectURL string, logger *observability.Logger, metrics *observability.Metrics) (*PostgresNotifier, error) {
	errCh := make(chan error, 1)
	listener := pq.NewListener(connectURL, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	select {
	case err := <-errCh:
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("failed to connect change listener: %w", err)
		}
	case <-ctx.Done():
		listener.Close()
		return nil, ctx.Err()
	}

	if err := listener.Listen(Channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	feedCtx, cancel := context.WithCancel(context.Background())
	n := &PostgresNotifier{
		hub:      NewHub(logger, metrics),
		listener: listener,
		cancel:   cancel,
		logger:   logger,
	}

	go n.run(feedCtx)
	return n, nil
}

// Subscribe registers a handler on the feed.
func (n *PostgresNotifier) Subscribe(handler Handler) (cancel func()) {
	return n.hub.Subscribe(handler)
}

// Close stops the feed and drops all subscribers.
func (n *PostgresNotifier) Close() error {
	n.cancel()
	err := n.listener.Close()
	n.hub.Close()
	return err
}

func (n *PostgresNotifier) run(ctx context.Context) {
	defer observability.RecoverPanic(n.logger, "postgres change feed")

	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-n.listener.Notify:
			if !ok {
				return
			}
			// A nil notification signals a reconnect, not a change.
			if notif == nil {
				continue
			}
			if change, ok := decodeChange([]byte(notif.Extra), n.logger); ok {
				n.hub.Publish(ctx, change)
			}
		}
	}
}
