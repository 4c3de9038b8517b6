package notify

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/caduceuspress/pulse/pkg/observability"
)

// RedisChannel is the Pub/Sub channel mirroring the change feed for hosts
// without a long-lived database connection.
const RedisChannel = "pulse:events:changes"

// RedisNotifier subscribes to the change feed over Redis Pub/Sub.
type RedisNotifier struct {
	hub    *Hub
	pubsub *redis.PubSub
	cancel context.CancelFunc
	logger *observability.Logger
}

// NewRedisNotifier subscribes to the feed channel and starts dispatching.
func NewRedisNotifier(ctx context.Context, client *redis.Client, logger *observability.Logger, metrics *observability.Metrics) (*RedisNotifier, error) {
	pubsub := client.Subscribe(ctx, RedisChannel)

	// Force the subscription onto the wire before reporting success.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	feedCtx, cancel := context.WithCancel(context.Background())
	n := &RedisNotifier{
		hub:    NewHub(logger, metrics),
		pubsub: pubsub,
		cancel: cancel,
		logger: logger,
	}

	go n.run(feedCtx)
	return n, nil
}

// Subscribe registers a handler on the feed.
func (n *RedisNotifier) Subscribe(handler Handler) (cancel func()) {
	return n.hub.Subscribe(handler)
}

// Close stops the feed and drops all subscribers.
func (n *RedisNotifier) Close() error {
	n.cancel()
	err := n.pubsub.Close()
	n.hub.Close()
	return err
}

func (n *RedisNotifier) run(ctx context.Context) {
	defer observability.RecoverPanic(n.logger, "redis change feed")

	ch := n.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if change, ok := decodeChange([]byte(msg.Payload), n.logger); ok {
				n.hub.Publish(ctx, change)
			}
		}
	}
}
