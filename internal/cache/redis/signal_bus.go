package redis

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/redis/go-redis/v9"
)

// subscriberBuffer bounds the opportunity payloads queued per subscriber.
const subscriberBuffer = 64

// SignalBus carries scan results from the scanner to websocket hubs over
// Redis pub/sub. Delivery is best effort: a subscriber that falls behind
// loses its oldest queued payloads.
type SignalBus struct {
	rdb *redis.Client
}

func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe confirms the subscription before returning. The returned
// channel closes when ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := sb.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		forward(ctx, pubsub.Channel(redis.WithChannelSize(subscriberBuffer)), out)
	}()
	return out, nil
}

// forward copies payloads from in to out until in closes or ctx ends,
// evicting the oldest queued payload when out is full. It is the only
// sender on out and returns how many payloads were evicted.
func forward(ctx context.Context, in <-chan *redis.Message, out chan []byte) int {
	dropped := 0
	for {
		var msg *redis.Message
		var ok bool
		select {
		case <-ctx.Done():
			return dropped
		case msg, ok = <-in:
			if !ok {
				return dropped
			}
		}

		payload := []byte(msg.Payload)
		select {
		case out <- payload:
			continue
		default:
		}
		select {
		case <-out:
			dropped++
		default:
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return dropped
		}
	}
}

var _ domain.SignalBus = (*SignalBus)(nil)
