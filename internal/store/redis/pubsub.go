package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/prono/internal/domain"
)

var _ domain.Broker = (*Broker)(nil)

// Broker fans room messages out through Redis pub/sub so several server
// processes can share project rooms.
type Broker struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection. Channel names are
// namespaced with prefix; an empty prefix publishes room names as-is.
func New(ctx context.Context, addr, password string, db int, prefix string) (*Broker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Broker{client: client, prefix: prefix}, nil
}

func (b *Broker) Close() error {
	if err := b.client.Close(); err != nil {
		return fmt.Errorf("redis.Broker.Close: %w", err)
	}
	return nil
}

func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, ChannelKey(b.prefix, channel), payload).Err(); err != nil {
		return fmt.Errorf("redis.Broker.Publish: %w", err)
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. The stream
// closes when ctx ends or the returned cancel func is called.
func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := b.client.Subscribe(ctx, ChannelKey(b.prefix, channel))

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.Broker.Subscribe: receive confirmation: %w", err)
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() { _ = sub.Close() })
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		defer cleanup()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cleanup, nil
}

// ChannelKey returns the Redis channel name for a room channel.
func ChannelKey(prefix, channel string) string {
	if prefix == "" {
		return channel
	}
	return prefix + ":" + channel
}
