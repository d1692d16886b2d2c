package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 64

// Broker is an in-process domain.Broker. Slow subscribers lose messages
// rather than block publishers.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan []byte
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan []byte)}
}

func (b *Broker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs[channel] {
		msg := append([]byte(nil), payload...)
		select {
		case ch <- msg:
		default:
			log.Warn().Str("channel", channel).Int("subscriber", id).Msg("broker: subscriber full, message dropped")
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]chan []byte)
	}
	b.subs[channel][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[channel], id)
			if len(b.subs[channel]) == 0 {
				delete(b.subs, channel)
			}
			b.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		cleanup()
	}()

	return ch, cleanup, nil
}
