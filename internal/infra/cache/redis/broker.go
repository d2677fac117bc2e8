package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	domainauth "hostelfinder/internal/domain/auth"
)

const defaultChannel = "hostelfinder:sessions"

// SessionBroker carries session events over Redis pub/sub so guards in every
// process see sign-outs made elsewhere.
type SessionBroker struct {
	Client  *redis.Client
	Channel string
	Buffer  int
	Logger  *slog.Logger
}

func (b *SessionBroker) Publish(ctx context.Context, ev domainauth.SessionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.Client.Publish(ctx, b.channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish session event: %w", err)
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by the server.
func (b *SessionBroker) Subscribe(ctx context.Context) (<-chan domainauth.SessionEvent, func(), error) {
	pubsub := b.Client.Subscribe(ctx, b.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis: subscribe: %w", err)
	}
	size := b.Buffer
	if size <= 0 {
		size = 16
	}
	out := make(chan domainauth.SessionEvent, size)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var ev domainauth.SessionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					if b.Logger != nil {
						b.Logger.Warn("session event decode failed", "error", err)
					}
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				case <-ctx.Done():
					stop()
					return
				}
			}
		}
	}()
	return out, stop, nil
}

func (b *SessionBroker) channel() string {
	if b.Channel != "" {
		return b.Channel
	}
	return defaultChannel
}

var _ domainauth.SessionEvents = (*SessionBroker)(nil)
