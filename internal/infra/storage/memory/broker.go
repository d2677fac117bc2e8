package memory

import (
	"context"
	"log/slog"
	"sync"

	domainauth "hostelfinder/internal/domain/auth"
)

const defaultSubscriberBuffer = 16

// SessionBroker fans session events out to in-process subscribers. A
// subscriber that falls Buffer events behind is dropped and its channel
// closed; guards watching that channel then report a retryable decision.
type SessionBroker struct {
	Buffer int
	Logger *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan domainauth.SessionEvent
	closed bool
}

func NewSessionBroker() *SessionBroker {
	return &SessionBroker{subs: make(map[int]chan domainauth.SessionEvent)}
}

func (b *SessionBroker) Publish(ctx context.Context, ev domainauth.SessionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return domainauth.ErrBrokerClosed
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			delete(b.subs, id)
			close(ch)
			if b.Logger != nil {
				b.Logger.WarnContext(ctx, "dropping slow session subscriber", "subscriber", id, "event", ev.Kind)
			}
		}
	}
	return nil
}

func (b *SessionBroker) Subscribe(ctx context.Context) (<-chan domainauth.SessionEvent, func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, nil, domainauth.ErrBrokerClosed
	}
	if b.subs == nil {
		b.subs = make(map[int]chan domainauth.SessionEvent)
	}
	size := b.Buffer
	if size <= 0 {
		size = defaultSubscriberBuffer
	}
	id := b.nextID
	b.nextID++
	ch := make(chan domainauth.SessionEvent, size)
	b.subs[id] = ch
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			b.remove(id)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}

func (b *SessionBroker) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Close detaches every subscriber.
func (b *SessionBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}

var _ domainauth.SessionEvents = (*SessionBroker)(nil)
