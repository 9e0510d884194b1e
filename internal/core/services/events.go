package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

// broadcaster fans events out to subscribers without dropping any.
// Every subscriber owns an unbounded queue drained by its own goroutine, so
// a slow consumer delays only itself.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]*subscription)}
}

// subscribe registers a consumer. The channel closes when ctx is done or
// the broadcaster is closed; in the latter case queued events are delivered
// first.
func (b *broadcaster) subscribe(ctx context.Context) (<-chan domain.Event, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, domain.ErrDisposed
	}
	sub := newSubscription()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	go sub.pump(ctx)
	go func() {
		select {
		case <-ctx.Done():
		case <-sub.done:
		}
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.close()
	}()

	return sub.out, nil
}

// publish enqueues ev for every subscriber. It never blocks on consumers.
func (b *broadcaster) publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.push(ev)
	}
}

// close stops accepting subscribers and ends every subscription.
func (b *broadcaster) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[int]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// subscriberCount is used by tests to wait for unsubscription.
func (b *broadcaster) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

type subscription struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []domain.Event
	closed bool

	out  chan domain.Event
	done chan struct{}
}

func newSubscription() *subscription {
	s := &subscription{
		out:  make(chan domain.Event),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *subscription) push(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, ev)
	s.cond.Signal()
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cond.Broadcast()
}

func (s *subscription) pump(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue[0] = domain.Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
