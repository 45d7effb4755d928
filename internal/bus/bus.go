package bus

import (
	"log"
	"sync"
	"time"
)

const defaultBufSize = 100

// Bus is a small in-process fan-out for engine events. Subscribers that
// fall behind lose events rather than block publishers.
type Bus struct {
	mu     sync.Mutex
	subs   []chan Event
	buf    int
	closed bool
}

func New() *Bus {
	return &Bus{buf: defaultBufSize}
}

func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.buf)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("[bus] subscriber full, dropping %s event", ev.Type)
		}
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
