package audit

import (
	"context"
	"sync"
)

// fanout delivers events to all active subscribers (SSE clients).
type fanout struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func newFanout() *fanout {
	return &fanout{subs: make(map[int]chan Event)}
}

func (f *fanout) subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

func (f *fanout) publish(evt Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking the request path.
		}
	}
}
