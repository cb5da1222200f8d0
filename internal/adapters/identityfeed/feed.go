// Package identityfeed fans identity changes out to watchers for backends
// that track a single signed-in identity in process.
package identityfeed

import (
	"context"
	"sync"

	domainauth "github.com/target/stockcam/internal/domain/auth"
)

// Feed broadcasts the current identity. Each watcher receives the value
// current at subscription time followed by every later change. A slow
// watcher only ever misses intermediate values, never the latest one.
type Feed struct {
	mu       sync.Mutex
	current  *domainauth.Identity
	watchers map[int]chan *domainauth.Identity
	nextID   int
}

// New creates an empty feed (signed out).
func New() *Feed {
	return &Feed{watchers: make(map[int]chan *domainauth.Identity)}
}

// Current returns a copy of the current identity, or nil when signed out.
func (f *Feed) Current() *domainauth.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.current)
}

// Publish replaces the current identity and notifies watchers.
func (f *Feed) Publish(id *domainauth.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = clone(id)
	for _, ch := range f.watchers {
		offer(ch, clone(id))
	}
}

// Watch subscribes until ctx is done, at which point the channel is closed.
func (f *Feed) Watch(ctx context.Context) <-chan *domainauth.Identity {
	ch := make(chan *domainauth.Identity, 1)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.watchers[id] = ch
	ch <- clone(f.current)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.watchers, id)
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

// Watchers returns the number of active watchers.
func (f *Feed) Watchers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}

// offer delivers v, replacing any value the watcher has not consumed yet.
// Callers hold f.mu so there is a single sender per channel.
func offer(ch chan *domainauth.Identity, v *domainauth.Identity) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}

func clone(id *domainauth.Identity) *domainauth.Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
