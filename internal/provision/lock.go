package provision

import (
	"context"
	"sync"
)

// Serialization selects how concurrent client add calls are ordered.
// The script usually writes into a shared Easy-RSA index, which is not
// safe for concurrent writers.
type Serialization string

const (
	SerializeGlobal Serialization = "global" // one client add at a time
	SerializeClient Serialization = "client" // one at a time per client name
	SerializeNone   Serialization = "none"
)

// keyedLock is a set of context-aware mutexes keyed by string.
// Entries are dropped once nobody holds or waits for them.
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// acquire blocks until key is free or ctx is done.
func (l *keyedLock) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]*slot)
	}
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			l.release(key, s)
		}, nil
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}
}

func (l *keyedLock) release(key string, s *slot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

func (l *keyedLock) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
