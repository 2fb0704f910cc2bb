// Package session tracks the per-chat conversation state of the bot.
// Entries live in a bounded LRU and expire after a fixed TTL, so
// abandoned conversations cannot grow the store without limit.
package session

import (
	"sync"
	"time"
)

// State is the conversation step a chat is in.
type State int

const (
	// Idle is the default state: commands are handled as usual.
	Idle State = iota
	// AwaitingSecret means the next text message is the status secret.
	AwaitingSecret
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSecret:
		return "awaiting-secret"
	}
	return "unknown"
}

// Key identifies a conversation: one user in one chat.
type Key struct {
	ChatID int64
	UserID int64
}

// Store is an in-memory LRU of conversation states.
type Store struct {
	mu  sync.Mutex
	cap int
	ttl time.Duration
	now func() time.Time

	// Doubly-linked list for LRU ordering (most recent at head).
	head, tail *entry
	items      map[Key]*entry
}

type entry struct {
	key     Key
	state   State
	expires time.Time
	prev    *entry
	next    *entry
}

// NewStore creates a store holding at most capacity conversations, each
// valid for ttl after it was last set. Capacity must be >= 1; a ttl of
// zero or less disables expiry.
func NewStore(capacity int, ttl time.Duration) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		cap:   capacity,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[Key]*entry),
	}
}

// Get returns the state for key without consuming it. Unknown and
// expired keys are Idle. The bot itself only uses Take; Get is for
// inspection and tests.
func (s *Store) Get(key Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return Idle
	}
	if s.expired(e) {
		s.drop(e)
		return Idle
	}
	s.moveToFront(e)
	return e.state
}

// Set records state for key. Setting Idle is the same as Clear.
func (s *Store) Set(key Key, state State) {
	if state == Idle {
		s.Clear(key)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}

	if e, ok := s.items[key]; ok {
		e.state = state
		e.expires = expires
		s.moveToFront(e)
		return
	}
	e := &entry{key: key, state: state, expires: expires}
	s.items[key] = e
	s.pushFront(e)
	if len(s.items) > s.cap {
		s.evict()
	}
}

// Take returns the state for key and atomically resets it to Idle.
func (s *Store) Take(key Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		return Idle
	}
	state := e.state
	if s.expired(e) {
		state = Idle
	}
	s.drop(e)
	return state
}

// Clear resets key to Idle.
func (s *Store) Clear(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		s.drop(e)
	}
}

// Len returns the number of tracked conversations, expired ones included.
// It is reported at shutdown.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) expired(e *entry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}

func (s *Store) drop(e *entry) {
	s.remove(e)
	delete(s.items, e.key)
}

func (s *Store) pushFront(e *entry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *Store) moveToFront(e *entry) {
	if s.head == e {
		return
	}
	s.remove(e)
	s.pushFront(e)
}

func (s *Store) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (s *Store) evict() {
	if s.tail == nil {
		return
	}
	s.drop(s.tail)
}
