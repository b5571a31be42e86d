package session

import (
	"sync"
	"time"
)

// store holds live sessions in memory. An entry untouched for longer than
// ttl is dropped on the next lookup or sweep and handed to onEvict.
type store struct {
	mu      sync.Mutex
	data    map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	onEvict func(*Session)
}

type entry struct {
	session *Session
	touched time.Time
}

func newStore(ttl time.Duration, onEvict func(*Session)) *store {
	return &store{
		data:    make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		onEvict: onEvict,
	}
}

func (s *store) Set(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = &entry{session: sess, touched: s.now()}
}

// Get returns a live session and refreshes its deadline.
func (s *store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	e, ok := s.data[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if s.expired(e) {
		delete(s.data, id)
		s.mu.Unlock()
		s.evict(e.session)
		return nil, false
	}
	e.touched = s.now()
	s.mu.Unlock()
	return e.session, true
}

func (s *store) Delete(id string) {
	s.mu.Lock()
	e, ok := s.data[id]
	delete(s.data, id)
	s.mu.Unlock()
	if ok {
		s.evict(e.session)
	}
}

// Sweep drops every expired session and returns how many were removed.
func (s *store) Sweep() int {
	s.mu.Lock()
	var expired []*Session
	for id, e := range s.data {
		if s.expired(e) {
			expired = append(expired, e.session)
			delete(s.data, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		s.evict(sess)
	}
	return len(expired)
}

// Clear drops every session regardless of age.
func (s *store) Clear() {
	s.mu.Lock()
	data := s.data
	s.data = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range data {
		s.evict(e.session)
	}
}

func (s *store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *store) expired(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.touched) > s.ttl
}

func (s *store) evict(sess *Session) {
	if s.onEvict != nil {
		s.onEvict(sess)
	}
}
