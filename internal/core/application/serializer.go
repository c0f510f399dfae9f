package application

import "sync"

type ticket struct {
	done chan struct{}
}

type keyQueue struct {
	tail *ticket
	refs int
}

// Serializer runs functions one at a time per key, in the order they were
// submitted. Functions for different keys run in parallel.
type Serializer struct {
	lock   sync.Mutex
	queues map[string]*keyQueue
}

func NewSerializer() *Serializer {
	return &Serializer{
		queues: make(map[string]*keyQueue),
	}
}

// Do waits for every function previously submitted for key to return, then
// runs fn. The key is released on every exit path of fn, panics included.
func (s *Serializer) Do(key string, fn func() error) error {
	release := s.acquire(key)
	defer release()

	return fn()
}

// WithKey is the value returning variant of Do.
func WithKey[T any](s *Serializer, key string, fn func() (T, error)) (T, error) {
	release := s.acquire(key)
	defer release()

	return fn()
}

// Pending returns the number of callers holding or waiting for key.
func (s *Serializer) Pending(key string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	q, ok := s.queues[key]
	if !ok {
		return 0
	}
	return q.refs
}

func (s *Serializer) acquire(key string) func() {
	me := &ticket{make(chan struct{})}

	s.lock.Lock()
	q, ok := s.queues[key]
	if !ok {
		q = &keyQueue{}
		s.queues[key] = q
	}
	prev := q.tail
	q.tail = me
	q.refs++
	s.lock.Unlock()

	if prev != nil {
		<-prev.done
	}

	return func() {
		s.lock.Lock()
		q.refs--
		if q.refs == 0 {
			delete(s.queues, key)
		}
		s.lock.Unlock()

		close(me.done)
	}
}
