package events

import (
	"sync"
)

// Stream fans published values out to subscriber channels.
// T is the type of the value delivered to subscribers.
type Stream[T any] struct {
	mu         sync.RWMutex
	subs       map[uint64]chan<- T
	nextID     uint64
	replayLast bool
	last       *T // non-nil once Publish has been called, when replayLast is set
}

// NewStream creates a new Stream instance.
// replayLast: if true, the Stream remembers the most recent Publish value
// and delivers it to new subscribers immediately on Subscribe.
func NewStream[T any](replayLast bool) *Stream[T] {
	return &Stream[T]{
		subs:       make(map[uint64]chan<- T),
		replayLast: replayLast,
	}
}

// Subscribe registers a channel to receive values from Publish.
// Returns a cancel function that removes the subscription.
// If replayLast is set and Publish has been called at least once, the most
// recent value is sent to the channel before Subscribe returns.
func (s *Stream[T]) Subscribe(ch chan<- T) func() {
	if ch == nil {
		panic("subscriber channel cannot be nil")
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	var replay *T
	if s.replayLast && s.last != nil {
		v := *s.last
		replay = &v
	}
	s.mu.Unlock()

	// Deliver the replayed value outside the lock to avoid deadlock
	if replay != nil {
		select {
		case ch <- *replay:
		default:
			// Channel is full, drop the replay
		}
	}

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Publish sends the value to every subscribed channel.
// Thread-safe. Sends are non-blocking: a full channel misses the value.
func (s *Stream[T]) Publish(value T) {
	s.mu.Lock()
	if s.replayLast {
		v := value
		s.last = &v
	}
	targets := make([]chan<- T, 0, len(s.subs))
	for _, ch := range s.subs {
		targets = append(targets, ch)
	}
	s.mu.Unlock()

	// Deliver outside the lock so a slow subscriber cannot block Subscribe
	for _, ch := range targets {
		select {
		case ch <- value:
		default:
			// Channel is full, skip this subscriber
		}
	}
}

// SubscriberCount returns the current number of subscriptions.
// Useful for tests and debugging.
func (s *Stream[T]) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
