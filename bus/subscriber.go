package bus

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// DefaultSubscriberQueueSize is the bounded FIFO capacity a Subscriber gets
// unless Subscribe is called with an explicit max_queue.
const DefaultSubscriberQueueSize = 10

// handle is the minimal identity a Bus needs to find and remove a
// subscriber; Subscriber[T] satisfies it for every T.
type handle interface {
	topicName() string
	subscriberID() uint64
}

// subscriber is the type-erased shape the Bus's topic table stores;
// Subscriber[T] satisfies it for every T, and its pushErased type-asserts
// each published value against T so Publish[T] is checked rather than
// silently reinterpreted (the §9 open-question resolution: a checked
// dispatch, not the source's unchecked one).
type subscriber interface {
	handle
	pushErased(msg any) bool
	stats() SubscriberStats
}

// SubscriberStats is a diagnostic snapshot of one subscriber's queue.
type SubscriberStats struct {
	Topic   string
	Queued  int
	Dropped int64
}

// Subscriber owns a bounded FIFO of messages of a single type T plus the
// callback Spin invokes. It is created by Subscribe and lives until
// Unsubscribe removes it from its topic bucket.
type Subscriber[T any] struct {
	topic    string
	id       uint64
	msgType  reflect.Type
	callback func(T)
	maxQueue int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []T
	dropped atomic.Int64
}

func newSubscriber[T any](topic string, id uint64, cb func(T), maxQueue int) *Subscriber[T] {
	if maxQueue <= 0 {
		maxQueue = DefaultSubscriberQueueSize
	}
	s := &Subscriber[T]{
		topic:    topic,
		id:       id,
		msgType:  reflect.TypeOf((*T)(nil)).Elem(),
		callback: cb,
		maxQueue: maxQueue,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Subscriber[T]) topicName() string    { return s.topic }
func (s *Subscriber[T]) subscriberID() uint64 { return s.id }

// pushErased type-checks msg against T before enqueueing. A type mismatch
// is treated the same as a full queue: the push reports failure.
func (s *Subscriber[T]) pushErased(msg any) bool {
	typed, ok := msg.(T)
	if !ok {
		return false
	}

	s.mu.Lock()
	if len(s.queue) >= s.maxQueue {
		s.mu.Unlock()
		s.dropped.Add(1)
		return false
	}
	s.queue = append(s.queue, typed)
	s.mu.Unlock()
	s.cond.Signal()
	return true
}

// Spin pops the oldest queued message and invokes the callback with it. If
// block is false and the queue is empty, Spin returns false immediately
// without looping; it never pops more than one message per call.
func (s *Subscriber[T]) Spin(block bool) bool {
	s.mu.Lock()
	for len(s.queue) == 0 {
		if !block {
			s.mu.Unlock()
			return false
		}
		s.cond.Wait()
	}
	msg := s.queue[0]
	s.queue = s.queue[1:]
	s.mu.Unlock()

	s.callback(msg)
	return true
}

func (s *Subscriber[T]) stats() SubscriberStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SubscriberStats{Topic: s.topic, Queued: len(s.queue), Dropped: s.dropped.Load()}
}
