package bus

import (
	"sync"
	"sync/atomic"

	"github.com/arborq/taskorch/core"
)

// Bus is a topic-keyed, type-checked publish/subscribe router with
// bounded per-subscriber FIFOs, generalized from inipew-pewbot's
// non-blocking channel-drop eventbus idiom to a multi-subscriber,
// multi-topic table with an explicit per-subscriber queue instead of a
// raw channel.
type Bus struct {
	mu     sync.RWMutex // covers the topic map only, never a subscriber's own FIFO lock
	topics map[string][]subscriber
	nextID atomic.Uint64

	logger  core.Logger
	metrics core.Metrics
}

// Option configures a Bus at construction time.
type Option func(*Bus)

func WithLogger(l core.Logger) Option   { return func(b *Bus) { b.logger = l } }
func WithMetrics(m core.Metrics) Option { return func(b *Bus) { b.metrics = m } }

// NewBus constructs an empty Bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		topics:  make(map[string][]subscriber),
		logger:  core.NewNoOpLogger(),
		metrics: &core.NilMetrics{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = core.NewNoOpLogger()
	}
	if b.metrics == nil {
		b.metrics = &core.NilMetrics{}
	}
	return b
}

// Subscribe creates a Subscriber bound to topic and the concrete type T,
// with a bounded FIFO of maxQueue (default DefaultSubscriberQueueSize, 10).
func Subscribe[T any](b *Bus, topic string, callback func(T), maxQueue ...int) *Subscriber[T] {
	capacity := DefaultSubscriberQueueSize
	if len(maxQueue) > 0 && maxQueue[0] > 0 {
		capacity = maxQueue[0]
	}
	sub := newSubscriber(topic, b.nextID.Add(1), callback, capacity)

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	b.mu.Unlock()

	b.logger.Debug("bus subscribed", core.F("topic", topic), core.F("max_queue", capacity))
	return sub
}

// Unsubscribe removes h from its topic bucket. O(n) in the bucket.
func Unsubscribe(b *Bus, h handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic := h.topicName()
	bucket := b.topics[topic]
	for i, s := range bucket {
		if s.subscriberID() == h.subscriberID() {
			b.topics[topic] = append(bucket[:i:i], bucket[i+1:]...)
			return true
		}
	}
	return false
}

// Publish fans msg out, under the bus lock, to every subscriber currently
// registered on topic. Each push is independent and best-effort: a
// mismatched type or a full queue only fails that one subscriber's push.
// Publish returns how many subscribers accepted the message.
func Publish[T any](b *Bus, topic string, msg T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, s := range b.topics[topic] {
		if s.pushErased(msg) {
			delivered++
		} else {
			b.metrics.RecordBusDrop(topic)
		}
	}
	return delivered
}

// TopicStats is a diagnostic snapshot of one topic's subscriber queues.
type TopicStats struct {
	SubscriberCount int
	Subscribers     []SubscriberStats
}

// Stats returns a snapshot of every topic's subscriber count and queue
// depths, a natural pairing with the Prometheus snapshot poller wired for
// the Scheduler and WorkerPool.
func (b *Bus) Stats() map[string]TopicStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]TopicStats, len(b.topics))
	for topic, bucket := range b.topics {
		stats := make([]SubscriberStats, len(bucket))
		for i, s := range bucket {
			stats[i] = s.stats()
			b.metrics.RecordBusSubscriberDepth(topic, stats[i].Queued)
		}
		out[topic] = TopicStats{SubscriberCount: len(bucket), Subscribers: stats}
	}
	return out
}
