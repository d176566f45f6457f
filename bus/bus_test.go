package bus

import "testing"

// TestBus_Publish_FansOutToAllSubscribers verifies every subscriber on a
// topic sees the same published message body
// Given: Two subscribers on topic "color"
// When: Publish is called once and each subscriber spins once
// Then: both callbacks observe the identical message
func TestBus_Publish_FansOutToAllSubscribers(t *testing.T) {
	// Arrange
	b := NewBus()
	var seenA, seenB string
	subA := Subscribe(b, "color", func(msg string) { seenA = msg })
	subB := Subscribe(b, "color", func(msg string) { seenB = msg })

	// Act
	delivered := Publish(b, "color", "rgb(100,200,255)")
	subA.Spin(false)
	subB.Spin(false)

	// Assert
	if delivered != 2 {
		t.Fatalf("Publish delivered = %d, want 2", delivered)
	}
	if seenA != "rgb(100,200,255)" || seenB != "rgb(100,200,255)" {
		t.Fatalf("seenA=%q seenB=%q, want both rgb(100,200,255)", seenA, seenB)
	}
}

// TestBus_Publish_OnlyReachesMatchingTopic verifies topic isolation
// Given: A subscriber on topic "a" and a publish to topic "b"
// When: Publish is called on "b"
// Then: it reports 0 delivered and the "a" subscriber's queue stays empty
func TestBus_Publish_OnlyReachesMatchingTopic(t *testing.T) {
	// Arrange
	b := NewBus()
	sub := Subscribe(b, "a", func(string) {})

	// Act
	delivered := Publish(b, "b", "hello")

	// Assert
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0", delivered)
	}
	if sub.stats().Queued != 0 {
		t.Fatal("subscriber on a different topic should not receive the message")
	}
}

// TestBus_Unsubscribe_RemovesFromTopic verifies Unsubscribe stops further
// deliveries
// Given: A subscribed handle that is then unsubscribed
// When: Publish is called afterward
// Then: it reports 0 delivered and a second Unsubscribe call reports false
func TestBus_Unsubscribe_RemovesFromTopic(t *testing.T) {
	// Arrange
	b := NewBus()
	sub := Subscribe(b, "topic", func(string) {})

	// Act
	first := Unsubscribe(b, sub)
	delivered := Publish(b, "topic", "ignored")
	second := Unsubscribe(b, sub)

	// Assert
	if !first {
		t.Fatal("first Unsubscribe should report true")
	}
	if delivered != 0 {
		t.Fatalf("delivered after unsubscribe = %d, want 0", delivered)
	}
	if second {
		t.Fatal("second Unsubscribe of the same handle should report false")
	}
}

// TestBus_Stats_ReportsPerTopicSubscriberCountAndQueueDepth verifies the
// diagnostic snapshot
// Given: A topic with one subscriber holding 2 queued messages
// When: Stats is called
// Then: it reports SubscriberCount 1 and a matching queue depth
func TestBus_Stats_ReportsPerTopicSubscriberCountAndQueueDepth(t *testing.T) {
	// Arrange
	b := NewBus()
	Subscribe(b, "topic", func(int) {})
	Publish(b, "topic", 1)
	Publish(b, "topic", 2)

	// Act
	stats := b.Stats()

	// Assert
	topicStats, ok := stats["topic"]
	if !ok {
		t.Fatal("expected stats for \"topic\"")
	}
	if topicStats.SubscriberCount != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", topicStats.SubscriberCount)
	}
	if len(topicStats.Subscribers) != 1 || topicStats.Subscribers[0].Queued != 2 {
		t.Fatalf("Subscribers = %+v, want one entry with Queued == 2", topicStats.Subscribers)
	}
}

// TestBus_Publish_TypeMismatchDropsOnlyThatSubscriber verifies a
// mismatched-type subscriber on a shared topic doesn't block delivery to
// correctly-typed subscribers
// Given: An int subscriber and a string subscriber sharing topic "mixed"
// When: a string is published on "mixed", and a string is pushed directly
// into the int subscriber through the type-erased path
// Then: only the string subscriber accepts the message, the int
// subscriber's queue stays empty, and the direct push is rejected
func TestBus_Publish_TypeMismatchDropsOnlyThatSubscriber(t *testing.T) {
	// Arrange
	b := NewBus()
	intSub := Subscribe(b, "mixed", func(int) {})
	strSub := Subscribe(b, "mixed", func(string) {})

	// Act
	delivered := Publish(b, "mixed", "hello")
	// Simulate a foreign publisher pushing a mismatched type directly
	// through the type-erased path pushErased exposes.
	accepted := intSub.pushErased("not an int")

	// Assert
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1 (only the string subscriber)", delivered)
	}
	if strSub.stats().Queued != 1 {
		t.Fatalf("string subscriber Queued = %d, want 1", strSub.stats().Queued)
	}
	if intSub.stats().Queued != 0 {
		t.Fatalf("int subscriber Queued = %d, want 0", intSub.stats().Queued)
	}
	if accepted {
		t.Fatal("pushErased should reject a type mismatch even off the Publish[T] path")
	}
}
