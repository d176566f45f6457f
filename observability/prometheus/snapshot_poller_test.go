package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/arborq/taskorch/bus"
	"github.com/arborq/taskorch/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type schedulerStub struct {
	stats core.SchedulerStats
}

func (s schedulerStub) Stats() core.SchedulerStats { return s.stats }

type poolStub struct {
	stats core.PoolStats
}

func (s poolStub) Stats() core.PoolStats { return s.stats }

type busStub struct {
	stats map[string]bus.TopicStats
}

func (s busStub) Stats() map[string]bus.TopicStats { return s.stats }

func TestSnapshotPoller_CollectsSchedulerPoolAndBusStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddScheduler("sched-a", schedulerStub{stats: core.SchedulerStats{
		TimerQueueDepth:   3,
		PendingTableDepth: 2,
		Running:           true,
	}})
	poller.AddPool("pool-a", poolStub{stats: core.PoolStats{
		Workers:   8,
		Queued:    4,
		Running:   true,
		Completed: 10,
		Panicked:  1,
	}})
	poller.AddBus("bus-a", busStub{stats: map[string]bus.TopicStats{
		"orders": {
			SubscriberCount: 2,
			Subscribers: []bus.SubscriberStats{
				{Topic: "orders", Queued: 5, Dropped: 1},
				{Topic: "orders", Queued: 2, Dropped: 0},
			},
		},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		timerDepth := testutil.ToFloat64(poller.schedulerTimerDepth.WithLabelValues("sched-a"))
		queued := testutil.ToFloat64(poller.poolQueued.WithLabelValues("pool-a"))
		subs := testutil.ToFloat64(poller.busSubscribers.WithLabelValues("bus-a", "orders"))
		return timerDepth == 3 && queued == 4 && subs == 2
	})

	if got := testutil.ToFloat64(poller.schedulerRunning.WithLabelValues("sched-a")); got != 1 {
		t.Fatalf("scheduler running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.poolRunning.WithLabelValues("pool-a")); got != 1 {
		t.Fatalf("pool running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.busQueueDepth.WithLabelValues("bus-a", "orders")); got != 5 {
		t.Fatalf("bus max queue depth = %v, want 5", got)
	}
	if got := testutil.ToFloat64(poller.busDropped.WithLabelValues("bus-a", "orders")); got != 1 {
		t.Fatalf("bus dropped total = %v, want 1", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
