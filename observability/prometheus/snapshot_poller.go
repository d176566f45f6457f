package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/arborq/taskorch/bus"
	"github.com/arborq/taskorch/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides the current Scheduler stats snapshot.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// PoolSnapshotProvider provides the current WorkerPool stats snapshot.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// BusSnapshotProvider provides the current per-topic bus stats snapshot.
type BusSnapshotProvider interface {
	Stats() map[string]bus.TopicStats
}

// SnapshotPoller periodically exports Scheduler/WorkerPool/Bus Stats()
// snapshots into Prometheus gauges, generalized from the teacher's
// runner/pool snapshot poller to this module's three components.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	busesMu sync.RWMutex
	buses   map[string]BusSnapshotProvider

	schedulerTimerDepth   *prom.GaugeVec
	schedulerPendingDepth *prom.GaugeVec
	schedulerRunning      *prom.GaugeVec

	poolWorkers   *prom.GaugeVec
	poolQueued    *prom.GaugeVec
	poolRunning   *prom.GaugeVec
	poolCompleted *prom.GaugeVec
	poolPanicked  *prom.GaugeVec

	busSubscribers *prom.GaugeVec
	busQueueDepth  *prom.GaugeVec
	busDropped     *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	schedulerTimerDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "scheduler_timer_queue_depth",
		Help: "Timer queue depth per scheduler.",
	}, []string{"scheduler"})
	schedulerPendingDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "scheduler_pending_table_depth",
		Help: "Pending dependency table depth per scheduler.",
	}, []string{"scheduler"})
	schedulerRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "scheduler_running",
		Help: "Scheduler running state (1=running, 0=stopped).",
	}, []string{"scheduler"})

	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "pool_workers", Help: "Worker count per pool.",
	}, []string{"pool"})
	poolQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "pool_ready_queue_depth", Help: "Ready queue depth per pool.",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "pool_running", Help: "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})
	poolCompleted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "pool_completed_total_snapshot", Help: "Completed task count snapshot per pool.",
	}, []string{"pool"})
	poolPanicked := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "pool_panicked_total_snapshot", Help: "Panicked task count snapshot per pool.",
	}, []string{"pool"})

	busSubscribers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "bus_topic_subscriber_count", Help: "Subscriber count per topic.",
	}, []string{"bus", "topic"})
	busQueueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "bus_topic_queue_depth_max", Help: "Max subscriber queue depth per topic.",
	}, []string{"bus", "topic"})
	busDropped := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskorch", Name: "bus_topic_dropped_total_snapshot", Help: "Cumulative drop count per topic, summed across subscribers.",
	}, []string{"bus", "topic"})

	collectors := []prom.Collector{
		schedulerTimerDepth, schedulerPendingDepth, schedulerRunning,
		poolWorkers, poolQueued, poolRunning, poolCompleted, poolPanicked,
		busSubscribers, busQueueDepth, busDropped,
	}
	for _, c := range collectors {
		if _, err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}

	return &SnapshotPoller{
		interval:              interval,
		schedulers:            make(map[string]SchedulerSnapshotProvider),
		pools:                 make(map[string]PoolSnapshotProvider),
		buses:                 make(map[string]BusSnapshotProvider),
		schedulerTimerDepth:   schedulerTimerDepth,
		schedulerPendingDepth: schedulerPendingDepth,
		schedulerRunning:      schedulerRunning,
		poolWorkers:           poolWorkers,
		poolQueued:            poolQueued,
		poolRunning:           poolRunning,
		poolCompleted:         poolCompleted,
		poolPanicked:          poolPanicked,
		busSubscribers:        busSubscribers,
		busQueueDepth:         busQueueDepth,
		busDropped:            busDropped,
	}, nil
}

func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.schedulersMu.Lock()
	p.schedulers[normalizeLabel(name, "scheduler")] = provider
	p.schedulersMu.Unlock()
}

func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.poolsMu.Lock()
	p.pools[normalizeLabel(name, "pool")] = provider
	p.poolsMu.Unlock()
}

func (p *SnapshotPoller) AddBus(name string, provider BusSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.busesMu.Lock()
	p.buses[normalizeLabel(name, "bus")] = provider
	p.busesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}
	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.schedulerTimerDepth.WithLabelValues(name).Set(float64(stats.TimerQueueDepth))
		p.schedulerPendingDepth.WithLabelValues(name).Set(float64(stats.PendingTableDepth))
		if stats.Running {
			p.schedulerRunning.WithLabelValues(name).Set(1)
		} else {
			p.schedulerRunning.WithLabelValues(name).Set(0)
		}
	}
	p.schedulersMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		p.poolPanicked.WithLabelValues(name).Set(float64(stats.Panicked))
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
	}
	p.poolsMu.RUnlock()

	p.busesMu.RLock()
	for name, provider := range p.buses {
		for topic, ts := range provider.Stats() {
			p.busSubscribers.WithLabelValues(name, topic).Set(float64(ts.SubscriberCount))
			maxDepth, totalDropped := 0, int64(0)
			for _, sub := range ts.Subscribers {
				if sub.Queued > maxDepth {
					maxDepth = sub.Queued
				}
				totalDropped += sub.Dropped
			}
			p.busQueueDepth.WithLabelValues(name, topic).Set(float64(maxDepth))
			p.busDropped.WithLabelValues(name, topic).Set(float64(totalDropped))
		}
	}
	p.busesMu.RUnlock()
}
