package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/arborq/taskorch/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	readyQueueDepth     prom.Gauge
	timerQueueDepth     prom.Gauge
	pendingTableDepth   prom.Gauge
	eventBucketDepth    *prom.GaugeVec
	busSubscriberDepth  *prom.GaugeVec
	busDropTotal        *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for
// core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "taskorch"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task action execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"kind", "priority"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task action panics.",
	}, []string{"kind"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected tasks.",
	}, []string{"reason"})
	readyDepth := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "ready_queue_depth",
		Help:      "Current worker pool ready-queue depth.",
	})
	timerDepth := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "timer_queue_depth",
		Help:      "Current scheduler timer-queue depth.",
	})
	pendingDepth := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_table_depth",
		Help:      "Current scheduler pending-dependency-table depth.",
	})
	eventDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "event_bucket_depth",
		Help:      "Current depth of a single event's bucket.",
	}, []string{"event"})
	busDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "bus_subscriber_queue_depth",
		Help:      "Current depth of a bus subscriber's queue.",
	}, []string{"topic"})
	busDrop := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "bus_drop_total",
		Help:      "Total number of messages dropped by a full or mismatched subscriber.",
	}, []string{"topic"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if readyDepth, err = registerCollector(reg, readyDepth); err != nil {
		return nil, err
	}
	if timerDepth, err = registerCollector(reg, timerDepth); err != nil {
		return nil, err
	}
	if pendingDepth, err = registerCollector(reg, pendingDepth); err != nil {
		return nil, err
	}
	if eventDepth, err = registerCollector(reg, eventDepth); err != nil {
		return nil, err
	}
	if busDepth, err = registerCollector(reg, busDepth); err != nil {
		return nil, err
	}
	if busDrop, err = registerCollector(reg, busDrop); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskRejectedTotal:   rejectedVec,
		readyQueueDepth:     readyDepth,
		timerQueueDepth:     timerDepth,
		pendingTableDepth:   pendingDepth,
		eventBucketDepth:    eventDepth,
		busSubscriberDepth:  busDepth,
		busDropTotal:        busDrop,
	}, nil
}

func (m *MetricsExporter) RecordTaskDuration(kind core.Kind, priority uint32, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(kind.String(), strconv.FormatUint(uint64(priority), 10)).Observe(duration.Seconds())
}

func (m *MetricsExporter) RecordTaskPanic(kind core.Kind, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(kind.String()).Inc()
}

func (m *MetricsExporter) RecordReadyQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.readyQueueDepth.Set(float64(depth))
}

func (m *MetricsExporter) RecordTimerQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.timerQueueDepth.Set(float64(depth))
}

func (m *MetricsExporter) RecordPendingTableDepth(depth int) {
	if m == nil {
		return
	}
	m.pendingTableDepth.Set(float64(depth))
}

func (m *MetricsExporter) RecordEventBucketDepth(eventName string, depth int) {
	if m == nil {
		return
	}
	m.eventBucketDepth.WithLabelValues(normalizeLabel(eventName, "unknown")).Set(float64(depth))
}

func (m *MetricsExporter) RecordTaskRejected(reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}

func (m *MetricsExporter) RecordBusSubscriberDepth(topic string, depth int) {
	if m == nil {
		return
	}
	m.busSubscriberDepth.WithLabelValues(normalizeLabel(topic, "unknown")).Set(float64(depth))
}

func (m *MetricsExporter) RecordBusDrop(topic string) {
	if m == nil {
		return
	}
	m.busDropTotal.WithLabelValues(normalizeLabel(topic, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
