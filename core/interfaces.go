package core

import (
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task action panics
// =============================================================================

// PanicHandler is called when a Task's action panics during execution.
// A One-shot task's panic is captured as an error on its Future and does
// not reach the PanicHandler; only Interval and Event panics do.
// Implementations should be thread-safe as they may be called concurrently
// from any worker.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - workerID: the worker goroutine that was running the task
	// - task: the Task whose action panicked
	// - panicInfo: the panic value recovered from the action
	// - stackTrace: the stack trace at the time of panic
	HandlePanic(workerID int, task *Task, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panic information through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

func (h *DefaultPanicHandler) HandlePanic(workerID int, task *Task, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewNoOpLogger()
	}
	logger.Error("task action panicked",
		F("worker_id", workerID),
		F("task_id", task.ID().String()),
		F("task_kind", task.Kind().String()),
		F("panic", fmt.Sprintf("%v", panicInfo)),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler/pool/bus execution
// metrics. Implementations can send metrics to monitoring systems
// (Prometheus, StatsD, etc.). All methods must be non-blocking and fast.
type Metrics interface {
	// RecordTaskDuration records how long a task's action took to execute.
	RecordTaskDuration(kind Kind, priority uint32, duration time.Duration)

	// RecordTaskPanic records that a task's action panicked.
	RecordTaskPanic(kind Kind, panicInfo any)

	// RecordReadyQueueDepth records the worker pool's current ready-queue
	// depth.
	RecordReadyQueueDepth(depth int)

	// RecordTimerQueueDepth records the scheduler's timer-queue depth.
	RecordTimerQueueDepth(depth int)

	// RecordPendingTableDepth records the scheduler's pending-dependency
	// table depth.
	RecordPendingTableDepth(depth int)

	// RecordEventBucketDepth records the depth of a single event's bucket.
	RecordEventBucketDepth(eventName string, depth int)

	// RecordTaskRejected records that a task was rejected (e.g. submitted
	// after shutdown, or with unresolved dependencies via schedule_now).
	RecordTaskRejected(reason string)

	// RecordBusSubscriberDepth records a subscriber's current queue depth.
	RecordBusSubscriberDepth(topic string, depth int)

	// RecordBusDrop records a message a subscriber rejected, because its
	// queue was full or the message type did not match.
	RecordBusDrop(topic string)
}

// NilMetrics is a no-op Metrics implementation; it is the default when
// none is supplied.
type NilMetrics struct{}

func (*NilMetrics) RecordTaskDuration(Kind, uint32, time.Duration)  {}
func (*NilMetrics) RecordTaskPanic(Kind, any)                       {}
func (*NilMetrics) RecordReadyQueueDepth(int)                       {}
func (*NilMetrics) RecordTimerQueueDepth(int)                       {}
func (*NilMetrics) RecordPendingTableDepth(int)                     {}
func (*NilMetrics) RecordEventBucketDepth(string, int)               {}
func (*NilMetrics) RecordTaskRejected(string)                        {}
func (*NilMetrics) RecordBusSubscriberDepth(string, int)             {}
func (*NilMetrics) RecordBusDrop(string)                             {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a task is rejected by the scheduler —
// shutdown in progress, or a schedule_now(task) call against unresolved
// dependencies.
type RejectedTaskHandler interface {
	HandleRejectedTask(task *Task, reason string)
}

// DefaultRejectedTaskHandler logs the rejection through a Logger.
type DefaultRejectedTaskHandler struct {
	Logger Logger
}

func (h *DefaultRejectedTaskHandler) HandleRejectedTask(task *Task, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = NewNoOpLogger()
	}
	logger.Warn("task rejected", F("task_id", task.ID().String()), F("reason", reason))
}

// =============================================================================
// SchedulerConfig: Configuration for Scheduler and WorkerPool
// =============================================================================

// SchedulerConfig holds the ambient collaborators shared by the Scheduler
// and the WorkerPool. All fields are optional; defaults are filled in by
// DefaultSchedulerConfig.
type SchedulerConfig struct {
	// Workers is the fixed worker-pool size.
	Workers int

	// SpinThreshold is the hybrid timer loop's latency floor (§4.4):
	// deadlines within this distance spin instead of condition-waiting.
	SpinThreshold time.Duration

	Logger               Logger
	PanicHandler         PanicHandler
	Metrics              Metrics
	RejectedTaskHandler  RejectedTaskHandler
}

const (
	DefaultWorkerCount  = 4
	DefaultSpinThreshold = 20 * time.Millisecond
)

// DefaultSchedulerConfig returns a config with default handlers and the
// documented constants (§6: worker count, §4.4: 20ms spin threshold).
func DefaultSchedulerConfig() *SchedulerConfig {
	logger := NewDefaultLogger()
	return &SchedulerConfig{
		Workers:             DefaultWorkerCount,
		SpinThreshold:       DefaultSpinThreshold,
		Logger:              logger,
		PanicHandler:        &DefaultPanicHandler{Logger: logger},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{Logger: logger},
	}
}

func (c *SchedulerConfig) fillDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkerCount
	}
	if c.SpinThreshold <= 0 {
		c.SpinThreshold = DefaultSpinThreshold
	}
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
	if c.PanicHandler == nil {
		c.PanicHandler = &DefaultPanicHandler{Logger: c.Logger}
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.RejectedTaskHandler == nil {
		c.RejectedTaskHandler = &DefaultRejectedTaskHandler{Logger: c.Logger}
	}
}

// Option mutates a SchedulerConfig; used by NewScheduler.
type Option func(*SchedulerConfig)

func WithWorkers(n int) Option { return func(c *SchedulerConfig) { c.Workers = n } }

func WithSpinThreshold(d time.Duration) Option {
	return func(c *SchedulerConfig) { c.SpinThreshold = d }
}

func WithLogger(l Logger) Option { return func(c *SchedulerConfig) { c.Logger = l } }

func WithPanicHandler(h PanicHandler) Option {
	return func(c *SchedulerConfig) { c.PanicHandler = h }
}

func WithMetrics(m Metrics) Option { return func(c *SchedulerConfig) { c.Metrics = m } }

func WithRejectedTaskHandler(h RejectedTaskHandler) Option {
	return func(c *SchedulerConfig) { c.RejectedTaskHandler = h }
}
