package taskorch

import (
	"github.com/arborq/taskorch/bus"
	"github.com/arborq/taskorch/core"
)

// Re-exported types so most callers only need to import the taskorch
// package itself.

type (
	Task            = core.Task
	TaskID          = core.TaskID
	Kind            = core.Kind
	Flow            = core.Flow
	Scheduler       = core.Scheduler
	WorkerPool      = core.WorkerPool
	SchedulerConfig = core.SchedulerConfig
	SchedulerOption = core.Option
	Logger          = core.Logger
	Field           = core.Field
	PanicHandler    = core.PanicHandler
	Metrics         = core.Metrics
	RejectedTaskHandler = core.RejectedTaskHandler
	TaskExecutionRecord = core.TaskExecutionRecord
	SchedulerStats      = core.SchedulerStats
	PoolStats           = core.PoolStats

	Bus             = bus.Bus
	TopicStats      = bus.TopicStats
	SubscriberStats = bus.SubscriberStats
)

// Subscriber[T] is not re-exported as an alias here: generic alias types
// are not part of the stable language surface this module targets.
// Callers that need the type by name (as opposed to the Subscribe/
// Unsubscribe helpers in taskorch.go, which return/accept a
// *bus.Subscriber[T] without the caller naming it) should import
// github.com/arborq/taskorch/bus directly.

const (
	KindOnce     = core.KindOnce
	KindInterval = core.KindInterval
	KindEvent    = core.KindEvent

	DefaultPriority     = core.DefaultPriority
	DefaultFlowPriority = core.DefaultFlowPriority
	DefaultWorkerCount  = core.DefaultWorkerCount
	DefaultSpinThreshold = core.DefaultSpinThreshold
	DefaultSubscriberQueueSize = bus.DefaultSubscriberQueueSize
)

var (
	F                   = core.F
	NewDefaultLogger    = core.NewDefaultLogger
	NewNoOpLogger       = core.NewNoOpLogger
	DefaultSchedulerConfig = core.DefaultSchedulerConfig

	WithWorkers             = core.WithWorkers
	WithSpinThreshold       = core.WithSpinThreshold
	WithLogger              = core.WithLogger
	WithPanicHandler        = core.WithPanicHandler
	WithMetrics             = core.WithMetrics
	WithRejectedTaskHandler = core.WithRejectedTaskHandler

	NewFlow      = core.NewFlow
	NewScheduler = core.NewScheduler
	NewBus       = bus.NewBus
)
