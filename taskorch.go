package taskorch

import (
	"context"
	"sync"
	"time"

	"github.com/arborq/taskorch/bus"
	"github.com/arborq/taskorch/core"
)

// Run must be called (typically once, from main, in its own goroutine) for
// delayed and interval tasks to ever fire — it is the single dedicated
// timer thread the scheduler design calls for; nothing starts it for you.
//
// For test isolation, construct private instances with NewScheduler and
// NewBus instead of touching the process-wide default.
var (
	defaultOnce sync.Once
	defaultMu   sync.Mutex
	defaultSch  *core.Scheduler
	defaultBus  *bus.Bus
)

func defaultScheduler() *core.Scheduler {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		defaultSch = core.NewScheduler()
		defaultBus = bus.NewBus()
	})
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultSch
}

func defaultBusInstance() *bus.Bus {
	defaultScheduler() // ensures the Once has fired and defaultBus is set
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultBus
}

// ShutdownDefault stops the process-wide default Scheduler/WorkerPool and
// drops the default Bus, then rearms the lazy constructor so the next
// call to a module-level helper builds a fresh set — primarily for test
// isolation.
func ShutdownDefault() {
	defaultMu.Lock()
	sch := defaultSch
	defaultMu.Unlock()
	if sch != nil {
		sch.Shutdown()
	}
	defaultMu.Lock()
	defaultSch = nil
	defaultBus = nil
	defaultMu.Unlock()
	defaultOnce = sync.Once{}
}

// Run enters the default Scheduler's timer loop on the calling goroutine;
// it returns once ShutdownDefault (or the scheduler's own Shutdown) is
// called, or ctx is cancelled.
func Run(ctx context.Context) {
	defaultScheduler().Run(ctx)
}

// MakeOnceTask binds f and args as a One-shot task against the default
// scheduler's conventions; see core.MakeOnceTask.
func MakeOnceTask[R any](f func(ctx context.Context, args ...any) (R, error), args ...any) (*core.Task, *core.Future[R]) {
	return core.MakeOnceTask(f, args...)
}

// MakeIntervalTask binds f and args as an Interval task.
func MakeIntervalTask(f func(ctx context.Context, args ...any), args ...any) *core.Task {
	return core.MakeIntervalTask(f, args...)
}

// MakeEventTask binds f and args as an Event task.
func MakeEventTask(f func(ctx context.Context, args ...any), args ...any) *core.Task {
	return core.MakeEventTask(f, args...)
}

// ScheduleNow submits a dependency-free One-shot task to the default
// scheduler.
func ScheduleNow(task *core.Task) bool {
	return defaultScheduler().ScheduleNow(task)
}

// ScheduleFlow submits a finished Flow to the default scheduler.
func ScheduleFlow(flow *core.Flow) bool {
	return defaultScheduler().ScheduleFlow(flow)
}

// ScheduleAt delays a One-shot task until at on the default scheduler.
func ScheduleAt(task *core.Task, at time.Time) bool {
	return defaultScheduler().ScheduleAt(task, at)
}

// ScheduleInterval arms an Interval task with the given tick period on the
// default scheduler; the first tick runs immediately.
func ScheduleInterval(task *core.Task, interval time.Duration) bool {
	return defaultScheduler().ScheduleInterval(task, interval)
}

// ScheduleEvent registers an Event task under eventName on the default
// scheduler.
func ScheduleEvent(task *core.Task, eventName string) bool {
	return defaultScheduler().ScheduleEvent(task, eventName)
}

// EmitEvent drains eventName's bucket on the default scheduler into the
// worker pool, returning how many tasks were drained.
func EmitEvent(eventName string) int {
	return defaultScheduler().EmitEvent(eventName)
}

// Publish fans msg out to topic's subscribers on the default bus.
func Publish[T any](topic string, msg T) int {
	return bus.Publish(defaultBusInstance(), topic, msg)
}

// Subscribe registers a subscriber on topic against the default bus.
func Subscribe[T any](topic string, callback func(T), maxQueue ...int) *bus.Subscriber[T] {
	return bus.Subscribe(defaultBusInstance(), topic, callback, maxQueue...)
}

// Unsubscribe removes h from the default bus.
func Unsubscribe[T any](h *bus.Subscriber[T]) bool {
	return bus.Unsubscribe(defaultBusInstance(), h)
}

// DefaultScheduler returns the process-wide default Scheduler, building it
// on first use.
func DefaultScheduler() *core.Scheduler { return defaultScheduler() }

// DefaultBus returns the process-wide default Bus, building it on first
// use.
func DefaultBus() *bus.Bus { return defaultBusInstance() }
