package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Kind fixes the scheduling discipline a Task was constructed for. Kind is
// immutable after first bind.
type Kind int

const (
	KindOnce Kind = iota
	KindInterval
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindOnce:
		return "once"
	case KindInterval:
		return "interval"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// DefaultPriority is the priority stamped on a Task that was never given one
// explicitly. Lower numeric priority is more urgent.
const DefaultPriority uint32 = 0

// Task is a unit of work: a kind, an erased nullary action, a priority, and
// (for One-shot tasks only) dependency-counter bookkeeping. Tasks are built
// through NewOnceTask/NewIntervalTask/NewEventTask or the Make* convenience
// wrappers, never by zero value.
type Task struct {
	id   TaskID
	name string
	kind Kind

	priority atomic.Uint32

	// action is the single erased nullary closure every kind funnels
	// through. For One-shot tasks it also fulfils the completion future.
	action func(ctx context.Context)

	// dependenciesRemaining is only meaningful for KindOnce; Interval and
	// Event tasks never consult it.
	dependenciesRemaining atomic.Int32

	// dependents is populated once, by Flow.Finish or direct wiring, before
	// the Task is ever handed to a waiting store. No writer after that
	// point; read-only traversal from the completion hook needs no lock.
	dependents []*Task

	wakeupTime     time.Time
	interval       time.Duration
	intervalCancel atomic.Bool

	eventName string

	hookMu         sync.Mutex
	completionHook func(*Task)
}

func newTask(kind Kind) *Task {
	t := &Task{
		id:   NewTaskID(),
		kind: kind,
	}
	t.priority.Store(DefaultPriority)
	return t
}

// ID returns the Task's process-unique identity.
func (t *Task) ID() TaskID { return t.id }

// Name returns the diagnostic name set via WithName, or the empty string.
func (t *Task) Name() string { return t.name }

// WithName stamps a diagnostic name used in metrics/history labels and
// returns the Task for chaining.
func (t *Task) WithName(name string) *Task {
	t.name = name
	return t
}

// Kind returns the Task's fixed scheduling discipline.
func (t *Task) Kind() Kind { return t.kind }

// Priority returns the Task's current priority. Lower is more urgent.
func (t *Task) Priority() uint32 { return t.priority.Load() }

// SetPriority stamps a new priority. Safe to call concurrently with
// scheduling; it only affects the Task's position the next time it is
// pushed onto a priority-ordered store (it does not reorder a store the
// Task is already sitting in).
func (t *Task) SetPriority(p uint32) { t.priority.Store(p) }

// DependenciesRemaining reports the live dependency counter. Only
// meaningful for One-shot tasks.
func (t *Task) DependenciesRemaining() int32 { return t.dependenciesRemaining.Load() }

// CancelInterval is a one-way latch; once it returns, no further tick of
// this Interval task will be dispatched, modulo one in-flight action
// already running. Calling it on a non-Interval task is a no-op.
func (t *Task) CancelInterval() {
	if t.kind != KindInterval {
		return
	}
	t.intervalCancel.Store(true)
}

// IntervalCancelled reports whether CancelInterval has been observed.
func (t *Task) IntervalCancelled() bool { return t.intervalCancel.Load() }

// EventName returns the event name this Event task is registered under, if
// any.
func (t *Task) EventName() string { return t.eventName }

func (t *Task) setCompletionHook(hook func(*Task)) {
	t.hookMu.Lock()
	t.completionHook = hook
	t.hookMu.Unlock()
}

func (t *Task) clearCompletionHook() {
	t.hookMu.Lock()
	t.completionHook = nil
	t.hookMu.Unlock()
}

func (t *Task) completionHookFn() func(*Task) {
	t.hookMu.Lock()
	defer t.hookMu.Unlock()
	return t.completionHook
}

// invoke runs the Task's action and, on return, fires its completion hook
// if one is installed. A panicking action is recovered here: the Task is
// still treated as completed for fan-out/re-arm purposes, matching the
// failure semantics of the worker pool. The bool result reports whether
// the action panicked.
func (t *Task) invoke(ctx context.Context) (panicked bool, panicValue any) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				panicValue = r
			}
		}()
		t.action(ctx)
	}()
	if hook := t.completionHookFn(); hook != nil {
		hook(t)
	}
	return panicked, panicValue
}

// Future is a single-fulfilment, multi-waiter completion handle for a
// One-shot task's return value.
type Future[R any] struct {
	done chan struct{}
	once sync.Once
	val  R
	err  error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

func (f *Future[R]) fulfill(val R, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Wait blocks until the Task has run (or ctx is cancelled first) and
// returns its result.
func (f *Future[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryGet returns the result without blocking; ok is false if the Task has
// not completed yet.
func (f *Future[R]) TryGet() (val R, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero R
		return zero, nil, false
	}
}

// Done returns a channel closed once the Future is fulfilled.
func (f *Future[R]) Done() <-chan struct{} { return f.done }

// NewOnceTask builds a One-shot Task wrapping f. A panic inside f is
// captured as an error on the returned Future rather than propagated, so
// the Future is always fulfilled exactly once.
func NewOnceTask[R any](f func(ctx context.Context) (R, error)) (*Task, *Future[R]) {
	future := newFuture[R]()
	t := newTask(KindOnce)
	t.action = func(ctx context.Context) {
		var val R
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("task action panicked: %v", r)
				}
			}()
			val, err = f(ctx)
		}()
		future.fulfill(val, err)
	}
	return t, future
}

// MakeOnceTask binds f together with args at construction time, matching
// the bind_once(f, args...) contract: the returned Task is One-shot and the
// Future resolves with f's result.
func MakeOnceTask[R any](f func(ctx context.Context, args ...any) (R, error), args ...any) (*Task, *Future[R]) {
	return NewOnceTask(func(ctx context.Context) (R, error) {
		return f(ctx, args...)
	})
}

// NewIntervalTask builds an Interval Task. There is no completion handle;
// any return value from f is discarded — callers who need a side-channel
// result should publish it on the bus.
func NewIntervalTask(f func(ctx context.Context)) *Task {
	t := newTask(KindInterval)
	t.action = f
	return t
}

// MakeIntervalTask binds f together with args, matching bind_interval.
func MakeIntervalTask(f func(ctx context.Context, args ...any), args ...any) *Task {
	return NewIntervalTask(func(ctx context.Context) { f(ctx, args...) })
}

// NewEventTask builds an Event Task. Like Interval, it has no completion
// handle.
func NewEventTask(f func(ctx context.Context)) *Task {
	t := newTask(KindEvent)
	t.action = f
	return t
}

// MakeEventTask binds f together with args, matching bind_event.
func MakeEventTask(f func(ctx context.Context, args ...any), args ...any) *Task {
	return NewEventTask(func(ctx context.Context) { f(ctx, args...) })
}
