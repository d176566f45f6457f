package core

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler owns the timer queue, the event registry, the pending
// dependency table, and a back-reference to the worker pool it drives. It
// is the coupling point between "when/whether a Task is ready" and the
// pool that actually runs it.
type Scheduler struct {
	pool  *WorkerPool
	timer *timerQueue
	cfg   *SchedulerConfig

	pendingMu sync.Mutex
	pending   map[TaskID]*Task

	eventMu sync.Mutex
	events  map[string][]*Task

	closed atomic.Bool
	stopCh chan struct{}
}

// NewScheduler constructs a Scheduler with its own WorkerPool, applying
// opts over DefaultSchedulerConfig. The pool's workers are started
// immediately; the timer loop is not — call Run to dedicate a goroutine to
// it (the process-wide default is no exception: the package-level Run must
// be called for it too).
func NewScheduler(opts ...Option) *Scheduler {
	cfg := DefaultSchedulerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.fillDefaults()

	pool := NewWorkerPool(cfg)
	pool.Start()

	return &Scheduler{
		pool:    pool,
		timer:   newTimerQueue(),
		cfg:     cfg,
		pending: make(map[TaskID]*Task),
		events:  make(map[string][]*Task),
		stopCh:  make(chan struct{}),
	}
}

// Pool returns the Scheduler's backing WorkerPool.
func (s *Scheduler) Pool() *WorkerPool { return s.pool }

// ScheduleNow accepts a One-shot task with no unresolved dependencies.
// It unconditionally clears any previously-installed completion hook
// (unscoped submission is not part of a Flow's fan-out) before checking
// dependencies_remaining. Returns false for the wrong kind, a task with
// dependencies still outstanding, or after shutdown.
func (s *Scheduler) ScheduleNow(task *Task) bool {
	if task.Kind() != KindOnce {
		return false
	}
	if s.closed.Load() {
		s.cfg.RejectedTaskHandler.HandleRejectedTask(task, "shutdown")
		return false
	}
	task.clearCompletionHook()
	if task.DependenciesRemaining() != 0 {
		s.cfg.Metrics.RecordTaskRejected("unresolved_dependencies")
		s.cfg.RejectedTaskHandler.HandleRejectedTask(task, "unresolved_dependencies")
		return false
	}
	return s.pool.Submit(task)
}

// ScheduleFlow submits a finished Flow. Per every level from highest to
// lowest: every level above the lowest is parked in the pending table
// first; the lowest level is submitted to the worker pool last, once every
// higher level is already findable there. Submitting the lowest level
// first would let a fast worker run it and drive a dependent's counter to
// zero before that dependent is in the pending table, and onComplete would
// then (correctly, by its own rules) treat the missing entry as benign and
// drop the dependent — this ordering is what rules that race out.
func (s *Scheduler) ScheduleFlow(flow *Flow) bool {
	if !flow.Finished() {
		return false
	}
	if s.closed.Load() {
		return false
	}
	levels := flow.levelsSnapshot()
	for _, level := range levels {
		for _, task := range level {
			task.setCompletionHook(s.onComplete)
		}
	}
	for i := len(levels) - 1; i >= 1; i-- {
		s.parkPending(levels[i])
	}
	for _, task := range levels[0] {
		s.pool.Submit(task)
	}
	return true
}

func (s *Scheduler) parkPending(level []*Task) {
	s.pendingMu.Lock()
	for _, task := range level {
		s.pending[task.ID()] = task
	}
	depth := len(s.pending)
	s.pendingMu.Unlock()
	s.cfg.Metrics.RecordPendingTableDepth(depth)
}

// ScheduleAt installs a completion hook, stamps wakeup_time, and inserts a
// One-shot task into the timer queue, waking the timer thread.
func (s *Scheduler) ScheduleAt(task *Task, at time.Time) bool {
	if task.Kind() != KindOnce {
		return false
	}
	if s.closed.Load() {
		return false
	}
	task.setCompletionHook(s.onComplete)
	task.wakeupTime = at
	s.timer.insert(task)
	s.cfg.Metrics.RecordTimerQueueDepth(s.timer.len())
	return true
}

// ScheduleInterval installs a completion hook, stamps the tick interval,
// and pushes the task to the worker pool immediately — the first tick is
// immediate, subsequent ticks are re-armed from the completion hook.
func (s *Scheduler) ScheduleInterval(task *Task, interval time.Duration) bool {
	if task.Kind() != KindInterval {
		return false
	}
	if s.closed.Load() {
		return false
	}
	task.setCompletionHook(s.onComplete)
	task.interval = interval
	return s.pool.Submit(task)
}

// ScheduleEvent installs a completion hook and appends task to event_name's
// bucket.
func (s *Scheduler) ScheduleEvent(task *Task, eventName string) bool {
	if task.Kind() != KindEvent {
		return false
	}
	if s.closed.Load() {
		return false
	}
	task.setCompletionHook(s.onComplete)
	task.eventName = eventName
	s.eventMu.Lock()
	s.events[eventName] = append(s.events[eventName], task)
	depth := len(s.events[eventName])
	s.eventMu.Unlock()
	s.cfg.Metrics.RecordEventBucketDepth(eventName, depth)
	return true
}

// EmitEvent atomically drains event_name's bucket into the worker pool in
// submission order, returning how many tasks were drained. Tasks that
// re-register themselves from the completion hook land back in the bucket
// and are not seen by this drain.
func (s *Scheduler) EmitEvent(eventName string) int {
	s.eventMu.Lock()
	bucket := s.events[eventName]
	s.events[eventName] = nil
	s.eventMu.Unlock()

	for _, task := range bucket {
		s.pool.Submit(task)
	}
	s.cfg.Metrics.RecordEventBucketDepth(eventName, 0)
	return len(bucket)
}

// onComplete is the Scheduler's completion hook (§4.4). It runs on
// whichever worker just finished the Task's action, under no lock of its
// own. It performs dependent fan-out (pending-table lock, released before
// anything else) and then, depending on the Task's kind, re-arms an
// Interval, re-buckets an Event, or releases a One-shot.
func (s *Scheduler) onComplete(task *Task) {
	for _, dep := range task.dependents {
		remaining := dep.dependenciesRemaining.Add(-1)
		if remaining != 0 {
			continue
		}
		s.pendingMu.Lock()
		_, found := s.pending[dep.ID()]
		if found {
			delete(s.pending, dep.ID())
		}
		depth := len(s.pending)
		s.pendingMu.Unlock()
		if found {
			s.cfg.Metrics.RecordPendingTableDepth(depth)
			s.pool.Submit(dep)
		}
		// Absence is benign: the dependent may have been cancelled.
	}

	switch task.Kind() {
	case KindInterval:
		if task.IntervalCancelled() {
			return
		}
		task.wakeupTime = time.Now().Add(task.interval)
		s.timer.insert(task)
		s.cfg.Metrics.RecordTimerQueueDepth(s.timer.len())
	case KindEvent:
		s.eventMu.Lock()
		s.events[task.EventName()] = append(s.events[task.EventName()], task)
		depth := len(s.events[task.EventName()])
		s.eventMu.Unlock()
		s.cfg.Metrics.RecordEventBucketDepth(task.EventName(), depth)
	case KindOnce:
		// release; nothing further to do.
	}
}

// Run enters the timer loop on the calling goroutine; it returns once
// Shutdown is called or ctx is cancelled. This implements the hybrid
// spin/condition-variable design of §4.4: deadlines within SpinThreshold
// are met by busy-waiting, longer ones by a timer-backed wait that a
// sooner insertion or a stop signal interrupts early.
func (s *Scheduler) Run(ctx context.Context) {
	wakeTimer := time.NewTimer(time.Hour)
	wakeTimer.Stop()
	defer wakeTimer.Stop()

	for {
		if s.closed.Load() {
			return
		}

		wakeupAt, ok := s.timer.peekWakeup()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-s.timer.wake:
			}
			continue
		}

		now := time.Now()
		if wakeupAt.After(now) {
			delta := wakeupAt.Sub(now)
			if delta <= s.cfg.SpinThreshold {
				for time.Now().Before(wakeupAt) {
					if s.closed.Load() {
						return
					}
					runtime.Gosched()
				}
				continue
			}

			if !wakeTimer.Stop() {
				select {
				case <-wakeTimer.C:
				default:
				}
			}
			wakeTimer.Reset(delta)
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-wakeTimer.C:
			case <-s.timer.wake:
			}
			continue
		}

		due := s.timer.drainDue(now)
		if len(due) > 0 {
			s.cfg.Metrics.RecordTimerQueueDepth(s.timer.len())
		}
		for _, task := range due {
			if task.Kind() == KindInterval && task.IntervalCancelled() {
				continue
			}
			s.pool.Submit(task)
		}
	}
}

// Shutdown latches the stop flag and wakes both the timer thread and the
// worker pool; in-flight actions are never interrupted.
func (s *Scheduler) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.stopCh)
	s.timer.signal()
	s.pool.Shutdown()
}

// ShutdownGraceful behaves like Shutdown but drains the ready queue before
// stopping workers, bounded by timeout. Additive beyond the spec-mandated
// Shutdown.
func (s *Scheduler) ShutdownGraceful(timeout time.Duration) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.stopCh)
	s.timer.signal()
	return s.pool.ShutdownGraceful(timeout)
}

// Stats returns a snapshot of the timer queue, pending table, and event
// bucket depths.
func (s *Scheduler) Stats() SchedulerStats {
	s.pendingMu.Lock()
	pendingDepth := len(s.pending)
	s.pendingMu.Unlock()

	s.eventMu.Lock()
	eventDepths := make(map[string]int, len(s.events))
	for name, bucket := range s.events {
		eventDepths[name] = len(bucket)
	}
	s.eventMu.Unlock()

	return SchedulerStats{
		TimerQueueDepth:   s.timer.len(),
		PendingTableDepth: pendingDepth,
		EventBucketDepths: eventDepths,
		Running:           !s.closed.Load(),
	}
}

// RecentTasks delegates to the backing WorkerPool's execution history.
func (s *Scheduler) RecentTasks(n int) []TaskExecutionRecord {
	return s.pool.RecentTasks(n)
}
