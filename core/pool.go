package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerPool is a fixed-size set of worker goroutines draining a single
// priority-ordered ready queue, carried from the teacher's
// GoroutineThreadPool but generalized to run Task directly (the teacher's
// pool ran over a TaskScheduler's FIFO/priority queue of bare closures).
type WorkerPool struct {
	workers int
	ready   *readyQueue
	cfg     *SchedulerConfig
	history *executionHistory

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool

	completed atomic.Int64
	panicked  atomic.Int64

	idleMu      sync.Mutex
	idleCond    *sync.Cond
	outstanding int64
}

// NewWorkerPool constructs a WorkerPool. cfg must be non-nil and already
// defaulted (see DefaultSchedulerConfig).
func NewWorkerPool(cfg *SchedulerConfig) *WorkerPool {
	p := &WorkerPool{
		workers: cfg.Workers,
		ready:   newReadyQueue(),
		cfg:     cfg,
		history: newExecutionHistory(256),
	}
	p.idleCond = sync.NewCond(&p.idleMu)
	return p
}

// Start launches the worker goroutines. Repeated calls are no-ops.
func (p *WorkerPool) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
}

// Submit pushes task onto the ready queue. It returns false if the pool is
// shutting down, in which case the task is discarded per the "shutdown in
// progress" error taxonomy.
func (p *WorkerPool) Submit(task *Task) bool {
	p.incOutstanding()
	if ok := p.ready.push(task); !ok {
		p.decOutstanding()
		p.cfg.Metrics.RecordTaskRejected("shutdown")
		p.cfg.RejectedTaskHandler.HandleRejectedTask(task, "shutdown")
		return false
	}
	p.cfg.Metrics.RecordReadyQueueDepth(p.ready.len())
	return true
}

// workerLoop implements §4.2's worker loop: pop highest-priority task, run
// its action (which internally recovers a panic and fires the completion
// hook), record observability, repeat.
func (p *WorkerPool) workerLoop(id int) {
	defer p.wg.Done()
	for {
		task, ok := p.ready.pop()
		if !ok {
			return
		}

		start := time.Now()
		panicked, panicVal := task.invoke(p.ctx)
		duration := time.Since(start)

		p.completed.Add(1)
		if panicked {
			p.panicked.Add(1)
			p.cfg.Metrics.RecordTaskPanic(task.Kind(), panicVal)
			p.cfg.PanicHandler.HandlePanic(id, task, panicVal, debug.Stack())
		}
		p.cfg.Metrics.RecordTaskDuration(task.Kind(), task.Priority(), duration)
		p.history.record(TaskExecutionRecord{
			TaskID:     task.ID(),
			Name:       task.Name(),
			Kind:       task.Kind(),
			Priority:   task.Priority(),
			StartedAt:  start,
			FinishedAt: start.Add(duration),
			Duration:   duration,
			Panicked:   panicked,
		})
		p.decOutstanding()
	}
}

func (p *WorkerPool) incOutstanding() {
	p.idleMu.Lock()
	p.outstanding++
	p.idleMu.Unlock()
}

func (p *WorkerPool) decOutstanding() {
	p.idleMu.Lock()
	p.outstanding--
	if p.outstanding <= 0 {
		p.idleCond.Broadcast()
	}
	p.idleMu.Unlock()
}

// WaitIdle blocks until every task submitted before this call (and not
// still re-arming as an Interval/Event) has finished running, or ctx is
// cancelled. Adapted from ParallelTaskRunner's barrier mechanism.
func (p *WorkerPool) WaitIdle(ctx context.Context) error {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.idleMu.Lock()
			p.idleCond.Broadcast()
			p.idleMu.Unlock()
		case <-stop:
		}
	}()
	defer close(stop)

	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	for p.outstanding > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.idleCond.Wait()
	}
	return nil
}

// Shutdown hard-stops the pool: workers finish their in-flight action and
// exit; any task still sitting in the ready queue is discarded.
func (p *WorkerPool) Shutdown() {
	p.running.Store(false)
	p.ready.close()
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// ShutdownGraceful drains the ready queue before stopping workers,
// returning an error if timeout elapses first (at which point it falls
// back to the hard stop). Additive beyond the spec-mandated Shutdown.
func (p *WorkerPool) ShutdownGraceful(timeout time.Duration) error {
	p.ready.drain()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.running.Store(false)
		if p.cancel != nil {
			p.cancel()
		}
		return nil
	case <-time.After(timeout):
		p.ready.close()
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		p.running.Store(false)
		return fmt.Errorf("worker pool: graceful shutdown timed out after %s", timeout)
	}
}

// Join waits for all worker goroutines to exit.
func (p *WorkerPool) Join() { p.wg.Wait() }

func (p *WorkerPool) IsRunning() bool { return p.running.Load() }

// Stats returns a snapshot of the pool's runtime state.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:   p.workers,
		Queued:    p.ready.len(),
		Running:   p.running.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// RecentTasks returns up to n most-recently-completed task records, newest
// first.
func (p *WorkerPool) RecentTasks(n int) []TaskExecutionRecord {
	return p.history.recent(n)
}
