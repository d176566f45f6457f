package core

import "time"

// TaskExecutionRecord captures one completed task execution, carried from
// the teacher's executionHistory record shape.
type TaskExecutionRecord struct {
	TaskID     TaskID
	Name       string
	Kind       Kind
	Priority   uint32
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Panicked   bool
}

// PoolStats reports runtime observability state for the WorkerPool.
type PoolStats struct {
	Workers   int
	Queued    int
	Running   bool
	Completed int64
	Panicked  int64
}

// SchedulerStats reports runtime observability state for the Scheduler.
type SchedulerStats struct {
	TimerQueueDepth   int
	PendingTableDepth int
	EventBucketDepths map[string]int
	Running           bool
}
