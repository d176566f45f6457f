// Package taskorch provides an in-process task orchestration library for Go.
//
// Work is submitted as a Task of one of three kinds: One-shot (runs once,
// optionally after a delay or once its dependencies finish), Interval
// (re-arms itself on a fixed period until cancelled), and Event (runs
// whenever its event name is emitted). Tasks with dependencies are grouped
// into a Flow, a level-partitioned DAG: every task in level i is wired as a
// dependent of every task in level i-1, and the Flow only becomes
// schedulable once Finish has wired those edges.
//
// A Scheduler owns the timer queue, the event registry and the pending
// dependency table, and drives a WorkerPool of goroutines that actually run
// ready tasks. The timer queue itself is serviced by a single dedicated
// goroutine — call Scheduler.Run (or the package-level Run, for the
// process-wide default) to give it one.
//
// # Quick start
//
//	task, result := taskorch.MakeOnceTask(func(ctx context.Context, args ...any) (int, error) {
//		return args[0].(int) * args[0].(int), nil
//	}, 7)
//	taskorch.ScheduleNow(task)
//	go taskorch.Run(context.Background())
//	square, err := result.Wait(context.Background())
//
// # Bus
//
// Bus is a separate, type-checked publish/subscribe router: Subscribe binds
// a callback to a topic and a concrete payload type, Publish fans a typed
// message out to every subscriber on a topic, and a mismatched type or a
// full subscriber queue only drops that one delivery.
//
// # Thread safety
//
// Every exported type on Task, Flow, Scheduler, WorkerPool and Bus is safe
// for concurrent use. A Task's action itself runs on whichever worker
// goroutine picked it up; callers that need ordering across Tasks express
// it through a Flow or an Event, not through locks of their own.
package taskorch
