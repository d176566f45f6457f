package core

import (
	"container/heap"
	"sync"
	"time"
)

// timerItem pairs a *Task with its heap index, kept current by Swap/Push/
// Pop; carried from the teacher's DelayedTaskHeap shape.
type timerItem struct {
	task  *Task
	index int
}

type timerHeap []*timerItem

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	return h[i].task.wakeupTime.Before(h[j].task.wakeupTime)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	item := x.(*timerItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// timerQueue is the min-heap of Tasks waiting on a wakeup_time, guarded by
// a mutex; wake is a size-1 channel that stands in for the condition
// variable's signal side so Scheduler.Run can select on it alongside a
// context and an explicit stop channel.
type timerQueue struct {
	mu   sync.Mutex
	h    timerHeap
	wake chan struct{}
}

func newTimerQueue() *timerQueue {
	return &timerQueue{
		h:    make(timerHeap, 0, 16),
		wake: make(chan struct{}, 1),
	}
}

// insert adds task keyed by its current wakeupTime. If task becomes the
// new soonest deadline, the timer thread is woken so it can re-evaluate
// its sleep target.
func (q *timerQueue) insert(task *Task) {
	q.mu.Lock()
	heap.Push(&q.h, &timerItem{task: task})
	becameSoonest := q.h[0].task == task
	q.mu.Unlock()
	if becameSoonest {
		q.signal()
	}
}

func (q *timerQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// peekWakeup returns the soonest deadline currently queued.
func (q *timerQueue) peekWakeup() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 {
		return time.Time{}, false
	}
	return q.h[0].task.wakeupTime, true
}

// drainDue pops every task whose wakeup_time is <= now, in key order.
func (q *timerQueue) drainDue(now time.Time) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []*Task
	for len(q.h) > 0 && !q.h[0].task.wakeupTime.After(now) {
		item := heap.Pop(&q.h).(*timerItem)
		due = append(due, item.task)
	}
	return due
}

func (q *timerQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}
