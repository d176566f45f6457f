package core

import "sync"

// DefaultFlowPriority is the priority every task in a Flow inherits unless
// the Flow itself was built with a different flow_priority.
const DefaultFlowPriority uint32 = 20

// Flow builds a level-partitioned DAG of One-shot tasks. Tasks are added
// level by level; Finish wires full bipartite dependency edges between
// every pair of adjacent levels and latches the Flow read-only.
type Flow struct {
	mu       sync.Mutex
	levels   [][]*Task
	priority uint32
	finished bool
}

// NewFlow constructs a Flow with levelCount levels (clamped up to 2 — a
// single-level flow has no dependency edges to wire) and the given
// flow-priority (defaulting to DefaultFlowPriority).
func NewFlow(levelCount int, flowPriority ...uint32) *Flow {
	if levelCount < 2 {
		levelCount = 2
	}
	priority := DefaultFlowPriority
	if len(flowPriority) > 0 {
		priority = flowPriority[0]
	}
	return &Flow{
		levels:   make([][]*Task, levelCount),
		priority: priority,
	}
}

// LevelCount returns the number of levels this Flow was built with.
func (f *Flow) LevelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.levels)
}

// Finished reports whether Finish has latched this Flow read-only.
func (f *Flow) Finished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

// Add appends task to level. It rejects (returns false) if task is not
// One-shot, the Flow is already finished, or level is out of range.
func (f *Flow) Add(level int, task *Task) bool {
	if task.Kind() != KindOnce {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished || level < 0 || level >= len(f.levels) {
		return false
	}
	task.SetPriority(f.priority)
	f.levels[level] = append(f.levels[level], task)
	return true
}

// DeleteLevel removes every task currently at level, before Finish. It
// reports whether the level was non-empty.
func (f *Flow) DeleteLevel(level int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished || level < 0 || level >= len(f.levels) {
		return false
	}
	had := len(f.levels[level]) > 0
	f.levels[level] = nil
	return had
}

// Delete removes task from level, before Finish. It reports whether task
// was found there.
func (f *Flow) Delete(level int, task *Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished || level < 0 || level >= len(f.levels) {
		return false
	}
	return f.deleteFromLevelLocked(level, task)
}

// DeleteTask removes task from whichever level it was added to, before
// Finish. Per the resolved Flow.Delete contract (DESIGN.md): true on first
// match across any level, false if the task was never added.
func (f *Flow) DeleteTask(task *Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished {
		return false
	}
	for level := range f.levels {
		if f.deleteFromLevelLocked(level, task) {
			return true
		}
	}
	return false
}

func (f *Flow) deleteFromLevelLocked(level int, task *Task) bool {
	members := f.levels[level]
	for i, t := range members {
		if t == task {
			f.levels[level] = append(members[:i], members[i+1:]...)
			return true
		}
	}
	return false
}

// Finish wires the DAG: every task at level i acquires a dependency edge
// from every task at level i-1 (full bipartite between adjacent levels),
// then latches the Flow read-only. Returns false if already finished.
func (f *Flow) Finish() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished {
		return false
	}
	for i := 1; i < len(f.levels); i++ {
		for _, super := range f.levels[i] {
			for _, child := range f.levels[i-1] {
				super.dependenciesRemaining.Add(1)
				child.dependents = append(child.dependents, super)
			}
		}
	}
	f.finished = true
	return true
}

// levelsSnapshot returns the Flow's levels for the Scheduler to distribute
// at submission time. Only valid to call once Finished() is true.
func (f *Flow) levelsSnapshot() [][]*Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]*Task, len(f.levels))
	copy(out, f.levels)
	return out
}
