package core

import (
	"context"
	"testing"
)

func noopOnce() *Task {
	tk, _ := NewOnceTask(func(ctx context.Context) (struct{}, error) { return struct{}{}, nil })
	return tk
}

// TestFlow_Finish_WiresFullBipartiteEdges verifies the diamond-shaped DAG:
// A at level 0, B and C at level 1, D at level 2
// Given: a 3-level Flow with A, {B, C}, D added per level
// When: Finish is called
// Then: D's dependency counter is 2 (one from B, one from C) and A's
// dependents include both B and C
func TestFlow_Finish_WiresFullBipartiteEdges(t *testing.T) {
	// Arrange
	flow := NewFlow(3)
	a, b, c, d := noopOnce(), noopOnce(), noopOnce(), noopOnce()
	flow.Add(0, a)
	flow.Add(1, b)
	flow.Add(1, c)
	flow.Add(2, d)

	// Act
	ok := flow.Finish()

	// Assert
	if !ok {
		t.Fatal("Finish should succeed on a not-yet-finished Flow")
	}
	if got := d.DependenciesRemaining(); got != 2 {
		t.Fatalf("D.DependenciesRemaining() = %d, want 2", got)
	}
	if got := b.DependenciesRemaining(); got != 1 {
		t.Fatalf("B.DependenciesRemaining() = %d, want 1", got)
	}
	if len(a.dependents) != 2 {
		t.Fatalf("A should have 2 dependents (B and C), got %d", len(a.dependents))
	}
}

// TestFlow_Finish_Idempotent verifies a second Finish call is a no-op
// Given: An already-finished Flow
// When: Finish is called again
// Then: it returns false and does not re-wire edges
func TestFlow_Finish_Idempotent(t *testing.T) {
	// Arrange
	flow := NewFlow(2)
	a, b := noopOnce(), noopOnce()
	flow.Add(0, a)
	flow.Add(1, b)
	flow.Finish()

	// Act
	again := flow.Finish()

	// Assert
	if again {
		t.Fatal("second Finish call should report false")
	}
	if got := b.DependenciesRemaining(); got != 1 {
		t.Fatalf("DependenciesRemaining should still be 1 after a no-op Finish, got %d", got)
	}
}

// TestFlow_Add_RejectsAfterFinish verifies the Flow latches read-only
// Given: A finished Flow
// When: Add is called
// Then: it returns false
func TestFlow_Add_RejectsAfterFinish(t *testing.T) {
	// Arrange
	flow := NewFlow(2)
	flow.Finish()

	// Act and Assert
	if flow.Add(0, noopOnce()) {
		t.Fatal("Add after Finish should report false")
	}
}

// TestFlow_Add_RejectsNonOnceTask verifies only One-shot tasks may join a
// Flow
// Given: An Interval task
// When: Add is called
// Then: it returns false
func TestFlow_Add_RejectsNonOnceTask(t *testing.T) {
	// Arrange
	flow := NewFlow(2)
	interval := NewIntervalTask(func(ctx context.Context) {})

	// Act and Assert
	if flow.Add(0, interval) {
		t.Fatal("Add should reject a non-One-shot task")
	}
}

// TestFlow_DeleteTask_FirstMatchAcrossLevels verifies the resolved
// DeleteTask contract
// Given: A task present at level 1 only
// When: DeleteTask is called once, then again
// Then: the first call reports true, the second reports false
func TestFlow_DeleteTask_FirstMatchAcrossLevels(t *testing.T) {
	// Arrange
	flow := NewFlow(3)
	target := noopOnce()
	flow.Add(1, target)

	// Act
	first := flow.DeleteTask(target)
	second := flow.DeleteTask(target)

	// Assert
	if !first {
		t.Fatal("first DeleteTask call should find the task and return true")
	}
	if second {
		t.Fatal("second DeleteTask call should find nothing and return false")
	}
}

// TestFlow_NewFlow_ClampsLevelCount verifies a single-level request is
// bumped to the minimum of 2
// Given: NewFlow(1)
// When: LevelCount is read
// Then: it reports 2
func TestFlow_NewFlow_ClampsLevelCount(t *testing.T) {
	// Act
	flow := NewFlow(1)

	// Assert
	if got := flow.LevelCount(); got != 2 {
		t.Fatalf("LevelCount() = %d, want 2", got)
	}
}

// TestFlow_Add_StampsFlowPriority verifies every task added to a Flow
// inherits its flow-level priority
// Given: A Flow built with an explicit priority of 99
// When: a task is added
// Then: the task's priority is 99
func TestFlow_Add_StampsFlowPriority(t *testing.T) {
	// Arrange
	flow := NewFlow(2, 99)
	task := noopOnce()

	// Act
	flow.Add(0, task)

	// Assert
	if got := task.Priority(); got != 99 {
		t.Fatalf("task.Priority() = %d, want 99", got)
	}
}
