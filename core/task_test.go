package core

import (
	"context"
	"errors"
	"testing"
)

// TestNewOnceTask_FulfillsFutureOnSuccess verifies a successful action
// fulfils its Future with the returned value
// Given: A One-shot task wrapping a function that returns 49, nil
// When: The task is invoked directly and the Future is awaited
// Then: Wait returns 49 and a nil error
func TestNewOnceTask_FulfillsFutureOnSuccess(t *testing.T) {
	// Arrange
	task, future := NewOnceTask(func(ctx context.Context) (int, error) {
		return 49, nil
	})

	// Act
	panicked, _ := task.invoke(context.Background())
	val, err := future.Wait(context.Background())

	// Assert
	if panicked {
		t.Fatal("invoke should not report a panic")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 49 {
		t.Fatalf("val = %d, want 49", val)
	}
}

// TestNewOnceTask_PanicBecomesFutureError verifies a panicking action is
// captured on the Future rather than propagated to invoke's caller
// Given: A One-shot task wrapping a function that panics
// When: The task is invoked directly
// Then: invoke reports no panic (it was absorbed inside the action wrapper)
// and the Future resolves with a non-nil error
func TestNewOnceTask_PanicBecomesFutureError(t *testing.T) {
	// Arrange
	task, future := NewOnceTask(func(ctx context.Context) (int, error) {
		panic("boom")
	})

	// Act
	panicked, _ := task.invoke(context.Background())
	_, err := future.Wait(context.Background())

	// Assert
	if panicked {
		t.Fatal("a One-shot action's panic should be absorbed before invoke's own recover sees it")
	}
	if err == nil {
		t.Fatal("expected a non-nil error on the Future after a panicking action")
	}
}

// TestTask_Invoke_PropagatesIntervalPanic verifies that non-One-shot kinds
// have no internal recovery, so invoke's own recover observes the panic
// Given: An Interval task whose action panics
// When: invoke is called directly
// Then: invoke reports panicked == true
func TestTask_Invoke_PropagatesIntervalPanic(t *testing.T) {
	// Arrange
	task := NewIntervalTask(func(ctx context.Context) {
		panic("tick failed")
	})

	// Act
	panicked, panicValue := task.invoke(context.Background())

	// Assert
	if !panicked {
		t.Fatal("expected invoke to report a panic for a panicking Interval action")
	}
	if panicValue != "tick failed" {
		t.Fatalf("panicValue = %v, want %q", panicValue, "tick failed")
	}
}

// TestTask_CompletionHook_FiresAfterAction verifies the completion hook
// runs once the action returns
// Given: A task with a non-panicking action and a completion hook installed
// When: invoke is called
// Then: the hook observes the same Task pointer exactly once
func TestTask_CompletionHook_FiresAfterAction(t *testing.T) {
	// Arrange
	task := NewEventTask(func(ctx context.Context) {})
	var hookCalls int
	var sawTask *Task
	task.setCompletionHook(func(tk *Task) {
		hookCalls++
		sawTask = tk
	})

	// Act
	task.invoke(context.Background())

	// Assert
	if hookCalls != 1 {
		t.Fatalf("hookCalls = %d, want 1", hookCalls)
	}
	if sawTask != task {
		t.Fatal("completion hook did not observe the invoking Task")
	}
}

// TestTask_PriorityDefault_IsZero verifies the default priority convention
// Given: A freshly constructed task
// When: Priority is read before any SetPriority call
// Then: it reports DefaultPriority (0, the most urgent value)
func TestTask_PriorityDefault_IsZero(t *testing.T) {
	// Arrange
	task := NewEventTask(func(ctx context.Context) {})

	// Act and Assert
	if got := task.Priority(); got != DefaultPriority {
		t.Fatalf("Priority() = %d, want %d", got, DefaultPriority)
	}

	// Act
	task.SetPriority(7)

	// Assert
	if got := task.Priority(); got != 7 {
		t.Fatalf("Priority() after SetPriority = %d, want 7", got)
	}
}

// TestTask_CancelInterval_Latches verifies CancelInterval is a one-way
// latch and a no-op on non-Interval tasks
// Given: An Interval task and a One-shot task
// When: CancelInterval is called on both
// Then: the Interval task reports cancelled; the One-shot task is unaffected
func TestTask_CancelInterval_Latches(t *testing.T) {
	// Arrange
	interval := NewIntervalTask(func(ctx context.Context) {})
	once, _ := NewOnceTask(func(ctx context.Context) (struct{}, error) { return struct{}{}, nil })

	// Act
	interval.CancelInterval()
	once.CancelInterval()

	// Assert
	if !interval.IntervalCancelled() {
		t.Fatal("expected Interval task to report cancelled")
	}
	if once.IntervalCancelled() {
		t.Fatal("CancelInterval on a non-Interval task must be a no-op")
	}
}

// TestFuture_Wait_RespectsContextCancellation verifies Wait returns the
// context's error if the Future is never fulfilled
// Given: An unfulfilled Future and an already-cancelled context
// When: Wait is called
// Then: it returns promptly with context.Canceled
func TestFuture_Wait_RespectsContextCancellation(t *testing.T) {
	// Arrange
	future := newFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	_, err := future.Wait(ctx)

	// Assert
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// TestFuture_TryGet_NotReadyThenReady verifies the non-blocking accessor
// Given: A Future that is fulfilled after a short delay
// When: TryGet is polled before and after fulfilment
// Then: ok is false before, true with the right value after
func TestFuture_TryGet_NotReadyThenReady(t *testing.T) {
	// Arrange
	future := newFuture[string]()

	// Act and Assert (before)
	if _, _, ok := future.TryGet(); ok {
		t.Fatal("expected TryGet to report not-ready before fulfilment")
	}

	// Act
	future.fulfill("done", nil)

	// Assert (after)
	val, err, ok := future.TryGet()
	if !ok || err != nil || val != "done" {
		t.Fatalf("TryGet after fulfilment = (%q, %v, %v), want (\"done\", nil, true)", val, err, ok)
	}
}

// TestMakeOnceTask_BindsArgs verifies args bound at construction time reach
// the wrapped function
// Given: A Make-bound One-shot task over a squaring function with x=7
// When: The task is invoked
// Then: the Future resolves to 49
func TestMakeOnceTask_BindsArgs(t *testing.T) {
	// Arrange
	task, future := MakeOnceTask(func(ctx context.Context, args ...any) (int, error) {
		x := args[0].(int)
		return x * x, nil
	}, 7)

	// Act
	task.invoke(context.Background())
	val, err := future.Wait(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 49 {
		t.Fatalf("val = %d, want 49", val)
	}
}
