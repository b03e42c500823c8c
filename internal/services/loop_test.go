package services

import (
	"context"
	"sync"
	"testing"

	"fireguard/internal/logging"
)

func TestLoopPreservesOrder(t *testing.T) {
	l := NewLoop(logging.Discard().Component("loop"))
	l.Start(context.Background())

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !l.Submit(func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}) {
			t.Fatalf("submit %d refused", i)
		}
	}
	l.Stop()

	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestLoopSurvivesPanic(t *testing.T) {
	l := NewLoop(logging.Discard().Component("loop"))
	l.Start(context.Background())

	ran := false
	l.Submit(func(context.Context) { panic("boom") })
	l.Submit(func(context.Context) { ran = true })
	l.Stop()

	if !ran {
		t.Fatal("task after panic did not run")
	}
}

func TestLoopRefusesAfterStop(t *testing.T) {
	l := NewLoop(logging.Discard().Component("loop"))
	l.Start(context.Background())
	l.Stop()

	if l.Submit(func(context.Context) {}) {
		t.Fatal("submit accepted after stop")
	}
}

func TestLoopStopDrainsQueue(t *testing.T) {
	l := NewLoop(logging.Discard().Component("loop"))
	block := make(chan struct{})
	count := 0
	l.Submit(func(context.Context) { <-block })
	for i := 0; i < 10; i++ {
		l.Submit(func(context.Context) { count++ })
	}
	l.Start(context.Background())
	close(block)
	l.Stop()

	if count != 10 {
		t.Fatalf("ran %d queued tasks, want 10", count)
	}
	if l.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", l.Pending())
	}
}
