package services

import (
	"sync/atomic"
	"testing"
	"time"

	"fireguard/internal/logging"
)

type countingRequester struct {
	calls atomic.Int32
}

func (r *countingRequester) RequestReading() error {
	r.calls.Add(1)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPollerToggle(t *testing.T) {
	req := &countingRequester{}
	p := NewPoller(req, 10*time.Millisecond, logging.Discard().Component("poll"))

	if !p.Toggle() {
		t.Fatal("first toggle should start polling")
	}
	if !p.IsPolling() {
		t.Fatal("IsPolling false after start")
	}
	// The first request is issued right away, then once per interval.
	waitFor(t, func() bool { return req.calls.Load() >= 3 })

	if p.Toggle() {
		t.Fatal("second toggle should stop polling")
	}
	if p.IsPolling() {
		t.Fatal("IsPolling true after stop")
	}

	stopped := req.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := req.calls.Load(); got != stopped {
		t.Fatalf("requests continued after stop: %d -> %d", stopped, got)
	}
}

// blockingRequester holds each request until release is closed.
type blockingRequester struct {
	inFlight chan struct{}
	release  chan struct{}
}

func (r *blockingRequester) RequestReading() error {
	select {
	case r.inFlight <- struct{}{}:
	default:
	}
	<-r.release
	return nil
}

func TestPollerStatusDuringSlowStop(t *testing.T) {
	req := &blockingRequester{inFlight: make(chan struct{}, 1), release: make(chan struct{})}
	p := NewPoller(req, time.Hour, logging.Discard().Component("poll"))

	p.Toggle()
	<-req.inFlight

	stopped := make(chan bool)
	go func() { stopped <- p.Toggle() }()
	time.Sleep(20 * time.Millisecond)

	status := make(chan bool)
	go func() { status <- p.IsPolling() }()
	select {
	case on := <-status:
		if on {
			t.Fatal("IsPolling true while stopping")
		}
	case <-time.After(500 * time.Millisecond):
		close(req.release)
		t.Fatal("IsPolling blocked behind an in-flight request")
	}

	select {
	case <-stopped:
		t.Fatal("Toggle returned before the in-flight request finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(req.release)
	if on := <-stopped; on {
		t.Fatal("second toggle should stop polling")
	}
}

func TestPollerSet(t *testing.T) {
	req := &countingRequester{}
	p := NewPoller(req, time.Hour, logging.Discard().Component("poll"))
	defer p.Stop()

	if !p.Set(true) {
		t.Fatal("enabling a stopped poller should change state")
	}
	if p.Set(true) {
		t.Fatal("enabling a running poller should be a no-op")
	}
	waitFor(t, func() bool { return req.calls.Load() == 1 })

	if !p.Set(false) {
		t.Fatal("disabling a running poller should change state")
	}
	if p.Set(false) {
		t.Fatal("disabling a stopped poller should be a no-op")
	}
	if p.IsPolling() {
		t.Fatal("poller still running")
	}
}
