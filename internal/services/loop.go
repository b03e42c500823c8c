package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a unit of work executed on the ingest loop.
type Task func(ctx context.Context)

// Loop is a single goroutine that runs submitted tasks one at a time in
// submission order. Submit never blocks on the work itself, so it is safe
// to call from broker callbacks.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	closed  bool
	running bool
	done    chan struct{}
	log     *logrus.Entry
}

func NewLoop(log *logrus.Entry) *Loop {
	l := &Loop{
		done: make(chan struct{}),
		log:  log,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Submit queues t. It returns false once the loop is stopping.
func (l *Loop) Submit(t Task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, t)
	l.cond.Signal()
	return true
}

// Pending reports the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Start launches the loop goroutine. It drains the queue until Stop is
// called and the queue is empty; ctx is handed to every task.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()
	go l.run(ctx)
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	for {
		t, ok := l.next()
		if !ok {
			return
		}
		l.exec(ctx, t)
	}
}

func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.queue) == 0 && !l.closed {
		l.cond.Wait()
	}
	if len(l.queue) == 0 {
		return nil, false
	}
	t := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return t, true
}

func (l *Loop) exec(ctx context.Context, t Task) {
	defer func() {
		if p := recover(); p != nil {
			l.log.Errorf("Ingest task panicked: %v", p)
		}
	}()
	t(ctx)
}

// Stop refuses new tasks, lets queued ones finish and waits for the loop
// goroutine to exit. Calling Stop on a loop that was never started returns
// immediately.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.closed = true
	running := l.running
	l.cond.Broadcast()
	l.mu.Unlock()
	if running {
		<-l.done
	}
}
