package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ReadingRequester asks the hardware for a fresh reading.
type ReadingRequester interface {
	RequestReading() error
}

// Poller periodically requests readings while enabled. At most one polling
// goroutine runs at a time.
type Poller struct {
	requester ReadingRequester
	interval  time.Duration
	log       *logrus.Entry

	// ctl serializes Toggle and Set, including the wait for a stopping
	// goroutine. mu guards cancel and done only and is never held while
	// waiting, so IsPolling stays responsive.
	ctl    sync.Mutex
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(requester ReadingRequester, interval time.Duration, log *logrus.Entry) *Poller {
	return &Poller{requester: requester, interval: interval, log: log}
}

// Toggle starts polling if it is stopped and stops it otherwise. It returns
// whether polling is on afterwards.
func (p *Poller) Toggle() bool {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	if p.IsPolling() {
		p.stop()
		return false
	}
	p.start()
	return true
}

// Set turns polling on or off and reports whether the state changed.
func (p *Poller) Set(enabled bool) bool {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	running := p.IsPolling()
	switch {
	case enabled && !running:
		p.start()
		return true
	case !enabled && running:
		p.stop()
		return true
	}
	return false
}

func (p *Poller) IsPolling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop turns polling off if it is on.
func (p *Poller) Stop() {
	p.Set(false)
}

func (p *Poller) start() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()
	go p.run(ctx, done)
	p.log.Infof("Sensor polling started (every %s)", p.interval)
}

// stop returns only after the polling goroutine has exited, so no request
// is issued after it returns. Polling reads as off as soon as it begins.
func (p *Poller) stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	cancel()
	<-done
	p.log.Infof("Sensor polling stopped")
}
func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.requester.RequestReading(); err != nil {
			p.log.Errorf("Failed to request sensor reading: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
