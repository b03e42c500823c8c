package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fireguard/internal/models"
)

// AlertGate decides whether a reading should notify operators. It is owned
// by the ingest loop and is not safe for concurrent use.
type AlertGate struct {
	Threshold float64
	Cooldown  time.Duration

	lastNotified time.Time
}

func NewAlertGate(threshold float64, cooldown time.Duration) *AlertGate {
	return &AlertGate{Threshold: threshold, Cooldown: cooldown}
}

// Evaluate reports whether a notification should fire for temperature at
// now. When it fires, the cooldown starts at now.
func (g *AlertGate) Evaluate(temperature float64, now time.Time) bool {
	if temperature <= g.Threshold {
		return false
	}
	if !g.lastNotified.IsZero() && now.Sub(g.lastNotified) <= g.Cooldown {
		return false
	}
	g.lastNotified = now
	return true
}

// LastNotified returns the zero time if no alert has fired yet.
func (g *AlertGate) LastNotified() time.Time {
	return g.lastNotified
}

// RecipientLister returns the addresses that receive fire alerts.
type RecipientLister interface {
	ListActiveRecipients(ctx context.Context) ([]string, error)
}

// Deliverer sends one alert to one address.
type Deliverer interface {
	Deliver(ctx context.Context, address string, alert models.FireAlert) error
}

// AlertDispatcher fans a fired alert out to every recipient in the
// background. Each delivery runs on its own goroutine; failures are logged
// and never retried.
type AlertDispatcher struct {
	recipients RecipientLister
	deliverer  Deliverer
	extra      []string
	timeout    time.Duration
	log        *logrus.Entry
	wg         sync.WaitGroup
}

// NewAlertDispatcher builds a dispatcher. extra addresses are notified in
// addition to the ones returned by recipients.
func NewAlertDispatcher(recipients RecipientLister, deliverer Deliverer, extra []string, log *logrus.Entry) *AlertDispatcher {
	return &AlertDispatcher{
		recipients: recipients,
		deliverer:  deliverer,
		extra:      extra,
		timeout:    30 * time.Second,
		log:        log,
	}
}

// Dispatch returns immediately.
func (d *AlertDispatcher) Dispatch(alert models.FireAlert) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.deliverAll(ctx, alert)
	}()
}

func (d *AlertDispatcher) deliverAll(ctx context.Context, alert models.FireAlert) {
	addresses, err := d.recipients.ListActiveRecipients(ctx)
	if err != nil {
		d.log.Errorf("Failed to list alert recipients: %v", err)
	}
	addresses = append(addresses, d.extra...)
	if len(addresses) == 0 {
		d.log.Warnf("Fire alert at %.2f has no recipients", alert.Temperature)
		return
	}

	var wg sync.WaitGroup
	for _, addr := range addresses {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if err := d.deliverer.Deliver(ctx, addr, alert); err != nil {
				d.log.Errorf("Failed to deliver fire alert to %s: %v", addr, err)
				return
			}
			d.log.Infof("Fire alert delivered to %s", addr)
		}(addr)
	}
	wg.Wait()
}

// Wait blocks until every in-flight dispatch has finished.
func (d *AlertDispatcher) Wait() {
	d.wg.Wait()
}
