package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fireguard/internal/models"
)

// ReadingStore persists readings.
type ReadingStore interface {
	InsertReading(ctx context.Context, temperature, gas float64, ts time.Time) (models.SensorReading, error)
}

// Broadcaster pushes a stored reading to live dashboard sessions.
type Broadcaster interface {
	Broadcast(ctx context.Context, reading models.SensorReading) int
}

// AlertNotifier sends a fired alert without blocking the caller.
type AlertNotifier interface {
	Dispatch(alert models.FireAlert)
}

// Pipeline is the ingest path for decoded measurements: alert check,
// persistence and live broadcast. Handle must only run on the loop.
type Pipeline struct {
	loop        *Loop
	gate        *AlertGate
	store       ReadingStore
	broadcaster Broadcaster
	alerts      AlertNotifier
	log         *logrus.Entry
}

func NewPipeline(loop *Loop, gate *AlertGate, store ReadingStore, broadcaster Broadcaster, alerts AlertNotifier, log *logrus.Entry) *Pipeline {
	return &Pipeline{
		loop:        loop,
		gate:        gate,
		store:       store,
		broadcaster: broadcaster,
		alerts:      alerts,
		log:         log,
	}
}

// Submit hands m to the ingest loop. It is called from the broker callback
// goroutine and does not wait for m to be processed.
func (p *Pipeline) Submit(m models.Measurement) {
	if !p.loop.Submit(func(ctx context.Context) {
		_, _ = p.Handle(ctx, m)
	}) {
		p.log.Warnf("Ingest loop stopped, dropping reading temperature=%.2f gas=%.2f", m.Temperature, m.Gas)
	}
}

// Handle processes one measurement and returns the stored reading.
func (p *Pipeline) Handle(ctx context.Context, m models.Measurement) (models.SensorReading, error) {
	if p.gate.Evaluate(m.Temperature, m.ReceivedAt) {
		p.log.Warnf("Temperature %.2f above %.2f, sending fire alert", m.Temperature, p.gate.Threshold)
		p.alerts.Dispatch(models.FireAlert{
			Temperature: m.Temperature,
			Gas:         m.Gas,
			Threshold:   p.gate.Threshold,
			TriggeredAt: m.ReceivedAt,
		})
	}

	reading, err := p.store.InsertReading(ctx, m.Temperature, m.Gas, m.ReceivedAt)
	if err != nil {
		p.log.Errorf("Dropping reading: %v", err)
		return models.SensorReading{}, fmt.Errorf("store reading: %w", err)
	}

	n := p.broadcaster.Broadcast(ctx, reading)
	p.log.Debugf("Reading %d (temperature=%.2f gas=%.2f) pushed to %d connections", reading.ID, reading.Temperature, reading.Gas, n)
	return reading, nil
}
