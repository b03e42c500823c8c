package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fireguard/internal/models"
)

// Broadcaster delivers stored readings to every registered connection.
type Broadcaster struct {
	registry    *Registry
	sendTimeout time.Duration
	marshal     func(any) ([]byte, error)
	log         *logrus.Entry
}

func NewBroadcaster(registry *Registry, log *logrus.Entry) *Broadcaster {
	return &Broadcaster{
		registry:    registry,
		sendTimeout: writeWait,
		marshal:     json.Marshal,
		log:         log,
	}
}

// Broadcast sends reading to every connection in a registry snapshot and
// returns how many sends succeeded. Sends run concurrently; connections
// whose send failed are removed once all sends have finished.
func (b *Broadcaster) Broadcast(ctx context.Context, reading models.SensorReading) int {
	entries := b.registry.Snapshot()
	if len(entries) == 0 {
		return 0
	}

	msg, err := b.marshal(reading)
	if err != nil {
		b.log.Errorf("Failed to encode reading %d: %v", reading.ID, err)
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, b.sendTimeout)
	defer cancel()

	errs := make([]error, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		go func(i int, c Conn) {
			defer wg.Done()
			errs[i] = c.Send(ctx, msg)
		}(i, e.Conn)
	}
	wg.Wait()

	delivered := 0
	for i, e := range entries {
		if errs[i] == nil {
			delivered++
			continue
		}
		b.log.Warnf("Failed to send to connection %s, pruning: %v", e.ID, errs[i])
		b.registry.Remove(e.ID, e.Conn)
	}
	return delivered
}
