package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fireguard/internal/logging"
	"fireguard/internal/models"
)

type fakeConn struct {
	mu        sync.Mutex
	msgs      [][]byte
	sendErr   error
	closeCode int
	closed    bool
}

func (c *fakeConn) Send(_ context.Context, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	return nil
}

func newTestRegistry() *Registry {
	return NewRegistry(logging.Discard().Component("hub"))
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	r := newTestRegistry()
	r.Register("a", &fakeConn{})
	r.Register("b", &fakeConn{})

	r.Unregister("a")
	once := r.Len()
	r.Unregister("a")
	r.Unregister("missing")

	if r.Len() != once || once != 1 {
		t.Fatalf("len = %d after repeated unregister, want 1", r.Len())
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := newTestRegistry()
	r.Register("a", &fakeConn{})
	r.Register("b", &fakeConn{})

	snap := r.Snapshot()
	r.Unregister("a")
	r.Register("c", &fakeConn{})

	if len(snap) != 2 {
		t.Fatalf("snapshot changed under mutation: %d entries", len(snap))
	}
}

func TestRegistryOverwriteClosesStale(t *testing.T) {
	r := newTestRegistry()
	stale, fresh := &fakeConn{}, &fakeConn{}
	r.Register("a", stale)
	r.Register("a", fresh)

	if !stale.closed {
		t.Fatal("stale handle not closed")
	}
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
	if r.Remove("a", stale) {
		t.Fatal("stale handle evicted its replacement")
	}
	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].Conn != fresh {
		t.Fatalf("registry lost the fresh handle: %+v", snap)
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := newTestRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	r.Register("a", a)
	r.Register("b", b)

	r.CloseAll(websocket.CloseGoingAway, "Closing server")

	if r.Len() != 0 {
		t.Fatalf("len = %d after CloseAll", r.Len())
	}
	for _, c := range []*fakeConn{a, b} {
		if !c.closed || c.closeCode != websocket.CloseGoingAway {
			t.Fatalf("conn not closed with 1001: %+v", c)
		}
	}
}

func TestBroadcastEmptyRegistrySkipsEncoding(t *testing.T) {
	b := NewBroadcaster(newTestRegistry(), logging.Discard().Component("hub"))
	calls := 0
	b.marshal = func(v any) ([]byte, error) {
		calls++
		return json.Marshal(v)
	}

	if n := b.Broadcast(context.Background(), models.SensorReading{ID: 1}); n != 0 {
		t.Fatalf("delivered = %d, want 0", n)
	}
	if calls != 0 {
		t.Fatalf("marshal called %d times for empty registry", calls)
	}
}

func TestBroadcastPrunesFailedConnections(t *testing.T) {
	r := newTestRegistry()
	ok1, ok2 := &fakeConn{}, &fakeConn{}
	bad := &fakeConn{sendErr: errors.New("broken pipe")}
	r.Register("ok1", ok1)
	r.Register("bad", bad)
	r.Register("ok2", ok2)

	b := NewBroadcaster(r, logging.Discard().Component("hub"))
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reading := models.SensorReading{ID: 7, Timestamp: ts, Temperature: 75.5, Gas: 310}

	if n := b.Broadcast(context.Background(), reading); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}

	ids := map[string]bool{}
	for _, e := range r.Snapshot() {
		ids[e.ID] = true
	}
	if len(ids) != 2 || !ids["ok1"] || !ids["ok2"] {
		t.Fatalf("registry after broadcast = %v, want ok1 and ok2", ids)
	}

	for _, c := range []*fakeConn{ok1, ok2} {
		if len(c.msgs) != 1 {
			t.Fatalf("conn received %d messages, want 1", len(c.msgs))
		}
		var got map[string]any
		if err := json.Unmarshal(c.msgs[0], &got); err != nil {
			t.Fatalf("payload is not json: %v", err)
		}
		if got["id"] != float64(7) || got["temperature"] != 75.5 || got["gas"] != float64(310) ||
			got["timestamp"] != "2026-03-01T12:00:00Z" {
			t.Fatalf("unexpected payload %v", got)
		}
	}
}
