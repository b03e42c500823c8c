package hub

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Conn is one live push channel to a dashboard session.
type Conn interface {
	Send(ctx context.Context, msg []byte) error
	Close(code int, reason string) error
}

// Entry pairs a connection with its id.
type Entry struct {
	ID   string
	Conn Conn
}

// Registry tracks live connections by id.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Conn
	log   *logrus.Entry
}

func NewRegistry(log *logrus.Entry) *Registry {
	return &Registry{conns: make(map[string]Conn), log: log}
}

// Register adds conn under id. A connection already registered under the
// same id is treated as stale: it is replaced and closed.
func (r *Registry) Register(id string, conn Conn) {
	r.mu.Lock()
	old := r.conns[id]
	r.conns[id] = conn
	total := len(r.conns)
	r.mu.Unlock()

	if old != nil && old != conn {
		r.log.Warnf("Connection %s re-registered, closing stale handle", id)
		_ = old.Close(websocket.CloseNormalClosure, "Replaced by new connection")
	}
	r.log.Infof("Registered connection %s (total: %d)", id, total)
}

// Unregister removes id. Removing an absent id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; ok {
		delete(r.conns, id)
		r.log.Infof("Unregistered connection %s (remaining: %d)", id, len(r.conns))
	}
}

// Remove deletes id only while it still maps to conn, so a stale handle
// cannot evict the connection that replaced it.
func (r *Registry) Remove(id string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[id]; ok && cur == conn {
		delete(r.conns, id)
		r.log.Infof("Removed connection %s (remaining: %d)", id, len(r.conns))
		return true
	}
	return false
}

// Snapshot returns a copy of the current entries. Order is unspecified.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]Entry, 0, len(r.conns))
	for id, c := range r.conns {
		entries = append(entries, Entry{ID: id, Conn: c})
	}
	return entries
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll empties the registry and closes every connection with code and
// reason.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]Conn)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for id, c := range conns {
		wg.Add(1)
		go func(id string, c Conn) {
			defer wg.Done()
			if err := c.Close(code, reason); err != nil {
				r.log.Debugf("Close connection %s: %v", id, err)
			}
		}(id, c)
	}
	wg.Wait()
	r.log.Infof("Closed %d connections", len(conns))
}
