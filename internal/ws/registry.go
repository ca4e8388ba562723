package ws

import (
	"sync"

	"github.com/google/uuid"
)

// registry tracks every live connection by id. It knows nothing about rooms
// and its lock is never held across socket I/O.
type registry struct {
	mu    sync.RWMutex
	conns map[string]*clientConn
}

func newRegistry() *registry {
	return &registry{conns: make(map[string]*clientConn)}
}

// add assigns the connection a process-unique id and registers it.
func (g *registry) add(c *clientConn) string {
	id := uuid.NewString()
	c.id = id

	g.mu.Lock()
	g.conns[id] = c
	g.mu.Unlock()
	return id
}

func (g *registry) remove(id string) {
	g.mu.Lock()
	delete(g.conns, id)
	g.mu.Unlock()
}

func (g *registry) get(id string) (*clientConn, bool) {
	g.mu.RLock()
	c, ok := g.conns[id]
	g.mu.RUnlock()
	return c, ok
}

// snapshot copies the current handles so callers can probe or write without
// holding the registry lock.
func (g *registry) snapshot() []*clientConn {
	g.mu.RLock()
	out := make([]*clientConn, 0, len(g.conns))
	for _, c := range g.conns {
		out = append(out, c)
	}
	g.mu.RUnlock()
	return out
}

func (g *registry) len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// closeAll force-closes every connection and clears the map. Used on
// shutdown only.
func (g *registry) closeAll() {
	g.mu.Lock()
	for id, c := range g.conns {
		_ = c.close()
		delete(g.conns, id)
	}
	g.mu.Unlock()
}
